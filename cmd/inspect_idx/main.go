// Inspect program: dumps the node structure of an existing prefix index.
// Run: go run ./cmd/inspect_idx -relation relA -offset 0
package main

import (
	"flag"
	"log"
	"os"

	"PrefixDB/config"
	"PrefixDB/logger"
	"PrefixDB/storage_engine/access/indexfile_manager/btree"
	"PrefixDB/storage_engine/bufferpool"
)

func main() {
	var (
		configPath   = flag.String("config", "prefixdb.ini", "config file")
		relationName = flag.String("relation", "relA", "indexed relation")
		attrOffset   = flag.Int("offset", 0, "indexed attribute byte offset")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	pool := bufferpool.NewBufferPool(cfg.BufferFrames, zlog)

	// No scanner: an existing index file is loaded; a missing one is
	// created as an empty index.
	ix, err := btree.OpenIndex(btree.Config{
		Dir:             cfg.IndexesDir,
		RelationName:    *relationName,
		AttrByteOffset:  *attrOffset,
		LeafCapacity:    cfg.LeafCapacity,
		NonLeafCapacity: cfg.NonLeafCapacity,
		Log:             zlog,
	}, pool, nil)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer ix.Close()

	if err := ix.DumpTree(os.Stdout); err != nil {
		log.Fatalf("dump tree: %v", err)
	}
}
