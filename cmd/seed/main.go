// Seed program: creates a relation of "NNNNN string record" rows and
// bulk-builds the prefix index over it.
// Run: go run ./cmd/seed -n 5000
// Then inspect: data/relations/*.rel and data/indexes/*.
package main

import (
	"flag"
	"fmt"
	"log"

	"PrefixDB/config"
	"PrefixDB/logger"
	heapfile "PrefixDB/storage_engine/access/heapfile_manager"
	indexfile "PrefixDB/storage_engine/access/indexfile_manager"
	"PrefixDB/storage_engine/bufferpool"
)

func main() {
	var (
		configPath   = flag.String("config", "prefixdb.ini", "config file")
		relationName = flag.String("relation", "relA", "relation to create")
		relationSize = flag.Int("n", 5000, "number of records to seed")
		attrOffset   = flag.Int("offset", 0, "attribute byte offset to index")
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

	heapFileManager, err := heapfile.NewHeapFileManager(cfg.RelationsDir, zlog)
	if err != nil {
		log.Fatalf("heap file manager: %v", err)
	}
	defer heapFileManager.CloseAll()

	if _, err := heapFileManager.CreateRelation(*relationName); err != nil {
		log.Fatalf("create relation: %v", err)
	}

	fmt.Printf("Seeding %d records into relation %s...\n", *relationSize, *relationName)
	for i := 0; i < *relationSize; i++ {
		record := fmt.Sprintf("%05d string record", i)
		if _, err := heapFileManager.InsertRecord(*relationName, []byte(record)); err != nil {
			log.Fatalf("insert record %d: %v", i, err)
		}
	}

	pool := bufferpool.NewBufferPool(cfg.BufferFrames, zlog)
	indexFileManager, err := indexfile.NewIndexFileManager(cfg.IndexesDir, pool, heapFileManager,
		cfg.LeafCapacity, cfg.NonLeafCapacity, zlog)
	if err != nil {
		log.Fatalf("index file manager: %v", err)
	}
	defer indexFileManager.CloseAll()

	ix, err := indexFileManager.GetOrOpenIndex(*relationName, *attrOffset)
	if err != nil {
		log.Fatalf("build index: %v", err)
	}

	fmt.Println("\nDone. Inspect:")
	fmt.Printf("  - Relation file: %s/%s.rel\n", cfg.RelationsDir, *relationName)
	fmt.Printf("  - Index file:    %s/%s\n", cfg.IndexesDir, ix.IndexName())
	fmt.Printf("  - Dump tree:     go run ./cmd/inspect_idx -relation %s -offset %d\n", *relationName, *attrOffset)
}
