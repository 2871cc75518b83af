package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"

	"PrefixDB/config"
	"PrefixDB/logger"
	heapfile "PrefixDB/storage_engine/access/heapfile_manager"
	indexfile "PrefixDB/storage_engine/access/indexfile_manager"
	"PrefixDB/storage_engine/access/indexfile_manager/btree"
	"PrefixDB/storage_engine/bufferpool"
	"PrefixDB/types"
)

// Interactive shell over one indexed relation:
//
//	insert <key-and-record-text>
//	scan <low> <GT|GTE> <high> <LT|LTE>
//	print
//	exit
const demoRelation = "demo"

func main() {
	cfg, err := config.Load("prefixdb.ini")
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	heapFileManager, err := heapfile.NewHeapFileManager(cfg.RelationsDir, zlog)
	if err != nil {
		log.Fatal(err)
	}
	defer heapFileManager.CloseAll()

	if _, err := heapFileManager.CreateRelation(demoRelation); err != nil && !errors.Is(err, types.ErrFileExists) {
		log.Fatal(err)
	}

	pool := bufferpool.NewBufferPool(cfg.BufferFrames, zlog)
	indexFileManager, err := indexfile.NewIndexFileManager(cfg.IndexesDir, pool, heapFileManager,
		cfg.LeafCapacity, cfg.NonLeafCapacity, zlog)
	if err != nil {
		log.Fatal(err)
	}
	defer indexFileManager.CloseAll()

	ix, err := indexFileManager.GetOrOpenIndex(demoRelation, 0)
	if err != nil {
		log.Fatal(err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	// REPL
	for {
		fmt.Print("idx> ")

		if !scanner.Scan() { // Ctrl+D pressed
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch strings.ToLower(fields[0]) {
		case "exit":
			return

		case "print":
			if err := ix.DumpTree(os.Stdout); err != nil {
				fmt.Println("error:", err)
			}

		case "insert":
			if len(fields) < 2 {
				fmt.Println("usage: insert <record text>")
				continue
			}
			record := strings.Join(fields[1:], " ")
			rid, err := heapFileManager.InsertRecord(demoRelation, []byte(record))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := ix.InsertEntry(types.MakeKey([]byte(record)), rid); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("inserted at (page %d, slot %d)\n", rid.PageNumber, rid.SlotNumber)

		case "scan":
			if len(fields) != 5 {
				fmt.Println("usage: scan <low> <GT|GTE> <high> <LT|LTE>")
				continue
			}
			lowOp, ok1 := parseOp(fields[2])
			highOp, ok2 := parseOp(fields[4])
			if !ok1 || !ok2 {
				fmt.Println("operators must be one of LT LTE GTE GT")
				continue
			}
			runScan(ix, heapFileManager, types.MakeKey([]byte(fields[1])), lowOp,
				types.MakeKey([]byte(fields[3])), highOp)

		default:
			fmt.Println("commands: insert, scan, print, exit")
		}
	}
}

func parseOp(s string) (types.Operator, bool) {
	switch strings.ToUpper(s) {
	case "LT":
		return types.LT, true
	case "LTE":
		return types.LTE, true
	case "GTE":
		return types.GTE, true
	case "GT":
		return types.GT, true
	}
	return 0, false
}

func runScan(ix *btree.BTreeIndex, hfm *heapfile.HeapFileManager,
	low types.Key, lowOp types.Operator, high types.Key, highOp types.Operator) {

	if err := ix.StartScan(low, lowOp, high, highOp); err != nil {
		fmt.Println("scan:", err)
		return
	}

	hits := 0
	var rid types.RecordId
	for {
		if err := ix.ScanNext(&rid); err != nil {
			if !errors.Is(err, types.ErrIndexScanCompleted) {
				fmt.Println("scan:", err)
			}
			break
		}
		record, err := hfm.GetRecord(demoRelation, rid)
		if err != nil {
			fmt.Println("fetch:", err)
			break
		}
		fmt.Printf("  (%d,%d) %s\n", rid.PageNumber, rid.SlotNumber, record)
		hits++
	}
	fmt.Printf("%d hit(s)\n", hits)
}
