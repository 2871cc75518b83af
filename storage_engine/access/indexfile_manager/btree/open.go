package btree

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"PrefixDB/storage_engine/bufferpool"
	diskmanager "PrefixDB/storage_engine/disk_manager"
	"PrefixDB/types"
)

/*
Index lifecycle.

OpenIndex first tries to load an existing index file; a FileNotFound
there flips it into build-from-scratch, streaming the relation through
the supplied RecordScanner. All other failures propagate. On teardown
Close ends any live scan, flushes the file through the buffer pool, and
releases the handle.
*/

// IndexFileName derives the index file name for a relation/attribute
// pair: "{relationName}.{attrByteOffset}".
func IndexFileName(relationName string, attrByteOffset int) string {
	return fmt.Sprintf("%s.%d", relationName, attrByteOffset)
}

// OpenIndex opens the index for (cfg.RelationName, cfg.AttrByteOffset),
// building it from scanner if the index file does not exist yet. The
// scanner may be nil when the caller knows the file exists or wants an
// empty index.
func OpenIndex(cfg Config, bufMgr *bufferpool.BufferPool, scanner RecordScanner) (*BTreeIndex, error) {
	if len(cfg.RelationName) > relationNameSize {
		return nil, errors.Wrapf(types.ErrBadIndexInfo, "relation name %q longer than %d bytes",
			cfg.RelationName, relationNameSize)
	}

	leafCap := cfg.LeafCapacity
	if leafCap == 0 {
		leafCap = DefaultLeafCapacity()
	}
	nonLeafCap := cfg.NonLeafCapacity
	if nonLeafCap == 0 {
		nonLeafCap = DefaultNonLeafCapacity()
	}
	if leafCap < minCapacity || nonLeafCap < minCapacity {
		return nil, errors.Errorf("node capacities %d/%d below minimum %d", leafCap, nonLeafCap, minCapacity)
	}

	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	ix := &BTreeIndex{
		bufMgr:         bufMgr,
		log:            log,
		indexName:      IndexFileName(cfg.RelationName, cfg.AttrByteOffset),
		relationName:   cfg.RelationName,
		attrByteOffset: cfg.AttrByteOffset,
		leafCap:        leafCap,
		nonLeafCap:     nonLeafCap,
		rootPageNum:    types.InvalidPageNumber,
	}
	path := filepath.Join(cfg.Dir, ix.indexName)

	file, err := diskmanager.Open(path)
	switch {
	case err == nil:
		ix.file = file
		if err := ix.loadHeader(); err != nil {
			file.Close()
			return nil, err
		}

	case errors.Is(err, types.ErrFileNotFound):
		file, err = diskmanager.Create(path)
		if err != nil {
			return nil, err
		}
		ix.file = file
		if err := ix.buildFromScratch(scanner); err != nil {
			file.Close()
			return nil, err
		}

	default:
		return nil, err
	}

	return ix, nil
}

// loadHeader adopts an existing index file after verifying its header
// against the caller's parameters.
func (ix *BTreeIndex) loadHeader() error {
	data, err := ix.bufMgr.ReadPage(ix.file, headerPageNum)
	if err != nil {
		return err
	}

	header := metaPage{data: data}
	relationName := header.relationName()
	attrByteOffset := header.attrByteOffset()
	version := header.version()
	leafCap := header.leafCapacity()
	nonLeafCap := header.nonLeafCapacity()
	rootPageNo := header.rootPageNo()

	if err := ix.unpin(headerPageNum, false); err != nil {
		return err
	}

	if version != metaVersion {
		return errors.Wrapf(types.ErrBadIndexInfo, "index %s has layout version %d, want %d",
			ix.indexName, version, metaVersion)
	}
	if relationName != ix.relationName {
		return errors.Wrapf(types.ErrBadIndexInfo, "index %s holds relation %q, caller asked for %q",
			ix.indexName, relationName, ix.relationName)
	}
	if attrByteOffset != ix.attrByteOffset {
		return errors.Wrapf(types.ErrBadIndexInfo, "index %s indexes attribute offset %d, caller asked for %d",
			ix.indexName, attrByteOffset, ix.attrByteOffset)
	}
	if leafCap != ix.leafCap || nonLeafCap != ix.nonLeafCap {
		return errors.Wrapf(types.ErrBadIndexInfo, "index %s was built with capacities %d/%d, caller asked for %d/%d",
			ix.indexName, leafCap, nonLeafCap, ix.leafCap, ix.nonLeafCap)
	}

	ix.rootPageNum = rootPageNo
	ix.log.Info("loaded index",
		zap.String("index", ix.indexName),
		zap.Uint32("root", uint32(rootPageNo)))
	return nil
}

// buildFromScratch writes a fresh header and streams every record of the
// relation into the tree. End of stream terminates the build normally.
func (ix *BTreeIndex) buildFromScratch(scanner RecordScanner) error {
	pid, data, err := ix.bufMgr.AllocatePage(ix.file)
	if err != nil {
		return err
	}
	if pid != headerPageNum {
		_ = ix.unpin(pid, false)
		return errors.Errorf("header page allocated as page %d, expected %d", pid, headerPageNum)
	}

	header := metaPage{data: data}
	header.setRelationName(ix.relationName)
	header.setAttrByteOffset(ix.attrByteOffset)
	header.setRootPageNo(types.InvalidPageNumber)
	header.setVersion(metaVersion)
	header.setLeafCapacity(ix.leafCap)
	header.setNonLeafCapacity(ix.nonLeafCap)

	inserted := 0
	if scanner != nil {
		var rid types.RecordId
		for {
			if err := scanner.ScanNext(&rid); err != nil {
				if errors.Is(err, types.ErrEndOfFile) {
					break
				}
				_ = ix.unpin(headerPageNum, true)
				return err
			}
			record, err := scanner.GetRecord()
			if err != nil {
				_ = ix.unpin(headerPageNum, true)
				return err
			}
			if err := ix.InsertEntry(ix.extractKey(record), rid); err != nil {
				_ = ix.unpin(headerPageNum, true)
				return err
			}
			inserted++
		}
	}

	ix.log.Info("built index",
		zap.String("index", ix.indexName),
		zap.Int("records", inserted),
		zap.Int("leafCapacity", ix.leafCap),
		zap.Int("nonLeafCapacity", ix.nonLeafCap))
	return ix.unpin(headerPageNum, true)
}

// extractKey takes the fixed-width key prefix at the attribute offset,
// NUL-padding when the record is shorter than offset+KeySize.
func (ix *BTreeIndex) extractKey(record []byte) types.Key {
	start := ix.attrByteOffset
	if start > len(record) {
		start = len(record)
	}
	end := start + types.KeySize
	if end > len(record) {
		end = len(record)
	}
	return types.MakeKey(record[start:end])
}

// Close ends any live scan, flushes every dirty page of the index file,
// and releases the file handle.
func (ix *BTreeIndex) Close() error {
	if ix.scan.state != scanInactive {
		if err := ix.EndScan(); err != nil {
			return err
		}
	}
	if err := ix.bufMgr.FlushFile(ix.file); err != nil {
		return err
	}
	return ix.file.Close()
}
