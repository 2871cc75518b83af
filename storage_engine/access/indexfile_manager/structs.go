package indexfile

import (
	"sync"

	"go.uber.org/zap"

	heapfile "PrefixDB/storage_engine/access/heapfile_manager"
	"PrefixDB/storage_engine/access/indexfile_manager/btree"
	"PrefixDB/storage_engine/bufferpool"
)

type IndexFileManager struct {
	baseDir         string                       // e.g. data/indexes
	indexes         map[string]*btree.BTreeIndex // index name -> cached open index
	bufferPool      *bufferpool.BufferPool       // shared with every index file
	heapFileManager *heapfile.HeapFileManager    // source relations for bulk builds
	leafCapacity    int                          // 0 = page-derived
	nonLeafCapacity int
	log             *zap.Logger
	mu              sync.RWMutex
}
