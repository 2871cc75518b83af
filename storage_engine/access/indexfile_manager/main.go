package indexfile

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	heapfile "PrefixDB/storage_engine/access/heapfile_manager"
	"PrefixDB/storage_engine/access/indexfile_manager/btree"
	"PrefixDB/storage_engine/bufferpool"
)

/*
This file is the main file for the Index File Manager that deals with the
index files. It sits over the shared buffer pool; the heap file manager,
by contrast, reads and writes its relation files directly.

Index files are named "{relationName}.{attrByteOffset}" under baseDir.
Opening an index that does not exist yet bulk-builds it by streaming the
relation through the heap file manager's FileScanner.
*/

// NewIndexFileManager creates a manager rooted at baseDir. leafCapacity
// and nonLeafCapacity of 0 derive node fanouts from the page size.
func NewIndexFileManager(baseDir string, bufferPool *bufferpool.BufferPool, hfm *heapfile.HeapFileManager,
	leafCapacity, nonLeafCapacity int, log *zap.Logger) (*IndexFileManager, error) {

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create indexes directory %s", baseDir)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &IndexFileManager{
		baseDir:         baseDir,
		indexes:         make(map[string]*btree.BTreeIndex),
		bufferPool:      bufferPool,
		heapFileManager: hfm,
		leafCapacity:    leafCapacity,
		nonLeafCapacity: nonLeafCapacity,
		log:             log,
	}, nil
}

// GetOrOpenIndex returns the B+Tree index over relationName's attribute
// at attrByteOffset, opening or bulk-building it on first use. Indexes
// are cached by their derived file name.
func (ifm *IndexFileManager) GetOrOpenIndex(relationName string, attrByteOffset int) (*btree.BTreeIndex, error) {
	indexName := btree.IndexFileName(relationName, attrByteOffset)

	ifm.mu.RLock()
	ix, exists := ifm.indexes[indexName]
	ifm.mu.RUnlock()
	if exists && ix != nil {
		return ix, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// Another caller may have opened it while we waited for the lock.
	if ix, exists := ifm.indexes[indexName]; exists && ix != nil {
		return ix, nil
	}

	// The scanner is only consumed when the index file does not exist
	// yet and the tree is built from scratch.
	scanner, err := ifm.heapFileManager.NewScanner(relationName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan relation %s for index build", relationName)
	}

	ix, err = btree.OpenIndex(btree.Config{
		Dir:             ifm.baseDir,
		RelationName:    relationName,
		AttrByteOffset:  attrByteOffset,
		LeafCapacity:    ifm.leafCapacity,
		NonLeafCapacity: ifm.nonLeafCapacity,
		Log:             ifm.log,
	}, ifm.bufferPool, scanner)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open index %s", indexName)
	}

	ifm.indexes[indexName] = ix
	return ix, nil
}

// CloseIndex closes one cached index, flushing its file.
func (ifm *IndexFileManager) CloseIndex(relationName string, attrByteOffset int) error {
	indexName := btree.IndexFileName(relationName, attrByteOffset)

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	ix, exists := ifm.indexes[indexName]
	if !exists {
		return nil // not open, nothing to do
	}

	if err := ix.Close(); err != nil {
		return errors.Wrapf(err, "failed to close index %s", indexName)
	}

	delete(ifm.indexes, indexName)
	return nil
}

// CloseAll closes every cached index and clears the cache. Called on
// shutdown.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var lastErr error
	for indexName, ix := range ifm.indexes {
		if err := ix.Close(); err != nil {
			lastErr = errors.Wrapf(err, "failed to close index %s", indexName)
		}
		delete(ifm.indexes, indexName)
	}

	ifm.log.Info("closed all indexes")
	return lastErr
}
