package heapfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"PrefixDB/types"
)

/*
This file is the main file for the Heap File Manager that deals with
relation storage. It owns the open HeapFile handles under baseDir and a
ristretto record cache shared by every relation.

Relation files are named <relation>.rel. GetRecord goes through the cache:
records are append-only and never rewritten, so a hit can never be stale.
*/

const relationFileSuffix = ".rel"

// recordCacheCost is the fixed bookkeeping cost added per cached record.
const recordCacheCost = 64

// NewHeapFileManager creates a manager rooted at baseDir.
func NewHeapFileManager(baseDir string, log *zap.Logger) (*HeapFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create relations directory %s", baseDir)
	}
	if log == nil {
		log = zap.NewNop()
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     1 << 26, // 64MB of cached records
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create record cache")
	}

	return &HeapFileManager{
		baseDir: baseDir,
		files:   make(map[string]*HeapFile),
		cache:   cache,
		log:     log,
	}, nil
}

func (hfm *HeapFileManager) relationPath(relationName string) string {
	return filepath.Join(hfm.baseDir, relationName+relationFileSuffix)
}

// CreateRelation creates an empty heap file for relationName.
func (hfm *HeapFileManager) CreateRelation(relationName string) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if _, exists := hfm.files[relationName]; exists {
		return nil, errors.Wrapf(types.ErrFileExists, "relation %s is already open", relationName)
	}

	hf, err := openHeapFile(relationName, hfm.relationPath(relationName), true)
	if err != nil {
		return nil, err
	}

	hfm.files[relationName] = hf
	hfm.log.Info("created relation", zap.String("relation", relationName))
	return hf, nil
}

// OpenRelation opens an existing relation, caching the handle.
func (hfm *HeapFileManager) OpenRelation(relationName string) (*HeapFile, error) {
	hfm.mu.RLock()
	hf, exists := hfm.files[relationName]
	hfm.mu.RUnlock()
	if exists {
		return hf, nil
	}

	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	// Another caller may have opened it while we waited for the lock.
	if hf, exists := hfm.files[relationName]; exists {
		return hf, nil
	}

	hf, err := openHeapFile(relationName, hfm.relationPath(relationName), false)
	if err != nil {
		return nil, err
	}

	hfm.files[relationName] = hf
	return hf, nil
}

// InsertRecord appends a record to relationName.
func (hfm *HeapFileManager) InsertRecord(relationName string, record []byte) (types.RecordId, error) {
	hf, err := hfm.OpenRelation(relationName)
	if err != nil {
		return types.RecordId{}, err
	}
	return hf.InsertRecord(record)
}

// GetRecord returns the record at rid, served from the ristretto cache
// when possible.
func (hfm *HeapFileManager) GetRecord(relationName string, rid types.RecordId) ([]byte, error) {
	key := recordCacheKey(relationName, rid)
	if record, ok := hfm.cache.Get(key); ok {
		return record, nil
	}

	hf, err := hfm.OpenRelation(relationName)
	if err != nil {
		return nil, err
	}
	record, err := hf.GetRecord(rid)
	if err != nil {
		return nil, err
	}

	hfm.cache.Set(key, record, int64(len(record))+recordCacheCost)
	return record, nil
}

// NewScanner returns a FileScanner streaming every record of relationName
// in file order.
func (hfm *HeapFileManager) NewScanner(relationName string) (*FileScanner, error) {
	hf, err := hfm.OpenRelation(relationName)
	if err != nil {
		return nil, err
	}
	return NewFileScanner(hf), nil
}

// CloseAll closes every open relation file and drops the record cache.
func (hfm *HeapFileManager) CloseAll() error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	var lastErr error
	for name, hf := range hfm.files {
		if err := hf.Close(); err != nil {
			lastErr = errors.Wrapf(err, "failed to close relation %s", name)
		}
		delete(hfm.files, name)
	}

	hfm.cache.Close()
	return lastErr
}

func recordCacheKey(relationName string, rid types.RecordId) string {
	return fmt.Sprintf("%s:%d:%d", relationName, rid.PageNumber, rid.SlotNumber)
}
