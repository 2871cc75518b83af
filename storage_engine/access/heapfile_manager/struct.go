package heapfile

import (
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"PrefixDB/types"
)

// ############################################# ---- PAGE ----- #############################################

const (
	PageSize       = types.PageSize
	PageHeaderSize = 32 // 32 bytes
	SlotSize       = 4  // 4 bytes per slot entry (offset: 2B, length: 2B)
)

// PageHeader is the header for a single 4KB heap page.
type PageHeader struct {
	PageNo      uint32 // page number inside the relation file, 1-based
	FreePtr     uint16 // offset of the next free byte in the data area
	NumRecords  uint16 // number of live records in the page
	IsPageFull  uint16 // set once the page cannot take another record
	SlotCount   uint16 // number of slots in the slot directory
	FreeBytes   uint16 // bytes left between FreePtr and the slot directory
}

// Slot is an entry in the slot directory at the bottom of the page.
// Stored at the end of the page, grows backward.
type Slot struct {
	Offset uint16 // offset from start of page to record bytes
	Length uint16 // length of the record
}

// ############################################# HEAP FILE #############################################

// HeapFile is one relation's storage: a file of slotted pages. Records are
// append-only; a RecordId (page, slot) stays valid for the file's lifetime.
type HeapFile struct {
	relationName string
	path         string
	file         *os.File
	numPages     uint32
	mu           sync.Mutex
}

// RelationName returns the relation this file stores.
func (hf *HeapFile) RelationName() string {
	return hf.relationName
}

// ############################################# HEAP FILE MANAGER #############################################

// HeapFileManager owns the open relation files under a base directory and
// fronts record reads with a ristretto cache. Records are immutable once
// written, so cached entries never need invalidation.
type HeapFileManager struct {
	baseDir string
	files   map[string]*HeapFile // relationName -> open heap file
	cache   *ristretto.Cache[string, []byte]
	log     *zap.Logger
	mu      sync.RWMutex
}
