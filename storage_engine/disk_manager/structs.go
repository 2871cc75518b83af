package diskmanager

import (
	"os"
	"sync"

	"PrefixDB/types"
)

// ############################################# PAGE FILE #############################################

// PageFile is an open file holding fixed-size pages, numbered from 1.
// It owns the os.File handle and the page count; all reads and writes go
// through ReadPage/WritePage at page-aligned offsets.
type PageFile struct {
	path     string
	file     *os.File
	numPages types.PageId // highest allocated page number
	mu       sync.Mutex
}

// Path returns the pathname the file was opened with.
func (f *PageFile) Path() string {
	return f.path
}

// NumPages returns the number of allocated pages.
func (f *PageFile) NumPages() types.PageId {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}
