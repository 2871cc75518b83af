package bufferpool

import (
	"sync"

	"go.uber.org/zap"

	diskmanager "PrefixDB/storage_engine/disk_manager"
	"PrefixDB/types"
)

// ############################################# BUFFER POOL #############################################

// frameKey identifies a cached page: which file, which page number.
type frameKey struct {
	file   *diskmanager.PageFile
	pageNo types.PageId
}

// Frame is one page-sized slot of the pool. Data is handed out to callers
// while the frame is pinned; once the pin count drops to zero the frame is
// an eviction candidate and the slice must no longer be touched.
type Frame struct {
	Data     []byte
	key      frameKey
	pinCount int
	dirty    bool
	valid    bool
}

// BufferPool caches pages of any number of PageFiles in a fixed set of
// frames with LRU replacement. Every page handed out is pinned and must be
// returned with exactly one UnpinPage.
type BufferPool struct {
	frames      []*Frame
	table       map[frameKey]int // key -> frame index
	accessOrder []int            // frame indexes, most recently used at end
	log         *zap.Logger
	mu          sync.Mutex
}

// BufferPoolStats reports pool occupancy, used by callers to assert the
// pin discipline (net pins return to zero after every operation).
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}
