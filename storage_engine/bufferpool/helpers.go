package bufferpool

import (
	diskmanager "PrefixDB/storage_engine/disk_manager"
	"PrefixDB/types"
)

/*
This file holds helper functions for the bufferpool
*/

// Stats returns current pool occupancy. Tests use PinnedPages to verify
// that every operation leaves the net pin count at zero.
func (bp *BufferPool) Stats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{Capacity: len(bp.frames)}
	for _, frame := range bp.frames {
		if !frame.valid {
			continue
		}
		stats.TotalPages++
		if frame.pinCount > 0 {
			stats.PinnedPages++
		}
		if frame.dirty {
			stats.DirtyPages++
		}
	}
	return stats
}

// PinCount reports the pin count of a cached page, or 0 when the page is
// not resident.
func (bp *BufferPool) PinCount(file *diskmanager.PageFile, pid types.PageId) int {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.table[frameKey{file: file, pageNo: pid}]; ok {
		return bp.frames[idx].pinCount
	}
	return 0
}
