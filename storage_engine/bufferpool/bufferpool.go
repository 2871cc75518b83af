package bufferpool

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	diskmanager "PrefixDB/storage_engine/disk_manager"
	"PrefixDB/types"
)

/*
This file is the main file of the bufferpool
The buffer pool works on LRU based caching
AllocatePage/ReadPage hand back a pinned frame; the caller mutates the
frame bytes in place and returns the pin with UnpinPage(dirty). Dirty
frames are written back on eviction and on FlushFile.

A page may be pinned more than once; it becomes evictable only when the
pin count returns to zero. If every frame is pinned a new request fails
with types.ErrInsufficientSpace rather than blocking.
*/

// NewBufferPool creates a pool with numFrames page frames.
func NewBufferPool(numFrames int, log *zap.Logger) *BufferPool {
	if log == nil {
		log = zap.NewNop()
	}
	frames := make([]*Frame, numFrames)
	for i := range frames {
		frames[i] = &Frame{Data: make([]byte, types.PageSize)}
	}
	return &BufferPool{
		frames:      frames,
		table:       make(map[frameKey]int, numFrames),
		accessOrder: make([]int, 0, numFrames),
		log:         log,
	}
}

// AllocatePage extends file with a fresh zeroed page and returns it pinned.
func (bp *BufferPool) AllocatePage(file *diskmanager.PageFile) (types.PageId, []byte, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pid, err := file.AllocatePage()
	if err != nil {
		return types.InvalidPageNumber, nil, err
	}

	idx, err := bp.grabFrame()
	if err != nil {
		return types.InvalidPageNumber, nil, err
	}

	frame := bp.frames[idx]
	for i := range frame.Data {
		frame.Data[i] = 0
	}
	frame.key = frameKey{file: file, pageNo: pid}
	frame.pinCount = 1
	frame.dirty = false
	frame.valid = true
	bp.table[frame.key] = idx
	bp.touch(idx)

	return pid, frame.Data, nil
}

// ReadPage returns page pid of file, pinned. A cached page gains one more
// pin; otherwise the page is read from disk into a free or evicted frame.
func (bp *BufferPool) ReadPage(file *diskmanager.PageFile, pid types.PageId) ([]byte, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	key := frameKey{file: file, pageNo: pid}
	if idx, ok := bp.table[key]; ok {
		frame := bp.frames[idx]
		frame.pinCount++
		bp.touch(idx)
		return frame.Data, nil
	}

	idx, err := bp.grabFrame()
	if err != nil {
		return nil, err
	}
	frame := bp.frames[idx]

	if err := file.ReadPage(pid, frame.Data); err != nil {
		frame.valid = false
		return nil, err
	}

	frame.key = key
	frame.pinCount = 1
	frame.dirty = false
	frame.valid = true
	bp.table[key] = idx
	bp.touch(idx)

	return frame.Data, nil
}

// UnpinPage releases one pin on page pid of file, marking the frame dirty
// if the caller mutated it. Unpinning an unpinned page is an error.
func (bp *BufferPool) UnpinPage(file *diskmanager.PageFile, pid types.PageId, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.table[frameKey{file: file, pageNo: pid}]
	if !ok {
		return errors.Wrapf(types.ErrPageNotFound, "unpin: page %d of %s not in pool", pid, file.Path())
	}

	frame := bp.frames[idx]
	if frame.pinCount == 0 {
		return errors.Wrapf(types.ErrPageNotPinned, "unpin: page %d of %s", pid, file.Path())
	}

	frame.pinCount--
	if dirty {
		frame.dirty = true
	}
	return nil
}

// FlushFile writes every dirty page of file back to disk and syncs. Fails
// with types.ErrPagePinned if any page of the file is still pinned — that
// is a pin leak in the caller.
func (bp *BufferPool) FlushFile(file *diskmanager.PageFile) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, frame := range bp.frames {
		if !frame.valid || frame.key.file != file {
			continue
		}
		if frame.pinCount > 0 {
			return errors.Wrapf(types.ErrPagePinned, "flush: page %d of %s has %d pins",
				frame.key.pageNo, file.Path(), frame.pinCount)
		}
	}

	flushed := 0
	for _, frame := range bp.frames {
		if !frame.valid || frame.key.file != file || !frame.dirty {
			continue
		}
		if err := file.WritePage(frame.key.pageNo, frame.Data); err != nil {
			return err
		}
		frame.dirty = false
		flushed++
	}

	if err := file.Sync(); err != nil {
		return err
	}

	bp.log.Debug("flushed file", zap.String("file", file.Path()), zap.Int("pages", flushed))
	return nil
}

// grabFrame returns the index of a frame ready to receive a page, evicting
// the least recently used unpinned frame if the pool is full.
// Assumes lock is held.
func (bp *BufferPool) grabFrame() (int, error) {
	for i, frame := range bp.frames {
		if !frame.valid {
			return i, nil
		}
	}

	// All frames occupied: evict LRU unpinned.
	for pos, idx := range bp.accessOrder {
		frame := bp.frames[idx]
		if frame.pinCount > 0 {
			continue
		}

		if frame.dirty {
			if err := frame.key.file.WritePage(frame.key.pageNo, frame.Data); err != nil {
				return 0, errors.Wrapf(err, "evict: failed to write back page %d", frame.key.pageNo)
			}
		}

		bp.log.Debug("evicted page",
			zap.String("file", frame.key.file.Path()),
			zap.Uint32("page", uint32(frame.key.pageNo)),
			zap.Bool("dirty", frame.dirty))

		delete(bp.table, frame.key)
		frame.valid = false
		frame.dirty = false
		bp.accessOrder = append(bp.accessOrder[:pos], bp.accessOrder[pos+1:]...)
		return idx, nil
	}

	return 0, errors.Wrap(types.ErrInsufficientSpace, "all frames pinned")
}

// touch moves frame idx to the most-recently-used end.
// Assumes lock is held.
func (bp *BufferPool) touch(idx int) {
	for i, v := range bp.accessOrder {
		if v == idx {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, idx)
}
