package diskmanager

import (
	"os"

	"github.com/pkg/errors"

	"PrefixDB/types"
)

/*
This is the main file for the disk manager
It owns:
File handles (os.File)
Reading/writing raw page bytes at page-aligned offsets (ReadAt, WriteAt)
Page allocation (extending the file with a zeroed page)

Pages are numbered from 1 so that types.InvalidPageNumber (0) never names
a real page. Page N lives at byte offset (N-1)*PageSize.

The buffer pool sits on top: on a cache miss it calls ReadPage here, on
eviction or flush it calls WritePage.
*/

// Open opens an existing page file. A missing file is types.ErrFileNotFound
// — callers use this to distinguish "load index" from "build index".
func Open(path string) (*PageFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(types.ErrFileNotFound, "no page file at %s", path)
		}
		return nil, errors.Wrapf(err, "failed to open page file %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	return &PageFile{
		path:     path,
		file:     file,
		numPages: types.PageId(stat.Size() / types.PageSize),
	}, nil
}

// Create creates a new, empty page file. An existing file is
// types.ErrFileExists.
func Create(path string) (*PageFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrapf(types.ErrFileExists, "page file %s", path)
		}
		return nil, errors.Wrapf(err, "failed to create page file %s", path)
	}

	return &PageFile{path: path, file: file}, nil
}

// Remove deletes a page file from disk. The file must not be open.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(types.ErrFileNotFound, "no page file at %s", path)
		}
		return errors.Wrapf(err, "failed to remove page file %s", path)
	}
	return nil
}

// ReadPage reads page pid into buf. buf must be exactly one page.
func (f *PageFile) ReadPage(pid types.PageId, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(buf) != types.PageSize {
		return errors.Errorf("ReadPage: buffer must be %d bytes, got %d", types.PageSize, len(buf))
	}
	if pid == types.InvalidPageNumber || pid > f.numPages {
		return errors.Wrapf(types.ErrPageNotFound, "page %d of %s (file has %d pages)", pid, f.path, f.numPages)
	}

	offset := int64(pid-1) * types.PageSize
	if _, err := f.file.ReadAt(buf, offset); err != nil {
		return errors.Wrapf(err, "failed to read page %d of %s", pid, f.path)
	}
	return nil
}

// WritePage writes buf to page pid. The page must already be allocated.
func (f *PageFile) WritePage(pid types.PageId, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(buf) != types.PageSize {
		return errors.Errorf("WritePage: buffer must be %d bytes, got %d", types.PageSize, len(buf))
	}
	if pid == types.InvalidPageNumber || pid > f.numPages {
		return errors.Wrapf(types.ErrPageNotFound, "page %d of %s (file has %d pages)", pid, f.path, f.numPages)
	}

	offset := int64(pid-1) * types.PageSize
	if _, err := f.file.WriteAt(buf, offset); err != nil {
		return errors.Wrapf(err, "failed to write page %d of %s", pid, f.path)
	}
	return nil
}

// AllocatePage extends the file with one zeroed page and returns its
// page number.
func (f *PageFile) AllocatePage() (types.PageId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pid := f.numPages + 1
	zero := make([]byte, types.PageSize)
	offset := int64(pid-1) * types.PageSize
	if _, err := f.file.WriteAt(zero, offset); err != nil {
		return types.InvalidPageNumber, errors.Wrapf(err, "failed to extend %s to page %d", f.path, pid)
	}

	f.numPages = pid
	return pid, nil
}

// Sync flushes the underlying file to stable storage.
func (f *PageFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.file.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", f.path)
	}
	return nil
}

// Close closes the file handle. The buffer pool must be flushed first.
func (f *PageFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", f.path)
	}
	return nil
}
