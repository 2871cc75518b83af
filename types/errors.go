package types

import "errors"

// Index errors.
var (
	// ErrBadIndexInfo means an existing index file's header disagrees with
	// the caller's relation name, attribute offset, or on-disk shape.
	ErrBadIndexInfo = errors.New("index header does not match the requested parameters")

	// ErrBadOpcodes means a scan was started with an operator pair outside
	// lowOp ∈ {GT, GTE}, highOp ∈ {LT, LTE}.
	ErrBadOpcodes = errors.New("bad scan operator pair")

	// ErrBadScanRange means lowVal > highVal.
	ErrBadScanRange = errors.New("scan range low value exceeds high value")

	// ErrNoSuchKeyFound means no key in the tree satisfies the scan range.
	ErrNoSuchKeyFound = errors.New("no key in the requested range")

	// ErrScanNotInitialized means scanNext/endScan was called with no
	// active scan.
	ErrScanNotInitialized = errors.New("scan not initialized")

	// ErrIndexScanCompleted means scanNext advanced past the last matching
	// key; the scan has been ended.
	ErrIndexScanCompleted = errors.New("index scan completed")
)

// File and buffer errors.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrFileExists        = errors.New("file already exists")
	ErrEndOfFile         = errors.New("end of file")
	ErrPageNotFound      = errors.New("page not found in file")
	ErrPagePinned        = errors.New("page is pinned")
	ErrPageNotPinned     = errors.New("page is not pinned")
	ErrInsufficientSpace = errors.New("buffer pool has no evictable frame")
	ErrInvalidSlot       = errors.New("invalid slot")
)
