// Structure of the B+Tree index
/*
Tree
 ├── NonLeaf node (router keys + child page numbers, level >= 1)
 │      └── ... child NonLeaf nodes of level-1 ...
 │             └── Leaf nodes (keys + record ids + right sibling pointer)

- keys: sorted ascending, fixed 10-byte string prefixes
- non-leaf nodes: occupancy n means n keys and n+1 children
- leaf nodes: parallel key/rid arrays, occupancy = first invalid rid
- leaves linked left-to-right via rightSibPageNo for range scans
- all leaves at the same depth; level 1 nodes sit directly above leaves

Each node is one raw page owned by the buffer pool. The overlays in
node.go interpret the pinned frame bytes in place; mutations reach disk
through UnpinPage(dirty) and FlushFile.
*/
package btree

import (
	"go.uber.org/zap"

	"PrefixDB/storage_engine/bufferpool"
	diskmanager "PrefixDB/storage_engine/disk_manager"
	"PrefixDB/types"
)

const (
	// headerPageNum is the meta page; it is always the first page of an
	// index file.
	headerPageNum types.PageId = 1

	// metaVersion is stamped into the meta page. An index built with a
	// different layout version is rejected on open.
	metaVersion uint32 = 1

	// relationNameSize is the NUL-padded width of the relation name in
	// the meta page.
	relationNameSize = 20

	// minCapacity is the smallest node fanout the split routines support.
	minCapacity = 4
)

// DefaultLeafCapacity is the number of (key, rid) entries a leaf holds
// when capacities are derived from the page size: the page minus the
// right-sibling pointer, divided by one entry.
func DefaultLeafCapacity() int {
	return (types.PageSize - 4) / (types.KeySize + types.RecordIdSize)
}

// DefaultNonLeafCapacity is the number of router keys a non-leaf holds:
// the page minus the level field and the extra child pointer, divided by
// one (key, child) pair.
func DefaultNonLeafCapacity() int {
	return (types.PageSize - 4 - 4) / (types.KeySize + 4)
}

// Config describes the index to open or build.
type Config struct {
	// Dir is the directory holding index files.
	Dir string

	// RelationName is the indexed relation, at most 20 bytes.
	RelationName string

	// AttrByteOffset is where the 10-byte key prefix starts inside each
	// record of the relation.
	AttrByteOffset int

	// LeafCapacity / NonLeafCapacity override the page-derived node
	// fanouts; zero means derive from the page size. Small values (4)
	// force frequent splits for stress testing. The values are persisted
	// in the meta page and must match on reopen.
	LeafCapacity    int
	NonLeafCapacity int

	Log *zap.Logger
}

// RecordScanner streams (RecordId, record bytes) pairs across a relation.
// End of stream is types.ErrEndOfFile. The heap file manager's FileScanner
// satisfies this; tests substitute in-memory sources.
type RecordScanner interface {
	ScanNext(rid *types.RecordId) error
	GetRecord() ([]byte, error)
}

// ridKeyPair carries a (key, rid) pair down the insert descent.
type ridKeyPair struct {
	rid types.RecordId
	key types.Key
}

// pageKeyPair carries a promoted (key, new right page) pair up out of a
// split.
type pageKeyPair struct {
	pageNo types.PageId
	key    types.Key
}

// scanState is the cursor's lifecycle: inactive (no scan), positioned
// (holding one pinned leaf), exhausted (active but holding no leaf:
// past the last leaf, or not yet positioned by StartScan).
type scanState int

const (
	scanInactive scanState = iota
	scanPositioned
	scanExhausted
)

// scanCursor is the state of the single active range scan.
type scanCursor struct {
	state          scanState
	nextEntry      int
	currentPageNum types.PageId
	currentLeaf    leafNode
	lowVal         types.Key
	highVal        types.Key
	lowOp          types.Operator
	highOp         types.Operator
}

// BTreeIndex is a disk-resident B+Tree over a fixed-width string prefix
// of one relation attribute. Single-threaded: one insert or scan at a
// time, at most one active scan.
type BTreeIndex struct {
	file   *diskmanager.PageFile
	bufMgr *bufferpool.BufferPool
	log    *zap.Logger

	indexName      string
	relationName   string
	attrByteOffset int
	leafCap        int
	nonLeafCap     int

	rootPageNum types.PageId
	scan        scanCursor
}

// IndexName returns the derived index file name, "{relation}.{offset}".
func (ix *BTreeIndex) IndexName() string {
	return ix.indexName
}
