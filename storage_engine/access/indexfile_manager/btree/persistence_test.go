package btree

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PrefixDB/storage_engine/bufferpool"
	"PrefixDB/types"
)

func TestCloseAndReopen(t *testing.T) {
	const n = 200
	dir := t.TempDir()

	pool := bufferpool.NewBufferPool(512, zap.NewNop())
	ix := openTestIndex(t, pool, dir, 4, &memScanner{order: shuffled(n, 3)})
	require.NoError(t, ix.Close())

	// Reopen with matching parameters: identical scan results. The
	// scanner must not be consumed — the existing file is adopted.
	pool = bufferpool.NewBufferPool(512, zap.NewNop())
	extra := &memScanner{order: ascending(2 * n)}
	ix = openTestIndex(t, pool, dir, 4, extra)
	defer ix.Close()
	assert.Zero(t, extra.pos, "reopen must not rebuild from the relation")

	count, rids, err := stringScan(ix, 0, types.GTE, 2*n, types.LT)
	require.NoError(t, err)
	require.Equal(t, n, count)
	for i, rid := range rids {
		assert.Equal(t, ridOf(i), rid)
	}

	// The reopened tree keeps accepting inserts with the same shape
	// constants.
	require.NoError(t, ix.InsertEntry(keyOf(n), ridOf(n)))
	count, _, err = stringScan(ix, 0, types.GTE, 2*n, types.LT)
	require.NoError(t, err)
	assert.Equal(t, n+1, count)
}

func TestReopenRelationNameMismatch(t *testing.T) {
	dir := t.TempDir()
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, dir, 4, &memScanner{order: ascending(50)})
	require.NoError(t, ix.Close())

	// Masquerade the file as an index over another relation.
	require.NoError(t, os.Rename(
		filepath.Join(dir, IndexFileName("relA", 0)),
		filepath.Join(dir, IndexFileName("relB", 0))))

	_, err := OpenIndex(Config{
		Dir:             dir,
		RelationName:    "relB",
		AttrByteOffset:  0,
		LeafCapacity:    4,
		NonLeafCapacity: 4,
		Log:             zap.NewNop(),
	}, bufferpool.NewBufferPool(256, zap.NewNop()), nil)
	require.ErrorIs(t, err, types.ErrBadIndexInfo)
}

func TestReopenAttrOffsetMismatch(t *testing.T) {
	dir := t.TempDir()
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, dir, 4, &memScanner{order: ascending(50)})
	require.NoError(t, ix.Close())

	// Same relation, different offset in the header than the name
	// promises.
	require.NoError(t, os.Rename(
		filepath.Join(dir, IndexFileName("relA", 0)),
		filepath.Join(dir, IndexFileName("relA", 8))))

	_, err := OpenIndex(Config{
		Dir:             dir,
		RelationName:    "relA",
		AttrByteOffset:  8,
		LeafCapacity:    4,
		NonLeafCapacity: 4,
		Log:             zap.NewNop(),
	}, bufferpool.NewBufferPool(256, zap.NewNop()), nil)
	require.ErrorIs(t, err, types.ErrBadIndexInfo)
}

func TestReopenCapacityMismatch(t *testing.T) {
	dir := t.TempDir()
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, dir, 4, &memScanner{order: ascending(50)})
	require.NoError(t, ix.Close())

	// A tree built with fanout 4 is unreadable under fanout 8.
	_, err := OpenIndex(Config{
		Dir:             dir,
		RelationName:    "relA",
		AttrByteOffset:  0,
		LeafCapacity:    8,
		NonLeafCapacity: 8,
		Log:             zap.NewNop(),
	}, bufferpool.NewBufferPool(256, zap.NewNop()), nil)
	require.ErrorIs(t, err, types.ErrBadIndexInfo)
}

func TestReopenVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, dir, 4, &memScanner{order: ascending(50)})
	require.NoError(t, ix.Close())

	// Stamp a future layout version into the meta page.
	path := filepath.Join(dir, IndexFileName("relA", 0))
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 99)
	_, err = f.WriteAt(buf[:], 28)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = OpenIndex(Config{
		Dir:             dir,
		RelationName:    "relA",
		AttrByteOffset:  0,
		LeafCapacity:    4,
		NonLeafCapacity: 4,
		Log:             zap.NewNop(),
	}, bufferpool.NewBufferPool(256, zap.NewNop()), nil)
	require.ErrorIs(t, err, types.ErrBadIndexInfo)
}
