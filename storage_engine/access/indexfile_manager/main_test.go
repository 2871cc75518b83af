package indexfile

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	heapfile "PrefixDB/storage_engine/access/heapfile_manager"
	"PrefixDB/storage_engine/access/indexfile_manager/btree"
	"PrefixDB/storage_engine/bufferpool"
	"PrefixDB/types"
)

// End-to-end: a real relation in a heap file, bulk-built index, range
// scans resolving rids back to records.

func seedRelation(t *testing.T, hfm *heapfile.HeapFileManager, relation string, n int) map[types.RecordId]int {
	t.Helper()
	_, err := hfm.CreateRelation(relation)
	require.NoError(t, err)

	byRid := make(map[types.RecordId]int, n)
	for i := 0; i < n; i++ {
		rid, err := hfm.InsertRecord(relation, []byte(fmt.Sprintf("%05d string record", i)))
		require.NoError(t, err)
		byRid[rid] = i
	}
	return byRid
}

func scanCount(t *testing.T, ix *btree.BTreeIndex, lo int, lowOp types.Operator, hi int, highOp types.Operator) ([]types.RecordId, error) {
	t.Helper()
	low := types.MakeKey([]byte(fmt.Sprintf("%05d string record", lo)))
	high := types.MakeKey([]byte(fmt.Sprintf("%05d string record", hi)))
	if err := ix.StartScan(low, lowOp, high, highOp); err != nil {
		return nil, err
	}
	var rids []types.RecordId
	var rid types.RecordId
	for {
		if err := ix.ScanNext(&rid); err != nil {
			if errors.Is(err, types.ErrIndexScanCompleted) {
				return rids, nil
			}
			return rids, err
		}
		rids = append(rids, rid)
	}
}

func TestBuildAndScanOverHeapRelation(t *testing.T) {
	const n = 5000
	baseDir := t.TempDir()

	hfm, err := heapfile.NewHeapFileManager(filepath.Join(baseDir, "relations"), zap.NewNop())
	require.NoError(t, err)
	defer hfm.CloseAll()

	byRid := seedRelation(t, hfm, "relA", n)

	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ifm, err := NewIndexFileManager(filepath.Join(baseDir, "indexes"), pool, hfm, 0, 0, zap.NewNop())
	require.NoError(t, err)
	defer ifm.CloseAll()

	ix, err := ifm.GetOrOpenIndex("relA", 0)
	require.NoError(t, err)
	assert.Equal(t, "relA.0", ix.IndexName())

	// The cached handle comes back for repeated requests.
	again, err := ifm.GetOrOpenIndex("relA", 0)
	require.NoError(t, err)
	assert.Same(t, ix, again)

	cases := []struct {
		lo, hi         int
		lowOp, highOp  types.Operator
		want           int
	}{
		{5, 15, types.GT, types.LT, 9},
		{8, 16, types.GTE, types.LT, 8},
		{20, 35, types.GTE, types.LTE, 16},
		{10, 10, types.GTE, types.LTE, 1},
		{0, n, types.GTE, types.LT, n},
	}
	for _, tc := range cases {
		rids, err := scanCount(t, ix, tc.lo, tc.lowOp, tc.hi, tc.highOp)
		require.NoError(t, err)
		assert.Len(t, rids, tc.want, "scan (%d %s, %d %s)", tc.lo, tc.lowOp, tc.hi, tc.highOp)
		assert.Zero(t, pool.Stats().PinnedPages)
	}

	// Every rid the index returns resolves to the record whose prefix
	// was scanned, in ascending key order.
	rids, err := scanCount(t, ix, 100, types.GTE, 110, types.LT)
	require.NoError(t, err)
	require.Len(t, rids, 10)
	for i, rid := range rids {
		record, err := hfm.GetRecord("relA", rid)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%05d string record", 100+i), string(record))
		assert.Equal(t, 100+i, byRid[rid])
	}
}

func TestReopenThroughManager(t *testing.T) {
	const n = 300
	baseDir := t.TempDir()
	relationsDir := filepath.Join(baseDir, "relations")
	indexesDir := filepath.Join(baseDir, "indexes")

	hfm, err := heapfile.NewHeapFileManager(relationsDir, zap.NewNop())
	require.NoError(t, err)
	seedRelation(t, hfm, "relA", n)

	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ifm, err := NewIndexFileManager(indexesDir, pool, hfm, 0, 0, zap.NewNop())
	require.NoError(t, err)

	ix, err := ifm.GetOrOpenIndex("relA", 0)
	require.NoError(t, err)
	rids, err := scanCount(t, ix, 0, types.GTE, n, types.LT)
	require.NoError(t, err)
	require.Len(t, rids, n)

	require.NoError(t, ifm.CloseAll())
	require.NoError(t, hfm.CloseAll())

	// Fresh managers over the same directories: the index file is
	// adopted, not rebuilt, and yields identical results.
	hfm, err = heapfile.NewHeapFileManager(relationsDir, zap.NewNop())
	require.NoError(t, err)
	defer hfm.CloseAll()

	pool = bufferpool.NewBufferPool(256, zap.NewNop())
	ifm, err = NewIndexFileManager(indexesDir, pool, hfm, 0, 0, zap.NewNop())
	require.NoError(t, err)
	defer ifm.CloseAll()

	ix, err = ifm.GetOrOpenIndex("relA", 0)
	require.NoError(t, err)
	reopened, err := scanCount(t, ix, 0, types.GTE, n, types.LT)
	require.NoError(t, err)
	assert.Equal(t, rids, reopened)
}
