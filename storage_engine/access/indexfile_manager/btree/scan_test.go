package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PrefixDB/storage_engine/bufferpool"
	"PrefixDB/types"
)

// The reference scenario table: relationSize records of
// "NNNNN string record", scanned with bounds built the same way.
const relationSize = 5000

var scenarioTable = []struct {
	lo     int
	lowOp  types.Operator
	hi     int
	highOp types.Operator
	want   int
}{
	{5, types.GT, 15, types.LT, 9},
	{8, types.GTE, 16, types.LT, 8},
	{25, types.GT, 40, types.LT, 14},
	{20, types.GTE, 35, types.LTE, 16},
	{-3, types.GT, 3, types.LT, 3},
	{996, types.GT, 1001, types.LT, 4},
	{100, types.GT, 150, types.LT, 49},
	{300, types.GT, 400, types.LT, 99},
	{3000, types.GTE, 4000, types.LT, 1000},
	{10, types.GTE, 10, types.LTE, 1},
	{0, types.GTE, relationSize, types.LT, relationSize},
}

func runScenarioTable(t *testing.T, ix *BTreeIndex, pool *bufferpool.BufferPool) {
	t.Helper()
	for _, tc := range scenarioTable {
		count, _, err := stringScan(ix, tc.lo, tc.lowOp, tc.hi, tc.highOp)
		require.NoError(t, err, "scan (%d %s, %d %s)", tc.lo, tc.lowOp, tc.hi, tc.highOp)
		assert.Equal(t, tc.want, count, "scan (%d %s, %d %s)", tc.lo, tc.lowOp, tc.hi, tc.highOp)
		assert.Zero(t, pool.Stats().PinnedPages, "pin leak after scan (%d %s, %d %s)",
			tc.lo, tc.lowOp, tc.hi, tc.highOp)
	}

	// An empty range between two adjacent keys finds nothing.
	_, _, err := stringScan(ix, 0, types.GT, 1, types.LT)
	require.ErrorIs(t, err, types.ErrNoSuchKeyFound)
	assert.Zero(t, pool.Stats().PinnedPages)
}

func TestScanScenarios(t *testing.T) {
	orders := map[string][]int{
		"ascending":  ascending(relationSize),
		"descending": descending(relationSize),
		"random":     shuffled(relationSize, 1234),
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			pool := bufferpool.NewBufferPool(256, zap.NewNop())
			ix := openTestIndex(t, pool, t.TempDir(), 0, &memScanner{order: order})
			defer ix.Close()

			runScenarioTable(t, ix, pool)
		})
	}
}

// The same cardinalities must hold on a deep tree with tiny fanout.
func TestScanScenariosSmallFanout(t *testing.T) {
	pool := bufferpool.NewBufferPool(2048, zap.NewNop())
	ix := openTestIndex(t, pool, t.TempDir(), 4, &memScanner{order: shuffled(relationSize, 5678)})
	defer ix.Close()

	runScenarioTable(t, ix, pool)
}

func TestBadScanRange(t *testing.T) {
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, t.TempDir(), 0, &memScanner{order: ascending(100)})
	defer ix.Close()

	err := ix.StartScan(keyOf(10), types.GT, keyOf(5), types.LT)
	require.ErrorIs(t, err, types.ErrBadScanRange)

	// No scan state was created.
	var rid types.RecordId
	err = ix.ScanNext(&rid)
	require.ErrorIs(t, err, types.ErrScanNotInitialized)
	assert.Zero(t, pool.Stats().PinnedPages)
}

func TestBadOpcodes(t *testing.T) {
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, t.TempDir(), 0, &memScanner{order: ascending(100)})
	defer ix.Close()

	err := ix.StartScan(keyOf(5), types.LT, keyOf(15), types.LT)
	require.ErrorIs(t, err, types.ErrBadOpcodes)

	err = ix.StartScan(keyOf(5), types.GT, keyOf(15), types.GTE)
	require.ErrorIs(t, err, types.ErrBadOpcodes)

	var rid types.RecordId
	err = ix.ScanNext(&rid)
	require.ErrorIs(t, err, types.ErrScanNotInitialized)
	assert.Zero(t, pool.Stats().PinnedPages)
}

func TestScanProtocol(t *testing.T) {
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, t.TempDir(), 0, &memScanner{order: ascending(100)})
	defer ix.Close()

	// scanNext / endScan without startScan.
	var rid types.RecordId
	require.ErrorIs(t, ix.ScanNext(&rid), types.ErrScanNotInitialized)
	require.ErrorIs(t, ix.EndScan(), types.ErrScanNotInitialized)

	// A single-hit scan: one result, then IndexScanCompleted, and the
	// completed scan tears itself down.
	require.NoError(t, ix.StartScan(keyOf(10), types.GTE, keyOf(10), types.LTE))
	require.NoError(t, ix.ScanNext(&rid))
	assert.Equal(t, ridOf(10), rid)
	require.ErrorIs(t, ix.ScanNext(&rid), types.ErrIndexScanCompleted)
	require.ErrorIs(t, ix.ScanNext(&rid), types.ErrScanNotInitialized)
	require.ErrorIs(t, ix.EndScan(), types.ErrScanNotInitialized)
	assert.Zero(t, pool.Stats().PinnedPages)
}

func TestStartScanEndsPriorScan(t *testing.T) {
	pool := bufferpool.NewBufferPool(256, zap.NewNop())
	ix := openTestIndex(t, pool, t.TempDir(), 0, &memScanner{order: ascending(100)})
	defer ix.Close()

	require.NoError(t, ix.StartScan(keyOf(0), types.GTE, keyOf(50), types.LT))
	var rid types.RecordId
	require.NoError(t, ix.ScanNext(&rid))
	require.NoError(t, ix.ScanNext(&rid))

	// Starting again transparently ends the first scan.
	require.NoError(t, ix.StartScan(keyOf(40), types.GTE, keyOf(45), types.LT))
	count := 0
	for ix.ScanNext(&rid) == nil {
		count++
	}
	assert.Equal(t, 5, count)
	assert.Zero(t, pool.Stats().PinnedPages)
}

// A scan ending exactly at the rightmost leaf exercises the exhausted
// cursor state (rightSib == invalid).
func TestScanRunsOffRightEdge(t *testing.T) {
	pool := bufferpool.NewBufferPool(512, zap.NewNop())
	ix := openTestIndex(t, pool, t.TempDir(), 4, &memScanner{order: ascending(100)})
	defer ix.Close()

	count, _, err := stringScan(ix, 90, types.GTE, 5000, types.LT)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Zero(t, pool.Stats().PinnedPages)
}
