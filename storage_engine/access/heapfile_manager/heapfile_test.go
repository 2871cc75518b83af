package heapfile

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PrefixDB/types"
)

func newTestManager(t *testing.T) *HeapFileManager {
	t.Helper()
	hfm, err := NewHeapFileManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { hfm.CloseAll() })
	return hfm
}

func TestInsertAndGetRecords(t *testing.T) {
	hfm := newTestManager(t)

	_, err := hfm.CreateRelation("students")
	require.NoError(t, err)

	records := [][]byte{
		[]byte("Alice|20|A"),
		[]byte("Bob|21|B"),
		[]byte("Charlie|22|A"),
		[]byte("Diana|19|C"),
	}

	rids := make([]types.RecordId, 0, len(records))
	for _, record := range records {
		rid, err := hfm.InsertRecord("students", record)
		require.NoError(t, err)
		require.True(t, rid.Valid())
		rids = append(rids, rid)
	}

	for i, rid := range rids {
		got, err := hfm.GetRecord("students", rid)
		require.NoError(t, err)
		assert.Equal(t, records[i], got)
	}

	// Second read of the same rid is served from the record cache and
	// must return the identical bytes. Wait applies the cache's buffered
	// sets so the earlier reads are visible to this one.
	hfm.cache.Wait()
	got, err := hfm.GetRecord("students", rids[2])
	require.NoError(t, err)
	assert.Equal(t, records[2], got)
}

func TestMultiplePages(t *testing.T) {
	hfm := newTestManager(t)

	_, err := hfm.CreateRelation("large")
	require.NoError(t, err)

	// Big records so a handful fill a page.
	record := make([]byte, 1000)
	for i := range record {
		record[i] = 'x'
	}

	var rids []types.RecordId
	for i := 0; i < 20; i++ {
		copy(record, fmt.Sprintf("rec-%03d", i))
		rid, err := hfm.InsertRecord("large", record)
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	lastPage := rids[len(rids)-1].PageNumber
	assert.Greater(t, uint32(lastPage), uint32(1), "20 x 1000B records must span pages")

	for i, rid := range rids {
		got, err := hfm.GetRecord("large", rid)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("rec-%03d", i), string(got[:7]))
	}
}

func TestOpenMissingRelation(t *testing.T) {
	hfm := newTestManager(t)

	_, err := hfm.OpenRelation("nope")
	require.ErrorIs(t, err, types.ErrFileNotFound)
}

func TestFileScannerStreamsEverything(t *testing.T) {
	hfm := newTestManager(t)

	_, err := hfm.CreateRelation("relA")
	require.NoError(t, err)

	const n = 500
	inserted := make(map[types.RecordId]string, n)
	for i := 0; i < n; i++ {
		record := fmt.Sprintf("%05d string record", i)
		rid, err := hfm.InsertRecord("relA", []byte(record))
		require.NoError(t, err)
		inserted[rid] = record
	}

	scanner, err := hfm.NewScanner("relA")
	require.NoError(t, err)

	seen := 0
	var rid types.RecordId
	for {
		err := scanner.ScanNext(&rid)
		if err != nil {
			require.ErrorIs(t, err, types.ErrEndOfFile)
			break
		}
		record, err := scanner.GetRecord()
		require.NoError(t, err)

		want, ok := inserted[rid]
		require.True(t, ok, "scanner produced unknown rid %v", rid)
		assert.Equal(t, want, string(record))
		delete(inserted, rid)
		seen++
	}

	assert.Equal(t, n, seen)
	assert.Empty(t, inserted, "scanner missed records")

	// The scanner stays exhausted.
	err = scanner.ScanNext(&rid)
	require.True(t, errors.Is(err, types.ErrEndOfFile))
}

func TestScannerOnEmptyRelation(t *testing.T) {
	hfm := newTestManager(t)

	_, err := hfm.CreateRelation("empty")
	require.NoError(t, err)

	scanner, err := hfm.NewScanner("empty")
	require.NoError(t, err)

	var rid types.RecordId
	err = scanner.ScanNext(&rid)
	require.ErrorIs(t, err, types.ErrEndOfFile)
}
