package diskmanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrefixDB/types"
)

func TestCreateOpenRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.idx")

	// Opening a missing file must be FileNotFound.
	_, err := Open(path)
	require.ErrorIs(t, err, types.ErrFileNotFound)

	f, err := Create(path)
	require.NoError(t, err)

	// Creating over an existing file must be FileExists.
	_, err = Create(path)
	require.ErrorIs(t, err, types.ErrFileExists)

	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, Remove(path))
	err = Remove(path)
	require.ErrorIs(t, err, types.ErrFileNotFound)
}

func TestPageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.idx")
	f, err := Create(path)
	require.NoError(t, err)
	defer f.Close()

	// Fresh file has no pages; reads must fail.
	buf := make([]byte, types.PageSize)
	err = f.ReadPage(1, buf)
	require.ErrorIs(t, err, types.ErrPageNotFound)

	pid1, err := f.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, types.PageId(1), pid1)

	pid2, err := f.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, types.PageId(2), pid2)
	assert.Equal(t, types.PageId(2), f.NumPages())

	// A freshly allocated page reads back zeroed.
	require.NoError(t, f.ReadPage(pid1, buf))
	for _, b := range buf {
		require.Zero(t, b)
	}

	// Write page 2, reread both pages.
	page := make([]byte, types.PageSize)
	copy(page, []byte("page two payload"))
	require.NoError(t, f.WritePage(pid2, page))
	require.NoError(t, f.Sync())

	require.NoError(t, f.ReadPage(pid2, buf))
	assert.Equal(t, page, buf)

	require.NoError(t, f.ReadPage(pid1, buf))
	for _, b := range buf {
		require.Zero(t, b)
	}

	// Page numbers outside the file are rejected.
	err = f.WritePage(3, page)
	require.ErrorIs(t, err, types.ErrPageNotFound)
	err = f.ReadPage(types.InvalidPageNumber, buf)
	require.ErrorIs(t, err, types.ErrPageNotFound)
}

func TestReopenKeepsPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.idx")
	f, err := Create(path)
	require.NoError(t, err)

	pid, err := f.AllocatePage()
	require.NoError(t, err)

	page := make([]byte, types.PageSize)
	copy(page, []byte("survives reopen"))
	require.NoError(t, f.WritePage(pid, page))
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, types.PageId(1), f.NumPages())

	buf := make([]byte, types.PageSize)
	require.NoError(t, f.ReadPage(pid, buf))
	assert.Equal(t, page, buf)
}
