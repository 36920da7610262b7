package sequence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestListSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "c.png", "a.JPG", "b.txt", "B.tiff", "d.jpeg", "e.gif", "f.bmp", "notes.md")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	files, err := List(dir, Images())
	require.NoError(t, err)

	want := []string{"B.tiff", "a.JPG", "c.png", "d.jpeg", "e.gif", "f.bmp"}
	got := make([]string, len(files))
	for i, f := range files {
		got[i] = filepath.Base(f)
		assert.Equal(t, dir, filepath.Dir(f))
	}
	assert.Equal(t, want, got)
}

func TestListStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "frame_010.png", "frame_002.png", "frame_001.png", "frame_100.png")

	first, err := List(dir, Images())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := List(dir, Images())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.IsIncreasing(t, first)
}

func TestListEmptyIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.txt")

	files, err := List(dir, Images())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListAll(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.bin", "a.txt")

	files, err := List(dir, All)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "a.txt", filepath.Base(files[0]))
}

func TestListErrors(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"), Images())
	assert.ErrorIs(t, err, os.ErrNotExist)

	dir := t.TempDir()
	touch(t, dir, "file.png")
	_, err = List(filepath.Join(dir, "file.png"), Images())
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestSplitName(t *testing.T) {
	base, ext := SplitName("/tmp/shots/img_001.png")
	assert.Equal(t, "img_001", base)
	assert.Equal(t, ".png", ext)

	base, ext = SplitName("noext")
	assert.Equal(t, "noext", base)
	assert.Equal(t, "", ext)
}
