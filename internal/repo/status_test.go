package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePorcelain(t *testing.T) {
	out := " M main.go\x00A  added.go\x00R  new name.go\x00old name.go\x00?? notes.txt\x00"

	entries := parsePorcelain(out)
	require.Len(t, entries, 4)

	assert.Equal(t, StatusEntry{Code: " M", Path: "main.go"}, entries[0])
	assert.True(t, entries[0].Modified())
	assert.False(t, entries[0].Staged())

	assert.True(t, entries[1].Staged())

	assert.Equal(t, "new name.go", entries[2].Path)
	assert.Equal(t, "old name.go", entries[2].OrigPath)

	assert.True(t, entries[3].Untracked())
	assert.False(t, entries[3].Modified())
}

func TestParsePorcelain_Empty(t *testing.T) {
	assert.Empty(t, parsePorcelain(""))
}

func TestStatus_UntrackedAndModified(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	commitFile(t, dir, "tracked.txt", "v1")

	c := NewClient()
	ctx := context.Background()

	paths, err := c.DirtyCheck(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, paths)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("v2"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "untracked.txt"), []byte("x"), 0644))

	entries, err := c.Status(ctx, dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	paths, err = c.DirtyCheck(ctx, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tracked.txt", "sub/untracked.txt"}, paths)
}

func TestStatus_IgnoredFilesAreClean(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	commitFile(t, dir, ".gitignore", "build/\n")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "out.bin"), []byte("x"), 0644))

	paths, err := NewClient().DirtyCheck(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
