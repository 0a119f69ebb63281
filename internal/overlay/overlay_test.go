package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-docker/mini-docker/internal/types"
)

func TestAllocateCreatesFourDirectories(t *testing.T) {
	dataRoot := t.TempDir()

	paths, err := Allocate(dataRoot, "abc123")
	require.NoError(t, err)

	for _, dir := range []string{paths.Lower, paths.Upper, paths.Work, paths.Merged} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestTeardownPathsOrder(t *testing.T) {
	paths := &types.OverlayPaths{
		Lower: "/data/overlay/x/lower", Upper: "/data/overlay/x/upper",
		Work: "/data/overlay/x/work", Merged: "/data/overlay/x/merged",
	}

	got := teardownPaths(paths)
	want := []string{
		filepath.Join(paths.Merged, "dev", "pts"),
		filepath.Join(paths.Merged, "dev"),
		filepath.Join(paths.Merged, "sys"),
		filepath.Join(paths.Merged, "proc"),
		paths.Merged,
		paths.Lower,
	}
	assert.Equal(t, want, got)
}

func TestIsEmptyDir(t *testing.T) {
	dir := t.TempDir()

	empty, err := isEmptyDir(dir)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0644))

	empty, err = isEmptyDir(dir)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestIsMountedFalseForPlainDir(t *testing.T) {
	assert.False(t, IsMounted(t.TempDir()))
}

func TestTeardownRemovesTreeEvenWithoutMounts(t *testing.T) {
	dataRoot := t.TempDir()
	paths, err := Allocate(dataRoot, "deadbeef0000")
	require.NoError(t, err)

	// nothing is actually mounted in this unit test; Teardown must still
	// remove the directory tree without erroring on ENOENT/EINVAL.
	err = Teardown(dataRoot, "deadbeef0000", paths)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dataRoot, "overlay", "deadbeef0000"))
	assert.True(t, os.IsNotExist(statErr))
}
