package launch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/types"
)

func TestUnshareFlagsExcludesCloneTimeNamespaces(t *testing.T) {
	rec := &types.ContainerRecord{
		Namespaces: []types.Namespace{
			types.NamespacePID, types.NamespaceUTS, types.NamespaceMount,
			types.NamespaceIPC, types.NamespaceNet, types.NamespaceUser,
		},
	}

	flags := unshareFlags(rec, nil)
	assert.Zero(t, flags&unix.CLONE_NEWPID, "pid namespace is created at clone time")
	assert.Zero(t, flags&unix.CLONE_NEWUSER, "user namespace is created at clone time")
	assert.NotZero(t, flags&unix.CLONE_NEWNS)
	assert.NotZero(t, flags&unix.CLONE_NEWUTS)
	assert.NotZero(t, flags&unix.CLONE_NEWIPC)
	assert.NotZero(t, flags&unix.CLONE_NEWNET)
}

func TestUnshareFlagsExcludesPodShared(t *testing.T) {
	rec := &types.ContainerRecord{Namespaces: types.DefaultNamespaces}
	shared := []types.Namespace{types.NamespaceNet, types.NamespaceIPC, types.NamespaceUTS}

	flags := unshareFlags(rec, shared)
	assert.Zero(t, flags&unix.CLONE_NEWNET)
	assert.Zero(t, flags&unix.CLONE_NEWIPC)
	assert.Zero(t, flags&unix.CLONE_NEWUTS)
	assert.NotZero(t, flags&unix.CLONE_NEWNS)
}

func TestBuildEnvResetsAndOverlays(t *testing.T) {
	rec := &types.ContainerRecord{
		Hostname: "boxy",
		Env:      map[string]string{"FOO": "bar", "TERM": "vt100"},
	}

	env := buildEnv(rec)
	assert.Contains(t, env, "HOME=/root")
	assert.Contains(t, env, "HOSTNAME=boxy")
	assert.Contains(t, env, "FOO=bar")
	// user values win over defaults
	assert.Contains(t, env, "TERM=vt100")
	assert.NotContains(t, env, "TERM=xterm")
	assert.IsIncreasing(t, env)
}

func TestLookupExecutable(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "mybin")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))

	// slash paths pass through untouched
	got, err := lookupExecutable("/bin/echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "/bin/echo", got)

	got, err = lookupExecutable("mybin", []string{"PATH=" + dir})
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	_, err = lookupExecutable("definitely-not-here", []string{"PATH=" + dir})
	require.Error(t, err)
}

func TestFilesystemStrategies(t *testing.T) {
	chroot := NewChroot("/srv/rootfs")
	require.NoError(t, chroot.Prepare())
	assert.Equal(t, "/srv/rootfs", chroot.Root())
	require.NoError(t, chroot.Teardown())

	paths := &types.OverlayPaths{
		Lower: "/d/overlay/x/lower", Upper: "/d/overlay/x/upper",
		Work: "/d/overlay/x/work", Merged: "/d/overlay/x/merged",
	}
	ovl := NewOverlay("/d", "x", "/srv/rootfs", paths)
	assert.Equal(t, paths.Merged, ovl.Root())
}

func TestCloneFlags(t *testing.T) {
	rec := &types.ContainerRecord{Namespaces: types.DefaultNamespaces}
	flags := cloneFlags(&Params{Record: rec})
	assert.Equal(t, uintptr(unix.CLONE_NEWPID), flags)

	rec.Rootless = true
	flags = cloneFlags(&Params{Record: rec})
	assert.Equal(t, uintptr(unix.CLONE_NEWPID|unix.CLONE_NEWUSER), flags)
}
