// Package overlay composes the lower/upper/work/merged directory set,
// mounts the union filesystem, and tears it down in the exact reverse
// order of setup.
package overlay

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/sysx"
	"github.com/mini-docker/mini-docker/internal/types"
	"github.com/mini-docker/mini-docker/internal/util"
)

// Allocate creates the four directories under <dataRoot>/overlay/<id>/
// and returns their paths, without mounting anything yet.
func Allocate(dataRoot, id string) (*types.OverlayPaths, error) {
	base := filepath.Join(dataRoot, "overlay", id)
	paths := &types.OverlayPaths{
		Lower:  filepath.Join(base, "lower"),
		Upper:  filepath.Join(base, "upper"),
		Work:   filepath.Join(base, "work"),
		Merged: filepath.Join(base, "merged"),
	}

	for _, dir := range []string{paths.Lower, paths.Upper, paths.Work, paths.Merged} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, runtimeerr.Syscall("mkdir overlay dir", err)
		}
	}

	return paths, nil
}

// PopulateLower bind-mounts rootfsDir onto lower/ read-only if lower/ is
// still empty, falling back to a recursive copy if the bind fails (e.g.
// no CAP_SYS_ADMIN in rootless mode).
func PopulateLower(paths *types.OverlayPaths, rootfsDir string) error {
	empty, err := isEmptyDir(paths.Lower)
	if err != nil {
		return runtimeerr.Syscall("stat lower", err)
	}
	if !empty {
		return nil
	}

	err = sysx.Mount(rootfsDir, paths.Lower, "", unix.MS_BIND|unix.MS_RDONLY, "")
	if err == nil {
		// the kernel ignores MS_RDONLY on the initial bind(7); remount to
		// actually make it read-only.
		return sysx.Mount("", paths.Lower, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY, "")
	}

	logrus.WithError(err).Warn("overlay: bind mount of rootfs failed, falling back to copy")
	return util.CopyTree(rootfsDir, paths.Lower)
}

// Mount mounts the union filesystem onto merged. On failure the caller
// should fall back to chroot on the raw rootfs.
func Mount(paths *types.OverlayPaths) error {
	opts := "lowerdir=" + paths.Lower + ",upperdir=" + paths.Upper + ",workdir=" + paths.Work
	return sysx.Mount("overlay", paths.Merged, "overlay", 0, opts)
}

// teardownPaths is the exact reverse-of-setup unmount sequence: the
// special filesystems inside merged first, then merged itself, then
// the lower bind. Changing this order leaks mounts.
func teardownPaths(paths *types.OverlayPaths) []string {
	return []string{
		filepath.Join(paths.Merged, "dev", "pts"),
		filepath.Join(paths.Merged, "dev"),
		filepath.Join(paths.Merged, "sys"),
		filepath.Join(paths.Merged, "proc"),
		paths.Merged,
		paths.Lower,
	}
}

// Teardown unmounts every path in teardownPaths, in order, ignoring
// ENOENT/EINVAL (nothing was mounted there) and recording, but not
// stopping on, any other error, then deletes the whole overlay/<id>
// tree.
func Teardown(dataRoot, id string, paths *types.OverlayPaths) error {
	var firstErr error

	for _, p := range teardownPaths(paths) {
		err := unix.Unmount(p, unix.MNT_DETACH)
		if err == nil || err == unix.ENOENT || err == unix.EINVAL {
			continue
		}
		logrus.WithError(err).WithField("path", p).Warn("overlay: unmount failed during teardown")
		if firstErr == nil {
			firstErr = runtimeerr.Syscall("umount2 "+p, err)
		}
	}

	if IsMounted(paths.Merged) {
		logrus.WithField("path", paths.Merged).Warn("overlay: merged still mounted after teardown")
	}

	base := filepath.Join(dataRoot, "overlay", id)
	if err := os.RemoveAll(base); err != nil {
		logrus.WithError(err).Warn("overlay: failed to remove overlay tree")
		if firstErr == nil {
			firstErr = runtimeerr.Syscall("remove overlay tree", err)
		}
	}

	return firstErr
}

// IsMounted reports whether merged is still a live mountpoint after
// teardown.
func IsMounted(merged string) bool {
	return util.IsMountpointSimple(merged)
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == nil {
		return false, nil
	}
	return true, nil
}
