package launch

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/sysx"
)

type devNode struct {
	name  string
	major uint32
	minor uint32
}

var minimalDevNodes = []devNode{
	{"null", 1, 3},
	{"zero", 1, 5},
	{"random", 1, 8},
	{"urandom", 1, 9},
	{"tty", 5, 0},
	{"console", 5, 1},
}

var devSymlinks = [][2]string{
	{"/proc/self/fd", "fd"},
	{"fd/0", "stdin"},
	{"fd/1", "stdout"},
	{"fd/2", "stderr"},
}

// mountSpecialFilesystems mounts a private /proc, /sys, tmpfs /dev, and
// devpts /dev/pts under root. /proc must be fresh here: the container's
// pid namespace is only visible through its own procfs instance.
func mountSpecialFilesystems(root string) error {
	procDir := filepath.Join(root, "proc")
	if err := os.MkdirAll(procDir, 0555); err != nil {
		return err
	}
	if err := sysx.Mount("proc", procDir, "proc", unix.MS_NOSUID|unix.MS_NODEV|unix.MS_NOEXEC, ""); err != nil {
		return err
	}

	sysDir := filepath.Join(root, "sys")
	if err := os.MkdirAll(sysDir, 0555); err != nil {
		return err
	}
	if err := sysx.Mount("sysfs", sysDir, "sysfs", unix.MS_NOSUID|unix.MS_NODEV|unix.MS_NOEXEC|unix.MS_RDONLY, ""); err != nil {
		// sysfs mounts fail without a net namespace of our own in some
		// kernels; the container still works without /sys
		logrus.WithError(err).Warn("launch: sysfs mount failed")
	}

	devDir := filepath.Join(root, "dev")
	if err := os.MkdirAll(devDir, 0755); err != nil {
		return err
	}
	if err := sysx.Mount("tmpfs", devDir, "tmpfs", unix.MS_NOSUID, "mode=755,size=65536k"); err != nil {
		return err
	}

	ptsDir := filepath.Join(devDir, "pts")
	if err := os.MkdirAll(ptsDir, 0755); err != nil {
		return err
	}
	if err := sysx.Mount("devpts", ptsDir, "devpts", unix.MS_NOSUID|unix.MS_NOEXEC, "newinstance,ptmxmode=0666,mode=0620"); err != nil {
		logrus.WithError(err).Warn("launch: devpts mount failed")
	}

	return nil
}

// setupMinimalDev creates the device nodes and fd symlinks a payload
// expects in /dev. mknod failures fall back to bind mounts from
// the host node (needed rootless, where mknod is denied); symlink
// collisions are ignored.
func setupMinimalDev(root string) error {
	devDir := filepath.Join(root, "dev")

	for _, n := range minimalDevNodes {
		path := filepath.Join(devDir, n.name)
		dev := int(unix.Mkdev(n.major, n.minor))
		if err := sysx.Mknod(path, unix.S_IFCHR|0666, dev); err != nil {
			if bindErr := bindHostDev(n.name, path); bindErr != nil {
				logrus.WithError(err).WithField("dev", n.name).Warn("launch: mknod and bind fallback failed")
			}
		}
	}

	for _, link := range devSymlinks {
		if err := os.Symlink(link[0], filepath.Join(devDir, link[1])); err != nil && !os.IsExist(err) {
			logrus.WithError(err).WithField("link", link[1]).Warn("launch: dev symlink failed")
		}
	}

	return nil
}

func bindHostDev(name, target string) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	f.Close()
	return sysx.Mount(filepath.Join("/dev", name), target, "", unix.MS_BIND, "")
}
