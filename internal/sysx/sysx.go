// Package sysx holds typed wrappers over the namespace/mount/prctl
// primitives the launch pipeline drives. Each wrapper
// translates a kernel failure into a *runtimeerr.Error carrying the
// captured errno; none of them retry on EINTR, that is the caller's
// concern.
package sysx

import (
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
)

func Unshare(flags int) error {
	if err := unix.Unshare(flags); err != nil {
		return runtimeerr.Syscall("unshare", err)
	}
	return nil
}

func Setns(fd int, nstype int) error {
	if err := unix.Setns(fd, nstype); err != nil {
		return runtimeerr.Syscall("setns", err)
	}
	return nil
}

func Mount(source, target, fstype string, flags uintptr, data string) error {
	if err := unix.Mount(source, target, fstype, flags, data); err != nil {
		return runtimeerr.Syscall("mount", err)
	}
	return nil
}

func Unmount(target string, flags int) error {
	if err := unix.Unmount(target, flags); err != nil {
		return runtimeerr.Syscall("umount2", err)
	}
	return nil
}

func PivotRoot(newRoot, oldRoot string) error {
	if err := unix.PivotRoot(newRoot, oldRoot); err != nil {
		return runtimeerr.Syscall("pivot_root", err)
	}
	return nil
}

func Chroot(path string) error {
	if err := unix.Chroot(path); err != nil {
		return runtimeerr.Syscall("chroot", err)
	}
	return nil
}

func Sethostname(name string) error {
	if err := unix.Sethostname([]byte(name)); err != nil {
		return runtimeerr.Syscall("sethostname", err)
	}
	return nil
}

func PrctlSetNoNewPrivs() error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return runtimeerr.Syscall("prctl(PR_SET_NO_NEW_PRIVS)", err)
	}
	return nil
}

func PrctlSetPdeathsig(sig unix.Signal) error {
	if err := unix.Prctl(unix.PR_SET_PDEATHSIG, uintptr(sig), 0, 0, 0); err != nil {
		return runtimeerr.Syscall("prctl(PR_SET_PDEATHSIG)", err)
	}
	return nil
}

func Mknod(path string, mode uint32, dev int) error {
	if err := unix.Mknod(path, mode, dev); err != nil {
		return runtimeerr.Syscall("mknod", err)
	}
	return nil
}

func Chdir(path string) error {
	if err := unix.Chdir(path); err != nil {
		return runtimeerr.Syscall("chdir", err)
	}
	return nil
}
