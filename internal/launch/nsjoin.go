package launch

import (
	"fmt"

	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/sysx"
	"github.com/mini-docker/mini-docker/internal/types"
)

var nsCloneFlag = map[types.Namespace]int{
	types.NamespacePID:    unix.CLONE_NEWPID,
	types.NamespaceUTS:    unix.CLONE_NEWUTS,
	types.NamespaceMount:  unix.CLONE_NEWNS,
	types.NamespaceIPC:    unix.CLONE_NEWIPC,
	types.NamespaceNet:    unix.CLONE_NEWNET,
	types.NamespaceUser:   unix.CLONE_NEWUSER,
	types.NamespaceCgroup: unix.CLONE_NEWCGROUP,
}

// joinNamespace enters one namespace of pid. The net namespace goes
// through the netns handle type; everything else is an open of
// /proc/<pid>/ns/<type> plus setns with the matching clone flag.
func joinNamespace(pid int, ns types.Namespace) error {
	if ns == types.NamespaceNet {
		handle, err := netns.GetFromPid(pid)
		if err != nil {
			return runtimeerr.Syscall("open net namespace", err)
		}
		defer handle.Close()
		if err := netns.Set(handle); err != nil {
			return runtimeerr.Syscall("setns net", err)
		}
		return nil
	}

	flag, ok := nsCloneFlag[ns]
	if !ok {
		return runtimeerr.New(runtimeerr.KindInvalidInput, "setns",
			fmt.Errorf("unknown namespace %q", ns))
	}

	path := fmt.Sprintf("/proc/%d/ns/%s", pid, ns)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return runtimeerr.Syscall("open "+path, err)
	}
	defer unix.Close(fd)

	return sysx.Setns(fd, flag)
}
