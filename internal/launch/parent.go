package launch

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
	"github.com/mini-docker/mini-docker/internal/util"
)

// startTimeout bounds how long the parent waits for the child to reach
// readiness; a child stuck in a kernel mount is better killed than
// waited on forever.
const startTimeout = 30 * time.Second

// Start runs the parent side of the launch pipeline: it re-execs this
// binary as the child init, drives the sync protocol (uid/gid maps for
// rootless, the proceed barrier), and returns once the child reports
// readiness. logFile becomes the child's stdout/stderr.
//
// On a reported child error the returned error carries the failing step
// and errno; the caller owns cleanup and reaping the process.
func Start(params *Params, logFile *os.File) (*exec.Cmd, error) {
	encoded, err := EncodeParams(params)
	if err != nil {
		return nil, runtimeerr.New(runtimeerr.KindInvalidInput, "encode params", err)
	}

	// P->C and C->P sync pipes, becoming fds 3 and 4 in the child
	toChildR, toChildW, err := os.Pipe()
	if err != nil {
		return nil, runtimeerr.Syscall("pipe", err)
	}
	fromChildR, fromChildW, err := os.Pipe()
	if err != nil {
		toChildR.Close()
		toChildW.Close()
		return nil, runtimeerr.Syscall("pipe", err)
	}

	cmd := exec.Command("/proc/self/exe", InitArg, encoded)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.ExtraFiles = []*os.File{toChildR, fromChildW}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: cloneFlags(params),
	}

	if err := cmd.Start(); err != nil {
		toChildR.Close()
		toChildW.Close()
		fromChildR.Close()
		fromChildW.Close()
		return nil, runtimeerr.Syscall("fork child", err)
	}

	// child-side pipe ends live on in the child only
	toChildR.Close()
	fromChildW.Close()
	defer toChildW.Close()
	defer fromChildR.Close()

	log := logrus.WithField("container", params.Record.ID)

	if params.Record.Rootless {
		msg, err := readWithTimeout(fromChildR)
		if err != nil {
			return cmd, err
		}
		if msg.Type != MsgUnshared {
			return cmd, runtimeerr.New(runtimeerr.KindSyscallFailed, "sync",
				fmt.Errorf("expected unshared message, got %q", msg.Type))
		}
		log.Debug("launch: child unshared, writing id maps")

		if err := writeIDMaps(cmd.Process.Pid); err != nil {
			return cmd, err
		}
	}

	if err := WriteMessage(toChildW, Message{Type: MsgProceed}); err != nil {
		return cmd, runtimeerr.Syscall("sync write", err)
	}
	log.Debug("launch: proceed sent, waiting for readiness")

	msg, err := readWithTimeout(fromChildR)
	if err != nil {
		return cmd, err
	}
	switch msg.Type {
	case MsgReady:
		log.Debug("launch: child ready")
		return cmd, nil
	case MsgError:
		return cmd, &runtimeerr.Error{
			Kind:  runtimeerr.KindSyscallFailed,
			Step:  msg.Step,
			Errno: msg.Errno,
			Err:   fmt.Errorf("child setup failed at %s", msg.Step),
		}
	default:
		return cmd, runtimeerr.New(runtimeerr.KindSyscallFailed, "sync",
			fmt.Errorf("unexpected message %q", msg.Type))
	}
}

func readWithTimeout(r *os.File) (Message, error) {
	msg, err := util.WithTimeout(func() (Message, error) {
		return ReadMessage(r)
	}, startTimeout)
	if err != nil {
		return msg, runtimeerr.New(runtimeerr.KindSyscallFailed, "sync read", err)
	}
	return msg, nil
}

// cloneFlags returns the namespaces that must exist at clone time: the
// pid namespace (unshare only affects later children, so the init has
// to be born into it) and the user namespace for rootless.
func cloneFlags(params *Params) uintptr {
	var flags uintptr
	rec := params.Record
	if rec.HasNamespace(types.NamespacePID) && !nsShared(params.SharedNamespaces, types.NamespacePID) {
		flags |= unix.CLONE_NEWPID
	}
	if rec.Rootless || rec.HasNamespace(types.NamespaceUser) {
		flags |= unix.CLONE_NEWUSER
	}
	return flags
}

// writeIDMaps maps the child's root to the invoking user. The
// setgroups deny must land before gid_map or the kernel refuses the
// latter for an unprivileged writer.
func writeIDMaps(pid int) error {
	base := fmt.Sprintf("/proc/%d/", pid)

	uidMap := fmt.Sprintf("0 %d 1\n", os.Getuid())
	if err := os.WriteFile(base+"uid_map", []byte(uidMap), 0); err != nil {
		return runtimeerr.Syscall("write uid_map", err)
	}
	if err := os.WriteFile(base+"setgroups", []byte("deny\n"), 0); err != nil {
		return runtimeerr.Syscall("write setgroups", err)
	}
	gidMap := fmt.Sprintf("0 %d 1\n", os.Getgid())
	if err := os.WriteFile(base+"gid_map", []byte(gidMap), 0); err != nil {
		return runtimeerr.Syscall("write gid_map", err)
	}
	return nil
}
