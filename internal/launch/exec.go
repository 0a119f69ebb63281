package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/capability"
	"github.com/mini-docker/mini-docker/internal/sysx"
	"github.com/mini-docker/mini-docker/internal/types"
)

// RunExecChild is the child side of exec: main() diverts here when
// argv[1] == ExecInitArg. It enters the target container's namespaces,
// then forks the payload so the pid namespace takes effect, waits, and
// exits with the payload's code. Never returns.
func RunExecChild() {
	// namespace switches are per-thread; everything below must stay on
	// this one
	runtime.LockOSThread()

	if err := sysx.PrctlSetPdeathsig(unix.SIGKILL); err != nil {
		execFail("prctl", err)
	}

	var params ExecParams
	if err := DecodeParams(os.Args[2], &params); err != nil {
		execFail("decode params", err)
	}

	for _, ns := range params.Namespaces {
		if ns == types.NamespaceMount {
			continue // must be last, see below
		}
		if err := joinNamespace(params.InitPID, ns); err != nil {
			execFail(fmt.Sprintf("setns %s", ns), err)
		}
	}

	if nsShared(params.Namespaces, types.NamespaceMount) {
		// setns(CLONE_NEWNS) refuses a caller whose fs state is shared
		// with other threads, which is always true under the Go runtime.
		// unshare(CLONE_NEWNS) copies the fs state instead of failing,
		// so unshare first, then enter the target namespace.
		if err := sysx.Unshare(unix.CLONE_NEWNS); err != nil {
			execFail("unshare mnt", err)
		}
		if err := joinNamespace(params.InitPID, types.NamespaceMount); err != nil {
			execFail("setns mnt", err)
		}
		if err := sysx.Chdir("/"); err != nil {
			execFail("chdir /", err)
		}
	}

	if params.Workdir != "" {
		if err := sysx.Chdir(params.Workdir); err != nil {
			_ = sysx.Chdir("/")
		}
	}

	if !params.Rootless {
		caps := capability.DefaultSet
		if len(params.Capabilities) > 0 {
			resolved, err := capability.ResolveNames(params.Capabilities)
			if err != nil {
				execFail("capabilities", err)
			}
			caps = resolved
		}
		if err := capability.DropAllExcept(caps); err != nil {
			execFail("drop capabilities", err)
		}
	}

	argv0, err := lookupExecutable(params.Command[0], params.Env)
	if err != nil {
		execFail("exec", err)
	}

	cmd := exec.Command(argv0, params.Command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = params.Env

	err = cmd.Run()
	if err == nil {
		os.Exit(0)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	execFail("run payload", err)
}

// ExecCommand builds the parent-side exec invocation: a re-exec of this
// binary that becomes RunExecChild, with the caller's stdio inherited.
func ExecCommand(params *ExecParams) (*exec.Cmd, error) {
	encoded, err := EncodeParams(params)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("/proc/self/exe", ExecInitArg, encoded)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

func execFail(step string, err error) {
	fmt.Fprintf(os.Stderr, "exec failed: %s: %v\n", step, err)
	os.Exit(1)
}
