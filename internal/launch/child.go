package launch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/capability"
	"github.com/mini-docker/mini-docker/internal/cgroup"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/seccomp"
	"github.com/mini-docker/mini-docker/internal/sysx"
	"github.com/mini-docker/mini-docker/internal/types"
)

const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// RunChild is the child side of start: main() diverts here when
// argv[1] == InitArg, before any CLI machinery. It walks the setup
// sequence and execs the payload; it never returns. stderr is already
// the container log, so failure messages land there.
func RunChild() {
	// die with the parent rather than leak a half-set-up init
	if err := sysx.PrctlSetPdeathsig(unix.SIGKILL); err != nil {
		childFail(nil, "prctl", err)
	}

	var params Params
	if err := DecodeParams(os.Args[2], &params); err != nil {
		childFail(nil, "decode params", err)
	}

	syncR := os.NewFile(childSyncReadFd, "sync-r")
	syncW := os.NewFile(childSyncWriteFd, "sync-w")

	if params.Record.Rootless {
		// the user namespace was created at clone time; tell the parent
		// it can write uid/gid maps now
		if err := WriteMessage(syncW, Message{Type: MsgUnshared}); err != nil {
			childFail(syncW, "sync write", err)
		}
	}

	msg, err := ReadMessage(syncR)
	if err != nil {
		childFail(syncW, "sync read", err)
	}
	if msg.Type != MsgProceed {
		childFail(syncW, "sync read", fmt.Errorf("unexpected message %q", msg.Type))
	}
	syncR.Close()

	if err := setup(&params); err != nil {
		step := "setup"
		var rerr *runtimeerr.Error
		if errors.As(err, &rerr) {
			step = rerr.Step
		}
		childFail(syncW, step, err)
	}

	if err := WriteMessage(syncW, Message{Type: MsgReady}); err != nil {
		childFail(nil, "sync write", err)
	}

	if params.Infra {
		// infra never execs; it just holds the namespaces open
		for {
			unix.Pause()
		}
	}

	unix.CloseOnExec(childSyncWriteFd)

	rec := params.Record
	env := buildEnv(rec)
	argv0, err := lookupExecutable(rec.Command[0], env)
	if err != nil {
		childFail(syncW, "exec", err)
	}
	if err := unix.Exec(argv0, rec.Command, env); err != nil {
		childFail(syncW, "execve", err)
	}
}

// setup runs the child sequence between the proceed barrier and exec:
// namespace joins, unshare, hostname, cgroup, filesystem, pivot,
// workdir, capabilities, seccomp. The environment is built by RunChild
// after setup returns.
func setup(params *Params) error {
	rec := params.Record

	// pod-shared namespaces first: they come from the infra process,
	// everything else is unshared fresh below
	if params.InfraPID > 0 {
		if err := joinNamespaces(params.InfraPID, params.SharedNamespaces); err != nil {
			return err
		}
	}

	flags := unshareFlags(rec, params.SharedNamespaces)
	if flags != 0 {
		if err := sysx.Unshare(flags); err != nil {
			return err
		}
	}

	if flags&unix.CLONE_NEWNS != 0 {
		// stop mount events from propagating back to the host
		if err := sysx.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
			return err
		}
	}

	if rec.HasNamespace(types.NamespaceUTS) && !nsShared(params.SharedNamespaces, types.NamespaceUTS) {
		if err := sysx.Sethostname(rec.Hostname); err != nil {
			return err
		}
	}

	if params.Infra {
		// infra holds namespaces only; no cgroup, filesystem, or
		// security profile of its own
		return nil
	}

	if !rec.Rootless {
		g := cgroup.New(params.CgroupRoot).Open(rec.ID)
		if err := g.AddSelf(); err != nil {
			return err
		}
	}

	fs := chooseFilesystem(params)
	root := fs.Root()

	if err := mountSpecialFilesystems(root); err != nil {
		return err
	}
	if err := setupMinimalDev(root); err != nil {
		return err
	}

	if err := enterRoot(root); err != nil {
		return err
	}

	if err := sysx.Chdir(rec.Workdir); err != nil {
		if err := sysx.Chdir("/"); err != nil {
			return err
		}
	}

	if !rec.Rootless {
		caps := capability.DefaultSet
		if len(rec.Capabilities) > 0 {
			resolved, err := capability.ResolveNames(rec.Capabilities)
			if err != nil {
				return err
			}
			caps = resolved
		}
		if err := capability.DropAllExcept(caps); err != nil {
			return err
		}
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			if cur, err := capability.Current(); err == nil {
				logrus.Debugf("launch: capability words after drop: %#v", cur)
			}
		}
	}

	if rec.SeccompEnabled {
		prog, err := seccomp.Compile(seccomp.DefaultAllowed)
		if err != nil {
			return err
		}
		if err := seccomp.Install(prog); err != nil {
			return err
		}
	}

	return nil
}

// chooseFilesystem picks overlay when requested, raw-rootfs chroot as
// the fallback when the union mount is denied (rootless).
func chooseFilesystem(params *Params) Filesystem {
	rec := params.Record
	if rec.UseOverlay && rec.OverlayPaths != nil {
		fs := NewOverlay(params.DataRoot, rec.ID, rec.Rootfs, rec.OverlayPaths)
		err := fs.Prepare()
		if err == nil {
			return fs
		}
		logrus.WithError(err).Warn("launch: overlay mount failed, falling back to chroot")
	}
	return NewChroot(rec.Rootfs)
}

// enterRoot pivot_roots into root and detaches the old root, with
// chroot as the degraded fallback. pivot_root needs new and old roots
// on distinct mounts, so root is first bound onto itself.
func enterRoot(root string) error {
	pivotErr := func() error {
		if err := sysx.Mount(root, root, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
			return err
		}
		oldRoot := filepath.Join(root, ".pivot_old")
		if err := os.MkdirAll(oldRoot, 0700); err != nil {
			return err
		}
		if err := sysx.PivotRoot(root, oldRoot); err != nil {
			return err
		}
		if err := sysx.Chdir("/"); err != nil {
			return err
		}
		if err := sysx.Unmount("/.pivot_old", unix.MNT_DETACH); err != nil {
			return err
		}
		return os.Remove("/.pivot_old")
	}()
	if pivotErr == nil {
		return nil
	}

	logrus.WithError(pivotErr).Warn("launch: pivot_root failed, falling back to chroot")
	if err := sysx.Chroot(root); err != nil {
		return err
	}
	return sysx.Chdir("/")
}

// unshareFlags maps the record's namespace set to CLONE_* flags for
// the child's unshare. pid and user namespaces are created at clone
// time by the parent, and pod-shared ones were joined via setns, so
// both are excluded here.
func unshareFlags(rec *types.ContainerRecord, shared []types.Namespace) int {
	flags := 0
	for _, ns := range rec.Namespaces {
		if nsShared(shared, ns) {
			continue
		}
		switch ns {
		case types.NamespaceMount:
			flags |= unix.CLONE_NEWNS
		case types.NamespaceUTS:
			flags |= unix.CLONE_NEWUTS
		case types.NamespaceIPC:
			flags |= unix.CLONE_NEWIPC
		case types.NamespaceNet:
			flags |= unix.CLONE_NEWNET
		case types.NamespaceCgroup:
			flags |= unix.CLONE_NEWCGROUP
		}
	}
	return flags
}

func nsShared(shared []types.Namespace, ns types.Namespace) bool {
	for _, s := range shared {
		if s == ns {
			return true
		}
	}
	return false
}

// buildEnv resets the environment to the defaults plus the UTS name,
// with the user's variables overlaid. Sorted for a stable execve
// argument regardless of map iteration order.
func buildEnv(rec *types.ContainerRecord) []string {
	merged := map[string]string{
		"PATH":     defaultPath,
		"HOME":     "/root",
		"TERM":     "xterm",
		"HOSTNAME": rec.Hostname,
	}
	for k, v := range rec.Env {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// lookupExecutable resolves the payload binary against the container's
// PATH. A name containing a slash is used as-is.
func lookupExecutable(name string, env []string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}

	path := defaultPath
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			path = v
		}
	}

	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() && st.Mode()&0111 != 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("executable %q not found in PATH", name)
}

// joinNamespaces setns's into the given namespaces of pid.
func joinNamespaces(pid int, namespaces []types.Namespace) error {
	for _, ns := range namespaces {
		if err := joinNamespace(pid, ns); err != nil {
			return err
		}
	}
	return nil
}

// childFail reports a failed step to the parent (when the sync pipe is
// still usable) and to the container log, then exits non-zero.
func childFail(syncW *os.File, step string, err error) {
	if syncW != nil {
		var errno unix.Errno
		errors.As(err, &errno)
		var rerr *runtimeerr.Error
		if errors.As(err, &rerr) {
			errno = rerr.Errno
		}
		_ = WriteMessage(syncW, Message{Type: MsgError, Errno: errno, Step: step})
	}
	fmt.Fprintf(os.Stderr, "container init failed: %s: %v\n", step, err)
	os.Exit(1)
}
