package runtime

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"

	"github.com/mini-docker/mini-docker/internal/launch"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

// ExecOptions selects which namespaces to join and what environment and
// working directory the command gets; zero values inherit from the
// container record.
type ExecOptions struct {
	// Namespaces to join; nil means every namespace the container was
	// created with. A subset keeps the rest on the host side, e.g. a
	// debugging shell that joins net+mnt but keeps the host pid view.
	Namespaces []types.Namespace
	Workdir    string
	Env        map[string]string
}

// Exec runs command inside a running container's namespaces with the
// caller's stdio and returns the command's exit code.
func (m *Manager) Exec(token string, command []string, opts ExecOptions) (int, error) {
	if len(command) == 0 {
		return 0, runtimeerr.New(runtimeerr.KindInvalidInput, "exec",
			fmt.Errorf("command must not be empty"))
	}

	rec, err := m.store.LoadContainer(token)
	if err != nil {
		return 0, err
	}
	m.refreshStatus(rec)
	if rec.Status != types.ContainerStateRunning {
		return 0, runtimeerr.New(runtimeerr.KindStateConflict, "exec",
			fmt.Errorf("container %s is not running", rec.ID))
	}

	namespaces := opts.Namespaces
	if len(namespaces) == 0 {
		namespaces = rec.Namespaces
	}
	workdir := opts.Workdir
	if workdir == "" {
		workdir = rec.Workdir
	}

	params := &launch.ExecParams{
		InitPID:      rec.PID,
		Namespaces:   namespaces,
		Command:      command,
		Workdir:      workdir,
		Env:          mergeEnv(rec, opts.Env),
		Capabilities: rec.Capabilities,
		Rootless:     rec.Rootless,
	}

	cmd, err := launch.ExecCommand(params)
	if err != nil {
		return 0, runtimeerr.New(runtimeerr.KindInvalidInput, "exec", err)
	}

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, runtimeerr.Syscall("exec", err)
}

func mergeEnv(rec *types.ContainerRecord, extra map[string]string) []string {
	merged := map[string]string{
		"PATH":     "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"HOME":     "/root",
		"TERM":     "xterm",
		"HOSTNAME": rec.Hostname,
	}
	for k, v := range rec.Env {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
