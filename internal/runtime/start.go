package runtime

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mini-docker/mini-docker/internal/ctrlog"
	"github.com/mini-docker/mini-docker/internal/launch"
	"github.com/mini-docker/mini-docker/internal/overlay"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

// StartedContainer is a running container this process is the parent
// of; Wait reaps it and records the result.
type StartedContainer struct {
	Record *types.ContainerRecord
	cmd    *exec.Cmd
	log    *ctrlog.Writer
	m      *Manager
}

func (sc *StartedContainer) PID() int { return sc.cmd.Process.Pid }

// Start launches the container init and transitions the record to
// running. On any failure past the first resource acquisition it walks
// the full teardown path; a partial container never remains running.
func (m *Manager) Start(token string) (*StartedContainer, error) {
	rec, err := m.store.LoadContainer(token)
	if err != nil {
		return nil, err
	}

	m.locks.Lock(rec.ID)
	defer m.locks.Unlock(rec.ID)

	m.refreshStatus(rec)
	if !rec.Status.CanTransitionTo(types.ContainerStateRunning, true) {
		return nil, runtimeerr.New(runtimeerr.KindStateConflict, "start",
			fmt.Errorf("container %s is %s", rec.ID, rec.Status))
	}

	log := logrus.WithFields(logrus.Fields{"container": rec.ID, "op": "start"})

	if rec.UseOverlay && rec.OverlayPaths != nil {
		// a previous stop deleted the layer tree; reallocate it
		if _, err := overlay.Allocate(m.store.DataRoot(), rec.ID); err != nil {
			return nil, err
		}
	}

	// the child gets a copy without the free-form unknown fields; gob
	// can't encode interface-typed values and the child has no use for
	// them
	launchRec := *rec
	launchRec.Unknown = nil
	params := &launch.Params{
		Record:     &launchRec,
		CgroupRoot: m.cgroupRoot(),
		DataRoot:   m.store.DataRoot(),
	}

	if rec.PodID != "" {
		pod, err := m.store.LoadPod(rec.PodID)
		if err != nil {
			return nil, err
		}
		m.refreshPod(pod)
		if pod.InfraPID == 0 {
			return nil, runtimeerr.New(runtimeerr.KindStateConflict, "start",
				fmt.Errorf("pod %s is not running", pod.ID))
		}
		params.InfraPID = pod.InfraPID
		params.SharedNamespaces = pod.SharedNamespaces
	}

	// cgroup first: admission must happen before anything in the child
	// can allocate against the limits
	if !rec.Rootless {
		if err := m.cg.EnsureParent(); err != nil {
			return nil, err
		}
		group, err := m.cg.Create(rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Resources.Applied = group.SetLimits(&rec.Resources)
	}

	logw, err := ctrlog.OpenWriter(m.store.LogPath(rec.ID))
	if err != nil {
		m.teardown(rec)
		return nil, runtimeerr.Syscall("open container log", err)
	}

	cmd, err := launch.Start(params, logw.File())
	if err != nil {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
		logw.Close()
		m.teardown(rec)

		now := time.Now().UTC()
		code := 1
		rec.Status = types.ContainerStateStopped
		rec.FinishedAt = &now
		rec.ExitCode = &code
		rec.PID = 0
		_ = m.store.SaveContainer(rec)

		log.WithError(err).Error("container start failed")
		return nil, err
	}

	now := time.Now().UTC()
	rec.PID = cmd.Process.Pid
	rec.Status = types.ContainerStateRunning
	rec.StartedAt = &now
	rec.FinishedAt = nil
	rec.ExitCode = nil
	if err := m.store.SaveContainer(rec); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		logw.Close()
		m.teardown(rec)
		return nil, err
	}

	log.WithField("pid", rec.PID).Info("container started")
	return &StartedContainer{Record: rec, cmd: cmd, log: logw, m: m}, nil
}

// Wait blocks until the init exits, records the exit code, and runs the
// teardown path. Used by foreground starts; detached containers get
// reaped lazily by refreshStatus.
func (sc *StartedContainer) Wait() (int, error) {
	err := sc.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, runtimeerr.Syscall("waitpid", err)
		}
		code = exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			// killed by signal; report 128+sig like the shell does
			code = 128 + int(ws.Signal())
		}
	}

	sc.log.Close()

	m := sc.m
	rec := sc.Record
	m.locks.Lock(rec.ID)
	defer m.locks.Unlock(rec.ID)

	now := time.Now().UTC()
	rec.Status = types.ContainerStateStopped
	rec.FinishedAt = &now
	rec.ExitCode = &code
	m.teardown(rec)
	if err := m.store.SaveContainer(rec); err != nil {
		return code, err
	}

	logrus.WithFields(logrus.Fields{
		"container": rec.ID,
		"op":        "wait",
		"exit_code": code,
	}).Info("container exited")
	return code, nil
}

func (m *Manager) cgroupRoot() string {
	return m.cg.Root()
}
