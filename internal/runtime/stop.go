package runtime

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/overlay"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

const (
	// DefaultStopGrace is how long stop waits after SIGTERM before
	// escalating to SIGKILL.
	DefaultStopGrace = 10 * time.Second

	stopPollInterval = 100 * time.Millisecond
	reapWindow       = time.Second
)

// Stop terminates a running container: SIGTERM, a grace window polled
// at 100ms, SIGKILL, then a bounded reap. A zero grace kills
// immediately (force-stop). The real exit code is recorded when this
// process can still reap the init; for a reparented init the recorded
// code is synthesized: 128+SIGTERM or 128+SIGKILL for the signal that
// ended it, 0 if it was already gone.
func (m *Manager) Stop(token string, grace time.Duration) error {
	rec, err := m.store.LoadContainer(token)
	if err != nil {
		return err
	}

	m.locks.Lock(rec.ID)
	defer m.locks.Unlock(rec.ID)

	m.refreshStatus(rec)
	if !rec.Status.CanTransitionTo(types.ContainerStateStopped, false) {
		return runtimeerr.New(runtimeerr.KindStateConflict, "stop",
			fmt.Errorf("container %s is not running", rec.ID))
	}

	log := logrus.WithFields(logrus.Fields{"container": rec.ID, "op": "stop"})
	code := m.terminate(rec.PID, grace, log)

	now := time.Now().UTC()
	rec.Status = types.ContainerStateStopped
	rec.FinishedAt = &now
	rec.ExitCode = &code
	m.teardown(rec)
	if err := m.store.SaveContainer(rec); err != nil {
		return err
	}

	log.WithField("exit_code", code).Info("container stopped")
	return nil
}

// terminate delivers SIGTERM, waits out the grace window, escalates to
// SIGKILL, and reaps. Returns the exit code to record.
func (m *Manager) terminate(pid int, grace time.Duration, log *logrus.Entry) int {
	if !processAlive(pid) {
		return reap(pid, 0)
	}

	killed := false
	if grace > 0 {
		if err := unix.Kill(pid, unix.SIGTERM); err != nil {
			log.WithError(err).Warn("SIGTERM failed")
		}
		deadline := time.Now().Add(grace)
		for time.Now().Before(deadline) {
			if !processAlive(pid) {
				return reap(pid, 128+int(unix.SIGTERM))
			}
			time.Sleep(stopPollInterval)
		}
	}

	if processAlive(pid) {
		killed = true
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			log.WithError(err).Warn("SIGKILL failed")
		}
	}

	code := 0
	if killed {
		code = 128 + int(unix.SIGKILL)
	}
	return reap(pid, code)
}

// reap runs the WNOHANG waitpid loop for up to a second, using the
// collected status when this process is the parent. ECHILD means some
// other parent already reaped it; the fallback code stands.
func reap(pid int, fallbackCode int) int {
	deadline := time.Now().Add(reapWindow)
	for time.Now().Before(deadline) {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if err == unix.ECHILD {
			return fallbackCode
		}
		if err == nil && wpid == pid {
			if ws.Signaled() {
				return 128 + int(ws.Signal())
			}
			return ws.ExitStatus()
		}
		if processAlive(pid) {
			time.Sleep(stopPollInterval)
			continue
		}
		return fallbackCode
	}
	return fallbackCode
}

// teardown inverts every acquisition from start: overlay unmounts in
// the normative order, then the cgroup. Each step is wrapped so one
// failure never skips the rest.
func (m *Manager) teardown(rec *types.ContainerRecord) {
	log := logrus.WithFields(logrus.Fields{"container": rec.ID, "op": "teardown"})

	if rec.UseOverlay && rec.OverlayPaths != nil {
		if err := overlay.Teardown(m.store.DataRoot(), rec.ID, rec.OverlayPaths); err != nil {
			log.WithError(err).Warn("overlay teardown failed")
		}
	}

	if !rec.Rootless {
		if err := m.cg.Open(rec.ID).Destroy(); err != nil {
			log.WithError(err).Warn("cgroup destroy failed")
		}
	}

	rec.PID = 0
}

// refreshStatus reconciles a record with reality: a running record
// whose init is gone flips to stopped, reaping if this process can.
func (m *Manager) refreshStatus(rec *types.ContainerRecord) {
	if rec.Status != types.ContainerStateRunning {
		return
	}
	if processAlive(rec.PID) {
		return
	}

	code := reap(rec.PID, 0)
	now := time.Now().UTC()
	rec.Status = types.ContainerStateStopped
	rec.FinishedAt = &now
	if rec.ExitCode == nil {
		rec.ExitCode = &code
	}
	m.teardown(rec)
	_ = m.store.SaveContainer(rec)
}
