package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mini-docker/mini-docker/internal/overlay"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

// Remove deletes a container: its record directory, overlay tree, and
// cgroup. A running container is rejected without force; with force it
// is killed first (zero grace). Every cleanup step is wrapped so one
// failure never leaves the rest undone.
func (m *Manager) Remove(token string, force, removeVolumes bool) error {
	rec, err := m.store.LoadContainer(token)
	if err != nil {
		return err
	}

	m.locks.Lock(rec.ID)
	defer m.locks.Unlock(rec.ID)

	m.refreshStatus(rec)
	if rec.Status == types.ContainerStateRunning {
		if !force {
			return runtimeerr.New(runtimeerr.KindStateConflict, "remove",
				fmt.Errorf("container %s is running; use force to remove", rec.ID))
		}
		log := logrus.WithFields(logrus.Fields{"container": rec.ID, "op": "remove"})
		m.terminate(rec.PID, 0, log)
	}

	log := logrus.WithFields(logrus.Fields{"container": rec.ID, "op": "remove"})

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

	if removeVolumes {
		// volume dirs live next to the record; nothing else references
		// them once the record is gone
		volDir := filepath.Join(m.store.ContainerDir(rec.ID), "volumes")
		if err := os.RemoveAll(volDir); err != nil {
			log.WithError(err).Warn("volume removal failed")
		}
	}

	if rec.PodID != "" {
		if err := m.removeFromPod(rec.PodID, rec.ID); err != nil {
			log.WithError(err).Warn("pod membership update failed")
		}
	}

	if err := m.store.DeleteContainer(rec.ID); err != nil {
		return err
	}

	log.Info("container removed")
	return nil
}
