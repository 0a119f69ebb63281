package runtime

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/ctrlog"
	"github.com/mini-docker/mini-docker/internal/launch"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/store"
	"github.com/mini-docker/mini-docker/internal/types"
)

// InfraPollInterval is how often the infra process is probed while
// waiting on pod state changes.
const InfraPollInterval = 2 * time.Second

// PodCreate persists a pod record; the infra process starts with
// PodStart.
func (m *Manager) PodCreate(name, hostname string, shared []types.Namespace) (*types.PodRecord, error) {
	if name == "" {
		return nil, runtimeerr.New(runtimeerr.KindInvalidInput, "pod create",
			fmt.Errorf("pod name must not be empty"))
	}
	if hostname == "" {
		hostname = name
	}
	if len(shared) == 0 {
		shared = append([]types.Namespace(nil), types.DefaultSharedNamespaces...)
	}

	rec := &types.PodRecord{
		ID:               store.NewPodID(),
		Name:             name,
		Hostname:         hostname,
		SharedNamespaces: shared,
		Status:           types.PodStateCreated,
		CreatedAt:        time.Now().UTC(),
	}
	if err := m.store.CreatePod(rec); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"pod": rec.ID, "op": "pod create"}).Info("pod created")
	return rec, nil
}

// PodStart launches the infra process that owns the pod's shared
// namespaces. Containers join it via setns on /proc/<infra>/ns/*.
func (m *Manager) PodStart(token string) (*types.PodRecord, error) {
	pod, err := m.store.LoadPod(token)
	if err != nil {
		return nil, err
	}
	m.refreshPod(pod)
	if pod.InfraPID != 0 {
		return nil, runtimeerr.New(runtimeerr.KindStateConflict, "pod start",
			fmt.Errorf("pod %s is already running", pod.ID))
	}

	// a synthetic record: the infra only needs an identity, a hostname,
	// and the shared namespace set
	infraRec := &types.ContainerRecord{
		ID:         pod.ID,
		Name:       pod.Name + "-infra",
		Hostname:   pod.Hostname,
		Namespaces: pod.SharedNamespaces,
	}
	params := &launch.Params{
		Record:   infraRec,
		DataRoot: m.store.DataRoot(),
		Infra:    true,
	}

	logw, err := ctrlog.OpenWriter(filepath.Join(m.store.DataRoot(), "pods", pod.ID, "infra.log"))
	if err != nil {
		return nil, runtimeerr.Syscall("open infra log", err)
	}
	defer logw.Close()

	cmd, err := launch.Start(params, logw.File())
	if err != nil {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
		return nil, err
	}
	// the infra outlives this invocation; release it so it reparents
	// cleanly instead of waiting on us
	_ = cmd.Process.Release()

	pod.InfraPID = cmd.Process.Pid
	pod.Status = types.PodStateRunning
	if err := m.store.SavePod(pod); err != nil {
		_ = unix.Kill(pod.InfraPID, unix.SIGKILL)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"pod":       pod.ID,
		"infra_pid": pod.InfraPID,
		"op":        "pod start",
	}).Info("pod started")
	return pod, nil
}

// PodStop stops every member container, then the infra process.
func (m *Manager) PodStop(token string, grace time.Duration) error {
	pod, err := m.store.LoadPod(token)
	if err != nil {
		return err
	}

	for _, cid := range pod.Containers {
		if err := m.Stop(cid, grace); err != nil && !runtimeerr.Is(err, runtimeerr.KindStateConflict) {
			logrus.WithError(err).WithField("container", cid).Warn("pod stop: member stop failed")
		}
	}

	if pod.InfraPID != 0 {
		_ = unix.Kill(pod.InfraPID, unix.SIGTERM)
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) && processAlive(pod.InfraPID) {
			time.Sleep(InfraPollInterval)
		}
		if processAlive(pod.InfraPID) {
			_ = unix.Kill(pod.InfraPID, unix.SIGKILL)
		}
		reap(pod.InfraPID, 0)
	}

	pod.InfraPID = 0
	pod.Status = types.PodStateStopped
	if err := m.store.SavePod(pod); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"pod": pod.ID, "op": "pod stop"}).Info("pod stopped")
	return nil
}

// PodRemove deletes a pod. Member containers block removal unless
// force, which removes them too.
func (m *Manager) PodRemove(token string, force bool) error {
	pod, err := m.store.LoadPod(token)
	if err != nil {
		return err
	}

	if len(pod.Containers) > 0 && !force {
		return runtimeerr.New(runtimeerr.KindStateConflict, "pod remove",
			fmt.Errorf("pod %s still has %d containers; use force", pod.ID, len(pod.Containers)))
	}

	if pod.InfraPID != 0 || len(pod.Containers) > 0 {
		if err := m.PodStop(token, 0); err != nil {
			logrus.WithError(err).Warn("pod remove: stop failed")
		}
	}
	for _, cid := range pod.Containers {
		if err := m.Remove(cid, true, false); err != nil && !runtimeerr.Is(err, runtimeerr.KindNotFound) {
			logrus.WithError(err).WithField("container", cid).Warn("pod remove: member removal failed")
		}
	}

	return m.store.DeletePod(pod.ID)
}

// PodList returns all pods, reconciled against their infra processes.
func (m *Manager) PodList() ([]*types.PodRecord, error) {
	pods, err := m.store.ListPods()
	if err != nil {
		return nil, err
	}
	for _, pod := range pods {
		m.refreshPod(pod)
	}
	return pods, nil
}

// PodInspect resolves token and returns the reconciled pod record.
func (m *Manager) PodInspect(token string) (*types.PodRecord, error) {
	pod, err := m.store.LoadPod(token)
	if err != nil {
		return nil, err
	}
	m.refreshPod(pod)
	return pod, nil
}

// refreshPod clears a dead infra: discovering the infra's death flips
// the pod to stopped.
func (m *Manager) refreshPod(pod *types.PodRecord) {
	if pod.InfraPID == 0 {
		return
	}
	if processAlive(pod.InfraPID) {
		return
	}
	reap(pod.InfraPID, 0)
	pod.InfraPID = 0
	pod.Status = types.PodStateStopped
	_ = m.store.SavePod(pod)
}

func (m *Manager) addToPod(podID, containerID string) error {
	pod, err := m.store.LoadPod(podID)
	if err != nil {
		return err
	}
	for _, cid := range pod.Containers {
		if cid == containerID {
			return nil
		}
	}
	pod.Containers = append(pod.Containers, containerID)
	return m.store.SavePod(pod)
}

func (m *Manager) removeFromPod(podID, containerID string) error {
	pod, err := m.store.LoadPod(podID)
	if err != nil {
		if runtimeerr.Is(err, runtimeerr.KindNotFound) {
			return nil
		}
		return err
	}
	kept := pod.Containers[:0]
	for _, cid := range pod.Containers {
		if cid != containerID {
			kept = append(kept, cid)
		}
	}
	pod.Containers = kept
	return m.store.SavePod(pod)
}
