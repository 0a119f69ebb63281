package runtime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-docker/mini-docker/internal/conf"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

func testManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	roots := conf.Roots{
		DataRoot: filepath.Join(dir, "data"),
		RunRoot:  filepath.Join(dir, "run"),
	}
	// a fake cgroup root keeps these tests away from the host hierarchy
	m, err := NewWithRoots(roots, filepath.Join(dir, "cgroup"))
	require.NoError(t, err)

	rootfs := filepath.Join(dir, "rootfs")
	require.NoError(t, os.MkdirAll(filepath.Join(rootfs, "bin"), 0755))
	return m, rootfs
}

func TestCreateDefaults(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{})
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{12}$`, rec.ID)
	assert.Regexp(t, types.NameRegex, rec.Name)
	assert.Equal(t, rec.Name, rec.Hostname)
	assert.Equal(t, "/", rec.Workdir)
	assert.Equal(t, types.DefaultNamespaces, rec.Namespaces)
	assert.True(t, rec.SeccompEnabled)
	assert.Equal(t, types.ContainerStateCreated, rec.Status)
	assert.Zero(t, rec.PID)
}

func TestCreateValidation(t *testing.T) {
	m, rootfs := testManager(t)

	_, err := m.Create(rootfs, nil, CreateOptions{})
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindInvalidInput))

	_, err = m.Create("/definitely/not/here", []string{"/bin/sh"}, CreateOptions{})
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindInvalidInput))

	neg := int64(-5)
	_, err = m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{
		Resources: types.Resources{MemoryMB: &neg},
	})
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindInvalidInput))

	_, err = m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{
		Capabilities: []string{"not_a_cap"},
	})
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindInvalidInput))
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	m, rootfs := testManager(t)

	_, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{Name: "twin-tiger"})
	require.NoError(t, err)
	_, err = m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{Name: "twin-tiger"})
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindStateConflict))
}

func TestCreateRootlessForcesUserNamespace(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{Rootless: true})
	require.NoError(t, err)
	assert.True(t, rec.HasNamespace(types.NamespaceUser))
}

func TestCreateOverlayAllocatesLayerSet(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{UseOverlay: true})
	require.NoError(t, err)
	require.NotNil(t, rec.OverlayPaths)

	for _, dir := range []string{rec.OverlayPaths.Lower, rec.OverlayPaths.Upper,
		rec.OverlayPaths.Work, rec.OverlayPaths.Merged} {
		st, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, st.IsDir())
	}
}

func TestStopNotRunningIsStateConflict(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{})
	require.NoError(t, err)

	err = m.Stop(rec.ID, time.Second)
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindStateConflict))
}

func TestRemoveTwiceReturnsNotFound(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{UseOverlay: true})
	require.NoError(t, err)

	require.NoError(t, m.Remove(rec.ID, false, true))
	assert.NoDirExists(t, m.store.ContainerDir(rec.ID))
	assert.NoDirExists(t, filepath.Join(m.store.DataRoot(), "overlay", rec.ID))

	err = m.Remove(rec.ID, false, true)
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindNotFound))
}

func TestRefreshStatusReapsDeadInit(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{})
	require.NoError(t, err)

	// simulate a record left behind by a crashed controller: running,
	// but the pid is long gone
	rec.Status = types.ContainerStateRunning
	rec.PID = 1 << 22 // beyond pid_max
	require.NoError(t, m.store.SaveContainer(rec))

	m.refreshStatus(rec)
	assert.Equal(t, types.ContainerStateStopped, rec.Status)
	assert.Zero(t, rec.PID)

	reloaded, err := m.store.LoadContainer(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ContainerStateStopped, reloaded.Status)
}

func TestExecRequiresRunning(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{})
	require.NoError(t, err)

	_, err = m.Exec(rec.ID, []string{"id"}, ExecOptions{})
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindStateConflict))
}

func TestPodMembership(t *testing.T) {
	m, rootfs := testManager(t)

	pod, err := m.PodCreate("web", "", nil)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultSharedNamespaces, pod.SharedNamespaces)
	assert.Equal(t, "web", pod.Hostname)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{Pod: "web"})
	require.NoError(t, err)
	assert.Equal(t, pod.ID, rec.PodID)

	loaded, err := m.store.LoadPod(pod.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, loaded.Containers)

	// removal with members is refused without force
	err = m.PodRemove(pod.ID, false)
	assert.True(t, runtimeerr.Is(err, runtimeerr.KindStateConflict))

	require.NoError(t, m.Remove(rec.ID, false, false))
	loaded, err = m.store.LoadPod(pod.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Containers)

	require.NoError(t, m.PodRemove(pod.ID, false))
}

func TestListReconcilesStaleRunning(t *testing.T) {
	m, rootfs := testManager(t)

	rec, err := m.Create(rootfs, []string{"/bin/sh"}, CreateOptions{})
	require.NoError(t, err)
	rec.Status = types.ContainerStateRunning
	rec.PID = 1 << 22
	require.NoError(t, m.store.SaveContainer(rec))

	running, err := m.List(false)
	require.NoError(t, err)
	assert.Empty(t, running)

	all, err := m.List(true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, types.ContainerStateStopped, all[0].Status)
}
