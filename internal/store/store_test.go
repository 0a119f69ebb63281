package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-docker/mini-docker/internal/types"
)

func testRecord(id, name string) *types.ContainerRecord {
	return &types.ContainerRecord{
		ID:             id,
		Name:           name,
		Rootfs:         "/tmp/rootfs",
		Command:        []string{"/bin/sh"},
		Hostname:       name,
		Workdir:        "/",
		Namespaces:     types.DefaultNamespaces,
		SeccompEnabled: true,
		Status:         types.ContainerStateCreated,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateLoadRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	rec := testRecord("abcdef012345", "brave-walrus")
	require.NoError(t, s.CreateContainer(rec))

	loaded, err := s.LoadContainer("abcdef012345")
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
}

func TestLoadByPrefixAndName(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.CreateContainer(testRecord("aaaa00000001", "first-fox")))
	require.NoError(t, s.CreateContainer(testRecord("bbbb00000002", "second-seal")))

	byPrefix, err := s.LoadContainer("bbbb")
	require.NoError(t, err)
	assert.Equal(t, "second-seal", byPrefix.Name)

	byName, err := s.LoadContainer("first-fox")
	require.NoError(t, err)
	assert.Equal(t, "aaaa00000001", byName.ID)

	_, err = s.LoadContainer("nope")
	require.Error(t, err)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.CreateContainer(testRecord("aaaa00000001", "same-name")))
	err = s.CreateContainer(testRecord("bbbb00000002", "same-name"))
	require.Error(t, err)
}

func TestDeleteTwiceReturnsNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	rec := testRecord("aaaa00000001", "gone-goose")
	require.NoError(t, s.CreateContainer(rec))

	require.NoError(t, s.DeleteContainer(rec.ID))
	err = s.DeleteContainer(rec.ID)
	require.Error(t, err)
}

func TestUnknownFieldsSurviveReadModifyWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	rec := testRecord("aaaa00000001", "keep-kiwi")
	require.NoError(t, s.CreateContainer(rec))

	// a newer version wrote an extra field this build doesn't know
	cfgPath := filepath.Join(s.ContainerDir(rec.ID), "config.json")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["future_field"] = json.RawMessage(`{"nested":true}`)
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, data, 0644))

	loaded, err := s.LoadContainer(rec.ID)
	require.NoError(t, err)
	loaded.Status = types.ContainerStateStopped
	require.NoError(t, s.SaveContainer(loaded))

	data, err = os.ReadFile(cfgPath)
	require.NoError(t, err)
	var after map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &after))
	assert.JSONEq(t, `{"nested":true}`, string(after["future_field"]))
	assert.JSONEq(t, `"stopped"`, string(after["status"]))
}

func TestListContainersFilters(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	stopped := testRecord("aaaa00000001", "idle-ibex")
	running := testRecord("bbbb00000002", "busy-bee")
	running.Status = types.ContainerStateRunning
	running.PID = 12345
	require.NoError(t, s.CreateContainer(stopped))
	require.NoError(t, s.CreateContainer(running))

	all, err := s.ListContainers(true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyRunning, err := s.ListContainers(false)
	require.NoError(t, err)
	require.Len(t, onlyRunning, 1)
	assert.Equal(t, "busy-bee", onlyRunning[0].Name)
}

func TestPodRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	pod := &types.PodRecord{
		ID:               NewPodID(),
		Name:             "web",
		Hostname:         "web",
		SharedNamespaces: types.DefaultSharedNamespaces,
		Status:           types.PodStateCreated,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreatePod(pod))

	loaded, err := s.LoadPod("web")
	require.NoError(t, err)
	assert.Equal(t, pod, loaded)

	loaded.Containers = append(loaded.Containers, "aaaa00000001")
	require.NoError(t, s.SavePod(loaded))

	again, err := s.LoadPod(pod.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa00000001"}, again.Containers)
}

func TestResolveRootfsPathAndImage(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	rootfs := filepath.Join(dir, "rootfs")
	require.NoError(t, os.MkdirAll(rootfs, 0755))

	got, err := s.ResolveRootfs(rootfs)
	require.NoError(t, err)
	assert.Equal(t, rootfs, got)

	_, err = s.ResolveRootfs(filepath.Join(dir, "missing"))
	require.Error(t, err)

	img := &types.ImageRecord{
		ID:        NewImageID(),
		Name:      "alpine",
		RootfsDir: rootfs,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveImage(img))

	got, err = s.ResolveRootfs("alpine")
	require.NoError(t, err)
	assert.Equal(t, rootfs, got)
}
