package cgroup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-docker/mini-docker/internal/types"
)

func int64p(v int64) *int64 { return &v }

func TestSetLimitsWritesExpectedFiles(t *testing.T) {
	dir := t.TempDir()
	g := &Group{dir: dir}

	applied := g.SetLimits(&types.Resources{
		CPUQuotaUS: int64p(50000),
		MemoryMB:   int64p(128),
		MaxPIDs:    int64p(32),
	})

	assert.Equal(t, types.AppliedCPU|types.AppliedMemory|types.AppliedPIDs, applied)

	cpuMax, err := os.ReadFile(filepath.Join(dir, "cpu.max"))
	require.NoError(t, err)
	assert.Equal(t, "50000 100000", string(cpuMax))

	memMax, err := os.ReadFile(filepath.Join(dir, "memory.max"))
	require.NoError(t, err)
	assert.Equal(t, "134217728", string(memMax))

	pidsMax, err := os.ReadFile(filepath.Join(dir, "pids.max"))
	require.NoError(t, err)
	assert.Equal(t, "32", string(pidsMax))
}

func TestSetLimitsSkipsMissingController(t *testing.T) {
	dir := t.TempDir()
	// memory.max can't be written (directory doesn't exist for it, so the
	// write fails and is absorbed as a best-effort warning).
	g := &Group{dir: filepath.Join(dir, "nonexistent")}

	applied := g.SetLimits(&types.Resources{MemoryMB: int64p(64)})
	assert.Equal(t, types.AppliedResources(0), applied)
}

func TestAddProcessWritesProcs(t *testing.T) {
	dir := t.TempDir()
	g := &Group{dir: dir}

	require.NoError(t, g.AddProcess(4321))

	data, err := os.ReadFile(filepath.Join(dir, "cgroup.procs"))
	require.NoError(t, err)
	assert.Equal(t, "4321", string(data))
}

func TestOOMKillCountParsesMemoryEvents(t *testing.T) {
	dir := t.TempDir()
	g := &Group{dir: dir}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "memory.events"),
		[]byte("low 0\nhigh 0\nmax 2\noom 1\noom_kill 3\n"), 0644))

	n, err := g.OOMKillCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDestroyRemovesDirectoryIdempotently(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "container")
	require.NoError(t, os.MkdirAll(sub, 0755))

	// a real cgroup directory rmdirs cleanly even though the kernel
	// shows attribute files in it; an empty dir models that here
	g := &Group{dir: sub}
	require.NoError(t, g.Destroy())
	require.NoError(t, g.Destroy()) // idempotent: second call sees ENOENT, still succeeds
}
