package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemoryString(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"512", 512},
		{"512b", 512},
		{"512B", 512},
		{"1k", 1024},
		{"2KB", 2048},
		{"512m", 512 << 20},
		{"512MB", 512 << 20},
		{"1G", 1 << 30},
		{"4gb", 4 << 30},
		{" 64M ", 64 << 20},
	}
	for _, tt := range tests {
		got, err := ParseMemoryString(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseMemoryStringRejects(t *testing.T) {
	for _, in := range []string{"", "M", "12T", "1.5G", "-1M", "abc", "99999999999999999999G"} {
		_, err := ParseMemoryString(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestResolveRootsEnvOverride(t *testing.T) {
	t.Setenv("MINI_DOCKER_ROOT", "/custom/data")
	t.Setenv("MINI_DOCKER_RUN", "/custom/run")

	roots := ResolveRoots()
	assert.Equal(t, "/custom/data", roots.DataRoot)
	assert.Equal(t, "/custom/run", roots.RunRoot)
}

func TestResolveRootsNonRootDefaults(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root resolves to /var/lib; this case needs an unprivileged uid")
	}
	t.Setenv("MINI_DOCKER_ROOT", "")
	t.Setenv("MINI_DOCKER_RUN", "")
	t.Setenv("XDG_DATA_HOME", "/home/u/.local/share")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	roots := ResolveRoots()
	assert.Equal(t, filepath.Join("/home/u/.local/share", "mini-docker"), roots.DataRoot)
	assert.Equal(t, filepath.Join("/run/user/1000", "mini-docker"), roots.RunRoot)
}

func TestResolveRootsRootDefaults(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("needs euid 0 for the privileged default roots")
	}
	t.Setenv("MINI_DOCKER_ROOT", "")
	t.Setenv("MINI_DOCKER_RUN", "")

	roots := ResolveRoots()
	assert.Equal(t, "/var/lib/mini-docker", roots.DataRoot)
	assert.Equal(t, "/var/run/mini-docker", roots.RunRoot)
}

func TestResolveRootsTmpFallback(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root resolves to /var/run; this case needs an unprivileged uid")
	}
	t.Setenv("MINI_DOCKER_ROOT", "")
	t.Setenv("MINI_DOCKER_RUN", "")
	t.Setenv("XDG_RUNTIME_DIR", "")

	roots := ResolveRoots()
	assert.Equal(t, fmt.Sprintf("/tmp/mini-docker-%d", os.Getuid()), roots.RunRoot)
}

func TestCgroupRootOverride(t *testing.T) {
	t.Setenv("MINI_DOCKER_CGROUP_ROOT", "/tmp/fake-cgroup")
	assert.Equal(t, "/tmp/fake-cgroup", CgroupRoot())

	t.Setenv("MINI_DOCKER_CGROUP_ROOT", "")
	assert.Equal(t, "/sys/fs/cgroup", CgroupRoot())
}
