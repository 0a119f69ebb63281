// Package conf resolves the data and run root directories and other
// ambient environment configuration.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
)

// Roots is the pair of resolved root directories for a controller
// invocation.
type Roots struct {
	DataRoot string
	RunRoot  string
}

// ResolveRoots picks the data and run roots: MINI_DOCKER_ROOT wins,
// then the privileged /var/lib default for root, then the XDG dirs.
func ResolveRoots() Roots {
	if root := os.Getenv("MINI_DOCKER_ROOT"); root != "" {
		run := os.Getenv("MINI_DOCKER_RUN")
		if run == "" {
			run = fallbackRunRoot()
		}
		return Roots{DataRoot: root, RunRoot: run}
	}

	if os.Geteuid() == 0 {
		return Roots{
			DataRoot: "/var/lib/mini-docker",
			RunRoot:  "/var/run/mini-docker",
		}
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/tmp"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return Roots{
		DataRoot: filepath.Join(dataHome, "mini-docker"),
		RunRoot:  fallbackRunRoot(),
	}
}

func fallbackRunRoot() string {
	if run := os.Getenv("MINI_DOCKER_RUN"); run != "" {
		return run
	}
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "mini-docker")
	}
	return fmt.Sprintf("/tmp/mini-docker-%d", os.Getuid())
}

// CgroupRoot returns the host cgroup v2 mount point, overridable for
// tests run inside an outer container.
func CgroupRoot() string {
	if root := os.Getenv("MINI_DOCKER_CGROUP_ROOT"); root != "" {
		return root
	}
	return "/sys/fs/cgroup"
}
