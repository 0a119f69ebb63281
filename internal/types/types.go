// Package types holds the on-disk and in-memory records shared by the
// metadata store, the launch pipeline, and the lifecycle controller.
package types

import "time"

// Namespace is a kernel isolation unit a container can be given.
type Namespace string

const (
	NamespacePID    Namespace = "pid"
	NamespaceUTS    Namespace = "uts"
	NamespaceMount  Namespace = "mnt"
	NamespaceIPC    Namespace = "ipc"
	NamespaceNet    Namespace = "net"
	NamespaceUser   Namespace = "user"
	NamespaceCgroup Namespace = "cgroup"
)

// DefaultNamespaces is the namespace set create() uses when none is given.
var DefaultNamespaces = []Namespace{NamespacePID, NamespaceUTS, NamespaceMount, NamespaceIPC, NamespaceNet}

// Resources is the optional resource-limit configuration for a container,
// written into the cgroup controller by internal/cgroup.
type Resources struct {
	CPUQuotaUS  *int64 `json:"cpu_quota_us,omitempty"`
	CPUPeriodUS int64  `json:"cpu_period_us,omitempty"`
	MemoryMB    *int64 `json:"memory_mb,omitempty"`
	MaxPIDs     *int64 `json:"max_pids,omitempty"`

	// Applied records which of the above were actually written to the
	// cgroup; a field can be requested but dropped with a warning if
	// its controller isn't available. Surfaced through inspect so a
	// dropped limit is distinguishable from an enforced one.
	Applied AppliedResources `json:"applied,omitempty"`
}

// AppliedResources is a bitmask of which resource limits were successfully
// written to the container's cgroup.
type AppliedResources uint8

const (
	AppliedCPU AppliedResources = 1 << iota
	AppliedMemory
	AppliedPIDs
)

// OverlayPaths is the four-directory overlay filesystem layer set,
// present iff UseOverlay is true.
type OverlayPaths struct {
	Lower  string `json:"lower"`
	Upper  string `json:"upper"`
	Work   string `json:"work"`
	Merged string `json:"merged"`
}

// ContainerRecord is the persisted state of a single container.
type ContainerRecord struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Rootfs   string            `json:"rootfs"`
	Command  []string          `json:"command"`
	Hostname string            `json:"hostname"`
	Workdir  string            `json:"workdir"`
	Env      map[string]string `json:"env"`

	UseOverlay   bool          `json:"use_overlay"`
	OverlayPaths *OverlayPaths `json:"overlay_paths,omitempty"`

	Resources Resources `json:"resources"`

	Namespaces      []Namespace `json:"namespaces"`
	Capabilities    []string    `json:"capabilities,omitempty"`
	SeccompEnabled  bool        `json:"seccomp_enabled"`
	Rootless        bool        `json:"rootless"`

	PodID string `json:"pod_id,omitempty"`

	Status ContainerState `json:"status"`
	PID    int            `json:"pid,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`

	// Unknown is any field present in config.json on disk that this
	// version of the record type doesn't recognize; preserved verbatim
	// across read-modify-write.
	Unknown map[string]any `json:"-"`
}

// HasNamespace reports whether ns is in the container's namespace set.
func (r *ContainerRecord) HasNamespace(ns Namespace) bool {
	for _, n := range r.Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}

// PodRecord groups containers sharing net/ipc/uts namespaces around an
// infra process that holds those namespaces open.
type PodRecord struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Hostname         string      `json:"hostname"`
	SharedNamespaces []Namespace `json:"shared_namespaces"`
	InfraPID         int         `json:"infra_pid,omitempty"`
	Containers       []string    `json:"containers"`
	Status           PodState    `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
}

// DefaultSharedNamespaces is the default namespace set shared within a pod.
var DefaultSharedNamespaces = []Namespace{NamespaceNet, NamespaceIPC, NamespaceUTS}

// ImageRecord is a named base rootfs resolvable in place of a raw
// rootfs path at create time.
type ImageRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RootfsDir string    `json:"rootfs_dir"`
	CreatedAt time.Time `json:"created_at"`
}
