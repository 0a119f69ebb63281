// Package runtime is the lifecycle controller: create / start /
// stop / remove / exec / list / inspect / logs over the metadata store,
// driving the launch pipeline and inverting every cgroup and overlay
// acquisition on the way down.
package runtime

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/cgroup"
	"github.com/mini-docker/mini-docker/internal/conf"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/store"
	"github.com/mini-docker/mini-docker/internal/util"
)

type Manager struct {
	store *store.Store
	cg    *cgroup.Controller
	roots conf.Roots

	// serializes mutating operations per container ID within this
	// process; cross-process writers are last-writer-wins
	locks util.IDMutex[string]
}

// New opens a manager over the environment-resolved roots.
func New() (*Manager, error) {
	return NewWithRoots(conf.ResolveRoots(), conf.CgroupRoot())
}

// NewWithRoots opens a manager with explicit roots, for tests.
func NewWithRoots(roots conf.Roots, cgroupRoot string) (*Manager, error) {
	st, err := store.New(roots.DataRoot)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(roots.RunRoot, 0755); err != nil {
		return nil, runtimeerr.Syscall("mkdir run root", err)
	}

	return &Manager{
		store: st,
		cg:    cgroup.New(cgroupRoot),
		roots: roots,
		locks: util.NewIDMutex[string](),
	}, nil
}

// Store exposes the underlying metadata store for read-only callers.
func (m *Manager) Store() *store.Store { return m.store }

// processAlive is the kill(pid, 0) liveness probe.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
