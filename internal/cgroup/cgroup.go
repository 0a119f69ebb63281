// Package cgroup creates, populates, limits, and destroys the cgroup
// v2 groups containers run in: one sub-group per container under a
// shared mini-docker parent.
package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
	"github.com/mini-docker/mini-docker/internal/util"
)

func killPid(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

const parentGroupName = "mini-docker"

var wantedControllers = []string{"cpu", "memory", "pids", "io"}

// Controller manages the parent cgroup and its per-container children.
type Controller struct {
	root string // e.g. /sys/fs/cgroup
}

// New returns a Controller rooted at cgroupRoot (normally
// conf.CgroupRoot()). It does not touch the filesystem.
func New(cgroupRoot string) *Controller {
	return &Controller{root: cgroupRoot}
}

// Root returns the cgroup v2 mount point this controller was opened at.
func (c *Controller) Root() string { return c.root }

func (c *Controller) parentDir() string {
	return filepath.Join(c.root, parentGroupName)
}

// EnsureParent checks the v2 prerequisite (cgroup.controllers exists)
// and best-effort enables {cpu,memory,pids,io} on the parent group's
// subtree_control. Each controller that fails to enable is logged and
// skipped; it never fails container creation.
func (c *Controller) EnsureParent() error {
	if _, err := os.Stat(filepath.Join(c.root, "cgroup.controllers")); err != nil {
		return runtimeerr.New(runtimeerr.KindPermissionDenied, "cgroup.controllers", err)
	}

	if err := os.MkdirAll(c.parentDir(), 0755); err != nil {
		return runtimeerr.Syscall("mkdir parent cgroup", err)
	}

	// the root's subtree_control makes the controllers available in the
	// parent group; the parent's own makes them available in each
	// container sub-group
	for _, subtreeFile := range []string{
		filepath.Join(c.root, "cgroup.subtree_control"),
		filepath.Join(c.parentDir(), "cgroup.subtree_control"),
	} {
		for _, ctl := range wantedControllers {
			if err := appendFile(subtreeFile, "+"+ctl); err != nil {
				logrus.WithError(err).WithField("controller", ctl).Warn("cgroup: failed to enable subtree controller")
			}
		}
	}

	return nil
}

// Group is a single container's cgroup directory.
type Group struct {
	dir string
}

// Create makes <root>/mini-docker/<id> and returns a handle to it.
func (c *Controller) Create(id string) (*Group, error) {
	dir := filepath.Join(c.parentDir(), id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, runtimeerr.Syscall("mkdir container cgroup", err)
	}
	return &Group{dir: dir}, nil
}

// Open returns a handle to an existing container cgroup directory
// without creating it, for stop()/destroy() on an already-created group.
func (c *Controller) Open(id string) *Group {
	return &Group{dir: filepath.Join(c.parentDir(), id)}
}

// SetLimits writes cpu.max, memory.max, and pids.max for the fields
// that are set. A write failure for a given field is logged and that
// field is left out of applied; it never aborts the remaining writes.
func (g *Group) SetLimits(r *types.Resources) types.AppliedResources {
	var applied types.AppliedResources

	if r.CPUQuotaUS != nil {
		period := r.CPUPeriodUS
		if period == 0 {
			period = 100000
		}
		val := fmt.Sprintf("%d %d", *r.CPUQuotaUS, period)
		if err := g.writeAttr("cpu.max", val); err != nil {
			logrus.WithError(err).Warn("cgroup: failed to set cpu.max")
		} else {
			applied |= types.AppliedCPU
		}
	}

	if r.MemoryMB != nil {
		bytes := *r.MemoryMB * 1024 * 1024
		if err := g.writeAttr("memory.max", strconv.FormatInt(bytes, 10)); err != nil {
			logrus.WithError(err).Warn("cgroup: failed to set memory.max")
		} else {
			applied |= types.AppliedMemory
		}
	}

	if r.MaxPIDs != nil {
		if err := g.writeAttr("pids.max", strconv.FormatInt(*r.MaxPIDs, 10)); err != nil {
			logrus.WithError(err).Warn("cgroup: failed to set pids.max")
		} else {
			applied |= types.AppliedPIDs
		}
	}

	return applied
}

// AddSelf admits the calling process into the group. Writing 0 to
// cgroup.procs moves the writer, which sidesteps pid-namespace
// translation when called from inside the container's pid namespace.
func (g *Group) AddSelf() error {
	if err := g.writeAttr("cgroup.procs", "0"); err != nil {
		return runtimeerr.Syscall("cgroup.procs", err)
	}
	return nil
}

// AddProcess writes pid to cgroup.procs, admitting it into the group.
func (g *Group) AddProcess(pid int) error {
	if err := g.writeAttr("cgroup.procs", strconv.Itoa(pid)); err != nil {
		return runtimeerr.Syscall("cgroup.procs", err)
	}
	return nil
}

// OOMKillCount reads the oom_kill counter from memory.events.
func (g *Group) OOMKillCount() (int64, error) {
	data, err := util.ReadFileFast(filepath.Join(g.dir, "memory.events"))
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "oom_kill" {
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return 0, err
			}
			return n, nil
		}
	}
	return 0, nil
}

// Destroy best-effort kills remaining processes in the group and
// removes its directory.
func (g *Group) Destroy() error {
	if pids, err := g.readProcs(); err == nil {
		for _, pid := range pids {
			_ = killPid(pid)
		}
	}

	err := os.Remove(g.dir)
	if err != nil && !os.IsNotExist(err) {
		return runtimeerr.Syscall("rmdir cgroup", err)
	}
	return nil
}

func (g *Group) readProcs() ([]int, error) {
	data, err := util.ReadFileFast(filepath.Join(g.dir, "cgroup.procs"))
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func (g *Group) writeAttr(name, val string) error {
	return os.WriteFile(filepath.Join(g.dir, name), []byte(val), 0644)
}

func appendFile(path, val string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(val)
	return err
}
