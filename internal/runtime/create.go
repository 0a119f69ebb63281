package runtime

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mini-docker/mini-docker/internal/capability"
	"github.com/mini-docker/mini-docker/internal/overlay"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/store"
	"github.com/mini-docker/mini-docker/internal/types"
	"github.com/mini-docker/mini-docker/internal/util"
)

// CreateOptions are the optional knobs for Create; zero values mean
// defaults.
type CreateOptions struct {
	Name           string
	Hostname       string
	Workdir        string
	Env            map[string]string
	UseOverlay     bool
	Resources      types.Resources
	Namespaces     []types.Namespace
	Capabilities   []string
	SeccompDisable bool
	Rootless       bool
	Pod            string // pod token
}

// Create validates the request, allocates the ID, name, and (if
// requested) overlay layer set, and persists the record with
// status=created.
func (m *Manager) Create(imageOrRootfs string, command []string, opts CreateOptions) (*types.ContainerRecord, error) {
	if len(command) == 0 {
		return nil, runtimeerr.New(runtimeerr.KindInvalidInput, "create",
			fmt.Errorf("command must not be empty"))
	}
	if err := validateResources(&opts.Resources); err != nil {
		return nil, err
	}

	rootfs, err := m.store.ResolveRootfs(imageOrRootfs)
	if err != nil {
		return nil, err
	}
	if err := util.CheckPermsRX(rootfs, os.Geteuid(), os.Getegid()); err != nil {
		return nil, runtimeerr.New(runtimeerr.KindPermissionDenied, "create",
			fmt.Errorf("rootfs %s not readable: %w", rootfs, err))
	}

	name := opts.Name
	if name == "" {
		name = store.GenerateName(m.store.ContainerNameTaken)
	} else if m.store.ContainerNameTaken(name) {
		return nil, runtimeerr.New(runtimeerr.KindStateConflict, "create",
			fmt.Errorf("name %q already in use", name))
	}

	hostname := opts.Hostname
	if hostname == "" {
		hostname = name
	}
	workdir := opts.Workdir
	if workdir == "" {
		workdir = "/"
	}

	namespaces := opts.Namespaces
	if len(namespaces) == 0 {
		namespaces = append([]types.Namespace(nil), types.DefaultNamespaces...)
	}
	if opts.Rootless && !hasNamespace(namespaces, types.NamespaceUser) {
		namespaces = append(namespaces, types.NamespaceUser)
	}

	if len(opts.Capabilities) > 0 {
		// fail unknown names now, not in the child where the error is
		// only visible in the log
		if _, err := capability.ResolveNames(opts.Capabilities); err != nil {
			return nil, err
		}
	}

	var podID string
	if opts.Pod != "" {
		pod, err := m.store.LoadPod(opts.Pod)
		if err != nil {
			return nil, err
		}
		podID = pod.ID
	}

	rec := &types.ContainerRecord{
		ID:             store.NewContainerID(),
		Name:           name,
		Rootfs:         rootfs,
		Command:        command,
		Hostname:       hostname,
		Workdir:        workdir,
		Env:            opts.Env,
		UseOverlay:     opts.UseOverlay,
		Resources:      opts.Resources,
		Namespaces:     namespaces,
		Capabilities:   opts.Capabilities,
		SeccompEnabled: !opts.SeccompDisable,
		Rootless:       opts.Rootless,
		PodID:          podID,
		Status:         types.ContainerStateCreated,
		CreatedAt:      time.Now().UTC(),
	}

	if opts.UseOverlay {
		paths, err := overlay.Allocate(m.store.DataRoot(), rec.ID)
		if err != nil {
			return nil, err
		}
		rec.OverlayPaths = paths
	}

	if err := m.store.CreateContainer(rec); err != nil {
		if rec.OverlayPaths != nil {
			_ = overlay.Teardown(m.store.DataRoot(), rec.ID, rec.OverlayPaths)
		}
		return nil, err
	}

	if podID != "" {
		if err := m.addToPod(podID, rec.ID); err != nil {
			_ = m.store.DeleteContainer(rec.ID)
			if rec.OverlayPaths != nil {
				_ = overlay.Teardown(m.store.DataRoot(), rec.ID, rec.OverlayPaths)
			}
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"container": rec.ID,
		"name":      rec.Name,
		"op":        "create",
	}).Info("container created")
	return rec, nil
}

func validateResources(r *types.Resources) error {
	check := func(name string, v *int64) error {
		if v != nil && *v <= 0 {
			return runtimeerr.New(runtimeerr.KindInvalidInput, "create",
				fmt.Errorf("%s must be positive, got %d", name, *v))
		}
		return nil
	}
	if err := check("cpu_quota_us", r.CPUQuotaUS); err != nil {
		return err
	}
	if err := check("memory_mb", r.MemoryMB); err != nil {
		return err
	}
	if err := check("max_pids", r.MaxPIDs); err != nil {
		return err
	}
	if r.CPUPeriodUS < 0 {
		return runtimeerr.New(runtimeerr.KindInvalidInput, "create",
			fmt.Errorf("cpu_period_us must be positive, got %d", r.CPUPeriodUS))
	}
	return nil
}

func hasNamespace(set []types.Namespace, ns types.Namespace) bool {
	for _, s := range set {
		if s == ns {
			return true
		}
	}
	return false
}
