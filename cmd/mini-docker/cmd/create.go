package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mini-docker/mini-docker/internal/capability"
	"github.com/mini-docker/mini-docker/internal/conf"
	"github.com/mini-docker/mini-docker/internal/runtime"
	"github.com/mini-docker/mini-docker/internal/types"
)

type containerFlags struct {
	name      string
	hostname  string
	workdir   string
	env       []string
	overlay   bool
	memory    string
	cpuQuota  int64
	cpuPeriod int64
	pidsLimit int64
	ns          []string
	caps        []string
	minimalCaps bool
	noSeccomp   bool
	rootless    bool
	pod         string
}

func (f *containerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "container name (default: generated)")
	cmd.Flags().StringVar(&f.hostname, "hostname", "", "UTS hostname inside the container (default: name)")
	cmd.Flags().StringVarP(&f.workdir, "workdir", "w", "", "working directory inside the container")
	cmd.Flags().StringArrayVarP(&f.env, "env", "e", nil, "environment variable KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&f.overlay, "overlay", false, "give the container a writable overlay layer")
	cmd.Flags().StringVarP(&f.memory, "memory", "m", "", "memory limit, e.g. 512M or 1G")
	cmd.Flags().Int64Var(&f.cpuQuota, "cpu-quota", 0, "CPU quota in microseconds per period")
	cmd.Flags().Int64Var(&f.cpuPeriod, "cpu-period", 0, "CPU period in microseconds (default 100000)")
	cmd.Flags().Int64Var(&f.pidsLimit, "pids-limit", 0, "maximum number of processes")
	cmd.Flags().StringArrayVar(&f.ns, "ns", nil, "namespace to isolate: pid, uts, mnt, ipc, net, user, cgroup (repeatable; default pid,uts,mnt,ipc,net)")
	cmd.Flags().StringArrayVar(&f.caps, "cap", nil, "capability to grant instead of the default set (repeatable)")
	cmd.Flags().BoolVar(&f.minimalCaps, "minimal-caps", false, "grant only chown/setgid/setuid")
	cmd.Flags().BoolVar(&f.noSeccomp, "no-seccomp", false, "disable the seccomp syscall filter")
	cmd.Flags().BoolVar(&f.rootless, "rootless", false, "run without host root via a user namespace")
	cmd.Flags().StringVar(&f.pod, "pod", "", "pod to join")
}

func (f *containerFlags) options() (runtime.CreateOptions, error) {
	opts := runtime.CreateOptions{
		Name:           f.name,
		Hostname:       f.hostname,
		Workdir:        f.workdir,
		UseOverlay:     f.overlay,
		Capabilities:   f.caps,
		SeccompDisable: f.noSeccomp,
		Rootless:       f.rootless,
		Pod:            f.pod,
	}

	if len(f.env) > 0 {
		opts.Env = make(map[string]string, len(f.env))
		for _, kv := range f.env {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return opts, fmt.Errorf("invalid --env %q: want KEY=VALUE", kv)
			}
			opts.Env[k] = v
		}
	}

	if f.memory != "" {
		bytes, err := conf.ParseMemoryString(f.memory)
		if err != nil {
			return opts, err
		}
		mb := int64(bytes >> 20)
		if mb == 0 {
			mb = 1
		}
		opts.Resources.MemoryMB = &mb
	}
	if f.cpuQuota > 0 {
		opts.Resources.CPUQuotaUS = &f.cpuQuota
	}
	if f.cpuPeriod > 0 {
		opts.Resources.CPUPeriodUS = f.cpuPeriod
	}
	if f.pidsLimit > 0 {
		opts.Resources.MaxPIDs = &f.pidsLimit
	}

	for _, name := range f.ns {
		opts.Namespaces = append(opts.Namespaces, types.Namespace(name))
	}

	if f.minimalCaps {
		if len(f.caps) > 0 {
			return opts, fmt.Errorf("--minimal-caps and --cap are mutually exclusive")
		}
		for _, c := range capability.MinimalSet {
			opts.Capabilities = append(opts.Capabilities, c.Name())
		}
	}

	return opts, nil
}

var createFlags containerFlags

func init() {
	rootCmd.AddCommand(createCmd)
	createFlags.register(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create ROOTFS|IMAGE COMMAND [ARG...]",
	Short: "Create a container without starting it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		opts, err := createFlags.options()
		if err != nil {
			return err
		}

		rec, err := m.Create(args[0], args[1:], opts)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
		return nil
	},
}
