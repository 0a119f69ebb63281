package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mini-docker/mini-docker/internal/runtime"
	"github.com/mini-docker/mini-docker/internal/types"
)

var (
	flagExecWorkdir string
	flagExecEnv     []string
	flagExecNs      []string
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVarP(&flagExecWorkdir, "workdir", "w", "", "working directory inside the container")
	execCmd.Flags().StringArrayVarP(&flagExecEnv, "env", "e", nil, "extra environment variable KEY=VALUE (repeatable)")
	execCmd.Flags().StringArrayVar(&flagExecNs, "ns", nil, "namespaces to join (repeatable; default: all of the container's)")
}

var execCmd = &cobra.Command{
	Use:   "exec CONTAINER COMMAND [ARG...]",
	Short: "Run a command inside a running container",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		opts := runtime.ExecOptions{Workdir: flagExecWorkdir}
		for _, name := range flagExecNs {
			opts.Namespaces = append(opts.Namespaces, types.Namespace(name))
		}
		if len(flagExecEnv) > 0 {
			opts.Env = make(map[string]string, len(flagExecEnv))
			for _, kv := range flagExecEnv {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --env %q: want KEY=VALUE", kv)
				}
				opts.Env[k] = v
			}
		}

		code, err := m.Exec(args[0], args[1:], opts)
		if err != nil {
			return err
		}
		if code != 0 {
			return payloadExit(code)
		}
		return nil
	},
}
