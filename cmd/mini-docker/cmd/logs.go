package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mini-docker/mini-docker/internal/ctrlog"
)

var (
	flagLogsFollow     bool
	flagLogsTail       int
	flagLogsTimestamps bool
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&flagLogsFollow, "follow", "f", false, "keep streaming appended output")
	logsCmd.Flags().IntVar(&flagLogsTail, "tail", 0, "only show the last N lines")
	logsCmd.Flags().BoolVarP(&flagLogsTimestamps, "timestamps", "t", false, "show per-line timestamps")
}

var logsCmd = &cobra.Command{
	Use:   "logs CONTAINER",
	Short: "Show a container's log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		// interrupt is handled process-wide in Execute; follow just
		// streams until then
		stop := make(chan struct{})

		return m.Logs(args[0], cmd.OutOrStdout(), ctrlog.ReadOptions{
			Follow:     flagLogsFollow,
			Tail:       flagLogsTail,
			Timestamps: flagLogsTimestamps,
		}, stop)
	},
}
