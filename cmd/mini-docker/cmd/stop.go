package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mini-docker/mini-docker/internal/runtime"
)

var flagStopTime int

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().IntVarP(&flagStopTime, "time", "t", 10, "seconds to wait after SIGTERM before SIGKILL")
}

var stopCmd = &cobra.Command{
	Use:   "stop CONTAINER [CONTAINER...]",
	Short: "Stop running containers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		grace := time.Duration(flagStopTime) * time.Second
		if flagStopTime < 0 {
			grace = runtime.DefaultStopGrace
		}

		for _, token := range args {
			if err := m.Stop(token, grace); err != nil {
				return err
			}
			cmd.Println(token)
		}
		return nil
	},
}
