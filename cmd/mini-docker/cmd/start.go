package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagStartDetach bool

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().BoolVarP(&flagStartDetach, "detach", "d", false, "start and return instead of waiting for exit")
}

var startCmd = &cobra.Command{
	Use:   "start CONTAINER",
	Short: "Start a created container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		sc, err := m.Start(args[0])
		if err != nil {
			return err
		}

		if flagStartDetach {
			fmt.Fprintln(cmd.OutOrStdout(), sc.PID())
			return nil
		}

		code, err := sc.Wait()
		if err != nil {
			return err
		}
		if code != 0 {
			return payloadExit(code)
		}
		return nil
	},
}
