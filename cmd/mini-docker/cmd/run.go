package cmd

import (
	"github.com/spf13/cobra"
)

var (
	runFlags   containerFlags
	flagRunRm  bool
	flagDetach bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&flagRunRm, "rm", false, "remove the container after it exits")
	runCmd.Flags().BoolVarP(&flagDetach, "detach", "d", false, "run in the background and print the container ID")
}

var runCmd = &cobra.Command{
	Use:   "run ROOTFS|IMAGE COMMAND [ARG...]",
	Short: "Create and start a container in one step",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		opts, err := runFlags.options()
		if err != nil {
			return err
		}

		rec, err := m.Create(args[0], args[1:], opts)
		if err != nil {
			return err
		}

		sc, err := m.Start(rec.ID)
		if err != nil {
			if flagRunRm {
				_ = m.Remove(rec.ID, true, true)
			}
			return err
		}

		if flagDetach {
			cmd.Println(rec.ID)
			return nil
		}

		code, err := sc.Wait()
		if flagRunRm {
			_ = m.Remove(rec.ID, true, true)
		}
		if err != nil {
			return err
		}
		if code != 0 {
			return payloadExit(code)
		}
		return nil
	},
}
