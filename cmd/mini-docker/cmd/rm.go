package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagRmForce   bool
	flagRmVolumes bool
)

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolVarP(&flagRmForce, "force", "f", false, "kill a running container before removing it")
	rmCmd.Flags().BoolVarP(&flagRmVolumes, "volumes", "v", false, "also remove the container's volumes")
}

var rmCmd = &cobra.Command{
	Use:   "rm CONTAINER [CONTAINER...]",
	Short: "Remove containers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		for _, token := range args {
			if err := m.Remove(token, flagRmForce, flagRmVolumes); err != nil {
				return err
			}
			cmd.Println(token)
		}
		return nil
	},
}
