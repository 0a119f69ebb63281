package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mini-docker/mini-docker/internal/store"
	"github.com/mini-docker/mini-docker/internal/types"
)

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.AddCommand(imageAddCmd, imageLsCmd)
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage base rootfs images",
}

var imageAddCmd = &cobra.Command{
	Use:   "add NAME ROOTFS",
	Short: "Register an existing rootfs directory as a named image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		rootfs, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		if st, err := os.Stat(rootfs); err != nil || !st.IsDir() {
			return fmt.Errorf("rootfs %q is not an existing directory", rootfs)
		}

		rec := &types.ImageRecord{
			ID:        store.NewImageID(),
			Name:      args[0],
			RootfsDir: rootfs,
			CreatedAt: time.Now().UTC(),
		}
		if err := m.Store().SaveImage(rec); err != nil {
			return err
		}
		cmd.Println(rec.ID)
		return nil
	},
}

var imageLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		images, err := m.Store().ListImages()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintf(w, "IMAGE ID\tNAME\tROOTFS\tCREATED\n")
		for _, img := range images {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				img.ID, img.Name, img.RootfsDir, img.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}
