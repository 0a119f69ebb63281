package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var flagPsAll bool

func init() {
	rootCmd.AddCommand(psCmd)
	psCmd.Flags().BoolVarP(&flagPsAll, "all", "a", false, "include stopped containers")
}

var psCmd = &cobra.Command{
	Use:     "ps",
	Aliases: []string{"list"},
	Short:   "List containers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		recs, err := m.List(flagPsAll)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintf(w, "CONTAINER ID\tNAME\tSTATUS\tPID\tCOMMAND\tCREATED\n")
		for _, rec := range recs {
			pid := ""
			if rec.PID != 0 {
				pid = fmt.Sprintf("%d", rec.PID)
			}
			status := string(rec.Status)
			if rec.ExitCode != nil {
				status = fmt.Sprintf("%s (%d)", rec.Status, *rec.ExitCode)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.Name, status, pid,
				strings.Join(rec.Command, " "),
				rec.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}
