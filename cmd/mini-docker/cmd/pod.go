package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mini-docker/mini-docker/internal/types"
)

var (
	flagPodHostname string
	flagPodShare    []string
	flagPodRmForce  bool
	flagPodStopTime int
)

func init() {
	rootCmd.AddCommand(podCmd)
	podCmd.AddCommand(podCreateCmd, podStartCmd, podStopCmd, podRmCmd, podPsCmd, podInspectCmd)

	podCreateCmd.Flags().StringVar(&flagPodHostname, "hostname", "", "shared UTS hostname (default: pod name)")
	podCreateCmd.Flags().StringArrayVar(&flagPodShare, "share", nil, "namespaces the pod shares (repeatable; default net,ipc,uts)")
	podStopCmd.Flags().IntVarP(&flagPodStopTime, "time", "t", 10, "seconds to wait after SIGTERM before SIGKILL")
	podRmCmd.Flags().BoolVarP(&flagPodRmForce, "force", "f", false, "also remove member containers")
}

var podCmd = &cobra.Command{
	Use:   "pod",
	Short: "Manage pods of containers sharing namespaces",
}

var podCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		var shared []types.Namespace
		for _, name := range flagPodShare {
			shared = append(shared, types.Namespace(name))
		}

		pod, err := m.PodCreate(args[0], flagPodHostname, shared)
		if err != nil {
			return err
		}
		cmd.Println(pod.ID)
		return nil
	},
}

var podStartCmd = &cobra.Command{
	Use:   "start POD",
	Short: "Start a pod's infra process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		pod, err := m.PodStart(args[0])
		if err != nil {
			return err
		}
		cmd.Println(pod.InfraPID)
		return nil
	},
}

var podStopCmd = &cobra.Command{
	Use:   "stop POD",
	Short: "Stop a pod and its containers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		return m.PodStop(args[0], time.Duration(flagPodStopTime)*time.Second)
	},
}

var podRmCmd = &cobra.Command{
	Use:   "rm POD",
	Short: "Remove a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		return m.PodRemove(args[0], flagPodRmForce)
	},
}

var podPsCmd = &cobra.Command{
	Use:   "ps",
	Short: "List pods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		pods, err := m.PodList()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintf(w, "POD ID\tNAME\tSTATUS\tINFRA PID\tCONTAINERS\n")
		for _, pod := range pods {
			infra := ""
			if pod.InfraPID != 0 {
				infra = fmt.Sprintf("%d", pod.InfraPID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				pod.ID, pod.Name, pod.Status, infra, len(pod.Containers))
		}
		return nil
	},
}

var podInspectCmd = &cobra.Command{
	Use:   "inspect POD",
	Short: "Show a pod's full record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		pod, err := m.PodInspect(args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pod)
	},
}
