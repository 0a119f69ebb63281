package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/mini-docker/mini-docker/internal/runtime"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
)

var rootCmd = &cobra.Command{
	Use:   "mini-docker",
	Short: "A small Linux container runtime",
	Long: `mini-docker launches commands inside isolated Linux containers built
from namespaces, cgroups v2, overlayfs, seccomp, and capabilities.

Containers are addressed by full ID, a unique ID prefix, or name.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCodeInterrupt is what the process exits with when the user
// interrupts a foreground command.
const exitCodeInterrupt = 130

// payloadExit carries a container/exec payload's exit status through
// cobra's error return so Execute can use it as the process exit code.
type payloadExit int

func (e payloadExit) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// Execute runs the CLI and returns the process exit code: 0 on success,
// 1 on a controller error, 130 on interrupt, or the payload's own
// status.
func Execute() int {
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, unix.SIGTERM)
	go func() {
		<-interrupted
		os.Exit(exitCodeInterrupt)
	}()

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var pe payloadExit
	if errors.As(err, &pe) {
		return int(pe)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var rerr *runtimeerr.Error
	if errors.As(err, &rerr) && rerr.Kind == runtimeerr.KindPermissionDenied {
		fmt.Fprintln(os.Stderr, "Hint: run as root, or pass --rootless.")
	}
	return 1
}

func newManager() (*runtime.Manager, error) {
	return runtime.New()
}
