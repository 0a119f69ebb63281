package main

import (
	"os"

	"github.com/mini-docker/mini-docker/cmd/mini-docker/cmd"
	"github.com/mini-docker/mini-docker/internal/conf"
	"github.com/mini-docker/mini-docker/internal/launch"
)

func main() {
	// child-side re-exec entry points; must run before any CLI parsing
	if len(os.Args) > 2 {
		switch os.Args[1] {
		case launch.InitArg:
			launch.RunChild()
		case launch.ExecInitArg:
			launch.RunExecChild()
		}
	}

	conf.InitLogging()
	os.Exit(cmd.Execute())
}
