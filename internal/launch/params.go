package launch

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"

	"github.com/mini-docker/mini-docker/internal/types"
)

// InitArg and ExecInitArg are the argv[1] values that divert main()
// into the child sides of start and exec before any CLI parsing.
const (
	InitArg     = "mini-docker-init"
	ExecInitArg = "mini-docker-exec-init"
)

// Sync pipe fd numbers in the child, assigned via ExtraFiles.
const (
	childSyncReadFd  = 3 // parent -> child
	childSyncWriteFd = 4 // child -> parent
)

// Params is everything the child side of start needs, encoded into its
// argv so nothing depends on post-fork inherited state.
type Params struct {
	Record     *types.ContainerRecord
	CgroupRoot string
	DataRoot   string

	// pod joins: namespaces to enter on the infra process before
	// unsharing the rest
	InfraPID         int
	SharedNamespaces []types.Namespace

	// infra mode: skip filesystem/cap/seccomp setup and pause forever
	// after the namespaces are up
	Infra bool
}

// ExecParams is the child-side configuration for exec.
type ExecParams struct {
	InitPID      int
	Namespaces   []types.Namespace
	Command      []string
	Workdir      string
	Env          []string
	Capabilities []string
	Rootless     bool
}

func EncodeParams[T any](p T) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func DecodeParams[T any](s string, p *T) error {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(p)
}
