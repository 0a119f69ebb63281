package runtime

import (
	"io"
	"os"

	"github.com/mini-docker/mini-docker/internal/ctrlog"
	"github.com/mini-docker/mini-docker/internal/runtimeerr"
)

// Logs streams a container's log to out.
func (m *Manager) Logs(token string, out io.Writer, opts ctrlog.ReadOptions, stop <-chan struct{}) error {
	rec, err := m.store.LoadContainer(token)
	if err != nil {
		return err
	}

	err = ctrlog.Read(m.store.LogPath(rec.ID), out, opts, stop)
	if err != nil && os.IsNotExist(err) {
		return runtimeerr.New(runtimeerr.KindNotFound, "logs", err)
	}
	return err
}
