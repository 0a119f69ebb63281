package runtime

import (
	"github.com/mini-docker/mini-docker/internal/types"
)

// List returns all container records, reconciling each running record
// against its init process first.
func (m *Manager) List(includeStopped bool) ([]*types.ContainerRecord, error) {
	recs, err := m.store.ListContainers(true)
	if err != nil {
		return nil, err
	}

	out := recs[:0]
	for _, rec := range recs {
		m.refreshStatus(rec)
		if !includeStopped && rec.Status != types.ContainerStateRunning {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Inspect resolves token and returns the (reconciled) record.
func (m *Manager) Inspect(token string) (*types.ContainerRecord, error) {
	rec, err := m.store.LoadContainer(token)
	if err != nil {
		return nil, err
	}
	m.refreshStatus(rec)
	return rec, nil
}
