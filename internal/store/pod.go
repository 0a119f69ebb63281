package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

// CreatePod persists a new pod record.
func (s *Store) CreatePod(rec *types.PodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.mustListIDs("pods") {
		existing, err := s.loadPodByID(id)
		if err != nil {
			continue
		}
		if existing.Name == rec.Name {
			return runtimeerr.New(runtimeerr.KindStateConflict, "create pod",
				fmt.Errorf("pod name %q already in use", rec.Name))
		}
	}

	dir := s.podDir(rec.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return runtimeerr.Syscall("mkdir pod dir", err)
	}
	if err := writeConfig(dir, rec, nil); err != nil {
		return runtimeerr.Syscall("write pod config.json", err)
	}
	return nil
}

// SavePod rewrites an existing pod's config.json.
func (s *Store) SavePod(rec *types.PodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.podDir(rec.ID)
	if _, err := os.Stat(dir); err != nil {
		return runtimeerr.New(runtimeerr.KindNotFound, "save pod",
			fmt.Errorf("pod %s does not exist", rec.ID))
	}
	if err := writeConfig(dir, rec, nil); err != nil {
		return runtimeerr.Syscall("write pod config.json", err)
	}
	return nil
}

func (s *Store) loadPodByID(id string) (*types.PodRecord, error) {
	var rec types.PodRecord
	if err := readConfig(s.podDir(id), &rec, nil); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadPod resolves token (full ID, ID prefix, or exact name) to a pod.
func (s *Store) LoadPod(token string) (*types.PodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.mustListIDs("pods")
	for _, id := range ids {
		if strings.HasPrefix(id, token) {
			return s.loadPodByID(id)
		}
	}
	for _, id := range ids {
		rec, err := s.loadPodByID(id)
		if err != nil {
			continue
		}
		if rec.Name == token {
			return rec, nil
		}
	}

	return nil, runtimeerr.New(runtimeerr.KindNotFound, "load pod",
		fmt.Errorf("no pod matches %q", token))
}

// DeletePod removes the pod record directory.
func (s *Store) DeletePod(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.podDir(id)
	if _, err := os.Stat(dir); err != nil {
		return runtimeerr.New(runtimeerr.KindNotFound, "delete pod",
			fmt.Errorf("pod %s does not exist", id))
	}
	if err := os.RemoveAll(dir); err != nil {
		return runtimeerr.Syscall("remove pod dir", err)
	}
	return nil
}

// ListPods returns all pod records.
func (s *Store) ListPods() ([]*types.PodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.mustListIDs("pods")
	recs := make([]*types.PodRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.loadPodByID(id)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) mustListIDs(kind string) []string {
	ids, err := s.listIDs(kind)
	if err != nil {
		return nil
	}
	return ids
}
