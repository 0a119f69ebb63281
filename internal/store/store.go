// Package store is the on-disk metadata store: one directory per
// record under $DATA_ROOT/{containers,pods,images}/<id>/, each holding a
// config.json. Records are addressable by full ID, short-ID prefix, or
// name. Writes are last-writer-wins; cross-process locking is the
// caller's problem, in-process callers share a per-ID mutex.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/syncx"
	"github.com/mini-docker/mini-docker/internal/types"
)

const configFile = "config.json"

type Store struct {
	dataRoot string
	mu       syncx.RWMutex
}

// New opens (creating if needed) the store rooted at dataRoot.
func New(dataRoot string) (*Store, error) {
	for _, sub := range []string{"containers", "pods", "images", "overlay"} {
		if err := os.MkdirAll(filepath.Join(dataRoot, sub), 0755); err != nil {
			return nil, runtimeerr.Syscall("mkdir data root", err)
		}
	}
	return &Store{dataRoot: dataRoot}, nil
}

func (s *Store) DataRoot() string { return s.dataRoot }

// ContainerDir is the per-record directory holding config.json and the
// container log.
func (s *Store) ContainerDir(id string) string {
	return filepath.Join(s.dataRoot, "containers", id)
}

func (s *Store) LogPath(id string) string {
	return filepath.Join(s.ContainerDir(id), "container.log")
}

func (s *Store) podDir(id string) string {
	return filepath.Join(s.dataRoot, "pods", id)
}

func (s *Store) imageDir(id string) string {
	return filepath.Join(s.dataRoot, "images", id)
}

// knownFields returns the JSON keys a record type marshals, so unknown
// keys in an on-disk config.json can be carried across a
// read-modify-write untouched.
func knownFields(v any) map[string]bool {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		panic(err)
	}
	known := make(map[string]bool, len(m))
	for k := range m {
		known[k] = true
	}
	return known
}

func readConfig(dir string, rec any, unknown *map[string]json.RawMessage) error {
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Join(dir, configFile), err)
	}

	if unknown != nil {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		known := knownFields(rec)
		extra := make(map[string]json.RawMessage)
		for k, v := range raw {
			if !known[k] {
				extra[k] = v
			}
		}
		if len(extra) > 0 {
			*unknown = extra
		}
	}
	return nil
}

func writeConfig(dir string, rec any, unknown map[string]json.RawMessage) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if len(unknown) > 0 {
		var merged map[string]json.RawMessage
		if err := json.Unmarshal(data, &merged); err != nil {
			return err
		}
		for k, v := range unknown {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
		data, err = json.Marshal(merged)
		if err != nil {
			return err
		}
	}

	tmp := filepath.Join(dir, configFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, configFile))
}

// CreateContainer persists a new record, enforcing ID and name
// uniqueness.
func (s *Store) CreateContainer(rec *types.ContainerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.ContainerDir(rec.ID)); err == nil {
		return runtimeerr.New(runtimeerr.KindStateConflict, "create container",
			fmt.Errorf("container ID %s already exists", rec.ID))
	}
	if s.containerNameTakenLocked(rec.Name) {
		return runtimeerr.New(runtimeerr.KindStateConflict, "create container",
			fmt.Errorf("container name %q already in use", rec.Name))
	}

	dir := s.ContainerDir(rec.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return runtimeerr.Syscall("mkdir container dir", err)
	}
	if err := writeConfig(dir, rec, nil); err != nil {
		return runtimeerr.Syscall("write config.json", err)
	}
	return nil
}

// SaveContainer rewrites an existing record's config.json, preserving
// unknown fields read at load time.
func (s *Store) SaveContainer(rec *types.ContainerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.ContainerDir(rec.ID)
	if _, err := os.Stat(dir); err != nil {
		return runtimeerr.New(runtimeerr.KindNotFound, "save container",
			fmt.Errorf("container %s does not exist", rec.ID))
	}
	if err := writeConfig(dir, rec, unknownFromRecord(rec.Unknown)); err != nil {
		return runtimeerr.Syscall("write config.json", err)
	}
	return nil
}

func unknownFromRecord(m map[string]any) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out[k] = data
	}
	return out
}

func unknownToRecord(m map[string]json.RawMessage) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		out[k] = val
	}
	return out
}

func (s *Store) loadContainerByID(id string) (*types.ContainerRecord, error) {
	var rec types.ContainerRecord
	var unknown map[string]json.RawMessage
	if err := readConfig(s.ContainerDir(id), &rec, &unknown); err != nil {
		return nil, err
	}
	rec.Unknown = unknownToRecord(unknown)
	return &rec, nil
}

// LoadContainer resolves token (full ID, ID prefix, or exact name) to a
// record. A prefix matching multiple records resolves to the first in
// directory iteration order.
func (s *Store) LoadContainer(token string) (*types.ContainerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadContainerLocked(token)
}

func (s *Store) loadContainerLocked(token string) (*types.ContainerRecord, error) {
	ids, err := s.listIDs("containers")
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if strings.HasPrefix(id, token) {
			return s.loadContainerByID(id)
		}
	}
	for _, id := range ids {
		rec, err := s.loadContainerByID(id)
		if err != nil {
			continue
		}
		if rec.Name == token {
			return rec, nil
		}
	}

	return nil, runtimeerr.New(runtimeerr.KindNotFound, "load container",
		fmt.Errorf("no container matches %q", token))
}

// DeleteContainer removes the record directory. Deleting a nonexistent
// ID is NotFound, making double-remove detectable by the caller.
func (s *Store) DeleteContainer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.ContainerDir(id)
	if _, err := os.Stat(dir); err != nil {
		return runtimeerr.New(runtimeerr.KindNotFound, "delete container",
			fmt.Errorf("container %s does not exist", id))
	}
	if err := os.RemoveAll(dir); err != nil {
		return runtimeerr.Syscall("remove container dir", err)
	}
	return nil
}

// ListContainers returns all records, optionally filtering out stopped
// and created ones.
func (s *Store) ListContainers(includeStopped bool) ([]*types.ContainerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.listIDs("containers")
	if err != nil {
		return nil, err
	}

	recs := make([]*types.ContainerRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.loadContainerByID(id)
		if err != nil {
			// a half-deleted record directory; skip it
			continue
		}
		if !includeStopped && rec.Status != types.ContainerStateRunning {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ContainerNameTaken reports whether any record already uses name.
func (s *Store) ContainerNameTaken(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containerNameTakenLocked(name)
}

func (s *Store) containerNameTakenLocked(name string) bool {
	ids, err := s.listIDs("containers")
	if err != nil {
		return false
	}
	for _, id := range ids {
		rec, err := s.loadContainerByID(id)
		if err != nil {
			continue
		}
		if rec.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) listIDs(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataRoot, kind))
	if err != nil {
		return nil, runtimeerr.Syscall("read "+kind+" dir", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
