package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mini-docker/mini-docker/internal/runtimeerr"
	"github.com/mini-docker/mini-docker/internal/types"
)

// SaveImage persists an image record. The rootfs itself lives wherever
// RootfsDir points; by convention <images>/<id>/layers/.
func (s *Store) SaveImage(rec *types.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.imageDir(rec.ID)
	if err := os.MkdirAll(filepath.Join(dir, "layers"), 0755); err != nil {
		return runtimeerr.Syscall("mkdir image dir", err)
	}
	if err := writeConfig(dir, rec, nil); err != nil {
		return runtimeerr.Syscall("write image config.json", err)
	}
	return nil
}

func (s *Store) loadImageByID(id string) (*types.ImageRecord, error) {
	var rec types.ImageRecord
	if err := readConfig(s.imageDir(id), &rec, nil); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadImage resolves token (ID, ID prefix, or name) to an image record.
func (s *Store) LoadImage(token string) (*types.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.mustListIDs("images")
	for _, id := range ids {
		if strings.HasPrefix(id, token) {
			return s.loadImageByID(id)
		}
	}
	for _, id := range ids {
		rec, err := s.loadImageByID(id)
		if err != nil {
			continue
		}
		if rec.Name == token {
			return rec, nil
		}
	}

	return nil, runtimeerr.New(runtimeerr.KindNotFound, "load image",
		fmt.Errorf("no image matches %q", token))
}

// ResolveRootfs maps a create request's image-or-rootfs argument to a
// concrete rootfs directory: an absolute path is used as the rootfs and
// must be an existing directory; any other token (including a relative
// path) is looked up as an image.
func (s *Store) ResolveRootfs(imageOrPath string) (string, error) {
	if filepath.IsAbs(imageOrPath) {
		if st, err := os.Stat(imageOrPath); err == nil && st.IsDir() {
			return imageOrPath, nil
		}
		return "", runtimeerr.New(runtimeerr.KindInvalidInput, "resolve rootfs",
			fmt.Errorf("rootfs %q is not an existing directory", imageOrPath))
	}

	img, err := s.LoadImage(imageOrPath)
	if err != nil {
		return "", err
	}
	if st, err := os.Stat(img.RootfsDir); err != nil || !st.IsDir() {
		return "", runtimeerr.New(runtimeerr.KindInvalidInput, "resolve rootfs",
			fmt.Errorf("image %s rootfs %q missing on disk", img.ID, img.RootfsDir))
	}
	return img.RootfsDir, nil
}

// ListImages returns all image records.
func (s *Store) ListImages() ([]*types.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.mustListIDs("images")
	recs := make([]*types.ImageRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.loadImageByID(id)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
