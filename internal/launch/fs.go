package launch

import (
	"github.com/mini-docker/mini-docker/internal/overlay"
	"github.com/mini-docker/mini-docker/internal/types"
)

// compile-time interface checks
var (
	_ Filesystem = (*overlayFS)(nil)
	_ Filesystem = (*chrootFS)(nil)
)

// Filesystem is the root-filesystem strategy for a container: an
// overlay layer set or a plain chroot onto the raw rootfs. Both expose
// the same prepare/teardown contract; the child falls back from
// overlay to chroot when the union mount fails.
type Filesystem interface {
	// Prepare makes Root() usable as the container root. Runs in the
	// child, inside its mount namespace.
	Prepare() error
	Root() string
	// Teardown releases everything Prepare acquired, in reverse order.
	// Runs in the controller during stop/remove.
	Teardown() error
}

type overlayFS struct {
	dataRoot string
	id       string
	rootfs   string
	paths    *types.OverlayPaths
}

// NewOverlay returns the overlay strategy for a container whose layer
// set was already allocated at create time.
func NewOverlay(dataRoot, id, rootfs string, paths *types.OverlayPaths) Filesystem {
	return &overlayFS{dataRoot: dataRoot, id: id, rootfs: rootfs, paths: paths}
}

func (f *overlayFS) Prepare() error {
	if err := overlay.PopulateLower(f.paths, f.rootfs); err != nil {
		return err
	}
	return overlay.Mount(f.paths)
}

func (f *overlayFS) Root() string { return f.paths.Merged }

func (f *overlayFS) Teardown() error {
	return overlay.Teardown(f.dataRoot, f.id, f.paths)
}

type chrootFS struct {
	root string
}

// NewChroot returns the plain-rootfs strategy.
func NewChroot(root string) Filesystem {
	return &chrootFS{root: root}
}

func (f *chrootFS) Prepare() error  { return nil }
func (f *chrootFS) Root() string    { return f.root }
func (f *chrootFS) Teardown() error { return nil }
