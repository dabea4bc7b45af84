package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirEnumerator enumerates snapshots laid out as subdirectories of a
// base directory, the layout used by snapper and btrfs tooling:
// either <base>/<id>/snapshot/... or plain <base>/<id>/... Each call
// reads the base directory fresh; nothing is cached.
type DirEnumerator struct {
	Base string
}

// List returns a handle per snapshot directory, creation time taken
// from the directory's modification time. Order follows directory
// enumeration and carries no meaning.
func (d DirEnumerator) List(ctx context.Context) ([]Handle, error) {
	entries, err := os.ReadDir(d.Base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot base %s: %w", d.Base, err)
	}

	var handles []Handle
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}

		root := filepath.Join(d.Base, entry.Name())
		// Snapper nests the actual tree one level down.
		if info, err := os.Stat(filepath.Join(root, "snapshot")); err == nil && info.IsDir() {
			root = filepath.Join(root, "snapshot")
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		handles = append(handles, Handle{DeviceRoot: root, CreatedAt: info.ModTime()})
	}
	return handles, nil
}
