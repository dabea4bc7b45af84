// Package snapshot recovers files from point-in-time snapshots of the
// source volume. Snapshots are owned by the operating environment; this
// package only enumerates and reads them.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lifeboat-sh/lifeboat/internal/platform"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
)

var (
	// ErrSnapshotUnavailable means enumeration returned no snapshots.
	ErrSnapshotUnavailable = errors.New("no snapshots available")
	// ErrNotInSnapshot means the requested path does not exist in the
	// chosen snapshot.
	ErrNotInSnapshot = errors.New("file not present in snapshot")
	// ErrCopyFailed wraps I/O errors while copying out of a snapshot.
	ErrCopyFailed = errors.New("recovery copy failed")
)

// Handle references one point-in-time snapshot. DeviceRoot is the
// mount point the snapshot's tree is readable under.
type Handle struct {
	DeviceRoot string
	CreatedAt  time.Time
}

// Enumerator lists the currently available snapshots. Implementations
// must enumerate fresh on every call: the snapshot set is externally
// managed and can change between calls, so results are never cached.
// No ordering is guaranteed.
type Enumerator interface {
	List(ctx context.Context) ([]Handle, error)
}

// Policy chooses one snapshot from a non-empty enumeration. The engine
// imposes no default: the caller always states its policy.
type Policy func([]Handle) Handle

// MostRecent selects the snapshot with the latest creation time.
func MostRecent(handles []Handle) Handle {
	best := handles[0]
	for _, h := range handles[1:] {
		if h.CreatedAt.After(best.CreatedAt) {
			best = h
		}
	}
	return best
}

// Oldest selects the snapshot with the earliest creation time.
func Oldest(handles []Handle) Handle {
	best := handles[0]
	for _, h := range handles[1:] {
		if h.CreatedAt.Before(best.CreatedAt) {
			best = h
		}
	}
	return best
}

// Engine resolves relative paths against snapshots and copies them out.
type Engine struct {
	Enum    Enumerator
	Session *runlog.Session // optional; recovery outcomes land here
}

// List enumerates the currently available snapshots.
func (e *Engine) List(ctx context.Context) ([]Handle, error) {
	return e.Enum.List(ctx)
}

// Select enumerates and applies policy. Returns ErrSnapshotUnavailable
// when no snapshot exists.
func (e *Engine) Select(ctx context.Context, policy Policy) (Handle, error) {
	handles, err := e.Enum.List(ctx)
	if err != nil {
		return Handle{}, fmt.Errorf("enumerate snapshots: %w", err)
	}
	if len(handles) == 0 {
		return Handle{}, ErrSnapshotUnavailable
	}
	return policy(handles), nil
}

// Recover resolves relPath against h's device root and copies the file
// to dstRoot/basename(relPath). Recovered files are flattened: the
// original subdirectory structure is not rebuilt. Returns the written
// destination path.
func (e *Engine) Recover(ctx context.Context, h Handle, relPath, dstRoot string) (string, error) {
	rel := strings.TrimLeft(filepath.FromSlash(relPath), string(filepath.Separator))
	resolved := filepath.Join(h.DeviceRoot, rel)

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %s (snapshot %s)", ErrNotInSnapshot, relPath, h.DeviceRoot)
		} else {
			err = fmt.Errorf("stat %s: %w", resolved, err)
		}
		e.record(resolved, "", err)
		return "", err
	}
	if info.IsDir() {
		err := fmt.Errorf("%w: %s is a directory", ErrNotInSnapshot, relPath)
		e.record(resolved, "", err)
		return "", err
	}

	dstPath := filepath.Join(dstRoot, filepath.Base(rel))
	if err := e.copyOut(ctx, resolved, dstPath, info.Size()); err != nil {
		e.record(resolved, dstPath, err)
		return "", err
	}

	e.record(resolved, dstPath, nil)
	return dstPath, nil
}

func (e *Engine) copyOut(ctx context.Context, src, dst string, size int64) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("%w: create destination dir: %v", ErrCopyFailed, err)
	}

	dstFd, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrCopyFailed, dst, err)
	}

	_, copyErr := platform.CopyFile(ctx, platform.CopyFileParams{
		DstFd:   dstFd,
		SrcPath: src,
		Size:    size,
	})
	if closeErr := dstFd.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("%w: %s: %v", ErrCopyFailed, src, copyErr)
	}
	return nil
}

func (e *Engine) record(src, dst string, err error) {
	if e.Session == nil {
		return
	}
	if err != nil {
		_ = e.Session.Record(runlog.NewOutcome(src, dst, runlog.Failed, err.Error()))
		return
	}
	_ = e.Session.Record(runlog.NewOutcome(src, dst, runlog.Copied, ""))
}
