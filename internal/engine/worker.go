package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lifeboat-sh/lifeboat/internal/event"
	"github.com/lifeboat-sh/lifeboat/internal/platform"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

// DefaultFileTimeout bounds a single file copy so one locked or
// unresponsive file cannot stall the run.
const DefaultFileTimeout = 2 * time.Minute

// WorkerConfig controls worker behavior.
type WorkerConfig struct {
	NumWorkers  int
	FileTimeout time.Duration
	DryRun      bool
	Limiter     *rate.Limiter // nil = unthrottled
	Stats       *stats.Collector
	Events      chan<- event.Event
	Session     *runlog.Session
}

// WorkerPool copies queued files concurrently. Every task produces
// exactly one outcome: an activity line on success or an error line on
// failure. A failed copy never stops the pool.
type WorkerPool struct {
	cfg WorkerConfig
}

// NewWorkerPool creates a worker pool.
func NewWorkerPool(cfg WorkerConfig) *WorkerPool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = min(runtime.NumCPU()*2, 16)
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = DefaultFileTimeout
	}
	return &WorkerPool{cfg: cfg}
}

// Run starts workers that consume tasks, blocking until the task
// channel closes. Cancelling ctx stops dispatch of new tasks; the copy
// already in flight on each worker finishes or fails on its own
// deadline. Log-sink write failures are sent to errs.
func (wp *WorkerPool) Run(ctx context.Context, tasks <-chan FileTask, errs chan<- error) {
	var wg sync.WaitGroup
	for i := 0; i < wp.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := wp.processTask(ctx, task); err != nil {
					select {
					case errs <- err:
					default:
					}
				}
			}
		}()
	}
	wg.Wait()
}

func (wp *WorkerPool) processTask(ctx context.Context, task FileTask) error {
	if wp.cfg.DryRun {
		wp.cfg.Stats.AddFilesCopied(1)
		event.Emit(wp.cfg.Events, event.Event{Type: event.FileCopied, Path: task.RelPath, Size: task.Size})
		return nil
	}

	written, err := wp.copyFile(ctx, task)
	if err != nil {
		wp.cfg.Stats.AddFilesFailed(1)
		event.Emit(wp.cfg.Events, event.Event{Type: event.FileFailed, Path: task.RelPath, Size: task.Size, Error: err})
		return wp.record(runlog.NewOutcome(task.SrcPath, task.DstPath, runlog.Failed, err.Error()))
	}

	wp.cfg.Stats.AddFilesCopied(1)
	wp.cfg.Stats.AddBytesCopied(written)
	event.Emit(wp.cfg.Events, event.Event{Type: event.FileCopied, Path: task.RelPath, Size: written})
	return wp.record(runlog.NewOutcome(task.SrcPath, task.DstPath, runlog.Copied, ""))
}

func (wp *WorkerPool) record(o runlog.Outcome) error {
	if wp.cfg.Session == nil {
		return nil
	}
	if err := wp.cfg.Session.Record(o); err != nil {
		return fmt.Errorf("write log sink: %w", err)
	}
	return nil
}

// copyFile copies one file under its own deadline, detached from run
// cancellation so an in-flight copy can finish cleanly. The destination
// is written to a uniquely named temp file and renamed into place, so a
// collision with an existing file is an atomic overwrite
// (last-writer-wins).
func (wp *WorkerPool) copyFile(ctx context.Context, task FileTask) (int64, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wp.cfg.FileTimeout)
	defer cancel()

	dir := filepath.Dir(task.DstPath)
	if err := wp.ensureDir(dir); err != nil {
		return 0, err
	}

	base := filepath.Base(task.DstPath)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.lifeboat-tmp", base, uuid.New().String()[:8]))
	defer os.Remove(tmpPath) // no-op once the rename succeeds

	perm := os.FileMode(task.Mode).Perm()
	if perm == 0 {
		perm = 0644
	}
	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return 0, fmt.Errorf("create temp %s: %w", tmpPath, err)
	}

	written, err := wp.copyData(fctx, task, tmpFd)
	if closeErr := tmpFd.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("copy timed out after %s", wp.cfg.FileTimeout)
		}
		return 0, fmt.Errorf("copy %s: %w", task.SrcPath, err)
	}

	_ = os.Chtimes(tmpPath, time.Now(), task.ModTime)

	if err := os.Rename(tmpPath, task.DstPath); err != nil {
		return 0, fmt.Errorf("rename %s -> %s: %w", tmpPath, task.DstPath, err)
	}
	return written, nil
}

func (wp *WorkerPool) copyData(ctx context.Context, task FileTask, dstFd *os.File) (int64, error) {
	if task.Size == 0 {
		return 0, nil
	}

	if wp.cfg.Limiter != nil {
		srcFd, err := os.Open(task.SrcPath)
		if err != nil {
			return 0, err
		}
		defer srcFd.Close()

		result, err := platform.CopyStream(ctx, dstFd, newRateLimitedReader(ctx, srcFd, wp.cfg.Limiter))
		return result.BytesWritten, err
	}

	result, err := platform.CopyFile(ctx, platform.CopyFileParams{
		DstFd:   dstFd,
		SrcPath: task.SrcPath,
		Size:    task.Size,
	})
	return result.BytesWritten, err
}

// ensureDir creates the destination parent chain. Creation is
// idempotent and safe under concurrent workers building overlapping
// chains; an already-existing directory is success.
func (wp *WorkerPool) ensureDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	wp.cfg.Stats.AddDirsCreated(1)
	return nil
}
