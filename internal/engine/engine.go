// Package engine implements the replication run: walk the source tree,
// select files by category, mirror them under the destination root, and
// record one outcome per file in the run's log session.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/lifeboat-sh/lifeboat/internal/category"
	"github.com/lifeboat-sh/lifeboat/internal/event"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

// Config describes a replication run.
type Config struct {
	Src string
	Dst string

	// Categories selects which files to replicate. Nil replicates every
	// regular file (used for browser artifact trees).
	Categories *category.Set

	Workers     int
	ScanWorkers int
	FileTimeout time.Duration
	BWLimit     int64 // bytes/sec, 0 = unthrottled
	DryRun      bool

	Events  chan<- event.Event
	Stats   *stats.Collector
	Session *runlog.Session
}

// Result is the outcome of a replication run. Err is set only for
// run-level precondition failures; per-file failures are counted in
// Stats and recorded in the error sink.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// Run executes a replication run, blocking until complete. Individual
// file failures never abort the run; partial success is a normal
// outcome. Cancelling ctx stops dispatching new copies while in-flight
// copies finish or fail on their own deadline.
func Run(ctx context.Context, cfg Config) Result {
	srcInfo, err := os.Stat(cfg.Src)
	if err != nil {
		return Result{Err: fmt.Errorf("source: %w", err)}
	}
	if !srcInfo.IsDir() {
		return Result{Err: fmt.Errorf("source %s is not a directory", cfg.Src)}
	}

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	if err := os.MkdirAll(cfg.Dst, 0755); err != nil {
		return Result{Stats: collector.Snapshot(), Err: fmt.Errorf("create destination: %w", err)}
	}

	scanner := NewScanner(ScannerConfig{
		SrcRoot:    cfg.Src,
		DstRoot:    cfg.Dst,
		Workers:    cfg.ScanWorkers,
		Categories: cfg.Categories,
		Events:     cfg.Events,
		Stats:      collector,
	})
	tasks, scanErrs := scanner.Scan(ctx)

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	wp := NewWorkerPool(WorkerConfig{
		NumWorkers:  cfg.Workers,
		FileTimeout: cfg.FileTimeout,
		DryRun:      cfg.DryRun,
		Limiter:     limiter,
		Stats:       collector,
		Events:      cfg.Events,
		Session:     cfg.Session,
	})

	// Scan errors (unreadable subtrees) go to the error sink but are
	// not file outcomes: they name directories that could not be
	// enumerated.
	scanDrained := make(chan struct{})
	go func() {
		defer close(scanDrained)
		for err := range scanErrs {
			if cfg.Session != nil {
				_ = cfg.Session.Error(fmt.Sprintf("scan: %v", err))
			}
		}
	}()

	sinkErrs := make(chan error, 1)
	wp.Run(ctx, tasks, sinkErrs)
	<-scanDrained

	close(sinkErrs)
	var runErr error
	for err := range sinkErrs {
		if runErr == nil {
			runErr = err
		}
	}

	snap := collector.Snapshot()
	event.Emit(cfg.Events, event.Event{
		Type:      event.ScanComplete,
		Total:     snap.FilesTotal,
		TotalSize: snap.BytesTotal,
	})

	return Result{Stats: snap, Err: runErr}
}
