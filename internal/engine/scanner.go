package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/lifeboat-sh/lifeboat/internal/category"
	"github.com/lifeboat-sh/lifeboat/internal/event"
	"github.com/lifeboat-sh/lifeboat/internal/pathmap"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	SrcRoot string
	DstRoot string
	Workers int

	// Categories restricts the scan to files whose extension classifies
	// into a selected category. Nil copies every regular file.
	Categories *category.Set

	Events chan<- event.Event
	Stats  *stats.Collector
}

// Scanner traverses the source tree with a bounded worker pool over an
// explicit directory worklist (no call recursion, so tree depth never
// threatens the stack) and emits a FileTask for every selected file.
// Non-matching files are skipped without a log entry. Symlinks and
// other irregular entries are ignored; the tree is assumed acyclic.
type Scanner struct {
	cfg   ScannerConfig
	tasks chan FileTask
	errs  chan error
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	return &Scanner{
		cfg:   cfg,
		tasks: make(chan FileTask, cfg.Workers*4),
		errs:  make(chan error, cfg.Workers*4),
	}
}

// Scan starts the scanner and returns channels for tasks and errors.
// Both channels close when the walk completes. Errors are per-directory
// (unreadable subtree); they never stop the walk.
func (s *Scanner) Scan(ctx context.Context) (<-chan FileTask, <-chan error) {
	go func() {
		defer close(s.tasks)
		defer close(s.errs)

		event.Emit(s.cfg.Events, event.Event{Type: event.ScanStarted})
		s.scanTree(ctx)
	}()

	return s.tasks, s.errs
}

// dirQueue is an unbounded worklist of directories awaiting a scan.
// The scan workers are both its producers and its consumers: a worker
// pushes every subdirectory it discovers, so a bounded queue could fill
// up and wedge the whole pool with every worker blocked on a push no
// one is left to drain. Pushes therefore never block.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	dirs    []string
	pending int // pushed but not yet fully processed
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *dirQueue) push(dir string) {
	q.mu.Lock()
	q.dirs = append(q.dirs, dir)
	q.pending++
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a directory is available. Returns false once every
// pushed directory has been fully processed.
func (q *dirQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.dirs) == 0 && q.pending > 0 {
		q.cond.Wait()
	}
	if len(q.dirs) == 0 {
		return "", false
	}
	// LIFO keeps the worklist shallow on wide trees.
	dir := q.dirs[len(q.dirs)-1]
	q.dirs = q.dirs[:len(q.dirs)-1]
	return dir, true
}

// done marks one popped directory as fully processed. The walk is over
// when the last one lands with nothing left queued.
func (q *dirQueue) done() {
	q.mu.Lock()
	q.pending--
	finished := q.pending == 0
	q.mu.Unlock()
	if finished {
		q.cond.Broadcast()
	}
}

func (s *Scanner) scanTree(ctx context.Context) {
	queue := newDirQueue()
	queue.push(s.cfg.SrcRoot)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				dirPath, ok := queue.pop()
				if !ok {
					return
				}
				s.scanDir(ctx, dirPath, queue)
				queue.done()
			}
		}()
	}
	wg.Wait()
}

func (s *Scanner) scanDir(ctx context.Context, dirPath string, queue *dirQueue) {
	if ctx.Err() != nil {
		return
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		s.sendErr(ctx, fmt.Errorf("readdir %s: %w", dirPath, err))
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		entryPath := filepath.Join(dirPath, entry.Name())

		if entry.IsDir() {
			queue.push(entryPath)
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		if err := s.processFile(ctx, entryPath, entry); err != nil {
			s.sendErr(ctx, err)
		}
	}
}

func (s *Scanner) processFile(ctx context.Context, srcPath string, entry os.DirEntry) error {
	relPath, err := pathmap.Rel(s.cfg.SrcRoot, srcPath)
	if err != nil {
		return err
	}

	cat, known := category.Classify(filepath.Ext(srcPath))
	if s.cfg.Categories != nil {
		if !known || !s.cfg.Categories.Has(cat) {
			s.cfg.Stats.AddFilesSkipped(1)
			event.Emit(s.cfg.Events, event.Event{Type: event.FileSkipped, Path: relPath})
			return nil
		}
	}

	info, err := entry.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcPath, err)
	}

	dstPath, err := pathmap.Map(s.cfg.SrcRoot, s.cfg.DstRoot, srcPath)
	if err != nil {
		return err
	}

	s.cfg.Stats.AddFilesTotal(1)
	s.cfg.Stats.AddBytesTotal(info.Size())

	task := FileTask{
		SrcPath:  srcPath,
		DstPath:  dstPath,
		RelPath:  relPath,
		Size:     info.Size(),
		Mode:     uint32(info.Mode()),
		ModTime:  info.ModTime(),
		Category: cat,
	}

	// The consumer may already have stopped on cancellation; never block
	// on a send the pool will not drain.
	select {
	case s.tasks <- task:
	case <-ctx.Done():
	}
	return nil
}

// sendErr delivers err to the error channel. The run drains errors
// until close, so the send blocks rather than dropping; cancellation is
// the only bail-out.
func (s *Scanner) sendErr(ctx context.Context, err error) {
	select {
	case s.errs <- err:
	case <-ctx.Done():
	}
}
