package engine

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lifeboat-sh/lifeboat/internal/event"
)

// VerifyConfig controls the post-replication verification pass.
type VerifyConfig struct {
	SrcRoot string
	DstRoot string
	Workers int

	// SkipDirs lists destination subtrees that hold run artifacts rather
	// than replicated files (the run's own log directory, browser profile
	// output) and must not be compared against the source.
	SkipDirs []string

	Events chan<- event.Event
}

// VerifyResult holds the outcome of a verification pass.
type VerifyResult struct {
	Verified int64
	Failed   int64
	Errors   []VerifyError
}

// VerifyError records a single checksum mismatch.
type VerifyError struct {
	Path    string // relative path
	SrcHash string
	DstHash string
}

// Verify walks the replicated destination tree and compares BLAKE3
// checksums against the source for every regular file. A source that
// vanished or became unreadable counts as a mismatch.
func Verify(ctx context.Context, cfg VerifyConfig) VerifyResult {
	event.Emit(cfg.Events, event.Event{Type: event.VerifyStarted})

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	taskCh := make(chan string, workers*2)
	var mu sync.Mutex
	var result VerifyResult
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for relPath := range taskCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				wp := verifyOne(cfg, relPath)
				mu.Lock()
				if wp == nil {
					result.Verified++
				} else {
					result.Failed++
					result.Errors = append(result.Errors, *wp)
				}
				mu.Unlock()
			}
		}()
	}

	skip := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, dir := range cfg.SkipDirs {
		skip[filepath.Clean(dir)] = struct{}{}
	}

	_ = filepath.WalkDir(cfg.DstRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, ok := skip[filepath.Clean(path)]; ok {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.Contains(d.Name(), ".lifeboat-tmp") {
			return nil
		}
		rel, relErr := filepath.Rel(cfg.DstRoot, path)
		if relErr != nil {
			return nil
		}
		select {
		case taskCh <- rel:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
	close(taskCh)
	wg.Wait()

	return result
}

func verifyOne(cfg VerifyConfig, relPath string) *VerifyError {
	srcHash, err := HashFile(filepath.Join(cfg.SrcRoot, relPath))
	if err != nil {
		ve := &VerifyError{Path: relPath, SrcHash: "unreadable", DstHash: ""}
		event.Emit(cfg.Events, event.Event{Type: event.VerifyFailed, Path: relPath, Error: err})
		return ve
	}

	dstHash, err := HashFile(filepath.Join(cfg.DstRoot, relPath))
	if err != nil {
		ve := &VerifyError{Path: relPath, SrcHash: srcHash, DstHash: "unreadable"}
		event.Emit(cfg.Events, event.Event{Type: event.VerifyFailed, Path: relPath, Error: err})
		return ve
	}

	if srcHash != dstHash {
		event.Emit(cfg.Events, event.Event{Type: event.VerifyFailed, Path: relPath})
		return &VerifyError{Path: relPath, SrcHash: srcHash, DstHash: dstHash}
	}

	event.Emit(cfg.Events, event.Event{Type: event.VerifyOK, Path: relPath})
	return nil
}
