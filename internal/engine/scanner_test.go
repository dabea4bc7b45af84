package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeboat-sh/lifeboat/internal/category"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

func collectTasks(t *testing.T, cfg ScannerConfig) ([]FileTask, []error) {
	t.Helper()
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}

	scanner := NewScanner(cfg)
	tasks, errs := scanner.Scan(context.Background())

	var got []FileTask
	var gotErrs []error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for err := range errs {
			gotErrs = append(gotErrs, err)
		}
	}()
	for task := range tasks {
		got = append(got, task)
	}
	<-done
	return got, gotErrs
}

func TestScanner_EmitsSelectedFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	writeFile(t, filepath.Join(src, "a.pdf"), "a")
	writeFile(t, filepath.Join(src, "deep", "er", "b.PDF"), "b")
	writeFile(t, filepath.Join(src, "deep", "c.mp3"), "c")
	writeFile(t, filepath.Join(src, "readme.txt"), "d")

	cats := category.NewSet(category.Pdf)
	tasks, errs := collectTasks(t, ScannerConfig{
		SrcRoot:    src,
		DstRoot:    filepath.Join(dir, "dst"),
		Workers:    2,
		Categories: &cats,
	})
	require.Empty(t, errs)
	require.Len(t, tasks, 2)

	rels := []string{tasks[0].RelPath, tasks[1].RelPath}
	assert.ElementsMatch(t, []string{"a.pdf", filepath.Join("deep", "er", "b.PDF")}, rels)
	for _, task := range tasks {
		assert.Equal(t, category.Pdf, task.Category)
		assert.Equal(t, filepath.Join(dir, "dst", task.RelPath), task.DstPath)
	}
}

func TestScanner_SkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	writeFile(t, filepath.Join(src, "real.pdf"), "data")
	require.NoError(t, os.Symlink(filepath.Join(src, "real.pdf"), filepath.Join(src, "link.pdf")))

	cats := category.NewSet(category.Pdf)
	tasks, errs := collectTasks(t, ScannerConfig{
		SrcRoot:    src,
		DstRoot:    filepath.Join(dir, "dst"),
		Workers:    1,
		Categories: &cats,
	})
	require.Empty(t, errs)
	require.Len(t, tasks, 1)
	assert.Equal(t, "real.pdf", tasks[0].RelPath)
}

func TestScanner_UnreadableSubtreeReportsAndContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	writeFile(t, filepath.Join(src, "a.pdf"), "a")
	blocked := filepath.Join(src, "blocked")
	require.NoError(t, os.MkdirAll(blocked, 0755))
	require.NoError(t, os.Chmod(blocked, 0000))
	t.Cleanup(func() { _ = os.Chmod(blocked, 0755) })

	cats := category.NewSet(category.Pdf)
	tasks, errs := collectTasks(t, ScannerConfig{
		SrcRoot:    src,
		DstRoot:    filepath.Join(dir, "dst"),
		Workers:    2,
		Categories: &cats,
	})

	require.Len(t, tasks, 1)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "blocked")
}

func TestScanner_CountsSkippedFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	writeFile(t, filepath.Join(src, "a.pdf"), "a")
	writeFile(t, filepath.Join(src, "b.exe"), "b")
	writeFile(t, filepath.Join(src, "c.mp4"), "c")

	collector := stats.NewCollector()
	cats := category.NewSet(category.Pdf)
	tasks, _ := collectTasks(t, ScannerConfig{
		SrcRoot:    src,
		DstRoot:    filepath.Join(dir, "dst"),
		Workers:    1,
		Categories: &cats,
		Stats:      collector,
	})

	require.Len(t, tasks, 1)
	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.FilesSkipped)
	assert.Equal(t, int64(1), snap.FilesTotal)
}

// Deep trees walk on an explicit work queue, not call recursion.
func TestScanner_DeepTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	deep := src
	for i := 0; i < 100; i++ {
		deep = filepath.Join(deep, "d")
	}
	writeFile(t, filepath.Join(deep, "leaf.pdf"), "leaf")

	cats := category.NewSet(category.Pdf)
	tasks, errs := collectTasks(t, ScannerConfig{
		SrcRoot:    src,
		DstRoot:    filepath.Join(dir, "dst"),
		Workers:    4,
		Categories: &cats,
	})
	require.Empty(t, errs)
	require.Len(t, tasks, 1)
}

// Wide fan-out must never wedge the pool: workers push the
// subdirectories they discover, so the worklist has to absorb more
// directories than there are workers to drain them.
func TestScanner_WideTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	const width = 32
	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			sub := filepath.Join(src, fmt.Sprintf("d%02d", i), fmt.Sprintf("s%02d", j))
			writeFile(t, filepath.Join(sub, "f.pdf"), "x")
		}
	}

	cats := category.NewSet(category.Pdf)
	type scanResult struct {
		tasks []FileTask
		errs  []error
	}
	resCh := make(chan scanResult, 1)
	go func() {
		tasks, errs := collectTasks(t, ScannerConfig{
			SrcRoot:    src,
			DstRoot:    filepath.Join(dir, "dst"),
			Workers:    2,
			Categories: &cats,
		})
		resCh <- scanResult{tasks, errs}
	}()

	select {
	case res := <-resCh:
		require.Empty(t, res.errs)
		assert.Len(t, res.tasks, width*width)
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not finish on a wide tree")
	}
}

// Every scan error must reach the sink even when the consumer lags
// behind the walk.
func TestScanner_SlowErrorConsumerSeesEveryError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src")

	const blockedDirs = 12
	for i := 0; i < blockedDirs; i++ {
		blocked := filepath.Join(src, fmt.Sprintf("blocked%02d", i))
		require.NoError(t, os.MkdirAll(blocked, 0755))
		require.NoError(t, os.Chmod(blocked, 0000))
		t.Cleanup(func() { _ = os.Chmod(blocked, 0755) })
	}

	scanner := NewScanner(ScannerConfig{
		SrcRoot: src,
		DstRoot: filepath.Join(dir, "dst"),
		Workers: 1,
		Stats:   stats.NewCollector(),
	})
	tasks, errs := scanner.Scan(context.Background())

	go func() {
		for range tasks {
		}
	}()

	var count int
	for range errs {
		count++
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, blockedDirs, count)
}
