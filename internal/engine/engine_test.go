package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeboat-sh/lifeboat/internal/category"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func openSession(t *testing.T) *runlog.Session {
	t.Helper()
	s, err := runlog.Open(t.TempDir(), runlog.KindBackup)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestRun_SelectedCategoriesOnly(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "Users", "demo", "report.docx"), "quarterly report")
	writeFile(t, filepath.Join(src, "Users", "demo", "video.mp4"), "not selected")
	writeFile(t, filepath.Join(src, "Users", "demo", "notes.unknown"), "no category")

	session := openSession(t)
	cats := category.NewSet(category.NewOfficeDoc)

	result := Run(context.Background(), Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    2,
		Session:    session,
	})
	require.NoError(t, result.Err)

	assert.Equal(t, int64(1), result.Stats.FilesCopied)
	assert.Equal(t, int64(0), result.Stats.FilesFailed)
	assert.Equal(t, int64(2), result.Stats.FilesSkipped)

	got, err := os.ReadFile(filepath.Join(dst, "Users", "demo", "report.docx"))
	require.NoError(t, err)
	assert.Equal(t, "quarterly report", string(got))

	_, err = os.Stat(filepath.Join(dst, "Users", "demo", "video.mp4"))
	assert.True(t, os.IsNotExist(err))

	// Exactly one activity line, no error lines, and skipped files never
	// reach either sink.
	activity := readLines(t, session.ActivityPath)
	require.Len(t, activity, 1)
	assert.Contains(t, activity[0], "report.docx")
	assert.Empty(t, readLines(t, session.ErrorPath))
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a.pdf"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.pdf"), "b")
	writeFile(t, filepath.Join(src, "c.pdf"), "c")

	// Block the sub/ directory at the destination with a regular file so
	// only b.pdf can fail.
	require.NoError(t, os.MkdirAll(dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "sub"), []byte("in the way"), 0644))

	session := openSession(t)
	cats := category.NewSet(category.Pdf)

	result := Run(context.Background(), Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    2,
		Session:    session,
	})
	require.NoError(t, result.Err)

	assert.Equal(t, int64(2), result.Stats.FilesCopied)
	assert.Equal(t, int64(1), result.Stats.FilesFailed)

	errLines := readLines(t, session.ErrorPath)
	require.Len(t, errLines, 1)
	assert.Contains(t, errLines[0], filepath.Join("sub", "b.pdf"))

	assert.Len(t, readLines(t, session.ActivityPath), 2)
}

func TestRun_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "ok.pdf"), "fine")
	locked := filepath.Join(src, "locked.pdf")
	writeFile(t, locked, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })

	session := openSession(t)
	cats := category.NewSet(category.Pdf)

	result := Run(context.Background(), Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    2,
		Session:    session,
	})
	require.NoError(t, result.Err)

	assert.Equal(t, int64(1), result.Stats.FilesCopied)
	assert.Equal(t, int64(1), result.Stats.FilesFailed)

	errLines := readLines(t, session.ErrorPath)
	require.Len(t, errLines, 1)
	assert.Contains(t, errLines[0], "locked.pdf")
}

func TestRun_ZeroMatchesIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a.txt"), "no category")

	session := openSession(t)
	cats := category.NewSet(category.Video)

	result := Run(context.Background(), Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    1,
		Session:    session,
	})
	require.NoError(t, result.Err)
	assert.Zero(t, result.Stats.FilesCopied)
	assert.Zero(t, result.Stats.FilesFailed)
	assert.Empty(t, readLines(t, session.ActivityPath))
	assert.Empty(t, readLines(t, session.ErrorPath))
}

func TestRun_NilCategoriesCopiesEverything(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "profile", "prefs.js"), "browser pref")
	writeFile(t, filepath.Join(src, "profile", "cookies.sqlite"), "cookies")

	result := Run(context.Background(), Config{
		Src:     src,
		Dst:     dst,
		Workers: 2,
		Stats:   stats.NewCollector(),
	})
	require.NoError(t, result.Err)
	assert.Equal(t, int64(2), result.Stats.FilesCopied)

	_, err := os.Stat(filepath.Join(dst, "profile", "cookies.sqlite"))
	assert.NoError(t, err)
}

func TestRun_OverwritesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a.pdf"), "new contents")
	writeFile(t, filepath.Join(dst, "a.pdf"), "old contents")

	cats := category.NewSet(category.Pdf)
	result := Run(context.Background(), Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    1,
	})
	require.NoError(t, result.Err)

	got, err := os.ReadFile(filepath.Join(dst, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "new contents", string(got))
}

func TestRun_MissingSourceIsFatal(t *testing.T) {
	dir := t.TempDir()

	result := Run(context.Background(), Config{
		Src:     filepath.Join(dir, "nope"),
		Dst:     filepath.Join(dir, "dst"),
		Workers: 1,
	})
	assert.Error(t, result.Err)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a.pdf"), "a")

	cats := category.NewSet(category.Pdf)
	result := Run(context.Background(), Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    1,
		DryRun:     true,
	})
	require.NoError(t, result.Err)
	assert.Equal(t, int64(1), result.Stats.FilesCopied)

	_, err := os.Stat(filepath.Join(dst, "a.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Cancellation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	for i := 0; i < 200; i++ {
		writeFile(t, filepath.Join(src, "f"+string(rune('a'+i%26))+string(rune('a'+i/26))+".pdf"), "data")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cats := category.NewSet(category.Pdf)
	result := Run(ctx, Config{
		Src:        src,
		Dst:        dst,
		Categories: &cats,
		Workers:    4,
	})

	// Dispatch stops on cancellation; whatever completed stays valid.
	require.NoError(t, result.Err)
	assert.LessOrEqual(t, result.Stats.FilesCopied, int64(200))
}
