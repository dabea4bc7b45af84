package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeboat-sh/lifeboat/internal/event"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

func TestPlainPresenter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPresenter(Config{Writer: &out, ErrWriter: &errOut, Stats: stats.NewCollector()})

	events := make(chan event.Event, 8)
	events <- event.Event{Type: event.FileCopied, Path: "a.pdf", Size: 1024}
	events <- event.Event{Type: event.FileFailed, Path: "b.pdf", Error: errors.New("permission denied")}
	events <- event.Event{Type: event.FileSkipped, Path: "c.exe"}
	close(events)

	require.NoError(t, p.Run(events))

	assert.Contains(t, out.String(), "a.pdf")
	assert.Contains(t, out.String(), "1.0 KiB")
	assert.NotContains(t, out.String(), "c.exe") // skipped is silent unless verbose
	assert.Contains(t, errOut.String(), "b.pdf")
	assert.Contains(t, errOut.String(), "permission denied")
}

func TestVerbosePresenterShowsSkips(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPresenter(Config{Writer: &out, ErrWriter: &errOut, Stats: stats.NewCollector(), Verbose: true})

	events := make(chan event.Event, 1)
	events <- event.Event{Type: event.FileSkipped, Path: "c.exe"}
	close(events)

	require.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "c.exe")
}

func TestQuietPresenter(t *testing.T) {
	p := NewPresenter(Config{Quiet: true, Stats: stats.NewCollector()})

	events := make(chan event.Event, 1)
	events <- event.Event{Type: event.FileCopied, Path: "a.pdf"}
	close(events)

	require.NoError(t, p.Run(events))
	assert.Empty(t, p.Summary())
}
