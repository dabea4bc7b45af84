package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/lifeboat-sh/lifeboat/internal/event"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

// plainPresenter prints one line per completed file to stdout and
// periodic progress to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	verbose bool
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var ticks int
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.stats.Tick()
			ticks++
			if ticks%5 == 0 {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.FileCopied:
		fmt.Fprintf(p.w, "%s  %s\n", ev.Path, stats.FormatBytes(ev.Size))
	case event.FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.errW, "FAILED %s: %s\n", ev.Path, errMsg)
	case event.FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  skipped\n", ev.Path)
		}
	case event.VerifyStarted:
		fmt.Fprintln(p.w, "verifying...")
	case event.VerifyFailed:
		fmt.Fprintf(p.errW, "MISMATCH: %s\n", ev.Path)
	case event.RecoveryStarted:
		fmt.Fprintf(p.w, "recovering %s\n", ev.Path)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: %s files, %s, %s\n",
		FormatCount(snap.FilesCopied),
		stats.FormatBytes(snap.BytesCopied),
		FormatRate(p.stats.RollingSpeed(10)),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
