// Package health runs independent read-only probes of the disks
// involved in a backup. Probes share no state and never mutate; each
// produces one log line.
package health

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/snapshot"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

// Report is the outcome of one probe.
type Report struct {
	Name   string
	OK     bool
	Detail string
}

// Line renders the report as a single log line.
func (r Report) Line() string {
	status := "ok"
	if !r.OK {
		status = "warn"
	}
	return fmt.Sprintf("%s: %s - %s", r.Name, status, r.Detail)
}

// Probe is a single read-only check.
type Probe interface {
	Name() string
	Check(ctx context.Context) Report
}

// RunAll executes all probes concurrently and appends each report to
// the session's activity sink. Probes are independent; one failing
// never stops the others.
func RunAll(ctx context.Context, session *runlog.Session, probes ...Probe) []Report {
	reports := make([]Report, len(probes))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			reports[i] = p.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if session != nil {
		for _, r := range reports {
			_ = session.Activity(r.Line())
		}
	}
	return reports
}

// SpaceProbe reports filesystem usage for a path and warns when free
// space drops below the threshold fraction (default 0.10).
type SpaceProbe struct {
	Path         string
	MinFreeRatio float64
}

func (p SpaceProbe) Name() string { return "space" }

func (p SpaceProbe) Check(context.Context) Report {
	minFree := p.MinFreeRatio
	if minFree <= 0 {
		minFree = 0.10
	}

	var fs unix.Statfs_t
	if err := unix.Statfs(p.Path, &fs); err != nil {
		return Report{Name: p.Name(), OK: false, Detail: fmt.Sprintf("statfs %s: %v", p.Path, err)}
	}

	total := int64(fs.Blocks) * int64(fs.Bsize)
	free := int64(fs.Bavail) * int64(fs.Bsize)
	if total == 0 {
		return Report{Name: p.Name(), OK: false, Detail: fmt.Sprintf("%s reports zero capacity", p.Path)}
	}

	ratio := float64(free) / float64(total)
	detail := fmt.Sprintf("%s free of %s on %s", stats.FormatBytes(free), stats.FormatBytes(total), p.Path)
	return Report{Name: p.Name(), OK: ratio >= minFree, Detail: detail}
}

// MountProbe warns when the filesystem holding a path is mounted
// read-only, which would make it useless as a backup destination.
type MountProbe struct {
	Path string
}

func (p MountProbe) Name() string { return "mount" }

func (p MountProbe) Check(context.Context) Report {
	var fs unix.Statfs_t
	if err := unix.Statfs(p.Path, &fs); err != nil {
		return Report{Name: p.Name(), OK: false, Detail: fmt.Sprintf("statfs %s: %v", p.Path, err)}
	}

	if fs.Flags&unix.ST_RDONLY != 0 {
		return Report{Name: p.Name(), OK: false, Detail: fmt.Sprintf("%s is mounted read-only", p.Path)}
	}
	return Report{Name: p.Name(), OK: true, Detail: fmt.Sprintf("%s is writable", p.Path)}
}

// SnapshotProbe checks whether the snapshot service has any snapshots
// to offer for recovery.
type SnapshotProbe struct {
	Enum snapshot.Enumerator
}

func (p SnapshotProbe) Name() string { return "snapshots" }

func (p SnapshotProbe) Check(ctx context.Context) Report {
	handles, err := p.Enum.List(ctx)
	if err != nil {
		return Report{Name: p.Name(), OK: false, Detail: fmt.Sprintf("enumerate: %v", err)}
	}
	if len(handles) == 0 {
		return Report{Name: p.Name(), OK: false, Detail: "no snapshots available"}
	}
	return Report{Name: p.Name(), OK: true, Detail: fmt.Sprintf("%d snapshots available", len(handles))}
}
