package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeboat-sh/lifeboat/internal/health"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/snapshot"
)

func healthCmd() *cobra.Command {
	var (
		snapshotRoot string
		logDir       string
	)

	cmd := &cobra.Command{
		Use:   "health [path...]",
		Short: "Run read-only disk health probes",
		Long: "health checks free space and writability for each given path (default: the\ncurrent directory) and reports whether snapshots are available for recovery.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}

			var session *runlog.Session
			if logDir != "" {
				var err error
				session, err = runlog.Open(logDir, runlog.KindHealth)
				if err != nil {
					return err
				}
				defer session.Close()
			}

			probes := make([]health.Probe, 0, len(paths)*2+1)
			for _, p := range paths {
				probes = append(probes, health.SpaceProbe{Path: p}, health.MountProbe{Path: p})
			}
			probes = append(probes, health.SnapshotProbe{
				Enum: &snapshot.DirEnumerator{Base: snapshotRoot},
			})

			warned := false
			for _, r := range health.RunAll(ctx, session, probes...) {
				fmt.Println(r.Line())
				if !r.OK {
					warned = true
				}
			}
			if warned {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotRoot, "snapshot-root", defaultSnapshotRoot, "directory holding the mounted snapshots")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for run logs (omit to skip logging)")
	return cmd
}
