package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lifeboat-sh/lifeboat/internal/config"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/snapshot"
)

const defaultSnapshotRoot = "/.snapshots"

func recoverCmd() *cobra.Command {
	var (
		snapshotRoot string
		policyName   string
		installTool  bool
		logDir       string
		quiet        bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "recover <relative-path> <destination>",
		Short: "Recover a deleted file from a snapshot",
		Long: "recover resolves a path relative to the snapshotted volume root against a\nchosen snapshot and copies the file into the destination directory. The\nrecovered file lands flat in the destination, without its original subtree.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			relPath, dst := args[0], args[1]
			configureLogging(verbose, quiet)

			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			if !cmd.Flags().Changed("snapshot-root") && cfg.Defaults.SnapshotRoot != nil {
				snapshotRoot = *cfg.Defaults.SnapshotRoot
			}
			if !cmd.Flags().Changed("log-dir") && cfg.Defaults.LogDir != nil {
				logDir = *cfg.Defaults.LogDir
			}

			policy, err := resolvePolicy(policyName)
			if err != nil {
				return err
			}

			if logDir == "" {
				logDir = filepath.Join(dst, "lifeboat-logs")
			}
			session, err := runlog.Open(logDir, runlog.KindRecovery)
			if err != nil {
				return err
			}
			defer session.Close()

			ctx, stop := signalContext()
			defer stop()

			if installTool {
				installed, err := snapshot.NewInstaller().EnsureTool(ctx)
				if err != nil {
					slog.Warn("recovery tool install failed, continuing with snapshots only",
						"tool", snapshot.RecoveryTool, "error", err)
				} else if installed {
					slog.Info("recovery tool installed", "tool", snapshot.RecoveryTool)
				}
			}

			eng := &snapshot.Engine{
				Enum:    &snapshot.DirEnumerator{Base: snapshotRoot},
				Session: session,
			}

			handle, err := eng.Select(ctx, policy)
			if err != nil {
				if errors.Is(err, snapshot.ErrSnapshotUnavailable) {
					fmt.Fprintf(os.Stderr, "no snapshots available under %s\n", snapshotRoot)
					return &exitError{code: 1}
				}
				return err
			}
			slog.Debug("selected snapshot", "root", handle.DeviceRoot, "created", handle.CreatedAt)

			written, err := eng.Recover(ctx, handle, relPath, dst)
			if err != nil {
				if errors.Is(err, snapshot.ErrNotInSnapshot) {
					fmt.Fprintf(os.Stderr, "%s not found in snapshot %s\n", relPath, handle.DeviceRoot)
					return &exitError{code: 1}
				}
				return err
			}

			if !quiet {
				fmt.Printf("recovered %s -> %s\n", relPath, written)
				fmt.Fprintf(os.Stderr, "activity log: %s\nerror log:    %s\n", session.ActivityPath, session.ErrorPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotRoot, "snapshot-root", defaultSnapshotRoot, "directory holding the mounted snapshots")
	cmd.Flags().StringVar(&policyName, "policy", "latest", "snapshot selection policy (latest, oldest)")
	cmd.Flags().BoolVar(&installTool, "install-tool", false, "attempt to install the deep-recovery tool before recovering")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for run logs (default <destination>/lifeboat-logs)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	return cmd
}

func resolvePolicy(name string) (snapshot.Policy, error) {
	switch name {
	case "latest":
		return snapshot.MostRecent, nil
	case "oldest":
		return snapshot.Oldest, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want latest or oldest)", name)
	}
}

func snapshotsCmd() *cobra.Command {
	var snapshotRoot string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List the snapshots available for recovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			if !cmd.Flags().Changed("snapshot-root") && cfg.Defaults.SnapshotRoot != nil {
				snapshotRoot = *cfg.Defaults.SnapshotRoot
			}

			ctx, stop := signalContext()
			defer stop()

			enum := &snapshot.DirEnumerator{Base: snapshotRoot}
			handles, err := enum.List(ctx)
			if err != nil {
				return err
			}
			if len(handles) == 0 {
				fmt.Printf("no snapshots under %s\n", snapshotRoot)
				return nil
			}
			for _, h := range handles {
				fmt.Printf("%s\t%s\n", h.CreatedAt.Format("2006-01-02 15:04:05"), h.DeviceRoot)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotRoot, "snapshot-root", defaultSnapshotRoot, "directory holding the mounted snapshots")
	return cmd
}
