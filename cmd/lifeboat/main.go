package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lifeboat-sh/lifeboat/internal/browser"
	"github.com/lifeboat-sh/lifeboat/internal/category"
	"github.com/lifeboat-sh/lifeboat/internal/config"
	"github.com/lifeboat-sh/lifeboat/internal/engine"
	"github.com/lifeboat-sh/lifeboat/internal/event"
	"github.com/lifeboat-sh/lifeboat/internal/runlog"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
	"github.com/lifeboat-sh/lifeboat/internal/ui"
)

var version = "dev"

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:           "lifeboat",
		Short:         "Preserve user data before a device handoff",
		Long:          "lifeboat replicates selected file categories to a removable backup volume\nand recovers deleted files from point-in-time snapshots of the source volume.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(recoverCmd())
	rootCmd.AddCommand(snapshotsCmd())
	rootCmd.AddCommand(mediaCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
// Cancellation stops dispatching new file copies; in-flight copies
// finish or fail on their own deadline.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func configureLogging(verbose, quiet bool) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	} else if !quiet {
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

//nolint:gocyclo // CLI entry point orchestrates flag parsing and run assembly
func backupCmd() *cobra.Command {
	var (
		catSel      categoryValue
		allCats     bool
		browsers    bool
		workers     int
		scanWorkers int
		bwLimitStr  string
		fileTimeout time.Duration
		verifyFlag  bool
		logDir      string
		dryRun      bool
		quiet       bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "backup <source> <destination>",
		Short: "Replicate selected file categories to a backup volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			configureLogging(verbose, quiet)

			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyBackupDefaults(cmd, cfg.Defaults, &workers, &bwLimitStr, &fileTimeout, &verifyFlag, &logDir)

			cats := resolveCategories(catSel, allCats)
			if cats == nil && !browsers {
				return fmt.Errorf("nothing selected: use --categories, --all or --browsers")
			}

			var bwLimit int64
			if bwLimitStr != "" {
				bwLimit, err = config.ParseSize(bwLimitStr)
				if err != nil {
					return fmt.Errorf("invalid --bwlimit: %w", err)
				}
			}

			if logDir == "" {
				logDir = filepath.Join(dst, "lifeboat-logs")
			}
			session, err := runlog.Open(logDir, runlog.KindBackup)
			if err != nil {
				return err
			}
			defer session.Close()

			ctx, stop := signalContext()
			defer stop()

			if workers <= 0 {
				workers = min(runtime.NumCPU()*2, 16)
			}

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			presenter := ui.NewPresenter(ui.Config{
				Writer:    os.Stdout,
				ErrWriter: os.Stderr,
				Stats:     collector,
				Quiet:     quiet,
				Verbose:   verbose,
			})

			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				_ = presenter.Run(events)
			}()

			slog.Debug("starting backup",
				"src", src, "dst", dst, "categories", cats, "workers", workers, "dry_run", dryRun)

			var fatal error
			if cats != nil {
				result := engine.Run(ctx, engine.Config{
					Src:         src,
					Dst:         dst,
					Categories:  cats,
					Workers:     workers,
					ScanWorkers: scanWorkers,
					FileTimeout: fileTimeout,
					BWLimit:     bwLimit,
					DryRun:      dryRun,
					Events:      events,
					Stats:       collector,
					Session:     session,
				})
				fatal = result.Err
			}

			if browsers && fatal == nil {
				fatal = backupBrowsers(ctx, browserRunConfig{
					dst:         dst,
					workers:     workers,
					fileTimeout: fileTimeout,
					bwLimit:     bwLimit,
					dryRun:      dryRun,
					events:      events,
					collector:   collector,
					session:     session,
				})
			}

			verifyFailed := int64(0)
			if verifyFlag && fatal == nil && !dryRun && cats != nil {
				// The log session and browser output live under the
				// destination but have no source counterpart; hashing them
				// would fail a clean run.
				skipDirs := []string{logDir}
				if browsers {
					skipDirs = append(skipDirs, filepath.Join(dst, "browsers"))
				}
				vr := engine.Verify(ctx, engine.VerifyConfig{
					SrcRoot:  src,
					DstRoot:  dst,
					Workers:  workers,
					SkipDirs: skipDirs,
					Events:   events,
				})
				verifyFailed = vr.Failed
				for _, ve := range vr.Errors {
					_ = session.Error(fmt.Sprintf("verify mismatch %s (src %s, dst %s)", ve.Path, ve.SrcHash, ve.DstHash))
				}
			}

			stop()
			close(events)
			presenterWg.Wait()

			if !quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
				fmt.Fprintf(os.Stderr, "activity log: %s\nerror log:    %s\n", session.ActivityPath, session.ErrorPath)
			}

			if fatal != nil {
				slog.Error("backup failed", "error", fatal)
				return &exitError{code: 2}
			}
			if collector.Snapshot().FilesFailed > 0 || verifyFailed > 0 {
				return &exitError{code: 1} // partial: some files failed
			}
			return nil
		},
	}

	cmd.Flags().Var(&catSel, "categories",
		"categories to replicate (old-office,new-office,pdf,image,video,audio)")
	cmd.Flags().BoolVar(&allCats, "all", false, "replicate every defined category")
	cmd.Flags().BoolVar(&browsers, "browsers", false, "also replicate browser profile data")
	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "number of copy workers (default: min(NumCPU*2, 16))")
	cmd.Flags().IntVar(&scanWorkers, "scan-workers", 0, "number of scan workers (default: min(NumCPU, 8))")
	cmd.Flags().StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	cmd.Flags().DurationVar(&fileTimeout, "file-timeout", 0, "per-file copy deadline (default 2m)")
	cmd.Flags().BoolVar(&verifyFlag, "verify", false, "verify checksums after copy (BLAKE3)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for run logs (default <destination>/lifeboat-logs)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be copied without writing")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (includes skipped files)")

	return cmd
}

// categoryValue is a repeatable, comma-separated category flag.
// Unknown names fail at parse time, before any filesystem work starts.
type categoryValue struct {
	set     category.Set
	changed bool
}

var _ pflag.Value = (*categoryValue)(nil)

func (v *categoryValue) String() string {
	if !v.changed {
		return ""
	}
	return v.set.String()
}

func (v *categoryValue) Set(raw string) error {
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, ok := category.Parse(name)
		if !ok {
			return fmt.Errorf("unknown category %q", name)
		}
		v.set = v.set.Add(c)
	}
	v.changed = true
	return nil
}

func (v *categoryValue) Type() string { return "categories" }

// resolveCategories builds the selection set. --all expands to the
// union of defined categories here, at request construction, so the
// selection is fixed for the run.
func resolveCategories(sel categoryValue, all bool) *category.Set {
	if all {
		s := category.All()
		return &s
	}
	if !sel.changed {
		return nil
	}
	s := sel.set
	return &s
}

type browserRunConfig struct {
	dst         string
	workers     int
	fileTimeout time.Duration
	bwLimit     int64
	dryRun      bool
	events      chan event.Event
	collector   *stats.Collector
	session     *runlog.Session
}

// backupBrowsers replicates each located browser profile tree in full
// (no category filter) under <dst>/browsers/<app>.
func backupBrowsers(ctx context.Context, cfg browserRunConfig) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home: %w", err)
	}

	for _, art := range browser.Locate(home) {
		result := engine.Run(ctx, engine.Config{
			Src:         art.Path,
			Dst:         filepath.Join(cfg.dst, "browsers", art.App, filepath.Base(art.Path)),
			Workers:     cfg.workers,
			FileTimeout: cfg.fileTimeout,
			BWLimit:     cfg.bwLimit,
			DryRun:      cfg.dryRun,
			Events:      cfg.events,
			Stats:       cfg.collector,
			Session:     cfg.session,
		})
		if result.Err != nil {
			return fmt.Errorf("browser %s: %w", art.App, result.Err)
		}
	}
	return nil
}

// applyBackupDefaults applies config file defaults for flags not
// explicitly set on the CLI.
func applyBackupDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	workers *int,
	bwLimit *string,
	fileTimeout *time.Duration,
	verify *bool,
	logDir *string,
) {
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		*bwLimit = *defaults.BWLimit
	}
	if !cmd.Flags().Changed("file-timeout") && defaults.FileTimeout != nil {
		if d, err := time.ParseDuration(*defaults.FileTimeout); err == nil {
			*fileTimeout = d
		}
	}
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		*verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("log-dir") && defaults.LogDir != nil {
		*logDir = *defaults.LogDir
	}
}
