package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"envdiff/core/config"
	"envdiff/core/console"
	"envdiff/core/diff"
	"envdiff/core/logger"
	"envdiff/core/reconcile"
	"envdiff/core/source"
	"envdiff/core/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrDifferences is returned in monitor mode when differences remain.
var ErrDifferences = errors.New("differences detected")

type compareOptions struct {
	reference    string
	environments []string
	checkList    []string
	dump         string
	monitor      bool
	sync         bool
	yes          bool
	dryRun       bool
	concurrency  int
}

var compareOpts compareOptions

// compareCmd compares environments against a reference and optionally
// reconciles them.
var compareCmd = &cobra.Command{
	Use:   "compare [environment...]",
	Short: "Compare environments against a reference",
	Long: `Compare the schema, API services and permissions of environments against
a reference environment and print a table per difference kind.

With --sync the other environments are brought in line with the reference.
Destructive operations are confirmed interactively unless --yes is given.
Dumps and database schemas are compared but never modified.`,
	Example: `  # Report differences between production and two other apps
  envdiff compare -r prod -c staging -c dev

  # Only schema and table permissions, against a dump file
  envdiff compare -r prod ./dumps/prod.json -l schema,table-perms

  # Dump the reference and fail when differences remain after syncing
  envdiff compare -r prod -c dev -d s3://envdiff/dumps/prod.json --sync --yes --monitor`,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVarP(&compareOpts.reference, "reference", "r", "", "Reference environment (application name, dump file, s3:// url or db:<name>)")
	f.StringSliceVarP(&compareOpts.environments, "check", "c", nil, "Environment to compare against the reference (repeatable)")
	f.StringSliceVarP(&compareOpts.checkList, "check-list", "l", nil, fmt.Sprintf("Difference kinds to check (default %v)", diff.AllKinds))
	f.StringVarP(&compareOpts.dump, "dump", "d", "", "Write the reference snapshot to a file or s3:// url")
	f.BoolVarP(&compareOpts.monitor, "monitor", "m", false, "Exit with status 1 when differences remain")
	f.BoolVarP(&compareOpts.sync, "sync", "s", false, "Reconcile the environments with the reference")
	f.BoolVar(&compareOpts.yes, "yes", false, "Auto-confirm destructive operations (non-interactive)")
	f.BoolVar(&compareOpts.dryRun, "dry-run", false, "Plan the sync without changing any environment")
	f.IntVar(&compareOpts.concurrency, "concurrency", 0, "Maximum concurrent requests (default from config)")

	f.StringP("url", "b", "", "Console URL")
	f.StringP("username", "u", "", "Console username")
	f.StringP("password", "p", "", "Console password")
	f.IntP("timeout", "t", 0, "Request timeout in seconds")
	f.BoolP("verbose", "v", false, "Log every console request")

	RootCmd.AddCommand(compareCmd)
}

// applyConsoleFlags overrides the console configuration with the flags set
// on the command line.
func applyConsoleFlags(cmd *cobra.Command, cfg *console.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL, _ = flags.GetString("url")
	}
	if flags.Changed("username") {
		cfg.Username, _ = flags.GetString("username")
	}
	if flags.Changed("password") {
		cfg.Password, _ = flags.GetString("password")
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds, _ = flags.GetInt("timeout")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyConsoleFlags(cmd, &cfg.Console)

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	opts := compareOpts
	opts.environments = append(append([]string(nil), opts.environments...), args...)
	if opts.reference == "" {
		return errors.New("a reference environment is required (--reference)")
	}
	if len(opts.checkList) == 0 && cfg.Sync.CheckList != "" {
		opts.checkList = splitList(cfg.Sync.CheckList)
	}
	if opts.concurrency <= 0 {
		opts.concurrency = cfg.Sync.Concurrency
	}
	if opts.concurrency > 0 {
		cfg.Console.Concurrency = opts.concurrency
	}

	refs := append([]string{opts.reference}, opts.environments...)
	resolver := &source.Resolver{
		Database: databaseOpener(cfg.Database),
		Limit:    opts.concurrency,
		Logger:   l,
	}

	var client *console.Client
	if anyOfKind(refs, source.KindConsole) {
		client, err = console.NewClient(cfg.Console, l)
		if err != nil {
			return err
		}
		if err := client.Login(ctx); err != nil {
			return err
		}
		resolver.Console = client
	}

	if storage.IsURL(opts.dump) || anyOfKind(refs, source.KindBucket) {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		resolver.Storage = store
	}

	var syncer *reconcile.Syncer
	if opts.sync {
		var confirmer reconcile.Confirmer = reconcile.NewPromptConfirmer(os.Stdin, cmd.OutOrStdout())
		if opts.yes {
			confirmer = reconcile.AutoConfirmer{Answer: true}
		}
		syncer = &reconcile.Syncer{
			Confirmer: confirmer,
			Options:   reconcile.Options{DryRun: opts.dryRun, Concurrency: opts.concurrency},
			Logger:    l,
		}
		if client != nil {
			syncer.Client = client
			syncer.Refresher = client
		}
	}

	return runComparison(ctx, resolver, syncer, opts, cmd.OutOrStdout(), l)
}

// runComparison resolves the reference and the environments, reports their
// differences and, when a syncer is given, reconciles them. In monitor mode
// it returns ErrDifferences when differences remain.
func runComparison(ctx context.Context, resolver *source.Resolver, syncer *reconcile.Syncer, opts compareOptions, out io.Writer, l *zap.Logger) error {
	kinds, err := diff.ParseCheckList(opts.checkList)
	if err != nil {
		return err
	}

	refs := append([]string{opts.reference}, opts.environments...)
	snapshots, err := resolver.ResolveAll(ctx, refs)
	if err != nil {
		return err
	}

	if opts.dump != "" {
		if err := resolver.Dump(ctx, opts.dump, snapshots[0]); err != nil {
			return fmt.Errorf("failed to dump %s: %w", snapshots[0].Name, err)
		}
		logger.WithEnvironment(l, snapshots[0].Name).Info("Reference dumped", zap.String("target", opts.dump))
	}

	if len(snapshots) < 2 {
		l.Info("Nothing to compare against the reference")
		return nil
	}

	reports := diff.CompareAll(snapshots, kinds)
	if err := diff.RenderAll(out, reports); err != nil {
		return err
	}
	differences := diff.AnyDifferences(reports)
	if !differences {
		fmt.Fprintln(out, "No differences found.")
		return nil
	}

	if syncer != nil {
		syncer.Checks = kinds
		report, err := syncer.Sync(ctx, snapshots[0], snapshots[1:])
		if report != nil {
			printSyncReport(out, report)
		}
		if err != nil {
			return err
		}

		if !syncer.Options.DryRun {
			reports = diff.CompareAll(snapshots, kinds)
			differences = diff.AnyDifferences(reports)
			if differences {
				fmt.Fprintln(out, "\nRemaining differences:")
				if err := diff.RenderAll(out, reports); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, "\nAll differences reconciled.")
			}
		}
	}

	if differences && opts.monitor {
		return ErrDifferences
	}
	return nil
}

func printSyncReport(out io.Writer, report *reconcile.SyncReport) {
	fmt.Fprintln(out)
	for _, skip := range report.Total.Skipped {
		fmt.Fprintf(out, "skipped  %s (%s)\n", skip.Operation, skip.Reason)
	}
	for _, failure := range report.Total.Failed {
		fmt.Fprintf(out, "failed   %s: %s\n", failure.Operation, failure.Message)
	}

	summary := report.Total.Summary()
	fmt.Fprintf(out, "Sync: %d applied, %d skipped, %d failed\n", summary.Applied, summary.Skipped, summary.Failed)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
