package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/services"
)

var (
	syncDryRun   bool
	syncWatch    bool
	syncInterval time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise configured sources into the corpus",
	Long: `Compares every configured source against the corpus index and applies
the minimal set of changes: new documents are indexed, changed documents
are re-indexed, removed documents are deleted. Unchanged documents are
not touched.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "show the plan without applying it")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep running and sync on source changes")
	syncCmd.Flags().DurationVar(&syncInterval, "interval", 0, "periodic sync interval in watch mode (e.g. 10m)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder()
	if err != nil {
		closeAll(store)
		return err
	}
	sources, err := buildSources(ctx)
	if err != nil {
		closeAll(store, embedder)
		return err
	}
	defer func() {
		for _, src := range sources {
			closeAll(src)
		}
		closeAll(store, embedder)
	}()

	coordinator := buildCoordinator(sources, embedder, store)

	if syncDryRun {
		plan, err := coordinator.Plan(ctx)
		if err != nil {
			return fmt.Errorf("plan failed: %w", err)
		}
		printPlan(cmd, plan)
		return nil
	}

	go printProgress(cmd, coordinator.Events())

	report, err := coordinator.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	printReport(cmd, report)

	if !syncWatch {
		return nil
	}

	cmd.Println("Watching for changes. Press Ctrl-C to stop.")
	scheduler := services.NewScheduler(coordinator, sources, syncIntervalOrConfig())
	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func syncIntervalOrConfig() time.Duration {
	if syncInterval > 0 {
		return syncInterval
	}
	return appConfig.Sync.Interval.Duration()
}

func printPlan(cmd *cobra.Command, plan *domain.SyncPlan) {
	if plan.Empty() {
		cmd.Println("Corpus is up to date.")
		return
	}
	for _, ref := range plan.ToAdd {
		cmd.Printf("  add     %s (%s)\n", ref.DocumentID(), ref.DisplayName)
	}
	for _, ref := range plan.ToUpdate {
		cmd.Printf("  update  %s (%s)\n", ref.DocumentID(), ref.DisplayName)
	}
	for _, id := range plan.ToDelete {
		cmd.Printf("  delete  %s\n", id)
	}
	cmd.Printf("%d to add, %d to update, %d to delete\n",
		len(plan.ToAdd), len(plan.ToUpdate), len(plan.ToDelete))
}

func printReport(cmd *cobra.Command, report *domain.SyncReport) {
	cmd.Printf("Sync complete: %d added, %d updated, %d deleted, %d skipped, %d failed\n",
		report.Added, report.Updated, report.Deleted, report.Skipped, report.Failed)
}

// printProgress streams per-document progress while a sync runs.
// Only terminal stage outcomes are shown; started events are noise at
// the CLI level.
func printProgress(cmd *cobra.Command, events <-chan domain.ProgressEvent) {
	for ev := range events {
		switch ev.Status {
		case domain.StatusFailed:
			cmd.Printf("  %-10s %s: %v\n", ev.Stage, ev.DocumentID, ev.Err)
		case domain.StatusCompleted:
			if ev.Stage == domain.StageUpserting || ev.Stage == domain.StageDeleting {
				cmd.Printf("  %-10s %s\n", ev.Stage, ev.DocumentID)
			}
		case domain.StatusSkipped:
			cmd.Printf("  skipped    %s\n", ev.DocumentID)
		}
	}
}
