package driving

import (
	"context"

	"github.com/recall-labs/recall-cli/internal/core/domain"
)

// SyncCoordinator drives the incremental reconciliation loop: it
// compares document source state against index store state and issues
// minimal add/update/delete operations.
type SyncCoordinator interface {
	// Run executes one reconciliation pass across all sources. Only one
	// run may be active at a time; a second call returns
	// domain.ErrSyncInProgress. Per-document failures are isolated and
	// reported in the returned counts; store-level and credential
	// failures abort the run.
	Run(ctx context.Context) (*domain.SyncReport, error)

	// Plan computes the diff without applying it.
	Plan(ctx context.Context) (*domain.SyncPlan, error)

	// Events returns the progress stream for the current and subsequent
	// runs. Events are dropped, not blocked on, when no observer reads.
	Events() <-chan domain.ProgressEvent
}
