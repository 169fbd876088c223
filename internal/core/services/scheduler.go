package services

import (
	"context"
	"errors"
	"time"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
	"github.com/recall-labs/recall-cli/internal/core/ports/driving"
	"github.com/recall-labs/recall-cli/internal/logger"
)

// watchDebounce coalesces bursts of change notifications (editors often
// write a file several times in quick succession) into one sync.
const watchDebounce = 2 * time.Second

// Scheduler triggers sync runs on an interval and on source change
// notifications. Sources that cannot watch still get interval syncs.
type Scheduler struct {
	coordinator driving.SyncCoordinator
	sources     []driven.DocumentSource
	interval    time.Duration
}

// NewScheduler wires a scheduler. An interval of zero disables timed
// syncs, leaving only change-triggered ones.
func NewScheduler(coordinator driving.SyncCoordinator, sources []driven.DocumentSource, interval time.Duration) *Scheduler {
	return &Scheduler{coordinator: coordinator, sources: sources, interval: interval}
}

// Run blocks until ctx is cancelled, syncing whenever the interval
// elapses or a watched source reports a change. Sync failures are
// logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	for _, src := range s.sources {
		ch, err := src.Watch(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedFormat) {
				logger.Debug("Source %s does not support watching", src.SourceID())
				continue
			}
			return err
		}
		go forward(ctx, ch, changed)
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			s.sync(ctx)
		case <-changed:
			// Wait for the burst to settle before syncing.
			if !sleep(ctx, watchDebounce) {
				return ctx.Err()
			}
			drain(changed)
			s.sync(ctx)
		}
	}
}

func (s *Scheduler) sync(ctx context.Context) {
	report, err := s.coordinator.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Debug("Sync already running, skipping trigger")
	case err != nil:
		logger.Warn("Scheduled sync failed: %v", err)
	default:
		logger.Info("Sync complete: %d added, %d updated, %d deleted, %d skipped, %d failed",
			report.Added, report.Updated, report.Deleted, report.Skipped, report.Failed)
	}
}

func forward(ctx context.Context, from <-chan struct{}, to chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-from:
			if !ok {
				return
			}
			select {
			case to <- struct{}{}:
			default:
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
