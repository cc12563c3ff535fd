// internal/syncer/refresher.go
package syncer

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Start periodically reconciles the configured repositories until ctx is cancelled.
// It returns immediately when no repositories are configured.
func (s *Syncer) Start(ctx context.Context) {
	if len(s.refreshIDs) == 0 || s.refreshInterval <= 0 {
		s.logger.Info("Background refresh disabled")
		return
	}

	s.logger.Info("Starting syncer", "interval", s.refreshInterval.String(), "concurrency", concurrency, "repositories", len(s.refreshIDs))
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle refreshes all configured repositories concurrently.
// A failing repository is logged and does not stop the others.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new sync cycle")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range s.refreshIDs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if _, err := s.Refresh(gctx, id, s.refreshToken); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Failed to sync repository", "repo_id", id, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Sync cycle finished with an error", "error", err)
	} else {
		s.logger.Info("Sync cycle finished")
	}
}
