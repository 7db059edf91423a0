package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Refresher is a snapshot-backed store that can swap in a newer snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// Scheduler periodically exports the inventory, refreshes a snapshot-backed
// store, or both.
type Scheduler struct {
	Exporter  *Exporter
	Refresher Refresher
	Interval  time.Duration
	// Keep, when > 0, prunes older snapshots after each successful export.
	Keep   int
	Logger *slog.Logger
}

func (s *Scheduler) Run(ctx context.Context) error {
	if s.Exporter == nil && s.Refresher == nil {
		return fmt.Errorf("snapshot scheduler has nothing to do")
	}
	if s.Interval <= 0 {
		return fmt.Errorf("snapshot interval must be > 0")
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single export and refresh cycle. Failures are logged and
// retried on the next tick.
func (s *Scheduler) RunOnce(ctx context.Context) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.Exporter != nil {
		info, err := s.Exporter.Export(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "snapshot export failed", slog.Any("error", err))
		} else {
			logger.InfoContext(ctx, "snapshot exported",
				slog.String("snapshot_id", info.ID),
				slog.Int64("records", info.RecordCount),
			)
			if s.Keep > 0 {
				summary, err := Prune(ctx, s.Exporter.Objects, s.Keep)
				if err != nil {
					logger.ErrorContext(ctx, "snapshot retention failed", slog.Any("error", err), slog.Any("summary", summary))
				} else if summary.Deleted > 0 {
					logger.InfoContext(ctx, "snapshot retention completed", slog.Any("summary", summary))
				}
			}
		}
	}
	if s.Refresher != nil {
		changed, err := s.Refresher.Refresh(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "snapshot refresh failed", slog.Any("error", err))
			return
		}
		if changed {
			logger.InfoContext(ctx, "snapshot reloaded")
		}
	}
}
