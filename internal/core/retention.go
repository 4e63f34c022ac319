package core

// retention.go prunes old upload records in the background.
//
// Upload records are small but accumulate forever on busy deployments. A
// sweeper deletes records older than the configured age, running on a
// ticker for the life of the process. It logs progress and errors but never
// fails the application over a missed sweep.

import (
	"context"
	"log/slog"
	"time"
)

// RecordPruner is implemented by recorders that can delete old records.
// Both the postgres and the in-memory recorder support it.
type RecordPruner interface {
	// Prune deletes records created before the cutoff and reports how many
	// were removed.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// RetentionPolicy bounds how long finished upload records are kept.
type RetentionPolicy struct {
	// MaxAge is the record lifetime. Zero or negative keeps records forever.
	MaxAge time.Duration

	// SweepInterval is how often expired records are deleted (default: 1h).
	SweepInterval time.Duration
}

// StartRetentionSweeper runs periodic pruning until ctx is cancelled. It
// returns immediately when retention is disabled or the recorder cannot
// prune. The first sweep runs right away, then every SweepInterval.
func (s *Service) StartRetentionSweeper(ctx context.Context, policy RetentionPolicy) {
	if policy.MaxAge <= 0 || s.recorder == nil {
		return
	}
	pruner, ok := s.recorder.(RecordPruner)
	if !ok {
		slog.Warn("upload record retention configured but recorder cannot prune")
		return
	}
	if policy.SweepInterval <= 0 {
		policy.SweepInterval = time.Hour
	}

	slog.Info("retention sweeper started",
		"max_age", policy.MaxAge,
		"sweep_interval", policy.SweepInterval,
	)

	// Run immediately on startup
	sweepRecords(ctx, pruner, policy.MaxAge)

	// Then run periodically
	ticker := time.NewTicker(policy.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			sweepRecords(ctx, pruner, policy.MaxAge)
		}
	}
}

// sweepRecords performs one prune cycle.
func sweepRecords(ctx context.Context, pruner RecordPruner, maxAge time.Duration) {
	start := time.Now()
	cutoff := start.Add(-maxAge)

	removed, err := pruner.Prune(ctx, cutoff)
	if err != nil {
		slog.Error("upload record prune failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("pruned upload records",
			"removed", removed,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
