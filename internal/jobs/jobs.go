// Package jobs runs the scheduled rank check and Search Console sync.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"seodesk/internal/metrics"
)

// run executes fn and records the outcome under name.
func run(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.JobRuns.WithLabelValues(name, metrics.Outcome(err)).Inc()
	if err != nil {
		slog.Error("job failed", "job", name, "duration", time.Since(start), "error", err)
		return err
	}
	slog.Info("job finished", "job", name, "duration", time.Since(start))
	return nil
}

// loop calls fn every interval until ctx is cancelled. The first run happens
// after one interval so restarts do not spend provider credits.
func loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	slog.Info("job scheduled", "job", name, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("job stopped", "job", name)
			return
		case <-ticker.C:
			_ = run(ctx, name, fn)
		}
	}
}
