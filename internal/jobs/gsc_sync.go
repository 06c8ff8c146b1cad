package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seodesk/internal/gsc"
	"seodesk/internal/models"
)

// GSCSyncJob is the job name used in logs and metrics.
const GSCSyncJob = "gsc_sync"

// Syncer pulls Search Console data for one connected project.
type Syncer interface {
	Sync(ctx context.Context, store gsc.Store, t *models.GSCToken, days int) (*gsc.SyncResult, error)
}

// GSCStore lists connected projects and stores their data.
type GSCStore interface {
	gsc.Store
	ListGSCTokens(ctx context.Context) ([]models.GSCToken, error)
}

// GSCSyncResult summarises one run.
type GSCSyncResult struct {
	TotalSynced  int       `json:"total_synced"`
	TotalErrors  int       `json:"total_errors"`
	RowsInserted int       `json:"rows_inserted"`
	Timestamp    time.Time `json:"timestamp"`
}

// GSCSync refreshes Search Console data for every connected project.
type GSCSync struct {
	store    GSCStore
	syncer   Syncer
	days     int
	interval time.Duration
	now      func() time.Time
}

// NewGSCSync creates the sync job covering the last days of data.
func NewGSCSync(store GSCStore, syncer Syncer, days int, interval time.Duration) *GSCSync {
	return &GSCSync{store: store, syncer: syncer, days: days, interval: interval, now: time.Now}
}

// Start runs the sync on the configured interval until ctx is cancelled.
func (g *GSCSync) Start(ctx context.Context) {
	loop(ctx, GSCSyncJob, g.interval, func(ctx context.Context) error {
		_, err := g.RunOnce(ctx)
		return err
	})
}

// RunOnce syncs every token with a selected site. A failing project is
// counted and does not stop the others.
func (g *GSCSync) RunOnce(ctx context.Context) (*GSCSyncResult, error) {
	tokens, err := g.store.ListGSCTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gsc tokens: %w", err)
	}

	res := &GSCSyncResult{}
	for i := range tokens {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		t := &tokens[i]
		if t.SiteURL == "" {
			slog.Warn("gsc sync: no site selected", "project_id", t.ProjectID)
			continue
		}

		out, err := g.syncer.Sync(ctx, g.store, t, g.days)
		if err != nil {
			slog.Error("gsc sync: project failed", "project_id", t.ProjectID, "error", err)
			res.TotalErrors++
			continue
		}
		res.TotalSynced++
		res.RowsInserted += out.RowsInserted
	}

	res.Timestamp = g.now()
	slog.Info("gsc sync complete", "synced", res.TotalSynced, "errors", res.TotalErrors, "rows", res.RowsInserted)
	return res, nil
}
