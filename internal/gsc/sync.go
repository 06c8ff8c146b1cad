package gsc

import (
	"context"
	"fmt"
	"log/slog"

	"seodesk/internal/models"
)

// Store persists refreshed tokens and analytics rows.
type Store interface {
	UpdateGSCAccessToken(ctx context.Context, t *models.GSCToken) error
	UpsertGSCRows(ctx context.Context, rows []models.GSCRow) (int, error)
}

// SyncResult summarises one sync run.
type SyncResult struct {
	RowsFetched  int    `json:"rows_fetched"`
	RowsInserted int    `json:"rows_inserted"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// Sync refreshes the token if needed, fetches the last days of analytics for
// the token's site and upserts them.
func (c *Client) Sync(ctx context.Context, store Store, t *models.GSCToken, days int) (*SyncResult, error) {
	refreshed, err := c.EnsureFresh(ctx, t)
	if err != nil {
		return nil, err
	}
	if refreshed {
		if err := store.UpdateGSCAccessToken(ctx, t); err != nil {
			return nil, fmt.Errorf("save refreshed token: %w", err)
		}
	}

	start, end := DateRange(c.now(), days)
	slog.Info("fetching search console data", "project_id", t.ProjectID, "site", t.SiteURL, "start", start, "end", end)

	rows, err := c.SearchAnalytics(ctx, Token(t), t.SiteURL, start, end)
	if err != nil {
		return nil, err
	}

	inserted, err := store.UpsertGSCRows(ctx, ToGSCRows(t.ProjectID, rows))
	if err != nil {
		return nil, fmt.Errorf("save search console rows: %w", err)
	}

	return &SyncResult{RowsFetched: len(rows), RowsInserted: inserted, StartDate: start, EndDate: end}, nil
}
