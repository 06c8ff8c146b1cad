package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// RecordUsage inserts an API usage row. requestData is marshalled to JSON when non-nil.
func (d *DB) RecordUsage(ctx context.Context, userID *uuid.UUID, apiName, endpoint string, credits int, requestData any) error {
	var payload []byte
	if requestData != nil {
		b, err := json.Marshal(requestData)
		if err != nil {
			return fmt.Errorf("marshal usage request data: %w", err)
		}
		payload = b
	}

	_, err := d.Pool.Exec(ctx, `
		INSERT INTO api_usage (user_id, api_name, endpoint, credits_used, request_data)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, apiName, endpoint, credits, payload)
	return err
}

// UsageTotals aggregates credits per API and endpoint.
func (d *DB) UsageTotals(ctx context.Context) ([]models.UsageTotal, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT api_name, endpoint, COALESCE(SUM(credits_used), 0), COUNT(*)
		FROM api_usage GROUP BY api_name, endpoint`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UsageTotal, error) {
		var u models.UsageTotal
		err := row.Scan(&u.APIName, &u.Endpoint, &u.Credits, &u.Calls)
		return u, err
	})
}

// CountRows returns row counts for the gauge-style metrics.
func (d *DB) CountRows(ctx context.Context) (projects, keywords, campaigns int64, err error) {
	err = d.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM projects),
			(SELECT COUNT(*) FROM keywords),
			(SELECT COUNT(*) FROM outreach_campaigns WHERE status = 'running')
	`).Scan(&projects, &keywords, &campaigns)
	return
}
