package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// GSCBatchSize is the number of analytics rows written per batch.
const GSCBatchSize = 1000

const gscTokenColumns = `id, user_id, project_id, access_token, refresh_token, token_expiry, site_url, created_at, updated_at`

func scanGSCToken(row pgx.Row) (*models.GSCToken, error) {
	var t models.GSCToken
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.ProjectID,
		&t.AccessToken,
		&t.RefreshToken,
		&t.TokenExpiry,
		&t.SiteURL,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGSCTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertGSCToken stores Search Console credentials for a user and project.
func (d *DB) UpsertGSCToken(ctx context.Context, t *models.GSCToken) error {
	return d.Pool.QueryRow(ctx, `
		INSERT INTO gsc_tokens (user_id, project_id, access_token, refresh_token, token_expiry, site_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, project_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			site_url = EXCLUDED.site_url,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, t.UserID, t.ProjectID, t.AccessToken, t.RefreshToken, t.TokenExpiry, t.SiteURL,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetGSCToken returns the credentials for a user's project.
func (d *DB) GetGSCToken(ctx context.Context, userID, projectID uuid.UUID) (*models.GSCToken, error) {
	return scanGSCToken(d.Pool.QueryRow(ctx, `SELECT `+gscTokenColumns+`
		FROM gsc_tokens WHERE user_id = $1 AND project_id = $2`, userID, projectID))
}

// ListGSCTokens returns every stored credential. Used by the scheduled sync.
func (d *DB) ListGSCTokens(ctx context.Context) ([]models.GSCToken, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+gscTokenColumns+` FROM gsc_tokens ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GSCToken, error) {
		t, err := scanGSCToken(row)
		if err != nil {
			return models.GSCToken{}, err
		}
		return *t, nil
	})
}

// UpdateGSCAccessToken persists a refreshed token.
func (d *DB) UpdateGSCAccessToken(ctx context.Context, t *models.GSCToken) error {
	_, err := d.Pool.Exec(ctx, `
		UPDATE gsc_tokens
		SET access_token = $2, refresh_token = $3, token_expiry = $4, updated_at = NOW()
		WHERE id = $1`, t.ID, t.AccessToken, t.RefreshToken, t.TokenExpiry)
	return err
}

// ChunkGSCRows splits rows into batches of at most size.
func ChunkGSCRows(rows []models.GSCRow, size int) [][]models.GSCRow {
	if size <= 0 {
		size = GSCBatchSize
	}
	var chunks [][]models.GSCRow
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// UpsertGSCRows writes analytics rows in batches of GSCBatchSize, keyed on
// (project_id, date, page, query, device, country). Returns the number written.
func (d *DB) UpsertGSCRows(ctx context.Context, rows []models.GSCRow) (int, error) {
	query := `
		INSERT INTO gsc_data (project_id, date, page, query, device, country, clicks, impressions, ctr, position)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (project_id, date, page, query, device, country) DO UPDATE SET
			clicks = EXCLUDED.clicks,
			impressions = EXCLUDED.impressions,
			ctr = EXCLUDED.ctr,
			position = EXCLUDED.position
	`

	written := 0
	for _, chunk := range ChunkGSCRows(rows, GSCBatchSize) {
		batch := &pgx.Batch{}
		for _, r := range chunk {
			batch.Queue(query, r.ProjectID, r.Date, r.Page, r.Query, r.Device, r.Country,
				r.Clicks, r.Impressions, r.CTR, r.Position)
		}

		br := d.Pool.SendBatch(ctx, batch)
		for range chunk {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return written, fmt.Errorf("upsert search analytics batch: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return written, err
		}
		written += len(chunk)
	}
	return written, nil
}

// ListGSCRows returns analytics rows for a project since the given date (YYYY-MM-DD),
// highest-click first.
func (d *DB) ListGSCRows(ctx context.Context, projectID uuid.UUID, since string, limit int) ([]models.GSCRow, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT project_id, to_char(date, 'YYYY-MM-DD'), page, query, device, country,
			clicks, impressions, ctr, position
		FROM gsc_data WHERE project_id = $1 AND date >= $2::date
		ORDER BY clicks DESC, impressions DESC
		LIMIT $3`, projectID, since, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GSCRow, error) {
		var r models.GSCRow
		err := row.Scan(&r.ProjectID, &r.Date, &r.Page, &r.Query, &r.Device, &r.Country,
			&r.Clicks, &r.Impressions, &r.CTR, &r.Position)
		return r, err
	})
}
