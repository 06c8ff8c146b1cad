package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

const rankingColumns = `id, keyword_id, project_id, rank_position, rank_url, rank_absolute,
	search_engine, device, location_code, language_code, checked_at`

func scanRankings(rows pgx.Rows) ([]models.Ranking, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Ranking, error) {
		var r models.Ranking
		err := row.Scan(
			&r.ID,
			&r.KeywordID,
			&r.ProjectID,
			&r.RankPosition,
			&r.RankURL,
			&r.RankAbsolute,
			&r.SearchEngine,
			&r.Device,
			&r.LocationCode,
			&r.LanguageCode,
			&r.CheckedAt,
		)
		return r, err
	})
}

// InsertRanking records a rank observation.
func (d *DB) InsertRanking(ctx context.Context, r *models.Ranking) error {
	if r.SearchEngine == "" {
		r.SearchEngine = "google"
	}
	if r.Device == "" {
		r.Device = models.DeviceDesktop
	}
	if r.LocationCode == 0 {
		r.LocationCode = models.DefaultLocationCode
	}
	if r.LanguageCode == "" {
		r.LanguageCode = models.DefaultLanguageCode
	}

	return d.Pool.QueryRow(ctx, `
		INSERT INTO rankings (keyword_id, project_id, rank_position, rank_url, rank_absolute,
			search_engine, device, location_code, language_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, checked_at
	`,
		r.KeywordID,
		r.ProjectID,
		r.RankPosition,
		r.RankURL,
		r.RankAbsolute,
		r.SearchEngine,
		r.Device,
		r.LocationCode,
		r.LanguageCode,
	).Scan(&r.ID, &r.CheckedAt)
}

// ListRankings returns a keyword's rank history since the given time, newest first.
func (d *DB) ListRankings(ctx context.Context, keywordID uuid.UUID, since time.Time) ([]models.Ranking, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+rankingColumns+`
		FROM rankings WHERE keyword_id = $1 AND checked_at >= $2
		ORDER BY checked_at DESC`, keywordID, since)
	if err != nil {
		return nil, err
	}
	return scanRankings(rows)
}

// ListProjectRankings returns rank history for every keyword in a project since the given time.
func (d *DB) ListProjectRankings(ctx context.Context, projectID uuid.UUID, since time.Time) ([]models.Ranking, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+rankingColumns+`
		FROM rankings WHERE project_id = $1 AND checked_at >= $2
		ORDER BY checked_at DESC`, projectID, since)
	if err != nil {
		return nil, err
	}
	return scanRankings(rows)
}
