package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

const keywordColumns = `k.id, k.project_id, k.keyword, k.search_volume, k.competition, k.cpc::float8,
	k.keyword_difficulty, k.tags, k.category, k.created_at, k.updated_at`

func scanKeywordInto(row pgx.Row, k *models.Keyword) error {
	return row.Scan(
		&k.ID,
		&k.ProjectID,
		&k.Keyword,
		&k.SearchVolume,
		&k.Competition,
		&k.CPC,
		&k.KeywordDifficulty,
		&k.Tags,
		&k.Category,
		&k.CreatedAt,
		&k.UpdatedAt,
	)
}

func scanKeywords(rows pgx.Rows) ([]models.Keyword, error) {
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var k models.Keyword
		if err := scanKeywordInto(rows, &k); err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// CreateKeyword starts tracking a keyword. Duplicates (case-insensitive) return ErrDuplicateKeyword.
func (d *DB) CreateKeyword(ctx context.Context, k *models.Keyword) error {
	if k.Tags == nil {
		k.Tags = []string{}
	}

	query := `
		INSERT INTO keywords (project_id, keyword, search_volume, competition, cpc, keyword_difficulty, tags, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		k.ProjectID,
		k.Keyword,
		k.SearchVolume,
		k.Competition,
		k.CPC,
		k.KeywordDifficulty,
		k.Tags,
		k.Category,
	).Scan(&k.ID, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKeyword
		}
		return err
	}
	return nil
}

// GetKeyword returns a keyword whose project belongs to userID.
func (d *DB) GetKeyword(ctx context.Context, id, userID uuid.UUID) (*models.Keyword, error) {
	query := `SELECT ` + keywordColumns + `
		FROM keywords k JOIN projects p ON p.id = k.project_id
		WHERE k.id = $1 AND p.user_id = $2`

	var k models.Keyword
	err := scanKeywordInto(d.Pool.QueryRow(ctx, query, id, userID), &k)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeywordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ListKeywords returns a project's tracked keywords by search volume.
func (d *DB) ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+keywordColumns+`
		FROM keywords k WHERE k.project_id = $1
		ORDER BY k.search_volume DESC, k.keyword`, projectID)
	if err != nil {
		return nil, err
	}
	return scanKeywords(rows)
}

// ListKeywordTexts returns just the keyword strings for a project.
func (d *DB) ListKeywordTexts(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `SELECT keyword FROM keywords WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpdateKeywordMetrics refreshes provider metrics for a keyword by text, case-insensitively.
func (d *DB) UpdateKeywordMetrics(ctx context.Context, k *models.Keyword) error {
	query := `
		UPDATE keywords
		SET search_volume = $3, competition = $4, cpc = $5,
			keyword_difficulty = COALESCE($6, keyword_difficulty), updated_at = NOW()
		WHERE project_id = $1 AND lower(keyword) = lower($2)
	`
	tag, err := d.Pool.Exec(ctx, query,
		k.ProjectID, k.Keyword, k.SearchVolume, k.Competition, k.CPC, k.KeywordDifficulty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeywordNotFound
	}
	return nil
}

// DeleteKeyword stops tracking a keyword owned (through its project) by userID.
func (d *DB) DeleteKeyword(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `
		DELETE FROM keywords k USING projects p
		WHERE k.id = $1 AND p.id = k.project_id AND p.user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeywordNotFound
	}
	return nil
}
