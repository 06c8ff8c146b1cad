package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// CreatePageAudit stores a page analysis result.
func (d *DB) CreatePageAudit(ctx context.Context, a *models.PageAudit) error {
	return d.Pool.QueryRow(ctx, `
		INSERT INTO page_audits (user_id, project_id, url, title, meta_description, h1, h2, canonical_url,
			word_count, paragraph_count, images_total, images_without_alt, internal_links_count,
			external_links_count, has_meta_viewport, meta_robots, has_og_tags, has_twitter_tags,
			schema_types, language, target_keyword, keyword_in_title, keyword_in_h1, keyword_in_meta,
			keyword_in_url, keyword_density)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING id, analyzed_at
	`,
		a.UserID, a.ProjectID, a.URL, a.Title, a.MetaDescription, nonNil(a.H1), nonNil(a.H2), a.CanonicalURL,
		a.WordCount, a.ParagraphCount, a.ImagesTotal, a.ImagesWithoutAlt, a.InternalLinksCount,
		a.ExternalLinksCount, a.HasMetaViewport, a.MetaRobots, a.HasOGTags, a.HasTwitterTags,
		nonNil(a.SchemaTypes), a.Language, a.TargetKeyword, a.KeywordInTitle, a.KeywordInH1, a.KeywordInMeta,
		a.KeywordInURL, a.KeywordDensity,
	).Scan(&a.ID, &a.AnalyzedAt)
}

// ListPageAudits returns a user's most recent audits.
func (d *DB) ListPageAudits(ctx context.Context, userID uuid.UUID, limit int) ([]models.PageAudit, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, user_id, project_id, url, title, meta_description, h1, h2, canonical_url,
			word_count, paragraph_count, images_total, images_without_alt, internal_links_count,
			external_links_count, has_meta_viewport, meta_robots, has_og_tags, has_twitter_tags,
			schema_types, language, target_keyword, keyword_in_title, keyword_in_h1, keyword_in_meta,
			keyword_in_url, keyword_density, analyzed_at
		FROM page_audits WHERE user_id = $1
		ORDER BY analyzed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PageAudit, error) {
		var a models.PageAudit
		err := row.Scan(
			&a.ID, &a.UserID, &a.ProjectID, &a.URL, &a.Title, &a.MetaDescription, &a.H1, &a.H2, &a.CanonicalURL,
			&a.WordCount, &a.ParagraphCount, &a.ImagesTotal, &a.ImagesWithoutAlt, &a.InternalLinksCount,
			&a.ExternalLinksCount, &a.HasMetaViewport, &a.MetaRobots, &a.HasOGTags, &a.HasTwitterTags,
			&a.SchemaTypes, &a.Language, &a.TargetKeyword, &a.KeywordInTitle, &a.KeywordInH1, &a.KeywordInMeta,
			&a.KeywordInURL, &a.KeywordDensity, &a.AnalyzedAt,
		)
		return a, err
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
