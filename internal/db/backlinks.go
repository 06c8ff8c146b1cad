package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// UpsertBacklinks inserts or refreshes backlinks keyed on (source_url, target_url)
// within each link's project.
func (d *DB) UpsertBacklinks(ctx context.Context, links []models.Backlink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO backlinks (project_id, source_url, target_url, anchor_text, domain_rank, link_type,
			first_seen, last_seen, is_lost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (project_id, source_url, target_url) DO UPDATE SET
			anchor_text = EXCLUDED.anchor_text,
			domain_rank = EXCLUDED.domain_rank,
			link_type = EXCLUDED.link_type,
			last_seen = EXCLUDED.last_seen,
			is_lost = EXCLUDED.is_lost
	`

	batch := &pgx.Batch{}
	for _, l := range links {
		linkType := l.LinkType
		if linkType == "" {
			linkType = models.LinkTypeDofollow
		}
		batch.Queue(query,
			l.ProjectID, l.SourceURL, l.TargetURL, l.AnchorText, l.DomainRank, linkType,
			l.FirstSeen, l.LastSeen, l.IsLost)
	}

	br := d.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range links {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("upsert backlink %s: %w", links[i].SourceURL, err)
		}
	}
	return len(links), nil
}

// ListBacklinks returns a project's backlinks, strongest first.
func (d *DB) ListBacklinks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Backlink, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, project_id, source_url, target_url, anchor_text, domain_rank, link_type,
			first_seen, last_seen, is_lost
		FROM backlinks WHERE project_id = $1
		ORDER BY domain_rank DESC NULLS LAST, last_seen DESC
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Backlink, error) {
		var b models.Backlink
		err := row.Scan(
			&b.ID,
			&b.ProjectID,
			&b.SourceURL,
			&b.TargetURL,
			&b.AnchorText,
			&b.DomainRank,
			&b.LinkType,
			&b.FirstSeen,
			&b.LastSeen,
			&b.IsLost,
		)
		return b, err
	})
}
