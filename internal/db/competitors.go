package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// CreateCompetitor adds a competitor domain to a project.
func (d *DB) CreateCompetitor(ctx context.Context, c *models.Competitor) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO competitors (project_id, domain, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.ProjectID, c.Domain, c.Name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCompetitor
		}
		return err
	}
	return nil
}

// ListCompetitors returns a project's competitors in creation order.
func (d *DB) ListCompetitors(ctx context.Context, projectID uuid.UUID) ([]models.Competitor, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, project_id, domain, name, created_at
		FROM competitors WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Competitor, error) {
		var c models.Competitor
		err := row.Scan(&c.ID, &c.ProjectID, &c.Domain, &c.Name, &c.CreatedAt)
		return c, err
	})
}

// DeleteCompetitor removes a competitor owned (through its project) by userID.
func (d *DB) DeleteCompetitor(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `
		DELETE FROM competitors c USING projects p
		WHERE c.id = $1 AND p.id = c.project_id AND p.user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCompetitorNotFound
	}
	return nil
}
