package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

const projectColumns = `id, user_id, name, domain, target_location, target_language, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Domain,
		&p.TargetLocation,
		&p.TargetLanguage,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjects(rows pgx.Rows) ([]models.Project, error) {
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Domain,
			&p.TargetLocation,
			&p.TargetLanguage,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject inserts a project owned by p.UserID.
func (d *DB) CreateProject(ctx context.Context, p *models.Project) error {
	if p.TargetLocation == 0 {
		p.TargetLocation = models.DefaultLocationCode
	}
	if p.TargetLanguage == "" {
		p.TargetLanguage = models.DefaultLanguageCode
	}

	query := `
		INSERT INTO projects (user_id, name, domain, target_location, target_language)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return d.Pool.QueryRow(ctx, query,
		p.UserID, p.Name, p.Domain, p.TargetLocation, p.TargetLanguage,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetProject returns a project only if it belongs to userID.
func (d *DB) GetProject(ctx context.Context, id, userID uuid.UUID) (*models.Project, error) {
	return scanProject(d.Pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`, id, userID))
}

// GetProjectByID returns a project regardless of owner. Used by jobs and callbacks.
func (d *DB) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return scanProject(d.Pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
}

// ListProjects returns the user's projects, newest first.
func (d *DB) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanProjects(rows)
}

// ListAllProjects returns every project. Used by the scheduled rank check.
func (d *DB) ListAllProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return scanProjects(rows)
}

// UpdateProject updates name, domain and targeting for a project owned by p.UserID.
func (d *DB) UpdateProject(ctx context.Context, p *models.Project) error {
	query := `
		UPDATE projects
		SET name = $3, domain = $4, target_location = $5, target_language = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.Name, p.Domain, p.TargetLocation, p.TargetLanguage,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProjectNotFound
	}
	return err
}

// DeleteProject removes a project and everything under it.
func (d *DB) DeleteProject(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// GetProjectStats returns dashboard counters for a project.
func (d *DB) GetProjectStats(ctx context.Context, projectID uuid.UUID) (*models.ProjectStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM keywords WHERE project_id = $1),
			(SELECT COUNT(*) FROM competitors WHERE project_id = $1),
			(SELECT COUNT(*) FROM backlinks WHERE project_id = $1 AND NOT is_lost),
			(SELECT COUNT(*) FROM backlinks WHERE project_id = $1 AND is_lost),
			(SELECT COUNT(*) FROM outreach_campaigns WHERE project_id = $1),
			(SELECT COUNT(*) FROM outreach_campaigns WHERE project_id = $1 AND status = 'running'),
			(SELECT COALESCE(SUM(link_acquired_count), 0) FROM outreach_campaigns WHERE project_id = $1)
	`
	var s models.ProjectStats
	if err := d.Pool.QueryRow(ctx, query, projectID).Scan(
		&s.Keywords,
		&s.Competitors,
		&s.Backlinks,
		&s.LostBacklinks,
		&s.Campaigns,
		&s.ActiveCampaigns,
		&s.LinksAcquired,
	); err != nil {
		return nil, err
	}

	// Latest observation per keyword.
	latest := `
		SELECT AVG(rank_position)::float8, COUNT(*) FILTER (WHERE rank_position <= 10)
		FROM (
			SELECT DISTINCT ON (keyword_id) rank_position
			FROM rankings
			WHERE project_id = $1
			ORDER BY keyword_id, checked_at DESC
		) latest
	`
	if err := d.Pool.QueryRow(ctx, latest, projectID).Scan(&s.AvgPosition, &s.Top10Keywords); err != nil {
		return nil, err
	}

	return &s, nil
}
