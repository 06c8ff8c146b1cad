package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// CreateTemplate stores an outreach email template. Marking it default clears the
// user's previous default.
func (d *DB) CreateTemplate(ctx context.Context, t *models.OutreachTemplate) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		if t.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE outreach_templates SET is_default = FALSE WHERE user_id = $1`, t.UserID); err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, `
			INSERT INTO outreach_templates (user_id, name, subject, body, is_default)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, t.UserID, t.Name, t.Subject, t.Body, t.IsDefault).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	})
}

// ListTemplates returns a user's templates, default first.
func (d *DB) ListTemplates(ctx context.Context, userID uuid.UUID) ([]models.OutreachTemplate, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, user_id, name, subject, body, is_default, created_at, updated_at
		FROM outreach_templates WHERE user_id = $1
		ORDER BY is_default DESC, name`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OutreachTemplate, error) {
		var t models.OutreachTemplate
		err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.Body, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
		return t, err
	})
}

// DeleteTemplate removes a template owned by userID.
func (d *DB) DeleteTemplate(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM outreach_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
