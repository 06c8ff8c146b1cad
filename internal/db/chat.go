package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"seodesk/internal/models"
)

// SaveChatMessage appends a message to the user's assistant history.
func (d *DB) SaveChatMessage(ctx context.Context, m *models.ChatMessage) error {
	return d.Pool.QueryRow(ctx, `
		INSERT INTO chat_messages (user_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.UserID, m.Role, m.Content).Scan(&m.ID, &m.CreatedAt)
}

// ListChatHistory returns the user's last limit messages in chronological order.
func (d *DB) ListChatHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, user_id, role, content, created_at FROM (
			SELECT id, user_id, role, content, created_at
			FROM chat_messages WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ChatMessage, error) {
		var m models.ChatMessage
		err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt)
		return m, err
	})
}
