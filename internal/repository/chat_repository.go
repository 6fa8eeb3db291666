package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

// ChatRepository handles chat database operations.
type ChatRepository struct {
	db database.PGXDB
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(db database.PGXDB) *ChatRepository {
	return &ChatRepository{db: db}
}

const chatColumns = `id, external_id, title, created_at, updated_at`

// Upsert resolves a chat by external ID, creating it when absent.
// The stored title is replaced when it differs.
func (r *ChatRepository) Upsert(ctx context.Context, externalID, title string) (*models.Chat, error) {
	var c models.Chat
	err := r.db.QueryRow(ctx, `
		INSERT INTO chats (external_id, title)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			updated_at = CASE
				WHEN chats.title IS DISTINCT FROM EXCLUDED.title THEN NOW()
				ELSE chats.updated_at
			END
		RETURNING `+chatColumns,
		externalID, title,
	).Scan(&c.ID, &c.ExternalID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert chat: %w", err)
	}
	return &c, nil
}

// GetByExternalID retrieves a chat by its Telegram chat ID.
func (r *ChatRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Chat, error) {
	var c models.Chat
	err := r.db.QueryRow(ctx, `
		SELECT `+chatColumns+` FROM chats WHERE external_id = $1
	`, externalID).Scan(&c.ID, &c.ExternalID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", notFound(err))
	}
	return &c, nil
}

// LockByExternalID retrieves a chat and locks its row until the surrounding
// transaction ends. Concurrent ledger operations on the same chat queue here.
func (r *ChatRepository) LockByExternalID(ctx context.Context, externalID string) (*models.Chat, error) {
	var c models.Chat
	err := r.db.QueryRow(ctx, `
		SELECT `+chatColumns+` FROM chats WHERE external_id = $1 FOR UPDATE
	`, externalID).Scan(&c.ID, &c.ExternalID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to lock chat: %w", notFound(err))
	}
	return &c, nil
}

// Delete removes a chat. Its devices become unowned.
func (r *ChatRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete chat: %w", ErrNotFound)
	}
	return nil
}
