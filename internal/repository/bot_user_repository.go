package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
)

// BotUserRepository handles the authorized username list.
type BotUserRepository struct {
	db database.PGXDB
}

// NewBotUserRepository creates a new BotUserRepository.
func NewBotUserRepository(db database.PGXDB) *BotUserRepository {
	return &BotUserRepository{db: db}
}

// Create adds a username. Adding an existing username is a no-op.
func (r *BotUserRepository) Create(ctx context.Context, username string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_users (username)
		VALUES ($1)
		ON CONFLICT (LOWER(username)) DO NOTHING
	`, username)
	if err != nil {
		return fmt.Errorf("failed to create bot user: %w", err)
	}
	return nil
}

// Delete removes a username, matching case-insensitively.
func (r *BotUserRepository) Delete(ctx context.Context, username string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM bot_users WHERE LOWER(username) = LOWER($1)
	`, username)
	if err != nil {
		return fmt.Errorf("failed to delete bot user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete bot user: %w", ErrNotFound)
	}
	return nil
}

// Exists reports whether a username is stored.
func (r *BotUserRepository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bot_users WHERE LOWER(username) = LOWER($1))
	`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bot user: %w", err)
	}
	return exists, nil
}

// ListUsernames returns all stored usernames in insertion order.
func (r *BotUserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT username FROM bot_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bot users: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan bot user: %w", err)
		}
		usernames = append(usernames, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bot users: %w", err)
	}
	return usernames, nil
}
