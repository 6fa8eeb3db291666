package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

// TransactionRepository handles sim_transaction_history operations.
type TransactionRepository struct {
	db database.PGXDB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db database.PGXDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a history row and fills in its ID and timestamp.
func (r *TransactionRepository) Create(ctx context.Context, t *models.SimTransaction) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sim_transaction_history (sim_id, amount, charge, operation, type, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.SimID, t.Amount, t.Charge, t.Operation, string(t.Type), t.Note).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// Delete removes a history row by ID.
func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sim_transaction_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete transaction: %w", ErrNotFound)
	}
	return nil
}

// GetByID retrieves a history row.
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.SimTransaction, error) {
	var t models.SimTransaction
	var typ string
	err := r.db.QueryRow(ctx, `
		SELECT id, sim_id, amount, charge, operation, type, note, created_at
		FROM sim_transaction_history
		WHERE id = $1
	`, id).Scan(&t.ID, &t.SimID, &t.Amount, &t.Charge, &t.Operation, &typ, &t.Note, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", notFound(err))
	}
	t.Type = models.TransactionType(typ)
	return &t, nil
}

// CountBySim returns the number of history rows of a SIM.
func (r *TransactionRepository) CountBySim(ctx context.Context, simID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM sim_transaction_history WHERE sim_id = $1
	`, simID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
