package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

// SimRepository handles SIM and slot database operations.
type SimRepository struct {
	db database.PGXDB
}

// NewSimRepository creates a new SimRepository.
func NewSimRepository(db database.PGXDB) *SimRepository {
	return &SimRepository{db: db}
}

const simColumns = `s.id, s.phone, s.bk_balance, s.ng_balance, s.bk_limit, s.ng_limit,
	s.bk_sm, s.bk_co, s.bk_mer, s.ng_sm, s.ng_co, s.ng_mer,
	s.last_cashed_in_at, s.created_at, s.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSim(row rowScanner) (*models.Sim, error) {
	var s models.Sim
	err := row.Scan(
		&s.ID, &s.Phone, &s.BKBalance, &s.NGBalance, &s.BKLimit, &s.NGLimit,
		&s.BKSM, &s.BKCO, &s.BKMER, &s.NGSM, &s.NGCO, &s.NGMER,
		&s.LastCashedInAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert resolves a SIM by phone, creating it when absent. Limits are
// overwritten; balances and counters of an existing SIM are kept.
func (r *SimRepository) Upsert(ctx context.Context, phone string, bkLimit, ngLimit int64) (*models.Sim, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO sims AS s (phone, bk_limit, ng_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET
			bk_limit = EXCLUDED.bk_limit,
			ng_limit = EXCLUDED.ng_limit,
			updated_at = NOW()
		RETURNING `+simColumns,
		phone, bkLimit, ngLimit,
	)
	s, err := scanSim(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sim: %w", err)
	}
	return s, nil
}

// GetByPhone retrieves a SIM by phone number.
func (r *SimRepository) GetByPhone(ctx context.Context, phone string) (*models.Sim, error) {
	row := r.db.QueryRow(ctx, `SELECT `+simColumns+` FROM sims s WHERE s.phone = $1`, phone)
	s, err := scanSim(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get sim: %w", notFound(err))
	}
	return s, nil
}

// ListSlots returns the slots of a device ordered by slot number.
func (r *SimRepository) ListSlots(ctx context.Context, deviceID int64) ([]models.SimSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ss.sim_id, ss.device_id, ss.slot_no, s.phone
		FROM sim_slots ss
		JOIN sims s ON s.id = ss.sim_id
		WHERE ss.device_id = $1
		ORDER BY ss.slot_no
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []models.SimSlot
	for rows.Next() {
		var s models.SimSlot
		if err := rows.Scan(&s.SimID, &s.DeviceID, &s.SlotNo, &s.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}
	return slots, nil
}

// GetBySlotForUpdate retrieves the SIM in a device slot and locks its row.
func (r *SimRepository) GetBySlotForUpdate(ctx context.Context, deviceID int64, slotNo int) (*models.Sim, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+simColumns+`
		FROM sim_slots ss
		JOIN sims s ON s.id = ss.sim_id
		WHERE ss.device_id = $1 AND ss.slot_no = $2
		FOR UPDATE OF s
	`, deviceID, slotNo)
	s, err := scanSim(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get sim by slot: %w", notFound(err))
	}
	return s, nil
}

// Link binds a SIM to a device slot, moving it if it is slotted elsewhere.
func (r *SimRepository) Link(ctx context.Context, simID, deviceID int64, slotNo int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sim_slots (sim_id, device_id, slot_no)
		VALUES ($1, $2, $3)
		ON CONFLICT (sim_id) DO UPDATE SET
			device_id = EXCLUDED.device_id,
			slot_no = EXCLUDED.slot_no
	`, simID, deviceID, slotNo)
	if err != nil {
		return fmt.Errorf("failed to link sim: %w", err)
	}
	return nil
}

// Unlink removes a SIM from its slot. The SIM row itself is kept.
func (r *SimRepository) Unlink(ctx context.Context, simID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sim_slots WHERE sim_id = $1`, simID)
	if err != nil {
		return fmt.Errorf("failed to unlink sim: %w", err)
	}
	return nil
}

// ApplyAdjustment moves delta from the wallet's limit into its balance.
func (r *SimRepository) ApplyAdjustment(ctx context.Context, simID int64, wallet models.WalletType, delta int64) (*models.Sim, error) {
	var query string
	switch wallet {
	case models.WalletBK:
		query = `
			UPDATE sims s SET
				bk_balance = bk_balance + $2,
				bk_limit = bk_limit - $2,
				last_cashed_in_at = NOW(),
				updated_at = NOW()
			WHERE s.id = $1
			RETURNING ` + simColumns
	case models.WalletNG:
		query = `
			UPDATE sims s SET
				ng_balance = ng_balance + $2,
				ng_limit = ng_limit - $2,
				last_cashed_in_at = NOW(),
				updated_at = NOW()
			WHERE s.id = $1
			RETURNING ` + simColumns
	default:
		return nil, fmt.Errorf("failed to adjust sim: unknown wallet %q", wallet)
	}

	s, err := scanSim(r.db.QueryRow(ctx, query, simID, delta))
	if err != nil {
		return nil, fmt.Errorf("failed to adjust sim: %w", notFound(err))
	}
	return s, nil
}

// IDsByChat returns the IDs of every SIM slotted in a device of the chat.
func (r *SimRepository) IDsByChat(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ss.sim_id
		FROM sim_slots ss
		JOIN devices d ON d.id = ss.device_id
		WHERE d.chat_id = $1
		ORDER BY ss.sim_id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sims: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sim id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sim ids: %w", err)
	}
	return ids, nil
}

// ZeroBalances resets balances, limits and usage counters of the given SIMs.
func (r *SimRepository) ZeroBalances(ctx context.Context, simIDs []int64) (int64, error) {
	if len(simIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE sims SET
			bk_balance = 0, ng_balance = 0,
			bk_limit = 0, ng_limit = 0,
			bk_sm = 0, bk_co = 0, bk_mer = 0,
			ng_sm = 0, ng_co = 0, ng_mer = 0,
			updated_at = NOW()
		WHERE id = ANY($1)
	`, simIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to zero sims: %w", err)
	}
	return tag.RowsAffected(), nil
}
