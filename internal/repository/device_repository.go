package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

// DeviceRepository handles device database operations.
type DeviceRepository struct {
	db database.PGXDB
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(db database.PGXDB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, device_no, chat_id, created_at, updated_at`

// GetByNumber retrieves a device by its global device number and locks it.
func (r *DeviceRepository) GetByNumber(ctx context.Context, deviceNo int) (*models.Device, error) {
	var d models.Device
	err := r.db.QueryRow(ctx, `
		SELECT `+deviceColumns+` FROM devices WHERE device_no = $1 FOR UPDATE
	`, deviceNo).Scan(&d.ID, &d.DeviceNo, &d.ChatID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", notFound(err))
	}
	return &d, nil
}

// Create adds a device linked to a chat.
func (r *DeviceRepository) Create(ctx context.Context, deviceNo int, chatID int64) (*models.Device, error) {
	var d models.Device
	err := r.db.QueryRow(ctx, `
		INSERT INTO devices (device_no, chat_id)
		VALUES ($1, $2)
		RETURNING `+deviceColumns,
		deviceNo, chatID,
	).Scan(&d.ID, &d.DeviceNo, &d.ChatID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return &d, nil
}

// Relink moves a device to another chat.
func (r *DeviceRepository) Relink(ctx context.Context, id, chatID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE devices SET chat_id = $2, updated_at = NOW() WHERE id = $1
	`, id, chatID)
	if err != nil {
		return fmt.Errorf("failed to relink device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to relink device: %w", ErrNotFound)
	}
	return nil
}

// Detach unlinks a device from its chat. Its SIM slots are kept.
func (r *DeviceRepository) Detach(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE devices SET chat_id = NULL, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to detach device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to detach device: %w", ErrNotFound)
	}
	return nil
}

// ListByChat returns the chat's devices ordered by device number, each with
// its SIMs ordered by slot number.
func (r *DeviceRepository) ListByChat(ctx context.Context, chatID int64) ([]models.DeviceSnapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.device_no, d.chat_id, d.created_at, d.updated_at,
		       ss.slot_no,
		       s.id, s.phone, s.bk_balance, s.ng_balance, s.bk_limit, s.ng_limit,
		       s.bk_sm, s.bk_co, s.bk_mer, s.ng_sm, s.ng_co, s.ng_mer,
		       s.last_cashed_in_at, s.created_at, s.updated_at
		FROM devices d
		LEFT JOIN sim_slots ss ON ss.device_id = d.id
		LEFT JOIN sims s ON s.id = ss.sim_id
		WHERE d.chat_id = $1
		ORDER BY d.device_no, ss.slot_no
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []models.DeviceSnapshot
	for rows.Next() {
		var d models.Device
		var slotNo *int
		var (
			simID                                    *int64
			phone                                    *string
			bkBalance, ngBalance, bkLimit, ngLimit   *int64
			bkSM, bkCO, bkMER, ngSM, ngCO, ngMER     *int64
			lastCashedInAt, simCreatedAt, simUpdated *time.Time
		)

		if err := rows.Scan(
			&d.ID, &d.DeviceNo, &d.ChatID, &d.CreatedAt, &d.UpdatedAt,
			&slotNo,
			&simID, &phone, &bkBalance, &ngBalance, &bkLimit, &ngLimit,
			&bkSM, &bkCO, &bkMER, &ngSM, &ngCO, &ngMER,
			&lastCashedInAt, &simCreatedAt, &simUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		if len(devices) == 0 || devices[len(devices)-1].Device.ID != d.ID {
			devices = append(devices, models.DeviceSnapshot{Device: d})
		}

		if slotNo == nil || simID == nil {
			continue
		}

		current := &devices[len(devices)-1]
		current.Slots = append(current.Slots, models.SlotSnapshot{
			SlotNo: *slotNo,
			Sim: models.Sim{
				ID:             *simID,
				Phone:          *phone,
				BKBalance:      *bkBalance,
				NGBalance:      *ngBalance,
				BKLimit:        *bkLimit,
				NGLimit:        *ngLimit,
				BKSM:           *bkSM,
				BKCO:           *bkCO,
				BKMER:          *bkMER,
				NGSM:           *ngSM,
				NGCO:           *ngCO,
				NGMER:          *ngMER,
				LastCashedInAt: lastCashedInAt,
				CreatedAt:      *simCreatedAt,
				UpdatedAt:      *simUpdated,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	return devices, nil
}
