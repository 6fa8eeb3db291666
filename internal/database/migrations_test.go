package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	pool := TestPool(t)
	ctx := context.Background()

	err := RunMigrations(ctx, pool)
	require.NoError(t, err)

	for _, table := range []string{"chats", "devices", "sims", "sim_slots", "sim_transaction_history", "bot_users"} {
		var tableExists bool
		err = pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&tableExists)
		require.NoError(t, err)
		require.True(t, tableExists, "table %s should exist", table)
	}
}

// TestRunMigrations_Idempotent tests that migrations can be run multiple times safely.
func TestRunMigrations_Idempotent(t *testing.T) {
	pool := TestPool(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool))

	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM sims").Scan(&count)
	require.NoError(t, err)
}

func TestMigrations_Constraints(t *testing.T) {
	db := TestTx(t)
	ctx := context.Background()

	t.Run("device number must be positive", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgxTx) error {
			_, err := tx.Exec(ctx, `INSERT INTO devices (device_no) VALUES (0)`)
			return err
		})
		require.Error(t, err)
	})

	t.Run("slot number must be between 1 and 4", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgxTx) error {
			var simID, deviceID int64
			if err := tx.QueryRow(ctx, `INSERT INTO sims (phone) VALUES ('01700000001') RETURNING id`).Scan(&simID); err != nil {
				return err
			}
			if err := tx.QueryRow(ctx, `INSERT INTO devices (device_no) VALUES (901) RETURNING id`).Scan(&deviceID); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO sim_slots (sim_id, device_id, slot_no) VALUES ($1, $2, 5)`, simID, deviceID)
			return err
		})
		require.Error(t, err)
	})

	t.Run("slot number is unique per device", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgxTx) error {
			var sim1, sim2, deviceID int64
			if err := tx.QueryRow(ctx, `INSERT INTO sims (phone) VALUES ('01700000002') RETURNING id`).Scan(&sim1); err != nil {
				return err
			}
			if err := tx.QueryRow(ctx, `INSERT INTO sims (phone) VALUES ('01700000003') RETURNING id`).Scan(&sim2); err != nil {
				return err
			}
			if err := tx.QueryRow(ctx, `INSERT INTO devices (device_no) VALUES (902) RETURNING id`).Scan(&deviceID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `INSERT INTO sim_slots (sim_id, device_id, slot_no) VALUES ($1, $2, 1)`, sim1, deviceID); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO sim_slots (sim_id, device_id, slot_no) VALUES ($1, $2, 1)`, sim2, deviceID)
			return err
		})
		require.Error(t, err)
	})

	t.Run("transaction type is IN or OUT", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx pgxTx) error {
			var simID int64
			if err := tx.QueryRow(ctx, `INSERT INTO sims (phone) VALUES ('01700000004') RETURNING id`).Scan(&simID); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO sim_transaction_history (sim_id, amount, operation, type)
				VALUES ($1, 10, 'BK', 'SIDEWAYS')
			`, simID)
			return err
		})
		require.Error(t, err)
	})
}
