package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id BIGSERIAL PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS devices (
			id BIGSERIAL PRIMARY KEY,
			device_no INTEGER NOT NULL UNIQUE CHECK (device_no > 0),
			chat_id BIGINT REFERENCES chats(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_devices_chat_id ON devices(chat_id)`,

		`CREATE TABLE IF NOT EXISTS sims (
			id BIGSERIAL PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			bk_balance BIGINT NOT NULL DEFAULT 0,
			ng_balance BIGINT NOT NULL DEFAULT 0,
			bk_limit BIGINT NOT NULL DEFAULT 0,
			ng_limit BIGINT NOT NULL DEFAULT 0,
			bk_sm BIGINT NOT NULL DEFAULT 0,
			bk_co BIGINT NOT NULL DEFAULT 0,
			bk_mer BIGINT NOT NULL DEFAULT 0,
			ng_sm BIGINT NOT NULL DEFAULT 0,
			ng_co BIGINT NOT NULL DEFAULT 0,
			ng_mer BIGINT NOT NULL DEFAULT 0,
			last_cashed_in_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sim_slots (
			sim_id BIGINT PRIMARY KEY REFERENCES sims(id),
			device_id BIGINT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			slot_no SMALLINT NOT NULL CHECK (slot_no BETWEEN 1 AND 4),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (device_id, slot_no)
		)`,

		`CREATE TABLE IF NOT EXISTS sim_transaction_history (
			id BIGSERIAL PRIMARY KEY,
			sim_id BIGINT NOT NULL REFERENCES sims(id),
			amount BIGINT NOT NULL,
			charge BIGINT NOT NULL DEFAULT 0,
			operation TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('IN', 'OUT')),
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sim_transaction_history_sim_id ON sim_transaction_history(sim_id)`,

		`CREATE TABLE IF NOT EXISTS bot_users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_users_username ON bot_users(LOWER(username))`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
