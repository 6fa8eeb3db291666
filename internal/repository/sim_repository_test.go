package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

type pgxTx = pgx.Tx

func TestSimRepository_Upsert(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSimRepository(tx)

	created, err := repo.Upsert(ctx, "01811111111", 80000, 50000)
	require.NoError(t, err)
	require.Equal(t, int64(80000), created.BKLimit)
	require.Equal(t, int64(50000), created.NGLimit)
	require.Zero(t, created.BKBalance)
	require.Nil(t, created.LastCashedInAt)

	_, err = repo.ApplyAdjustment(ctx, created.ID, models.WalletBK, 1500)
	require.NoError(t, err)

	t.Run("update keeps balances", func(t *testing.T) {
		updated, err := repo.Upsert(ctx, "01811111111", 90000, 40000)
		require.NoError(t, err)
		require.Equal(t, created.ID, updated.ID)
		require.Equal(t, int64(90000), updated.BKLimit)
		require.Equal(t, int64(40000), updated.NGLimit)
		require.Equal(t, int64(1500), updated.BKBalance)
	})

	t.Run("get by phone", func(t *testing.T) {
		got, err := repo.GetByPhone(ctx, "01811111111")
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)

		_, err = repo.GetByPhone(ctx, "01899999999")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSimRepository_ApplyAdjustment(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSimRepository(tx)

	sim, err := repo.Upsert(ctx, "01822222222", 80000, 60000)
	require.NoError(t, err)

	t.Run("bk credit", func(t *testing.T) {
		s, err := repo.ApplyAdjustment(ctx, sim.ID, models.WalletBK, 5000)
		require.NoError(t, err)
		require.Equal(t, int64(5000), s.BKBalance)
		require.Equal(t, int64(75000), s.BKLimit)
		require.Equal(t, int64(60000), s.NGLimit)
		require.NotNil(t, s.LastCashedInAt)
	})

	t.Run("ng debit", func(t *testing.T) {
		s, err := repo.ApplyAdjustment(ctx, sim.ID, models.WalletNG, -2000)
		require.NoError(t, err)
		require.Equal(t, int64(-2000), s.NGBalance)
		require.Equal(t, int64(62000), s.NGLimit)
	})

	t.Run("inverse restores", func(t *testing.T) {
		s, err := repo.ApplyAdjustment(ctx, sim.ID, models.WalletBK, -5000)
		require.NoError(t, err)
		require.Zero(t, s.BKBalance)
		require.Equal(t, int64(80000), s.BKLimit)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := repo.ApplyAdjustment(ctx, sim.ID, models.WalletType("xx"), 1)
		require.Error(t, err)
	})

	t.Run("missing sim", func(t *testing.T) {
		_, err := repo.ApplyAdjustment(ctx, -1, models.WalletBK, 1)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSimRepository_Slots(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	chats := NewChatRepository(tx)
	devices := NewDeviceRepository(tx)
	repo := NewSimRepository(tx)

	chat, err := chats.Upsert(ctx, "-6001", "Group")
	require.NoError(t, err)
	d1, err := devices.Create(ctx, 61, chat.ID)
	require.NoError(t, err)
	d2, err := devices.Create(ctx, 62, chat.ID)
	require.NoError(t, err)

	a, err := repo.Upsert(ctx, "01833333331", 1000, 1000)
	require.NoError(t, err)
	b, err := repo.Upsert(ctx, "01833333332", 1000, 1000)
	require.NoError(t, err)

	require.NoError(t, repo.Link(ctx, a.ID, d1.ID, 1))
	require.NoError(t, repo.Link(ctx, b.ID, d1.ID, 2))

	slots, err := repo.ListSlots(ctx, d1.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, "01833333331", slots[0].Phone)
	require.Equal(t, 2, slots[1].SlotNo)

	t.Run("get by slot", func(t *testing.T) {
		s, err := repo.GetBySlotForUpdate(ctx, d1.ID, 2)
		require.NoError(t, err)
		require.Equal(t, b.ID, s.ID)

		_, err = repo.GetBySlotForUpdate(ctx, d1.ID, 3)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("slot numbers unique per device", func(t *testing.T) {
		c, err := repo.Upsert(ctx, "01833333333", 0, 0)
		require.NoError(t, err)

		err = database.WithTx(ctx, tx, func(inner pgxTx) error {
			return NewSimRepository(inner).Link(ctx, c.ID, d1.ID, 1)
		})
		require.Error(t, err)
	})

	t.Run("link relocates sim", func(t *testing.T) {
		require.NoError(t, repo.Link(ctx, a.ID, d2.ID, 3))

		slots, err := repo.ListSlots(ctx, d1.ID)
		require.NoError(t, err)
		require.Len(t, slots, 1)

		s, err := repo.GetBySlotForUpdate(ctx, d2.ID, 3)
		require.NoError(t, err)
		require.Equal(t, a.ID, s.ID)
	})

	t.Run("ids by chat", func(t *testing.T) {
		ids, err := repo.IDsByChat(ctx, chat.ID)
		require.NoError(t, err)
		require.ElementsMatch(t, []int64{a.ID, b.ID}, ids)
	})

	t.Run("unlink keeps sim", func(t *testing.T) {
		require.NoError(t, repo.Unlink(ctx, b.ID))

		slots, err := repo.ListSlots(ctx, d1.ID)
		require.NoError(t, err)
		require.Empty(t, slots)

		_, err = repo.GetByPhone(ctx, "01833333332")
		require.NoError(t, err)
	})
}

func TestSimRepository_ZeroBalances(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewSimRepository(tx)

	a, err := repo.Upsert(ctx, "01844444441", 80000, 60000)
	require.NoError(t, err)
	b, err := repo.Upsert(ctx, "01844444442", 80000, 60000)
	require.NoError(t, err)
	_, err = repo.ApplyAdjustment(ctx, a.ID, models.WalletNG, 700)
	require.NoError(t, err)
	_, err = tx.Exec(ctx,
		`UPDATE sims SET bk_sm = 1, bk_co = 2, bk_mer = 3, ng_sm = 4, ng_co = 5, ng_mer = 6 WHERE phone = ANY($1)`,
		[]string{"01844444441", "01844444442"})
	require.NoError(t, err)

	n, err := repo.ZeroBalances(ctx, []int64{a.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := repo.GetByPhone(ctx, "01844444441")
	require.NoError(t, err)
	require.Zero(t, got.NGBalance)
	require.Zero(t, got.NGLimit)
	require.Zero(t, got.BKLimit)
	require.Zero(t, got.BKSM)
	require.Zero(t, got.BKCO)
	require.Zero(t, got.BKMER)
	require.Zero(t, got.NGSM)
	require.Zero(t, got.NGCO)
	require.Zero(t, got.NGMER)

	untouched, err := repo.GetByPhone(ctx, "01844444442")
	require.NoError(t, err)
	require.Equal(t, b.BKLimit, untouched.BKLimit)
	require.Equal(t, int64(1), untouched.BKSM)
	require.Equal(t, int64(6), untouched.NGMER)

	n, err = repo.ZeroBalances(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, n)
}
