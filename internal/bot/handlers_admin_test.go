package bot

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/bot/mocks"
)

func ownerUpdate(text string) *models.Update {
	return mocks.NewUpdateBuilder().
		WithMessage(testOwnerID, testOwnerID, text).
		WithFrom(testOwnerID, "owner", "Owner", "").
		Build()
}

func TestHandleAddUserCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner adds a user", func(t *testing.T) {
		t.Parallel()
		store := newFakeUserStore()
		b := newTestBot(t, newFakeLedger(), store)
		mockBot := mocks.NewMockBot()

		b.handleAddUserCore(ctx, mockBot, ownerUpdate("/addUser @Alice"))

		require.Equal(t, "✅ User Alice has been added successfully.", mockBot.LastSentMessage().Text)
		require.True(t, b.auth.IsAuthorized("alice"))
		exists, err := store.Exists(ctx, "alice")
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("existing user", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore("alice"))
		mockBot := mocks.NewMockBot()

		b.handleAddUserCore(ctx, mockBot, ownerUpdate("/addUser ALICE"))

		require.Equal(t, msgUserExists, mockBot.LastSentMessage().Text)
		require.True(t, b.auth.IsAuthorized("alice"))
	})

	t.Run("missing username", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore())
		mockBot := mocks.NewMockBot()

		b.handleAddUserCore(ctx, mockBot, ownerUpdate("/addUser"))

		require.Equal(t, msgInvalidUsername, mockBot.LastSentMessage().Text)
	})

	t.Run("store failure does not authorize", func(t *testing.T) {
		t.Parallel()
		store := newFakeUserStore()
		store.err = errStoreDown
		b := newTestBot(t, newFakeLedger(), store)
		mockBot := mocks.NewMockBot()

		b.handleAddUserCore(ctx, mockBot, ownerUpdate("/addUser bob"))

		require.Equal(t, msgUserOpFailed, mockBot.LastSentMessage().Text)
		require.False(t, b.auth.IsAuthorized("bob"))
	})

	t.Run("non-owner is ignored", func(t *testing.T) {
		t.Parallel()
		store := newFakeUserStore()
		b := newTestBot(t, newFakeLedger(), store)
		b.auth.Add("rahim")
		mockBot := mocks.NewMockBot()

		b.handleAddUserCore(ctx, mockBot, groupUpdate("/addUser bob"))

		require.Equal(t, 0, mockBot.SentMessageCount())
		require.False(t, b.auth.IsAuthorized("bob"))
	})
}

func TestHandleRemoveUserCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner removes a user", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore("alice"))
		b.auth.Add("alice")
		mockBot := mocks.NewMockBot()

		b.handleRemoveUserCore(ctx, mockBot, ownerUpdate("/removeUser alice"))

		require.Equal(t, "✅ User alice has been removed successfully.", mockBot.LastSentMessage().Text)
		require.False(t, b.auth.IsAuthorized("alice"))
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore())
		mockBot := mocks.NewMockBot()

		b.handleRemoveUserCore(ctx, mockBot, ownerUpdate("/removeUser ghost"))

		require.Equal(t, msgUserMissing, mockBot.LastSentMessage().Text)
	})

	t.Run("store failure keeps the user", func(t *testing.T) {
		t.Parallel()
		store := newFakeUserStore("alice")
		store.err = errStoreDown
		b := newTestBot(t, newFakeLedger(), store)
		b.auth.Add("alice")
		mockBot := mocks.NewMockBot()

		b.handleRemoveUserCore(ctx, mockBot, ownerUpdate("/removeUser alice"))

		require.Equal(t, msgUserOpFailed, mockBot.LastSentMessage().Text)
		require.True(t, b.auth.IsAuthorized("alice"))
	})

	t.Run("non-owner is ignored", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore("alice"))
		b.auth.Add("alice")
		mockBot := mocks.NewMockBot()

		b.handleRemoveUserCore(ctx, mockBot, groupUpdate("/removeUser alice"))

		require.Equal(t, 0, mockBot.SentMessageCount())
		require.True(t, b.auth.IsAuthorized("alice"))
	})
}

func TestHandleUsersCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore())
		mockBot := mocks.NewMockBot()

		b.handleUsersCore(ctx, mockBot, ownerUpdate("/users"))

		require.Equal(t, msgNoUsers, mockBot.LastSentMessage().Text)
	})

	t.Run("lists authorized users", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore())
		b.auth.Add("bob")
		b.auth.Add("alice")
		mockBot := mocks.NewMockBot()

		b.handleUsersCore(ctx, mockBot, ownerUpdate("/users"))

		text := mockBot.LastSentMessage().Text
		require.Contains(t, text, "@alice")
		require.Contains(t, text, "@bob")
	})

	t.Run("non-owner is ignored", func(t *testing.T) {
		t.Parallel()
		b := newTestBot(t, newFakeLedger(), newFakeUserStore())
		mockBot := mocks.NewMockBot()

		b.handleUsersCore(ctx, mockBot, groupUpdate("/users"))

		require.Equal(t, 0, mockBot.SentMessageCount())
	})
}
