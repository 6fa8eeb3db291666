package mocks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateBuilder_WithMessage(t *testing.T) {
	update := NewUpdateBuilder().WithMessage(100, 200, "hello").Build()

	require.NotNil(t, update.Message)
	require.Equal(t, int64(100), update.Message.Chat.ID)
	require.Equal(t, int64(200), update.Message.From.ID)
	require.Equal(t, "hello", update.Message.Text)
	require.Equal(t, "testuser", update.Message.From.Username)
}

func TestUpdateBuilder_WithGroupChat(t *testing.T) {
	update := NewUpdateBuilder().WithMessage(-100, 1, "x").WithGroupChat("Shop").Build()
	require.Equal(t, "Shop", update.Message.Chat.Title)
	require.Equal(t, "supergroup", string(update.Message.Chat.Type))

	require.Nil(t, NewUpdateBuilder().WithGroupChat("none").Build().Message)
}

func TestUpdateBuilder_WithMessageID(t *testing.T) {
	update := NewUpdateBuilder().WithMessage(1, 2, "x").WithMessageID(42).Build()
	require.Equal(t, 42, update.Message.ID)
}

func TestUpdateBuilder_WithFrom(t *testing.T) {
	update := NewUpdateBuilder().
		WithMessage(1, 2, "x").
		WithFrom(3, "alice", "Alice", "A").
		Build()

	require.Equal(t, int64(3), update.Message.From.ID)
	require.Equal(t, "alice", update.Message.From.Username)
	require.Equal(t, "Alice", update.Message.From.FirstName)

	update = NewUpdateBuilder().WithMessage(1, 2, "x").WithoutFrom().Build()
	require.Nil(t, update.Message.From)
}

func TestUpdateBuilder_WithEditedMessage(t *testing.T) {
	update := NewUpdateBuilder().WithEditedMessage(1, 2, "edited").Build()
	require.Nil(t, update.Message)
	require.Equal(t, "edited", update.EditedMessage.Text)
}

func TestGroupMessageUpdate(t *testing.T) {
	update := GroupMessageUpdate(-5, 6, "Group", "/status")
	require.Equal(t, int64(-5), update.Message.Chat.ID)
	require.Equal(t, "Group", update.Message.Chat.Title)
	require.Equal(t, "/status", update.Message.Text)
}

func TestCommandUpdate(t *testing.T) {
	update := CommandUpdate(1, 2, "/help")
	require.Equal(t, "/help", update.Message.Text)
}
