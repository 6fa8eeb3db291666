package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/repository"
)

const (
	msgInvalidUsername = "❌ Please provide a valid username."
	msgUserExists      = "✅ User already exists."
	msgUserMissing     = "❌ User does not exist."
	msgUserOpFailed    = "❌ Failed to update authorized users. Please try again."
	msgNoUsers         = "No authorized users yet."
)

// extractUsernameArg returns the username argument of an admin command,
// without a leading @.
func extractUsernameArg(text string) string {
	args := extractCommandArgs(text)
	if fields := strings.Fields(args); len(fields) > 0 {
		args = fields[0]
	}
	return strings.TrimPrefix(args, "@")
}

// ownerOnly reports whether the message comes from the owner. Other senders
// are ignored without a reply.
func (b *Bot) ownerOnly(msg *models.Message) bool {
	return msg.From != nil && b.auth.IsOwner(msg.From.ID)
}

// handleAddUser handles the /addUser command.
func (b *Bot) handleAddUser(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddUserCore(ctx, tgBot, update)
}

// handleAddUserCore is the testable implementation of handleAddUser.
func (b *Bot) handleAddUserCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || !b.ownerOnly(update.Message) {
		return
	}
	msg := update.Message

	username := extractUsernameArg(msg.Text)
	if username == "" {
		reply(ctx, tg, msg, msgInvalidUsername)
		return
	}

	exists, err := b.users.Exists(ctx, username)
	if err != nil {
		logger.Log.Error().Err(err).Str("username_hash", logger.HashUsername(username)).Msg("Failed to check user")
		reply(ctx, tg, msg, msgUserOpFailed)
		return
	}
	if exists {
		b.auth.Add(username)
		reply(ctx, tg, msg, msgUserExists)
		return
	}

	if err := b.users.Create(ctx, username); err != nil {
		logger.Log.Error().Err(err).Str("username_hash", logger.HashUsername(username)).Msg("Failed to add user")
		reply(ctx, tg, msg, msgUserOpFailed)
		return
	}
	b.auth.Add(username)

	logger.Log.Info().Str("username_hash", logger.HashUsername(username)).Msg("User authorized")
	reply(ctx, tg, msg, fmt.Sprintf("✅ User %s has been added successfully.", username))
}

// handleRemoveUser handles the /removeUser command.
func (b *Bot) handleRemoveUser(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRemoveUserCore(ctx, tgBot, update)
}

// handleRemoveUserCore is the testable implementation of handleRemoveUser.
func (b *Bot) handleRemoveUserCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || !b.ownerOnly(update.Message) {
		return
	}
	msg := update.Message

	username := extractUsernameArg(msg.Text)
	if username == "" {
		reply(ctx, tg, msg, msgInvalidUsername)
		return
	}

	if err := b.users.Delete(ctx, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			b.auth.Remove(username)
			reply(ctx, tg, msg, msgUserMissing)
			return
		}
		logger.Log.Error().Err(err).Str("username_hash", logger.HashUsername(username)).Msg("Failed to remove user")
		reply(ctx, tg, msg, msgUserOpFailed)
		return
	}
	b.auth.Remove(username)

	logger.Log.Info().Str("username_hash", logger.HashUsername(username)).Msg("User revoked")
	reply(ctx, tg, msg, fmt.Sprintf("✅ User %s has been removed successfully.", username))
}

// handleUsers handles the /users command.
func (b *Bot) handleUsers(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleUsersCore(ctx, tgBot, update)
}

// handleUsersCore is the testable implementation of handleUsers.
func (b *Bot) handleUsersCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || !b.ownerOnly(update.Message) {
		return
	}

	names := b.auth.Usernames()
	if len(names) == 0 {
		reply(ctx, tg, update.Message, msgNoUsers)
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 Authorized users:")
	for _, n := range names {
		sb.WriteString("\n• @" + n)
	}
	reply(ctx, tg, update.Message, sb.String())
}
