// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/auth"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/config"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/ledger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/telemetry"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/undo"
)

// pollTimeout is the long-poll timeout of getUpdates.
const pollTimeout = time.Minute

// Ledger is the set of ledger operations the handlers call.
type Ledger interface {
	SetDeviceSims(ctx context.Context, chat ledger.ChatRef, setup models.DeviceSetup) (*ledger.SetResult, error)
	GetStatus(ctx context.Context, chatID string) (*models.ChatSnapshot, error)
	AdjustBalance(ctx context.Context, req ledger.Adjust) (*ledger.AdjustResult, error)
	UndoLastBalance(ctx context.Context, chatID string, adj models.Adjustment) (*models.ChatSnapshot, error)
	RemoveDevice(ctx context.Context, chatID string, deviceNo int) error
	ResetChat(ctx context.Context, chatID string) error
}

// UserStore persists the authorized usernames.
type UserStore interface {
	Create(ctx context.Context, username string) error
	Delete(ctx context.Context, username string) error
	Exists(ctx context.Context, username string) (bool, error)
}

// Compile-time check that the engine satisfies Ledger.
var _ Ledger = (*ledger.Engine)(nil)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot     *bot.Bot
	cfg     *config.Config
	ledger  Ledger
	users   UserStore
	auth    *auth.Registry
	history *undo.Buffer
}

// New creates a new Bot instance. The registry and undo buffer are shared
// process state owned by the caller.
func New(cfg *config.Config, l Ledger, users UserStore, registry *auth.Registry, history *undo.Buffer) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		ledger:  l,
		users:   users,
		auth:    registry,
		history: history,
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.authMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithHTTPClient(pollTimeout, telemetry.HTTPClient(2*pollTimeout)),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

// Start begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command handlers. Commands are matched by exact
// name so /remove does not capture /removeUser.
func (b *Bot) registerHandlers() {
	handlers := []struct {
		command string
		handler bot.HandlerFunc
	}{
		{"start", b.handleStart},
		{"help", b.handleHelp},
		{"set", b.handleSet},
		{"status", b.handleStatus},
		{"reset", b.handleReset},
		{"undo", b.handleUndo},
		{"edit", b.handleEdit},
		{"remove", b.handleRemove},
		{"addUser", b.handleAddUser},
		{"removeUser", b.handleRemoveUser},
		{"users", b.handleUsers},
	}
	for _, h := range handlers {
		b.bot.RegisterHandlerMatchFunc(matchCommand(h.command), h.handler)
	}
}

// matchCommand matches messages whose first word is /name or /name@botname.
func matchCommand(name string) bot.MatchFunc {
	return func(update *tgmodels.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, ok := commandName(update.Message.Text)
		return ok && strings.EqualFold(cmd, name)
	}
}

// commandName returns the command of a message without the slash and any
// @botname suffix.
func commandName(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := text[1:]
	if i := strings.IndexFunc(word, unicode.IsSpace); i >= 0 {
		word = word[:i]
	}
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return word, word != ""
}

// authMiddleware drops updates from senders who are neither the owner nor
// an authorized user. Strangers get no reply.
func (b *Bot) authMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.allowed(update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

func (b *Bot) allowed(update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	if !b.auth.Allowed(userID, username) {
		logger.Log.Debug().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Ignored update from unauthorized user")
		return false
	}

	logUserAction(userID, update)
	return true
}

// logUserAction logs the user's input.
func logUserAction(userID int64, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	event := logger.Log.Info().
		Str("user_hash", logger.HashUserID(userID)).
		Str("chat_hash", logger.HashChatID(msg.Chat.ID))

	if msg.Text != "" {
		event = event.Str("text", logger.SanitizeText(msg.Text))
	}

	event.Msg("User input")
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.ID
	}
	return 0
}

// externalChatID is the key a Telegram chat is stored under.
func externalChatID(chat tgmodels.Chat) string {
	return strconv.FormatInt(chat.ID, 10)
}

// actorName identifies the sender in transaction notes.
func actorName(msg *tgmodels.Message) string {
	if msg.From == nil {
		return ""
	}
	if msg.From.Username != "" {
		return msg.From.Username
	}
	return strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
}

// reply sends text threaded to msg.
func reply(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &tgmodels.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(msg.Chat.ID)).Msg("Failed to send reply")
	}
}

// defaultHandler treats free text as a balance adjustment. Anything that
// does not parse is ignored.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

// defaultHandlerCore is the testable implementation of defaultHandler.
func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	parsed, ok := ParseAdjustment(update.Message.Text)
	if !ok {
		logger.Log.Debug().
			Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).
			Msg("Ignored free text")
		return
	}

	b.applyAdjustment(ctx, tg, update.Message, parsed)
}
