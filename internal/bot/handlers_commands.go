package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/ledger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
)

// Reply texts.
const (
	msgInvalidSetup = `❌ Invalid wallet setup format. Please use the format below:
DS-1

Sim1 - 01000000001 BK 80K | NG 80K
Sim2 - 01000000002 BK 80K | NG 0K
Sim3 - 01000000003 BK 80K | NG 80K
Sim4 - 01000000004 BK 80K | NG 50K`
	msgInvalidAdjustment = "❌ Invalid format. Use: +30000 ds-1 sim1 bk"
	msgInvalidRemove     = "❌ Invalid format. Use: /remove ds-1"
	msgWalletsSet        = "✅ Wallets have been set for this chat."
	msgSetFailed         = "❌ Failed to set wallets for this chat."
	msgNoWalletsYet      = "⚠️ No wallets set yet for this chat"
	msgStatusFailed      = "❌ Failed to fetch status for this chat."
	msgWalletsReset      = "✅ Wallets have been reset for this chat."
	msgResetFailed       = "❌ Failed to reset wallets for this chat."
	msgNoWallets         = "❌ No wallets found for this chat."
	msgNothingToUndo     = "⚠️ No transactions to undo"
	msgUndoFailed        = "❌ Failed to undo the last transaction."
	msgUpdateFailed      = "❌ Failed to update balance"
	msgDeviceRemoved     = "✅ Device removed successfully."
	msgNoDevices         = "❌ No wallets/devices found for this chat."
	msgRemoveFailed      = "❌ Failed to remove device"
)

// extractCommandArgs strips the /command word (and any @botname suffix) from
// a message and returns the remaining trimmed arguments. Line breaks inside
// the arguments are kept.
func extractCommandArgs(text string) string {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `👋 DSW limit bot is ready.

I track BK and NG wallet limits for the SIMs of every DS device in this chat.

<b>Quick Start:</b>
• Register a device with <code>/set</code> followed by the device block
• Send <code>+30000 ds-1 sim1 bk</code> to record a cash-in
• Use <code>/status</code> to see remaining limits

Use /help to see all available commands.`

	logger.Log.Debug().Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).Msg("Sending /start response")
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /start response")
	}
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Devices:</b>
• <code>/set</code> followed by a device block:
<pre>DS-1

Sim1 - 01000000001 BK 80K | NG 80K
Sim2 - 01000000002 BK 80K | NG 0K</pre>
• <code>/remove ds-1</code> - Remove a device from this chat
• <code>/status</code> - Show remaining limits
• <code>/reset</code> - Zero all wallets and forget this chat

<b>Balances:</b>
• <code>+30000 ds-1 sim1 bk</code> - Cash in 30000 on the BK wallet
• <code>-5000 ds-1 sim2 ng</code> - Cash out 5000 on the NG wallet
• <code>/edit +30000 ds-1 sim1 bk</code> - Same as above
• <code>/undo</code> - Undo the last change in this chat

<b>Owner:</b>
• <code>/addUser &lt;username&gt;</code> - Authorize a user
• <code>/removeUser &lt;username&gt;</code> - Revoke a user
• <code>/users</code> - List authorized users`

	logger.Log.Debug().Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).Msg("Sending /help response")
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /help response")
	}
}

// handleSet handles the /set command.
func (b *Bot) handleSet(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSetCore(ctx, tgBot, update)
}

// handleSetCore is the testable implementation of handleSet.
func (b *Bot) handleSetCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	setup, ok := ParseDeviceSetup(extractCommandArgs(msg.Text))
	if !ok {
		reply(ctx, tg, msg, msgInvalidSetup)
		return
	}

	chat := ledger.ChatRef{ExternalID: externalChatID(msg.Chat), Title: msg.Chat.Title}
	if _, err := b.ledger.SetDeviceSims(ctx, chat, setup); err != nil {
		if ledger.IsValidation(err) {
			reply(ctx, tg, msg, msgInvalidSetup)
			return
		}
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(msg.Chat.ID)).Msg("Failed to set wallets")
		reply(ctx, tg, msg, msgSetFailed)
		return
	}

	reply(ctx, tg, msg, msgWalletsSet)
}

// handleStatus handles the /status command.
func (b *Bot) handleStatus(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatusCore(ctx, tgBot, update)
}

// handleStatusCore is the testable implementation of handleStatus.
func (b *Bot) handleStatusCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	snap, err := b.ledger.GetStatus(ctx, externalChatID(msg.Chat))
	switch {
	case ledger.IsNotFound(err):
		reply(ctx, tg, msg, msgNoWalletsYet)
		return
	case err != nil:
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(msg.Chat.ID)).Msg("Failed to fetch status")
		reply(ctx, tg, msg, msgStatusFailed)
		return
	case len(snap.Devices) == 0:
		reply(ctx, tg, msg, msgNoWalletsYet)
		return
	}

	reply(ctx, tg, msg, FormatStatus(*snap))
}

// handleReset handles the /reset command.
func (b *Bot) handleReset(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleResetCore(ctx, tgBot, update)
}

// handleResetCore is the testable implementation of handleReset.
func (b *Bot) handleResetCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	chatID := externalChatID(msg.Chat)

	err := b.ledger.ResetChat(ctx, chatID)
	switch {
	case ledger.IsNotFound(err):
		reply(ctx, tg, msg, msgNoWallets)
		return
	case err != nil:
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(msg.Chat.ID)).Msg("Failed to reset wallets")
		reply(ctx, tg, msg, msgResetFailed)
		return
	}

	b.history.Clear(chatID)
	reply(ctx, tg, msg, msgWalletsReset)
}

// handleUndo handles the /undo command.
func (b *Bot) handleUndo(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleUndoCore(ctx, tgBot, update)
}

// handleUndoCore is the testable implementation of handleUndo. The latest
// adjustment is popped before the attempt; it is pushed back only when the
// failure may be transient.
func (b *Bot) handleUndoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	chatID := externalChatID(msg.Chat)

	adj, ok := b.history.Pop(chatID)
	if !ok {
		reply(ctx, tg, msg, msgNothingToUndo)
		return
	}

	snap, err := b.ledger.UndoLastBalance(ctx, chatID, adj)
	if err != nil {
		switch ledger.KindOf(err) {
		case ledger.KindNotFound:
			logger.Log.Warn().Err(err).Int64("transaction_id", adj.TransactionID).Msg("Dropped undo record with missing target")
			reply(ctx, tg, msg, msgNoWallets)
		default:
			b.history.Push(chatID, adj)
			logger.Log.Error().Err(err).Int64("transaction_id", adj.TransactionID).Msg("Failed to undo adjustment")
			reply(ctx, tg, msg, msgUndoFailed)
		}
		return
	}

	text := fmt.Sprintf("🔙 Undone DS-%d Sim%d %s", adj.DeviceNo, adj.SlotNo, adj.Wallet.Operation())
	if device, ok := snap.Device(adj.DeviceNo); ok {
		text += "\n\n" + FormatSimLines(device)
	}
	reply(ctx, tg, msg, text)
}

// handleEdit handles the /edit command.
func (b *Bot) handleEdit(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditCore(ctx, tgBot, update)
}

// handleEditCore is the testable implementation of handleEdit.
func (b *Bot) handleEditCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	parsed, ok := ParseAdjustment(extractCommandArgs(update.Message.Text))
	if !ok {
		reply(ctx, tg, update.Message, msgInvalidAdjustment)
		return
	}

	b.applyAdjustment(ctx, tg, update.Message, parsed)
}

// applyAdjustment commits an adjustment and then records it for /undo.
func (b *Bot) applyAdjustment(ctx context.Context, tg TelegramAPI, msg *models.Message, parsed ParsedAdjustment) {
	chatID := externalChatID(msg.Chat)

	res, err := b.ledger.AdjustBalance(ctx, ledger.Adjust{
		ChatID:   chatID,
		Actor:    actorName(msg),
		DeviceNo: parsed.DeviceNo,
		SlotNo:   parsed.SlotNo,
		Amount:   parsed.Amount,
		Wallet:   string(parsed.Wallet),
	})
	if err != nil {
		switch ledger.KindOf(err) {
		case ledger.KindNotFound:
			reply(ctx, tg, msg, msgNoWallets)
		case ledger.KindValidation:
			reply(ctx, tg, msg, msgInvalidAdjustment)
		default:
			logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(msg.Chat.ID)).Msg("Failed to update balance")
			reply(ctx, tg, msg, msgUpdateFailed)
		}
		return
	}

	depth := b.history.Push(chatID, res.Adjustment)

	text := fmt.Sprintf("✅ #%d ➡️ Updated DS-%d Sim%d %s",
		depth, parsed.DeviceNo, parsed.SlotNo, parsed.Wallet.Operation())
	if device, ok := res.Snapshot.Device(parsed.DeviceNo); ok {
		text += "\n\n" + FormatSimLines(device)
	}
	reply(ctx, tg, msg, text)
}

// handleRemove handles the /remove command.
func (b *Bot) handleRemove(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRemoveCore(ctx, tgBot, update)
}

// handleRemoveCore is the testable implementation of handleRemove.
func (b *Bot) handleRemoveCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	deviceNo, ok := ParseDeviceRef(extractCommandArgs(msg.Text))
	if !ok {
		reply(ctx, tg, msg, msgInvalidRemove)
		return
	}

	err := b.ledger.RemoveDevice(ctx, externalChatID(msg.Chat), deviceNo)
	switch {
	case ledger.IsNotFound(err):
		reply(ctx, tg, msg, msgNoDevices)
	case ledger.IsValidation(err):
		reply(ctx, tg, msg, msgInvalidRemove)
	case err != nil:
		logger.Log.Error().Err(err).Int("device_no", deviceNo).Msg("Failed to remove device")
		reply(ctx, tg, msg, msgRemoveFailed)
	default:
		reply(ctx, tg, msg, msgDeviceRemoved)
	}
}
