// Package ledger implements the balance-adjustment ledger: device and SIM
// setup, wallet adjustments with exact undo, and chat teardown.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/repository"
)

const instrumentationName = "gitlab.com/yelinaung/dsw-limit-bot/internal/ledger"

// ChatRef identifies the chat an operation runs in.
type ChatRef struct {
	ExternalID string
	Title      string
}

// SetResult describes what SetDeviceSims changed.
type SetResult struct {
	Chat   models.Chat
	Device models.Device
	// Created is true when the device number was seen for the first time.
	Created bool
	// Relinked is true when the device moved from another chat or from no chat.
	Relinked       bool
	PreviousChatID *int64
	// Detached lists phones that were in the device before and are not part
	// of the new roster.
	Detached []string
}

// Adjust is a request to move an amount between a wallet's limit and balance.
type Adjust struct {
	ChatID   string
	Actor    string
	DeviceNo int
	SlotNo   int
	Amount   int64
	Wallet   string
}

// AdjustResult is the committed adjustment and the chat state after it.
type AdjustResult struct {
	Adjustment models.Adjustment
	Snapshot   models.ChatSnapshot
}

// Engine runs ledger operations against the store. Every mutating operation
// runs in a single transaction that locks the chat row first.
type Engine struct {
	db          database.DB
	tracer      trace.Tracer
	adjustments metric.Int64Counter
	undos       metric.Int64Counter
}

// NewEngine creates an Engine. Spans and counters go to the global
// OpenTelemetry providers.
func NewEngine(db database.DB) *Engine {
	meter := otel.Meter(instrumentationName)

	adjustments, err := meter.Int64Counter("ledger.adjustments",
		metric.WithDescription("Balance adjustments by wallet and outcome"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create adjustments counter")
		adjustments, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("ledger.adjustments")
	}

	undos, err := meter.Int64Counter("ledger.undos",
		metric.WithDescription("Undone adjustments by wallet and outcome"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create undos counter")
		undos, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("ledger.undos")
	}

	return &Engine{
		db:          db,
		tracer:      otel.Tracer(instrumentationName),
		adjustments: adjustments,
		undos:       undos,
	}
}

func (e *Engine) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("ledger.error_kind", KindOf(err).String()))
	}
	span.End()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}

// SetDeviceSims creates or updates a device and its SIM roster in a chat.
//
// The chat is resolved by external ID and created on first use. The device is
// resolved by its global number: it is created under the chat, or re-linked to
// it when it belongs to another chat or none. The slot set is then reconciled
// with the roster: SIMs no longer listed are unlinked, SIMs are upserted by
// phone with the new limits and bound to their slot numbers. Balances are
// never touched.
func (e *Engine) SetDeviceSims(ctx context.Context, chat ChatRef, setup models.DeviceSetup) (result *SetResult, err error) {
	const op = "SetDeviceSims"
	ctx, span := e.start(ctx, op, attribute.Int("device_no", setup.DeviceNo), attribute.Int("slots", len(setup.Slots)))
	defer func() { finish(span, err) }()

	if strings.TrimSpace(chat.ExternalID) == "" {
		return nil, invalidf(op, "chat id is required")
	}
	if err := validateSetup(op, setup); err != nil {
		return nil, err
	}

	result = &SetResult{}
	err = database.WithTx(ctx, e.db, func(tx pgx.Tx) error {
		chats := repository.NewChatRepository(tx)
		devices := repository.NewDeviceRepository(tx)
		sims := repository.NewSimRepository(tx)

		c, err := chats.Upsert(ctx, chat.ExternalID, chat.Title)
		if err != nil {
			return unexpected(op, err)
		}
		result.Chat = *c

		device, err := devices.GetByNumber(ctx, setup.DeviceNo)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			device, err = devices.Create(ctx, setup.DeviceNo, c.ID)
			if err != nil {
				return unexpected(op, err)
			}
			result.Created = true
		case err != nil:
			return unexpected(op, err)
		case device.ChatID == nil || *device.ChatID != c.ID:
			if err := devices.Relink(ctx, device.ID, c.ID); err != nil {
				return unexpected(op, err)
			}
			result.Relinked = true
			result.PreviousChatID = device.ChatID
			device.ChatID = &c.ID
		}
		result.Device = *device

		current, err := sims.ListSlots(ctx, device.ID)
		if err != nil {
			return unexpected(op, err)
		}

		target := make(map[string]int, len(setup.Slots))
		for _, s := range setup.Slots {
			target[s.Phone] = s.SlotNo
		}

		// Release every slot whose SIM is dropped or moves to another slot
		// number before binding, so (device, slot) stays unique throughout.
		for _, slot := range current {
			want, kept := target[slot.Phone]
			if kept && want == slot.SlotNo {
				continue
			}
			if err := sims.Unlink(ctx, slot.SimID); err != nil {
				return unexpected(op, err)
			}
			if !kept {
				result.Detached = append(result.Detached, slot.Phone)
			}
		}

		for _, s := range setup.Slots {
			sim, err := sims.Upsert(ctx, s.Phone, s.BKLimit, s.NGLimit)
			if err != nil {
				return unexpected(op, err)
			}
			if err := sims.Link(ctx, sim.ID, device.ID, s.SlotNo); err != nil {
				return unexpected(op, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, unexpected(op, err)
	}

	switch {
	case result.Relinked && result.PreviousChatID != nil:
		logger.Log.Warn().
			Str("chat", logger.HashExternalChatID(chat.ExternalID)).
			Int("device_no", setup.DeviceNo).
			Int64("previous_chat_id", *result.PreviousChatID).
			Msg("Device re-linked to another chat")
	case result.Relinked:
		logger.Log.Info().
			Str("chat", logger.HashExternalChatID(chat.ExternalID)).
			Int("device_no", setup.DeviceNo).
			Msg("Unowned device attached to chat")
	}
	for _, phone := range result.Detached {
		logger.Log.Info().
			Int("device_no", setup.DeviceNo).
			Str("phone", logger.MaskPhone(phone)).
			Msg("SIM detached from device")
	}
	logger.Log.Info().
		Str("chat", logger.HashExternalChatID(chat.ExternalID)).
		Int("device_no", setup.DeviceNo).
		Int("slots", len(setup.Slots)).
		Bool("created", result.Created).
		Msg("Device SIMs set")

	return result, nil
}

func validateSetup(op string, setup models.DeviceSetup) error {
	if err := validateDeviceNo(op, setup.DeviceNo); err != nil {
		return err
	}
	if len(setup.Slots) < 1 || len(setup.Slots) > models.MaxSlotNo {
		return invalidf(op, "a device takes 1 to %d SIMs, got %d", models.MaxSlotNo, len(setup.Slots))
	}

	slots := make(map[int]bool, len(setup.Slots))
	phones := make(map[string]bool, len(setup.Slots))
	for _, s := range setup.Slots {
		if s.SlotNo < models.MinSlotNo || s.SlotNo > models.MaxSlotNo {
			return invalidf(op, "slot number %d out of range", s.SlotNo)
		}
		if slots[s.SlotNo] {
			return invalidf(op, "duplicate slot number %d", s.SlotNo)
		}
		slots[s.SlotNo] = true

		if strings.TrimSpace(s.Phone) == "" {
			return invalidf(op, "slot %d has no phone number", s.SlotNo)
		}
		if phones[s.Phone] {
			return invalidf(op, "phone %s listed twice", logger.MaskPhone(s.Phone))
		}
		phones[s.Phone] = true

		if s.BKLimit < 0 || s.NGLimit < 0 {
			return invalidf(op, "slot %d has a negative limit", s.SlotNo)
		}
	}
	return nil
}

func validateDeviceNo(op string, deviceNo int) error {
	if deviceNo <= 0 || deviceNo > models.MaxDeviceNo {
		return invalidf(op, "device number must be between 1 and %d, got %d", models.MaxDeviceNo, deviceNo)
	}
	return nil
}

// validateTarget checks the device and slot numbers of an adjustment before
// any lookup.
func validateTarget(op string, deviceNo, slotNo int) error {
	if err := validateDeviceNo(op, deviceNo); err != nil {
		return err
	}
	if slotNo < models.MinSlotNo || slotNo > models.MaxSlotNo {
		return invalidf(op, "slot number %d out of range", slotNo)
	}
	return nil
}

// GetStatus returns the chat with its devices ordered by number and each
// device's SIMs ordered by slot.
func (e *Engine) GetStatus(ctx context.Context, chatID string) (snap *models.ChatSnapshot, err error) {
	const op = "GetStatus"
	ctx, span := e.start(ctx, op)
	defer func() { finish(span, err) }()

	chat, err := repository.NewChatRepository(e.db).GetByExternalID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf(op, "chat not found")
		}
		return nil, unexpected(op, err)
	}

	devices, err := repository.NewDeviceRepository(e.db).ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, unexpected(op, err)
	}

	return &models.ChatSnapshot{Chat: *chat, Devices: devices}, nil
}

// target is the SIM an adjustment or undo applies to.
type target struct {
	chat   *models.Chat
	device models.DeviceSnapshot
	sim    *models.Sim
}

// resolveTarget locks the chat, finds the device within it and locks the SIM
// in the requested slot.
func resolveTarget(ctx context.Context, op string, tx pgx.Tx, chatID string, deviceNo, slotNo int) (*target, error) {
	chat, err := repository.NewChatRepository(tx).LockByExternalID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf(op, "chat not found")
		}
		return nil, unexpected(op, err)
	}

	devices, err := repository.NewDeviceRepository(tx).ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, unexpected(op, err)
	}
	if len(devices) == 0 {
		return nil, notFoundf(op, "chat has no devices")
	}

	snap := models.ChatSnapshot{Chat: *chat, Devices: devices}
	device, ok := snap.Device(deviceNo)
	if !ok {
		return nil, notFoundf(op, "device DS-%d not found in chat", deviceNo)
	}

	sim, err := repository.NewSimRepository(tx).GetBySlotForUpdate(ctx, device.Device.ID, slotNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf(op, "no SIM in slot %d of DS-%d", slotNo, deviceNo)
		}
		return nil, unexpected(op, err)
	}

	return &target{chat: chat, device: device, sim: sim}, nil
}

// AdjustBalance records a history row and applies balance += amount and
// limit -= amount to the selected wallet, atomically.
func (e *Engine) AdjustBalance(ctx context.Context, req Adjust) (result *AdjustResult, err error) {
	const op = "AdjustBalance"
	ctx, span := e.start(ctx, op,
		attribute.Int("device_no", req.DeviceNo),
		attribute.Int("slot_no", req.SlotNo),
		attribute.String("wallet", strings.ToLower(req.Wallet)))
	defer func() {
		e.adjustments.Add(ctx, 1, metric.WithAttributes(
			attribute.String("wallet", strings.ToLower(req.Wallet)),
			attribute.String("outcome", outcome(err))))
		finish(span, err)
	}()

	if err := validateTarget(op, req.DeviceNo, req.SlotNo); err != nil {
		return nil, err
	}
	wallet, ok := models.ParseWalletType(req.Wallet)
	if !ok {
		return nil, invalidf(op, "unknown wallet %q", req.Wallet)
	}

	result = &AdjustResult{}
	err = database.WithTx(ctx, e.db, func(tx pgx.Tx) error {
		t, err := resolveTarget(ctx, op, tx, req.ChatID, req.DeviceNo, req.SlotNo)
		if err != nil {
			return err
		}

		row := &models.SimTransaction{
			SimID:     t.sim.ID,
			Amount:    req.Amount,
			Operation: wallet.Operation(),
			Type:      models.DirectionOf(req.Amount),
			Note:      fmt.Sprintf("Group: %s, By: %s", t.chat.Title, req.Actor),
		}
		if err := repository.NewTransactionRepository(tx).Create(ctx, row); err != nil {
			return unexpected(op, err)
		}

		if _, err := repository.NewSimRepository(tx).ApplyAdjustment(ctx, t.sim.ID, wallet, req.Amount); err != nil {
			return unexpected(op, err)
		}

		devices, err := repository.NewDeviceRepository(tx).ListByChat(ctx, t.chat.ID)
		if err != nil {
			return unexpected(op, err)
		}

		result.Adjustment = models.Adjustment{
			DeviceNo:      req.DeviceNo,
			SlotNo:        req.SlotNo,
			Amount:        req.Amount,
			Wallet:        wallet,
			TransactionID: row.ID,
		}
		result.Snapshot = models.ChatSnapshot{Chat: *t.chat, Devices: devices}
		return nil
	})
	if err != nil {
		return nil, unexpected(op, err)
	}

	logger.Log.Info().
		Str("chat", logger.HashExternalChatID(req.ChatID)).
		Int("device_no", req.DeviceNo).
		Int("slot_no", req.SlotNo).
		Str("wallet", string(wallet)).
		Int64("amount", req.Amount).
		Int64("transaction_id", result.Adjustment.TransactionID).
		Msg("Balance adjusted")

	return result, nil
}

// UndoLastBalance reverts a committed adjustment: it applies the exact
// inverse to the wallet and deletes the adjustment's history row. If the row
// is gone the balance change is rolled back and KindNotFound is returned.
func (e *Engine) UndoLastBalance(ctx context.Context, chatID string, adj models.Adjustment) (snap *models.ChatSnapshot, err error) {
	const op = "UndoLastBalance"
	ctx, span := e.start(ctx, op,
		attribute.Int("device_no", adj.DeviceNo),
		attribute.Int("slot_no", adj.SlotNo),
		attribute.String("wallet", string(adj.Wallet)),
		attribute.Int64("transaction_id", adj.TransactionID))
	defer func() {
		e.undos.Add(ctx, 1, metric.WithAttributes(
			attribute.String("wallet", string(adj.Wallet)),
			attribute.String("outcome", outcome(err))))
		finish(span, err)
	}()

	if err := validateTarget(op, adj.DeviceNo, adj.SlotNo); err != nil {
		return nil, err
	}
	wallet, ok := models.ParseWalletType(string(adj.Wallet))
	if !ok {
		return nil, invalidf(op, "unknown wallet %q", adj.Wallet)
	}

	err = database.WithTx(ctx, e.db, func(tx pgx.Tx) error {
		t, err := resolveTarget(ctx, op, tx, chatID, adj.DeviceNo, adj.SlotNo)
		if err != nil {
			return err
		}

		if _, err := repository.NewSimRepository(tx).ApplyAdjustment(ctx, t.sim.ID, wallet, -adj.Amount); err != nil {
			return unexpected(op, err)
		}

		txns := repository.NewTransactionRepository(tx)
		row, err := txns.GetByID(ctx, adj.TransactionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf(op, "transaction %d not found", adj.TransactionID)
			}
			return unexpected(op, err)
		}
		if row.SimID != t.sim.ID {
			return notFoundf(op, "transaction %d does not belong to slot %d of DS-%d", adj.TransactionID, adj.SlotNo, adj.DeviceNo)
		}
		if err := txns.Delete(ctx, row.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf(op, "transaction %d not found", adj.TransactionID)
			}
			return unexpected(op, err)
		}

		devices, err := repository.NewDeviceRepository(tx).ListByChat(ctx, t.chat.ID)
		if err != nil {
			return unexpected(op, err)
		}
		snap = &models.ChatSnapshot{Chat: *t.chat, Devices: devices}
		return nil
	})
	if err != nil {
		return nil, unexpected(op, err)
	}

	logger.Log.Info().
		Str("chat", logger.HashExternalChatID(chatID)).
		Int("device_no", adj.DeviceNo).
		Int("slot_no", adj.SlotNo).
		Str("wallet", string(wallet)).
		Int64("amount", adj.Amount).
		Int64("transaction_id", adj.TransactionID).
		Msg("Balance adjustment undone")

	return snap, nil
}

// RemoveDevice unlinks a device from the chat. Its slots and SIM balances are
// kept, so setting the device again restores the same state.
func (e *Engine) RemoveDevice(ctx context.Context, chatID string, deviceNo int) (err error) {
	const op = "RemoveDevice"
	ctx, span := e.start(ctx, op, attribute.Int("device_no", deviceNo))
	defer func() { finish(span, err) }()

	if err := validateDeviceNo(op, deviceNo); err != nil {
		return err
	}

	err = database.WithTx(ctx, e.db, func(tx pgx.Tx) error {
		chat, err := repository.NewChatRepository(tx).LockByExternalID(ctx, chatID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf(op, "chat not found")
			}
			return unexpected(op, err)
		}

		devices := repository.NewDeviceRepository(tx)
		device, err := devices.GetByNumber(ctx, deviceNo)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf(op, "device DS-%d not found", deviceNo)
			}
			return unexpected(op, err)
		}
		if device.ChatID == nil || *device.ChatID != chat.ID {
			return notFoundf(op, "device DS-%d not found in chat", deviceNo)
		}

		if err := devices.Detach(ctx, device.ID); err != nil {
			return unexpected(op, err)
		}
		return nil
	})
	if err != nil {
		return unexpected(op, err)
	}

	logger.Log.Info().
		Str("chat", logger.HashExternalChatID(chatID)).
		Int("device_no", deviceNo).
		Msg("Device removed from chat")
	return nil
}

// ResetChat zeroes balances, limits and usage counters of every SIM slotted
// in the chat's devices and deletes the chat. Devices become unowned.
func (e *Engine) ResetChat(ctx context.Context, chatID string) (err error) {
	const op = "ResetChat"
	ctx, span := e.start(ctx, op)
	defer func() { finish(span, err) }()

	var zeroed int64
	err = database.WithTx(ctx, e.db, func(tx pgx.Tx) error {
		chats := repository.NewChatRepository(tx)
		sims := repository.NewSimRepository(tx)

		chat, err := chats.LockByExternalID(ctx, chatID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFoundf(op, "chat not found")
			}
			return unexpected(op, err)
		}

		ids, err := sims.IDsByChat(ctx, chat.ID)
		if err != nil {
			return unexpected(op, err)
		}
		if zeroed, err = sims.ZeroBalances(ctx, ids); err != nil {
			return unexpected(op, err)
		}

		if err := chats.Delete(ctx, chat.ID); err != nil {
			return unexpected(op, err)
		}
		return nil
	})
	if err != nil {
		return unexpected(op, err)
	}

	logger.Log.Info().
		Str("chat", logger.HashExternalChatID(chatID)).
		Int64("sims_zeroed", zeroed).
		Msg("Chat reset")
	return nil
}
