// Package models defines the domain entities for the wallet limit tracker.
package models

import (
	"math"
	"strings"
	"time"
)

// MinSlotNo and MaxSlotNo bound the SIM slot numbers of a device.
const (
	MinSlotNo = 1
	MaxSlotNo = 4
)

// MaxDeviceNo is the largest device number the store can hold.
const MaxDeviceNo = math.MaxInt32

// WalletType identifies one of the two mobile-money wallets tracked per SIM.
type WalletType string

// Supported wallets.
const (
	WalletBK WalletType = "bk"
	WalletNG WalletType = "ng"
)

// ParseWalletType normalizes a wallet tag. Matching is case-insensitive.
func ParseWalletType(s string) (WalletType, bool) {
	switch WalletType(strings.ToLower(strings.TrimSpace(s))) {
	case WalletBK:
		return WalletBK, true
	case WalletNG:
		return WalletNG, true
	default:
		return "", false
	}
}

// Operation returns the upper-case tag stored on transaction rows.
func (w WalletType) Operation() string {
	return strings.ToUpper(string(w))
}

// TransactionType is the direction of a balance mutation.
type TransactionType string

// Transaction directions.
const (
	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"
)

// DirectionOf returns IN for credits and OUT for everything else.
func DirectionOf(amount int64) TransactionType {
	if amount > 0 {
		return TransactionIn
	}
	return TransactionOut
}

// Chat represents a Telegram conversation that owns devices.
type Chat struct {
	ID         int64
	ExternalID string
	Title      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Device is a physical multi-SIM unit. ChatID is nil when the device is not
// linked to any chat.
type Device struct {
	ID        int64
	DeviceNo  int
	ChatID    *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sim is a phone number carrying two wallets.
type Sim struct {
	ID             int64
	Phone          string
	BKBalance      int64
	NGBalance      int64
	BKLimit        int64
	NGLimit        int64
	BKSM           int64
	BKCO           int64
	BKMER          int64
	NGSM           int64
	NGCO           int64
	NGMER          int64
	LastCashedInAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Balance returns the balance of the given wallet.
func (s Sim) Balance(w WalletType) int64 {
	if w == WalletNG {
		return s.NGBalance
	}
	return s.BKBalance
}

// Limit returns the remaining limit of the given wallet.
func (s Sim) Limit(w WalletType) int64 {
	if w == WalletNG {
		return s.NGLimit
	}
	return s.BKLimit
}

// SimSlot binds a Sim to a Device at a slot number.
type SimSlot struct {
	SimID    int64
	DeviceID int64
	SlotNo   int
	Phone    string
}

// SimTransaction is one immutable balance mutation row.
type SimTransaction struct {
	ID        int64
	SimID     int64
	Amount    int64
	Charge    int64
	Operation string
	Type      TransactionType
	Note      string
	CreatedAt time.Time
}

// BotUser is a username allowed to operate the bot.
type BotUser struct {
	ID        int
	Username  string
	CreatedAt time.Time
}

// SlotSetup is one SIM line of a device setup.
type SlotSetup struct {
	SlotNo  int
	Phone   string
	BKLimit int64
	NGLimit int64
}

// DeviceSetup describes the full SIM roster of a device.
type DeviceSetup struct {
	DeviceNo int
	Slots    []SlotSetup
}

// Adjustment is an applied balance change. TransactionID is set once the
// change has been committed.
type Adjustment struct {
	DeviceNo      int
	SlotNo        int
	Amount        int64
	Wallet        WalletType
	TransactionID int64
}

// SlotSnapshot is a slot with its SIM.
type SlotSnapshot struct {
	SlotNo int
	Sim    Sim
}

// DeviceSnapshot is a device with its slots ordered by slot number.
type DeviceSnapshot struct {
	Device Device
	Slots  []SlotSnapshot
}

// Slot returns the slot with the given number.
func (d DeviceSnapshot) Slot(slotNo int) (SlotSnapshot, bool) {
	for _, s := range d.Slots {
		if s.SlotNo == slotNo {
			return s, true
		}
	}
	return SlotSnapshot{}, false
}

// ChatSnapshot is a chat with its devices ordered by device number.
type ChatSnapshot struct {
	Chat    Chat
	Devices []DeviceSnapshot
}

// Device returns the device with the given number.
func (c ChatSnapshot) Device(deviceNo int) (DeviceSnapshot, bool) {
	for _, d := range c.Devices {
		if d.Device.DeviceNo == deviceNo {
			return d, true
		}
	}
	return DeviceSnapshot{}, false
}
