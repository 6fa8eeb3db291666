package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/auth"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/config"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/ledger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/repository"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/undo"
)

const (
	testOwnerID = int64(1001)
	testChatID  = int64(-100900900)
)

var errStoreDown = errors.New("store down")

// fakeLedger records calls and returns canned results.
type fakeLedger struct {
	mu sync.Mutex

	setCalls    []models.DeviceSetup
	setChats    []ledger.ChatRef
	adjustCalls []ledger.Adjust
	undoCalls   []models.Adjustment
	removeCalls []int
	resetCalls  []string

	snapshot  *models.ChatSnapshot
	nextTxID  int64
	setErr    error
	statusErr error
	adjustErr error
	undoErr   error
	removeErr error
	resetErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		snapshot: &models.ChatSnapshot{
			Chat: models.Chat{ID: 1, ExternalID: "-100900900"},
			Devices: []models.DeviceSnapshot{{
				Device: models.Device{ID: 1, DeviceNo: 1},
				Slots: []models.SlotSnapshot{
					{SlotNo: 1, Sim: models.Sim{Phone: "01000000001", BKLimit: 50000, NGLimit: 80000}},
					{SlotNo: 2, Sim: models.Sim{Phone: "01000000002", BKLimit: 80000, NGLimit: 0}},
				},
			}},
		},
	}
}

func (f *fakeLedger) SetDeviceSims(_ context.Context, chat ledger.ChatRef, setup models.DeviceSetup) (*ledger.SetResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setChats = append(f.setChats, chat)
	f.setCalls = append(f.setCalls, setup)
	if f.setErr != nil {
		return nil, f.setErr
	}
	return &ledger.SetResult{Created: true}, nil
}

func (f *fakeLedger) GetStatus(context.Context, string) (*models.ChatSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.snapshot, nil
}

func (f *fakeLedger) AdjustBalance(_ context.Context, req ledger.Adjust) (*ledger.AdjustResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustCalls = append(f.adjustCalls, req)
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	f.nextTxID++
	wallet, _ := models.ParseWalletType(req.Wallet)
	return &ledger.AdjustResult{
		Adjustment: models.Adjustment{
			DeviceNo:      req.DeviceNo,
			SlotNo:        req.SlotNo,
			Amount:        req.Amount,
			Wallet:        wallet,
			TransactionID: f.nextTxID,
		},
		Snapshot: *f.snapshot,
	}, nil
}

func (f *fakeLedger) UndoLastBalance(_ context.Context, _ string, adj models.Adjustment) (*models.ChatSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undoCalls = append(f.undoCalls, adj)
	if f.undoErr != nil {
		return nil, f.undoErr
	}
	return f.snapshot, nil
}

func (f *fakeLedger) RemoveDevice(_ context.Context, _ string, deviceNo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, deviceNo)
	return f.removeErr
}

func (f *fakeLedger) ResetChat(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls = append(f.resetCalls, chatID)
	return f.resetErr
}

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]bool
	err   error
}

func newFakeUserStore(usernames ...string) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]bool)}
	for _, u := range usernames {
		s.users[strings.ToLower(u)] = true
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.users[strings.ToLower(username)] = true
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	key := strings.ToLower(username)
	if !s.users[key] {
		return repository.ErrNotFound
	}
	delete(s.users, key)
	return nil
}

func (s *fakeUserStore) Exists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return s.users[strings.ToLower(username)], nil
}

// newTestBot creates a Bot wired to the given ledger and user store without
// a Telegram connection.
func newTestBot(t *testing.T, l Ledger, users UserStore) *Bot {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken: "test-token",
		DatabaseURL:      "test-url",
		OwnerID:          testOwnerID,
		UndoDepth:        config.DefaultUndoDepth,
	}

	return &Bot{
		cfg:     cfg,
		ledger:  l,
		users:   users,
		auth:    auth.NewRegistry(testOwnerID),
		history: undo.New(cfg.UndoDepth),
	}
}
