// Package session keeps the dashboard's view of the day: the sale history,
// the item catalog with sold counts, and the persisted settings.
//
// Mutating actions are two-phase. The ledger gateway is called first and
// local state only changes when it reports success. Sync replaces the local
// history with the ledger's and is the only step that restores consistency.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stall/gateway"
	"stall/models"
	"stall/utils"
)

var (
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateItem = errors.New("item already exists")
)

// Ledger is the remote sales sheet.
type Ledger interface {
	Events(ctx context.Context, conn models.Connection) ([]models.SaleEvent, error)
	Append(ctx context.Context, conn models.Connection, rec models.LedgerRecord) (gateway.Reply, error)
	DeleteLast(ctx context.Context, conn models.Connection, name string) (gateway.Reply, error)
}

// ConfigStore persists settings across restarts. Load reports false when
// nothing has been saved yet, and fills in the default window when none was
// stored.
type ConfigStore interface {
	Load(ctx context.Context) (models.Settings, bool, error)
	Save(ctx context.Context, s models.Settings) error
}

type UndoPolicy string

const (
	// UndoTail drops the newest event of the whole history.
	UndoTail UndoPolicy = "tail"
	// UndoItem drops the newest event of the undone item, matching the ledger.
	UndoItem UndoPolicy = "item"
)

func ParseUndoPolicy(s string) (UndoPolicy, error) {
	switch UndoPolicy(s) {
	case UndoTail, UndoItem:
		return UndoPolicy(s), nil
	case "":
		return UndoTail, nil
	}
	return "", fmt.Errorf("unknown undo policy %q", s)
}

type Options struct {
	Location *time.Location
	Undo     UndoPolicy
	Clock    func() time.Time
	Logger   *slog.Logger
}

type Manager struct {
	ledger Ledger
	store  ConfigStore
	loc    *time.Location
	undo   UndoPolicy
	clock  func() time.Time
	logger *slog.Logger

	// actions serializes mutating actions, gateway call included.
	actions sync.Mutex

	mu         sync.RWMutex
	settings   models.Settings
	configured bool
	events     []models.SaleEvent
}

func NewManager(ledger Ledger, store ConfigStore, opts Options) *Manager {
	m := &Manager{
		ledger: ledger,
		store:  store,
		loc:    opts.Location,
		undo:   opts.Undo,
		clock:  opts.Clock,
		logger: opts.Logger,
		settings: models.Settings{
			Connection: models.Connection{SheetName: "シート1"},
			Window:     models.DefaultWindow(),
		},
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.undo == "" {
		m.undo = UndoTail
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Open loads stored settings and, when a connection is configured, pulls
// the ledger. A failed pull leaves the session usable with empty history.
func (m *Manager) Open(ctx context.Context) error {
	s, ok, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		m.logger.Info("no stored settings, session is unconfigured")
		return nil
	}

	m.mu.Lock()
	m.settings = s
	m.configured = len(s.Connection.Missing()) == 0
	configured := m.configured
	m.mu.Unlock()

	if !configured {
		return nil
	}
	if _, err := m.Sync(ctx); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}
	return nil
}

// Configured reports whether every connection field is set.
func (m *Manager) Configured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configured
}

func (m *Manager) Settings() models.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSettings(m.settings)
}

// History returns a copy of the local sale history.
func (m *Manager) History() []models.SaleEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.SaleEvent(nil), m.events...)
}

func (m *Manager) Location() *time.Location { return m.loc }

func (m *Manager) connection() (models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn := m.settings.Connection
	if missing := conn.Missing(); len(missing) > 0 {
		return conn, &gateway.ConfigError{Missing: missing}
	}
	return conn, nil
}

func (m *Manager) findItem(name string) (int, bool) {
	for i, it := range m.settings.Items {
		if it.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (m *Manager) countSold(name string) int {
	n := 0
	for _, e := range m.events {
		if e.ItemName == name {
			n++
		}
	}
	return n
}

// update applies fn to the settings and saves the result under actions.
// The previous settings come back when fn or the save fails.
func (m *Manager) update(ctx context.Context, fn func(s *models.Settings) error) error {
	m.actions.Lock()
	defer m.actions.Unlock()

	m.mu.Lock()
	prev, prevConfigured := cloneSettings(m.settings), m.configured
	if err := fn(&m.settings); err != nil {
		m.settings = prev
		m.mu.Unlock()
		return err
	}
	m.configured = len(m.settings.Connection.Missing()) == 0
	next := cloneSettings(m.settings)
	m.mu.Unlock()

	if err := m.store.Save(ctx, next); err != nil {
		m.mu.Lock()
		m.settings, m.configured = prev, prevConfigured
		m.mu.Unlock()
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func cloneSettings(s models.Settings) models.Settings {
	s.Items = append([]models.Item(nil), s.Items...)
	return s
}

func (m *Manager) newEvent(item models.Item, method models.PaymentMethod) models.SaleEvent {
	now := m.clock()
	return models.SaleEvent{
		Timestamp: now.UTC(),
		LocalTime: utils.FormatLocal(now, m.loc),
		ItemName:  item.Name,
		Amount:    item.UnitPrice,
		Method:    method,
	}
}

func validPrice(price decimal.Decimal) bool {
	return !price.IsNegative()
}
