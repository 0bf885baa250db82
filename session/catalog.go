package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stall/gateway"
	"stall/models"
)

// AddItem adds a catalog entry. Its sold count is derived from the history.
func (m *Manager) AddItem(ctx context.Context, item models.Item) (models.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return models.Item{}, gateway.NewValidationError("item name is required")
	}
	if !validPrice(item.UnitPrice) {
		return models.Item{}, gateway.NewValidationError("price must not be negative")
	}

	err := m.update(ctx, func(s *models.Settings) error {
		if _, ok := m.findItem(item.Name); ok {
			return fmt.Errorf("add %q: %w", item.Name, ErrDuplicateItem)
		}
		item.SoldQuantity = m.countSold(item.Name)
		s.Items = append(s.Items, item)
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// EditItem changes price and target of an existing entry.
func (m *Manager) EditItem(ctx context.Context, name string, price decimal.Decimal, target int) (models.Item, error) {
	if !validPrice(price) {
		return models.Item{}, gateway.NewValidationError("price must not be negative")
	}

	var item models.Item
	err := m.update(ctx, func(s *models.Settings) error {
		i, ok := m.findItem(name)
		if !ok {
			return fmt.Errorf("edit %q: %w", name, ErrItemNotFound)
		}
		s.Items[i].UnitPrice = price
		s.Items[i].TargetQuantity = target
		item = s.Items[i]
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// RemoveItem deletes a catalog entry. Its rows stay in the ledger.
func (m *Manager) RemoveItem(ctx context.Context, name string) error {
	return m.update(ctx, func(s *models.Settings) error {
		i, ok := m.findItem(name)
		if !ok {
			return fmt.Errorf("remove %q: %w", name, ErrItemNotFound)
		}
		s.Items = append(s.Items[:i:i], s.Items[i+1:]...)
		return nil
	})
}

func (m *Manager) Items() []models.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Item(nil), m.settings.Items...)
}

// UpdateConnection stores new gateway settings. It does not sync.
func (m *Manager) UpdateConnection(ctx context.Context, conn models.Connection) error {
	conn.SheetURL = strings.TrimSpace(conn.SheetURL)
	conn.SheetName = strings.TrimSpace(conn.SheetName)
	conn.ScriptURL = strings.TrimSpace(conn.ScriptURL)

	return m.update(ctx, func(s *models.Settings) error {
		s.Connection = conn
		return nil
	})
}

func (m *Manager) UpdateWindow(ctx context.Context, w models.SalesWindow) error {
	if err := w.Validate(); err != nil {
		return gateway.NewValidationError("invalid sales window: %v", err)
	}

	return m.update(ctx, func(s *models.Settings) error {
		s.Window = w
		return nil
	})
}
