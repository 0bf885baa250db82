package session

import (
	"context"
	"fmt"

	"stall/gateway"
	"stall/models"
)

// Outcome reports what a two-phase action did locally. Applied is false when
// the action was a no-op or the gateway call failed.
type Outcome struct {
	Applied    bool              `json:"applied"`
	Event      *models.SaleEvent `json:"event,omitempty"`
	Reply      gateway.Reply     `json:"reply"`
	TotalSales int               `json:"totalSales"`
	ItemSold   int               `json:"itemSold"`
}

// RecordSale appends a sale of itemName at the item's price. Local state
// changes only after the gateway confirms the append.
func (m *Manager) RecordSale(ctx context.Context, itemName string, method models.PaymentMethod) (Outcome, error) {
	if !method.Valid() {
		return Outcome{}, gateway.NewValidationError("unknown payment method %q", method)
	}

	m.actions.Lock()
	defer m.actions.Unlock()

	m.mu.RLock()
	idx, ok := m.findItem(itemName)
	var item models.Item
	if ok {
		item = m.settings.Items[idx]
	}
	m.mu.RUnlock()
	if !ok {
		return Outcome{}, fmt.Errorf("record sale of %q: %w", itemName, ErrItemNotFound)
	}

	conn, err := m.connection()
	if err != nil {
		return Outcome{}, err
	}

	ev := m.newEvent(item, method)
	reply, err := m.ledger.Append(ctx, conn, models.RecordFromEvent(ev))
	if err != nil {
		return Outcome{Reply: reply, TotalSales: m.total()}, err
	}

	m.mu.Lock()
	m.events = append(m.events, ev)
	sold := 0
	if i, ok := m.findItem(itemName); ok {
		m.settings.Items[i].SoldQuantity++
		sold = m.settings.Items[i].SoldQuantity
	}
	total := len(m.events)
	m.mu.Unlock()

	m.logger.Info("sale recorded", "item", itemName, "method", method, "amount", ev.Amount.String(), "total", total)
	return Outcome{Applied: true, Event: &ev, Reply: reply, TotalSales: total, ItemSold: sold}, nil
}

// UndoLastSale asks the gateway to delete the newest row of itemName and then
// drops one local event according to the undo policy. With an empty history
// it does nothing and calls nobody.
func (m *Manager) UndoLastSale(ctx context.Context, itemName string) (Outcome, error) {
	m.actions.Lock()
	defer m.actions.Unlock()

	if m.total() == 0 {
		return Outcome{}, nil
	}
	if itemName == "" {
		return Outcome{}, gateway.NewValidationError("item name is required")
	}

	conn, err := m.connection()
	if err != nil {
		return Outcome{}, err
	}

	reply, err := m.ledger.DeleteLast(ctx, conn, itemName)
	if err != nil {
		return Outcome{Reply: reply, TotalSales: m.total()}, err
	}

	m.mu.Lock()
	removed := m.dropLocal(itemName)
	sold := 0
	if i, ok := m.findItem(itemName); ok {
		if m.settings.Items[i].SoldQuantity > 0 {
			m.settings.Items[i].SoldQuantity--
		}
		sold = m.settings.Items[i].SoldQuantity
	}
	total := len(m.events)
	m.mu.Unlock()

	m.logger.Info("sale undone", "item", itemName, "policy", m.undo, "total", total)
	return Outcome{Applied: true, Event: removed, Reply: reply, TotalSales: total, ItemSold: sold}, nil
}

// dropLocal removes one event per the undo policy. Caller holds mu.
func (m *Manager) dropLocal(itemName string) *models.SaleEvent {
	idx := len(m.events) - 1
	if m.undo == UndoItem {
		idx = -1
		for i := len(m.events) - 1; i >= 0; i-- {
			if m.events[i].ItemName == itemName {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil
	}
	removed := m.events[idx]
	m.events = append(m.events[:idx:idx], m.events[idx+1:]...)
	return &removed
}

// Reconcile replaces the local history with remote and recounts every item.
func (m *Manager) Reconcile(remote []models.SaleEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append([]models.SaleEvent(nil), remote...)
	counts := make(map[string]int, len(m.settings.Items))
	for _, e := range m.events {
		counts[e.ItemName]++
	}
	for i := range m.settings.Items {
		m.settings.Items[i].SoldQuantity = counts[m.settings.Items[i].Name]
	}
}

// Sync fetches the ledger and reconciles with it.
func (m *Manager) Sync(ctx context.Context) (int, error) {
	m.actions.Lock()
	defer m.actions.Unlock()

	conn, err := m.connection()
	if err != nil {
		return m.total(), err
	}
	remote, err := m.ledger.Events(ctx, conn)
	if err != nil {
		return m.total(), err
	}
	m.Reconcile(remote)
	m.logger.Info("ledger synced", "sales", len(remote))
	return len(remote), nil
}

func (m *Manager) total() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
