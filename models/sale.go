package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodTicket PaymentMethod = "ticket"
	MethodAuPay  PaymentMethod = "auPay"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodTicket || m == MethodAuPay
}

// SaleEvent is one recorded sale. Events are kept in insertion order.
type SaleEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	LocalTime string          `json:"jst"`
	ItemName  string          `json:"name"`
	Amount    decimal.Decimal `json:"payment"`
	Method    PaymentMethod   `json:"method"`
}

// LedgerRecord is the append payload sent to the ledger gateway.
type LedgerRecord struct {
	Timestamp string      `json:"timestamp"`
	JST       string      `json:"jst"`
	Name      string      `json:"name"`
	Payment   json.Number `json:"payment"`
	Method    string      `json:"method"`
}

func RecordFromEvent(e SaleEvent) LedgerRecord {
	return LedgerRecord{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		JST:       e.LocalTime,
		Name:      e.ItemName,
		Payment:   json.Number(e.Amount.String()),
		Method:    string(e.Method),
	}
}

// Missing lists the record fields the gateway requires but which are empty.
func (r LedgerRecord) Missing() []string {
	var missing []string
	if r.Timestamp == "" {
		missing = append(missing, "timestamp")
	}
	if r.JST == "" {
		missing = append(missing, "jst")
	}
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Payment == "" {
		missing = append(missing, "payment")
	}
	if r.Method == "" {
		missing = append(missing, "method")
	}
	return missing
}

// LedgerRow is one sheet row keyed by the sheet's header row.
type LedgerRow map[string]any
