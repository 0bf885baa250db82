package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"stall/models"
	"stall/utils"
)

// EventsFromRows converts sheet rows to sale events, keeping every row so
// counts stay equal to the sheet. Rows with an unreadable time keep a zero
// Timestamp.
func EventsFromRows(rows []models.LedgerRow, loc *time.Location, logger *slog.Logger) []models.SaleEvent {
	events := make([]models.SaleEvent, 0, len(rows))
	for i, row := range rows {
		ts, local := cell(row, "timestamp"), cell(row, "jst")
		t, ok := utils.ParseTimestamp(ts, local, loc)
		if !ok && logger != nil {
			logger.Warn("ledger row has no readable time", "row", i+2, "timestamp", ts, "jst", local)
		}

		amount, err := amountOf(row["payment"])
		if err != nil && logger != nil {
			logger.Warn("ledger row has no readable payment", "row", i+2, "error", err)
		}

		events = append(events, models.SaleEvent{
			Timestamp: t,
			LocalTime: local,
			ItemName:  cell(row, "name"),
			Amount:    amount,
			Method:    models.PaymentMethod(cell(row, "method")),
		})
	}
	return events
}

func cell(row models.LedgerRow, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func amountOf(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		if x == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(x)
	default:
		return decimal.Zero, fmt.Errorf("unsupported payment value %T", v)
	}
}
