package controllers

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var exportHeader = []string{"time", "name", "price", "method"}

// ExportSales writes the sale history as CSV. encoding=sjis converts it to
// Shift_JIS for spreadsheet programs that expect it.
func (h *Controllers) ExportSales(c *fiber.Ctx) error {
	loc := h.Session.Location()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return h.fail(c, err)
	}
	for _, e := range h.Session.History() {
		label := e.LocalTime
		if !e.Timestamp.IsZero() {
			label = e.Timestamp.In(loc).Format("15:04")
		}
		if err := w.Write([]string{label, e.ItemName, e.Amount.String(), string(e.Method)}); err != nil {
			return h.fail(c, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return h.fail(c, err)
	}

	out := buf.Bytes()
	charset := "utf-8"
	if c.Query("encoding") == "sjis" {
		encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), out)
		if err != nil {
			return h.fail(c, fmt.Errorf("encode shift_jis: %w", err))
		}
		out = encoded
		charset = "shift_jis"
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset="+charset)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="sales.csv"`)
	return c.Send(out)
}
