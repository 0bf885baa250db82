package controllers

import (
	"stall/models"

	"github.com/gofiber/fiber/v2"
)

// paymentRequest is the browser's body: the record plus the settings it
// keeps locally.
type paymentRequest struct {
	models.LedgerRecord
	models.Connection
}

// GetPayments forwards a list request and answers with the sheet rows.
func (h *Controllers) GetPayments(c *fiber.Ctx) error {
	conn := models.Connection{
		ScriptURL: c.Query("scriptUrl"),
		SheetURL:  c.Query("sheetUrl"),
		SheetName: c.Query("sheetName"),
	}
	if conn.ScriptURL == "" || conn.SheetURL == "" || conn.SheetName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": configErrorMessage})
	}

	rows, err := h.Gateway.Rows(c.UserContext(), conn)
	if err != nil {
		return h.fail(c, err)
	}
	if rows == nil {
		rows = []models.LedgerRow{}
	}
	return c.JSON(rows)
}

// CreatePayment forwards one sale record to the gateway.
func (h *Controllers) CreatePayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	if len(req.Connection.Missing()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": configErrorMessage})
	}
	if len(req.LedgerRecord.Missing()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	reply, err := h.Gateway.Append(c.UserContext(), req.Connection, req.LedgerRecord)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reply)
}

// DeletePayment asks the gateway to drop the newest row of one item.
func (h *Controllers) DeletePayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	if len(req.Connection.Missing()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": configErrorMessage})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	reply, err := h.Gateway.DeleteLast(c.UserContext(), req.Connection, req.Name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reply)
}
