package controllers

import (
	"net/url"

	"stall/models"
	"stall/projection"

	"github.com/gofiber/fiber/v2"
)

type saleRequest struct {
	Name   string               `json:"name"`
	Method models.PaymentMethod `json:"method"`
}

// GetDashboard returns counters, projection and history at the current time.
func (h *Controllers) GetDashboard(c *fiber.Ctx) error {
	snap := h.Session.Snapshot(h.Session.Now())
	if c.QueryBool("canonical") {
		snap.Points = projection.Canonical(snap.Points)
	}
	if snap.Points == nil {
		snap.Points = []models.ProjectionPoint{}
	}
	return c.JSON(snap)
}

// CreateSale records one sale of an item from the catalog.
func (h *Controllers) CreateSale(c *fiber.Ctx) error {
	var req saleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	out, err := h.Session.RecordSale(c.UserContext(), req.Name, req.Method)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UndoSale removes the newest sale of the item in the path.
func (h *Controllers) UndoSale(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item name"})
	}

	out, err := h.Session.UndoLastSale(c.UserContext(), name)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Sync reloads the history from the ledger.
func (h *Controllers) Sync(c *fiber.Ctx) error {
	n, err := h.Session.Sync(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ledger synced", "totalSales": n})
}
