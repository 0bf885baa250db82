package controllers

import (
	"net/url"

	"stall/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type itemRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	TargetSales int             `json:"targetSales"`
}

func (h *Controllers) GetItems(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.Session.Items()})
}

func (h *Controllers) CreateItem(c *fiber.Ctx) error {
	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	item, err := h.Session.AddItem(c.UserContext(), models.Item{
		Name:           req.Name,
		UnitPrice:      req.Price,
		TargetQuantity: req.TargetSales,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Item added", "item": item})
}

// UpdateItem changes price and target. The name in the path is the key.
func (h *Controllers) UpdateItem(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item name"})
	}
	var req itemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	item, err := h.Session.EditItem(c.UserContext(), name, req.Price, req.TargetSales)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item updated", "item": item})
}

// DeleteItem removes the item from the catalog only; its ledger rows stay.
func (h *Controllers) DeleteItem(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item name"})
	}

	if err := h.Session.RemoveItem(c.UserContext(), name); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item deleted"})
}
