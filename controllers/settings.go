package controllers

import (
	"stall/models"

	"github.com/gofiber/fiber/v2"
)

type settingsResponse struct {
	SheetURL   string             `json:"sheetUrl"`
	SheetName  string             `json:"sheetName"`
	ScriptURL  string             `json:"scriptUrl"`
	HasToken   bool               `json:"hasToken"`
	Configured bool               `json:"configured"`
	Window     models.SalesWindow `json:"salesWindow"`
}

// GetSettings returns the connection without the script token.
func (h *Controllers) GetSettings(c *fiber.Ctx) error {
	s := h.Session.Settings()
	return c.JSON(settingsResponse{
		SheetURL:   s.Connection.SheetURL,
		SheetName:  s.Connection.SheetName,
		ScriptURL:  s.Connection.ScriptURL,
		HasToken:   s.Connection.ScriptToken != "",
		Configured: h.Session.Configured(),
		Window:     s.Window,
	})
}

// UpdateSettings replaces the connection settings. An empty token keeps the
// stored one.
func (h *Controllers) UpdateSettings(c *fiber.Ctx) error {
	var conn models.Connection
	if err := c.BodyParser(&conn); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	if conn.ScriptToken == "" {
		conn.ScriptToken = h.Session.Settings().Connection.ScriptToken
	}

	if err := h.Session.UpdateConnection(c.UserContext(), conn); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Settings saved", "configured": h.Session.Configured()})
}

func (h *Controllers) UpdateWindow(c *fiber.Ctx) error {
	var w models.SalesWindow
	if err := c.BodyParser(&w); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	if err := h.Session.UpdateWindow(c.UserContext(), w); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sales window saved", "salesWindow": w})
}
