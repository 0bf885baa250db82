package controllers

import (
	"errors"
	"fmt"
	"log/slog"

	"stall/gateway"
	"stall/session"

	"github.com/gofiber/fiber/v2"
)

const configErrorMessage = "configure the spreadsheet and script settings first"

type Controllers struct {
	Gateway *gateway.Client
	Session *session.Manager
	Logger  *slog.Logger
}

// fail writes err as {"error": ...} with the status its kind maps to.
func (h *Controllers) fail(c *fiber.Ctx, err error) error {
	var (
		upstream  *gateway.UpstreamError
		transport *gateway.TransportError
		invalid   *gateway.ValidationError
	)
	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": configErrorMessage})
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": invalid.Message})
	case errors.Is(err, session.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, session.ErrDuplicateItem):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &upstream):
		msg := upstream.Message
		if msg == "" {
			msg = "ledger gateway error"
		}
		if upstream.Status != 0 {
			msg = fmt.Sprintf("ledger gateway error: %d - %s", upstream.Status, msg)
		}
		return c.Status(upstream.HTTPStatus()).JSON(fiber.Map{"error": msg})
	case errors.As(err, &transport):
		h.Logger.Error("ledger gateway call failed", "op", transport.Op, "error", transport.Detail())
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": transport.Error()})
	default:
		h.Logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
