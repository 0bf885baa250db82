package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"stall/models"
	"stall/utils"
)

// Handler answers like a spreadsheet script: HTTP 200 always, with the
// outcome in the body's success and code fields.
type Handler struct {
	store  Store
	secret string
	logger *slog.Logger
}

func NewHandler(store Store, secret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, secret: secret, logger: logger}
}

type postBody struct {
	models.LedgerRecord
	SheetURL  string `json:"sheetUrl"`
	SheetName string `json:"sheetName"`
	Token     string `json:"token"`
}

func reply(c *fiber.Ctx, success bool, code int, message string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": success,
		"message": message,
		"code":    code,
	})
}

// List handles GET: every row below the header as an object.
func (h *Handler) List(c *fiber.Ctx) error {
	sheetURL, sheetName := c.Query("sheetUrl"), c.Query("sheetName")
	if sheetURL == "" || sheetName == "" {
		return reply(c, false, fiber.StatusBadRequest, "invalid request")
	}

	rows, err := h.store.Rows(c.UserContext(), sheetURL, sheetName)
	if errors.Is(err, ErrSheetNotFound) {
		return reply(c, false, fiber.StatusNotFound, "spreadsheet not found")
	}
	if err != nil {
		h.logger.Error("list ledger rows", "sheet", sheetName, "error", err)
		return reply(c, false, fiber.StatusInternalServerError, "failed to read the sheet")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusOK,
		"data":    rows,
	})
}

// Post handles POST with ?method=post (or none) to append and ?method=delete
// to remove the newest row of an item.
func (h *Handler) Post(c *fiber.Ctx) error {
	var body postBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return reply(c, false, fiber.StatusBadRequest, "invalid request")
	}

	if h.secret == "" || !utils.TokensEqual(body.Token, h.secret) {
		return reply(c, false, fiber.StatusUnauthorized, "invalid secret key")
	}
	if body.SheetURL == "" || body.SheetName == "" {
		return reply(c, false, fiber.StatusBadRequest, "invalid request")
	}

	ctx := c.UserContext()
	ok, err := h.store.HasSheet(ctx, body.SheetURL, body.SheetName)
	if err != nil {
		h.logger.Error("look up sheet", "sheet", body.SheetName, "error", err)
		return reply(c, false, fiber.StatusInternalServerError, "failed to open the sheet")
	}
	if !ok {
		return reply(c, false, fiber.StatusNotFound, "spreadsheet not found")
	}

	switch c.Query("method") {
	case "", "post":
		return h.append(c, body)
	case "delete":
		return h.delete(c, body)
	default:
		return reply(c, false, fiber.StatusBadRequest, "invalid request")
	}
}

func (h *Handler) append(c *fiber.Ctx, body postBody) error {
	if len(body.LedgerRecord.Missing()) > 0 {
		return reply(c, false, fiber.StatusBadRequest, "invalid request")
	}

	err := h.store.Append(c.UserContext(), body.SheetURL, body.SheetName, body.LedgerRecord)
	if errors.Is(err, ErrSheetNotFound) {
		return reply(c, false, fiber.StatusNotFound, "spreadsheet not found")
	}
	if err != nil {
		h.logger.Error("append ledger row", "sheet", body.SheetName, "error", err)
		return reply(c, false, fiber.StatusInternalServerError, "failed to append the sale")
	}

	h.logger.Info("ledger row appended", "sheet", body.SheetName, "name", body.Name)
	return reply(c, true, fiber.StatusCreated, "sale added")
}

func (h *Handler) delete(c *fiber.Ctx, body postBody) error {
	if body.Name == "" {
		return reply(c, false, fiber.StatusBadRequest, "invalid request")
	}

	err := h.store.DeleteLastMatching(c.UserContext(), body.SheetURL, body.SheetName, "name", body.Name)
	switch {
	case errors.Is(err, ErrColumnNotFound):
		return reply(c, false, fiber.StatusInternalServerError, "name column not found")
	case errors.Is(err, ErrNoMatch):
		return reply(c, false, fiber.StatusNotFound, fmt.Sprintf("no data found for name (%s)", body.Name))
	case errors.Is(err, ErrSheetNotFound):
		return reply(c, false, fiber.StatusNotFound, "spreadsheet not found")
	case err != nil:
		h.logger.Error("delete ledger row", "sheet", body.SheetName, "error", err)
		return reply(c, false, fiber.StatusInternalServerError, "failed to delete the sale")
	}

	h.logger.Info("ledger row deleted", "sheet", body.SheetName, "name", body.Name)
	return reply(c, true, fiber.StatusOK, fmt.Sprintf("deleted the latest row of %s", body.Name))
}

// Register mounts the handler at path.
func (h *Handler) Register(router fiber.Router, path string) {
	router.Get(path, h.List)
	router.Post(path, h.Post)
}
