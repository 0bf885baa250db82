package routes

import (
	"stall/controllers"
	"stall/ledger"
	"stall/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *controllers.Controllers, dashboardToken string, ledgerHandler *ledger.Handler) {
	api := app.Group("/api", middleware.SharedToken(dashboardToken))

	// proxy to the ledger gateway
	api.Get("/payments", h.GetPayments)
	api.Post("/payments", h.CreatePayment)
	api.Delete("/payments", h.DeletePayment)

	// dashboard
	api.Get("/dashboard", h.GetDashboard)
	api.Post("/sales", h.CreateSale)
	api.Get("/sales/export.csv", h.ExportSales)
	api.Delete("/sales/:name", h.UndoSale)
	api.Post("/sync", h.Sync)

	// items
	api.Get("/items", h.GetItems)
	api.Post("/items", h.CreateItem)
	api.Put("/items/:name", h.UpdateItem)
	api.Delete("/items/:name", h.DeleteItem)

	// settings
	api.Get("/settings", h.GetSettings)
	api.Put("/settings", h.UpdateSettings)
	api.Put("/window", h.UpdateWindow)

	if ledgerHandler != nil {
		ledgerHandler.Register(app, "/ledger/exec")
	}
}
