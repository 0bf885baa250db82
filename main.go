package main

import (
	"context"
	"log"
	"os"

	"stall/condb"
	"stall/config"
	"stall/configstore"
	"stall/controllers"
	"stall/gateway"
	"stall/ledger"
	"stall/logging"
	"stall/routes"
	"stall/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	store, err := configstore.Open(cfg.ConfigDBPath)
	if err != nil {
		log.Fatalf("settings store: %v", err)
	}
	defer store.Close()

	client := gateway.NewClient(cfg.GatewayTimeout, cfg.Location(), logger)
	manager := session.NewManager(client, store, session.Options{
		Location: cfg.Location(),
		Undo:     cfg.Undo(),
		Logger:   logger,
	})
	if err := manager.Open(ctx); err != nil {
		logger.Warn("session opened without ledger data", "error", err)
	}

	var ledgerHandler *ledger.Handler
	if cfg.LedgerEnabled() {
		ledgerStore, closeLedger, err := openLedger(ctx, cfg)
		if err != nil {
			log.Fatalf("ledger: %v", err)
		}
		defer closeLedger()
		ledgerHandler = ledger.NewHandler(ledgerStore, cfg.LedgerSecret, logger)
		logger.Info("built-in ledger gateway enabled", "path", "/ledger/exec", "postgres", cfg.DatabaseURL != "")
	}

	app := fiber.New()

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logging.Middleware(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins, // comma separated
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Static("/static", "./static")

	routes.RegisterRoutes(app, &controllers.Controllers{
		Gateway: client,
		Session: manager,
		Logger:  logger,
	}, cfg.DashboardToken, ledgerHandler)

	logger.Info("listening", "addr", cfg.Addr(), "timezone", cfg.Timezone, "undo_policy", cfg.Undo())
	log.Fatal(app.Listen(cfg.Addr()))
}

type sheetStore interface {
	ledger.Store
	EnsureSheet(ctx context.Context, sheetURL, sheetName string) error
}

// openLedger picks PostgreSQL when DATABASE_URL is set and memory otherwise.
func openLedger(ctx context.Context, cfg config.Config) (sheetStore, func(), error) {
	var (
		store   sheetStore
		closeFn = func() {}
	)
	if cfg.DatabaseURL != "" {
		pool, err := condb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := ledger.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store, closeFn = pg, pool.Close
	} else {
		store = ledger.NewMemoryStore()
	}

	if cfg.LedgerSheetURL != "" {
		if err := store.EnsureSheet(ctx, cfg.LedgerSheetURL, cfg.LedgerSheetName); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return store, closeFn, nil
}
