package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"stall/session"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	AllowOrigins string `env:"ALLOW_ORIGINS"`
	Timezone     string `env:"STALL_TIMEZONE" envDefault:"Asia/Tokyo"`
	ConfigDBPath string `env:"CONFIG_DB_PATH" envDefault:"stall.db"`

	DashboardToken string        `env:"DASHBOARD_TOKEN"`
	UndoPolicy     string        `env:"UNDO_POLICY" envDefault:"tail"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"0s"`

	LedgerSecret    string `env:"LEDGER_SECRET"`
	DatabaseURL     string `env:"DATABASE_URL"`
	LedgerSheetURL  string `env:"LEDGER_SHEET_URL"`
	LedgerSheetName string `env:"LEDGER_SHEET_NAME" envDefault:"シート1"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	location *time.Location
	undo     session.UndoPolicy
}

// default origins for local development
const devOrigins = "http://127.0.0.1:5500,http://localhost:5500,http://localhost:3000"

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if strings.TrimSpace(cfg.AllowOrigins) == "" {
		cfg.AllowOrigins = devOrigins
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port number %d is out of range: must be between 1 and 65535", cfg.Port)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	undo, err := session.ParseUndoPolicy(cfg.UndoPolicy)
	if err != nil {
		return Config{}, err
	}
	cfg.undo = undo

	if cfg.GatewayTimeout < 0 {
		return Config{}, fmt.Errorf("gateway timeout must not be negative")
	}
	return cfg, nil
}

// Location is the parsed STALL_TIMEZONE.
func (c Config) Location() *time.Location { return c.location }

func (c Config) Undo() session.UndoPolicy { return c.undo }

// LedgerEnabled reports whether the built-in ledger gateway should be served.
func (c Config) LedgerEnabled() bool {
	return c.LedgerSecret != ""
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
