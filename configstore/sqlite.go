// Package configstore keeps dashboard settings in a local sqlite file, one
// JSON blob per fixed key.
package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"stall/models"
)

const (
	keyConnection = "dataUrls"
	keyItems      = "items"
	keyWindow     = "salesWindow"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

type setting struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

type SQLite struct {
	db *sqlx.DB
}

// Open opens or creates the settings database at path.
func Open(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every stored blob. It reports false when the connection blob
// was never written. A missing window blob loads as the default window.
func (s *SQLite) Load(ctx context.Context) (models.Settings, bool, error) {
	var rows []setting
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Settings{}, false, nil
		}
		return models.Settings{}, false, fmt.Errorf("select settings: %w", err)
	}

	out := models.Settings{Window: models.DefaultWindow()}
	found := false
	for _, r := range rows {
		var target any
		switch r.Key {
		case keyConnection:
			target = &out.Connection
			found = true
		case keyItems:
			target = &out.Items
		case keyWindow:
			target = &out.Window
		default:
			continue
		}
		if err := json.Unmarshal([]byte(r.Value), target); err != nil {
			return models.Settings{}, false, fmt.Errorf("decode setting %s: %w", r.Key, err)
		}
	}
	return out, found, nil
}

// Save writes all blobs in one transaction.
func (s *SQLite) Save(ctx context.Context, settings models.Settings) error {
	items := settings.Items
	if items == nil {
		items = []models.Item{}
	}
	blobs := map[string]any{
		keyConnection: settings.Connection,
		keyItems:      items,
		keyWindow:     settings.Window,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	for key, v := range blobs {
		buf, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode setting %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(buf)); err != nil {
			return fmt.Errorf("upsert setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}
