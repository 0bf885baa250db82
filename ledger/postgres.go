package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"stall/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_sheets (
	id         BIGSERIAL PRIMARY KEY,
	sheet_url  TEXT NOT NULL,
	sheet_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (sheet_url, sheet_name)
);
CREATE TABLE IF NOT EXISTS ledger_rows (
	id         BIGSERIAL PRIMARY KEY,
	sheet_id   BIGINT NOT NULL REFERENCES ledger_sheets(id) ON DELETE CASCADE,
	timestamp  TEXT NOT NULL,
	jst        TEXT NOT NULL,
	name       TEXT NOT NULL,
	payment    NUMERIC(12, 2) NOT NULL,
	method     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS ledger_rows_sheet_name_idx ON ledger_rows (sheet_id, name, id DESC);
`

// PostgresStore keeps every sheet as rows of ledger_rows. Its header is
// always Columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) EnsureSheet(ctx context.Context, sheetURL, sheetName string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_sheets (sheet_url, sheet_name) VALUES ($1, $2)
		 ON CONFLICT (sheet_url, sheet_name) DO NOTHING`,
		sheetURL, sheetName,
	)
	if err != nil {
		return fmt.Errorf("ensure sheet %s: %w", sheetName, err)
	}
	return nil
}

func (s *PostgresStore) sheetID(ctx context.Context, sheetURL, sheetName string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM ledger_sheets WHERE sheet_url = $1 AND sheet_name = $2`,
		sheetURL, sheetName,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSheetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find sheet %s: %w", sheetName, err)
	}
	return id, nil
}

func (s *PostgresStore) HasSheet(ctx context.Context, sheetURL, sheetName string) (bool, error) {
	_, err := s.sheetID(ctx, sheetURL, sheetName)
	if errors.Is(err, ErrSheetNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *PostgresStore) Rows(ctx context.Context, sheetURL, sheetName string) ([]models.LedgerRow, error) {
	id, err := s.sheetID(ctx, sheetURL, sheetName)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT timestamp, jst, name, payment::text, method FROM ledger_rows WHERE sheet_id = $1 ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []models.LedgerRow{}
	for rows.Next() {
		var timestamp, jst, name, payment, method string
		if err := rows.Scan(&timestamp, &jst, &name, &payment, &method); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, models.LedgerRow{
			"timestamp": timestamp,
			"jst":       jst,
			"name":      name,
			"payment":   json.Number(payment),
			"method":    method,
		})
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, sheetURL, sheetName string, rec models.LedgerRecord) error {
	id, err := s.sheetID(ctx, sheetURL, sheetName)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO ledger_rows (sheet_id, timestamp, jst, name, payment, method)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
		id, rec.Timestamp, rec.JST, rec.Name, rec.Payment.String(), rec.Method,
	)
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteLastMatching(ctx context.Context, sheetURL, sheetName, column, value string) error {
	if column != "name" {
		return ErrColumnNotFound
	}
	id, err := s.sheetID(ctx, sheetURL, sheetName)
	if err != nil {
		return err
	}

	commandTag, err := s.pool.Exec(ctx,
		`DELETE FROM ledger_rows WHERE id = (
			SELECT id FROM ledger_rows WHERE sheet_id = $1 AND name = $2 ORDER BY id DESC LIMIT 1
		)`,
		id, value,
	)
	if err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrNoMatch
	}
	return nil
}
