package receiver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/casaops/go-smarther/internal/config"
)

// PostgresSink persists events to a PostgreSQL table, one row per event.
// Duplicate deliveries (the vendor cloud retries) are dropped on the primary
// key.
type PostgresSink struct {
	db    *sql.DB
	table string
}

// NewPostgresSink connects to PostgreSQL and creates the event table when it
// does not exist yet.
func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink: DSN is required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = config.DefaultPostgresTable
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres sink: ping database: %w", err)
	}

	s := &PostgresSink{db: db, table: table}
	if err = s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			plant_id TEXT,
			module_id TEXT,
			received_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL
		)
	`, quoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres sink: create event table: %w", err)
	}
	return nil
}

// Store implements Sink.
func (s *PostgresSink) Store(ctx context.Context, event *Event) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, plant_id, module_id, received_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, quoteIdentifier(s.table))
	payload := json.RawMessage(event.Raw)
	if _, err := s.db.ExecContext(ctx, query, event.ID, event.PlantID, event.ModuleID, event.ReceivedAt, payload); err != nil {
		return fmt.Errorf("postgres sink: insert event: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}
