package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	historyTable = "processed_scripts"
)

var migrations = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS processed_scripts (
			url          TEXT PRIMARY KEY,
			title        TEXT        NOT NULL,
			origin       TEXT        NOT NULL DEFAULT '',
			script_title TEXT        NOT NULL DEFAULT '',
			characters   INTEGER     NOT NULL DEFAULT 0,
			status       TEXT        NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_scripts_status ON processed_scripts(status)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS processed_scripts (
			url          TEXT PRIMARY KEY,
			title        TEXT    NOT NULL,
			origin       TEXT    NOT NULL DEFAULT '',
			script_title TEXT    NOT NULL DEFAULT '',
			characters   INTEGER NOT NULL DEFAULT 0,
			status       TEXT    NOT NULL,
			processed_at TEXT    NOT NULL,
			updated_at   TEXT    NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_scripts_status ON processed_scripts(status)`,
	},
}

// SQLRepository persists processed scripts into Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

var _ ports.HistoryRepository = (*SQLRepository)(nil)

// Open connects to the configured database and applies migrations.
func Open(ctx context.Context, cfg config.StorageConfig) (*SQLRepository, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo, err := NewSQLRepository(db, cfg.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires an existing sql.DB; driver selects the placeholder style.
func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	return &SQLRepository{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

// Migrate creates the history table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range migrations[r.driver] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// AlreadyProcessed returns the subset of urls that already have a script.
func (r *SQLRepository) AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(urls) == 0 {
		return result, nil
	}

	query, args, err := r.builder.
		Select("url").
		From(historyTable).
		Where(sq.Eq{"url": urls, "status": string(domain.StatusScripted)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveProcessed upserts the history row keyed by URL.
func (r *SQLRepository) SaveProcessed(ctx context.Context, item domain.ProcessedScript) error {
	if r.db == nil {
		return nil
	}
	if item.URL == "" {
		return fmt.Errorf("save processed: empty url")
	}
	processedAt := item.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	query, args, err := r.builder.
		Insert(historyTable).
		Columns("url", "title", "origin", "script_title", "characters", "status", "processed_at").
		Values(item.URL, item.Title, string(item.Origin), item.ScriptTitle, item.Characters, string(item.Status), r.timeValue(processedAt)).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			script_title = CASE WHEN excluded.script_title <> '' THEN excluded.script_title ELSE ` + historyTable + `.script_title END,
			characters = CASE WHEN excluded.characters > 0 THEN excluded.characters ELSE ` + historyTable + `.characters END,
			status = excluded.status,
			processed_at = excluded.processed_at,
			updated_at = ` + r.nowExpr()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}
	return nil
}

// Status reports the stored status of url, or "" when absent.
func (r *SQLRepository) Status(ctx context.Context, url string) (domain.ProcessingStatus, error) {
	query, args, err := r.builder.
		Select("status").
		From(historyTable).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var status string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query status: %w", err)
	}
	return domain.ProcessingStatus(status), nil
}

func (r *SQLRepository) timeValue(t time.Time) any {
	if r.driver == DriverSQLite {
		return t.UTC().Format(time.RFC3339)
	}
	return t
}

func (r *SQLRepository) nowExpr() string {
	if r.driver == DriverSQLite {
		return "datetime('now')"
	}
	return "NOW()"
}
