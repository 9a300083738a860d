// Package postgres runs generated read-only queries against the device
// telemetry database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var ErrNotReadOnly = errors.New("only a single SELECT or WITH statement may run")

type Config struct {
	DSN     string        `envconfig:"DSN" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
	MaxRows int           `split_words:"true" default:"200"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("dsn is required")
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("max rows must be positive, got %d", c.MaxRows)
	}
	return nil
}

// QueryRunner executes each query inside its own read-only transaction and
// returns at most MaxRows rows.
type QueryRunner struct {
	db      *bun.DB
	maxRows int
}

// New opens the pool and pings it so a bad DSN fails at startup.
func New(ctx context.Context, cfg Config) (*QueryRunner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(strings.TrimSpace(cfg.DSN)),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping query database: %w", err)
	}

	return &QueryRunner{db: db, maxRows: cfg.MaxRows}, nil
}

func (r *QueryRunner) Close() error {
	return r.db.Close()
}

func (r *QueryRunner) RunQuery(ctx context.Context, query string) ([]map[string]any, error) {
	stmt, err := CheckReadOnly(query)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rows []map[string]interface{}
	capped := "SELECT * FROM (" + stmt + ") AS result LIMIT ?"
	if err := tx.NewRaw(capped, r.maxRows).Scan(ctx, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("run query: %w", err)
	}

	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
	}
	return rows, nil
}

// CheckReadOnly returns the statement without its trailing semicolon when it
// is a single SELECT or WITH query.
func CheckReadOnly(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, ";"))
	if stmt == "" {
		return "", fmt.Errorf("%w: empty statement", ErrNotReadOnly)
	}
	if strings.Contains(stmt, ";") {
		return "", fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}

	keyword := strings.ToUpper(firstWord(stmt))
	switch keyword {
	case "SELECT", "WITH":
		return stmt, nil
	default:
		return "", fmt.Errorf("%w: got %s", ErrNotReadOnly, keyword)
	}
}

func firstWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '('
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
