package state

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteConfig struct {
	Path        string        `envconfig:"PATH" split_words:"true" default:"chative.db"`
	BusyTimeout time.Duration `envconfig:"BUSY_TIMEOUT" split_words:"true" default:"5s"`
}

// SQLiteStore persists histories in a local SQLite file. Turns are numbered
// per session; the (session_id, seq) uniqueness keeps appends ordered.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", contractx.ErrConfiguration)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer connection serialises appends across sessions.
	db.SetMaxOpenConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) runMigrations() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
		log.Debug().Str("migration", e.Name()).Msg("applied sqlite migration")
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turns ...contractx.Turn) error {
	if err := checkAppend(sessionID, turns); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM session_turns WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("read next seq: %w", err)
	}

	for _, t := range turns {
		next++
		failed := 0
		if t.Failed {
			failed = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_turns
				(session_id, seq, turn_id, role, content, destination, raw, failed, correlation_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, next, t.ID, string(t.Role), t.Content, string(t.Destination), t.Raw, failed,
			t.CorrelationID, t.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert turn seq=%d: %w", next, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, sessionID string) ([]contractx.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, role, content, destination, raw, failed, correlation_id, created_at
		FROM session_turns
		WHERE session_id = ?
		ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []contractx.Turn{}
	for rows.Next() {
		var (
			t           contractx.Turn
			role, dest  string
			failed      int
			createdAtTS string
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &dest, &t.Raw, &failed, &t.CorrelationID, &createdAtTS); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = contractx.Role(role)
		t.Destination = contractx.Destination(dest)
		t.Failed = failed != 0
		if ts, err := time.Parse(time.RFC3339Nano, createdAtTS); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}
