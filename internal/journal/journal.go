// Package journal persists schema evolution attempts in a local SQLite file.
//
// Every call to Evolve or Ingest, successful or not, lands here as one row so
// `schemashift history` can show what changed, when, and what failed.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/leapstack-labs/schemashift/pkg/evolve"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultLimit caps List when the caller passes a non-positive limit.
const DefaultLimit = 50

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// StatementRecord is a journaled DDL statement.
type StatementRecord struct {
	Kind   string `json:"kind"`
	Column string `json:"column"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	SQL    string `json:"sql"`
}

// Entry is one journaled attempt.
type Entry struct {
	ID         string            `json:"id"`
	Table      string            `json:"table"`
	Dialect    string            `json:"dialect"`
	Status     evolve.Status     `json:"status"`
	Statements []StatementRecord `json:"statements"`
	Records    int               `json:"records"`
	Inserted   int64             `json:"inserted"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
}

// Store is an evolve.Journal backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ evolve.Journal = (*Store)(nil)

// Open opens (creating if needed) the journal at path and runs migrations.
// Use ":memory:" for a throwaway journal.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite allows one writer; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("journal opened", slog.String("path", path))
	return s, nil
}

// Close closes the journal database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the file the journal was opened from.
func (s *Store) Path() string { return s.path }

// Record stores one attempt.
func (s *Store) Record(ctx context.Context, a evolve.Attempt) error {
	if s.db == nil {
		return errNotOpen
	}

	stmts := make([]StatementRecord, 0, len(a.Statements))
	for _, st := range a.Statements {
		stmts = append(stmts, StatementRecord{
			Kind:   string(st.Kind),
			Column: st.Column,
			From:   st.From.Name(),
			To:     st.To.Name(),
			SQL:    st.SQL,
		})
	}
	payload, err := json.Marshal(stmts)
	if err != nil {
		return fmt.Errorf("failed to encode statements: %w", err)
	}

	var errMsg sql.NullString
	if a.Err != nil {
		errMsg = sql.NullString{String: a.Err.Error(), Valid: true}
	}
	startedAt := a.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, table_name, dialect, status, statements, records, inserted, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), a.Table.String(), a.Dialect, string(a.Status), string(payload),
		a.Records, a.Inserted, errMsg, startedAt.UTC().Format(timeLayout), a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Filter narrows List.
type Filter struct {
	// Table matches "schema.table" exactly, or the bare table name in any schema.
	Table  string
	Status evolve.Status
	Limit  int
}

// List returns journaled attempts, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	var (
		where []string
		args  []any
	)
	if f.Table != "" {
		if strings.Contains(f.Table, ".") {
			where = append(where, "table_name = ?")
			args = append(args, f.Table)
		} else {
			where = append(where, "(table_name = ? OR table_name LIKE ? ESCAPE '\\')")
			args = append(args, f.Table, "%."+escapeLike(f.Table))
		}
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, table_name, dialect, status, statements, records, inserted, error, started_at, duration_ms FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			status     string
			payload    string
			errMsg     sql.NullString
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.Table, &e.Dialect, &status, &payload, &e.Records, &e.Inserted, &errMsg, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Statements); err != nil {
			return nil, fmt.Errorf("attempt %s: failed to decode statements: %w", e.ID, err)
		}
		ts, err := time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("attempt %s: bad started_at %q: %w", e.ID, startedAt, err)
		}
		e.Status = evolve.Status(status)
		e.Error = errMsg.String
		e.StartedAt = ts
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return entries, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
