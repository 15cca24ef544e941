// Package sqlite persists manuals, files and tags in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// pragmas apply to every pooled connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides SQLite-backed persistence for the shelf metadata.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu            sync.RWMutex
	emitter       store.EventEmitter
	searchIndexer store.SearchIndexer
}

// Open creates a store at path. It configures WAL mode and runs the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := New(db, logger)
	if err := s.ensureSyncState(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database whose schema is in place.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:            db,
		logger:        logger,
		emitter:       store.NoopEmitter{},
		searchIndexer: store.NoopSearchIndexer{},
	}
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SetEmitter sets the receiver of committed changes.
func (s *Store) SetEmitter(e store.EventEmitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitter = e
}

// SetSearchIndexer sets the indexer kept in step with manual changes.
func (s *Store) SetSearchIndexer(indexer store.SearchIndexer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchIndexer = indexer
}

func (s *Store) emit(changes ...store.Change) {
	s.mu.RLock()
	e := s.emitter
	s.mu.RUnlock()
	for _, c := range changes {
		e.Emit(c)
	}
}

// reindex refreshes the search documents of the given manuals.
// Index failures are logged; the committed data stays authoritative.
func (s *Store) reindex(ctx context.Context, manualIDs ...string) {
	s.mu.RLock()
	indexer := s.searchIndexer
	s.mu.RUnlock()

	for _, manualID := range manualIDs {
		m, err := s.GetManual(ctx, manualID)
		if err != nil {
			s.logger.Warn("load manual for indexing failed", "manual_id", manualID, "error", err)
			continue
		}
		if err := indexer.IndexManual(ctx, m); err != nil {
			s.logger.Warn("index manual failed", "manual_id", manualID, "error", err)
		}
	}
}

func (s *Store) unindex(ctx context.Context, manualID string) {
	s.mu.RLock()
	indexer := s.searchIndexer
	s.mu.RUnlock()

	if err := indexer.DeleteManual(ctx, manualID); err != nil {
		s.logger.Warn("remove manual from index failed", "manual_id", manualID, "error", err)
	}
}

// withTx runs fn in a transaction and rotates the change token before
// committing. It returns the new token and its timestamp.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx, now time.Time) error) (string, time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := fn(tx, now); err != nil {
		return "", time.Time{}, err
	}

	token, err := bumpChangeToken(ctx, tx, now)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return "", time.Time{}, fmt.Errorf("commit: %w", err)
	}
	return token, now, nil
}

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns a sql.NullString, NULL for the empty string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
