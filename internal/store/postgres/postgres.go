// Package postgres implements the store interfaces using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sponte/internal/store"

	"github.com/lib/pq"
)

// Store provides PostgreSQL-backed implementations of all repositories.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the pool for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// BeginTx starts a transaction.
func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) getExecutor(tx store.DBTransaction) store.DBTransaction {
	if tx != nil {
		return tx
	}
	return s.db
}

// inTx runs fn on tx when the caller already holds one, otherwise inside a
// transaction of its own that is committed when fn succeeds.
func inTx[T any](ctx context.Context, s *Store, tx store.DBTransaction, fn func(store.DBTransaction) (T, error)) (T, error) {
	if tx != nil {
		return fn(tx)
	}

	var zero T
	own, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	defer own.Rollback()

	v, err := fn(own)
	if err != nil {
		return zero, err
	}
	if err := own.Commit(); err != nil {
		return zero, err
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}

// encodeJSON stores nil maps as an empty object. The value is passed as text
// because lib/pq sends []byte parameters as bytea.
func encodeJSON(v map[string]any) (any, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// encodeNullableJSON stores nil maps as SQL NULL.
func encodeNullableJSON(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return encodeJSON(v)
}

func decodeJSON(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode json column: %w", err)
	}
	return m, nil
}

// where accumulates positional filter clauses.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders.
func (w *where) page(limit, offset int) string {
	if limit <= 0 {
		limit = 50
	}
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
