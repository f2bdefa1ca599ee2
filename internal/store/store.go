package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice-service/internal/apperr"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the Postgres implementation of Transactor
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside one database transaction. The tenant's advisory lock
// is held until commit or rollback, so units of work for one tenant never
// interleave; row locks on lots, customers and counters are taken as rows are read.
func (s *Store) WithTx(ctx context.Context, tenantID string, fn func(tx Tx) error) error {
	if tenantID == "" {
		return apperr.Validation("tenant id is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", tenantID); err != nil {
		return fmt.Errorf("failed to lock tenant: %w", err)
	}

	if err := fn(&pgTx{tx: tx, tenantID: tenantID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx       *sqlx.Tx
	tenantID string
}

func (t *pgTx) TenantID() string {
	return t.tenantID
}

// getOne runs a single-row query and converts sql.ErrNoRows into NotFound.
func (t *pgTx) getOne(ctx context.Context, dest interface{}, entity string, id int64, query string, args ...interface{}) error {
	err := t.tx.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
	}
	return nil
}

// execOne runs a statement that must touch exactly one row.
func (t *pgTx) execOne(ctx context.Context, entity string, id int64, query string, args ...interface{}) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write %s %d: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}
