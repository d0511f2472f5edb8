package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Supported database/sql driver names.
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS vendors (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	contact_email TEXT,
	phone_number  TEXT,
	address       TEXT,
	date_created  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ErrNotFound is returned by Get when no row has the requested id.
var ErrNotFound = errors.New("vendor not found")

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// VendorStore persists vendors in a single relational table.
type VendorStore struct {
	db *sql.DB
	q  querier
}

// New wraps an already opened pool.
func New(db *sql.DB) *VendorStore {
	return &VendorStore{db: db, q: db}
}

// Open opens and pings a pool for dsn using the named driver.
func Open(ctx context.Context, driver, dsn string) (*VendorStore, error) {
	if driver == "" {
		driver = DriverPgx
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return New(db), nil
}

// EnsureSchema creates the vendors table when it does not exist yet.
func (s *VendorStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create vendors table")
	}
	return nil
}

// Truncate removes every vendor and restarts the id sequence.
func (s *VendorStore) Truncate(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, `TRUNCATE vendors RESTART IDENTITY`); err != nil {
		return errors.Wrap(err, "truncate vendors")
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *VendorStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *VendorStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SQLState returns the SQLSTATE code carried by err, or "" when err did not
// come from the server.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
