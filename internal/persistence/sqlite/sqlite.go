// Package sqlite implements the persistence repositories on SQLite through
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"strings"
)

// Storage bundles every repository over one connection pool.
type Storage struct {
	*EmployeeRepository
	*JobRepository
	*PhotoRepository
	*BookingRepository
	*OutboxRepository

	pool *ConnectionPool
}

// Open connects to dsn. A bare file path is accepted and gets foreign keys
// and a busy timeout enabled.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(Config{DSN: withDefaultPragmas(dsn)})
}

// OpenWithConfig connects using config as given.
func OpenWithConfig(config Config) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return NewStorage(pool), nil
}

// NewStorage builds the repositories over pool.
func NewStorage(pool *ConnectionPool) *Storage {
	return &Storage{
		EmployeeRepository: NewEmployeeRepository(pool),
		JobRepository:      NewJobRepository(pool),
		PhotoRepository:    NewPhotoRepository(pool),
		BookingRepository:  NewBookingRepository(pool),
		OutboxRepository:   NewOutboxRepository(pool),
		pool:               pool,
	}
}

// Pool exposes the underlying connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(context.Context) error {
	return Migrate(s.pool.DB())
}

// Ping checks the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

func withDefaultPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = "file:" + dsn
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
