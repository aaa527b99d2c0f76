// Package postgres implements the service's relational persistence: the
// append-only mqtt_logs event log, the device/ownership/token queries behind
// recipient resolution, and the registration paths used by the HTTP API.
package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements feeder.EventLog and feeder.DeviceTokenFetcher on top of a
// PostgreSQL database, plus the account/registration queries the HTTP API
// needs.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Compile-time interface checks.
var (
	_ feeder.EventLog           = (*Store)(nil)
	_ feeder.DeviceTokenFetcher = (*Store)(nil)
)

// New opens the database at databaseURL, configures the pool, and applies
// pending migrations.
func New(databaseURL string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().Msg("Database connected and migrated.")
	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing connection without running migrations. Used by
// tests.
func NewWithDB(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
