package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wonny/dartlens/backend/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationStatus reports the schema version after a migration run
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	Applied bool `json:"applied"`
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate, log *logger.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.WithError(srcErr).Warn("Failed to close migration source")
	}
	if dbErr != nil {
		log.WithError(dbErr).Warn("Failed to close migration database")
	}
}

// Migrate applies every pending embedded migration.
// It is idempotent: an up-to-date schema is not an error.
func (db *DB) Migrate(log *logger.Logger) (*MigrationStatus, error) {
	m, err := db.migrator()
	if err != nil {
		return nil, err
	}
	defer closeMigrator(m, log)

	status := &MigrationStatus{Applied: true}
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No migrations to apply (database up-to-date)")
		status.Applied = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to read migration version: %w", err)
	}
	status.Version = version
	status.Dirty = dirty

	if status.Applied {
		log.WithField("version", version).Info("Applied migrations successfully")
	}
	return status, nil
}

// MigrateDown rolls back the given number of migrations
func (db *DB) MigrateDown(log *logger.Logger, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}

	m, err := db.migrator()
	if err != nil {
		return err
	}
	defer closeMigrator(m, log)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	log.WithField("steps", steps).Info("Rolled back migrations")
	return nil
}
