package infra

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	purchaserepo "github.com/amirasaad/tripledger/infra/repository/purchase"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunMigrations applies the embedded SQL migrations. SQLite databases, used
// by tests and local tooling, are brought up to date with AutoMigrate.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	if db.Dialector.Name() != "postgres" {
		logger.Info("Auto-migrating schema", "dialect", db.Dialector.Name())
		return AutoMigrate(db)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// A dedicated connection: closing the migrator then leaves the pool open.
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("migrate conn: %w", err)
	}
	driver, err := migratepostgres.WithConnection(context.Background(), conn, &migratepostgres.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("Database migrated", "version", version, "dirty", dirty)
	return nil
}

// AutoMigrate creates or updates the schema from the gorm models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&purchaserepo.Purchase{})
}
