package database

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"storefront/internal/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const versionTimeFormat = "20060102150405"

// Models lists every table managed by the application, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
		&models.Notification{},
		&models.WishlistItem{},
		&models.CartItem{},
	}
}

func newMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// MigrateUp applies all pending migrations. SQLite databases are migrated from the models.
func MigrateUp(db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		if err := db.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		return nil
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(db *gorm.DB, steps int) error {
	if db.Dialector.Name() == "sqlite" {
		tables := Models()
		for i := len(tables) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(tables[i]); err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}
		return nil
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate down: %w", err)
	}
	return nil
}

// CreateMigration writes an empty up/down pair into dir and returns their paths.
func CreateMigration(dir, name string, now time.Time) (string, string, error) {
	version := now.UTC().Format(versionTimeFormat)
	up := filepath.Join(dir, fmt.Sprintf("%s_%s.up.sql", version, name))
	down := filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", version, name))

	if err := os.WriteFile(up, []byte{}, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", up, err)
	}
	if err := os.WriteFile(down, []byte{}, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", down, err)
	}
	return up, down, nil
}
