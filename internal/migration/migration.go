package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	earningsrepo "github.com/smallbiznis/royalty/internal/earnings/repository"
	withdrawaldomain "github.com/smallbiznis/royalty/internal/withdrawal/domain"
	"gorm.io/gorm"
)

const versionTable = "royalty_schema_migrations"

var ErrDirtySchema = errors.New("schema is dirty, fix the failed migration manually")

// Result describes the schema after migrating.
type Result struct {
	Version uint
	Applied bool
}

// RunMigrations applies the embedded postgres migrations. The shared *sql.DB
// is left open.
func RunMigrations(db *sql.DB) (Result, error) {
	if db == nil {
		return Result{}, errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return Result{}, err
	}

	if _, dirty, err := migrator.Version(); err == nil && dirty {
		return Result{}, ErrDirtySchema
	}

	res := Result{Applied: true}
	if err := migrator.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return Result{}, fmt.Errorf("apply migrations: %w", err)
		}
		res.Applied = false
	}

	version, _, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Result{}, fmt.Errorf("read schema version: %w", err)
	}
	res.Version = version
	return res, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: versionTable})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// Models lists every table the service owns, in creation order.
func Models() []any {
	return append(earningsrepo.Models(), &withdrawaldomain.Withdrawal{})
}

// AutoMigrate creates the same tables through gorm for dialects without SQL
// migrations (sqlite, mysql).
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
