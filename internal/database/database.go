// Package database provides helpers for connecting to PostgreSQL and running
// migrations. Two responsibilities:
//  1. Opening a database connection using GORM
//  2. Applying SQL migration files to keep the schema up to date
package database

import (
	"github.com/golang-migrate/migrate/v4"
	// Blank imports register drivers with the migrate library as a side effect.
	// postgres database driver:
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// "file://" source driver for reading .sql files from disk:
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens a connection to the PostgreSQL database using the given DSN
// and returns the GORM handle used for all queries.
//
// TranslateError makes the driver map database errors onto GORM's portable
// sentinels, so a unique-constraint race surfaces as gorm.ErrDuplicatedKey
// and handlers can turn it into a domain-level conflict instead of a 500.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// RunMigrations applies any pending "up" migrations from the migrations/
// directory. The migrate library tracks applied versions in the
// schema_migrations table, so re-running on every boot is safe.
func RunMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}

	// ErrNoChange just means the schema is already current.
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
