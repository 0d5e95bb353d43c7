package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/schemas"
)

// MigrationDirection selects whether Migrate applies or reverts migrations.
type MigrationDirection string

const (
	MigrateUp   MigrationDirection = "up"
	MigrateDown MigrationDirection = "down"
)

// Migrate applies the embedded migrations for the connection's dialect.
// Steps limits how many migrations run; zero means all of them.
func Migrate(db *sqlx.DB, direction MigrationDirection, steps int) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	switch {
	case steps > 0 && direction == MigrateDown:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case direction == MigrateDown:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate(%s) > %w", direction, err)
	}
	return nil
}

// MigrationVersion returns the current schema version and whether the last migration failed midway.
func MigrationVersion(db *sqlx.DB) (uint, bool, error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate.Version() > %w", err)
	}
	return version, dirty, nil
}

func newMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	dir, driver, err := migrationDriver(db)
	if err != nil {
		return nil, err
	}

	sub, err := fs.Sub(schemas.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("fs.Sub(migrations) > %w", err)
	}
	source, err := iofs.New(sub, dir)
	if err != nil {
		return nil, fmt.Errorf("iofs.New(%s) > %w", dir, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dir, driver)
	if err != nil {
		return nil, fmt.Errorf("migrate.NewWithInstance() > %w", err)
	}
	return m, nil
}

func migrationDriver(db *sqlx.DB) (string, migratedb.Driver, error) {
	switch db.DriverName() {
	case "mysql":
		driver, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
		if err != nil {
			return "", nil, fmt.Errorf("mysql.WithInstance() > %w", err)
		}
		return "mysql", driver, nil
	case pgxDriverName:
		driver, err := migratepgx.WithInstance(db.DB, &migratepgx.Config{})
		if err != nil {
			return "", nil, fmt.Errorf("pgx.WithInstance() > %w", err)
		}
		return "postgres", driver, nil
	default:
		return "", nil, fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
}
