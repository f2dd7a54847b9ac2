package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate runs command ("up", "down" or "version") against db using the
// migration files in dir. It returns a short human readable status.
func Migrate(db *sql.DB, dir, command string) (string, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return "", fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return "", fmt.Errorf("failed to initialize migrate: %w", err)
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		version, dirty, verErr := m.Version()
		if errors.Is(verErr, migrate.ErrNilVersion) {
			return "no migrations have been applied yet", nil
		}
		if verErr != nil {
			return "", fmt.Errorf("failed to get migration version: %w", verErr)
		}
		return fmt.Sprintf("current migration version: %d (dirty: %v)", version, dirty), nil
	default:
		return "", fmt.Errorf("invalid migration command %q", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return "no migration changes to apply", nil
	}
	if err != nil {
		return "", fmt.Errorf("migration %s failed: %w", command, err)
	}
	return fmt.Sprintf("migration %s completed", command), nil
}
