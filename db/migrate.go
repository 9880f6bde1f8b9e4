// Package db owns the corpusd schema: the tenants/collections/documents
// tables and the pgvector extension they depend on. Migrations are embedded
// SQL applied through golang-migrate; both the serve and migrate commands
// (and the integration test harness) go through Migrate before touching the
// pool.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings the corpusd schema up to the latest embedded version.
// Already-applied versions are skipped via the schema_migrations table,
// so running it on every boot is safe.
//
// connURL is a postgres:// or postgresql:// URL, typically
// Config.PostgresURL().
func Migrate(connURL string) error {
	slog.Debug("applying schema migrations")

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	dbURL, err := migrateURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			slog.Warn("closing migration source", "error", srcErr)
		}
		if dbErr != nil {
			slog.Warn("closing migration connection", "error", dbErr)
		}
	}()

	// A dirty version means a previous run died mid-migration. Applying
	// more SQL on top of a half-applied schema would make it worse, so
	// stop and ask for a manual repair.
	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		return fmt.Errorf("checking schema version: %w", verErr)
	}
	if dirty {
		slog.Error("schema is dirty, refusing to migrate",
			"version", version,
			"hint", fmt.Sprintf("inspect the schema, then: migrate force %d", version))
		return fmt.Errorf("schema dirty at version %d, manual repair required", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("schema already current")
			return nil
		}

		if postVersion, postDirty, postErr := m.Version(); postErr == nil && postDirty {
			slog.Error("migration left the schema dirty",
				"version", postVersion,
				"hint", fmt.Sprintf("fix the migration, then: migrate force %d", postVersion))
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	finalVersion, finalDirty, verErr := m.Version()
	if verErr != nil {
		slog.Warn("migrations applied but version readback failed",
			"error", verErr,
			"hint", "SELECT version, dirty FROM schema_migrations")
	} else {
		slog.Info("schema migrated", "version", finalVersion, "dirty", finalDirty)
	}

	return nil
}

// migrateURL rewrites a postgres URL to the pgx5 scheme golang-migrate
// expects for its pgx v5 database driver.
func migrateURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parsing database URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("database URL scheme %q not supported, want postgres or postgresql", u.Scheme)
	}
}
