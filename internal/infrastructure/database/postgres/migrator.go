package postgres

import (
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
)

// Migrate applies all pending schema migrations from the configured
// directory.  No-op when the schema is already current.
func Migrate(cfg config.DatabaseConfig, log logging.Logger) error {
	if cfg.MigrationPath == "" {
		return nil
	}

	m, err := migrate.New(sourceURL(cfg.MigrationPath), migrateDSN(cfg))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot initialize migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Warn("cannot read migration version", logging.Err(err))
		return nil
	}
	log.Info("database schema is current",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// sourceURL normalizes a migrations directory into a file:// source.
func sourceURL(dir string) string {
	if strings.Contains(dir, "://") {
		return dir
	}
	return "file://" + dir
}

// migrateDSN rewrites the pgx DSN onto the scheme golang-migrate's pgx/v5
// driver registers.
func migrateDSN(cfg config.DatabaseConfig) string {
	u, err := url.Parse(BuildDSN(cfg))
	if err != nil {
		return BuildDSN(cfg)
	}
	u.Scheme = "pgx5"
	return u.String()
}
