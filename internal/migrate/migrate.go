// Package migrate applies the SQL schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers the "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"examgate.org/internal/obs"
)

// Up applies all pending migrations from dir against the database at dsn.
func Up(dsn, dir string) error {
	migrator, err := migrate.New("file://"+dir, pgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() {
		srcErr, dbErr := migrator.Close()
		if srcErr != nil {
			obs.Logger().Printf(`{"level":"error","msg":"migration source close failed","error":%q}`, srcErr.Error())
		}
		if dbErr != nil {
			obs.Logger().Printf(`{"level":"error","msg":"migration db close failed","error":%q}`, dbErr.Error())
		}
	}()

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate: read version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migrate: database is dirty at version %d, manual intervention required", version)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// pgx5DSN rewrites postgres:// style URLs to the pgx5:// scheme the
// golang-migrate pgx/v5 driver expects.
func pgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + dsn[len(prefix):]
		}
	}
	return dsn
}
