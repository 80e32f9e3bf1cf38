package persistence

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationDirection selects which way RunMigrations moves the schema.
type MigrationDirection string

const (
	MigrateUp   MigrationDirection = "up"
	MigrateDown MigrationDirection = "down"
)

// RunMigrations applies the embedded SQL migrations against the database at dsn.
func RunMigrations(dsn string, direction MigrationDirection, logger *zap.Logger) error {
	if dsn == "" {
		return errors.New("postgres dsn is required for migrations")
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	switch direction {
	case MigrateUp:
		err = migrator.Up()
	case MigrateDown:
		err = migrator.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already up to date", zap.String("direction", string(direction)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}

	version, dirty, verr := migrator.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", verr)
	}
	logger.Info("migrations applied",
		zap.String("direction", string(direction)),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}
