package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	contractdomain "github.com/smallbiznis/gridsign/internal/contract/domain"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	signingdomain "github.com/smallbiznis/gridsign/internal/signing/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations to a PostgreSQL database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&counterpartydomain.Counterparty{},
		&offerdomain.Offer{},
		&contractdomain.Contract{},
		&signingdomain.Envelope{},
	}
}

// AutoMigrate creates the schema from the gorm models. Used for SQLite and
// MySQL, which the SQL migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
