package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	employeedomain "github.com/smallbiznis/storeline/internal/employee/domain"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/loyalty"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres schema.
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

// Models lists every table the engine owns, in dependency order.
func Models() []any {
	return []any{
		&inventorydomain.Product{},
		&inventorydomain.Variant{},
		&inventorydomain.Batch{},
		&customerdomain.Customer{},
		&employeedomain.Employee{},
		&redemptiondomain.PointRedemption{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceDetail{},
		&loyalty.PointEntry{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate is used for the non-postgres dialects.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(Models()...)
}
