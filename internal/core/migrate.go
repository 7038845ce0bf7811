// AngelaMos | 2026
// migrate.go

package core

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/ophrus/immo-api/internal/migrations"
)

// Migrate applies the embedded goose migrations against the connected
// database. Called at startup when database.migrate is enabled.
func (d *Database) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, d.DB.DB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
