package store

import (
	"context"
	"fmt"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// DeleteSchema removes every structure version of a schema together
// with its data tables and assignments. This is irreversible; callers
// confirm before invoking it.
func (b *Backend) DeleteSchema(ctx context.Context, tbl string) error {
	if err := schema.ValidateTableName(tbl); err != nil {
		return err
	}
	var n int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schemas WHERE tbl = ?`, tbl).Scan(&n); err != nil {
		return fmt.Errorf("checking schema %q: %w", tbl, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", types.ErrSchemaNotFound, tbl)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting schema delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_cols WHERE sid IN (SELECT id FROM schemas WHERE tbl = ?)`, tbl); err != nil {
		return fmt.Errorf("deleting columns of %q: %w", tbl, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schemas WHERE tbl = ?`, tbl); err != nil {
		return fmt.Errorf("deleting schema %q: %w", tbl, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE tbl = ?`, tbl); err != nil {
		return fmt.Errorf("deleting assignments of %q: %w", tbl, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments_patterns WHERE tbl = ?`, tbl); err != nil {
		return fmt.Errorf("deleting patterns of %q: %w", tbl, err)
	}
	for _, stmt := range []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS data_%s`, tbl),
		fmt.Sprintf(`DROP TABLE IF EXISTS multi_%s`, tbl),
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dropping data tables of %q: %w", tbl, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema delete: %w", err)
	}
	b.log.Infow("schema deleted", "schema", tbl)
	return nil
}

// Tables lists the schema names with at least one structure version.
func (b *Backend) Tables(ctx context.Context) ([]string, error) {
	return b.allTables(ctx)
}
