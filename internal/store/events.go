package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/internal/wiki"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// HandlePageSave keeps the denormalized page metadata and the pattern
// assignments in step with a content save.
func (b *Backend) HandlePageSave(ctx context.Context, ev wiki.PageSaveEvent) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO titles (pid, title, lastrev, lasteditor, lastsummary) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pid) DO UPDATE SET title = excluded.title, lastrev = excluded.lastrev,
		 lasteditor = excluded.lasteditor, lastsummary = excluded.lastsummary`,
		ev.Page, ev.Title, ev.Revision, ev.Editor, ev.Summary)
	if err != nil {
		return fmt.Errorf("updating page metadata: %w", err)
	}
	return b.refreshAssignments(ctx, ev.Page)
}

// HandlePageDelete tombstones the page's data in every assigned schema
// and revokes the assignments. History stays queryable by revision.
func (b *Backend) HandlePageDelete(ctx context.Context, ev wiki.PageDeleteEvent, wctx *wiki.Context) error {
	tables, err := b.PageAssignments(ctx, ev.Page)
	if err != nil {
		return err
	}
	for _, tbl := range tables {
		s, err := schema.Load(ctx, b.db, tbl, wctx.Lang(), b.Hooks())
		if err != nil {
			return err
		}
		if _, err := b.ClearRow(ctx, s, wctx, types.RecordID{Page: ev.Page}, "page deleted"); err != nil {
			return err
		}
	}
	if _, err := b.db.ExecContext(ctx,
		`UPDATE assignments SET assigned = 0 WHERE pid = ?`, ev.Page); err != nil {
		return fmt.Errorf("revoking assignments: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM titles WHERE pid = ?`, ev.Page); err != nil {
		return fmt.Errorf("clearing page metadata: %w", err)
	}
	b.log.Infow("page data cleared", "pid", ev.Page, "schemas", len(tables))
	return nil
}

// HandlePageMove renames a page across all store tables: row identity,
// metadata, assignments, and values referencing the page through Page
// or Lookup columns.
func (b *Backend) HandlePageMove(ctx context.Context, ev wiki.PageMoveEvent, wctx *wiki.Context) error {
	tables, err := b.allTables(ctx)
	if err != nil {
		return err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting page move: %w", err)
	}
	defer tx.Rollback()

	oldRef := types.LookupRef{Page: ev.From}.String()
	newRef := types.LookupRef{Page: ev.To}.String()

	for _, tbl := range tables {
		s, err := schema.Load(ctx, b.db, tbl, wctx.Lang(), b.Hooks())
		if err != nil {
			return err
		}
		for _, stmt := range []string{
			fmt.Sprintf(`UPDATE %s SET pid = ? WHERE pid = ?`, s.DataTable()),
			fmt.Sprintf(`UPDATE %s SET pid = ? WHERE pid = ?`, s.MultiTable()),
		} {
			if _, err := tx.ExecContext(ctx, stmt, ev.To, ev.From); err != nil {
				return fmt.Errorf("moving rows of %q: %w", tbl, err)
			}
		}
		if err := rewriteReferences(ctx, tx, s, ev, oldRef, newRef); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE OR REPLACE titles SET pid = ? WHERE pid = ?`, ev.To, ev.From); err != nil {
		return fmt.Errorf("moving page metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE OR REPLACE assignments SET pid = ? WHERE pid = ?`, ev.To, ev.From); err != nil {
		return fmt.Errorf("moving assignments: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing page move: %w", err)
	}
	b.log.Infow("page moved", "from", ev.From, "to", ev.To)
	return nil
}

// rewriteReferences updates stored values that point at the moved page:
// Lookup tuples referencing a row of that page and Page column values,
// in both the data columns and the multi relation.
func rewriteReferences(ctx context.Context, tx txExecer, s *schema.Schema, ev wiki.PageMoveEvent, oldRef, newRef string) error {
	for _, c := range s.EnabledColumns() {
		if c.IsVirtual() {
			continue
		}
		switch c.Type().Name() {
		case "Lookup":
			stmts := []string{
				fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, s.DataTable(), c.ColName(), c.ColName()),
				fmt.Sprintf(`UPDATE %s SET value = ? WHERE colref = %d AND value = ?`, s.MultiTable(), c.ColRef()),
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt, newRef, oldRef); err != nil {
					return fmt.Errorf("rewriting lookup references in %q: %w", s.Table(), err)
				}
			}
		case "Page":
			stmts := []struct {
				sql  string
				args []any
			}{
				{fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, s.DataTable(), c.ColName(), c.ColName()),
					[]any{ev.To, ev.From}},
				{fmt.Sprintf(
					`UPDATE %s SET %s = json_array(?, json_extract(%s, '$[1]'))
					 WHERE json_valid(%s) AND json_extract(%s, '$[0]') = ?`,
					s.DataTable(), c.ColName(), c.ColName(), c.ColName(), c.ColName()),
					[]any{ev.To, ev.From}},
				{fmt.Sprintf(`UPDATE %s SET value = ? WHERE colref = %d AND value = ?`,
					s.MultiTable(), c.ColRef()),
					[]any{ev.To, ev.From}},
				{fmt.Sprintf(
					`UPDATE %s SET value = json_array(?, json_extract(value, '$[1]'))
					 WHERE colref = %d AND json_valid(value) AND json_extract(value, '$[0]') = ?`,
					s.MultiTable(), c.ColRef()),
					[]any{ev.To, ev.From}},
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt.sql, stmt.args...); err != nil {
					return fmt.Errorf("rewriting page references in %q: %w", s.Table(), err)
				}
			}
		}
	}
	return nil
}

// allTables lists every schema name that ever had a structure version.
func (b *Backend) allTables(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT DISTINCT tbl FROM schemas ORDER BY tbl`)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tbl string
		if err := rows.Scan(&tbl); err != nil {
			return nil, fmt.Errorf("listing schemas: %w", err)
		}
		out = append(out, tbl)
	}
	return out, rows.Err()
}

type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
