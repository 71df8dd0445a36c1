package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// Build stores a new structure version of the schema described by exp
// and creates or extends the physical data tables, all in one
// transaction. Columns whose label matches an earlier version keep
// their reference index, so existing data stays attached; new columns
// get fresh indexes. Duplicate labels are renamed with a numeric
// suffix.
func Build(ctx context.Context, db *sql.DB, exp *types.SchemaExport, user string, now int64, hooks field.Hooks) (*Schema, error) {
	if err := ValidateTableName(exp.Schema); err != nil {
		return nil, err
	}
	if len(exp.Columns) == 0 {
		return nil, types.Configf("schema %q has no columns", exp.Schema)
	}

	// Validate every type name and configuration before touching the
	// database.
	for _, col := range exp.Columns {
		if col.Label == "" {
			return nil, types.Configf("schema %q has a column without a label", exp.Schema)
		}
		if _, err := field.New(col.Type, col.Config, hooks); err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Label, err)
		}
	}

	prevRefs, maxRef, err := previousRefs(ctx, db, exp.Schema)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting schema build: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO schemas (tbl, ts, user, islookup, editors, config) VALUES (?, ?, ?, ?, ?, '')`,
		exp.Schema, now, user, exp.Lookup, strings.Join(exp.Editors, ","))
	if err != nil {
		return nil, fmt.Errorf("storing schema %q: %w", exp.Schema, err)
	}
	sid, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("storing schema %q: %w", exp.Schema, err)
	}

	labels := map[string]bool{}
	refs := make([]int, len(exp.Columns))
	for i, col := range exp.Columns {
		label := uniqueLabel(col.Label, labels)
		labels[strings.ToLower(label)] = true

		ref, ok := prevRefs[strings.ToLower(label)]
		if !ok {
			maxRef++
			ref = maxRef
		}
		refs[i] = ref

		config := "{}"
		if len(col.Config) > 0 {
			config = string(col.Config)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schema_cols (sid, colref, enabled, label, class, config, multi, sort, visible_editor, visible_page)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sid, ref, col.Enabled, label, canonicalTypeName(col.Type), config,
			col.Multi, col.Sort, col.VisibleEditor, col.VisiblePage)
		if err != nil {
			return nil, fmt.Errorf("storing column %q: %w", label, err)
		}
	}

	if err := ensureDataTables(ctx, tx, exp.Schema, maxRef); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing schema %q: %w", exp.Schema, err)
	}
	return Load(ctx, db, exp.Schema, "", hooks)
}

// previousRefs maps lowercased labels of the latest existing version to
// their reference indexes and returns the highest index ever assigned
// across all versions, so retired indexes are never reused.
func previousRefs(ctx context.Context, db Querier, table string) (map[string]int, int, error) {
	refs := map[string]int{}
	maxRef := 0

	row := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(c.colref), 0) FROM schema_cols c JOIN schemas s ON c.sid = s.id WHERE s.tbl = ?`,
		table)
	if err := row.Scan(&maxRef); err != nil {
		return nil, 0, fmt.Errorf("inspecting previous versions of %q: %w", table, err)
	}

	prev, err := Load(ctx, db, table, "", field.Hooks{})
	if err != nil {
		if errors.Is(err, types.ErrSchemaNotFound) {
			return refs, maxRef, nil
		}
		return nil, 0, err
	}
	for _, c := range prev.Columns() {
		refs[strings.ToLower(c.Label())] = c.ColRef()
	}
	return refs, maxRef, nil
}

// uniqueLabel appends a numeric suffix until the label is unused.
func uniqueLabel(label string, taken map[string]bool) string {
	if !taken[strings.ToLower(label)] {
		return label
	}
	for i := 2; ; i++ {
		candidate := label + strconv.Itoa(i)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// canonicalTypeName normalizes the stored type name to its registry
// spelling so exports are stable regardless of input casing.
func canonicalTypeName(name string) string {
	for _, n := range field.Names() {
		if strings.EqualFold(n, name) {
			return n
		}
	}
	return name
}

// ensureDataTables creates the physical tables on first use and adds
// any value columns the new version introduced. SQLite DDL takes part
// in the surrounding transaction.
func ensureDataTables(ctx context.Context, tx *sql.Tx, table string, maxRef int) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS data_%s (
			pid TEXT NOT NULL DEFAULT '',
			rid TEXT NOT NULL DEFAULT '',
			rev INTEGER NOT NULL,
			latest INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (pid, rid, rev)
		)`, table))
	if err != nil {
		return fmt.Errorf("creating data table for %q: %w", table, err)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS multi_%s (
			colref INTEGER NOT NULL,
			pid TEXT NOT NULL DEFAULT '',
			rid TEXT NOT NULL DEFAULT '',
			rev INTEGER NOT NULL,
			row INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (colref, pid, rid, rev, row)
		)`, table))
	if err != nil {
		return fmt.Errorf("creating multi table for %q: %w", table, err)
	}

	existing := map[string]bool{}
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(data_%s)`, table))
	if err != nil {
		return fmt.Errorf("inspecting data table for %q: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspecting data table for %q: %w", table, err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspecting data table for %q: %w", table, err)
	}
	rows.Close()

	for ref := 1; ref <= maxRef; ref++ {
		col := "col" + strconv.Itoa(ref)
		if existing[col] {
			continue
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(
			`ALTER TABLE data_%s ADD COLUMN %s TEXT NOT NULL DEFAULT ''`, table, col))
		if err != nil {
			return fmt.Errorf("adding column %s to %q: %w", col, table, err)
		}
	}
	return nil
}
