package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// tableNamePattern constrains schema names to what can safely be
// embedded in DDL and physical table names.
var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateTableName rejects schema names that cannot become physical
// table names.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", types.ErrBadTableName, name)
	}
	return nil
}

// Querier is the subset of database/sql used for reading definitions,
// satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load reads the latest structure version of the named table and
// instantiates its column types. Lookup columns are resolved
// transitively; a Lookup pointing at a schema already on the resolution
// path fails that column without failing the load.
func Load(ctx context.Context, db Querier, table, lang string, hooks field.Hooks) (*Schema, error) {
	return load(ctx, db, table, lang, hooks, map[string]bool{})
}

func load(ctx context.Context, db Querier, table, lang string, hooks field.Hooks, seen map[string]bool) (*Schema, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	s := &Schema{table: table, hooks: hooks}
	var editors string
	row := db.QueryRowContext(ctx,
		`SELECT id, ts, user, islookup, editors FROM schemas WHERE tbl = ? ORDER BY id DESC LIMIT 1`,
		table)
	if err := row.Scan(&s.id, &s.ts, &s.user, &s.global, &editors); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", types.ErrSchemaNotFound, table)
		}
		return nil, fmt.Errorf("loading schema %q: %w", table, err)
	}
	if editors != "" {
		for _, e := range strings.Split(editors, ",") {
			if e = strings.TrimSpace(e); e != "" {
				s.editors = append(s.editors, e)
			}
		}
	}

	rows, err := db.QueryContext(ctx,
		`SELECT colref, enabled, label, class, config, multi, sort, visible_editor, visible_page
		 FROM schema_cols WHERE sid = ? ORDER BY sort, colref`, s.id)
	if err != nil {
		return nil, fmt.Errorf("loading columns of %q: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			colref, sortPos                    int
			enabled, multi, visEditor, visPage bool
			label, class, config               string
		)
		if err := rows.Scan(&colref, &enabled, &label, &class, &config, &multi, &sortPos, &visEditor, &visPage); err != nil {
			return nil, fmt.Errorf("scanning column of %q: %w", table, err)
		}
		typ, err := field.New(class, json.RawMessage(config), hooks)
		if err != nil {
			return nil, fmt.Errorf("column %q of %q: %w", label, table, err)
		}
		s.cols = append(s.cols, NewColumn(typ, label, colref, multi, enabled, visEditor, visPage, sortPos))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading columns of %q: %w", table, err)
	}

	seen[table] = true
	defer delete(seen, table)
	for _, c := range s.cols {
		if lk, ok := c.Type().(*field.Lookup); ok {
			resolveLookup(ctx, db, lk, lang, hooks, seen)
		}
	}
	return s, nil
}

// resolveLookup loads the referenced schema and installs the target on
// the Lookup. Failures degrade the column instead of failing the load.
func resolveLookup(ctx context.Context, db Querier, lk *field.Lookup, lang string, hooks field.Hooks, seen map[string]bool) {
	schemaName, fieldName := lk.Target()
	if schemaName == "" {
		return // newLookup already recorded the failure
	}
	if seen[schemaName] {
		lk.Resolve(nil, fmt.Errorf("lookup cycle through schema %q", schemaName))
		return
	}
	target, err := load(ctx, db, schemaName, lang, hooks, seen)
	if err != nil {
		lk.Resolve(nil, err)
		return
	}
	if fieldName == "" {
		fieldName = types.ColTitle
	}
	col, err := target.FindColumn(fieldName, lang)
	if err != nil {
		lk.Resolve(nil, err)
		return
	}
	lk.Resolve(&field.RefTarget{
		Table: target.DataTable(),
		Col:   col.ColName(),
		Type:  col.Type(),
		Multi: col.Multi(),
	}, nil)
}
