package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// Value is one result cell, already rendered by the column type's
// select expression.
type Value struct {
	Col     *BoundColumn
	Display string
}

// Result is one executed aggregation.
type Result struct {
	Columns []*BoundColumn
	Rows    [][]Value
	// Total is the number of matching rows before pagination.
	Total int
}

// Values flattens the result into the first column's cells, the shape
// the value flavor consumes.
func (r *Result) Values() []string {
	out := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if len(row) > 0 {
			out = append(out, row[0].Display)
		}
	}
	return out
}

// Execute renders and runs the aggregation. The acting user is bound
// for the access function before the statement runs.
func (s *Search) Execute(ctx context.Context) (*Result, error) {
	if err := s.checkMode(); err != nil {
		return nil, err
	}
	if s.mode == types.ModeCloud {
		return s.executeCloud(ctx)
	}

	qb, err := s.buildQuery()
	if err != nil {
		return nil, err
	}

	s.backend.BindUser(s.wctx.User)

	qb.SetPagination(0, 0)
	fullSQL, params := qb.SQL()

	res := &Result{Columns: s.columns}
	if err := s.backend.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ("+fullSQL+")", params...).Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("counting result rows: %w", err)
	}

	qb.SetPagination(s.limit, s.offset)
	pagedSQL, params := qb.SQL()
	s.log.Debugw("aggregation query", "sql", pagedSQL, "params", len(params))

	rows, err := s.backend.DB().QueryContext(ctx, pagedSQL, params...)
	if err != nil {
		return nil, fmt.Errorf("running aggregation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cells := make([]sql.NullString, len(s.columns))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning aggregation row: %w", err)
		}
		row := make([]Value, len(s.columns))
		for i, bc := range s.columns {
			row[i] = Value{Col: bc, Display: cells[i].String}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading aggregation rows: %w", err)
	}
	return res, nil
}

// buildQuery assembles the full statement: schema tables with latest
// and access conditions, tombstone exclusion, selects with multi-value
// concatenation, the user filter tree, and sort keys.
func (s *Search) buildQuery() (*sqlbuilder.QueryBuilder, error) {
	qb := sqlbuilder.NewQueryBuilder()
	root := qb.Filters()

	scAliases := make([]string, len(s.schemas))
	for i, sc := range s.schemas {
		alias := qb.AddTable(sc.DataTable(), "")
		scAliases[i] = alias

		root.Add(alias + ".latest = 1")
		if i == 0 {
			if !sc.Global() {
				cond, params := field.PageReadCondition(alias, sc.Table())
				root.Add(cond, params...)
			}
		} else {
			// Page schemas chain on the page id; the join carries the
			// chained schema's access restriction.
			pid := sc.PseudoColumn(types.ColPageID).Type()
			cond, params := pid.JoinCondition(field.JoinContext{
				LeftAlias:  alias,
				LeftCol:    "pid",
				LeftTable:  sc.Table(),
				LeftGlobal: sc.Global(),
				RightAlias: scAliases[0],
				RightCol:   "pid",
			}, s.schemas[0].PseudoColumn(types.ColPageID).Type())
			root.Add(cond, params...)
		}
		if live := liveCondition(sc, alias); live != "" {
			root.Add(live)
		}
	}

	hasMulti := false
	for n, bc := range s.columns {
		alias := fmt.Sprintf("C%d", n+1)
		tableAlias := scAliases[bc.scIdx]
		if bc.Col.Multi() {
			hasMulti = true
			malias := s.joinMulti(qb, bc, tableAlias)
			bc.Col.Type().Select(qb, malias, "value", alias)
			expr, _ := qb.GetSelectStatement(alias)
			qb.AddSelectStatement(fmt.Sprintf("PG_CONCAT_DISTINCT(%s, ', ')", expr), alias)
			continue
		}
		bc.Col.Type().Select(qb, tableAlias, bc.Col.ColName(), alias)
	}
	if hasMulti {
		// One result row per record; the concatenation aggregates the
		// multi values.
		for _, alias := range scAliases {
			qb.AddGroupByColumn(alias, "pid")
			qb.AddGroupByColumn(alias, "rid")
		}
	}

	// User filters live in their own AND subgroup so OR connectors can
	// never widen past the structural conditions.
	user := root.And()
	for i, f := range s.filters {
		if i > 0 && f.conn != user.Op() {
			user.Fold(f.conn)
		}
		tableAlias := scAliases[f.col.scIdx]
		colName := f.col.Col.ColName()
		if f.col.Col.Multi() {
			tableAlias = s.joinMulti(qb, f.col, tableAlias)
			colName = "value"
		}
		if err := f.col.Col.Type().Filter(user, tableAlias, colName, f.comp, f.value); err != nil {
			return nil, err
		}
	}

	for _, so := range s.sorts {
		tableAlias := scAliases[so.col.scIdx]
		colName := so.col.Col.ColName()
		if so.col.Col.Multi() {
			tableAlias = s.joinMulti(qb, so.col, tableAlias)
			colName = "value"
		}
		so.col.Col.Type().Sort(qb, tableAlias, colName, so.ascending)
	}

	return qb, nil
}

// joinMulti joins the schema's multi relation for one column and
// returns the join alias. Each use gets its own join so a filter never
// constrains the values another clause sees.
func (s *Search) joinMulti(qb *sqlbuilder.QueryBuilder, bc *BoundColumn, tableAlias string) string {
	malias := qb.GenerateTableAlias()
	on := fmt.Sprintf("%s.colref = %d AND %s.pid = %s.pid AND %s.rid = %s.rid AND %s.rev = %s.rev",
		malias, bc.Col.ColRef(), malias, tableAlias, malias, tableAlias, malias, tableAlias)
	qb.AddLeftJoin(tableAlias, bc.Schema.MultiTable(), malias, on)
	return malias
}

// liveCondition excludes tombstone revisions: a record is live while
// any stored value, single or multi, is non-empty. The auto-filled
// summary column does not count; a clear records its reason there and
// must still read as empty.
func liveCondition(sc *schema.Schema, alias string) string {
	var parts []string
	hasMulti := false
	for _, c := range sc.EnabledColumns() {
		if c.IsVirtual() {
			continue
		}
		if _, ok := c.Type().(*field.AutoSummary); ok {
			continue
		}
		if c.Multi() {
			hasMulti = true
			continue
		}
		parts = append(parts, fmt.Sprintf("%s.%s != ''", alias, c.ColName()))
	}
	if hasMulti {
		parts = append(parts, fmt.Sprintf(
			"EXISTS(SELECT 1 FROM %[1]s WHERE %[1]s.pid = %[2]s.pid AND %[1]s.rid = %[2]s.rid AND %[1]s.rev = %[2]s.rev)",
			sc.MultiTable(), alias))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
