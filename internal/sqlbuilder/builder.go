// Package sqlbuilder is a small, injection-safe SQL assembly primitive.
// It tracks tables with generated aliases, joins with parameterized ON
// expressions, an ordered select list, a nested boolean WHERE tree,
// GROUP BY / ORDER BY lists and one flat parameter list whose order
// matches placeholder occurrence in the rendered statement.
//
// Structural identifiers (table and column names) originate from
// validated schema metadata and are interpolated directly; every literal
// that can carry user input is passed as a bound parameter.
package sqlbuilder

import (
	"fmt"
	"strings"
)

// QueryBuilder accumulates the parts of one SELECT statement.
type QueryBuilder struct {
	tables     map[string]string // alias -> table name
	from       []string          // FROM and JOIN clauses in render order
	fromValues []any             // parameters bound inside JOIN ON clauses
	selects    []selectColumn
	selectIdx  map[string]int // select alias -> index into selects
	where      *FilterGroup
	groupBy    []string
	orderBy    []string
	limit      int
	offset     int
	aliasCount int
}

type selectColumn struct {
	expr  string
	alias string
}

// NewQueryBuilder returns an empty builder with an AND root filter
// group.
func NewQueryBuilder() *QueryBuilder {
	qb := &QueryBuilder{
		tables:    make(map[string]string),
		selectIdx: make(map[string]int),
	}
	qb.where = newFilterGroup(qb, OpAnd)
	return qb
}

// GenerateTableAlias hands out process-unique table aliases so the same
// physical table can be joined multiple times (lookup chains, repeated
// titles joins).
func (qb *QueryBuilder) GenerateTableAlias() string {
	qb.aliasCount++
	return fmt.Sprintf("T%d", qb.aliasCount)
}

// AddTable registers a table in the FROM clause and returns its alias.
// Pass an empty alias to have one generated.
func (qb *QueryBuilder) AddTable(table, alias string) string {
	if alias == "" {
		alias = qb.GenerateTableAlias()
	}
	qb.tables[alias] = table
	qb.from = append(qb.from, fmt.Sprintf("%s AS %s", table, alias))
	return alias
}

// AddLeftJoin registers a LEFT OUTER JOIN against an already-registered
// left-side alias. The ON expression may contain ? placeholders; their
// values follow in params and keep statement order.
func (qb *QueryBuilder) AddLeftJoin(leftAlias, rightTable, rightAlias, on string, params ...any) string {
	if rightAlias == "" {
		rightAlias = qb.GenerateTableAlias()
	}
	qb.tables[rightAlias] = rightTable
	qb.from = append(qb.from,
		fmt.Sprintf("LEFT OUTER JOIN %s AS %s ON (%s)", rightTable, rightAlias, on))
	qb.fromValues = append(qb.fromValues, params...)
	return rightAlias
}

// AddInnerJoin registers an INNER JOIN, same contract as AddLeftJoin.
func (qb *QueryBuilder) AddInnerJoin(leftAlias, rightTable, rightAlias, on string, params ...any) string {
	if rightAlias == "" {
		rightAlias = qb.GenerateTableAlias()
	}
	qb.tables[rightAlias] = rightTable
	qb.from = append(qb.from,
		fmt.Sprintf("INNER JOIN %s AS %s ON (%s)", rightTable, rightAlias, on))
	qb.fromValues = append(qb.fromValues, params...)
	return rightAlias
}

// HasTable reports whether an alias is registered.
func (qb *QueryBuilder) HasTable(alias string) bool {
	_, ok := qb.tables[alias]
	return ok
}

// AddSelectColumn selects tablealias.column under the given alias.
func (qb *QueryBuilder) AddSelectColumn(tableAlias, column, alias string) {
	qb.AddSelectStatement(tableAlias+"."+column, alias)
}

// AddSelectStatement selects an arbitrary expression under the given
// alias. Re-adding an alias replaces its expression in place, which
// callers use to wrap a previous selection in an aggregate.
func (qb *QueryBuilder) AddSelectStatement(expr, alias string) {
	if i, ok := qb.selectIdx[alias]; ok {
		qb.selects[i].expr = expr
		return
	}
	qb.selectIdx[alias] = len(qb.selects)
	qb.selects = append(qb.selects, selectColumn{expr: expr, alias: alias})
}

// GetSelectStatement returns the expression previously registered under
// the alias.
func (qb *QueryBuilder) GetSelectStatement(alias string) (string, bool) {
	i, ok := qb.selectIdx[alias]
	if !ok {
		return "", false
	}
	return qb.selects[i].expr, true
}

// SelectCount reports how many select columns are registered.
func (qb *QueryBuilder) SelectCount() int { return len(qb.selects) }

// AddGroupByColumn appends tablealias.column to the GROUP BY list.
func (qb *QueryBuilder) AddGroupByColumn(tableAlias, column string) {
	qb.AddGroupByStatement(tableAlias + "." + column)
}

// AddGroupByStatement appends an arbitrary expression to GROUP BY.
func (qb *QueryBuilder) AddGroupByStatement(expr string) {
	qb.groupBy = append(qb.groupBy, expr)
}

// AddOrderBy appends an ORDER BY expression; keys compose in call order
// (primary first).
func (qb *QueryBuilder) AddOrderBy(expr string) {
	qb.orderBy = append(qb.orderBy, expr)
}

// SetPagination sets LIMIT/OFFSET. A limit of 0 disables pagination.
func (qb *QueryBuilder) SetPagination(limit, offset int) {
	qb.limit = limit
	qb.offset = offset
}

// Filters returns the root WHERE group.
func (qb *QueryBuilder) Filters() *FilterGroup { return qb.where }

// SQL renders the accumulated state into one statement plus its ordered
// parameter list.
func (qb *QueryBuilder) SQL() (string, []any) {
	var sb strings.Builder
	params := make([]any, 0, len(qb.fromValues))

	sb.WriteString("SELECT ")
	if len(qb.selects) == 0 {
		sb.WriteString("*")
	} else {
		for i, sel := range qb.selects {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(sel.expr)
			sb.WriteString(" AS ")
			sb.WriteString(sel.alias)
		}
	}

	sb.WriteString(" FROM ")
	for i, clause := range qb.from {
		if i > 0 {
			if strings.HasPrefix(clause, "LEFT OUTER JOIN") || strings.HasPrefix(clause, "INNER JOIN") {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
		}
		sb.WriteString(clause)
	}
	params = append(params, qb.fromValues...)

	if whereSQL, whereParams := qb.where.render(); whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		params = append(params, whereParams...)
	}

	if len(qb.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(qb.groupBy, ", "))
	}
	if len(qb.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(qb.orderBy, ", "))
	}
	if qb.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", qb.limit)
		if qb.offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", qb.offset)
		}
	}

	return sb.String(), params
}

// WhereSQL renders only the WHERE tree, for callers embedding it into a
// larger statement.
func (qb *QueryBuilder) WhereSQL() (string, []any) {
	return qb.where.render()
}
