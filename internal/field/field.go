// Package field implements the column type system: the SQL
// participation contract every data type fulfills (select, filter,
// sort, join condition), value validation, and display rendering.
// Types are instantiated through the registry from their name and
// configuration as stored in the schema definition.
package field

import (
	"fmt"
	"strings"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// Hooks are the host capabilities individual types need: user and page
// existence checks for validation, titles for display. Injected at
// registry construction so types never touch ambient globals.
type Hooks struct {
	UserExists func(user string) bool
	PageExists func(page string) bool
	PageTitle  func(page string) string
}

// JoinContext describes a schema-to-schema equality join: the left side
// is an already-joined schema's column, the right side the schema being
// added. LeftTable names the left schema for the assignment subquery;
// LeftGlobal marks a non-page left side, which is always visible.
type JoinContext struct {
	LeftAlias  string
	LeftCol    string
	LeftTable  string
	LeftGlobal bool
	RightAlias string
	RightCol   string
}

// Type is the polymorphic capability of one column's data kind. All SQL
// fragment producers are pure functions of (builder state, type config):
// they mutate only the builder passed in.
type Type interface {
	// Name returns the registry name of the type ("Decimal", "Lookup", ...).
	Name() string

	// Validate cleans a raw input value or fails with a ValidationError.
	// The default trims whitespace; composed types run the parent
	// validation first and add their own constraint.
	Validate(raw string) (string, error)

	// DisplayValue renders the stored value for output.
	DisplayValue(raw string) string

	// CompareValue transforms a filter value before it is bound, e.g.
	// dates become unix timestamps for revision columns.
	CompareValue(raw string) string

	// Select registers the SQL expression (and any joins) yielding this
	// column's value as one result column under the given alias.
	Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string)

	// Filter appends a WHERE fragment for the comparator and value to
	// the group. Value is a string or []string; slices OR together.
	// Values are always bound, never interpolated.
	Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error

	// Sort appends an ORDER BY fragment. The default collation is
	// case-insensitive.
	Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool)

	// JoinCondition produces the equality expression joining this
	// column to another schema's column, including the access-control
	// subquery for page-scoped left sides.
	JoinCondition(jc JoinContext, other Type) (string, []any)

	// ConfigJSON returns the type's canonical configuration for the
	// schema export document. Nil means no configuration.
	ConfigJSON() []byte
}

// BaseType carries the behavior shared by all types. Concrete types
// embed it and override what differs.
type BaseType struct {
	name   string
	hooks  Hooks
	config []byte
}

func newBase(name string, hooks Hooks) BaseType {
	return BaseType{name: name, hooks: hooks}
}

func (t *BaseType) Name() string { return t.name }

func (t *BaseType) ConfigJSON() []byte { return t.config }

// Validate trims surrounding whitespace; every type builds on this.
func (t *BaseType) Validate(raw string) (string, error) {
	return strings.TrimSpace(raw), nil
}

func (t *BaseType) DisplayValue(raw string) string { return raw }

func (t *BaseType) CompareValue(raw string) string { return raw }

// Select picks the bare stored column.
func (t *BaseType) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	qb.AddSelectColumn(tableAlias, colName, alias)
}

// Filter emits a plain bound comparison, OR-ing slice values together.
func (t *BaseType) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return filterValues(grp, value, func(g *sqlbuilder.FilterGroup, v string) error {
		sql, bound, err := comparison(tableAlias+"."+colName, comp, t.CompareValue(v))
		if err != nil {
			return err
		}
		g.Add(sql, bound...)
		return nil
	})
}

// Sort orders by the stored value, case-insensitively.
func (t *BaseType) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	qb.AddOrderBy(fmt.Sprintf("%s.%s COLLATE NOCASE %s", tableAlias, colName, direction(ascending)))
}

// JoinCondition joins on plain equality. Page-scoped left sides are
// additionally restricted to pages the viewer can read and that carry
// the left schema's assignment; non-page rows are always visible.
func (t *BaseType) JoinCondition(jc JoinContext, other Type) (string, []any) {
	cond := fmt.Sprintf("%s.%s = %s.%s", jc.LeftAlias, jc.LeftCol, jc.RightAlias, jc.RightCol)
	if jc.LeftGlobal {
		return cond, nil
	}
	acl, params := PageReadCondition(jc.LeftAlias, jc.LeftTable)
	return cond + " AND " + acl, params
}

// PageReadCondition restricts a page schema's rows to pages the bound
// user may read, that still exist, and that carry the schema's
// assignment. Rows without a page (pid '') are always visible.
func PageReadCondition(alias, table string) (string, []any) {
	cond := fmt.Sprintf(
		"(%[1]s.pid = '' OR (PG_ACCESS(%[1]s.pid) > 0 AND PG_PAGEEXISTS(%[1]s.pid) = 1 AND "+
			"EXISTS(SELECT 1 FROM assignments WHERE pid = %[1]s.pid AND tbl = ? AND assigned = 1)))",
		alias)
	return cond, []any{table}
}

// direction renders a sort direction keyword.
func direction(ascending bool) string {
	if ascending {
		return "ASC"
	}
	return "DESC"
}

// comparison renders one bound comparison fragment for a canonical
// comparator. The contains operators translate to LIKE with the value
// wrapped in wildcards; the value itself stays bound.
func comparison(expr, comp, value string) (string, []any, error) {
	switch comp {
	case types.CompEqual, types.CompNotEqual,
		types.CompLower, types.CompLowerEqual,
		types.CompGreater, types.CompGreaterEq:
		return fmt.Sprintf("%s %s ?", expr, comp), []any{value}, nil
	case types.CompLike:
		return expr + " LIKE ?", []any{value}, nil
	case types.CompNotLike:
		return expr + " NOT LIKE ?", []any{value}, nil
	case types.CompContains:
		return expr + " LIKE ?", []any{"%" + value + "%"}, nil
	case types.CompNotContains:
		return expr + " NOT LIKE ?", []any{"%" + value + "%"}, nil
	default:
		return "", nil, types.Configf("unknown comparator %q", comp)
	}
}

// filterValues applies fn once for a string value, or OR-combined for a
// slice of candidate values.
func filterValues(grp *sqlbuilder.FilterGroup, value any, fn func(*sqlbuilder.FilterGroup, string) error) error {
	switch v := value.(type) {
	case string:
		return fn(grp, v)
	case []string:
		if len(v) == 0 {
			return nil
		}
		if len(v) == 1 {
			return fn(grp, v[0])
		}
		sub := grp.Or()
		for _, one := range v {
			if err := fn(sub, one); err != nil {
				return err
			}
		}
		return nil
	default:
		return types.Configf("unsupported filter value type %T", value)
	}
}

// quote escapes a structural string literal (type configuration, never
// raw user input) for direct embedding in a select expression.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
