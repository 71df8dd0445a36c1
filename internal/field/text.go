package field

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
)

type textConfig struct {
	BaseConfig
	Prefix  string `json:"prefix,omitempty"`
	Postfix string `json:"postfix,omitempty"`
}

// Text is the plain string type. A configured prefix/postfix is part of
// the displayed and compared value but not of the stored one.
type Text struct {
	BaseType
	cfg textConfig
}

func newText(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Text{BaseType: newBase("Text", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

// affixExpr builds the select expression including prefix/postfix. The
// affixes come from validated type configuration, never raw user input.
func affixExpr(tableAlias, colName, prefix, postfix string) string {
	col := tableAlias + "." + colName
	if prefix == "" && postfix == "" {
		return col
	}
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, quote(prefix))
	}
	parts = append(parts, col)
	if postfix != "" {
		parts = append(parts, quote(postfix))
	}
	return strings.Join(parts, " || ")
}

// affixFilter compares against the full prefixed/postfixed string and
// keeps empty stored values from matching a non-empty filter.
func affixFilter(grp *sqlbuilder.FilterGroup, tableAlias, colName, prefix, postfix, comp string, value any) error {
	return filterValues(grp, value, func(g *sqlbuilder.FilterGroup, v string) error {
		expr := affixExpr(tableAlias, colName, prefix, postfix)
		sql, bound, err := comparison(expr, comp, v)
		if err != nil {
			return err
		}
		if v == "" {
			g.Add(sql, bound...)
			return nil
		}
		sub := g.And()
		sub.Add(sql, bound...)
		sub.Add(fmt.Sprintf("%s.%s != ''", tableAlias, colName))
		return nil
	})
}

func (t *Text) DisplayValue(raw string) string {
	if raw == "" {
		return ""
	}
	return t.cfg.Prefix + raw + t.cfg.Postfix
}

func (t *Text) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	qb.AddSelectStatement(affixExpr(tableAlias, colName, t.cfg.Prefix, t.cfg.Postfix), alias)
}

func (t *Text) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return affixFilter(grp, tableAlias, colName, t.cfg.Prefix, t.cfg.Postfix, comp, value)
}

func (t *Text) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	expr := affixExpr(tableAlias, colName, t.cfg.Prefix, t.cfg.Postfix)
	qb.AddOrderBy(fmt.Sprintf("%s COLLATE NOCASE %s", expr, direction(ascending)))
}
