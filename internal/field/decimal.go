package field

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
	"github.com/pagegrid/pagegrid/pkg/types"
)

type decimalConfig struct {
	BaseConfig
	// Min and Max are kept as strings so an empty value means "no
	// bound" and exports round-trip exactly.
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`
}

// Decimal stores numbers as text but always compares and sorts them
// numerically: both sides of every comparison are cast, so "9.5" ranks
// below "10" instead of after it.
type Decimal struct {
	BaseType
	cfg decimalConfig
}

func newDecimal(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Decimal{BaseType: newBase("Decimal", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *Decimal) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	// Accept a decimal comma.
	normalized := strings.Replace(clean, ",", ".", 1)
	n, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return "", types.NewValidationError("decimal", clean)
	}
	if t.cfg.Min != "" {
		if min, err := strconv.ParseFloat(t.cfg.Min, 64); err == nil && n < min {
			return "", types.NewValidationError("decimal min", t.cfg.Min)
		}
	}
	if t.cfg.Max != "" {
		if max, err := strconv.ParseFloat(t.cfg.Max, 64); err == nil && n > max {
			return "", types.NewValidationError("decimal max", t.cfg.Max)
		}
	}
	return normalized, nil
}

func (t *Decimal) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return numericFilter(grp, tableAlias, colName, comp, value, t.CompareValue)
}

func (t *Decimal) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	numericSort(qb, tableAlias, colName, ascending)
}

// Increment is a whole-number counter. Empty values are assigned the
// next free number for the schema at save time; stored values compare
// numerically like Decimal.
type Increment struct {
	BaseType
}

func newIncrement(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Increment{BaseType: newBase("Increment", hooks)}
	cfg, err := decodeConfig(raw, &struct{ BaseConfig }{})
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *Increment) Validate(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", nil
	}
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil || n < 0 {
		return "", types.NewValidationError("int", clean)
	}
	return strconv.FormatInt(n, 10), nil
}

func (t *Increment) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return numericFilter(grp, tableAlias, colName, comp, value, t.CompareValue)
}

func (t *Increment) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	numericSort(qb, tableAlias, colName, ascending)
}

// numericFilter casts both sides to a numeric type before comparing.
// The pattern operators keep their textual semantics.
func numericFilter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any, compare func(string) string) error {
	return filterValues(grp, value, func(g *sqlbuilder.FilterGroup, v string) error {
		switch comp {
		case types.CompLike, types.CompNotLike, types.CompContains, types.CompNotContains:
			sql, bound, err := comparison(tableAlias+"."+colName, comp, compare(v))
			if err != nil {
				return err
			}
			g.Add(sql, bound...)
			return nil
		}
		sql := fmt.Sprintf("CAST(%s.%s AS DECIMAL) %s CAST(? AS DECIMAL)", tableAlias, colName, comp)
		g.Add(sql, compare(v))
		return nil
	})
}

func numericSort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	qb.AddOrderBy(fmt.Sprintf("CAST(%s.%s AS DECIMAL) %s", tableAlias, colName, direction(ascending)))
}
