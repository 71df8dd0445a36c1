package field

import (
	"encoding/json"
	"fmt"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
	"github.com/pagegrid/pagegrid/pkg/types"
)

type lookupConfig struct {
	BaseConfig
	Schema string `json:"schema"`
	Field  string `json:"field"`
}

// RefTarget is the resolved destination of a Lookup: the physical data
// table to join, the physical column inside it, and that column's type.
// The type may itself be a Lookup, in which case delegation recurses
// until the ultimate non-Lookup target renders and compares the value.
type RefTarget struct {
	Table string
	Col   string
	Type  Type
	Multi bool
}

// Lookup is a foreign-key column: it stores a JSON [page-id, row-id]
// tuple identifying a row in another schema and delegates its whole SQL
// contract to the referenced column after joining that schema's latest
// data.
//
// The join matches latest = 1 on the target, so a Lookup always shows
// the referenced row's current value, not the value as of the
// referencing row's revision. Freshness over historical accuracy is a
// deliberate choice.
type Lookup struct {
	BaseType
	cfg    lookupConfig
	ref    *RefTarget
	refErr error
}

func newLookup(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Lookup{BaseType: newBase("Lookup", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	if t.cfg.Schema == "" {
		t.refErr = fmt.Errorf("lookup without a target schema: %w", types.ErrSchemaNotFound)
	}
	return t, nil
}

// Target returns the configured schema and field names.
func (t *Lookup) Target() (schema, field string) { return t.cfg.Schema, t.cfg.Field }

// Resolve installs the resolved target, or the resolution failure. A
// failed resolution degrades gracefully: the column renders empty and
// is excluded from further SQL participation instead of aborting the
// aggregation.
func (t *Lookup) Resolve(ref *RefTarget, err error) {
	if err != nil {
		t.ref, t.refErr = nil, err
		return
	}
	if ref != nil && ref.Multi {
		t.ref, t.refErr = nil, types.ErrMultiLookup
		return
	}
	t.ref, t.refErr = ref, nil
}

// RefError returns the resolution failure, if any.
func (t *Lookup) RefError() error { return t.refErr }

func (t *Lookup) Validate(raw string) (string, error) {
	clean, _ := t.BaseType.Validate(raw)
	if clean == "" {
		return "", nil
	}
	ref, err := types.ParseLookupRef(clean)
	if err != nil {
		return "", types.NewValidationError("lookup", clean)
	}
	return ref.String(), nil
}

func (t *Lookup) DisplayValue(raw string) string {
	if t.ref == nil {
		return ""
	}
	return t.ref.Type.DisplayValue(raw)
}

func (t *Lookup) CompareValue(raw string) string {
	if t.ref == nil {
		return raw
	}
	return t.ref.Type.CompareValue(raw)
}

// joinTarget registers the LEFT JOIN to the target schema's latest data
// and returns the join alias.
func (t *Lookup) joinTarget(qb *sqlbuilder.QueryBuilder, tableAlias, colName string) string {
	alias := qb.GenerateTableAlias()
	on := fmt.Sprintf("%s.%s = PG_JSON(%s.pid, %s.rid) AND %s.latest = 1",
		tableAlias, colName, alias, alias, alias)
	qb.AddLeftJoin(tableAlias, t.ref.Table, alias, on)
	return alias
}

func (t *Lookup) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	if t.ref == nil {
		qb.AddSelectStatement("''", alias)
		return
	}
	joined := t.joinTarget(qb, tableAlias, colName)
	t.ref.Type.Select(qb, joined, t.ref.Col, alias)
}

func (t *Lookup) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	if t.ref == nil {
		// Excluded from SQL participation, like Select and Sort.
		return nil
	}
	joined := t.joinTarget(grp.Builder(), tableAlias, colName)
	return t.ref.Type.Filter(grp, joined, t.ref.Col, comp, value)
}

func (t *Lookup) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	if t.ref == nil {
		return
	}
	joined := t.joinTarget(qb, tableAlias, colName)
	t.ref.Type.Sort(qb, joined, t.ref.Col, ascending)
}
