package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Aggregation flavors.
const (
	ModeTable = "table"
	ModeList  = "list"
	ModeCloud = "cloud"
	ModeValue = "value"
)

// Reserved selector tokens addressing synthetic, non-stored columns.
const (
	ColPageID      = "%pageid%"
	ColTitle       = "%title%"
	ColRowID       = "%rowid%"
	ColLastUpdate  = "%lastupdate%"
	ColLastEditor  = "%lasteditor%"
	ColLastSummary = "%lastsummary%"
)

// Filter comparators. ~ and !~ are the custom contains operators; they
// translate to LIKE with the value wrapped in wildcards.
const (
	CompEqual       = "="
	CompNotEqual    = "!="
	CompLower       = "<"
	CompLowerEqual  = "<="
	CompGreater     = ">"
	CompGreaterEq   = ">="
	CompLike        = "LIKE"
	CompNotLike     = "NOT LIKE"
	CompContains    = "~"
	CompNotContains = "!~"
)

// NormalizeComparator maps the accepted comparator spellings onto the
// canonical constants. Unknown comparators are a configuration error.
func NormalizeComparator(comp string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(comp)) {
	case "=", "==":
		return CompEqual, nil
	case "!=", "<>":
		return CompNotEqual, nil
	case "<":
		return CompLower, nil
	case "<=":
		return CompLowerEqual, nil
	case ">":
		return CompGreater, nil
	case ">=":
		return CompGreaterEq, nil
	case "LIKE":
		return CompLike, nil
	case "NOT LIKE":
		return CompNotLike, nil
	case "~", "*~":
		return CompContains, nil
	case "!~":
		return CompNotContains, nil
	default:
		return "", Configf("unknown comparator %q", comp)
	}
}

// SchemaRef names a schema to aggregate, optionally under an alias.
type SchemaRef struct {
	Table string
	Alias string
}

// FilterSpec is one declarative filter clause. Value is a string or a
// list of strings (OR-ed together). Connector chains the clause to the
// previous one and is AND or OR; the first clause's connector is
// ignored.
type FilterSpec struct {
	Column     string
	Comparator string
	Value      any
	Connector  string
}

// SortSpec is one sort key.
type SortSpec struct {
	Column    string
	Ascending bool
}

// SearchSpec is the declarative search configuration consumed by the
// aggregation engine, produced by parsing wiki markup or a JSON AJAX
// payload. It is immutable once parsed.
type SearchSpec struct {
	Schemas []SchemaRef
	Cols    []string
	Filters []FilterSpec
	Sorts   []SortSpec
	Limit   int
	Offset  int
	Mode    string
	// DynamicFilters enables user-supplied runtime filter toggles on
	// rendered aggregations.
	DynamicFilters bool
}

// searchSpecWire mirrors the JSON wire format:
//
//	{"schemas": [["project", "p"]], "cols": ["%pageid%", "num"],
//	 "filter": [["num", ">=", "3", "AND"]], "sort": ["^num"],
//	 "limit": 20, "offset": 0, "mode": "table", "dynfilters": false}
type searchSpecWire struct {
	Schemas    []json.RawMessage `json:"schemas"`
	Cols       []string          `json:"cols"`
	Filter     []json.RawMessage `json:"filter"`
	Sort       []string          `json:"sort"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	Mode       string            `json:"mode"`
	DynFilters bool              `json:"dynfilters"`
}

// ParseSearchSpec decodes the JSON wire format into a SearchSpec,
// normalizing comparators, sort directions and the aggregation mode.
func ParseSearchSpec(data []byte) (*SearchSpec, error) {
	var wire searchSpecWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, Configf("malformed search configuration: %v", err)
	}

	spec := &SearchSpec{
		Cols:           wire.Cols,
		Limit:          wire.Limit,
		Offset:         wire.Offset,
		Mode:           wire.Mode,
		DynamicFilters: wire.DynFilters,
	}
	if spec.Mode == "" {
		spec.Mode = ModeTable
	}
	switch spec.Mode {
	case ModeTable, ModeList, ModeCloud, ModeValue:
	default:
		return nil, Configf("unknown aggregation mode %q", spec.Mode)
	}
	if spec.Limit < 0 {
		return nil, Configf("limit must not be negative")
	}
	if spec.Offset < 0 {
		return nil, Configf("offset must not be negative")
	}

	for _, raw := range wire.Schemas {
		ref, err := parseSchemaRef(raw)
		if err != nil {
			return nil, err
		}
		spec.Schemas = append(spec.Schemas, ref)
	}
	if len(spec.Schemas) == 0 {
		return nil, Configf("no schema given")
	}

	for i, raw := range wire.Filter {
		f, err := parseFilterSpec(raw)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			f.Connector = "AND"
		}
		spec.Filters = append(spec.Filters, f)
	}

	for _, s := range wire.Sort {
		spec.Sorts = append(spec.Sorts, ParseSortKey(s))
	}

	return spec, nil
}

// ParseSortKey interprets a sort selector. A leading ^ or - marks
// descending order.
func ParseSortKey(s string) SortSpec {
	asc := true
	if strings.HasPrefix(s, "^") || strings.HasPrefix(s, "-") {
		asc = false
		s = s[1:]
	}
	return SortSpec{Column: s, Ascending: asc}
}

// parseSchemaRef accepts "name" or ["name", "alias"].
func parseSchemaRef(raw json.RawMessage) (SchemaRef, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return SchemaRef{Table: name}, nil
	}
	var pair []string
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) == 0 || len(pair) > 2 {
		return SchemaRef{}, Configf("malformed schema reference %s", string(raw))
	}
	ref := SchemaRef{Table: pair[0]}
	if len(pair) == 2 {
		ref.Alias = pair[1]
	}
	return ref, nil
}

// parseFilterSpec accepts the [column, comparator, value, connector]
// tuple. Value may be a string or a list of strings.
func parseFilterSpec(raw json.RawMessage) (FilterSpec, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) < 3 || len(tuple) > 4 {
		return FilterSpec{}, Configf("malformed filter clause %s", string(raw))
	}
	var f FilterSpec
	if err := json.Unmarshal(tuple[0], &f.Column); err != nil {
		return FilterSpec{}, Configf("malformed filter column in %s", string(raw))
	}
	var comp string
	if err := json.Unmarshal(tuple[1], &comp); err != nil {
		return FilterSpec{}, Configf("malformed filter comparator in %s", string(raw))
	}
	norm, err := NormalizeComparator(comp)
	if err != nil {
		return FilterSpec{}, err
	}
	f.Comparator = norm

	var single string
	if err := json.Unmarshal(tuple[2], &single); err == nil {
		f.Value = single
	} else {
		var many []string
		if err := json.Unmarshal(tuple[2], &many); err != nil {
			return FilterSpec{}, Configf("malformed filter value in %s", string(raw))
		}
		f.Value = many
	}

	f.Connector = "AND"
	if len(tuple) == 4 {
		var conn string
		if err := json.Unmarshal(tuple[3], &conn); err != nil {
			return FilterSpec{}, Configf("malformed filter connector in %s", string(raw))
		}
		conn = strings.ToUpper(strings.TrimSpace(conn))
		if conn != "AND" && conn != "OR" {
			return FilterSpec{}, Configf("filter connector must be AND or OR, got %q", conn)
		}
		f.Connector = conn
	}
	return f, nil
}

// String renders the spec back to a human-readable summary used in error
// messages and logs.
func (s *SearchSpec) String() string {
	names := make([]string, len(s.Schemas))
	for i, ref := range s.Schemas {
		names[i] = ref.Table
	}
	return fmt.Sprintf("search{%s cols=%d filters=%d mode=%s}",
		strings.Join(names, ","), len(s.Cols), len(s.Filters), s.Mode)
}
