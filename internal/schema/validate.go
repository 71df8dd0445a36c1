package schema

import (
	"fmt"
	"strings"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// RowValues holds a validated row keyed by column reference. Every
// enabled column is present; single-value columns carry exactly one
// entry.
type RowValues map[int][]string

// IsEmpty reports whether every value is blank, which makes a save a
// tombstone.
func (v RowValues) IsEmpty() bool {
	for _, vals := range v {
		for _, s := range vals {
			if s != "" {
				return false
			}
		}
	}
	return true
}

// First returns the single value of a column, or "" when absent.
func (v RowValues) First(ref int) string {
	if vals, ok := v[ref]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// ValidateRow checks raw input against every enabled column and returns
// the cleaned values. Input is keyed by column label, case-insensitive;
// values are strings or lists of strings. Missing columns validate as
// empty. All failures are collected, each wrapped with its column
// label, so the caller can report every bad field at once.
func (s *Schema) ValidateRow(input map[string]any) (RowValues, []error) {
	byLabel := make(map[string]any, len(input))
	for k, v := range input {
		byLabel[strings.ToLower(k)] = v
	}

	out := RowValues{}
	var errs []error
	for _, c := range s.EnabledColumns() {
		if _, ok := c.Type().(*field.AutoSummary); ok {
			// Filled from the save summary, never from input.
			out[c.ColRef()] = []string{""}
			continue
		}
		raw, err := coerceValues(byLabel[strings.ToLower(c.Label())])
		if err != nil {
			errs = append(errs, &types.FieldError{Label: c.Label(), Err: err})
			continue
		}
		if !c.Multi() && len(raw) > 1 {
			errs = append(errs, &types.FieldError{Label: c.Label(),
				Err: types.Configf("multiple values for a single-value column")})
			continue
		}

		var clean []string
		failed := false
		for _, v := range raw {
			cv, err := c.Type().Validate(v)
			if err != nil {
				errs = append(errs, &types.FieldError{Label: c.Label(), Err: err})
				failed = true
				continue
			}
			if cv != "" {
				clean = append(clean, cv)
			}
		}
		if failed {
			continue
		}
		if !c.Multi() {
			if len(clean) == 0 {
				clean = []string{""}
			}
		}
		out[c.ColRef()] = clean
	}
	return out, errs
}

// coerceValues accepts a string, []string or []any of strings.
func coerceValues(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return []string{""}, nil
	case string:
		return []string{val}, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected value of type %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected value of type %T", v)
	}
}
