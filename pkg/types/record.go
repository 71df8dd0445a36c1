package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordID identifies one versioned row: a page id (empty for rows of
// global schemas), a row id (empty for page rows, UUID for global rows)
// and a revision timestamp in unix seconds. Rev 0 addresses the latest
// revision.
type RecordID struct {
	Page string
	Row  string
	Rev  int64
}

// IsGlobal reports whether the record belongs to a global (non-page)
// schema.
func (r RecordID) IsGlobal() bool { return r.Page == "" }

// LookupRef is the decoded form of a Lookup column's stored value: a
// JSON-encoded [page-id, row-id] tuple pointing at a row in another
// schema. The encoded string never travels past the storage boundary.
type LookupRef struct {
	Page string
	Row  string
}

// ParseLookupRef decodes the stored JSON tuple. Legacy data may carry
// the row id as a JSON number; both forms are accepted.
func ParseLookupRef(raw string) (LookupRef, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &tuple); err != nil {
		return LookupRef{}, fmt.Errorf("parsing lookup reference %q: %w", raw, err)
	}
	if len(tuple) != 2 {
		return LookupRef{}, fmt.Errorf("parsing lookup reference %q: want 2 elements, got %d", raw, len(tuple))
	}
	var ref LookupRef
	if err := json.Unmarshal(tuple[0], &ref.Page); err != nil {
		return LookupRef{}, fmt.Errorf("parsing lookup page id in %q: %w", raw, err)
	}
	if err := json.Unmarshal(tuple[1], &ref.Row); err != nil {
		// Row id stored as a number by older exports.
		var n int64
		if err2 := json.Unmarshal(tuple[1], &n); err2 != nil {
			return LookupRef{}, fmt.Errorf("parsing lookup row id in %q: %w", raw, err)
		}
		ref.Row = strconv.FormatInt(n, 10)
	}
	return ref, nil
}

// String encodes the reference back into its wire form.
func (r LookupRef) String() string {
	b, _ := json.Marshal([2]string{r.Page, r.Row})
	return string(b)
}

// IsZero reports whether the reference points nowhere.
func (r LookupRef) IsZero() bool { return r.Page == "" && r.Row == "" }
