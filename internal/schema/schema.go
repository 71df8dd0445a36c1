package schema

import (
	"fmt"
	"strings"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/internal/wiki"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// Schema is one loaded table definition: the latest structure version
// of a named table, with its ordered typed columns.
type Schema struct {
	id      int64
	table   string
	ts      int64
	user    string
	global  bool
	editors []string
	cols    []*Column
	hooks   field.Hooks
}

// ID returns the structure version's row id.
func (s *Schema) ID() int64 { return s.id }

// Table returns the schema name.
func (s *Schema) Table() string { return s.table }

// TimeStamp returns when this structure version was created.
func (s *Schema) TimeStamp() int64 { return s.ts }

// User returns who created this structure version.
func (s *Schema) User() string { return s.user }

// Global reports whether rows live independently of pages (a lookup
// schema in the UI's terms).
func (s *Schema) Global() bool { return s.global }

// Editors returns the users and @groups allowed to edit rows. Empty
// means everyone.
func (s *Schema) Editors() []string { return s.editors }

// Columns returns all columns, enabled or not, in layout order.
func (s *Schema) Columns() []*Column { return s.cols }

// EnabledColumns returns the columns active in the current layout.
func (s *Schema) EnabledColumns() []*Column {
	out := make([]*Column, 0, len(s.cols))
	for _, c := range s.cols {
		if c.Enabled() {
			out = append(out, c)
		}
	}
	return out
}

// DataTable returns the physical single-value table name.
func (s *Schema) DataTable() string { return "data_" + s.table }

// MultiTable returns the physical multi-value side table name.
func (s *Schema) MultiTable() string { return "multi_" + s.table }

// UserCanEdit reports whether the context user may edit rows of this
// schema. An empty editors list means everyone; entries starting with @
// name groups.
func (s *Schema) UserCanEdit(ctx *wiki.Context) bool {
	if len(s.editors) == 0 {
		return true
	}
	for _, e := range s.editors {
		if strings.HasPrefix(e, "@") {
			if ctx.InGroup(e) {
				return true
			}
			continue
		}
		if strings.EqualFold(e, ctx.User) {
			return true
		}
	}
	return false
}

// findLabel returns the enabled column whose label matches
// case-insensitively, or nil.
func (s *Schema) findLabel(label string) *Column {
	for _, c := range s.cols {
		if c.Enabled() && strings.EqualFold(c.Label(), label) {
			return c
		}
	}
	return nil
}

// FindColumn resolves a requested column name against this schema.
// Resolution order: exact label match, then the $LANG placeholder
// substituted with the context language, then with "en", then the
// reserved pseudo-column tokens. Disabled columns never resolve.
func (s *Schema) FindColumn(name, lang string) (*Column, error) {
	if c := s.findLabel(name); c != nil {
		return c, nil
	}
	if strings.Contains(name, "$LANG") {
		if lang != "" {
			if c := s.findLabel(strings.ReplaceAll(name, "$LANG", lang)); c != nil {
				return c, nil
			}
		}
		if c := s.findLabel(strings.ReplaceAll(name, "$LANG", "en")); c != nil {
			return c, nil
		}
	}
	if c := s.PseudoColumn(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q in schema %q", types.ErrColumnNotFound, name, s.table)
}

// PseudoColumn builds the virtual column for a reserved token, or nil
// when the name is not a token. Pseudo-columns are constructed on
// demand so each aggregation gets fresh type instances.
func (s *Schema) PseudoColumn(name string) *Column {
	switch strings.ToLower(name) {
	case types.ColPageID:
		return NewColumn(field.NewPageColumn(s.hooks, false), types.ColPageID, 0, false, true, false, false, 0)
	case types.ColTitle:
		return NewColumn(field.NewPageColumn(s.hooks, true), types.ColTitle, 0, false, true, false, false, 0)
	case types.ColRowID:
		return NewColumn(field.NewRowColumn(s.hooks), types.ColRowID, 0, false, true, false, false, 0)
	case types.ColLastUpdate:
		return NewColumn(field.NewRevisionColumn(s.hooks), types.ColLastUpdate, 0, false, true, false, false, 0)
	case types.ColLastEditor:
		return NewColumn(field.NewUserColumn(s.hooks), types.ColLastEditor, 0, false, true, false, false, 0)
	case types.ColLastSummary:
		return NewColumn(field.NewSummaryColumn(s.hooks), types.ColLastSummary, 0, false, true, false, false, 0)
	}
	return nil
}

// ColumnByRef returns the column with the given reference index, or nil.
func (s *Schema) ColumnByRef(ref int) *Column {
	for _, c := range s.cols {
		if c.ColRef() == ref {
			return c
		}
	}
	return nil
}
