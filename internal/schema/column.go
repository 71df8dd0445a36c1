// Package schema models the named, versioned table definitions:
// ordered typed columns, editability, pseudo-columns, and the
// build/load/export lifecycle against the definition tables.
package schema

import (
	"fmt"

	"github.com/pagegrid/pagegrid/internal/field"
)

// Column is one typed field of a Schema.
type Column struct {
	typ       field.Type
	label     string
	colref    int
	enabled   bool
	multi     bool
	visEditor bool
	visPage   bool
	sort      int
}

// NewColumn builds a column. ColRef 0 marks a virtual pseudo-column
// with no backing storage column.
func NewColumn(typ field.Type, label string, colref int, multi, enabled, visEditor, visPage bool, sort int) *Column {
	return &Column{
		typ:       typ,
		label:     label,
		colref:    colref,
		enabled:   enabled,
		multi:     multi,
		visEditor: visEditor,
		visPage:   visPage,
		sort:      sort,
	}
}

// Type returns the column's type instance.
func (c *Column) Type() field.Type { return c.typ }

// Label returns the human name, unique within the schema.
func (c *Column) Label() string { return c.label }

// ColRef returns the column's reference index within its schema.
func (c *Column) ColRef() int { return c.colref }

// ColName returns the physical column name inside the data table, or
// "" for virtual columns.
func (c *Column) ColName() string {
	if c.colref <= 0 {
		return ""
	}
	return fmt.Sprintf("col%d", c.colref)
}

// Multi reports whether the column holds an ordered list of values.
func (c *Column) Multi() bool { return c.multi }

// Enabled reports whether the column is part of the current layout.
func (c *Column) Enabled() bool { return c.enabled }

// Sort returns the column's position.
func (c *Column) Sort() int { return c.sort }

// VisibleInEditor reports editor visibility.
func (c *Column) VisibleInEditor() bool { return c.visEditor }

// VisibleInPage reports rendered-page visibility.
func (c *Column) VisibleInPage() bool { return c.visPage }

// IsVirtual reports whether the column is a synthetic pseudo-column.
func (c *Column) IsVirtual() bool { return c.colref <= 0 }
