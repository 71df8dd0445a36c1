package schema

import "github.com/pagegrid/pagegrid/pkg/types"

// Export renders the schema's current structure version as the backup
// document. Importing the result through Build reproduces the
// structure, including each type's configuration.
func (s *Schema) Export() *types.SchemaExport {
	exp := &types.SchemaExport{
		Schema:  s.table,
		Lookup:  s.global,
		Editors: s.editors,
	}
	for _, c := range s.cols {
		exp.Columns = append(exp.Columns, types.ColumnExport{
			Label:         c.Label(),
			Type:          c.Type().Name(),
			Config:        c.Type().ConfigJSON(),
			Multi:         c.Multi(),
			Sort:          c.Sort(),
			VisibleEditor: c.VisibleInEditor(),
			VisiblePage:   c.VisibleInPage(),
			Enabled:       c.Enabled(),
		})
	}
	return exp
}
