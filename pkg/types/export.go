package types

import "encoding/json"

// SchemaExport is the JSON document used for schema backup and restore.
// It round-trips losslessly: every column's type name and per-type
// configuration object survive export followed by import.
type SchemaExport struct {
	Schema  string         `json:"schema"`
	Lookup  bool           `json:"lookup,omitempty"`
	Editors []string       `json:"editors,omitempty"`
	Columns []ColumnExport `json:"columns"`
}

// ColumnExport describes one column in the export document. Config is
// the type's own configuration object, kept opaque here so each type
// controls its shape.
type ColumnExport struct {
	Label         string          `json:"label"`
	Type          string          `json:"type"`
	Config        json.RawMessage `json:"config,omitempty"`
	Multi         bool            `json:"multi,omitempty"`
	Sort          int             `json:"sort"`
	VisibleEditor bool            `json:"visible_editor"`
	VisiblePage   bool            `json:"visible_page"`
	Enabled       bool            `json:"enabled"`
}

// ParseSchemaExport decodes an export document.
func ParseSchemaExport(data []byte) (*SchemaExport, error) {
	var exp SchemaExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, Configf("malformed schema export: %v", err)
	}
	if exp.Schema == "" {
		return nil, Configf("schema export is missing the schema name")
	}
	return &exp, nil
}

// Encode renders the export document with stable two-space indentation.
func (e *SchemaExport) Encode() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}
