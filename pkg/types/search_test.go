package types

import (
	"errors"
	"testing"
)

func TestParseSearchSpec(t *testing.T) {
	raw := `{
		"schemas": [["project", "p"], "tasks"],
		"cols": ["%pageid%", "p.title", "num"],
		"filter": [["num", ">=", "3"], ["tag", "~", ["web", "api"], "OR"]],
		"sort": ["^num", "title"],
		"limit": 20,
		"offset": 40,
		"mode": "table",
		"dynfilters": true
	}`
	spec, err := ParseSearchSpec([]byte(raw))
	if err != nil {
		t.Fatalf("ParseSearchSpec: %v", err)
	}

	if len(spec.Schemas) != 2 {
		t.Fatalf("schemas = %d, want 2", len(spec.Schemas))
	}
	if spec.Schemas[0] != (SchemaRef{Table: "project", Alias: "p"}) {
		t.Errorf("schema[0] = %+v", spec.Schemas[0])
	}
	if spec.Schemas[1] != (SchemaRef{Table: "tasks"}) {
		t.Errorf("schema[1] = %+v", spec.Schemas[1])
	}

	if len(spec.Filters) != 2 {
		t.Fatalf("filters = %d, want 2", len(spec.Filters))
	}
	if spec.Filters[0].Comparator != CompGreaterEq {
		t.Errorf("filter[0] comparator = %q", spec.Filters[0].Comparator)
	}
	// The first filter's connector is always AND.
	if spec.Filters[0].Connector != "AND" {
		t.Errorf("filter[0] connector = %q", spec.Filters[0].Connector)
	}
	if spec.Filters[1].Connector != "OR" {
		t.Errorf("filter[1] connector = %q", spec.Filters[1].Connector)
	}
	if vals, ok := spec.Filters[1].Value.([]string); !ok || len(vals) != 2 {
		t.Errorf("filter[1] value = %#v", spec.Filters[1].Value)
	}

	if spec.Sorts[0].Ascending || spec.Sorts[0].Column != "num" {
		t.Errorf("sort[0] = %+v", spec.Sorts[0])
	}
	if !spec.Sorts[1].Ascending || spec.Sorts[1].Column != "title" {
		t.Errorf("sort[1] = %+v", spec.Sorts[1])
	}

	if spec.Limit != 20 || spec.Offset != 40 || !spec.DynamicFilters {
		t.Errorf("pagination = %+v", spec)
	}
}

func TestParseSearchSpecDefaults(t *testing.T) {
	spec, err := ParseSearchSpec([]byte(`{"schemas": ["project"], "cols": ["a"]}`))
	if err != nil {
		t.Fatalf("ParseSearchSpec: %v", err)
	}
	if spec.Mode != ModeTable {
		t.Errorf("mode = %q, want table", spec.Mode)
	}
}

func TestParseSearchSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no schema", raw: `{"cols": ["a"]}`},
		{name: "bad mode", raw: `{"schemas": ["p"], "mode": "pie"}`},
		{name: "bad comparator", raw: `{"schemas": ["p"], "filter": [["a", "<>>", "1"]]}`},
		{name: "bad connector", raw: `{"schemas": ["p"], "filter": [["a", "=", "1", "XOR"]]}`},
		{name: "negative limit", raw: `{"schemas": ["p"], "limit": -1}`},
		{name: "filter arity", raw: `{"schemas": ["p"], "filter": [["a", "="]]}`},
		{name: "not json", raw: `schemas: p`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSearchSpec([]byte(tt.raw))
			if err == nil {
				t.Fatal("want error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error type = %T, want *ConfigError", err)
			}
		})
	}
}

func TestNormalizeComparator(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"==", CompEqual},
		{"<>", CompNotEqual},
		{"like", CompLike},
		{"not like", CompNotLike},
		{"*~", CompContains},
		{"!~", CompNotContains},
		{">=", CompGreaterEq},
	}
	for _, tt := range tests {
		got, err := NormalizeComparator(tt.in)
		if err != nil {
			t.Errorf("NormalizeComparator(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeComparator(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := NormalizeComparator("=>"); err == nil {
		t.Error("NormalizeComparator(=>) should fail")
	}
}

func TestSchemaExportRoundTrip(t *testing.T) {
	doc := `{
  "schema": "project",
  "editors": ["@staff"],
  "columns": [
    {
      "label": "title",
      "type": "Text",
      "config": {"prefix": ">"},
      "sort": 1,
      "visible_editor": true,
      "visible_page": true,
      "enabled": true
    }
  ]
}`
	exp, err := ParseSchemaExport([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSchemaExport: %v", err)
	}
	if exp.Schema != "project" || len(exp.Columns) != 1 {
		t.Fatalf("export = %+v", exp)
	}
	if exp.Columns[0].Type != "Text" {
		t.Errorf("column type = %q", exp.Columns[0].Type)
	}

	if _, err := ParseSchemaExport([]byte(`{"columns": []}`)); err == nil {
		t.Error("missing schema name should fail")
	}
}
