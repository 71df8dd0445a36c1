package field

import (
	"reflect"
	"testing"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
)

// renderFilter runs one Filter call against a fresh builder and returns
// the WHERE clause and its bound parameters.
func renderFilter(t *testing.T, typ Type, comp string, value any) (string, []any) {
	t.Helper()
	qb := sqlbuilder.NewQueryBuilder()
	qb.AddTable("data_project", "T1")
	if err := typ.Filter(qb.Filters(), "T1", "col1", comp, value); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	return qb.WhereSQL()
}

func TestFilterSQL(t *testing.T) {
	tests := []struct {
		name       string
		typ        string
		config     string
		comp       string
		value      any
		wantSQL    string
		wantParams []any
	}{
		{
			name: "text equality binds value",
			typ:  "Text", comp: "=", value: "x'; DROP TABLE data_project;--",
			wantSQL:    "T1.col1 = ?",
			wantParams: []any{"x'; DROP TABLE data_project;--"},
		},
		{
			name: "contains wraps in wildcards",
			typ:  "Text", comp: "~", value: "web",
			wantSQL:    "T1.col1 LIKE ?",
			wantParams: []any{"%web%"},
		},
		{
			name: "slice values or together",
			typ:  "Text", comp: "=", value: []string{"a", "b"},
			wantSQL:    "(T1.col1 = ? OR T1.col1 = ?)",
			wantParams: []any{"a", "b"},
		},
		{
			name: "affix joins config literals",
			typ:  "Text", config: `{"prefix":"[","postfix":"]"}`,
			comp: "=", value: "[x]",
			wantSQL:    "('[' || T1.col1 || ']' = ? AND T1.col1 != '')",
			wantParams: []any{"[x]"},
		},
		{
			name: "decimal casts both sides",
			typ:  "Decimal", comp: ">", value: "9.5",
			wantSQL:    "CAST(T1.col1 AS DECIMAL) > CAST(? AS DECIMAL)",
			wantParams: []any{"9.5"},
		},
		{
			name: "decimal pattern stays textual",
			typ:  "Decimal", comp: "LIKE", value: "9%",
			wantSQL:    "T1.col1 LIKE ?",
			wantParams: []any{"9%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := mustType(t, tt.typ, tt.config)
			sql, params := renderFilter(t, typ, tt.comp, tt.value)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(params, tt.wantParams) {
				t.Errorf("params = %v, want %v", params, tt.wantParams)
			}
		})
	}
}

func TestUnresolvedLookupFilterIsDropped(t *testing.T) {
	typ := mustType(t, "Lookup", `{"schema":"clients"}`)
	sql, params := renderFilter(t, typ, "=", "anything")
	// A broken reference stays out of the statement entirely; adding a
	// clause here would empty the whole result under AND.
	if sql != "" || len(params) != 0 {
		t.Errorf("sql = %q params = %v, want no clause", sql, params)
	}
	if typ.(*Lookup).RefError() != nil {
		// Config names a schema, so no resolution error yet.
		t.Error("configured lookup should not carry a ref error before loading")
	}
}

func TestJoinCondition(t *testing.T) {
	typ := mustType(t, "Text", "")
	jc := JoinContext{
		LeftAlias: "T2", LeftCol: "pid", LeftTable: "projects",
		RightAlias: "T1", RightCol: "pid",
	}

	cond, params := typ.JoinCondition(jc, typ)
	want := "T2.pid = T1.pid AND (T2.pid = '' OR (PG_ACCESS(T2.pid) > 0 AND PG_PAGEEXISTS(T2.pid) = 1 AND " +
		"EXISTS(SELECT 1 FROM assignments WHERE pid = T2.pid AND tbl = ? AND assigned = 1)))"
	if cond != want {
		t.Errorf("cond = %q\nwant   %q", cond, want)
	}
	if !reflect.DeepEqual(params, []any{"projects"}) {
		t.Errorf("params = %v, want [projects]", params)
	}

	// A global left side carries no page restriction.
	jc.LeftGlobal = true
	cond, params = typ.JoinCondition(jc, typ)
	if cond != "T2.pid = T1.pid" {
		t.Errorf("cond = %q, want plain equality", cond)
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want none", params)
	}
}
