package schema_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.uber.org/zap"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/wiki"
	"github.com/pagegrid/pagegrid/pkg/types"
)

func testBackend(t *testing.T) *store.Backend {
	t.Helper()
	b, err := store.Open(filepath.Join(t.TempDir(), "test.db"), wiki.NewMemoryHost(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("opening backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func col(label, typ, config string, sort int) types.ColumnExport {
	return types.ColumnExport{
		Label:         label,
		Type:          typ,
		Config:        []byte(config),
		Sort:          sort,
		VisibleEditor: true,
		VisiblePage:   true,
		Enabled:       true,
	}
}

func projectExport() *types.SchemaExport {
	tags := col("tags", "Tag", "", 3)
	tags.Multi = true
	return &types.SchemaExport{
		Schema:  "projects",
		Editors: []string{"@staff"},
		Columns: []types.ColumnExport{
			col("title", "Text", `{"prefix":"# "}`, 1),
			col("rating", "Decimal", `{"min":"0","max":"10"}`, 2),
			tags,
		},
	}
}

func TestBuildAndLoad(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	s, err := schema.Build(ctx, b.DB(), projectExport(), "alice", 1700000000, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Table() != "projects" || s.Global() {
		t.Errorf("table = %q, global = %v", s.Table(), s.Global())
	}
	if s.User() != "alice" || s.TimeStamp() != 1700000000 {
		t.Errorf("version meta = %q/%d", s.User(), s.TimeStamp())
	}
	if len(s.Editors()) != 1 || s.Editors()[0] != "@staff" {
		t.Errorf("editors = %v", s.Editors())
	}

	cols := s.Columns()
	if len(cols) != 3 {
		t.Fatalf("columns = %d, want 3", len(cols))
	}
	for i, c := range cols {
		if c.ColRef() != i+1 {
			t.Errorf("col %q ref = %d, want %d", c.Label(), c.ColRef(), i+1)
		}
	}
	if cols[0].ColName() != "col1" || cols[0].Type().Name() != "Text" {
		t.Errorf("col[0] = %q %q", cols[0].ColName(), cols[0].Type().Name())
	}
	if !cols[2].Multi() {
		t.Error("tags should be multi")
	}

	// The physical tables exist with one value column per reference.
	if _, err := b.DB().Exec(`SELECT pid, rid, rev, latest, col1, col2, col3 FROM data_projects`); err != nil {
		t.Errorf("data table shape: %v", err)
	}
	if _, err := b.DB().Exec(`SELECT colref, pid, rid, rev, row, value FROM multi_projects`); err != nil {
		t.Errorf("multi table shape: %v", err)
	}
}

func TestBuildRejects(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	bad := projectExport()
	bad.Schema = "No-Caps"
	if _, err := schema.Build(ctx, b.DB(), bad, "alice", 1, b.Hooks()); !errors.Is(err, types.ErrBadTableName) {
		t.Errorf("bad name error = %v", err)
	}

	empty := &types.SchemaExport{Schema: "empty"}
	if _, err := schema.Build(ctx, b.DB(), empty, "alice", 1, b.Hooks()); err == nil {
		t.Error("schema without columns should fail")
	}

	unknown := projectExport()
	unknown.Columns[0].Type = "Widget"
	if _, err := schema.Build(ctx, b.DB(), unknown, "alice", 1, b.Hooks()); !errors.Is(err, types.ErrTypeUnknown) {
		t.Errorf("unknown type error = %v", err)
	}

	// Nothing of the rejected builds may persist.
	if _, err := schema.Load(ctx, b.DB(), "projects", "", b.Hooks()); !errors.Is(err, types.ErrSchemaNotFound) {
		t.Errorf("load after rejected builds = %v", err)
	}
}

func TestBuildRenamesDuplicateLabels(t *testing.T) {
	b := testBackend(t)
	exp := &types.SchemaExport{
		Schema: "dups",
		Columns: []types.ColumnExport{
			col("tag", "Text", "", 1),
			col("Tag", "Text", "", 2),
		},
	}
	s, err := schema.Build(context.Background(), b.DB(), exp, "alice", 1, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Columns()[0].Label() != "tag" || s.Columns()[1].Label() != "Tag2" {
		t.Errorf("labels = %q, %q", s.Columns()[0].Label(), s.Columns()[1].Label())
	}
}

func TestBuildKeepsColumnRefsAcrossVersions(t *testing.T) {
	b := testBackend(t)
	ctx := context.Background()

	v1 := &types.SchemaExport{Schema: "evolving", Columns: []types.ColumnExport{
		col("a", "Text", "", 1),
		col("b", "Text", "", 2),
	}}
	if _, err := schema.Build(ctx, b.DB(), v1, "alice", 1, b.Hooks()); err != nil {
		t.Fatalf("v1: %v", err)
	}

	// b survives and keeps its reference; c is new.
	v2 := &types.SchemaExport{Schema: "evolving", Columns: []types.ColumnExport{
		col("b", "Text", "", 1),
		col("c", "Text", "", 2),
	}}
	s2, err := schema.Build(ctx, b.DB(), v2, "alice", 2, b.Hooks())
	if err != nil {
		t.Fatalf("v2: %v", err)
	}
	if s2.Columns()[0].ColRef() != 2 {
		t.Errorf("b ref = %d, want 2", s2.Columns()[0].ColRef())
	}
	if s2.Columns()[1].ColRef() != 3 {
		t.Errorf("c ref = %d, want 3", s2.Columns()[1].ColRef())
	}

	// A retired reference is never handed out again: d must not get
	// a's old index 1.
	v3 := &types.SchemaExport{Schema: "evolving", Columns: []types.ColumnExport{
		col("b", "Text", "", 1),
		col("d", "Text", "", 2),
	}}
	s3, err := schema.Build(ctx, b.DB(), v3, "alice", 3, b.Hooks())
	if err != nil {
		t.Fatalf("v3: %v", err)
	}
	if s3.Columns()[1].ColRef() != 4 {
		t.Errorf("d ref = %d, want 4", s3.Columns()[1].ColRef())
	}
}

func TestFindColumn(t *testing.T) {
	b := testBackend(t)
	hidden := col("hidden", "Text", "", 3)
	hidden.Enabled = false
	exp := &types.SchemaExport{Schema: "i18n", Columns: []types.ColumnExport{
		col("name_en", "Text", "", 1),
		col("name_de", "Text", "", 2),
		hidden,
	}}
	s, err := schema.Build(context.Background(), b.DB(), exp, "alice", 1, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		name  string
		lang  string
		want  string
		isErr bool
	}{
		{name: "name_en", want: "name_en"},
		{name: "NAME_EN", want: "name_en"},
		{name: "name_$LANG", lang: "de", want: "name_de"},
		{name: "name_$LANG", lang: "fr", want: "name_en"},
		{name: "hidden", isErr: true},
		{name: "nosuch", isErr: true},
	}
	for _, tt := range tests {
		c, err := s.FindColumn(tt.name, tt.lang)
		if tt.isErr {
			if !errors.Is(err, types.ErrColumnNotFound) {
				t.Errorf("FindColumn(%q) err = %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("FindColumn(%q): %v", tt.name, err)
			continue
		}
		if c.Label() != tt.want {
			t.Errorf("FindColumn(%q) = %q, want %q", tt.name, c.Label(), tt.want)
		}
	}

	pageid, err := s.FindColumn(types.ColPageID, "")
	if err != nil {
		t.Fatalf("pseudo column: %v", err)
	}
	if !pageid.IsVirtual() || pageid.ColName() != "" {
		t.Errorf("pseudo column = ref %d, name %q", pageid.ColRef(), pageid.ColName())
	}
}

func TestValidateRow(t *testing.T) {
	b := testBackend(t)
	note := col("note", "AutoSummary", "", 4)
	exp := projectExport()
	exp.Schema = "rows"
	exp.Columns = append(exp.Columns, note)
	s, err := schema.Build(context.Background(), b.DB(), exp, "alice", 1, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	vals, errs := s.ValidateRow(map[string]any{
		"Title":  "  Alpha  ",
		"rating": "7,5",
		"tags":   []any{"web", "api"},
	})
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if vals.First(1) != "Alpha" {
		t.Errorf("title = %q", vals.First(1))
	}
	if vals.First(2) != "7.5" {
		t.Errorf("rating = %q", vals.First(2))
	}
	if tags := vals[3]; len(tags) != 2 || tags[0] != "web" || tags[1] != "api" {
		t.Errorf("tags = %v", tags)
	}
	// AutoSummary is never taken from input.
	if vals.First(4) != "" {
		t.Errorf("note = %q", vals.First(4))
	}

	_, errs = s.ValidateRow(map[string]any{
		"rating": "11",
		"title":  []string{"a", "b"},
	})
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want 2", errs)
	}
	var fe *types.FieldError
	if !errors.As(errs[0], &fe) {
		t.Fatalf("error type = %T", errs[0])
	}

	empty, errs := s.ValidateRow(map[string]any{})
	if len(errs) != 0 {
		t.Fatalf("empty row errs = %v", errs)
	}
	if !empty.IsEmpty() {
		t.Error("row without input should be empty")
	}
}

func TestUserCanEdit(t *testing.T) {
	b := testBackend(t)
	s, err := schema.Build(context.Background(), b.DB(), projectExport(), "alice", 1, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := wiki.NewContext("", "alice", "")
	if s.UserCanEdit(ctx) {
		t.Error("alice is not in @staff")
	}
	ctx.Groups = []string{"staff"}
	if !s.UserCanEdit(ctx) {
		t.Error("staff member should edit")
	}

	open := &types.SchemaExport{Schema: "open", Columns: []types.ColumnExport{col("a", "Text", "", 1)}}
	so, err := schema.Build(context.Background(), b.DB(), open, "alice", 1, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !so.UserCanEdit(wiki.NewContext("", "anyone", "")) {
		t.Error("schema without editors should be editable by everyone")
	}
}

func TestExportGolden(t *testing.T) {
	b := testBackend(t)
	s, err := schema.Build(context.Background(), b.DB(), projectExport(), "alice", 1700000000, b.Hooks())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := s.Export().Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g := goldie.New(t)
	g.Assert(t, "schema_export", data)
}

func TestValidateTableName(t *testing.T) {
	for _, ok := range []string{"a", "projects", "a_1"} {
		if err := schema.ValidateTableName(ok); err != nil {
			t.Errorf("ValidateTableName(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "1abc", "Caps", "semi;colon", "data drop"} {
		if err := schema.ValidateTableName(bad); !errors.Is(err, types.ErrBadTableName) {
			t.Errorf("ValidateTableName(%q) = %v", bad, err)
		}
	}
}
