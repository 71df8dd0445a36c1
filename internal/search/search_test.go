package search_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/internal/search"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/wiki"
	"github.com/pagegrid/pagegrid/pkg/types"
)

type env struct {
	b    *store.Backend
	host *wiki.MemoryHost
	// clientRID is the row id of the seeded "Acme" client.
	clientRID string
}

func exportCol(label, typ, config string, sort int) types.ColumnExport {
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

func saveCtx(page, user string, sec int64) *wiki.Context {
	wctx := wiki.NewContext(page, user, "")
	wctx.Clock = func() time.Time { return time.Unix(sec, 0) }
	return wctx
}

// newEnv seeds a small world: a page schema "projects" with a lookup
// into the global schema "clients", three pages (one read-restricted),
// and a second page schema "extra" populated on one page only.
func newEnv(t *testing.T) *env {
	t.Helper()
	host := wiki.NewMemoryHost()
	b, err := store.Open(filepath.Join(t.TempDir(), "test.db"), host, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	e := &env{b: b, host: host}

	ctx := context.Background()
	host.AddUser("root", true)
	for _, pid := range []string{"proj:a", "proj:b", "proj:secret"} {
		host.AddPage(pid, pid)
	}
	host.DenyRead("proj:secret")

	clients, err := schema.Build(ctx, b.DB(), &types.SchemaExport{
		Schema:  "clients",
		Lookup:  true,
		Columns: []types.ColumnExport{exportCol("name", "Text", "", 1)},
	}, "tester", 1, b.Hooks())
	require.NoError(t, err)
	vals, errs := clients.ValidateRow(map[string]any{"name": "Acme"})
	require.Empty(t, errs)
	cid, _, err := b.SaveRow(ctx, clients, saveCtx("", "alice", 100), types.RecordID{}, vals, "")
	require.NoError(t, err)
	e.clientRID = cid.Row

	tags := exportCol("tags", "Tag", "", 3)
	tags.Multi = true
	projects, err := schema.Build(ctx, b.DB(), &types.SchemaExport{
		Schema: "projects",
		Columns: []types.ColumnExport{
			exportCol("title", "Text", "", 1),
			exportCol("rating", "Decimal", "", 2),
			tags,
			exportCol("client", "Lookup", `{"schema":"clients","field":"name"}`, 4),
		},
	}, "tester", 1, b.Hooks())
	require.NoError(t, err)

	rows := []struct {
		pid    string
		input  map[string]any
		atSecs int64
	}{
		{"proj:a", map[string]any{
			"title": "Alpha", "rating": "3", "tags": []string{"web", "api"},
			"client": fmt.Sprintf(`["","%s"]`, e.clientRID),
		}, 1000},
		{"proj:b", map[string]any{"title": "Beta", "rating": "10", "tags": []string{"web"}}, 1001},
		{"proj:secret", map[string]any{"title": "Secret", "rating": "5"}, 1002},
	}
	for _, r := range rows {
		vals, errs := projects.ValidateRow(r.input)
		require.Empty(t, errs)
		_, _, err := b.SaveRow(ctx, projects, saveCtx(r.pid, "alice", r.atSecs),
			types.RecordID{Page: r.pid}, vals, "")
		require.NoError(t, err)
	}

	extra, err := schema.Build(ctx, b.DB(), &types.SchemaExport{
		Schema:  "extra",
		Columns: []types.ColumnExport{exportCol("owner", "Text", "", 1)},
	}, "tester", 1, b.Hooks())
	require.NoError(t, err)
	vals, errs = extra.ValidateRow(map[string]any{"owner": "eve"})
	require.Empty(t, errs)
	_, _, err = b.SaveRow(ctx, extra, saveCtx("proj:a", "alice", 1003),
		types.RecordID{Page: "proj:a"}, vals, "")
	require.NoError(t, err)

	return e
}

func (e *env) run(t *testing.T, user, rawSpec string) *search.Result {
	t.Helper()
	s := e.search(t, user, rawSpec)
	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	return res
}

func (e *env) search(t *testing.T, user, rawSpec string) *search.Search {
	t.Helper()
	spec, err := types.ParseSearchSpec([]byte(rawSpec))
	require.NoError(t, err)
	s, err := search.FromSpec(context.Background(), e.b, wiki.NewContext("", user, ""), zap.NewNop().Sugar(), spec)
	require.NoError(t, err)
	return s
}

func cells(res *search.Result) [][]string {
	out := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.Display
		}
	}
	return out
}

func TestTableAggregation(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title", "rating"],
		"sort": ["rating"]
	}`)

	// proj:secret is read-restricted and invisible to alice; the
	// numeric sort puts 3 before 10.
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, [][]string{{"Alpha", "3"}, {"Beta", "10"}}, cells(res))
	assert.Equal(t, "projects.title", res.Columns[0].FullName())
}

func TestAdminSeesRestrictedPages(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "root", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"sort": ["title"]
	}`)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, [][]string{{"Alpha"}, {"Beta"}, {"Secret"}}, cells(res))
}

func TestNumericFilter(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"filter": [["rating", ">", "4"]]
	}`)
	// The comparison is numeric: textually "10" sorts below "4".
	assert.Equal(t, [][]string{{"Beta"}}, cells(res))
}

func TestFilterConnectors(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "root", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"filter": [["title", "=", "Alpha"], ["rating", ">", "4", "OR"]],
		"sort": ["title"]
	}`)
	assert.Equal(t, [][]string{{"Alpha"}, {"Beta"}, {"Secret"}}, cells(res))
}

func TestLimitOffsetKeepsTotal(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"sort": ["title"],
		"limit": 1,
		"offset": 1
	}`)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, [][]string{{"Beta"}}, cells(res))
}

func TestMultiValueColumns(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title", "tags"],
		"filter": [["title", "=", "Alpha"]]
	}`)
	require.Len(t, res.Rows, 1)
	got := strings.Split(cells(res)[0][1], ", ")
	assert.ElementsMatch(t, []string{"web", "api"}, got)

	// Filtering on one multi value must not narrow what is displayed.
	res = e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title", "tags"],
		"filter": [["tags", "=", "api"]]
	}`)
	require.Len(t, res.Rows, 1)
	got = strings.Split(cells(res)[0][1], ", ")
	assert.ElementsMatch(t, []string{"web", "api"}, got)
}

func TestFilterValuesStayBound(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"filter": [["title", "=", "x' OR '1'='1"]]
	}`)
	assert.Zero(t, res.Total)
}

func TestLookupColumn(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title", "client"],
		"filter": [["title", "=", "Alpha"]]
	}`)
	assert.Equal(t, [][]string{{"Alpha", "Acme"}}, cells(res))

	// Filters on the lookup column compare the referenced value.
	res = e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"filter": [["client", "=", "Acme"]]
	}`)
	assert.Equal(t, [][]string{{"Alpha"}}, cells(res))
}

func TestSchemaChaining(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects", "extra"],
		"cols": ["title", "owner"]
	}`)
	// Only proj:a has rows in both schemas.
	assert.Equal(t, [][]string{{"Alpha", "eve"}}, cells(res))
}

func TestGlobalSchemaCannotBeCombined(t *testing.T) {
	e := newEnv(t)
	spec, err := types.ParseSearchSpec([]byte(`{
		"schemas": ["projects", "clients"],
		"cols": ["title"]
	}`))
	require.NoError(t, err)
	_, err = search.FromSpec(context.Background(), e.b, wiki.NewContext("", "alice", ""), zap.NewNop().Sugar(), spec)
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValueFlavor(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"sort": ["title"],
		"mode": "value"
	}`)
	assert.Equal(t, []string{"Alpha", "Beta"}, res.Values())
}

func TestCloudFlavor(t *testing.T) {
	e := newEnv(t)
	s := e.search(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["tags"],
		"mode": "cloud"
	}`)
	cloud, err := s.ExecuteCloud(context.Background())
	require.NoError(t, err)

	// Weighted by occurrence, displayed alphabetically.
	require.Len(t, cloud.Items, 2)
	assert.Equal(t, search.CloudItem{Value: "api", Weight: 1}, cloud.Items[0])
	assert.Equal(t, search.CloudItem{Value: "web", Weight: 2}, cloud.Items[1])
}

func TestCloudRejectsSorts(t *testing.T) {
	e := newEnv(t)
	spec, err := types.ParseSearchSpec([]byte(`{
		"schemas": ["projects"],
		"cols": ["tags"],
		"sort": ["tags"],
		"mode": "cloud"
	}`))
	require.NoError(t, err)
	_, err = search.FromSpec(context.Background(), e.b, wiki.NewContext("", "alice", ""), zap.NewNop().Sugar(), spec)
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestUserPlaceholder(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "Alpha", `{
		"schemas": ["projects"],
		"cols": ["title"],
		"filter": [["title", "=", "$USER$"]]
	}`)
	assert.Equal(t, [][]string{{"Alpha"}}, cells(res))
}

func TestTombstonesAreExcluded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	projects, err := schema.Load(ctx, e.b.DB(), "projects", "", e.b.Hooks())
	require.NoError(t, err)
	_, err = e.b.ClearRow(ctx, projects, saveCtx("proj:b", "alice", 5000),
		types.RecordID{Page: "proj:b"}, "removed")
	require.NoError(t, err)

	res := e.run(t, "alice", `{
		"schemas": ["projects"],
		"cols": ["title"]
	}`)
	assert.Equal(t, [][]string{{"Alpha"}}, cells(res))
}

func TestClearedRowsWithSummaryStayHidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	notes, err := schema.Build(ctx, e.b.DB(), &types.SchemaExport{
		Schema: "notes",
		Columns: []types.ColumnExport{
			exportCol("body", "Text", "", 1),
			exportCol("note", "AutoSummary", "", 2),
		},
	}, "tester", 1, e.b.Hooks())
	require.NoError(t, err)

	vals, errs := notes.ValidateRow(map[string]any{"body": "keep me"})
	require.Empty(t, errs)
	_, _, err = e.b.SaveRow(ctx, notes, saveCtx("proj:a", "alice", 3000),
		types.RecordID{Page: "proj:a"}, vals, "created")
	require.NoError(t, err)

	_, err = e.b.ClearRow(ctx, notes, saveCtx("proj:a", "alice", 4000),
		types.RecordID{Page: "proj:a"}, "page deleted")
	require.NoError(t, err)

	// The deletion reason lands in the summary column; the record is a
	// tombstone all the same.
	res := e.run(t, "alice", `{
		"schemas": ["notes"],
		"cols": ["body"]
	}`)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Rows)
}

func TestUnknownColumnFails(t *testing.T) {
	e := newEnv(t)
	spec, err := types.ParseSearchSpec([]byte(`{
		"schemas": ["projects"],
		"cols": ["nosuch"]
	}`))
	require.NoError(t, err)
	_, err = search.FromSpec(context.Background(), e.b, wiki.NewContext("", "alice", ""), zap.NewNop().Sugar(), spec)
	require.ErrorIs(t, err, types.ErrColumnNotFound)
}
