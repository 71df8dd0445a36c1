package search

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
)

// CloudItem is one distinct value with its occurrence count.
type CloudItem struct {
	Value  string
	Weight int
}

// CloudResult is the cloud flavor's output: the most frequent values,
// ordered alphabetically for display after the frequency cut.
type CloudResult struct {
	Col   *BoundColumn
	Items []CloudItem
}

// executeCloud runs the frequency aggregation: distinct values of one
// column across live, readable rows, weighted by occurrence. The limit
// keeps the top values; display order is collated per the request
// language.
func (s *Search) executeCloud(ctx context.Context) (*Result, error) {
	cloud, err := s.ExecuteCloud(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: s.columns, Total: len(cloud.Items)}
	for _, item := range cloud.Items {
		res.Rows = append(res.Rows, []Value{
			{Col: cloud.Col, Display: item.Value},
			{Col: cloud.Col, Display: fmt.Sprintf("%d", item.Weight)},
		})
	}
	return res, nil
}

// ExecuteCloud runs the cloud aggregation in its native shape.
func (s *Search) ExecuteCloud(ctx context.Context) (*CloudResult, error) {
	if err := s.checkMode(); err != nil {
		return nil, err
	}
	bc := s.columns[0]
	sc := s.schemas[bc.scIdx]

	qb := sqlbuilder.NewQueryBuilder()
	root := qb.Filters()
	alias := qb.AddTable(sc.DataTable(), "")
	root.Add(alias + ".latest = 1")
	if !sc.Global() {
		cond, params := field.PageReadCondition(alias, sc.Table())
		root.Add(cond, params...)
	}

	valueAlias, valueTable := alias, bc.Col.ColName()
	if bc.Col.Multi() {
		valueAlias = s.joinMulti(qb, bc, alias)
		valueTable = "value"
	}
	bc.Col.Type().Select(qb, valueAlias, valueTable, "tag")
	expr, _ := qb.GetSelectStatement("tag")
	qb.AddSelectStatement("COUNT(*)", "weight")
	root.Add(expr + " != ''")
	qb.AddGroupByStatement(expr)
	qb.AddOrderBy("weight DESC")
	qb.SetPagination(s.limit, s.offset)

	s.backend.BindUser(s.wctx.User)
	sql, params := qb.SQL()
	s.log.Debugw("cloud query", "sql", sql, "params", len(params))

	rows, err := s.backend.DB().QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("running cloud aggregation: %w", err)
	}
	defer rows.Close()

	out := &CloudResult{Col: bc}
	for rows.Next() {
		var item CloudItem
		if err := rows.Scan(&item.Value, &item.Weight); err != nil {
			return nil, fmt.Errorf("scanning cloud row: %w", err)
		}
		out.Items = append(out.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading cloud rows: %w", err)
	}

	s.collateItems(out.Items)
	return out, nil
}

// collateItems orders the surviving values alphabetically under the
// request language's collation rules, the order a rendered cloud uses.
func (s *Search) collateItems(items []CloudItem) {
	tag, err := language.Parse(s.wctx.Lang())
	if err != nil {
		tag = language.English
	}
	col := collate.New(tag, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return col.CompareString(items[i].Value, items[j].Value) < 0
	})
}
