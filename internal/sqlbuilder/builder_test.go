package sqlbuilder

import (
	"reflect"
	"testing"
)

func TestSimpleSelect(t *testing.T) {
	qb := NewQueryBuilder()
	alias := qb.AddTable("data_project", "")
	if alias != "T1" {
		t.Fatalf("alias = %q, want T1", alias)
	}
	qb.AddSelectColumn(alias, "col1", "C1")
	qb.Filters().Add(alias+".latest = 1")

	sql, params := qb.SQL()
	want := "SELECT T1.col1 AS C1 FROM data_project AS T1 WHERE T1.latest = 1"
	if sql != want {
		t.Errorf("sql = %q\nwant  %q", sql, want)
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want none", params)
	}
}

func TestGeneratedAliasesAreUnique(t *testing.T) {
	qb := NewQueryBuilder()
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		a := qb.GenerateTableAlias()
		if seen[a] {
			t.Fatalf("alias %q handed out twice", a)
		}
		seen[a] = true
	}
}

func TestJoinParamOrder(t *testing.T) {
	// JOIN ON parameters must render before WHERE parameters because
	// the FROM clause precedes WHERE in the statement.
	qb := NewQueryBuilder()
	a := qb.AddTable("data_project", "")
	b := qb.GenerateTableAlias()
	qb.AddLeftJoin(a, "data_tasks", b, a+".pid = "+b+".pid AND "+b+".tag = ?", "join-param")
	qb.Filters().Add(a+".col1 = ?", "where-param")

	sql, params := qb.SQL()
	wantSQL := "SELECT * FROM data_project AS T1 " +
		"LEFT OUTER JOIN data_tasks AS T2 ON (T1.pid = T2.pid AND T2.tag = ?) " +
		"WHERE T1.col1 = ?"
	if sql != wantSQL {
		t.Errorf("sql = %q\nwant  %q", sql, wantSQL)
	}
	if !reflect.DeepEqual(params, []any{"join-param", "where-param"}) {
		t.Errorf("params = %v", params)
	}
}

func TestSelectStatementReplacement(t *testing.T) {
	qb := NewQueryBuilder()
	a := qb.AddTable("data_project", "")
	qb.AddSelectColumn(a, "col1", "C1")

	expr, ok := qb.GetSelectStatement("C1")
	if !ok || expr != "T1.col1" {
		t.Fatalf("GetSelectStatement = %q, %v", expr, ok)
	}

	// Re-adding wraps in place without growing the select list.
	qb.AddSelectStatement("PG_CONCAT_DISTINCT("+expr+", ', ')", "C1")
	if qb.SelectCount() != 1 {
		t.Fatalf("select count = %d, want 1", qb.SelectCount())
	}
	sql, _ := qb.SQL()
	want := "SELECT PG_CONCAT_DISTINCT(T1.col1, ', ') AS C1 FROM data_project AS T1"
	if sql != want {
		t.Errorf("sql = %q", sql)
	}
}

func TestGroupOrderPagination(t *testing.T) {
	qb := NewQueryBuilder()
	a := qb.AddTable("data_project", "")
	qb.AddSelectColumn(a, "col1", "C1")
	qb.AddGroupByColumn(a, "pid")
	qb.AddGroupByColumn(a, "rid")
	qb.AddOrderBy(a + ".col1 COLLATE NOCASE ASC")
	qb.AddOrderBy(a + ".rev DESC")
	qb.SetPagination(10, 20)

	sql, _ := qb.SQL()
	want := "SELECT T1.col1 AS C1 FROM data_project AS T1" +
		" GROUP BY T1.pid, T1.rid" +
		" ORDER BY T1.col1 COLLATE NOCASE ASC, T1.rev DESC" +
		" LIMIT 10 OFFSET 20"
	if sql != want {
		t.Errorf("sql = %q\nwant  %q", sql, want)
	}
}

func TestZeroLimitDisablesPagination(t *testing.T) {
	qb := NewQueryBuilder()
	qb.AddTable("titles", "")
	qb.SetPagination(0, 5)
	sql, _ := qb.SQL()
	if sql != "SELECT * FROM titles AS T1" {
		t.Errorf("sql = %q", sql)
	}
}
