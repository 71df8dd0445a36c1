package field

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
)

// Virtual pseudo-column types back the synthetic selectors (%pageid%,
// %title%, %rowid%, %lastupdate%, %lasteditor%, %lastsummary%). They
// read fixed columns of the data row or the denormalized titles table
// and are usable wherever a real column is.

// PageColumn serves %pageid% and, with titles enabled, %title%.
type PageColumn struct {
	BaseType
	useTitles bool
}

// NewPageColumn builds the %pageid% (or %title%) pseudo type.
func NewPageColumn(hooks Hooks, useTitles bool) *PageColumn {
	return &PageColumn{BaseType: newBase("PageColumn", hooks), useTitles: useTitles}
}

// joinTitles joins the titles side table against the data row's page
// id. Every caller gets its own alias, so several virtual columns can
// hit titles in one statement.
func joinTitles(qb *sqlbuilder.QueryBuilder, tableAlias string) string {
	alias := qb.GenerateTableAlias()
	qb.AddLeftJoin(tableAlias, "titles", alias,
		fmt.Sprintf("%s.pid = %s.pid", alias, tableAlias))
	return alias
}

func (t *PageColumn) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	if t.useTitles {
		joined := joinTitles(qb, tableAlias)
		qb.AddSelectStatement(
			fmt.Sprintf("COALESCE(%s.title, %s.pid)", joined, tableAlias), alias)
		return
	}
	qb.AddSelectColumn(tableAlias, "pid", alias)
}

func (t *PageColumn) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	if !t.useTitles {
		return t.BaseType.Filter(grp, tableAlias, "pid", comp, value)
	}
	joined := joinTitles(grp.Builder(), tableAlias)
	return filterValues(grp, value, func(g *sqlbuilder.FilterGroup, v string) error {
		idSQL, idBound, err := comparison(tableAlias+".pid", comp, v)
		if err != nil {
			return err
		}
		titleSQL, titleBound, err := comparison(joined+".title", comp, v)
		if err != nil {
			return err
		}
		sub := g.Or()
		sub.Add(idSQL, idBound...)
		sub.Add(titleSQL, titleBound...)
		return nil
	})
}

func (t *PageColumn) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	if t.useTitles {
		joined := joinTitles(qb, tableAlias)
		qb.AddOrderBy(fmt.Sprintf("COALESCE(%s.title, %s.pid) COLLATE NOCASE %s",
			joined, tableAlias, direction(ascending)))
		return
	}
	t.BaseType.Sort(qb, tableAlias, "pid", ascending)
}

// RowColumn serves %rowid%.
type RowColumn struct {
	BaseType
}

// NewRowColumn builds the %rowid% pseudo type.
func NewRowColumn(hooks Hooks) *RowColumn {
	return &RowColumn{BaseType: newBase("RowColumn", hooks)}
}

func (t *RowColumn) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	qb.AddSelectColumn(tableAlias, "rid", alias)
}

func (t *RowColumn) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return t.BaseType.Filter(grp, tableAlias, "rid", comp, value)
}

func (t *RowColumn) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	t.BaseType.Sort(qb, tableAlias, "rid", ascending)
}

// RevisionColumn serves %lastupdate%: the row's revision timestamp.
type RevisionColumn struct {
	BaseType
}

// NewRevisionColumn builds the %lastupdate% pseudo type.
func NewRevisionColumn(hooks Hooks) *RevisionColumn {
	return &RevisionColumn{BaseType: newBase("RevisionColumn", hooks)}
}

func (t *RevisionColumn) DisplayValue(raw string) string {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n == 0 {
		return raw
	}
	return time.Unix(n, 0).UTC().Format("2006-01-02 15:04")
}

// CompareValue converts date or datetime filter input into the unix
// timestamp the rev column stores.
func (t *RevisionColumn) CompareValue(raw string) string {
	clean := strings.TrimSpace(raw)
	for _, layout := range dateTimeFormats {
		if parsed, err := time.Parse(layout, clean); err == nil {
			return strconv.FormatInt(parsed.UTC().Unix(), 10)
		}
	}
	return clean
}

func (t *RevisionColumn) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	qb.AddSelectColumn(tableAlias, "rev", alias)
}

func (t *RevisionColumn) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	return filterValues(grp, value, func(g *sqlbuilder.FilterGroup, v string) error {
		sql, bound, err := comparison(tableAlias+".rev", comp, t.CompareValue(v))
		if err != nil {
			return err
		}
		g.Add(sql, bound...)
		return nil
	})
}

func (t *RevisionColumn) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	qb.AddOrderBy(fmt.Sprintf("%s.rev %s", tableAlias, direction(ascending)))
}

// titlesColumn factors the two pseudo types reading a titles column.
type titlesColumn struct {
	BaseType
	column string
}

func (t *titlesColumn) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	joined := joinTitles(qb, tableAlias)
	qb.AddSelectColumn(joined, t.column, alias)
}

func (t *titlesColumn) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	joined := joinTitles(grp.Builder(), tableAlias)
	return t.BaseType.Filter(grp, joined, t.column, comp, value)
}

func (t *titlesColumn) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	joined := joinTitles(qb, tableAlias)
	t.BaseType.Sort(qb, joined, t.column, ascending)
}

// UserColumn serves %lasteditor%.
type UserColumn struct {
	titlesColumn
}

// NewUserColumn builds the %lasteditor% pseudo type.
func NewUserColumn(hooks Hooks) *UserColumn {
	return &UserColumn{titlesColumn{BaseType: newBase("UserColumn", hooks), column: "lasteditor"}}
}

// SummaryColumn serves %lastsummary%.
type SummaryColumn struct {
	titlesColumn
}

// NewSummaryColumn builds the %lastsummary% pseudo type.
func NewSummaryColumn(hooks Hooks) *SummaryColumn {
	return &SummaryColumn{titlesColumn{BaseType: newBase("SummaryColumn", hooks), column: "lastsummary"}}
}
