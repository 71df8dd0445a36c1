package field

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pagegrid/pagegrid/internal/sqlbuilder"
	"github.com/pagegrid/pagegrid/pkg/types"
)

type pageConfig struct {
	BaseConfig
	// UseTitles stores a JSON [id, title] tuple instead of the bare
	// page id, so aggregations can show titles without a host lookup.
	UseTitles bool `json:"usetitles,omitempty"`
	// Namespace is prepended to relative ids on validation.
	Namespace string `json:"namespace,omitempty"`
}

var pageIDPattern = regexp.MustCompile(`^[a-z0-9_\-.]+(:[a-z0-9_\-.]+)*$`)

// Page stores a reference to a wiki page. With usetitles the stored
// value is a JSON [id, title] tuple captured at save time.
type Page struct {
	BaseType
	cfg pageConfig
}

func newPage(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Page{BaseType: newBase("Page", hooks)}
	cfg, err := decodeConfig(raw, &t.cfg)
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

// cleanPageID normalizes a page id the way the host does: lower case,
// spaces become underscores, stray colons trimmed.
func cleanPageID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.Trim(id, ":")
	for strings.Contains(id, "::") {
		id = strings.ReplaceAll(id, "::", ":")
	}
	return id
}

func (t *Page) Validate(raw string) (string, error) {
	clean := cleanPageID(raw)
	if clean == "" {
		if strings.TrimSpace(raw) == "" {
			return "", nil
		}
		return "", types.NewValidationError("page", raw)
	}
	if t.cfg.Namespace != "" && !strings.Contains(clean, ":") {
		clean = cleanPageID(t.cfg.Namespace) + ":" + clean
	}
	if !pageIDPattern.MatchString(clean) {
		return "", types.NewValidationError("page", raw)
	}
	return clean, nil
}

// StoreValue wraps the clean id into the stored representation. The
// store layer calls this after validation, where the title is captured.
func (t *Page) StoreValue(clean string) string {
	if clean == "" || !t.cfg.UseTitles {
		return clean
	}
	title := clean
	if t.hooks.PageTitle != nil {
		if ht := t.hooks.PageTitle(clean); ht != "" {
			title = ht
		}
	}
	b, _ := json.Marshal([2]string{clean, title})
	return string(b)
}

// pageIDExpr yields the page id regardless of which representation a
// row carries.
func pageIDExpr(col string) string {
	return fmt.Sprintf("CASE WHEN json_valid(%s) THEN json_extract(%s, '$[0]') ELSE %s END", col, col, col)
}

// pageTitleExpr yields the displayed value: the stored title when
// present, the id otherwise.
func pageTitleExpr(col string) string {
	return fmt.Sprintf("CASE WHEN json_valid(%s) THEN json_extract(%s, '$[1]') ELSE %s END", col, col, col)
}

func (t *Page) DisplayValue(raw string) string {
	if !strings.HasPrefix(raw, "[") {
		return raw
	}
	ref, err := types.ParseLookupRef(raw)
	if err != nil {
		return raw
	}
	// The second tuple element is the title here.
	return ref.Row
}

// RawID extracts the page id from either representation.
func (t *Page) RawID(raw string) string {
	if !strings.HasPrefix(raw, "[") {
		return raw
	}
	ref, err := types.ParseLookupRef(raw)
	if err != nil {
		return raw
	}
	return ref.Page
}

func (t *Page) Select(qb *sqlbuilder.QueryBuilder, tableAlias, colName, alias string) {
	col := tableAlias + "." + colName
	if t.cfg.UseTitles {
		qb.AddSelectStatement(pageTitleExpr(col), alias)
		return
	}
	qb.AddSelectColumn(tableAlias, colName, alias)
}

// Filter matches against the page id, and also the stored title when
// titles are in use.
func (t *Page) Filter(grp *sqlbuilder.FilterGroup, tableAlias, colName, comp string, value any) error {
	col := tableAlias + "." + colName
	return filterValues(grp, value, func(g *sqlbuilder.FilterGroup, v string) error {
		if !t.cfg.UseTitles {
			sql, bound, err := comparison(col, comp, v)
			if err != nil {
				return err
			}
			g.Add(sql, bound...)
			return nil
		}
		idSQL, idBound, err := comparison(pageIDExpr(col), comp, v)
		if err != nil {
			return err
		}
		titleSQL, titleBound, err := comparison(pageTitleExpr(col), comp, v)
		if err != nil {
			return err
		}
		sub := g.Or()
		sub.Add(idSQL, idBound...)
		sub.Add(titleSQL, titleBound...)
		return nil
	})
}

func (t *Page) Sort(qb *sqlbuilder.QueryBuilder, tableAlias, colName string, ascending bool) {
	expr := tableAlias + "." + colName
	if t.cfg.UseTitles {
		expr = pageTitleExpr(expr)
	}
	qb.AddOrderBy(fmt.Sprintf("%s COLLATE NOCASE %s", expr, direction(ascending)))
}

// Media stores a media (file) id; same id rules as pages but no title
// indirection.
type Media struct {
	BaseType
}

func newMedia(raw json.RawMessage, hooks Hooks) (Type, error) {
	t := &Media{BaseType: newBase("Media", hooks)}
	cfg, err := decodeConfig(raw, &struct{ BaseConfig }{})
	if err != nil {
		return nil, err
	}
	t.config = cfg
	return t, nil
}

func (t *Media) Validate(raw string) (string, error) {
	clean := cleanPageID(raw)
	if clean == "" {
		if strings.TrimSpace(raw) == "" {
			return "", nil
		}
		return "", types.NewValidationError("media", raw)
	}
	if strings.Contains(raw, "://") {
		return "", types.NewValidationError("media", raw)
	}
	return clean, nil
}
