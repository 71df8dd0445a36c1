package search

import (
	"strings"

	"github.com/pagegrid/pagegrid/internal/wiki"
)

// Placeholder tokens usable in filter values, resolved against the
// request context when the filter is registered.
const (
	PlaceholderUser  = "$USER$"
	PlaceholderPage  = "$PAGE$"
	PlaceholderToday = "$TODAY$"
)

// resolvePlaceholders substitutes the dynamic tokens in a filter value.
func resolvePlaceholders(value any, wctx *wiki.Context) any {
	switch v := value.(type) {
	case string:
		return substitute(v, wctx)
	case []string:
		out := make([]string, len(v))
		for i, one := range v {
			out[i] = substitute(one, wctx)
		}
		return out
	default:
		return value
	}
}

func substitute(v string, wctx *wiki.Context) string {
	if !strings.Contains(v, "$") {
		return v
	}
	v = strings.ReplaceAll(v, PlaceholderUser, wctx.User)
	v = strings.ReplaceAll(v, PlaceholderPage, wctx.Page)
	v = strings.ReplaceAll(v, PlaceholderToday, wctx.Now().Format("2006-01-02"))
	return v
}
