package sqlbuilder

import "strings"

// Boolean connectors for filter groups.
const (
	OpAnd = "AND"
	OpOr  = "OR"
)

// FilterGroup is one node of the nested boolean WHERE/ON expression
// tree. Members are either leaf comparisons (a SQL fragment with its
// bound parameters) or nested groups; they combine under the group's
// connector.
type FilterGroup struct {
	qb      *QueryBuilder
	op      string
	members []filterMember
}

type filterMember struct {
	sql    string
	params []any
	group  *FilterGroup
}

func newFilterGroup(qb *QueryBuilder, op string) *FilterGroup {
	return &FilterGroup{qb: qb, op: op}
}

// Op returns the group's connector.
func (g *FilterGroup) Op() string { return g.op }

// Builder returns the owning query builder, for filter producers that
// need to register joins alongside their comparison.
func (g *FilterGroup) Builder() *QueryBuilder { return g.qb }

// Add appends a leaf comparison. The fragment may contain ?
// placeholders matched by params in order.
func (g *FilterGroup) Add(sql string, params ...any) {
	if sql == "" {
		return
	}
	g.members = append(g.members, filterMember{sql: sql, params: params})
}

// Group appends and returns a nested group with the given connector.
func (g *FilterGroup) Group(op string) *FilterGroup {
	child := newFilterGroup(g.qb, op)
	g.members = append(g.members, filterMember{group: child})
	return child
}

// And appends a nested AND group.
func (g *FilterGroup) And() *FilterGroup { return g.Group(OpAnd) }

// Or appends a nested OR group.
func (g *FilterGroup) Or() *FilterGroup { return g.Group(OpOr) }

// Fold re-parents the group's current members under a single subgroup
// and switches the group to the given connector, preserving
// left-to-right grouping when a filter chain changes connectors:
// a AND b followed by OR c becomes (a AND b) OR c.
func (g *FilterGroup) Fold(op string) {
	if op == g.op || len(g.members) <= 1 {
		g.op = op
		return
	}
	inner := newFilterGroup(g.qb, g.op)
	inner.members = g.members
	g.members = []filterMember{{group: inner}}
	g.op = op
}

// Empty reports whether the group renders to nothing.
func (g *FilterGroup) Empty() bool {
	for _, m := range g.members {
		if m.group != nil {
			if !m.group.Empty() {
				return false
			}
			continue
		}
		return false
	}
	return true
}

// render returns the group's SQL and parameters in placeholder order.
// Empty groups render to an empty string; single-member groups are not
// parenthesized.
func (g *FilterGroup) render() (string, []any) {
	var parts []string
	var params []any
	for _, m := range g.members {
		if m.group != nil {
			sql, p := m.group.render()
			if sql == "" {
				continue
			}
			parts = append(parts, sql)
			params = append(params, p...)
			continue
		}
		parts = append(parts, m.sql)
		params = append(params, m.params...)
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], params
	default:
		return "(" + strings.Join(parts, " "+g.op+" ") + ")", params
	}
}
