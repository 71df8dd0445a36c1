package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Pattern maps a page id pattern to a schema. Patterns follow the page
// id conventions: "*" matches one namespace step, "**" a whole
// subtree, and a leading "/" introduces a regular expression.
type Pattern struct {
	Pattern string
	Table   string
}

// MatchPagePattern reports whether a page id falls under a pattern.
func MatchPagePattern(pattern, pid string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	pid = strings.ToLower(pid)
	switch {
	case pattern == "":
		return false
	case pattern == "**":
		return true
	case strings.HasPrefix(pattern, "/"):
		expr := strings.Trim(pattern, "/")
		re, err := regexp.Compile(expr)
		if err != nil {
			return false
		}
		return re.MatchString(pid)
	case strings.HasSuffix(pattern, ":**"):
		return strings.HasPrefix(pid, strings.TrimSuffix(pattern, "**"))
	case strings.HasSuffix(pattern, ":*"):
		prefix := strings.TrimSuffix(pattern, "*")
		rest, ok := strings.CutPrefix(pid, prefix)
		return ok && !strings.Contains(rest, ":")
	default:
		return pattern == pid
	}
}

// AddPattern registers a pattern and assigns the schema to every page
// already known to the store that the pattern covers.
func (b *Backend) AddPattern(ctx context.Context, pattern, tbl string) error {
	if _, err := b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments_patterns (pattern, tbl) VALUES (?, ?)`,
		pattern, tbl); err != nil {
		return fmt.Errorf("storing pattern: %w", err)
	}
	pids, err := b.knownPages(ctx)
	if err != nil {
		return err
	}
	for _, pid := range pids {
		if !MatchPagePattern(pattern, pid) {
			continue
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO assignments (pid, tbl, assigned) VALUES (?, ?, 1)
			 ON CONFLICT(pid, tbl) DO UPDATE SET assigned = 1`, pid, tbl); err != nil {
			return fmt.Errorf("assigning %q to %q: %w", tbl, pid, err)
		}
	}
	b.log.Infow("pattern added", "pattern", pattern, "schema", tbl)
	return nil
}

// RemovePattern drops a pattern and revokes assignments it granted,
// except on pages that still hold data for the schema.
func (b *Backend) RemovePattern(ctx context.Context, pattern, tbl string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM assignments_patterns WHERE pattern = ? AND tbl = ?`, pattern, tbl); err != nil {
		return fmt.Errorf("removing pattern: %w", err)
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT pid FROM assignments WHERE tbl = ? AND assigned = 1`, tbl)
	if err != nil {
		return fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()
	var pids []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return fmt.Errorf("listing assignments: %w", err)
		}
		pids = append(pids, pid)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing assignments: %w", err)
	}

	patterns, err := b.Patterns(ctx)
	if err != nil {
		return err
	}
	for _, pid := range pids {
		if matchesAny(patterns, tbl, pid) {
			continue
		}
		hasData, err := b.hasLatestData(ctx, tbl, pid)
		if err != nil {
			return err
		}
		if hasData {
			continue
		}
		if _, err := b.db.ExecContext(ctx,
			`UPDATE assignments SET assigned = 0 WHERE pid = ? AND tbl = ?`, pid, tbl); err != nil {
			return fmt.Errorf("revoking assignment: %w", err)
		}
	}
	b.log.Infow("pattern removed", "pattern", pattern, "schema", tbl)
	return nil
}

// Patterns returns all registered patterns.
func (b *Backend) Patterns(ctx context.Context) ([]Pattern, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT pattern, tbl FROM assignments_patterns ORDER BY tbl, pattern`)
	if err != nil {
		return nil, fmt.Errorf("listing patterns: %w", err)
	}
	defer rows.Close()
	var out []Pattern
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.Pattern, &p.Table); err != nil {
			return nil, fmt.Errorf("listing patterns: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PageAssignments returns the schemas a page should offer in its
// editor: pattern matches plus schemas the page already holds data for.
func (b *Backend) PageAssignments(ctx context.Context, pid string) ([]string, error) {
	tables := map[string]bool{}

	patterns, err := b.Patterns(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if MatchPagePattern(p.Pattern, pid) {
			tables[p.Table] = true
		}
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT tbl FROM assignments WHERE pid = ? AND assigned = 1`, pid)
	if err != nil {
		return nil, fmt.Errorf("reading assignments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tbl string
		if err := rows.Scan(&tbl); err != nil {
			return nil, fmt.Errorf("reading assignments: %w", err)
		}
		tables[tbl] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading assignments: %w", err)
	}

	out := make([]string, 0, len(tables))
	for tbl := range tables {
		out = append(out, tbl)
	}
	sort.Strings(out)
	return out, nil
}

// refreshAssignments recomputes a page's assignment rows from the
// patterns, keeping assignments backed by stored data.
func (b *Backend) refreshAssignments(ctx context.Context, pid string) error {
	patterns, err := b.Patterns(ctx)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		if !MatchPagePattern(p.Pattern, pid) {
			continue
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO assignments (pid, tbl, assigned) VALUES (?, ?, 1)
			 ON CONFLICT(pid, tbl) DO UPDATE SET assigned = 1`, pid, p.Table); err != nil {
			return fmt.Errorf("assigning %q to %q: %w", p.Table, pid, err)
		}
	}
	return nil
}

func matchesAny(patterns []Pattern, tbl, pid string) bool {
	for _, p := range patterns {
		if p.Table == tbl && MatchPagePattern(p.Pattern, pid) {
			return true
		}
	}
	return false
}

// knownPages returns every page id the store has seen, via titles and
// assignments.
func (b *Backend) knownPages(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT pid FROM titles UNION SELECT pid FROM assignments`)
	if err != nil {
		return nil, fmt.Errorf("listing known pages: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("listing known pages: %w", err)
		}
		if pid != "" {
			out = append(out, pid)
		}
	}
	return out, rows.Err()
}

// hasLatestData reports whether the page holds a live (non-tombstone)
// latest revision in the schema's data table.
func (b *Backend) hasLatestData(ctx context.Context, tbl, pid string) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM data_%s WHERE pid = ? AND latest = 1`, tbl), pid).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking data for %q: %w", pid, err)
	}
	return n > 0, nil
}
