package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/internal/wiki"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// Row is one record of a schema: its identity and the values of all
// enabled columns.
type Row struct {
	ID     types.RecordID
	Values schema.RowValues
}

// GetRow fetches a record. With ID.Rev zero the latest revision is
// returned; otherwise the exact revision. A record that was never
// saved comes back with empty values and revision zero, so editors can
// render a blank form without a special case.
func (b *Backend) GetRow(ctx context.Context, s *schema.Schema, id types.RecordID) (*Row, error) {
	row := &Row{ID: id, Values: schema.RowValues{}}
	cols := storageColumns(s)
	for _, c := range cols {
		if c.Multi() {
			row.Values[c.ColRef()] = nil
		} else {
			row.Values[c.ColRef()] = []string{""}
		}
	}

	names := make([]string, 0, len(cols)+1)
	names = append(names, "rev")
	for _, c := range cols {
		names = append(names, c.ColName())
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE pid = ? AND rid = ?",
		strings.Join(names, ", "), s.DataTable())
	args := []any{id.Page, id.Row}
	if id.Rev > 0 {
		query += " AND rev = ?"
		args = append(args, id.Rev)
	} else {
		query += " AND latest = 1"
	}

	dest := make([]any, 0, len(cols)+1)
	dest = append(dest, &row.ID.Rev)
	single := make([]string, len(cols))
	for i := range cols {
		dest = append(dest, &single[i])
	}
	err := b.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		row.ID.Rev = 0
		return row, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s row: %w", s.Table(), err)
	}
	for i, c := range cols {
		if !c.Multi() {
			row.Values[c.ColRef()] = []string{single[i]}
		}
	}

	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT colref, value FROM %s WHERE pid = ? AND rid = ? AND rev = ? ORDER BY colref, row",
		s.MultiTable()), id.Page, id.Row, row.ID.Rev)
	if err != nil {
		return nil, fmt.Errorf("reading %s multi values: %w", s.Table(), err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ref   int
			value string
		)
		if err := rows.Scan(&ref, &value); err != nil {
			return nil, fmt.Errorf("reading %s multi values: %w", s.Table(), err)
		}
		row.Values[ref] = append(row.Values[ref], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s multi values: %w", s.Table(), err)
	}
	return row, nil
}

// SaveRow stores a new revision of a record. Values must already be
// validated. Saving values identical to the current latest revision is
// a no-op; the second return reports whether a revision was written.
//
// New rows of a global schema get a fresh row id. Revisions are
// strictly monotonic per record: the new revision is the current time
// or the previous revision plus one, whichever is later.
func (b *Backend) SaveRow(ctx context.Context, s *schema.Schema, wctx *wiki.Context, id types.RecordID, values schema.RowValues, summary string) (types.RecordID, bool, error) {
	newRow := false
	if s.Global() && id.Row == "" {
		rid, err := uuid.NewV7()
		if err != nil {
			return id, false, fmt.Errorf("generating row id: %w", err)
		}
		id.Row = rid.String()
		newRow = true
	}

	cur, err := b.GetRow(ctx, s, types.RecordID{Page: id.Page, Row: id.Row})
	if err != nil {
		return id, false, err
	}

	if err := b.applyAutoValues(ctx, s, cur, values, summary); err != nil {
		return id, false, err
	}

	if !newRow && sameValues(s, cur.Values, values) {
		id.Rev = cur.ID.Rev
		return id, false, nil
	}
	if newRow && values.IsEmpty() {
		return id, false, nil
	}

	now := wctx.Now().Unix()
	rev := now
	if rev <= cur.ID.Rev {
		rev = cur.ID.Rev + 1
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return id, false, fmt.Errorf("starting save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET latest = 0 WHERE pid = ? AND rid = ? AND latest = 1", s.DataTable()),
		id.Page, id.Row); err != nil {
		return id, false, fmt.Errorf("retiring previous revision: %w", err)
	}

	cols := storageColumns(s)
	names := []string{"pid", "rid", "rev", "latest"}
	marks := []string{"?", "?", "?", "1"}
	args := []any{id.Page, id.Row, rev}
	for _, c := range cols {
		names = append(names, c.ColName())
		marks = append(marks, "?")
		if c.Multi() {
			// Multi values live in the side relation only.
			args = append(args, "")
		} else {
			args = append(args, values.First(c.ColRef()))
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.DataTable(), strings.Join(names, ", "), strings.Join(marks, ", ")), args...); err != nil {
		return id, false, fmt.Errorf("writing revision: %w", err)
	}

	for _, c := range cols {
		if !c.Multi() {
			continue
		}
		for i, v := range values[c.ColRef()] {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(
				"INSERT INTO %s (colref, pid, rid, rev, row, value) VALUES (?, ?, ?, ?, ?, ?)",
				s.MultiTable()), c.ColRef(), id.Page, id.Row, rev, i+1, v); err != nil {
				return id, false, fmt.Errorf("writing multi values: %w", err)
			}
		}
	}

	if id.Page != "" {
		if err := b.touchPage(ctx, tx, s, id.Page, rev, wctx.User, summary); err != nil {
			return id, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return id, false, fmt.Errorf("committing save: %w", err)
	}

	id.Rev = rev
	b.log.Infow("row saved", "schema", s.Table(), "pid", id.Page, "rid", id.Row, "rev", rev)
	return id, true, nil
}

// ClearRow writes an all-empty revision, hiding the record from
// aggregations while keeping its history. Clearing an already empty
// record is a no-op.
func (b *Backend) ClearRow(ctx context.Context, s *schema.Schema, wctx *wiki.Context, id types.RecordID, summary string) (bool, error) {
	empty := schema.RowValues{}
	for _, c := range storageColumns(s) {
		if c.Multi() {
			empty[c.ColRef()] = nil
		} else {
			empty[c.ColRef()] = []string{""}
		}
	}
	cur, err := b.GetRow(ctx, s, types.RecordID{Page: id.Page, Row: id.Row})
	if err != nil {
		return false, err
	}
	if cur.ID.Rev == 0 {
		return false, nil
	}
	_, saved, err := b.SaveRow(ctx, s, wctx, id, empty, summary)
	return saved, err
}

// applyAutoValues fills the values the editor never provides: the edit
// summary column and unset increment counters. An existing record keeps
// its counter; only records that never had one draw the next number.
func (b *Backend) applyAutoValues(ctx context.Context, s *schema.Schema, cur *Row, values schema.RowValues, summary string) error {
	for _, c := range storageColumns(s) {
		switch t := c.Type().(type) {
		case *field.AutoSummary:
			values[c.ColRef()] = []string{summary}
		case *field.Increment:
			if c.Multi() || values.First(c.ColRef()) != "" {
				continue
			}
			// Counters attach to content: a blank form draws no number,
			// and a clear does not carry the old one into the tombstone.
			if !hasUserContent(s, values) {
				continue
			}
			if inherited := cur.Values.First(c.ColRef()); inherited != "" {
				values[c.ColRef()] = []string{inherited}
				continue
			}
			var next int64
			err := b.db.QueryRowContext(ctx, fmt.Sprintf(
				"SELECT COALESCE(MAX(CAST(%s AS INTEGER)), 0) + 1 FROM %s WHERE latest = 1",
				c.ColName(), s.DataTable())).Scan(&next)
			if err != nil {
				return fmt.Errorf("assigning %s counter: %w", c.Label(), err)
			}
			values[c.ColRef()] = []string{fmt.Sprintf("%d", next)}
		case *field.Page:
			vals := values[c.ColRef()]
			for i, v := range vals {
				vals[i] = t.StoreValue(v)
			}
		}
	}
	return nil
}

// touchPage maintains the denormalized titles row and marks the schema
// assigned to the page.
func (b *Backend) touchPage(ctx context.Context, tx *sql.Tx, s *schema.Schema, pid string, rev int64, user, summary string) error {
	title := b.host.PageTitle(pid)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO titles (pid, title, lastrev, lasteditor, lastsummary) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pid) DO UPDATE SET title = excluded.title, lastrev = excluded.lastrev,
		 lasteditor = excluded.lasteditor, lastsummary = excluded.lastsummary`,
		pid, title, rev, user, summary); err != nil {
		return fmt.Errorf("updating page metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (pid, tbl, assigned) VALUES (?, ?, 1)
		 ON CONFLICT(pid, tbl) DO UPDATE SET assigned = 1`,
		pid, s.Table()); err != nil {
		return fmt.Errorf("updating assignment: %w", err)
	}
	return nil
}

// hasUserContent reports whether any column the editor fills holds a
// value. Auto-filled columns do not count.
func hasUserContent(s *schema.Schema, values schema.RowValues) bool {
	for _, c := range storageColumns(s) {
		switch c.Type().(type) {
		case *field.AutoSummary, *field.Increment:
			continue
		}
		for _, v := range values[c.ColRef()] {
			if v != "" {
				return true
			}
		}
	}
	return false
}

// storageColumns returns the enabled columns that have a physical
// column.
func storageColumns(s *schema.Schema) []*schema.Column {
	out := make([]*schema.Column, 0, len(s.Columns()))
	for _, c := range s.EnabledColumns() {
		if !c.IsVirtual() {
			out = append(out, c)
		}
	}
	return out
}

// sameValues compares two value sets over the schema's storage columns.
// The summary column is ignored: a changed summary alone does not make
// a new revision.
func sameValues(s *schema.Schema, a, b schema.RowValues) bool {
	for _, c := range storageColumns(s) {
		if _, ok := c.Type().(*field.AutoSummary); ok {
			continue
		}
		av, bv := a[c.ColRef()], b[c.ColRef()]
		if c.Multi() {
			if len(av) != len(bv) {
				return false
			}
			for i := range av {
				if av[i] != bv[i] {
					return false
				}
			}
			continue
		}
		var as, bs string
		if len(av) > 0 {
			as = av[0]
		}
		if len(bv) > 0 {
			bs = bv[0]
		}
		if as != bs {
			return false
		}
	}
	return true
}
