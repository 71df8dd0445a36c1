// Package search turns a declarative aggregation configuration into
// one SQL statement and executes it: schema joining, column selection,
// nested filtering, sorting and pagination, with access control
// evaluated inside the query.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pagegrid/pagegrid/internal/schema"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/wiki"
	"github.com/pagegrid/pagegrid/pkg/types"
)

// BoundColumn ties a requested column to the schema it resolved in.
type BoundColumn struct {
	Schema *schema.Schema
	Col    *schema.Column
	scIdx  int
}

// FullName returns the qualified "table.label" form used in output
// headers and error messages.
func (b *BoundColumn) FullName() string {
	return b.Schema.Table() + "." + b.Col.Label()
}

type boundFilter struct {
	col   *BoundColumn
	comp  string
	value any
	conn  string
}

type boundSort struct {
	col       *BoundColumn
	ascending bool
}

// Search accumulates a validated aggregation and executes it. Build one
// per request; it is not safe for concurrent use.
type Search struct {
	backend *store.Backend
	wctx    *wiki.Context
	log     *zap.SugaredLogger

	mode    string
	schemas []*schema.Schema
	aliases []string
	columns []*BoundColumn
	filters []boundFilter
	sorts   []boundSort
	limit   int
	offset  int
	dynamic bool
}

// New starts an empty table-mode search for the given request context.
func New(backend *store.Backend, wctx *wiki.Context, log *zap.SugaredLogger) *Search {
	return &Search{backend: backend, wctx: wctx, log: log, mode: types.ModeTable}
}

// FromSpec builds a search from a parsed configuration. Any
// inconsistency between the configuration and the stored schemas is a
// ConfigError.
func FromSpec(ctx context.Context, backend *store.Backend, wctx *wiki.Context, log *zap.SugaredLogger, spec *types.SearchSpec) (*Search, error) {
	s := New(backend, wctx, log)
	s.mode = spec.Mode
	s.limit = spec.Limit
	s.offset = spec.Offset
	s.dynamic = spec.DynamicFilters

	for _, ref := range spec.Schemas {
		if err := s.AddSchema(ctx, ref.Table, ref.Alias); err != nil {
			return nil, err
		}
	}
	for _, col := range spec.Cols {
		if err := s.AddColumn(col); err != nil {
			return nil, err
		}
	}
	for _, f := range spec.Filters {
		if err := s.AddFilter(f.Column, f.Comparator, f.Value, f.Connector); err != nil {
			return nil, err
		}
	}
	for _, so := range spec.Sorts {
		if err := s.AddSort(so.Column, so.Ascending); err != nil {
			return nil, err
		}
	}
	if err := s.checkMode(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddSchema loads and registers a schema to aggregate. Page schemas
// chain on their page id; a global schema holds unrelated rows and may
// only be aggregated on its own.
func (s *Search) AddSchema(ctx context.Context, table, alias string) error {
	loaded, err := schema.Load(ctx, s.backend.DB(), table, s.wctx.Lang(), s.backend.Hooks())
	if err != nil {
		return err
	}
	if len(s.schemas) > 0 && (loaded.Global() || s.schemas[0].Global()) {
		return types.Configf("global schema %q cannot be combined with other schemas", globalName(loaded, s.schemas[0]))
	}
	s.schemas = append(s.schemas, loaded)
	s.aliases = append(s.aliases, alias)
	return nil
}

func globalName(a, b *schema.Schema) string {
	if a.Global() {
		return a.Table()
	}
	return b.Table()
}

// AddColumn registers a result column. Qualified names ("alias.col" or
// "table.col") resolve in that schema only; bare names resolve in the
// first schema that knows them. "*" expands to every enabled column of
// every schema.
func (s *Search) AddColumn(name string) error {
	if name == "*" {
		for i, sc := range s.schemas {
			for _, c := range sc.EnabledColumns() {
				s.columns = append(s.columns, &BoundColumn{Schema: sc, Col: c, scIdx: i})
			}
		}
		return nil
	}
	bc, err := s.resolveColumn(name)
	if err != nil {
		return err
	}
	s.columns = append(s.columns, bc)
	return nil
}

// AddFilter registers a filter clause. Dynamic placeholders in the
// value are resolved against the request context now, so the rendered
// SQL binds concrete values.
func (s *Search) AddFilter(column, comp string, value any, connector string) error {
	bc, err := s.resolveColumn(column)
	if err != nil {
		return err
	}
	norm, err := types.NormalizeComparator(comp)
	if err != nil {
		return err
	}
	connector = strings.ToUpper(strings.TrimSpace(connector))
	if connector == "" {
		connector = "AND"
	}
	if connector != "AND" && connector != "OR" {
		return types.Configf("filter connector must be AND or OR, got %q", connector)
	}
	s.filters = append(s.filters, boundFilter{
		col:   bc,
		comp:  norm,
		value: resolvePlaceholders(value, s.wctx),
		conn:  connector,
	})
	return nil
}

// AddSort registers a sort key; keys compose in call order.
func (s *Search) AddSort(column string, ascending bool) error {
	bc, err := s.resolveColumn(column)
	if err != nil {
		return err
	}
	s.sorts = append(s.sorts, boundSort{col: bc, ascending: ascending})
	return nil
}

// SetPagination overrides limit and offset.
func (s *Search) SetPagination(limit, offset int) {
	s.limit = limit
	s.offset = offset
}

// Columns returns the bound result columns in order.
func (s *Search) Columns() []*BoundColumn { return s.columns }

// resolveColumn binds a requested name against the registered schemas.
func (s *Search) resolveColumn(name string) (*BoundColumn, error) {
	if len(s.schemas) == 0 {
		return nil, types.Configf("no schema given")
	}
	if prefix, rest, ok := strings.Cut(name, "."); ok {
		for i, sc := range s.schemas {
			if strings.EqualFold(prefix, sc.Table()) || strings.EqualFold(prefix, s.aliases[i]) {
				c, err := sc.FindColumn(rest, s.wctx.Lang())
				if err != nil {
					return nil, err
				}
				return &BoundColumn{Schema: sc, Col: c, scIdx: i}, nil
			}
		}
		// Not a schema prefix; fall through and treat the dot as part
		// of the label.
	}
	for i, sc := range s.schemas {
		if c, err := sc.FindColumn(name, s.wctx.Lang()); err == nil {
			return &BoundColumn{Schema: sc, Col: c, scIdx: i}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrColumnNotFound, name)
}

// checkMode enforces the per-flavor configuration rules.
func (s *Search) checkMode() error {
	switch s.mode {
	case types.ModeTable, types.ModeList:
		if len(s.columns) == 0 {
			return types.Configf("no columns selected")
		}
	case types.ModeValue:
		if len(s.columns) != 1 {
			return types.Configf("the value flavor takes exactly one column, got %d", len(s.columns))
		}
	case types.ModeCloud:
		if len(s.columns) != 1 {
			return types.Configf("the cloud flavor takes exactly one column, got %d", len(s.columns))
		}
		if len(s.sorts) > 0 {
			return types.Configf("the cloud flavor orders by frequency; sort keys are not allowed")
		}
		if s.dynamic {
			return types.Configf("the cloud flavor does not support dynamic filters")
		}
	default:
		return types.Configf("unknown aggregation mode %q", s.mode)
	}
	return nil
}
