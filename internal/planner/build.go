package planner

import (
	"dynquery/internal/mapping"
	"dynquery/internal/queryerr"
	"dynquery/internal/queryspec"
)

// Build compiles spec into a row-producing plan.
//
// Primary key columns are always selected so rows can be grouped, and when a
// field reaches into a nested mapping that mapping's primary key is selected
// too. Joins are inferred from the tables of every resolved field, in the
// order filter, fields, order-by. Paging sets limit and offset; a Count mode
// spec is planned like Items (use BuildCount for counts).
func Build(m *mapping.Mapping, spec queryspec.QuerySpec) (*Plan, error) {
	if m == nil {
		return nil, queryerr.Invariant("planner: nil mapping")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	joins := newJoinSet(m)
	plan := &Plan{Table: m.Table()}

	where, err := compile(spec.Filter, m, joins.visit)
	if err != nil {
		return nil, err
	}
	if err := joins.err; err != nil {
		return nil, err
	}
	plan.Where = where

	sel := newSelection()
	if len(spec.Fields) == 0 {
		sel.addColumns(m.PrimaryKey())
		sel.addColumns(m.Columns())
		for _, e := range m.Expressions() {
			sel.addExpression(e)
		}
		for _, c := range sel.columns {
			joins.addTable(c.Table)
		}
	} else {
		sel.addColumns(m.PrimaryKey())
		for _, field := range spec.Fields {
			res, err := m.Resolve(field)
			if err != nil {
				return nil, err
			}
			for _, nested := range res.Chain {
				sel.addColumns(nested.PrimaryKey())
			}
			sel.addColumns(res.Columns)
			if res.Expression != nil {
				if err := sel.addExpressionChecked(*res.Expression, field); err != nil {
					return nil, err
				}
			}
			joins.visit(res)
			for _, c := range res.Columns {
				joins.addTable(c.Table)
			}
		}
	}
	if err := joins.err; err != nil {
		return nil, err
	}
	plan.Columns = sel.columns
	plan.Expressions = sel.expressions

	for _, o := range spec.OrderBy {
		col, res, err := m.ResolveColumn(o.Field)
		if err != nil {
			return nil, err
		}
		joins.visit(res)
		plan.OrderBy = append(plan.OrderBy, OrderTerm{Column: col, Descending: o.Descending})
	}
	if err := joins.err; err != nil {
		return nil, err
	}
	plan.Joins = joins.joins

	if spec.Mode.Kind == queryspec.KindPaging {
		plan.Limit = spec.Mode.ItemsPerPage
		plan.Offset = spec.Mode.Offset()
	}
	return plan, nil
}

// BuildCount compiles spec into a COUNT(*) plan. Fields, ordering and paging
// are ignored; only joins the filter needs are included.
func BuildCount(m *mapping.Mapping, spec queryspec.QuerySpec) (*CountPlan, error) {
	if m == nil {
		return nil, queryerr.Invariant("planner: nil mapping")
	}
	if err := queryspec.Validate(spec.Filter); err != nil {
		return nil, err
	}

	joins := newJoinSet(m)
	where, err := compile(spec.Filter, m, joins.visit)
	if err != nil {
		return nil, err
	}
	if err := joins.err; err != nil {
		return nil, err
	}
	return &CountPlan{Table: m.Table(), Joins: joins.joins, Where: where}, nil
}

// joinSet accumulates joins in discovery order, pulling in the joins a join
// depends on first. The first failure is kept in err.
type joinSet struct {
	m      *mapping.Mapping
	joined map[string]bool
	joins  []mapping.JoinSpec
	err    error
}

func newJoinSet(m *mapping.Mapping) *joinSet {
	return &joinSet{m: m, joined: map[string]bool{m.Table(): true}}
}

func (s *joinSet) visit(res mapping.Resolution) {
	for _, nested := range res.Chain {
		s.addTable(nested.Table())
	}
	for _, c := range res.Columns {
		s.addTable(c.Table)
	}
	if res.Table != "" {
		s.addTable(res.Table)
	}
}

func (s *joinSet) addTable(table string) {
	if s.err != nil {
		return
	}
	s.err = s.add(table, map[string]bool{})
}

func (s *joinSet) add(table string, visiting map[string]bool) error {
	if s.joined[table] {
		return nil
	}
	if visiting[table] {
		return queryerr.UnsupportedJoin("mapping %s: joins to %q form a cycle", s.m.Name(), table)
	}
	visiting[table] = true

	j, ok := s.m.Join(table)
	if !ok {
		return queryerr.UnsupportedJoin("mapping %s: no join declared for table %q", s.m.Name(), table)
	}
	if err := s.add(j.OnTable(), visiting); err != nil {
		return err
	}
	s.joined[table] = true
	s.joins = append(s.joins, j)
	return nil
}

type selection struct {
	columns     []mapping.Column
	seen        map[string]bool
	expressions []mapping.Expression
	aliases     map[string]string
}

func newSelection() *selection {
	return &selection{seen: map[string]bool{}, aliases: map[string]string{}}
}

func (s *selection) addColumns(cols []mapping.Column) {
	for _, c := range cols {
		if s.seen[c.Key()] {
			continue
		}
		s.seen[c.Key()] = true
		s.columns = append(s.columns, c)
	}
}

func (s *selection) addExpression(e mapping.Expression) {
	if _, ok := s.aliases[e.Property]; ok {
		return
	}
	s.aliases[e.Property] = e.SQL
	s.expressions = append(s.expressions, e)
}

// addExpressionChecked rejects two different expressions selected under the same alias.
func (s *selection) addExpressionChecked(e mapping.Expression, field string) error {
	if sql, ok := s.aliases[e.Property]; ok {
		if sql != e.SQL {
			return queryerr.BadField(field, "expression alias %q is selected twice", e.Property)
		}
		return nil
	}
	s.addExpression(e)
	return nil
}
