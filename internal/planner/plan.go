package planner

import (
	"dynquery/internal/mapping"
)

// OrderTerm sorts by one column.
type OrderTerm struct {
	Column     mapping.Column
	Descending bool
}

// Plan is a compiled row-producing query.
type Plan struct {
	Table       string
	Columns     []mapping.Column
	Expressions []mapping.Expression
	Joins       []mapping.JoinSpec
	Where       Expr
	OrderBy     []OrderTerm
	// Limit is zero when the query is unbounded.
	Limit  uint64
	Offset uint64
}

// CountPlan is a compiled COUNT(*) query.
type CountPlan struct {
	Table string
	Joins []mapping.JoinSpec
	Where Expr
}

// CountPlan returns the count query matching the plan's rows: same joins and
// predicate, no projection, ordering or paging.
func (p *Plan) CountPlan() *CountPlan {
	return &CountPlan{
		Table: p.Table,
		Joins: append([]mapping.JoinSpec(nil), p.Joins...),
		Where: p.Where,
	}
}

// RowKeys returns the row keys of the selected values in select-list order:
// "table.column" for columns, the property name for expressions.
func (p *Plan) RowKeys() []string {
	keys := make([]string, 0, len(p.Columns)+len(p.Expressions))
	for _, c := range p.Columns {
		keys = append(keys, c.Key())
	}
	for _, e := range p.Expressions {
		keys = append(keys, e.Property)
	}
	return keys
}

// JoinedTables lists the joined tables in join order.
func (p *Plan) JoinedTables() []string {
	return joinedTables(p.Joins)
}

// JoinedTables lists the joined tables in join order.
func (p *CountPlan) JoinedTables() []string {
	return joinedTables(p.Joins)
}

func joinedTables(joins []mapping.JoinSpec) []string {
	tables := make([]string, len(joins))
	for i, j := range joins {
		tables[i] = j.Table
	}
	return tables
}
