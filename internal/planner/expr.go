package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"dynquery/internal/coerce"
	"dynquery/internal/mapping"
	"dynquery/internal/queryerr"
	"dynquery/internal/queryspec"
	"dynquery/internal/sqlutil"
)

// Expr is a compiled boolean expression over mapped columns: Cond, And or Or.
type Expr interface {
	expr()
}

// Cond compares one column. Values are already coerced to the column's native type.
type Cond struct {
	Column   mapping.Column
	Operator queryspec.Operator
	Values   []any
}

// And is true when every child is.
type And []Expr

// Or is true when any child is.
type Or []Expr

func (Cond) expr() {}
func (And) expr()  {}
func (Or) expr()   {}

// Compile turns a predicate tree into an expression over m's columns,
// coercing every value to its column type. A nil predicate compiles to nil.
func Compile(p queryspec.Predicate, m *mapping.Mapping) (Expr, error) {
	return compile(p, m, nil)
}

func compile(p queryspec.Predicate, m *mapping.Mapping, visit func(mapping.Resolution)) (Expr, error) {
	if p == nil {
		return nil, nil
	}
	if err := queryspec.Validate(p); err != nil {
		return nil, err
	}
	return compileNode(p, m, visit)
}

func compileNode(p queryspec.Predicate, m *mapping.Mapping, visit func(mapping.Resolution)) (Expr, error) {
	switch node := p.(type) {
	case *queryspec.Simple:
		col, res, err := m.ResolveColumn(node.Field)
		if err != nil {
			return nil, err
		}
		if visit != nil {
			visit(res)
		}
		values, err := compileValues(node, col)
		if err != nil {
			return nil, err
		}
		return Cond{Column: col, Operator: node.Operator, Values: values}, nil
	case *queryspec.Junction:
		children := make([]Expr, 0, len(node.Children))
		for _, child := range node.Children {
			e, err := compileNode(child, m, visit)
			if err != nil {
				return nil, err
			}
			children = append(children, e)
		}
		if node.Conjunction {
			return And(children), nil
		}
		return Or(children), nil
	default:
		return nil, queryerr.Invariant("unknown predicate type %T", p)
	}
}

func compileValues(s *queryspec.Simple, col mapping.Column) ([]any, error) {
	arity, _ := s.Operator.Arity()
	switch {
	case arity == queryspec.ArityNone:
		return nil, nil
	case s.Operator == queryspec.OpLike:
		pattern, err := coerce.Pattern(s.Field, s.Value())
		if err != nil {
			return nil, err
		}
		return []any{pattern}, nil
	default:
		return coerce.Values(s.Field, s.Values, col)
	}
}

// sqlizer renders e with the dialect's quoting. Empty IN lists render as
// (1=0) and empty NOT IN lists as (1=1).
func sqlizer(e Expr, d sqlutil.Dialect) (sq.Sqlizer, error) {
	switch node := e.(type) {
	case Cond:
		return condSqlizer(node, d)
	case And:
		parts, err := sqlizers(node, d)
		if err != nil {
			return nil, err
		}
		return sq.And(parts), nil
	case Or:
		parts, err := sqlizers(node, d)
		if err != nil {
			return nil, err
		}
		return sq.Or(parts), nil
	default:
		return nil, queryerr.Invariant("unknown expression type %T", e)
	}
}

func sqlizers(children []Expr, d sqlutil.Dialect) ([]sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(children))
	for _, child := range children {
		s, err := sqlizer(child, d)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return parts, nil
}

func condSqlizer(c Cond, d sqlutil.Dialect) (sq.Sqlizer, error) {
	column := d.QualifiedColumn(c.Column.Table, c.Column.Name)
	var value any
	if len(c.Values) > 0 {
		value = c.Values[0]
	}

	switch c.Operator {
	case queryspec.OpEq:
		return sq.Eq{column: value}, nil
	case queryspec.OpNeq:
		return sq.NotEq{column: value}, nil
	case queryspec.OpLike:
		return sq.Like{column: value}, nil
	case queryspec.OpLt:
		return sq.Lt{column: value}, nil
	case queryspec.OpLe:
		return sq.LtOrEq{column: value}, nil
	case queryspec.OpGt:
		return sq.Gt{column: value}, nil
	case queryspec.OpGe:
		return sq.GtOrEq{column: value}, nil
	case queryspec.OpIn:
		return sq.Eq{column: listValue(c.Values)}, nil
	case queryspec.OpNotIn:
		return sq.NotEq{column: listValue(c.Values)}, nil
	case queryspec.OpIsNull:
		return sq.Eq{column: nil}, nil
	case queryspec.OpIsNotNull:
		return sq.NotEq{column: nil}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", c.Operator)
	}
}

// listValue keeps IN lists as a slice even when empty so squirrel renders
// them as a list rather than a NULL comparison.
func listValue(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}
