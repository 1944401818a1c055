package engine

import (
	"context"

	"dynquery/internal/mapping"
	"dynquery/internal/queryerr"
	"dynquery/internal/queryspec"
	"dynquery/internal/rowmap"
)

// Query runs spec against the mapping registered for T and returns typed DTOs.
func Query[T any](ctx context.Context, e *Engine, spec queryspec.QuerySpec) (*Result[*T], error) {
	m, err := mappingFor[T](e)
	if err != nil {
		return nil, err
	}
	result, err := e.Run(ctx, m, spec)
	if err != nil {
		return nil, err
	}
	return convertResult[T](result)
}

// FindOne loads the T whose primary key equals pk, given in primary key
// property order. It returns a NotFound error when no row matches.
func FindOne[T any](ctx context.Context, e *Engine, pk ...any) (*T, error) {
	m, err := mappingFor[T](e)
	if err != nil {
		return nil, err
	}
	filter, err := primaryKeyFilter(m, pk)
	if err != nil {
		return nil, err
	}

	result, err := e.Run(ctx, m, queryspec.QuerySpec{Filter: filter, Mode: queryspec.Items()})
	if err != nil {
		return nil, err
	}
	switch len(result.Items) {
	case 0:
		return nil, queryerr.NotFound("%s %v not found", m.Name(), pk)
	case 1:
	default:
		return nil, queryerr.Invariant("%s primary key %v matched %d records", m.Name(), pk, len(result.Items))
	}
	items, err := asItems[T](result.Items)
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

func mappingFor[T any](e *Engine) (*mapping.Mapping, error) {
	if e.registry == nil {
		return nil, queryerr.Invariant("engine has no mapping registry")
	}
	return mapping.For[T](e.registry)
}

func primaryKeyFilter(m *mapping.Mapping, pk []any) (queryspec.Predicate, error) {
	props := m.PrimaryKeyProperties()
	if len(pk) != len(props) {
		return nil, queryerr.BadValuef(m.Name(), pk,
			"%s has %d primary key properties, got %d values", m.Name(), len(props), len(pk))
	}

	conds := make([]queryspec.Predicate, len(props))
	for i, prop := range props {
		cond, err := queryspec.Cond(prop, queryspec.OpEq, pk[i])
		if err != nil {
			return nil, err
		}
		conds[i] = cond
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	and, err := queryspec.And(conds...)
	if err != nil {
		return nil, err
	}
	return and, nil
}

func asItems[T any](items []any) ([]*T, error) {
	return rowmap.As[T](items)
}
