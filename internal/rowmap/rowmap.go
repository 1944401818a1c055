// Package rowmap rebuilds DTO graphs from the flat rows of a planned query.
//
// Rows are consumed in order. The first row of a primary key creates the DTO;
// later rows with the same key (one-to-many fan-out) only add nested children.
// Output order follows the row stream.
package rowmap

import (
	"fmt"
	"strconv"
	"strings"

	"dynquery/internal/mapping"
	"dynquery/internal/queryerr"
	"dynquery/internal/sqltype"
	"dynquery/internal/uuidutil"
)

// Row is one result row keyed by "table.column" for columns and by property
// name for expressions. A present key with a nil value is SQL NULL.
type Row map[string]any

type node struct {
	dto      any
	children map[string]map[string]*node
}

type keyState int

const (
	keyPresent keyState = iota
	keyNull
	keyAbsent
)

// MapRows maps rows onto DTOs of m, one per distinct primary key.
// The result holds *T values for the mapping's DTO type T and is never nil.
func MapRows(m *mapping.Mapping, rows []Row) ([]any, error) {
	index := make(map[string]*node, len(rows))
	out := make([]any, 0, len(rows))
	fansOut := m.FansOut()

	for i, row := range rows {
		key, state, err := keyOf(m, row)
		if err != nil {
			return nil, err
		}
		if state != keyPresent {
			return nil, queryerr.Invariant("row %d: primary key of %s is missing", i, m.Name())
		}

		if n, seen := index[key]; seen {
			if !fansOut {
				return nil, queryerr.Invariant("row %d: duplicate key %s for %s, which has no one-to-many property", i, key, m.Name())
			}
			if err := mergeNested(m, n, row); err != nil {
				return nil, err
			}
			continue
		}

		n, err := newNode(m, row)
		if err != nil {
			return nil, err
		}
		index[key] = n
		out = append(out, n.dto)
	}
	return out, nil
}

// MapRow maps a single row onto a new DTO of m.
func MapRow(m *mapping.Mapping, row Row) (any, error) {
	_, state, err := keyOf(m, row)
	if err != nil {
		return nil, err
	}
	if state != keyPresent {
		return nil, queryerr.Invariant("primary key of %s is missing", m.Name())
	}
	n, err := newNode(m, row)
	if err != nil {
		return nil, err
	}
	return n.dto, nil
}

// MapRowsAs is MapRows with the result typed as []*T.
func MapRowsAs[T any](m *mapping.Mapping, rows []Row) ([]*T, error) {
	items, err := MapRows(m, rows)
	if err != nil {
		return nil, err
	}
	return As[T](items)
}

// As converts DTOs produced by MapRows into []*T.
func As[T any](items []any) ([]*T, error) {
	out := make([]*T, len(items))
	for i, item := range items {
		dto, ok := item.(*T)
		if !ok {
			return nil, queryerr.Invariant("mapped %T, expected %T", item, dto)
		}
		out[i] = dto
	}
	return out, nil
}

func newNode(m *mapping.Mapping, row Row) (*node, error) {
	n := &node{dto: m.New(), children: map[string]map[string]*node{}}

	for _, p := range m.Properties() {
		var key string
		switch p.Kind {
		case mapping.KindColumn:
			key = p.Column.Key()
		case mapping.KindExpression:
			key = p.Expression.Property
		default:
			continue
		}
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		if p.Kind == mapping.KindColumn {
			normalized, err := normalize(p.Column, value)
			if err != nil {
				return nil, queryerr.Invariant("%s.%s: %v", m.Name(), p.Name, err)
			}
			value = normalized
		}
		if err := assign(p.Target(n.dto), value); err != nil {
			return nil, queryerr.Invariant("%s.%s: cannot assign %T: %v", m.Name(), p.Name, value, err)
		}
	}

	if err := mergeNested(m, n, row); err != nil {
		return nil, err
	}
	return n, nil
}

// mergeNested adds the nested children carried by row to n. Children are
// deduplicated by their own primary key so deeper fan-out merges as well.
func mergeNested(m *mapping.Mapping, n *node, row Row) error {
	for _, p := range m.Nested() {
		key, state, err := keyOf(p.Nested, row)
		if err != nil {
			return err
		}
		if state == keyAbsent {
			continue
		}
		if p.Many {
			p.EnsureList(n.dto)
		}
		if state == keyNull {
			continue
		}

		group := n.children[p.Name]
		if group == nil {
			group = map[string]*node{}
			n.children[p.Name] = group
		}
		if child, ok := group[key]; ok {
			if err := mergeNested(p.Nested, child, row); err != nil {
				return err
			}
			continue
		}
		if !p.Many && len(group) > 0 {
			return queryerr.Invariant("%s.%s: one-to-one property received a second key %s", m.Name(), p.Name, key)
		}

		child, err := newNode(p.Nested, row)
		if err != nil {
			return err
		}
		group[key] = child
		p.Attach(n.dto, child.dto)
	}
	return nil
}

// keyOf builds the identity of m's DTO in row. All primary key columns NULL
// (an outer join miss) yields keyNull; a partially NULL key is an invariant violation.
func keyOf(m *mapping.Mapping, row Row) (string, keyState, error) {
	pk := m.PrimaryKey()
	parts := make([]string, 0, len(pk))
	nulls := 0
	for _, col := range pk {
		value, ok := row[col.Key()]
		if !ok {
			return "", keyAbsent, nil
		}
		if value == nil {
			nulls++
			continue
		}
		parts = append(parts, keyPart(value))
	}
	switch nulls {
	case 0:
		return strings.Join(parts, "\x1f"), keyPresent, nil
	case len(pk):
		return "", keyNull, nil
	default:
		return "", keyNull, queryerr.Invariant("primary key of %s is partially NULL", m.Name())
	}
}

func keyPart(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// normalize converts driver values whose meaning depends on the column type.
func normalize(col mapping.Column, value any) (any, error) {
	switch col.Type {
	case sqltype.BinaryUUID:
		if b, ok := value.([]byte); ok && len(b) == 16 {
			_, s, err := uuidutil.ParseBytes(b)
			return s, err
		}
	case sqltype.UUID:
		u, err := uuidutil.FromDriverValue(value)
		if err != nil {
			return nil, err
		}
		return u.String(), nil
	case sqltype.Enum:
		if col.EnumOrdinal {
			return enumName(col, value)
		}
	}
	return value, nil
}

func enumName(col mapping.Column, value any) (string, error) {
	var ordinal int64
	switch v := value.(type) {
	case int64:
		ordinal = v
	case int:
		ordinal = int64(v)
	case int32:
		ordinal = int64(v)
	case []byte, string:
		parsed, err := strconv.ParseInt(keyPart(v), 10, 64)
		if err != nil {
			return "", fmt.Errorf("enum ordinal %q is not an integer", keyPart(v))
		}
		ordinal = parsed
	default:
		return "", fmt.Errorf("unsupported enum ordinal type %T", value)
	}
	if ordinal < 0 || ordinal >= int64(len(col.EnumValues)) {
		return "", fmt.Errorf("enum ordinal %d out of range", ordinal)
	}
	return col.EnumValues[ordinal], nil
}
