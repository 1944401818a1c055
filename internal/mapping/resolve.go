package mapping

import (
	"strings"

	"dynquery/internal/queryerr"
)

// Resolution is the result of resolving a dotted field path.
type Resolution struct {
	Path string
	// Columns holds one column for a column property and every direct column
	// of the nested mapping when the path names a whole nested object.
	Columns []Column
	// Table is the table of the resolved leaf.
	Table string
	// Chain lists the nested mappings traversed, outermost first.
	Chain []*Mapping
	// Expression is set when the path names an expression property.
	Expression *Expression
}

// Resolve resolves a dotted field path against the mapping.
//
// A single segment is looked up among the mapping's own properties; a nested
// property addressed without a suffix resolves to all of the nested mapping's
// direct columns. Multi-segment paths must start with a nested property and
// resolve the rest against the nested mapping. An unknown segment is a
// BadQueryField error carrying the whole path.
func (m *Mapping) Resolve(path string) (Resolution, error) {
	if path == "" {
		return Resolution{}, queryerr.BadField(path, "empty field path")
	}
	res := Resolution{Path: path}
	cur := m
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		last := i == len(segments)-1
		p, ok := cur.Property(seg)
		if !ok {
			return Resolution{}, queryerr.BadField(path, "unknown field %q on %s", seg, cur.name)
		}
		if !last {
			if p.Kind != KindNested {
				return Resolution{}, queryerr.BadField(path, "field %q of %s has no nested fields", seg, cur.name)
			}
			res.Chain = append(res.Chain, p.Nested)
			cur = p.Nested
			continue
		}

		switch p.Kind {
		case KindColumn:
			res.Columns = []Column{p.Column}
			res.Table = p.Column.Table
		case KindNested:
			res.Chain = append(res.Chain, p.Nested)
			res.Columns = p.Nested.Columns()
			res.Table = p.Nested.table
		case KindExpression:
			expr := p.Expression
			res.Expression = &expr
			res.Table = cur.table
		}
	}
	return res, nil
}

// ResolveColumns returns the columns a field path addresses.
func (m *Mapping) ResolveColumns(path string) ([]Column, error) {
	res, err := m.Resolve(path)
	if err != nil {
		return nil, err
	}
	return res.Columns, nil
}

// ResolveTable returns the table a field path lives on.
func (m *Mapping) ResolveTable(path string) (string, error) {
	res, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	return res.Table, nil
}

// ResolveColumn resolves a path that must address exactly one column, as
// predicates and sort fields do.
func (m *Mapping) ResolveColumn(path string) (Column, Resolution, error) {
	res, err := m.Resolve(path)
	if err != nil {
		return Column{}, Resolution{}, err
	}
	if res.Expression != nil {
		return Column{}, Resolution{}, queryerr.BadField(path, "expression field %q cannot be filtered or sorted on", path)
	}
	if len(res.Columns) != 1 {
		return Column{}, Resolution{}, queryerr.BadField(path, "field %q addresses %d columns, expected exactly one", path, len(res.Columns))
	}
	return res.Columns[0], res, nil
}
