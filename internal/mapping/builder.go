package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"dynquery/internal/naming"
	"dynquery/internal/queryerr"
	"dynquery/internal/sqltype"
)

// Builder assembles the Mapping of DTO type T. Errors are collected and
// reported by Build.
type Builder[T any] struct {
	namer   *naming.Namer
	name    string
	table   string
	props   []Property
	pkNames []string
	joins   []JoinSpec
	errs    []string
}

// Define starts the mapping of T stored in table. An empty table name is
// derived from the type name ("ProductVariant" -> "product_variants").
func Define[T any](table string) *Builder[T] {
	return DefineWith[T](naming.Default(), table)
}

// DefineWith is like Define but derives default names with namer.
func DefineWith[T any](namer *naming.Namer, table string) *Builder[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	b := &Builder[T]{namer: namer, name: typ.Name()}
	if typ.Kind() != reflect.Struct {
		b.errorf("DTO type %s is not a struct", typ)
	}
	if table == "" {
		table = namer.TableName(typ.Name())
	}
	b.table = table
	return b
}

func (b *Builder[T]) errorf(format string, args ...any) {
	b.errs = append(b.errs, fmt.Sprintf(format, args...))
}

// Column maps prop to column of the mapping's own table. field returns a
// pointer to the DTO field receiving the value.
func (b *Builder[T]) Column(prop, column string, typ sqltype.Type, field func(*T) any) *Builder[T] {
	return b.ColumnOf(prop, b.table, column, typ, field)
}

// Field maps prop to the snake_case column of the same name.
func (b *Builder[T]) Field(prop string, typ sqltype.Type, field func(*T) any) *Builder[T] {
	return b.Column(prop, b.namer.ColumnName(prop), typ, field)
}

// ColumnOf maps prop to a column of another table reached through a Join.
func (b *Builder[T]) ColumnOf(prop, table, column string, typ sqltype.Type, field func(*T) any) *Builder[T] {
	return b.column(prop, Column{Table: table, Name: column, Type: typ}, field)
}

// ColumnSQL maps prop to column of the mapping's own table, deriving the value
// type from the column's declared SQL type ("DECIMAL(10,2)", "VARCHAR(64)").
// Enum columns need their values and are declared with Enum.
func (b *Builder[T]) ColumnSQL(prop, column, sqlType string, field func(*T) any) *Builder[T] {
	typ := sqltype.FromSQL(sqlType)
	if typ == sqltype.Enum {
		b.errorf("property %q has SQL type %s; declare it with Enum", prop, sqlType)
		return b
	}
	return b.Column(prop, column, typ, field)
}

// Enum maps prop to an enum column with the given declared values. When
// ordinal is set the column stores the value's index rather than its name.
func (b *Builder[T]) Enum(prop, column string, values []string, ordinal bool, field func(*T) any) *Builder[T] {
	if len(values) == 0 {
		b.errorf("enum property %q declares no values", prop)
	}
	return b.column(prop, Column{
		Table:       b.table,
		Name:        column,
		Type:        sqltype.Enum,
		EnumValues:  append([]string(nil), values...),
		EnumOrdinal: ordinal,
	}, field)
}

func (b *Builder[T]) column(prop string, col Column, field func(*T) any) *Builder[T] {
	if field == nil {
		b.errorf("property %q has no field accessor", prop)
		return b
	}
	if col.Name == "" || col.Table == "" {
		b.errorf("property %q has an empty column or table name", prop)
		return b
	}
	b.props = append(b.props, Property{
		Name:   prop,
		Kind:   KindColumn,
		Column: col,
		target: func(dto any) any { return field(dto.(*T)) },
	})
	return b
}

// Expression maps prop to a computed SQL expression selected under the
// property's name.
func (b *Builder[T]) Expression(prop, sql string, field func(*T) any) *Builder[T] {
	if field == nil {
		b.errorf("property %q has no field accessor", prop)
		return b
	}
	if strings.TrimSpace(sql) == "" {
		b.errorf("expression property %q has empty SQL", prop)
		return b
	}
	b.props = append(b.props, Property{
		Name:       prop,
		Kind:       KindExpression,
		Expression: Expression{Property: prop, SQL: sql},
		target:     func(dto any) any { return field(dto.(*T)) },
	})
	return b
}

// PrimaryKey declares the primary key properties. They must be column properties.
func (b *Builder[T]) PrimaryKey(props ...string) *Builder[T] {
	b.pkNames = append(b.pkNames, props...)
	return b
}

// Join declares how another table is reached.
func (b *Builder[T]) Join(j JoinSpec) *Builder[T] {
	if j.Type == "" {
		j.Type = InnerJoin
	}
	if !strings.Contains(j.On, ".") {
		j.On = b.table + "." + j.On
	}
	b.joins = append(b.joins, j)
	return b
}

// HasOne maps prop to a single nested DTO of type U described by child.
func HasOne[T, U any](b *Builder[T], prop string, child *Mapping, field func(*T) **U) *Builder[T] {
	if !b.checkNested(prop, child, reflect.TypeOf((*U)(nil)).Elem(), field == nil) {
		return b
	}
	b.props = append(b.props, Property{
		Name:   prop,
		Kind:   KindNested,
		Nested: child,
		attach: func(parent, c any) { *field(parent.(*T)) = c.(*U) },
		child: func(parent any) any {
			if c := *field(parent.(*T)); c != nil {
				return c
			}
			return nil
		},
	})
	return b
}

// HasMany maps prop to a list of nested DTOs of type U described by child.
// A mapping has at most one HasMany property.
func HasMany[T, U any](b *Builder[T], prop string, child *Mapping, field func(*T) *[]*U) *Builder[T] {
	if !b.checkNested(prop, child, reflect.TypeOf((*U)(nil)).Elem(), field == nil) {
		return b
	}
	b.props = append(b.props, Property{
		Name:   prop,
		Kind:   KindNested,
		Nested: child,
		Many:   true,
		attach: func(parent, c any) {
			list := field(parent.(*T))
			*list = append(*list, c.(*U))
		},
		ensure: func(parent any) {
			list := field(parent.(*T))
			if *list == nil {
				*list = []*U{}
			}
		},
	})
	return b
}

func (b *Builder[T]) checkNested(prop string, child *Mapping, want reflect.Type, missingField bool) bool {
	switch {
	case missingField:
		b.errorf("property %q has no field accessor", prop)
	case child == nil:
		b.errorf("nested property %q has no mapping", prop)
	case child.typ != want:
		b.errorf("nested property %q holds %s but its mapping describes %s", prop, want, child.typ)
	default:
		return true
	}
	return false
}

// Build validates the declarations and returns the immutable Mapping.
//
// A self-join (joining the mapping's own table, or the same table twice) is
// rejected with an UnsupportedJoin error; every other problem is an Invariant
// error since it comes from how the DTO was mapped.
func (b *Builder[T]) Build() (*Mapping, error) {
	m := &Mapping{
		name:      b.name,
		typ:       reflect.TypeOf((*T)(nil)).Elem(),
		table:     b.table,
		byName:    make(map[string]int, len(b.props)),
		joinIndex: make(map[string]int),
		hasMany:   -1,
		newDTO:    func() any { return new(T) },
	}
	errs := append([]string(nil), b.errs...)

	probe := new(T)
	for _, p := range b.props {
		if p.Name == "" || strings.Contains(p.Name, ".") {
			errs = append(errs, fmt.Sprintf("invalid property name %q", p.Name))
			continue
		}
		if _, dup := m.byName[p.Name]; dup {
			errs = append(errs, fmt.Sprintf("property %q declared twice", p.Name))
			continue
		}
		if p.target != nil {
			if ptr := p.target(probe); ptr == nil || reflect.TypeOf(ptr).Kind() != reflect.Ptr {
				errs = append(errs, fmt.Sprintf("field accessor of property %q must return a pointer", p.Name))
			}
		}
		if p.Many {
			if m.hasMany >= 0 {
				errs = append(errs, fmt.Sprintf("properties %q and %q are both one-to-many", m.props[m.hasMany].Name, p.Name))
			}
			m.hasMany = len(m.props)
		}
		m.byName[p.Name] = len(m.props)
		m.props = append(m.props, p)
	}

	if len(b.pkNames) == 0 {
		errs = append(errs, "no primary key declared")
	}
	for _, name := range b.pkNames {
		idx, ok := m.byName[name]
		if !ok || m.props[idx].Kind != KindColumn {
			errs = append(errs, fmt.Sprintf("primary key %q is not a column property", name))
			continue
		}
		if col := m.props[idx].Column; col.Table != m.table {
			errs = append(errs, fmt.Sprintf("primary key %q is not on table %q", name, m.table))
		} else {
			m.primaryKey = append(m.primaryKey, col)
			m.pkProps = append(m.pkProps, name)
		}
	}

	if len(errs) > 0 {
		return nil, queryerr.Invariant("mapping %s: %s", b.name, strings.Join(errs, "; "))
	}

	if err := m.collectJoins(b.joins); err != nil {
		return nil, err
	}
	return m, nil
}

// MustBuild is like Build but panics on error. Intended for package-level mapping declarations.
func (b *Builder[T]) MustBuild() *Mapping {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// collectJoins merges the declared joins with those of nested mappings and
// checks that every referenced table is reachable.
func (m *Mapping) collectJoins(own []JoinSpec) error {
	add := func(j JoinSpec) error {
		if j.Table == m.table {
			return queryerr.UnsupportedJoin("mapping %s: self-join on table %q is not supported", m.name, j.Table)
		}
		if _, dup := m.joinIndex[j.Table]; dup {
			return queryerr.UnsupportedJoin("mapping %s: table %q is joined twice", m.name, j.Table)
		}
		if j.Other == "" || j.OnColumn() == "" {
			return queryerr.Invariant("mapping %s: join to %q has no join columns", m.name, j.Table)
		}
		m.joinIndex[j.Table] = len(m.joins)
		m.joins = append(m.joins, j)
		return nil
	}

	for _, j := range own {
		if err := add(j); err != nil {
			return err
		}
	}
	for _, p := range m.props {
		if p.Kind != KindNested {
			continue
		}
		if p.Nested.table == m.table {
			return queryerr.UnsupportedJoin("mapping %s: nested property %q is a self-join on %q", m.name, p.Name, m.table)
		}
		for _, j := range p.Nested.joins {
			if existing, ok := m.joinIndex[j.Table]; ok && sameJoin(m.joins[existing], j) {
				continue
			}
			if err := add(j); err != nil {
				return err
			}
		}
	}

	for _, table := range m.tables() {
		if table == m.table {
			continue
		}
		if _, ok := m.joinIndex[table]; !ok {
			return queryerr.UnsupportedJoin("mapping %s: no join declared for table %q", m.name, table)
		}
	}
	for _, j := range m.joins {
		on := j.OnTable()
		if on == m.table {
			continue
		}
		if _, ok := m.joinIndex[on]; !ok {
			return queryerr.UnsupportedJoin("mapping %s: join to %q depends on unreachable table %q", m.name, j.Table, on)
		}
	}
	return nil
}

func sameJoin(a, b JoinSpec) bool {
	return a.Type == b.Type && a.Table == b.Table && a.On == b.On && a.Other == b.Other && a.Extra == nil && b.Extra == nil
}

// tables lists every table whose columns the mapping or its nested mappings select.
func (m *Mapping) tables() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*Mapping)
	walk = func(cur *Mapping) {
		for _, p := range cur.props {
			switch p.Kind {
			case KindColumn:
				if !seen[p.Column.Table] {
					seen[p.Column.Table] = true
					out = append(out, p.Column.Table)
				}
			case KindNested:
				walk(p.Nested)
			}
		}
	}
	walk(m)
	return out
}
