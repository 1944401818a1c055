// Package mapping holds the static, per-DTO field metadata the query engine
// plans against: which property maps to which column, which properties are
// nested DTOs, and how the tables behind them are joined.
//
// Mappings are built once at startup with Define and never change afterwards,
// so they can be shared by concurrent queries without locking.
package mapping

import (
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"dynquery/internal/sqltype"
)

// Column identifies one mapped table column.
type Column struct {
	Table string
	Name  string
	Type  sqltype.Type
	// EnumValues lists the declared names of an enum column in ordinal order.
	EnumValues []string
	// EnumOrdinal marks enum columns that store the ordinal instead of the name.
	EnumOrdinal bool
}

// Key returns "table.column", the key under which the column's value appears in a result row.
func (c Column) Key() string {
	return c.Table + "." + c.Name
}

// Expression is a computed value selected as `(SQL) AS alias`.
// The alias is the property name.
type Expression struct {
	Property string
	SQL      string
}

// JoinType is the SQL join keyword used for a JoinSpec.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
)

// JoinSpec describes how to reach Table from a table that is already part of the query.
type JoinSpec struct {
	Type JoinType
	// Table is the joined table.
	Table string
	// On is the "table.column" on the already joined side. A bare column name
	// refers to the mapping's own table.
	On string
	// Other is the column of Table matched against On.
	Other string
	// Extra is ANDed into the ON condition when set.
	Extra sq.Sqlizer
}

// OnTable returns the table of the On column.
func (j JoinSpec) OnTable() string {
	table, _, _ := strings.Cut(j.On, ".")
	return table
}

// OnColumn returns the column name of the On column.
func (j JoinSpec) OnColumn() string {
	_, column, _ := strings.Cut(j.On, ".")
	return column
}

// PropertyKind distinguishes the three kinds of mapped properties.
type PropertyKind int

const (
	// KindColumn properties map to exactly one column.
	KindColumn PropertyKind = iota
	// KindNested properties hold another mapped DTO (or a list of them).
	KindNested
	// KindExpression properties receive a computed value by alias.
	KindExpression
)

// Property is one mapped DTO property.
type Property struct {
	Name       string
	Kind       PropertyKind
	Column     Column
	Expression Expression
	Nested     *Mapping
	// Many marks a one-to-many nested property backed by a slice.
	Many bool

	target func(dto any) any
	attach func(parent, child any)
	child  func(parent any) any
	ensure func(parent any)
}

// Target returns a pointer to the property's storage in dto.
// It is only valid for column and expression properties.
func (p Property) Target(dto any) any {
	return p.target(dto)
}

// Attach stores child in parent: a one-to-one property is set, a one-to-many
// property is appended to.
func (p Property) Attach(parent, child any) {
	p.attach(parent, child)
}

// Child returns the current one-to-one child of parent, or nil.
func (p Property) Child(parent any) any {
	if p.child == nil {
		return nil
	}
	return p.child(parent)
}

// EnsureList initializes a nil one-to-many slice in parent to an empty slice.
func (p Property) EnsureList(parent any) {
	if p.ensure != nil {
		p.ensure(parent)
	}
}

// Mapping is the immutable field metadata of one DTO type.
type Mapping struct {
	name       string
	typ        reflect.Type
	table      string
	props      []Property
	byName     map[string]int
	primaryKey []Column
	pkProps    []string
	joins      []JoinSpec
	joinIndex  map[string]int
	hasMany    int
	newDTO     func() any
}

// Name returns the DTO type name.
func (m *Mapping) Name() string { return m.name }

// Type returns the DTO struct type.
func (m *Mapping) Type() reflect.Type { return m.typ }

// Table returns the mapping's own table.
func (m *Mapping) Table() string { return m.table }

// New returns a new zero DTO as a pointer (*T).
func (m *Mapping) New() any { return m.newDTO() }

// Properties returns all properties in declaration order.
func (m *Mapping) Properties() []Property {
	return append([]Property(nil), m.props...)
}

// Property looks up a property by name.
func (m *Mapping) Property(name string) (Property, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return Property{}, false
	}
	return m.props[idx], true
}

// Columns returns the directly mapped columns in declaration order.
func (m *Mapping) Columns() []Column {
	var cols []Column
	for _, p := range m.props {
		if p.Kind == KindColumn {
			cols = append(cols, p.Column)
		}
	}
	return cols
}

// Expressions returns the expression properties in declaration order.
func (m *Mapping) Expressions() []Expression {
	var exprs []Expression
	for _, p := range m.props {
		if p.Kind == KindExpression {
			exprs = append(exprs, p.Expression)
		}
	}
	return exprs
}

// Nested returns the nested properties in declaration order.
func (m *Mapping) Nested() []Property {
	var nested []Property
	for _, p := range m.props {
		if p.Kind == KindNested {
			nested = append(nested, p)
		}
	}
	return nested
}

// PrimaryKey returns the primary key columns.
func (m *Mapping) PrimaryKey() []Column {
	return append([]Column(nil), m.primaryKey...)
}

// PrimaryKeyProperties returns the property names of the primary key columns.
func (m *Mapping) PrimaryKeyProperties() []string {
	return append([]string(nil), m.pkProps...)
}

// HasMany returns the designated one-to-many property, if the mapping has one.
func (m *Mapping) HasMany() (Property, bool) {
	if m.hasMany < 0 {
		return Property{}, false
	}
	return m.props[m.hasMany], true
}

// FansOut reports whether rows of this mapping can repeat because of a
// one-to-many join anywhere below it.
func (m *Mapping) FansOut() bool {
	if m.hasMany >= 0 {
		return true
	}
	for _, p := range m.props {
		if p.Kind == KindNested && p.Nested.FansOut() {
			return true
		}
	}
	return false
}

// Join returns the join that brings table into a query rooted at this mapping.
// Joins declared on nested mappings are included.
func (m *Mapping) Join(table string) (JoinSpec, bool) {
	idx, ok := m.joinIndex[table]
	if !ok {
		return JoinSpec{}, false
	}
	return m.joins[idx], true
}

// Joins returns every join available to queries rooted at this mapping.
func (m *Mapping) Joins() []JoinSpec {
	return append([]JoinSpec(nil), m.joins...)
}
