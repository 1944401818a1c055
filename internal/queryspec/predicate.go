package queryspec

import (
	"fmt"
	"reflect"
	"strings"

	"dynquery/internal/queryerr"
)

// Predicate is a node of a filter tree: either *Simple or *Junction.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// Simple compares one field against zero, one or many values.
type Simple struct {
	Field    string
	Operator Operator
	// Values holds no element for ArityNone operators, exactly one for
	// AritySingle and the (possibly empty) list for ArityMultiple.
	Values []any
}

// Junction combines its children with AND (Conjunction) or OR.
type Junction struct {
	Conjunction bool
	Children    []Predicate
}

func (*Simple) predicate()   {}
func (*Junction) predicate() {}

// Value returns the single value of an AritySingle predicate.
func (s *Simple) Value() any {
	if len(s.Values) == 0 {
		return nil
	}
	return s.Values[0]
}

func (s *Simple) String() string {
	arity, _ := s.Operator.Arity()
	switch arity {
	case ArityNone:
		return fmt.Sprintf("%s(%s)", s.Operator, s.Field)
	case ArityMultiple:
		parts := make([]string, len(s.Values))
		for i, v := range s.Values {
			parts[i] = formatValue(v)
		}
		return fmt.Sprintf("%s(%s,[%s])", s.Operator, s.Field, strings.Join(parts, ","))
	default:
		return fmt.Sprintf("%s(%s,%s)", s.Operator, s.Field, formatValue(s.Value()))
	}
}

func (j *Junction) String() string {
	name := "or"
	if j.Conjunction {
		name = "and"
	}
	parts := make([]string, len(j.Children))
	for i, child := range j.Children {
		if child == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = child.String()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// Cond builds a simple predicate, checking the value against the operator arity.
//
// A single-value operator also accepts a one-element list. A multiple-value
// operator requires a list; an empty list is allowed.
func Cond(field string, op Operator, value any) (*Simple, error) {
	if field == "" {
		return nil, queryerr.BadField(field, "predicate field is empty")
	}
	arity, ok := op.Arity()
	if !ok {
		return nil, queryerr.BadValuef(field, string(op), "unknown operator %q", op)
	}

	list, isList := asList(value)
	switch arity {
	case ArityNone:
		if value != nil {
			return nil, queryerr.BadValuef(field, value, "operator %s takes no value", op)
		}
		return &Simple{Field: field, Operator: op}, nil
	case AritySingle:
		if isList {
			if len(list) != 1 {
				return nil, queryerr.BadValuef(field, value, "operator %s takes exactly one value, got %d", op, len(list))
			}
			value = list[0]
		}
		if value == nil {
			return nil, queryerr.BadValuef(field, nil, "operator %s requires a value", op)
		}
		return &Simple{Field: field, Operator: op, Values: []any{value}}, nil
	default:
		if !isList {
			return nil, queryerr.BadValuef(field, value, "operator %s requires a list of values", op)
		}
		for _, v := range list {
			if v == nil {
				return nil, queryerr.BadValuef(field, value, "operator %s does not accept null list elements", op)
			}
		}
		return &Simple{Field: field, Operator: op, Values: list}, nil
	}
}

// MustCond is like Cond but panics on error. Intended for statically known predicates.
func MustCond(field string, op Operator, value any) *Simple {
	s, err := Cond(field, op, value)
	if err != nil {
		panic(err)
	}
	return s
}

// And combines children conjunctively. At least one child is required.
func And(children ...Predicate) (*Junction, error) {
	return junction(true, children)
}

// Or combines children disjunctively. At least one child is required.
func Or(children ...Predicate) (*Junction, error) {
	return junction(false, children)
}

// MustAnd is like And but panics on error.
func MustAnd(children ...Predicate) *Junction {
	j, err := And(children...)
	if err != nil {
		panic(err)
	}
	return j
}

// MustOr is like Or but panics on error.
func MustOr(children ...Predicate) *Junction {
	j, err := Or(children...)
	if err != nil {
		panic(err)
	}
	return j
}

func junction(conjunction bool, children []Predicate) (*Junction, error) {
	if len(children) == 0 {
		return nil, queryerr.BadValuef("", nil, "junction requires at least one child")
	}
	for _, child := range children {
		if isNil(child) {
			return nil, queryerr.BadValuef("", nil, "junction child is nil")
		}
	}
	return &Junction{Conjunction: conjunction, Children: append([]Predicate(nil), children...)}, nil
}

// Validate re-checks a predicate tree that was assembled by hand rather than
// through Cond, And and Or. A nil predicate is valid.
func Validate(p Predicate) error {
	if isNil(p) {
		return nil
	}
	switch node := p.(type) {
	case *Simple:
		if node.Field == "" {
			return queryerr.BadField("", "predicate field is empty")
		}
		arity, ok := node.Operator.Arity()
		if !ok {
			return queryerr.BadValuef(node.Field, string(node.Operator), "unknown operator %q", node.Operator)
		}
		switch arity {
		case ArityNone:
			if len(node.Values) != 0 {
				return queryerr.BadValuef(node.Field, node.Values, "operator %s takes no value", node.Operator)
			}
		case AritySingle:
			if len(node.Values) != 1 || node.Values[0] == nil {
				return queryerr.BadValuef(node.Field, node.Values, "operator %s takes exactly one value, got %d", node.Operator, len(node.Values))
			}
		case ArityMultiple:
			for _, v := range node.Values {
				if v == nil {
					return queryerr.BadValuef(node.Field, node.Values, "operator %s does not accept null list elements", node.Operator)
				}
			}
		}
		return nil
	case *Junction:
		if len(node.Children) == 0 {
			return queryerr.BadValuef("", nil, "junction requires at least one child")
		}
		for _, child := range node.Children {
			if isNil(child) {
				return queryerr.BadValuef("", nil, "junction child is nil")
			}
			if err := Validate(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return queryerr.Invariant("unknown predicate type %T", p)
	}
}

// Walk calls fn for every simple predicate in p, depth first, left to right.
// Walking stops at the first error.
func Walk(p Predicate, fn func(*Simple) error) error {
	switch node := p.(type) {
	case nil:
		return nil
	case *Simple:
		if node == nil {
			return nil
		}
		return fn(node)
	case *Junction:
		if node == nil {
			return nil
		}
		for _, child := range node.Children {
			if err := Walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// asList reports whether v is a list of values and returns its elements.
// Byte slices are scalar values.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case nil:
		return nil, false
	case []any:
		return list, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isNil(p Predicate) bool {
	switch node := p.(type) {
	case nil:
		return true
	case *Simple:
		return node == nil
	case *Junction:
		return node == nil
	}
	return false
}
