// Package queryerr defines the error taxonomy of the dynamic query engine.
// Client-input errors (bad fields, bad values, missing records) are recoverable at
// the request boundary; everything else is a server error.
package queryerr

import (
	"errors"
	"fmt"
)

// Kind classifies a query error.
type Kind int

const (
	// KindBadQueryField marks a field or sort field that does not resolve against a mapping.
	KindBadQueryField Kind = iota + 1
	// KindBadQueryValue marks a predicate value that fails arity or type coercion.
	KindBadQueryValue
	// KindNotFound marks a single-entity lookup that matched no rows.
	KindNotFound
	// KindUnsupportedJoin marks a mapping whose join topology cannot be planned.
	KindUnsupportedJoin
	// KindStore marks a failure returned by the underlying store.
	KindStore
	// KindInvariant marks a broken engine invariant (registry or planner bug).
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindBadQueryField:
		return "bad_query_field"
	case KindBadQueryValue:
		return "bad_query_value"
	case KindNotFound:
		return "not_found"
	case KindUnsupportedJoin:
		return "unsupported_join"
	case KindStore:
		return "store_error"
	case KindInvariant:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every failing engine branch.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Value   any
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %q)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client reports whether the error was caused by external input.
func (e *Error) Client() bool {
	switch e.Kind {
	case KindBadQueryField, KindBadQueryValue, KindNotFound:
		return true
	default:
		return false
	}
}

// Extensions returns the structured details exposed to callers at the request boundary.
func (e *Error) Extensions() map[string]interface{} {
	extensions := map[string]interface{}{
		"code": e.code(),
	}
	if e.Field != "" {
		extensions["field"] = e.Field
	}
	if e.Kind == KindBadQueryValue && e.Value != nil {
		extensions["value"] = fmt.Sprint(e.Value)
	}
	return extensions
}

func (e *Error) code() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// BadField reports an unresolvable field path.
func BadField(field string, format string, args ...any) *Error {
	return &Error{
		Kind:    KindBadQueryField,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// BadValue reports a predicate value that cannot be used for field.
func BadValue(field string, value any, err error) *Error {
	return &Error{
		Kind:    KindBadQueryValue,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("invalid value %v", describe(value)),
		Err:     err,
	}
}

// BadValuef reports a predicate value problem with a formatted message.
func BadValuef(field string, value any, format string, args ...any) *Error {
	return &Error{
		Kind:    KindBadQueryValue,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// Malformed reports a query specification that could not be decoded.
func Malformed(err error) *Error {
	return &Error{
		Kind:    KindBadQueryValue,
		Code:    "malformed_query",
		Message: "malformed query specification",
		Err:     err,
	}
}

// NotFound reports a lookup that matched nothing.
func NotFound(format string, args ...any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnsupportedJoin reports a join shape that cannot be represented.
func UnsupportedJoin(format string, args ...any) *Error {
	return &Error{
		Kind:    KindUnsupportedJoin,
		Message: fmt.Sprintf(format, args...),
	}
}

// Store wraps a store execution failure. code may be empty.
func Store(code string, err error) *Error {
	return &Error{
		Kind:    KindStore,
		Code:    code,
		Message: "store execution failed",
		Err:     err,
	}
}

// Invariant reports a violated engine invariant.
func Invariant(format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvariant,
		Message: fmt.Sprintf(format, args...),
	}
}

// As extracts the engine error from err, if any.
func As(err error) (*Error, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	qe, ok := As(err)
	return ok && qe.Kind == kind
}

// IsClientError reports whether err should be surfaced as a client-input error.
func IsClientError(err error) bool {
	qe, ok := As(err)
	return ok && qe.Client()
}

func describe(value any) string {
	if s, ok := value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", value)
}
