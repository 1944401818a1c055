// Package coerce converts raw predicate values (strings and JSON scalars)
// into the native type of the column they are compared against.
//
// All functions are pure; the column type is always passed explicitly.
package coerce

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dynquery/internal/mapping"
	"dynquery/internal/queryerr"
	"dynquery/internal/sqltype"
	"dynquery/internal/uuidutil"
)

// Temporal layouts in the order they are tried.
const (
	LayoutTimestamp      = time.RFC3339Nano
	LayoutLocalDateTime  = "2006-01-02T15:04:05.999999999"
	LayoutLocalDateSpace = "2006-01-02 15:04:05.999999999"
	LayoutDate           = "2006-01-02"
)

var temporalLayouts = []string{LayoutTimestamp, LayoutLocalDateTime, LayoutLocalDateSpace, LayoutDate}

// Value coerces raw into the native value for column. field names the
// predicate field for error reporting. Every failure is a BadQueryValue error.
func Value(field string, raw any, column mapping.Column) (any, error) {
	if raw == nil {
		return nil, queryerr.BadValuef(field, nil, "null is not a comparable value")
	}
	v, err := convert(raw, column)
	if err != nil {
		return nil, queryerr.BadValue(field, raw, err)
	}
	return v, nil
}

// Values coerces every element of raws.
func Values(field string, raws []any, column mapping.Column) ([]any, error) {
	out := make([]any, len(raws))
	for i, raw := range raws {
		v, err := Value(field, raw, column)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Pattern coerces a LIKE pattern. Patterns are compared as text whatever the column type.
func Pattern(field string, raw any) (string, error) {
	s, err := toString(raw)
	if err != nil {
		return "", queryerr.BadValue(field, raw, err)
	}
	return s, nil
}

func convert(raw any, column mapping.Column) (any, error) {
	switch column.Type {
	case sqltype.Enum:
		return toEnum(raw, column)
	case sqltype.Timestamp, sqltype.DateTime, sqltype.Date:
		return toTime(raw, column.Type)
	case sqltype.Int:
		return toInt(raw)
	case sqltype.Float:
		return toFloat(raw)
	case sqltype.Decimal:
		return toDecimal(raw)
	case sqltype.Bool:
		return toBool(raw)
	case sqltype.UUID:
		u, err := uuidutil.FromDriverValue(raw)
		if err != nil {
			return nil, err
		}
		return u.String(), nil
	case sqltype.BinaryUUID:
		u, err := uuidutil.FromDriverValue(raw)
		if err != nil {
			return nil, err
		}
		return uuidutil.ToBytes(u), nil
	case sqltype.Bytes:
		return toBytes(raw)
	case sqltype.JSON:
		return toJSON(raw)
	default:
		return toString(raw)
	}
}

func toEnum(raw any, column mapping.Column) (any, error) {
	if s, ok := raw.(string); ok {
		for i, name := range column.EnumValues {
			if name == s {
				return enumValue(column, i), nil
			}
		}
		if !isDigits(s) {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(column.EnumValues, ", "))
		}
	}
	ordinal, err := toInt(raw)
	if err != nil {
		return nil, fmt.Errorf("enum value must be a declared name or an ordinal")
	}
	if ordinal < 0 || ordinal >= int64(len(column.EnumValues)) {
		return nil, fmt.Errorf("enum ordinal %d out of range [0,%d)", ordinal, len(column.EnumValues))
	}
	return enumValue(column, int(ordinal)), nil
}

func enumValue(column mapping.Column, ordinal int) any {
	if column.EnumOrdinal {
		return int64(ordinal)
	}
	return column.EnumValues[ordinal]
}

// ParseTime parses s with the temporal layouts in strict order: an absolute
// RFC 3339 timestamp, then a local date-time (T or space separated), then a
// bare date. The first layout that parses wins. Zone-less values are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a timestamp, local date-time or date", s)
}

func toTime(raw any, typ sqltype.Type) (any, error) {
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		parsed, err := ParseTime(v)
		if err != nil {
			return nil, err
		}
		t = parsed
	default:
		return nil, fmt.Errorf("expected a date string, got %T", raw)
	}
	if typ == sqltype.Date {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	if typ == sqltype.DateTime && t.Location() != time.UTC {
		// Zone-less columns compare against the wall clock in UTC.
		return t.UTC(), nil
	}
	return t, nil
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v.String())
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
}

func uintToInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("integer %d overflows int64", v)
	}
	return int64(v), nil
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case json.Number:
		return parseDecimalText(v.String())
	case string:
		f, err := parseDecimalText(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	default:
		i, err := toInt(raw)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %T", raw)
		}
		return float64(i), nil
	}
}

// toDecimal keeps the decimal text so no precision is lost on the way to the store.
func toDecimal(raw any) (string, error) {
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		i, err := toInt(raw)
		if err != nil {
			return "", fmt.Errorf("expected a decimal, got %T", raw)
		}
		return strconv.FormatInt(i, 10), nil
	}
	if _, err := parseDecimalText(s); err != nil {
		return "", fmt.Errorf("%q is not a decimal", s)
	}
	return s, nil
}

// parseDecimalText accepts finite base-10 numbers only. ParseFloat alone
// would also take NaN, infinities and hex floats.
func parseDecimalText(s string) (float64, error) {
	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("%q is not a base-10 number", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return finite(f)
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v)
		}
		return b, nil
	default:
		i, err := toInt(raw)
		if err != nil || (i != 0 && i != 1) {
			return false, fmt.Errorf("expected a boolean, got %v", raw)
		}
		return i == 1, nil
	}
}

func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, errors.New("bytes must be base64 encoded")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected base64 text, got %T", raw)
	}
}

func toJSON(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		if !json.Valid([]byte(v)) {
			return "", errors.New("value is not valid JSON")
		}
		return v, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return "", errors.New("value is not valid JSON")
		}
		return string(v), nil
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", raw)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
