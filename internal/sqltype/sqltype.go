// Package sqltype provides a shared mapping from SQL data types to the native
// value categories the query engine coerces predicate values into.
package sqltype

import "strings"

// Type represents the native value category of a mapped column.
type Type int

const (
	// String is the default type for text and unknown SQL types.
	String Type = iota
	// Int represents integer numeric types.
	Int
	// Float represents floating-point types.
	Float
	// Decimal represents fixed-point numeric types; values travel as strings.
	Decimal
	// Bool represents boolean types.
	Bool
	// Timestamp represents absolute instants (TIMESTAMP, TIMESTAMPTZ).
	Timestamp
	// DateTime represents zone-less date-times (DATETIME).
	DateTime
	// Date represents calendar dates.
	Date
	// Enum represents columns restricted to a declared list of names.
	Enum
	// UUID represents UUIDs stored as text.
	UUID
	// BinaryUUID represents UUIDs stored as 16 raw bytes.
	BinaryUUID
	// Bytes represents binary types; client values are base64.
	Bytes
	// JSON represents JSON documents.
	JSON
)

// FromSQL converts a SQL data type string to its native type category.
// The input is case-insensitive. Size specifiers like (10,2) or (255) are stripped before matching.
func FromSQL(sqlType string) Type {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT",
		"INTEGER", "BIGINT", "SERIAL", "BIGSERIAL", "BIT", "INT2", "INT4", "INT8":
		return Int
	case "FLOAT", "DOUBLE", "REAL", "DOUBLE PRECISION", "FLOAT4", "FLOAT8":
		return Float
	case "DECIMAL", "NUMERIC":
		return Decimal
	case "BOOL", "BOOLEAN":
		return Bool
	case "JSON", "JSONB":
		return JSON
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return Timestamp
	case "DATETIME", "TIMESTAMP WITHOUT TIME ZONE":
		return DateTime
	case "DATE":
		return Date
	case "ENUM":
		return Enum
	case "UUID":
		return UUID
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"BINARY", "VARBINARY", "BYTEA":
		return Bytes
	default:
		return String
	}
}

// Temporal reports whether values of this type are parsed with the date fallback chain.
func (t Type) Temporal() bool {
	return t == Timestamp || t == DateTime || t == Date
}

// String returns the lower-case type name used in logs and error messages.
func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Bool:
		return "bool"
	case Timestamp:
		return "timestamp"
	case DateTime:
		return "datetime"
	case Date:
		return "date"
	case Enum:
		return "enum"
	case UUID:
		return "uuid"
	case BinaryUUID:
		return "binary_uuid"
	case Bytes:
		return "bytes"
	case JSON:
		return "json"
	default:
		return "string"
	}
}
