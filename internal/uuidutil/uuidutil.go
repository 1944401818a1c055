// Package uuidutil normalizes UUID values exchanged with clients and drivers.
package uuidutil

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseString parses common UUID string formats and returns a normalized lower-case UUID.
func ParseString(raw string) (uuid.UUID, string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid UUID value")
	}
	return parsed, strings.ToLower(parsed.String()), nil
}

// ParseBytes parses RFC-order UUID bytes and returns a normalized lower-case UUID.
func ParseBytes(raw []byte) (uuid.UUID, string, error) {
	parsed, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid UUID bytes")
	}
	return parsed, strings.ToLower(parsed.String()), nil
}

// ToBytes returns UUID bytes in RFC order.
func ToBytes(u uuid.UUID) []byte {
	out := make([]byte, len(u))
	copy(out, u[:])
	return out
}

// FromDriverValue converts a value read from a driver into a UUID.
// Drivers return text UUIDs as string or []byte and binary UUIDs as 16 raw bytes.
func FromDriverValue(value interface{}) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		parsed, _, err := ParseString(v)
		return parsed, err
	case []byte:
		if len(v) == 16 {
			parsed, _, err := ParseBytes(v)
			return parsed, err
		}
		parsed, _, err := ParseString(string(v))
		return parsed, err
	default:
		return uuid.Nil, fmt.Errorf("unsupported UUID value type %T", value)
	}
}
