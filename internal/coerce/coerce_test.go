package coerce

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"dynquery/internal/mapping"
	"dynquery/internal/queryerr"
	"dynquery/internal/sqltype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(typ sqltype.Type) mapping.Column {
	return mapping.Column{Table: "t", Name: "c", Type: typ}
}

func enumCol(ordinal bool) mapping.Column {
	return mapping.Column{Table: "products", Name: "type", Type: sqltype.Enum, EnumValues: []string{"cpu", "memory", "storage"}, EnumOrdinal: ordinal}
}

func TestValue_Enum(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		ordinal bool
		want    any
	}{
		{"declared name", "memory", false, "memory"},
		{"integer ordinal", 2, false, "storage"},
		{"json number ordinal", json.Number("0"), false, "cpu"},
		{"digit string ordinal", "1", false, "memory"},
		{"whole float ordinal", float64(1), false, "memory"},
		{"ordinal storage by name", "storage", true, int64(2)},
		{"ordinal storage by ordinal", 0, true, int64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Value("type", tt.raw, enumCol(tt.ordinal))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue_EnumRejects(t *testing.T) {
	for _, raw := range []any{"CPU", "gpu", 3, -1, 1.5, true, "01x"} {
		_, err := Value("type", raw, enumCol(false))
		require.Error(t, err, "raw %v", raw)
		qe, ok := queryerr.As(err)
		require.True(t, ok)
		assert.Equal(t, queryerr.KindBadQueryValue, qe.Kind)
		assert.Equal(t, "type", qe.Field)
		assert.Equal(t, raw, qe.Value)
	}
}

func TestParseTime_FallbackOrder(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-05T10:20:30Z", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"2024-03-05T10:20:30.5Z", time.Date(2024, 3, 5, 10, 20, 30, 500000000, time.UTC)},
		{"2024-03-05T10:20:30", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"2024-03-05 10:20:30", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	// An offset is honoured rather than discarded by a later layout.
	got, err := ParseTime("2024-03-05T10:20:30+02:00")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 5, 8, 20, 30, 0, time.UTC).Equal(got))

	_, err = ParseTime("05/03/2024")
	assert.Error(t, err)
}

func TestValue_Temporal(t *testing.T) {
	got, err := Value("releasedAt", "2024-03-05T10:20:30", col(sqltype.Timestamp))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC), got)

	got, err = Value("releasedOn", "2024-03-05T10:20:30Z", col(sqltype.Date))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = Value("updatedAt", "2024-03-05T10:20:30+02:00", col(sqltype.DateTime))
	require.NoError(t, err)
	updated, ok := got.(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, updated.Location())
	assert.True(t, time.Date(2024, 3, 5, 8, 20, 30, 0, time.UTC).Equal(updated))

	_, err = Value("releasedAt", "yesterday", col(sqltype.Timestamp))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"releasedAt"`)
	assert.Contains(t, err.Error(), "yesterday")

	_, err = Value("releasedAt", json.Number("1700000000"), col(sqltype.Timestamp))
	assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))
}

func TestValue_Scalars(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		typ  sqltype.Type
		want any
	}{
		{"int from json number", json.Number("42"), sqltype.Int, int64(42)},
		{"int from string", "42", sqltype.Int, int64(42)},
		{"int from whole float", float64(7), sqltype.Int, int64(7)},
		{"float from json number", json.Number("99.5"), sqltype.Float, 99.5},
		{"float from int", 3, sqltype.Float, float64(3)},
		{"decimal keeps text", json.Number("10.10"), sqltype.Decimal, "10.10"},
		{"decimal from string", "0.333", sqltype.Decimal, "0.333"},
		{"bool", true, sqltype.Bool, true},
		{"bool from string", "false", sqltype.Bool, false},
		{"bool from int", 1, sqltype.Bool, true},
		{"string", "fanpoll", sqltype.String, "fanpoll"},
		{"string from number", json.Number("12"), sqltype.String, "12"},
		{"uuid text normalized", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", sqltype.UUID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"bytes base64", "AQID", sqltype.Bytes, []byte{1, 2, 3}},
		{"json text", `{"a":1}`, sqltype.JSON, `{"a":1}`},
		{"json scalar", json.Number("5"), sqltype.JSON, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Value("f", tt.raw, col(tt.typ))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Value("id", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", col(sqltype.BinaryUUID))
	require.NoError(t, err)
	assert.Len(t, got, 16)
	assert.IsType(t, []byte{}, got)
}

func TestValue_ScalarErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		typ  sqltype.Type
	}{
		{"int from text", "ten", sqltype.Int},
		{"int from fraction", json.Number("1.5"), sqltype.Int},
		{"int from bool", true, sqltype.Int},
		{"float from text", "abc", sqltype.Float},
		{"decimal from text", "1,5", sqltype.Decimal},
		{"decimal NaN", "NaN", sqltype.Decimal},
		{"decimal infinity", "Inf", sqltype.Decimal},
		{"decimal negative infinity", "-infinity", sqltype.Decimal},
		{"decimal hex float", "0x1p-2", sqltype.Decimal},
		{"decimal NaN float", math.NaN(), sqltype.Decimal},
		{"float NaN", "NaN", sqltype.Float},
		{"float infinity", "+Inf", sqltype.Float},
		{"float negative infinity", "-infinity", sqltype.Float},
		{"float hex", "0x1p-2", sqltype.Float},
		{"float native infinity", math.Inf(1), sqltype.Float},
		{"bool from text", "maybe", sqltype.Bool},
		{"bool from two", 2, sqltype.Bool},
		{"uuid", "not-a-uuid", sqltype.UUID},
		{"bytes", "%%%", sqltype.Bytes},
		{"json", "{", sqltype.JSON},
		{"string from map", map[string]any{}, sqltype.String},
		{"null", nil, sqltype.String},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Value("f", tt.raw, col(tt.typ))
			require.Error(t, err)
			assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue), "got %v", err)
			assert.True(t, queryerr.IsClientError(err))
		})
	}
}

func TestValues(t *testing.T) {
	got, err := Values("type", []any{"cpu", json.Number("1")}, enumCol(false))
	require.NoError(t, err)
	assert.Equal(t, []any{"cpu", "memory"}, got)

	got, err = Values("type", []any{}, enumCol(false))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Values("type", []any{"cpu", "gpu"}, enumCol(false))
	assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))
}

func TestPattern(t *testing.T) {
	got, err := Pattern("name", "fan%")
	require.NoError(t, err)
	assert.Equal(t, "fan%", got)

	got, err = Pattern("price", json.Number("10"))
	require.NoError(t, err)
	assert.Equal(t, "10", got)

	_, err = Pattern("name", []any{"x"})
	assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))
}
