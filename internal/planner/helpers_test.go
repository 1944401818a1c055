package planner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dynquery/internal/catalog"
	"dynquery/internal/mapping"
	"dynquery/internal/queryspec"
)

func products(t *testing.T) *mapping.Mapping {
	t.Helper()
	return catalog.MustBuild().Products
}

func cond(field string, op queryspec.Operator, value any) queryspec.Predicate {
	return queryspec.MustCond(field, op, value)
}

func assertSQLMatches(t *testing.T, got string, candidates ...string) {
	t.Helper()

	gotNorm := normalizeSQL(got)
	for _, candidate := range candidates {
		if gotNorm == normalizeSQL(candidate) {
			return
		}
	}

	assert.Fail(t, "SQL did not match any expected form", "got: %q candidates: %v", gotNorm, candidates)
}

func assertArgsEqual(t *testing.T, got []interface{}, expected []interface{}) {
	t.Helper()

	if len(got) != len(expected) {
		assert.Equal(t, len(expected), len(got))
		return
	}
	assert.Equal(t, normalizeArgs(expected), normalizeArgs(got))
}

// Normalize args to strings so numeric types compare consistently.
func normalizeArgs(args []interface{}) []string {
	normalized := make([]string, len(args))
	for i, arg := range args {
		normalized[i] = fmt.Sprintf("%v", arg)
	}
	return normalized
}

// Normalize SQL for stable comparisons across whitespace differences.
func normalizeSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
