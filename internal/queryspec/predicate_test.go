package queryspec

import (
	"testing"

	"dynquery/internal/queryerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorArity(t *testing.T) {
	tests := []struct {
		op    Operator
		arity Arity
	}{
		{OpIsNull, ArityNone},
		{OpIsNotNull, ArityNone},
		{OpEq, AritySingle},
		{OpNeq, AritySingle},
		{OpLike, AritySingle},
		{OpLt, AritySingle},
		{OpLe, AritySingle},
		{OpGt, AritySingle},
		{OpGe, AritySingle},
		{OpIn, ArityMultiple},
		{OpNotIn, ArityMultiple},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			arity, ok := tt.op.Arity()
			require.True(t, ok)
			assert.Equal(t, tt.arity, arity)
		})
	}
	assert.Len(t, Operators(), len(tests))

	_, ok := Operator("between").Arity()
	assert.False(t, ok)
}

func TestCond_ArityEnforcement(t *testing.T) {
	t.Run("none rejects any value", func(t *testing.T) {
		for _, v := range []any{"x", 0, []any{}, []any{"x"}} {
			_, err := Cond("name", OpIsNull, v)
			assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue), "value %v", v)
		}
		s, err := Cond("name", OpIsNull, nil)
		require.NoError(t, err)
		assert.Empty(t, s.Values)
	})

	t.Run("single rejects zero or many values", func(t *testing.T) {
		for _, v := range []any{nil, []any{}, []any{1, 2}, []string{"a", "b"}} {
			_, err := Cond("price", OpGt, v)
			assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue), "value %v", v)
		}
	})

	t.Run("single unwraps a one element list", func(t *testing.T) {
		s, err := Cond("price", OpGt, []any{100})
		require.NoError(t, err)
		assert.Equal(t, []any{100}, s.Values)
		assert.Equal(t, 100, s.Value())
	})

	t.Run("single keeps byte slices as one value", func(t *testing.T) {
		s, err := Cond("payload", OpEq, []byte{1, 2})
		require.NoError(t, err)
		assert.Equal(t, []any{[]byte{1, 2}}, s.Values)
	})

	t.Run("multiple requires a list", func(t *testing.T) {
		_, err := Cond("type", OpIn, "cpu")
		assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))

		_, err = Cond("type", OpIn, nil)
		assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))

		_, err = Cond("type", OpIn, []any{"cpu", nil})
		assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))
	})

	t.Run("multiple accepts empty and typed lists", func(t *testing.T) {
		s, err := Cond("type", OpNotIn, []any{})
		require.NoError(t, err)
		assert.Empty(t, s.Values)

		s, err = Cond("type", OpIn, []string{"cpu", "memory"})
		require.NoError(t, err)
		assert.Equal(t, []any{"cpu", "memory"}, s.Values)
	})

	t.Run("unknown operator and empty field", func(t *testing.T) {
		_, err := Cond("price", Operator("between"), 1)
		assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))

		_, err = Cond("", OpEq, 1)
		assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryField))
	})
}

func TestJunction(t *testing.T) {
	_, err := And()
	assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))

	_, err = Or(nil)
	assert.True(t, queryerr.IsKind(err, queryerr.KindBadQueryValue))

	var missing *Simple
	_, err = And(missing)
	assert.Error(t, err)

	tree := MustAnd(
		MustCond("name", OpEq, "fanpoll"),
		MustOr(
			MustCond("price", OpGt, 100),
			MustCond("type", OpIn, []any{"cpu", "memory"}),
		),
	)
	assert.True(t, tree.Conjunction)
	assert.Equal(t, `and(eq(name,"fanpoll"),or(gt(price,100),in(type,["cpu","memory"])))`, tree.String())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))

	deep := Predicate(MustCond("a", OpEq, 1))
	for i := 0; i < 50; i++ {
		deep = MustOr(MustAnd(deep))
	}
	assert.NoError(t, Validate(deep))

	tests := []struct {
		name string
		pred Predicate
		kind queryerr.Kind
	}{
		{"single without value", &Simple{Field: "a", Operator: OpEq}, queryerr.KindBadQueryValue},
		{"single with two values", &Simple{Field: "a", Operator: OpEq, Values: []any{1, 2}}, queryerr.KindBadQueryValue},
		{"none with value", &Simple{Field: "a", Operator: OpIsNull, Values: []any{1}}, queryerr.KindBadQueryValue},
		{"unknown operator", &Simple{Field: "a", Operator: "between"}, queryerr.KindBadQueryValue},
		{"empty field", &Simple{Operator: OpIsNull}, queryerr.KindBadQueryField},
		{"empty junction", &Junction{Conjunction: true}, queryerr.KindBadQueryValue},
		{"nested bad child", &Junction{Children: []Predicate{MustCond("a", OpEq, 1), &Junction{}}}, queryerr.KindBadQueryValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pred)
			require.Error(t, err)
			assert.True(t, queryerr.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestWalk(t *testing.T) {
	tree := MustAnd(
		MustCond("name", OpEq, "fanpoll"),
		MustOr(MustCond("price", OpGt, 100), MustCond("vendor.name", OpIsNull, nil)),
	)

	var fields []string
	err := Walk(tree, func(s *Simple) error {
		fields = append(fields, s.Field)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price", "vendor.name"}, fields)

	assert.NoError(t, Walk(nil, func(*Simple) error { return assert.AnError }))
	assert.ErrorIs(t, Walk(tree, func(*Simple) error { return assert.AnError }), assert.AnError)
}
