package queryspec

// Arity is the number of values an operator takes.
type Arity int

const (
	// ArityNone operators take no value.
	ArityNone Arity = iota
	// AritySingle operators take exactly one value.
	AritySingle
	// ArityMultiple operators take a list of values.
	ArityMultiple
)

func (a Arity) String() string {
	switch a {
	case ArityNone:
		return "none"
	case AritySingle:
		return "single"
	case ArityMultiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// Operator is a comparison operator of a simple predicate.
type Operator string

const (
	OpEq        Operator = "eq"
	OpNeq       Operator = "neq"
	OpLike      Operator = "like"
	OpLt        Operator = "lt"
	OpLe        Operator = "le"
	OpGt        Operator = "gt"
	OpGe        Operator = "ge"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpIsNull    Operator = "is_null"
	OpIsNotNull Operator = "is_not_null"
)

var operatorArity = map[Operator]Arity{
	OpEq:        AritySingle,
	OpNeq:       AritySingle,
	OpLike:      AritySingle,
	OpLt:        AritySingle,
	OpLe:        AritySingle,
	OpGt:        AritySingle,
	OpGe:        AritySingle,
	OpIn:        ArityMultiple,
	OpNotIn:     ArityMultiple,
	OpIsNull:    ArityNone,
	OpIsNotNull: ArityNone,
}

// Arity returns the value arity of the operator.
// ok is false for operators the engine does not know.
func (o Operator) Arity() (arity Arity, ok bool) {
	arity, ok = operatorArity[o]
	return arity, ok
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	_, ok := operatorArity[o]
	return ok
}

// Operators lists every supported operator.
func Operators() []Operator {
	return []Operator{OpEq, OpNeq, OpLike, OpLt, OpLe, OpGt, OpGe, OpIn, OpNotIn, OpIsNull, OpIsNotNull}
}
