// pkg/sql/executor/expr_test.go
package executor

import (
	"testing"

	"celdb/pkg/sql/lexer"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
)

func TestEvalArithmetic_IntegerDivisionTruncatesTowardZero(t *testing.T) {
	v, err := evalArithmetic(lexer.SLASH, types.NewInt(-7), types.NewInt(2))
	if err != nil {
		t.Fatalf("evalArithmetic: %v", err)
	}
	if v.Type() != types.TypeInt || v.Int() != -3 {
		t.Errorf("-7/2 = %v, want int -3", v)
	}
}

func TestEvalArithmetic_DivisionByZeroIsNull(t *testing.T) {
	v, err := evalArithmetic(lexer.SLASH, types.NewInt(1), types.NewInt(0))
	if err != nil {
		t.Fatalf("evalArithmetic: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("1/0 = %v, want NULL", v)
	}
}

func TestEvalArithmetic_MixedIntFloatPromotesToFloat(t *testing.T) {
	v, err := evalArithmetic(lexer.PLUS, types.NewInt(1), types.NewFloat(0.5))
	if err != nil {
		t.Fatalf("evalArithmetic: %v", err)
	}
	if v.Type() != types.TypeFloat || v.Float() != 1.5 {
		t.Errorf("1 + 0.5 = %v, want float 1.5", v)
	}
}

func TestEvalArithmetic_NullPropagates(t *testing.T) {
	v, err := evalArithmetic(lexer.PLUS, types.NewNull(), types.NewInt(1))
	if err != nil {
		t.Fatalf("evalArithmetic: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("NULL + 1 = %v, want NULL", v)
	}
}

func TestCmpResult_NullPropagates(t *testing.T) {
	v := cmpResult(types.NewNull(), types.NewInt(1), func(c int) bool { return c == 0 })
	if !v.IsNull() {
		t.Errorf("NULL = 1 -> %v, want NULL", v)
	}
}

func TestCmpResult_Equality(t *testing.T) {
	v := cmpResult(types.NewInt(5), types.NewInt(5), func(c int) bool { return c == 0 })
	if v.Int() != 1 {
		t.Errorf("5 = 5 -> %v, want 1", v)
	}
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		v    types.Value
		want bool
	}{
		{types.NewNull(), false},
		{types.NewInt(0), false},
		{types.NewInt(1), true},
		{types.NewFloat(0), false},
		{types.NewFloat(0.1), true},
		{types.NewText("0"), false},
		{types.NewText("1"), true},
	}
	for _, c := range cases {
		if got := isTruthy(c.v); got != c.want {
			t.Errorf("isTruthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestLikeMatch(t *testing.T) {
	cases := []struct {
		pattern, text string
		want          bool
	}{
		{"ali%", "alice", true},
		{"ali%", "bob", false},
		{"a_ice", "alice", true},
		{"a_ice", "allice", false},
		{"%ice", "alice", true},
		{"ALICE", "alice", true}, // case-insensitive
		{"a%e", "apple", true},
	}
	for _, c := range cases {
		if got := likeMatch(c.pattern, c.text); got != c.want {
			t.Errorf("likeMatch(%q, %q) = %v, want %v", c.pattern, c.text, got, c.want)
		}
	}
}

func mustParseExpr(t *testing.T, text string) parser.Expression {
	t.Helper()
	expr, err := parser.New(text).ParseExpr()
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", text, err)
	}
	return expr
}

func TestEvalScalar_AndOrThreeValuedLogic(t *testing.T) {
	e := newTestExecutor(t)

	// NULL AND 0 is 0 (false wins even against NULL).
	v, err := e.evalScalar(mustParseExpr(t, "NULL AND 0"), nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.IsNull() || v.Int() != 0 {
		t.Errorf("NULL AND 0 = %v, want 0", v)
	}

	// NULL OR 1 is 1 (true wins even against NULL).
	v, err = e.evalScalar(mustParseExpr(t, "NULL OR 1"), nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.IsNull() || v.Int() != 1 {
		t.Errorf("NULL OR 1 = %v, want 1", v)
	}

	// NULL AND 1 is NULL (unresolved).
	v, err = e.evalScalar(mustParseExpr(t, "NULL AND 1"), nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("NULL AND 1 = %v, want NULL", v)
	}
}
