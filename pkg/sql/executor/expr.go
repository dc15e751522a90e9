// pkg/sql/executor/expr.go
package executor

import (
	"fmt"
	"strings"

	"celdb/pkg/sql/lexer"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
)

// evalCtx carries everything evalScalar needs to resolve a name or a
// placeholder while walking an expression tree.
type evalCtx struct {
	row        []types.Value
	colIdx     map[string]int
	params     []types.Value
	aggResults map[*parser.FunctionCall]types.Value
}

// evalScalar evaluates an expression against a single row. row/colIdx may
// be nil when evaluating a context-free expression such as a DEFAULT
// clause. aggResults, when non-nil, supplies precomputed aggregate values
// keyed by the *parser.FunctionCall node that produced them.
func (e *Executor) evalScalar(expr parser.Expression, row []types.Value, colIdx map[string]int, params []types.Value, aggResults map[*parser.FunctionCall]types.Value) (types.Value, error) {
	ctx := &evalCtx{row: row, colIdx: colIdx, params: params, aggResults: aggResults}
	return e.eval(expr, ctx)
}

func (e *Executor) eval(expr parser.Expression, ctx *evalCtx) (types.Value, error) {
	switch ex := expr.(type) {
	case *parser.Literal:
		return ex.Value, nil

	case *parser.Placeholder:
		if ex.Index < 0 || ex.Index >= len(ctx.params) {
			return types.NewNull(), fmt.Errorf("parameter index %d out of range", ex.Index)
		}
		return ctx.params[ex.Index], nil

	case *parser.ColumnRef:
		if ctx.colIdx == nil {
			return types.NewNull(), fmt.Errorf("no column %s in this context", ex.Name)
		}
		idx, ok := ctx.colIdx[strings.ToLower(ex.Name)]
		if !ok {
			return types.NewNull(), fmt.Errorf("no such column: %s", ex.Name)
		}
		if idx >= len(ctx.row) {
			return types.NewNull(), nil
		}
		return ctx.row[idx], nil

	case *parser.UnaryExpr:
		return e.evalUnary(ex, ctx)

	case *parser.BinaryExpr:
		return e.evalBinary(ex, ctx)

	case *parser.FunctionCall:
		return e.evalFunctionCall(ex, ctx)

	default:
		return types.NewNull(), fmt.Errorf("cannot evaluate expression of type %T", expr)
	}
}

func (e *Executor) evalUnary(ex *parser.UnaryExpr, ctx *evalCtx) (types.Value, error) {
	v, err := e.eval(ex.Right, ctx)
	if err != nil {
		return types.NewNull(), err
	}
	switch ex.Op {
	case lexer.MINUS:
		if v.IsNull() {
			return types.NewNull(), nil
		}
		if v.Type() == types.TypeFloat {
			return types.NewFloat(-v.Float()), nil
		}
		return types.NewInt(-v.Int()), nil
	case lexer.PLUS:
		return v, nil
	case lexer.NOT:
		if v.IsNull() {
			return types.NewNull(), nil
		}
		if isTruthy(v) {
			return types.NewInt(0), nil
		}
		return types.NewInt(1), nil
	default:
		return types.NewNull(), fmt.Errorf("unsupported unary operator: %s", ex.Op)
	}
}

func (e *Executor) evalBinary(ex *parser.BinaryExpr, ctx *evalCtx) (types.Value, error) {
	// AND/OR short-circuit and have SQLite's three-valued-logic semantics,
	// so they are handled before evaluating both sides unconditionally.
	switch ex.Op {
	case lexer.AND:
		left, err := e.eval(ex.Left, ctx)
		if err != nil {
			return types.NewNull(), err
		}
		if !left.IsNull() && !isTruthy(left) {
			return types.NewInt(0), nil
		}
		right, err := e.eval(ex.Right, ctx)
		if err != nil {
			return types.NewNull(), err
		}
		if !right.IsNull() && !isTruthy(right) {
			return types.NewInt(0), nil
		}
		if left.IsNull() || right.IsNull() {
			return types.NewNull(), nil
		}
		return types.NewInt(1), nil

	case lexer.OR:
		left, err := e.eval(ex.Left, ctx)
		if err != nil {
			return types.NewNull(), err
		}
		if !left.IsNull() && isTruthy(left) {
			return types.NewInt(1), nil
		}
		right, err := e.eval(ex.Right, ctx)
		if err != nil {
			return types.NewNull(), err
		}
		if !right.IsNull() && isTruthy(right) {
			return types.NewInt(1), nil
		}
		if left.IsNull() || right.IsNull() {
			return types.NewNull(), nil
		}
		return types.NewInt(0), nil
	}

	left, err := e.eval(ex.Left, ctx)
	if err != nil {
		return types.NewNull(), err
	}
	right, err := e.eval(ex.Right, ctx)
	if err != nil {
		return types.NewNull(), err
	}

	switch ex.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH:
		return evalArithmetic(ex.Op, left, right)
	case lexer.EQ:
		return cmpResult(left, right, func(c int) bool { return c == 0 }), nil
	case lexer.NEQ:
		return cmpResult(left, right, func(c int) bool { return c != 0 }), nil
	case lexer.LT:
		return cmpResult(left, right, func(c int) bool { return c < 0 }), nil
	case lexer.LTE:
		return cmpResult(left, right, func(c int) bool { return c <= 0 }), nil
	case lexer.GT:
		return cmpResult(left, right, func(c int) bool { return c > 0 }), nil
	case lexer.GTE:
		return cmpResult(left, right, func(c int) bool { return c >= 0 }), nil
	case lexer.LIKE_KW:
		if left.IsNull() || right.IsNull() {
			return types.NewNull(), nil
		}
		if likeMatch(right.Text(), left.Text()) {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	default:
		return types.NewNull(), fmt.Errorf("unsupported binary operator: %s", ex.Op)
	}
}

// cmpResult applies a comparator to types.Compare's result, propagating
// NULL (SQL's three-valued logic: any comparison against NULL is NULL).
func cmpResult(a, b types.Value, pred func(int) bool) types.Value {
	if a.IsNull() || b.IsNull() {
		return types.NewNull()
	}
	if pred(types.Compare(a, b)) {
		return types.NewInt(1)
	}
	return types.NewInt(0)
}

// evalArithmetic implements SQLite's dynamic-typing coercion rules: the
// result is REAL if either operand is REAL (or a non-numeric operand),
// otherwise integer arithmetic is used, with INTEGER division truncating
// toward zero.
func evalArithmetic(op lexer.TokenType, a, b types.Value) (types.Value, error) {
	if a.IsNull() || b.IsNull() {
		return types.NewNull(), nil
	}

	bothInt := a.Type() == types.TypeInt && b.Type() == types.TypeInt
	if bothInt {
		ai, bi := a.Int(), b.Int()
		switch op {
		case lexer.PLUS:
			return types.NewInt(ai + bi), nil
		case lexer.MINUS:
			return types.NewInt(ai - bi), nil
		case lexer.STAR:
			return types.NewInt(ai * bi), nil
		case lexer.SLASH:
			if bi == 0 {
				return types.NewNull(), nil
			}
			return types.NewInt(ai / bi), nil // truncates toward zero, matching Go's int division
		}
	}

	af, bf := numericFloat(a), numericFloat(b)
	switch op {
	case lexer.PLUS:
		return types.NewFloat(af + bf), nil
	case lexer.MINUS:
		return types.NewFloat(af - bf), nil
	case lexer.STAR:
		return types.NewFloat(af * bf), nil
	case lexer.SLASH:
		if bf == 0 {
			return types.NewNull(), nil
		}
		return types.NewFloat(af / bf), nil
	}
	return types.NewNull(), fmt.Errorf("unsupported arithmetic operator: %s", op)
}

func numericFloat(v types.Value) float64 {
	switch v.Type() {
	case types.TypeInt:
		return float64(v.Int())
	case types.TypeFloat:
		return v.Float()
	case types.TypeText:
		var f float64
		fmt.Sscanf(v.Text(), "%g", &f)
		return f
	default:
		return 0
	}
}

// isTruthy implements SQLite's WHERE-clause truthiness: NULL, zero, text
// that reads as zero, an empty blob, and any value of a type other than
// int/float/text/blob are false; every other value is true.
func isTruthy(v types.Value) bool {
	switch v.Type() {
	case types.TypeNull:
		return false
	case types.TypeInt:
		return v.Int() != 0
	case types.TypeFloat:
		return v.Float() != 0
	case types.TypeText:
		return numericFloat(v) != 0
	case types.TypeBlob:
		return len(v.Blob()) > 0
	default:
		return false
	}
}

// aggregateFuncNames lists the function names treated as aggregates rather
// than scalar/builtin calls.
var aggregateFuncNames = map[string]bool{
	"COUNT": true,
	"SUM":   true,
	"AVG":   true,
	"MIN":   true,
	"MAX":   true,
}

func isAggregateCall(fc *parser.FunctionCall) bool {
	return aggregateFuncNames[strings.ToUpper(fc.Name)]
}

func (e *Executor) evalFunctionCall(fc *parser.FunctionCall, ctx *evalCtx) (types.Value, error) {
	if isAggregateCall(fc) {
		if ctx.aggResults != nil {
			if v, ok := ctx.aggResults[fc]; ok {
				return v, nil
			}
		}
		return types.NewNull(), fmt.Errorf("aggregate function %s used outside of an aggregate context", fc.Name)
	}

	args := make([]types.Value, len(fc.Args))
	for i, a := range fc.Args {
		v, err := e.eval(a, ctx)
		if err != nil {
			return types.NewNull(), err
		}
		args[i] = v
	}

	fn := e.funcs.Lookup(fc.Name)
	if fn == nil {
		return types.NewNull(), fmt.Errorf("no such function: %s", fc.Name)
	}
	return fn.Call(args), nil
}

// collectAggregateCalls walks an expression and returns every aggregate
// FunctionCall node found within it (COUNT/SUM/AVG/MIN/MAX), in the order
// encountered.
func collectAggregateCalls(expr parser.Expression) []*parser.FunctionCall {
	var out []*parser.FunctionCall
	var walk func(parser.Expression)
	walk = func(e parser.Expression) {
		switch ex := e.(type) {
		case *parser.FunctionCall:
			if isAggregateCall(ex) {
				out = append(out, ex)
				return
			}
			for _, a := range ex.Args {
				walk(a)
			}
		case *parser.BinaryExpr:
			walk(ex.Left)
			walk(ex.Right)
		case *parser.UnaryExpr:
			walk(ex.Right)
		}
	}
	walk(expr)
	return out
}

// computeAggregate evaluates a single aggregate FunctionCall over a group
// of rows, given the column index map shared by every row in the group.
func (e *Executor) computeAggregate(fc *parser.FunctionCall, rows [][]types.Value, colIdx map[string]int) (types.Value, error) {
	name := strings.ToUpper(fc.Name)

	if name == "COUNT" && fc.Star {
		return types.NewInt(int64(len(rows))), nil
	}

	var arg parser.Expression
	if len(fc.Args) > 0 {
		arg = fc.Args[0]
	}

	switch name {
	case "COUNT":
		count := int64(0)
		for _, row := range rows {
			v, err := e.evalScalar(arg, row, colIdx, nil, nil)
			if err != nil {
				return types.NewNull(), err
			}
			if !v.IsNull() {
				count++
			}
		}
		return types.NewInt(count), nil

	case "SUM", "AVG":
		sum := 0.0
		allInt := true
		n := 0
		for _, row := range rows {
			v, err := e.evalScalar(arg, row, colIdx, nil, nil)
			if err != nil {
				return types.NewNull(), err
			}
			if v.IsNull() {
				continue
			}
			n++
			if v.Type() != types.TypeInt {
				allInt = false
			}
			sum += numericFloat(v)
		}
		if n == 0 {
			if name == "SUM" {
				return types.NewNull(), nil
			}
			return types.NewNull(), nil
		}
		if name == "AVG" {
			return types.NewFloat(sum / float64(n)), nil
		}
		if allInt {
			return types.NewInt(int64(sum)), nil
		}
		return types.NewFloat(sum), nil

	case "MIN", "MAX":
		var best types.Value
		has := false
		for _, row := range rows {
			v, err := e.evalScalar(arg, row, colIdx, nil, nil)
			if err != nil {
				return types.NewNull(), err
			}
			if v.IsNull() {
				continue
			}
			if !has {
				best = v
				has = true
				continue
			}
			c := types.Compare(v, best)
			if (name == "MIN" && c < 0) || (name == "MAX" && c > 0) {
				best = v
			}
		}
		if !has {
			return types.NewNull(), nil
		}
		return best, nil
	}

	return types.NewNull(), fmt.Errorf("unsupported aggregate function: %s", fc.Name)
}

// likeMatch implements SQL LIKE matching with '%' (any run of characters)
// and '_' (any single character) wildcards, case-insensitively.
func likeMatch(pattern, text string) bool {
	return likeMatchRunes([]rune(strings.ToLower(pattern)), []rune(strings.ToLower(text)))
}

func likeMatchRunes(pattern, text []rune) bool {
	if len(pattern) == 0 {
		return len(text) == 0
	}
	switch pattern[0] {
	case '%':
		// Collapse consecutive '%' and try matching the rest against every
		// suffix of text, including the empty suffix.
		for len(pattern) > 0 && pattern[0] == '%' {
			pattern = pattern[1:]
		}
		if len(pattern) == 0 {
			return true
		}
		for i := 0; i <= len(text); i++ {
			if likeMatchRunes(pattern, text[i:]) {
				return true
			}
		}
		return false
	case '_':
		if len(text) == 0 {
			return false
		}
		return likeMatchRunes(pattern[1:], text[1:])
	default:
		if len(text) == 0 || text[0] != pattern[0] {
			return false
		}
		return likeMatchRunes(pattern[1:], text[1:])
	}
}
