// pkg/sql/executor/helpers.go
package executor

import (
	"encoding/binary"
	"fmt"
	"strings"

	"celdb/pkg/record"
	"celdb/pkg/sql/parser"
	"celdb/pkg/types"
)

// encodeKey encodes an int64 rowid as the big-endian btree key used for
// both table rows and the hidden rowid counter.
func encodeKey(rowid int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(rowid))
	return buf
}

func rowidFromKey(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}

func encodeRow(values []types.Value) []byte {
	return record.Encode(values)
}

func decodeRow(data []byte) []types.Value {
	return record.Decode(data)
}

// exprToString renders an expression back to SQL text, used for persisting
// CHECK constraints and the CREATE statement text in the schema tree.
func exprToString(e parser.Expression) string {
	if e == nil {
		return ""
	}
	switch expr := e.(type) {
	case *parser.Literal:
		return literalToString(expr.Value)
	case *parser.Placeholder:
		return "?"
	case *parser.ColumnRef:
		return expr.Name
	case *parser.UnaryExpr:
		return expr.Op.String() + exprToString(expr.Right)
	case *parser.BinaryExpr:
		return fmt.Sprintf("%s %s %s", exprToString(expr.Left), expr.Op.String(), exprToString(expr.Right))
	case *parser.FunctionCall:
		if expr.Star {
			return expr.Name + "(*)"
		}
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = exprToString(a)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	default:
		return ""
	}
}

func literalToString(v types.Value) string {
	switch v.Type() {
	case types.TypeNull:
		return "NULL"
	case types.TypeInt:
		return fmt.Sprintf("%d", v.Int())
	case types.TypeFloat:
		return fmt.Sprintf("%g", v.Float())
	case types.TypeText:
		return "'" + strings.ReplaceAll(v.Text(), "'", "''") + "'"
	case types.TypeBlob:
		return "x'" + fmt.Sprintf("%x", v.Blob()) + "'"
	default:
		return "NULL"
	}
}
