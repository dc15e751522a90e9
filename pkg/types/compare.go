// pkg/types/compare.go
package types

// Compare orders two values using SQLite's type-then-value ordering:
// NULL < numeric (INTEGER/FLOAT, compared across the pair) < TEXT < BLOB.
// Within a type, INTEGER/FLOAT compare numerically, TEXT and BLOB compare
// byte-wise. It returns -1, 0, or 1.
func Compare(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch {
	case a.Type() == TypeNull:
		return 0
	case IsIntegerType(a.Type()) || a.Type() == TypeFloat:
		return compareNumeric(a, b)
	case a.Type() == TypeText || a.Type() == TypeVarchar || a.Type() == TypeChar || a.Type() == TypeDecimal:
		return compareBytes([]byte(a.Text()), []byte(b.Text()))
	case a.Type() == TypeBlob:
		return compareBytes(a.Blob(), b.Blob())
	default:
		return 0
	}
}

func typeRank(v Value) int {
	switch {
	case v.Type() == TypeNull:
		return 0
	case IsIntegerType(v.Type()) || v.Type() == TypeFloat:
		return 1
	case v.Type() == TypeText || v.Type() == TypeVarchar || v.Type() == TypeChar || v.Type() == TypeDecimal:
		return 2
	case v.Type() == TypeBlob:
		return 3
	default:
		return 4
	}
}

func compareNumeric(a, b Value) int {
	af, bf := numericFloat(a), numericFloat(b)
	if IsIntegerType(a.Type()) && IsIntegerType(b.Type()) {
		ai, bi := a.Int(), b.Int()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func numericFloat(v Value) float64 {
	if IsIntegerType(v.Type()) {
		return float64(v.Int())
	}
	return v.Float()
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Equal reports whether two values are equal under Compare.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}
