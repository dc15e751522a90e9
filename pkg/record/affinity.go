// pkg/record/affinity.go
package record

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"celdb/pkg/types"
)

// Affinity is one of the five SQL storage affinities that a declared
// column type maps onto. Affinity governs how a value is coerced before
// it is stored, not how it is stored on disk.
type Affinity int

const (
	AffinityBlob Affinity = iota
	AffinityText
	AffinityNumeric
	AffinityInteger
	AffinityReal
)

// AffinityOf maps a declared column ValueType to its storage affinity.
// Date/time/vector types carry no affinity: they are native types and
// are never coerced.
func AffinityOf(declared types.ValueType) Affinity {
	switch declared {
	case types.TypeInt, types.TypeSmallInt, types.TypeInt32, types.TypeBigInt,
		types.TypeSerial, types.TypeBigSerial:
		return AffinityInteger
	case types.TypeFloat:
		return AffinityReal
	case types.TypeDecimal:
		return AffinityNumeric
	case types.TypeText, types.TypeVarchar, types.TypeChar:
		return AffinityText
	default:
		return AffinityBlob
	}
}

// CoerceToAffinity applies SQLite-style affinity coercion to v for a
// column declared with type declared. NULL and BLOB values, and any
// value whose declared type carries no affinity (dates, times, vectors),
// pass through unchanged.
func CoerceToAffinity(v types.Value, declared types.ValueType) types.Value {
	if v.IsNull() || v.Type() == types.TypeBlob {
		return v
	}

	switch AffinityOf(declared) {
	case AffinityInteger:
		return coerceInteger(v)
	case AffinityReal:
		return coerceReal(v)
	case AffinityNumeric:
		return coerceNumeric(v)
	case AffinityText:
		return coerceText(v, declared)
	default:
		return v
	}
}

// coerceInteger implements INTEGER affinity: text/real values that
// convert losslessly to an integer are converted; a real with a
// fractional part is stored as REAL instead, matching SQLite.
func coerceInteger(v types.Value) types.Value {
	switch v.Type() {
	case types.TypeText, types.TypeVarchar, types.TypeChar, types.TypeDecimal:
		s := strings.TrimSpace(v.Text())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return types.NewInt(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f == float64(int64(f)) {
				return types.NewInt(int64(f))
			}
			return types.NewFloat(f)
		}
		return v
	case types.TypeFloat:
		f := v.Float()
		if f == float64(int64(f)) {
			return types.NewInt(int64(f))
		}
		return v
	default:
		return v
	}
}

// coerceReal implements REAL affinity: integers and numeric text convert
// to float64.
func coerceReal(v types.Value) types.Value {
	switch v.Type() {
	case types.TypeText, types.TypeVarchar, types.TypeChar, types.TypeDecimal:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64); err == nil {
			return types.NewFloat(f)
		}
		return v
	default:
		if types.IsIntegerType(v.Type()) {
			return types.NewFloat(float64(v.Int()))
		}
		return v
	}
}

// coerceNumeric implements NUMERIC affinity, which behaves exactly like
// INTEGER affinity here: a REAL with a fractional part stays REAL in both.
func coerceNumeric(v types.Value) types.Value {
	return coerceInteger(v)
}

// coerceText implements TEXT affinity: numeric values are rendered to
// their canonical text form; declared controls whether the result keeps
// a VARCHAR/CHAR tag or plain TEXT.
func coerceText(v types.Value, declared types.ValueType) types.Value {
	var s string
	switch {
	case types.IsIntegerType(v.Type()):
		s = strconv.FormatInt(v.Int(), 10)
	case v.Type() == types.TypeFloat:
		s = strconv.FormatFloat(v.Float(), 'g', -1, 64)
	default:
		return v
	}
	switch declared {
	case types.TypeVarchar:
		return types.NewVarchar(s)
	case types.TypeChar:
		return types.NewChar(s)
	default:
		return types.NewText(s)
	}
}

// Collation compares two strings for ORDER BY / index purposes.
type Collation interface {
	Compare(a, b string) int
	Name() string
}

// binaryCollation is the default byte-wise collation (SQLite's BINARY).
type binaryCollation struct{}

func (binaryCollation) Name() string { return "BINARY" }

func (binaryCollation) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// noCaseCollation implements NOCASE: ASCII-style case folding followed
// by locale-aware ordering, using x/text's Unicode case folding so
// non-ASCII letters fold correctly too.
type noCaseCollation struct {
	caser *cases.Caser
	col   *collate.Collator
}

func (noCaseCollation) Name() string { return "NOCASE" }

func (c *noCaseCollation) Compare(a, b string) int {
	fa := c.caser.String(a)
	fb := c.caser.String(b)
	return c.col.CompareString(fa, fb)
}

// NewCollation resolves a collation by name. Recognized names are
// "BINARY" (default) and "NOCASE"; unknown names fall back to BINARY.
func NewCollation(name string) Collation {
	switch strings.ToUpper(name) {
	case "NOCASE":
		caser := cases.Fold()
		return &noCaseCollation{
			caser: &caser,
			col:   collate.New(language.Und),
		}
	default:
		return binaryCollation{}
	}
}
