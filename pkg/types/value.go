// pkg/types/value.go
package types

import "time"

// ValueType represents the type of a database value
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeText
	TypeBlob

	// Fixed-width integer affinities. These all share Value's intVal
	// storage and compare/coerce as plain integers; they exist so the
	// catalog and the wire protocol can round-trip a column's declared
	// width and auto-increment behavior.
	TypeSmallInt
	TypeInt32
	TypeBigInt
	TypeSerial
	TypeBigSerial

	// Character affinities with declared length, stored in textVal.
	TypeVarchar
	TypeChar

	// Fixed-point numeric stored as text to avoid float rounding.
	TypeDecimal

	// Date/time family. Stored as UTC wall-clock components so callers
	// never pay for a *time.Location they didn't ask for.
	TypeDate
	TypeTime
	TypeTimeTZ
	TypeTimestamp
	TypeTimestampTZ
	TypeInterval

	// Vector is an embedding of float32s, used by similarity search.
	TypeVector
)

// IsIntegerType reports whether t is one of the integer affinities,
// including the base TypeInt.
func IsIntegerType(t ValueType) bool {
	switch t {
	case TypeInt, TypeSmallInt, TypeInt32, TypeBigInt, TypeSerial, TypeBigSerial:
		return true
	}
	return false
}

// Vector is an embedding value used for similarity search and caching.
type Vector struct {
	data []float32
}

// NewVectorData builds a Vector from float32 components.
func NewVectorData(data []float32) *Vector {
	copied := make([]float32, len(data))
	copy(copied, data)
	return &Vector{data: copied}
}

// Data returns the vector's components.
func (v *Vector) Data() []float32 {
	if v == nil {
		return nil
	}
	copied := make([]float32, len(v.data))
	copy(copied, v.data)
	return copied
}

// Dimension returns the number of components in the vector.
func (v *Vector) Dimension() int {
	if v == nil {
		return 0
	}
	return len(v.data)
}

// dateParts holds the decomposed fields backing the date/time affinities.
// Only the fields relevant to the value's type are meaningful.
type dateParts struct {
	year, month, day             int
	hour, minute, second, micros int
	offsetMinutes                int
	months                       int64
	micros64                     int64
	ts                           time.Time
}

// Value represents a database value (like SQLite's Mem structure)
type Value struct {
	typ      ValueType
	intVal   int64
	floatVal float64
	textVal  string
	blobVal  []byte
	vecVal   *Vector
	dt       *dateParts
}

func NewNull() Value {
	return Value{typ: TypeNull}
}

func NewInt(i int64) Value {
	return Value{typ: TypeInt, intVal: i}
}

func NewFloat(f float64) Value {
	return Value{typ: TypeFloat, floatVal: f}
}

func NewText(s string) Value {
	return Value{typ: TypeText, textVal: s}
}

func NewBlob(b []byte) Value {
	if b == nil {
		return Value{typ: TypeBlob, blobVal: nil}
	}
	copied := make([]byte, len(b))
	copy(copied, b)
	return Value{typ: TypeBlob, blobVal: copied}
}

// NewSmallInt builds a SMALLINT-affinity value.
func NewSmallInt(i int64) Value { return Value{typ: TypeSmallInt, intVal: i} }

// NewInt32 builds an INT-affinity value.
func NewInt32(i int32) Value { return Value{typ: TypeInt32, intVal: int64(i)} }

// NewBigInt builds a BIGINT-affinity value.
func NewBigInt(i int64) Value { return Value{typ: TypeBigInt, intVal: i} }

// NewSerial builds a SERIAL-affinity value (auto-incrementing INT).
func NewSerial(i int64) Value { return Value{typ: TypeSerial, intVal: i} }

// NewBigSerial builds a BIGSERIAL-affinity value (auto-incrementing BIGINT).
func NewBigSerial(i int64) Value { return Value{typ: TypeBigSerial, intVal: i} }

// NewVarchar builds a VARCHAR-affinity value.
func NewVarchar(s string) Value { return Value{typ: TypeVarchar, textVal: s} }

// NewChar builds a CHAR-affinity value.
func NewChar(s string) Value { return Value{typ: TypeChar, textVal: s} }

// NewDecimal builds a fixed-point DECIMAL value from its canonical text
// representation, e.g. "123.45".
func NewDecimal(s string) Value { return Value{typ: TypeDecimal, textVal: s} }

// NewDate builds a DATE value from year/month/day components.
func NewDate(year, month, day int) Value {
	return Value{typ: TypeDate, dt: &dateParts{year: year, month: month, day: day}}
}

// DateValue returns the year, month, and day of a DATE value.
func (v Value) DateValue() (year, month, day int) {
	if v.dt == nil {
		return 0, 0, 0
	}
	return v.dt.year, v.dt.month, v.dt.day
}

// NewTime builds a TIME value from hour/minute/second/microsecond components.
func NewTime(hour, minute, second, microsecond int) Value {
	return Value{typ: TypeTime, dt: &dateParts{hour: hour, minute: minute, second: second, micros: microsecond}}
}

// TimeValue returns the hour, minute, second, and microsecond of a TIME value.
func (v Value) TimeValue() (hour, minute, second, microsecond int) {
	if v.dt == nil {
		return 0, 0, 0, 0
	}
	return v.dt.hour, v.dt.minute, v.dt.second, v.dt.micros
}

// NewTimeTZ builds a TIME WITH TIME ZONE value. offsetMinutes is the zone
// offset from UTC in minutes.
func NewTimeTZ(hour, minute, second, microsecond, offsetMinutes int) Value {
	return Value{typ: TypeTimeTZ, dt: &dateParts{
		hour: hour, minute: minute, second: second, micros: microsecond,
		offsetMinutes: offsetMinutes,
	}}
}

// TimeTZValue returns the hour, minute, second, microsecond, and UTC offset
// (in minutes) of a TIMETZ value.
func (v Value) TimeTZValue() (hour, minute, second, microsecond, offsetMinutes int) {
	if v.dt == nil {
		return 0, 0, 0, 0, 0
	}
	return v.dt.hour, v.dt.minute, v.dt.second, v.dt.micros, v.dt.offsetMinutes
}

// NewTimestamp builds a TIMESTAMP value (no time zone) from its components.
func NewTimestamp(year, month, day, hour, minute, second, microsecond int) Value {
	t := time.Date(year, time.Month(month), day, hour, minute, second, microsecond*1000, time.UTC)
	return Value{typ: TypeTimestamp, dt: &dateParts{ts: t}}
}

// TimestampValue returns the timestamp as a time.Time in UTC.
func (v Value) TimestampValue() time.Time {
	if v.dt == nil {
		return time.Time{}
	}
	return v.dt.ts
}

// NewTimestampTZ builds a TIMESTAMP WITH TIME ZONE value from a time.Time.
func NewTimestampTZ(t time.Time) Value {
	return Value{typ: TypeTimestampTZ, dt: &dateParts{ts: t}}
}

// TimestampTZValue returns the timestamp, preserving its original location.
func (v Value) TimestampTZValue() time.Time {
	if v.dt == nil {
		return time.Time{}
	}
	return v.dt.ts
}

// NewInterval builds an INTERVAL value from a month component and a
// microsecond component (days and time-of-day folded together), matching
// PostgreSQL's month/day/microsecond interval representation minus the
// separate day field.
func NewInterval(months, microseconds int64) Value {
	return Value{typ: TypeInterval, dt: &dateParts{months: months, micros64: microseconds}}
}

// IntervalValue returns the month and microsecond components of an
// INTERVAL value.
func (v Value) IntervalValue() (months int64, microseconds int64) {
	if v.dt == nil {
		return 0, 0
	}
	return v.dt.months, v.dt.micros64
}

// NewVector builds a VECTOR value from float32 components.
func NewVector(data []float32) Value {
	return Value{typ: TypeVector, vecVal: NewVectorData(data)}
}

// Vector returns the vector payload, or nil if v is not a VECTOR value.
func (v Value) Vector() *Vector { return v.vecVal }

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNull() bool    { return v.typ == TypeNull }
func (v Value) Int() int64      { return v.intVal }
func (v Value) Float() float64  { return v.floatVal }
func (v Value) Text() string    { return v.textVal }
func (v Value) Blob() []byte {
	if v.blobVal == nil {
		return nil
	}
	copied := make([]byte, len(v.blobVal))
	copy(copied, v.blobVal)
	return copied
}
