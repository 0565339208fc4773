package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindAny is used for columns without a declared type; the variant is
	// inferred from the raw driver value.
	KindAny Kind = iota
	KindNull
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindText
	KindTime
	KindBytes
)

var kindNames = map[Kind]string{
	KindAny:     "any",
	KindNull:    "null",
	KindInt:     "int",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindBool:    "bool",
	KindText:    "text",
	KindTime:    "time",
	KindBytes:   "bytes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a sealed interface over the column value variants.
// Only Null, Int, Float, Decimal, Bool, Text, Time and Bytes implement it.
type Value interface {
	recordValue()
	Kind() Kind
	String() string
}

// Null is the absent value. Untyped columns holding SQL NULL materialize to Null.
type Null struct{}

func (Null) recordValue()   {}
func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "NULL" }

// Int is a 64-bit integer value.
type Int int64

func (Int) recordValue()     {}
func (Int) Kind() Kind       { return KindInt }
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is an approximate numeric value (REAL, FLOAT, DOUBLE columns).
type Float float64

func (Float) recordValue()     {}
func (Float) Kind() Kind       { return KindFloat }
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }

// Bool is a boolean value.
type Bool bool

func (Bool) recordValue()     {}
func (Bool) Kind() Kind       { return KindBool }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// Text is a string value.
type Text string

func (Text) recordValue()     {}
func (Text) Kind() Kind       { return KindText }
func (v Text) String() string { return string(v) }

// Decimal is an exact numeric value used for currency, decimal and numeric
// columns. The zero Decimal is 0.
type Decimal struct {
	d *apd.Decimal
}

func (Decimal) recordValue() {}
func (Decimal) Kind() Kind   { return KindDecimal }

func (v Decimal) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.Text('f')
}

// Apd returns a copy of the underlying decimal.
func (v Decimal) Apd() *apd.Decimal {
	out := new(apd.Decimal)
	if v.d != nil {
		out.Set(v.d)
	}
	return out
}

// Float64 returns the nearest float64 to the decimal.
func (v Decimal) Float64() (float64, error) {
	if v.d == nil {
		return 0, nil
	}
	return v.d.Float64()
}

// Cmp compares two decimals, returning -1, 0 or 1.
func (v Decimal) Cmp(other Decimal) int {
	return v.Apd().Cmp(other.Apd())
}

// NewDecimal parses a decimal from its string form.
func NewDecimal(s string) (Decimal, error) {
	d, err := parseFiniteDecimal(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is NewDecimal for literals; it panics on malformed input.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromApd wraps a copy of d.
func DecimalFromApd(d *apd.Decimal) Decimal {
	out := new(apd.Decimal)
	out.Set(d)
	return Decimal{d: out}
}

// Time is a timestamp value (DATE, DATETIME, TIMESTAMP columns).
type Time struct {
	t time.Time
}

func (Time) recordValue()     {}
func (Time) Kind() Kind       { return KindTime }
func (v Time) String() string { return v.t.Format(time.RFC3339Nano) }

// Time returns the wrapped time.
func (v Time) Time() time.Time { return v.t }

// NewTime wraps t.
func NewTime(t time.Time) Time { return Time{t: t} }

// Bytes is a binary value. The slice is copied on construction and on access.
type Bytes struct {
	b []byte
}

func (Bytes) recordValue()     {}
func (Bytes) Kind() Kind       { return KindBytes }
func (v Bytes) String() string { return base64.StdEncoding.EncodeToString(v.b) }

// Bytes returns a copy of the wrapped bytes.
func (v Bytes) Bytes() []byte { return append([]byte(nil), v.b...) }

// NewBytes wraps a copy of b.
func NewBytes(b []byte) Bytes { return Bytes{b: append([]byte(nil), b...)} }

// MarshalValue encodes a Value as JSON.
// Decimals are written as JSON numbers so exact digits survive.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case Int:
		return []byte(val.String()), nil
	case Float:
		return json.Marshal(float64(val))
	case Decimal:
		if val.d != nil && val.d.Form != apd.Finite {
			return nil, fmt.Errorf("decimal %s has no JSON form", val.String())
		}
		return []byte(val.String()), nil
	case Bool:
		return json.Marshal(bool(val))
	case Text:
		return json.Marshal(string(val))
	case Time:
		return json.Marshal(val.String())
	case Bytes:
		return json.Marshal(val.String())
	default:
		return nil, fmt.Errorf("unknown record value type: %T", v)
	}
}
