package bind

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/rowkit/internal/record"
)

// Type is the declared type of a parameter. It decides the native value
// handed to the driver.
type Type int

const (
	// TypeVariant passes the value through unchanged.
	TypeVariant Type = iota
	TypeBoolean
	TypeTinyInt
	TypeSmallInt
	TypeInteger
	TypeBigInt
	TypeNumeric
	TypeDecimal
	TypeCurrency
	TypeSingle
	TypeDouble
	TypeChar
	TypeVarChar
	TypeVarWChar
	TypeLongVarWChar
	TypeDate
	TypeBinary
)

var typeNames = map[Type]string{
	TypeVariant:      "variant",
	TypeBoolean:      "boolean",
	TypeTinyInt:      "tinyint",
	TypeSmallInt:     "smallint",
	TypeInteger:      "integer",
	TypeBigInt:       "bigint",
	TypeNumeric:      "numeric",
	TypeDecimal:      "decimal",
	TypeCurrency:     "currency",
	TypeSingle:       "single",
	TypeDouble:       "double",
	TypeChar:         "char",
	TypeVarChar:      "varchar",
	TypeVarWChar:     "varwchar",
	TypeLongVarWChar: "longvarwchar",
	TypeDate:         "date",
	TypeBinary:       "binary",
}

// typeAliases accepts a few common spellings beyond the canonical names.
var typeAliases = map[string]Type{
	"bool":   TypeBoolean,
	"int":    TypeInteger,
	"long":   TypeBigInt,
	"money":  TypeCurrency,
	"float":  TypeDouble,
	"real":   TypeSingle,
	"string": TypeVarWChar,
	"text":   TypeLongVarWChar,
	"memo":   TypeLongVarWChar,
	"time":   TypeDate,
	"bytes":  TypeBinary,
	"":       TypeVariant,
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType resolves a type name (case-insensitive) such as "currency" or
// "LongVarWChar".
func ParseType(name string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == key {
			return t, nil
		}
	}
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return TypeVariant, fmt.Errorf("unknown parameter type %q", name)
}

// Parameter is a named, typed value bound to a placeholder. It is immutable
// once constructed.
type Parameter struct {
	name  string
	value any
	typ   Type
}

// NewParameter creates a parameter. The name is the placeholder token
// exactly as it appears in the query, e.g. "@CategoryID".
func NewParameter(name string, value any, typ Type) Parameter {
	return Parameter{name: name, value: value, typ: typ}
}

// P is a shorthand for NewParameter.
func P(name string, value any, typ Type) Parameter {
	return NewParameter(name, value, typ)
}

func (p Parameter) Name() string { return p.name }
func (p Parameter) Value() any   { return p.value }
func (p Parameter) Type() Type   { return p.typ }

// IsZero reports whether p is the zero Parameter, the stand-in for a
// missing entry in a parameter list.
func (p Parameter) IsZero() bool {
	return p.name == "" && p.value == nil && p.typ == TypeVariant
}

func (p Parameter) String() string {
	return fmt.Sprintf("%s(%s)=%v", p.name, p.typ, p.value)
}

// ConversionError reports that a parameter's value does not fit its
// declared type.
type ConversionError struct {
	Name string
	Type Type
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("parameter %s: cannot bind as %s: %v", e.Name, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsConversionError returns true if err is or wraps a *ConversionError.
func IsConversionError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

// Native converts the parameter's value into the driver-level value its
// declared type calls for. nil always binds as SQL NULL.
func (p Parameter) Native() (any, error) {
	if p.value == nil {
		return nil, nil
	}
	v, err := nativeValue(p.value, p.typ)
	if err != nil {
		return nil, &ConversionError{Name: p.name, Type: p.typ, Err: err}
	}
	return v, nil
}

func nativeValue(raw any, typ Type) (any, error) {
	switch typ {
	case TypeVariant:
		if v, ok := raw.(record.Value); ok {
			return record.Native(v), nil
		}
		return raw, nil
	case TypeBoolean:
		v, err := record.Coerce(raw, record.KindBool)
		if err != nil {
			return nil, err
		}
		return bool(v.(record.Bool)), nil
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		v, err := record.Coerce(raw, record.KindInt)
		if err != nil {
			return nil, err
		}
		n := int64(v.(record.Int))
		if err := checkRange(n, typ); err != nil {
			return nil, err
		}
		return n, nil
	case TypeNumeric, TypeDecimal, TypeCurrency:
		v, err := record.Coerce(raw, record.KindDecimal)
		if err != nil {
			return nil, err
		}
		return exactNumber(v.(record.Decimal).Apd())
	case TypeSingle, TypeDouble:
		v, err := record.Coerce(raw, record.KindFloat)
		if err != nil {
			return nil, err
		}
		return float64(v.(record.Float)), nil
	case TypeChar, TypeVarChar, TypeVarWChar, TypeLongVarWChar:
		v, err := record.Coerce(raw, record.KindText)
		if err != nil {
			return nil, err
		}
		return string(v.(record.Text)), nil
	case TypeDate:
		v, err := record.Coerce(raw, record.KindTime)
		if err != nil {
			return nil, err
		}
		return v.(record.Time).Time(), nil
	case TypeBinary:
		v, err := record.Coerce(raw, record.KindBytes)
		if err != nil {
			return nil, err
		}
		return v.(record.Bytes).Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown parameter type %d", int(typ))
	}
}

// exactNumber binds integral decimals as int64 so they compare equal to
// integer columns, and everything else as float64.
func exactNumber(d *apd.Decimal) (any, error) {
	if n, err := d.Int64(); err == nil {
		return n, nil
	}
	return d.Float64()
}

func checkRange(n int64, typ Type) error {
	var lo, hi int64
	switch typ {
	case TypeTinyInt:
		lo, hi = 0, math.MaxUint8
	case TypeSmallInt:
		lo, hi = math.MinInt16, math.MaxInt16
	case TypeInteger:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return nil
	}
	if n < lo || n > hi {
		return errors.New(strconv.FormatInt(n, 10) + " out of range")
	}
	return nil
}
