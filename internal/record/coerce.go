package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ConversionError reports that a raw value cannot be represented as Kind.
type ConversionError struct {
	Kind Kind
	Raw  any
	Err  error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %T(%v) to %s: %v", e.Raw, e.Raw, e.Kind, e.Err)
	}
	return fmt.Sprintf("cannot convert %T(%v) to %s", e.Raw, e.Raw, e.Kind)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsConversionError returns true if err is or wraps a *ConversionError.
func IsConversionError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

// timeLayouts are tried in order when text must become a Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// KindOf maps a provider-declared column type (e.g. "INTEGER", "CURRENCY",
// "VARCHAR(255)") to the Kind its values materialize as. An empty or
// unrecognized declaration yields KindAny.
func KindOf(declType string) Kind {
	t := strings.ToUpper(strings.TrimSpace(declType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if t == "" {
		return KindAny
	}

	containsAny := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(t, s) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("BOOL", "YESNO") || t == "BIT" || t == "LOGICAL":
		return KindBool
	case containsAny("DATE", "TIME"):
		return KindTime
	case containsAny("INT", "COUNTER", "AUTOINCREMENT"):
		return KindInt
	case containsAny("CURRENCY", "MONEY", "DEC", "NUMERIC", "NUMBER"):
		return KindDecimal
	case containsAny("REAL", "FLOA", "DOUB", "SINGLE"):
		return KindFloat
	case containsAny("CHAR", "CLOB", "TEXT", "MEMO", "STRING", "GUID"):
		return KindText
	case containsAny("BLOB", "BINARY", "IMAGE", "OLE"):
		return KindBytes
	default:
		return KindAny
	}
}

// Default returns the value a column of kind holds when its raw value cannot
// be converted.
func Default(kind Kind) Value {
	switch kind {
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindDecimal:
		return Decimal{}
	case KindBool:
		return Bool(false)
	case KindText:
		return Text("")
	case KindTime:
		return Time{}
	case KindBytes:
		return Bytes{}
	default:
		return Null{}
	}
}

// Coerce converts a raw driver value into a Value of the given kind.
// KindAny infers the variant from the raw Go type. A nil raw value is only
// representable as KindAny or KindNull.
func Coerce(raw any, kind Kind) (Value, error) {
	raw = normalize(raw)

	fail := func(err error) (Value, error) {
		return nil, &ConversionError{Kind: kind, Raw: raw, Err: err}
	}

	if kind == KindNull {
		return Null{}, nil
	}
	if raw == nil {
		if kind == KindAny {
			return Null{}, nil
		}
		return fail(errors.New("value is NULL"))
	}

	switch kind {
	case KindAny:
		return infer(raw)
	case KindInt:
		n, err := toInt64(raw)
		if err != nil {
			return fail(err)
		}
		return Int(n), nil
	case KindFloat:
		f, err := toFloat64(raw)
		if err != nil {
			return fail(err)
		}
		return Float(f), nil
	case KindDecimal:
		d, err := toDecimal(raw)
		if err != nil {
			return fail(err)
		}
		return Decimal{d: d}, nil
	case KindBool:
		b, err := toBool(raw)
		if err != nil {
			return fail(err)
		}
		return Bool(b), nil
	case KindText:
		s, err := toText(raw)
		if err != nil {
			return fail(err)
		}
		return Text(s), nil
	case KindTime:
		t, err := toTime(raw)
		if err != nil {
			return fail(err)
		}
		return Time{t: t}, nil
	case KindBytes:
		switch v := raw.(type) {
		case []byte:
			return NewBytes(v), nil
		case string:
			return NewBytes([]byte(v)), nil
		}
		return fail(nil)
	default:
		return fail(fmt.Errorf("unknown kind %d", int(kind)))
	}
}

// normalize folds the many Go numeric types into int64/float64 and unwraps
// Values so conversion only deals with a handful of shapes.
func normalize(raw any) any {
	switch v := raw.(type) {
	case Value:
		return Native(v)
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v)
		}
		return float64(v)
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return float64(v)
	case float32:
		return float64(v)
	case *apd.Decimal:
		if v == nil {
			return nil
		}
		return v.Text('f')
	default:
		return raw
	}
}

func infer(raw any) (Value, error) {
	switch v := raw.(type) {
	case int64:
		return Int(v), nil
	case float64:
		return Float(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return Text(v), nil
	case []byte:
		return NewBytes(v), nil
	case time.Time:
		return Time{t: v}, nil
	default:
		return nil, &ConversionError{Kind: KindAny, Raw: raw}
	}
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%v is not integral", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Int64()
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

func toDecimal(raw any) (*apd.Decimal, error) {
	switch v := raw.(type) {
	case int64:
		return apd.New(v, 0), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%v has no decimal form", v)
		}
		d, _, err := apd.NewFromString(strconv.FormatFloat(v, 'f', -1, 64))
		return d, err
	case bool:
		if v {
			return apd.New(1, 0), nil
		}
		return apd.New(0, 0), nil
	case string:
		return parseFiniteDecimal(strings.TrimSpace(v))
	case []byte:
		return parseFiniteDecimal(strings.TrimSpace(string(v)))
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
}

// parseFiniteDecimal parses s and rejects NaN and infinities, which have no
// JSON form.
func parseFiniteDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%q has no decimal form", s)
	}
	return d, nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		return parseBool(v)
	case []byte:
		return parseBool(string(v))
	default:
		return false, fmt.Errorf("unsupported type %T", raw)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "on", "-1":
		return true, nil
	case "false", "f", "0", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}

func toText(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	default:
		return "", fmt.Errorf("unsupported type %T", raw)
	}
}

func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", raw)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognized timestamp", s)
}
