package mapping

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"

	"github.com/roach88/rowkit/internal/record"
)

// folder is stateless and safe for concurrent use.
var folder = cases.Fold()

// fold normalizes a field name for case-insensitive comparison.
func fold(name string) string {
	return folder.String(name)
}

type field[T any] struct {
	name string
	kind record.Kind
	set  func(dst *T, v record.Value)
}

// Fields is the table of settable fields of destination type T, keyed by
// folded name. Build it once per type and share it; it is read-only after
// registration.
type Fields[T any] struct {
	byName map[string]field[T]
	order  []string
}

// NewFields creates an empty field table.
func NewFields[T any]() *Fields[T] {
	return &Fields[T]{byName: make(map[string]field[T])}
}

// add registers a field. Registering two names that fold to the same key
// panics, since lookups would be ambiguous.
func (f *Fields[T]) add(name string, kind record.Kind, set func(*T, record.Value)) *Fields[T] {
	key := fold(name)
	if prev, ok := f.byName[key]; ok {
		panic(fmt.Sprintf("mapping: field %q collides with %q", name, prev.name))
	}
	f.byName[key] = field[T]{name: name, kind: kind, set: set}
	f.order = append(f.order, name)
	return f
}

// Int registers an integer field.
func (f *Fields[T]) Int(name string, set func(*T, int64)) *Fields[T] {
	return f.add(name, record.KindInt, func(dst *T, v record.Value) { set(dst, int64(v.(record.Int))) })
}

// Float registers a floating-point field.
func (f *Fields[T]) Float(name string, set func(*T, float64)) *Fields[T] {
	return f.add(name, record.KindFloat, func(dst *T, v record.Value) { set(dst, float64(v.(record.Float))) })
}

// Text registers a string field.
func (f *Fields[T]) Text(name string, set func(*T, string)) *Fields[T] {
	return f.add(name, record.KindText, func(dst *T, v record.Value) { set(dst, string(v.(record.Text))) })
}

// Bool registers a boolean field.
func (f *Fields[T]) Bool(name string, set func(*T, bool)) *Fields[T] {
	return f.add(name, record.KindBool, func(dst *T, v record.Value) { set(dst, bool(v.(record.Bool))) })
}

// Decimal registers an exact decimal field.
func (f *Fields[T]) Decimal(name string, set func(*T, record.Decimal)) *Fields[T] {
	return f.add(name, record.KindDecimal, func(dst *T, v record.Value) { set(dst, v.(record.Decimal)) })
}

// Time registers a timestamp field.
func (f *Fields[T]) Time(name string, set func(*T, time.Time)) *Fields[T] {
	return f.add(name, record.KindTime, func(dst *T, v record.Value) { set(dst, v.(record.Time).Time()) })
}

// Bytes registers a binary field. The setter receives its own copy.
func (f *Fields[T]) Bytes(name string, set func(*T, []byte)) *Fields[T] {
	return f.add(name, record.KindBytes, func(dst *T, v record.Value) { set(dst, v.(record.Bytes).Bytes()) })
}

// Value registers a field that takes the record value unconverted,
// including Null.
func (f *Fields[T]) Value(name string, set func(*T, record.Value)) *Fields[T] {
	return f.add(name, record.KindAny, set)
}

// Names returns the registered field names in registration order.
func (f *Fields[T]) Names() []string {
	return append([]string(nil), f.order...)
}

// lookup finds a field by name, ignoring case.
func (f *Fields[T]) lookup(name string) (field[T], bool) {
	fl, ok := f.byName[fold(name)]
	return fl, ok
}

// assign converts v to the field's kind and stores it in dst. Null leaves
// typed fields untouched.
func (fl field[T]) assign(dst *T, column string, v record.Value) error {
	if fl.kind == record.KindAny {
		fl.set(dst, v)
		return nil
	}
	if v == nil || v.Kind() == record.KindNull {
		return nil
	}
	converted, err := record.Coerce(v, fl.kind)
	if err != nil {
		return &FieldError{Field: fl.name, Column: column, Kind: fl.kind, Err: err}
	}
	fl.set(dst, converted)
	return nil
}
