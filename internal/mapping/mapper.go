package mapping

import (
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/rowkit/internal/record"
)

// FieldError reports a column whose value cannot be stored in the
// destination field it resolved to.
type FieldError struct {
	Field  string
	Column string
	Kind   record.Kind
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("map column %q to field %s (%s): %v", e.Column, e.Field, e.Kind, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// IsFieldError returns true if err is or wraps a *FieldError.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

// Mapper copies records into values of type T.
//
// Thread-safety: a Mapper is safe for concurrent use once built.
type Mapper[T any] struct {
	fields  *Fields[T]
	mapping *ObjectMapping
}

// New creates a mapper over the registered fields of T. mapping may be nil.
func New[T any](fields *Fields[T], mapping *ObjectMapping) *Mapper[T] {
	return &Mapper[T]{fields: fields, mapping: mapping}
}

// resolve finds the destination field for a source column: excluded columns
// resolve to nothing; a renamed column tries its target first and then its
// own name.
func (m *Mapper[T]) resolve(column string) (field[T], bool) {
	if m.mapping.IsExcluded(column) {
		return field[T]{}, false
	}
	if to, ok := m.mapping.Target(column); ok {
		if fl, ok := m.fields.lookup(to); ok {
			return fl, true
		}
	}
	return m.fields.lookup(column)
}

// Map builds a T from rec. Fields without a matching column keep their zero
// value. A nil record maps to the zero value.
func (m *Mapper[T]) Map(rec *record.Record) (T, error) {
	var dst T
	for column, v := range rec.All() {
		fl, ok := m.resolve(column)
		if !ok {
			continue
		}
		if err := fl.assign(&dst, column, v); err != nil {
			var zero T
			return zero, err
		}
	}
	return dst, nil
}

// MapMany maps each record in order.
func (m *Mapper[T]) MapMany(recs []*record.Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for i, rec := range recs {
		v, err := m.Map(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// MapAll drains a record sequence, such as a store cursor's All, and maps
// each record in order.
func (m *Mapper[T]) MapAll(seq iter.Seq2[*record.Record, error]) ([]T, error) {
	out := []T{}
	i := 0
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		v, err := m.Map(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
		i++
	}
	return out, nil
}
