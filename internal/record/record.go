package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Field is a name/value pair used to build a Record.
type Field struct {
	Name  string
	Value Value
}

// F is a shorthand for Field.
// Example: New(F("ID", Int(1)), F("Name", Text("widget")))
func F(name string, value Value) Field {
	return Field{Name: name, Value: value}
}

// Record is one materialized row: column names in query order mapped to
// values. Keys are unique. A Record is never mutated after construction.
type Record struct {
	names  []string
	values map[string]Value
}

// New builds a Record from fields in order. A repeated name keeps its first
// position and takes the last value, matching how a result set with
// duplicate column labels collapses into one key.
func New(fields ...Field) *Record {
	r := &Record{
		names:  make([]string, 0, len(fields)),
		values: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		if _, exists := r.values[f.Name]; !exists {
			r.names = append(r.names, f.Name)
		}
		v := f.Value
		if v == nil {
			v = Null{}
		}
		r.values[f.Name] = v
	}
	return r
}

// Len returns the number of columns.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Keys returns the column names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Get returns the value for name and whether the column exists.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Value returns the value for name, or Null when the column is missing.
func (r *Record) Value(name string) Value {
	if v, ok := r.Get(name); ok {
		return v
	}
	return Null{}
}

// All iterates over the columns in order.
func (r *Record) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if r == nil {
			return
		}
		for _, name := range r.names {
			if !yield(name, r.values[name]) {
				return
			}
		}
	}
}

// Map returns the record as a plain map of native Go values.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for name, v := range r.All() {
		out[name] = Native(v)
	}
	return out
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", name, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", name, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Native unwraps a Value into the plain Go value it carries.
// Decimals unwrap to their string form so no precision is lost.
func Native(v Value) any {
	switch val := v.(type) {
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Decimal:
		return val.String()
	case Bool:
		return bool(val)
	case Text:
		return string(val)
	case Time:
		return val.Time()
	case Bytes:
		return val.Bytes()
	default:
		return nil
	}
}
