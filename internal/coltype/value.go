// Package coltype defines the typed column value used throughout the core
// to represent a single SQLite cell without losing its native type.
package coltype

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which of SQLite's five storage classes a Value holds.
type Kind int

const (
	Null Kind = iota
	Integer
	Real
	Text
	Blob
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Text:
		return "text"
	case Blob:
		return "blob"
	default:
		return "unknown"
	}
}

// Value is a single typed column value: Null, Integer, Real, Text, or Blob.
// It mirrors SQLite's dynamic type system rather than coercing to a Go
// native type, so primary-key and change-event payloads round-trip exactly.
type Value struct {
	kind Kind
	i    int64
	r    float64
	s    string
	b    []byte
}

// NullValue returns the SQL NULL value.
func NullValue() Value { return Value{kind: Null} }

// IntegerValue wraps a 64-bit signed integer.
func IntegerValue(i int64) Value { return Value{kind: Integer, i: i} }

// RealValue wraps a 64-bit float.
func RealValue(r float64) Value { return Value{kind: Real, r: r} }

// TextValue wraps a UTF-8 string.
func TextValue(s string) Value { return Value{kind: Text, s: s} }

// BlobValue wraps a byte slice. The slice is retained, not copied.
func BlobValue(b []byte) Value { return Value{kind: Blob, b: b} }

// Kind reports which storage class this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether this Value is SQL NULL.
func (v Value) IsNull() bool { return v.kind == Null }

// Integer returns the wrapped integer and true, or (0, false) if this Value
// is not an Integer.
func (v Value) Integer() (int64, bool) {
	if v.kind != Integer {
		return 0, false
	}
	return v.i, true
}

// Real returns the wrapped float and true, or (0, false) if this Value is
// not a Real.
func (v Value) Real() (float64, bool) {
	if v.kind != Real {
		return 0, false
	}
	return v.r, true
}

// Text returns the wrapped string and true, or ("", false) if this Value is
// not Text.
func (v Value) Text() (string, bool) {
	if v.kind != Text {
		return "", false
	}
	return v.s, true
}

// Blob returns the wrapped bytes and true, or (nil, false) if this Value is
// not a Blob.
func (v Value) Blob() ([]byte, bool) {
	if v.kind != Blob {
		return nil, false
	}
	return v.b, true
}

// Native returns the value as a plain Go interface{}, suitable for binding
// back into a driver query or for JSON encoding via MarshalJSON.
func (v Value) Native() any {
	switch v.kind {
	case Null:
		return nil
	case Integer:
		return v.i
	case Real:
		return v.r
	case Text:
		return v.s
	case Blob:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two Values hold the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Integer:
		return v.i == other.i
	case Real:
		return v.r == other.r
	case Text:
		return v.s == other.s
	case Blob:
		if len(v.b) != len(other.b) {
			return false
		}
		for i := range v.b {
			if v.b[i] != other.b[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case Null:
		return "NULL"
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Real:
		return fmt.Sprintf("%v", v.r)
	case Text:
		return v.s
	case Blob:
		return fmt.Sprintf("blob(%d bytes)", len(v.b))
	default:
		return "?"
	}
}

// FromDriverValue converts a value as returned by go-sqlite3 (from
// PRAGMA queries, row scans, or preupdate-hook column reads) into a Value.
// go-sqlite3 surfaces SQLite's five storage classes as: nil, int64,
// float64, string, and []byte.
func FromDriverValue(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return NullValue(), nil
	case int64:
		return IntegerValue(t), nil
	case int:
		return IntegerValue(int64(t)), nil
	case float64:
		return RealValue(t), nil
	case string:
		return TextValue(t), nil
	case []byte:
		return BlobValue(t), nil
	case bool:
		if t {
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	default:
		return Value{}, fmt.Errorf("coltype: unsupported driver value type %T", v)
	}
}

// MarshalJSON renders the Value as its native JSON representation (null,
// number, string, or a base64 string for blobs, matching encoding/json's
// default []byte handling).
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}
