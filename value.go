// Package nv implements tagged name/value lists ("nvlists") and their
// binary wire form.
//
// An NvList is an ordered sequence of named, dynamically typed values.
// Values are one of twelve kinds: NULL, BOOL, NUMBER (uint64), STRING,
// NVLIST (a nested list), DESCRIPTOR (an opaque integer handle), BINARY,
// and homogeneous arrays of BOOL, NUMBER, STRING, NVLIST and DESCRIPTOR.
//
// Mutation errors are sticky: a failed Add records an errno on the list
// and the caller checks Errno (or Err) once after a batch of inserts.  A
// list in an error state, and the invalid sentinel returned by a failed
// New, silently ignore further mutation.  Callers that never check the
// error lose data rather than crash.
//
// A list has a single owner and no internal locking.  Nested lists are
// always deep-copied on the way in and on the way out, so no two lists
// ever share storage.
//
// Dump and Parse convert a list to and from its wire form.
package nv

import "unicode/utf8"

// Value is a value that can be stored in an NvList.  Concrete types:
//
//   - Null, Bool, Number, String, Descriptor, Binary
//   - *NvList
//   - BoolArray, NumberArray, StringArray, NvListArray, DescriptorArray
//   - Optional[V] (stored as V, or as Null when absent)
type Value interface {
	Type() Type
	nvValue() // sealed: only types in this package implement Value
}

// Null is a presence marker without payload.
type Null struct{}

// Bool is a BOOL value.
type Bool bool

// Number is a NUMBER value.  Unsigned 64-bit.
type Number uint64

// String is a STRING value.  Must be valid UTF-8.
type String string

// Descriptor is an opaque handle, normally a file descriptor.  The list
// records the integer only; it never duplicates or closes it.
type Descriptor int

// Binary is a BINARY value.  Arbitrary byte sequence, copied on insert.
type Binary []byte

type (
	BoolArray       []bool
	NumberArray     []uint64
	StringArray     []string
	NvListArray     []*NvList
	DescriptorArray []int
)

func (Null) Type() Type            { return TypeNull }
func (Bool) Type() Type            { return TypeBool }
func (Number) Type() Type          { return TypeNumber }
func (String) Type() Type          { return TypeString }
func (Descriptor) Type() Type      { return TypeDescriptor }
func (Binary) Type() Type          { return TypeBinary }
func (BoolArray) Type() Type       { return TypeBoolArray }
func (NumberArray) Type() Type     { return TypeNumberArray }
func (StringArray) Type() Type     { return TypeStringArray }
func (NvListArray) Type() Type     { return TypeNvListArray }
func (DescriptorArray) Type() Type { return TypeDescriptorArray }
func (*NvList) Type() Type         { return TypeNvList }

func (Null) nvValue()            {}
func (Bool) nvValue()            {}
func (Number) nvValue()          {}
func (String) nvValue()          {}
func (Descriptor) nvValue()      {}
func (Binary) nvValue()          {}
func (BoolArray) nvValue()       {}
func (NumberArray) nvValue()     {}
func (StringArray) nvValue()     {}
func (NvListArray) nvValue()     {}
func (DescriptorArray) nvValue() {}
func (*NvList) nvValue()         {}

// Optional is a value that may be absent.  Adding an absent Optional
// stores Null under the name.
type Optional[V Value] struct {
	v  V
	ok bool
}

// Some wraps a present value.
func Some[V Value](v V) Optional[V] {
	return Optional[V]{v: v, ok: true}
}

// Absent returns an empty Optional.
func Absent[V Value]() Optional[V] {
	return Optional[V]{}
}

// Get returns the wrapped value and whether it is present.
func (o Optional[V]) Get() (V, bool) {
	return o.v, o.ok
}

func (o Optional[V]) Type() Type {
	if !o.ok {
		return TypeNull
	}
	return o.v.Type()
}

func (Optional[V]) nvValue() {}

func (o Optional[V]) unwrap() Value {
	if !o.ok {
		return Null{}
	}
	return o.v
}

// unwrapper is satisfied by every Optional instantiation.
type unwrapper interface {
	unwrap() Value
}

// copyValue returns a copy of v that shares no mutable storage with it.
// Nested lists are deep-cloned.
func copyValue(v Value) Value {
	switch val := v.(type) {
	case Binary:
		return Binary(append([]byte{}, val...))
	case BoolArray:
		return BoolArray(append([]bool{}, val...))
	case NumberArray:
		return NumberArray(append([]uint64{}, val...))
	case StringArray:
		return StringArray(append([]string{}, val...))
	case DescriptorArray:
		return DescriptorArray(append([]int{}, val...))
	case *NvList:
		return val.Clone()
	case NvListArray:
		out := make(NvListArray, len(val))
		for i, l := range val {
			out[i] = l.Clone()
		}
		return out
	default:
		return v
	}
}

// valuesEqual compares two stored values structurally.
func valuesEqual(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool, Number, String, Descriptor:
		return a == b
	case Binary:
		return string(x) == string(b.(Binary))
	case BoolArray:
		return sliceEqual(x, b.(BoolArray))
	case NumberArray:
		return sliceEqual(x, b.(NumberArray))
	case StringArray:
		return sliceEqual(x, b.(StringArray))
	case DescriptorArray:
		return sliceEqual(x, b.(DescriptorArray))
	case *NvList:
		return x.Equal(b.(*NvList))
	case NvListArray:
		y := b.(NvListArray)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !x[i].Equal(y[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func sliceEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validStrings(ss []string) bool {
	for _, s := range ss {
		if !utf8.ValidString(s) {
			return false
		}
	}
	return true
}
