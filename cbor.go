package nv

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// A list in CBOR is a three-level array structure:
//
//	[flags, [[name, type, value], ...]]
//
// Scalars map to their natural CBOR types (null, bool, unsigned int,
// text string, byte string, signed int for descriptors), arrays to CBOR
// arrays and nested lists to the same structure.

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2), so the same
// list always produces identical bytes.
var encMode cbor.EncMode

// decMode allows deep nesting: every list level costs three CBOR levels.
// List depth itself is bounded by MaxDepth in decodeCBORList.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("nv: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  4 * (MaxDepth + 1),
		MaxArrayElements: 1<<31 - 1,
	}.DecMode()
	if err != nil {
		panic("nv: CBOR decoder initialization failed: " + err.Error())
	}
}

var (
	cborNull      = []byte{0xf6}
	cborUndefined = []byte{0xf7}
)

type cborList struct {
	_       struct{} `cbor:",toarray"`
	Flags   uint8
	Entries []cborEntry
}

type cborEntry struct {
	_     struct{} `cbor:",toarray"`
	Name  string
	Type  uint8
	Value cbor.RawMessage
}

// MarshalCBOR implements cbor.Marshaler.
func (l *NvList) MarshalCBOR() ([]byte, error) {
	if err := l.Err(); err != nil {
		return nil, err
	}
	return encodeCBORList(l)
}

// UnmarshalCBOR implements cbor.Unmarshaler.  l is replaced only when the
// whole input is valid.
func (l *NvList) UnmarshalCBOR(b []byte) error {
	decoded, err := decodeCBORList(b, 0)
	if err != nil {
		return err
	}
	*l = *decoded
	return nil
}

func encodeCBORList(l *NvList) ([]byte, error) {
	cl := cborList{Flags: uint8(l.flags), Entries: make([]cborEntry, len(l.entries))}
	for i, e := range l.entries {
		raw, err := encodeCBORValue(e.value)
		if err != nil {
			return nil, err
		}
		cl.Entries[i] = cborEntry{Name: e.name, Type: uint8(e.value.Type()), Value: raw}
	}
	return encMode.Marshal(cl)
}

func encodeCBORValue(v Value) (cbor.RawMessage, error) {
	switch val := v.(type) {
	case Null:
		return cborNull, nil
	case Bool:
		return encMode.Marshal(bool(val))
	case Number:
		return encMode.Marshal(uint64(val))
	case String:
		return encMode.Marshal(string(val))
	case Descriptor:
		return encMode.Marshal(int64(val))
	case Binary:
		return encMode.Marshal([]byte(val))
	case BoolArray:
		return encMode.Marshal([]bool(val))
	case NumberArray:
		return encMode.Marshal([]uint64(val))
	case StringArray:
		return encMode.Marshal([]string(val))
	case DescriptorArray:
		return encMode.Marshal([]int(val))
	case *NvList:
		return encodeCBORList(val)
	case NvListArray:
		items := make([]cbor.RawMessage, len(val))
		for i, c := range val {
			raw, err := encodeCBORList(c)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return encMode.Marshal(items)
	}
	return nil, fmt.Errorf("nv: unexpected stored value type %T", v)
}

func decodeCBORList(b []byte, depth int) (*NvList, error) {
	if depth+1 > MaxDepth {
		return nil, newErr(ErrLimitDepth, "nesting exceeds MaxDepth")
	}
	var cl cborList
	if err := decMode.Unmarshal(b, &cl); err != nil {
		return nil, newErr(ErrDecode, "CBOR: "+err.Error())
	}
	l, err := New(Flags(cl.Flags))
	if err != nil {
		return nil, newErr(ErrDecode, "invalid list flags")
	}
	for _, ce := range cl.Entries {
		t := Type(ce.Type)
		if !t.valid() {
			return nil, newErr(ErrDecode, fmt.Sprintf("entry %q: unknown type tag %d", ce.Name, ce.Type))
		}
		v, err := decodeCBORValue(t, ce.Value, depth)
		if err != nil {
			if IsCode(err, ErrLimitDepth) || IsCode(err, ErrDecode) {
				return nil, err
			}
			return nil, newErr(ErrDecode, fmt.Sprintf("entry %q: %v", ce.Name, err))
		}
		l.Add(ce.Name, v)
		if err := l.Err(); err != nil {
			return nil, newErr(ErrDecode, fmt.Sprintf("entry %q: %v", ce.Name, err))
		}
	}
	return l, nil
}

func decodeCBORValue(t Type, raw cbor.RawMessage, depth int) (Value, error) {
	// The decoder leaves Go values untouched on CBOR null and undefined,
	// so only a NULL entry may carry them.
	isNil := bytes.Equal(raw, cborNull) || bytes.Equal(raw, cborUndefined)
	if t != TypeNull && isNil {
		return nil, fmt.Errorf("%s entry carries no value", t)
	}
	switch t {
	case TypeNull:
		if !isNil {
			return nil, fmt.Errorf("null entry carries a value")
		}
		return Null{}, nil
	case TypeBool:
		var b bool
		err := decMode.Unmarshal(raw, &b)
		return Bool(b), err
	case TypeNumber:
		var n uint64
		err := decMode.Unmarshal(raw, &n)
		return Number(n), err
	case TypeString:
		var s string
		err := decMode.Unmarshal(raw, &s)
		return String(s), err
	case TypeDescriptor:
		var fd int
		err := decMode.Unmarshal(raw, &fd)
		return Descriptor(fd), err
	case TypeBinary:
		var b []byte
		err := decMode.Unmarshal(raw, &b)
		return Binary(b), err
	case TypeBoolArray:
		var arr []bool
		err := decMode.Unmarshal(raw, &arr)
		return BoolArray(arr), err
	case TypeNumberArray:
		var arr []uint64
		err := decMode.Unmarshal(raw, &arr)
		return NumberArray(arr), err
	case TypeStringArray:
		var arr []string
		err := decMode.Unmarshal(raw, &arr)
		return StringArray(arr), err
	case TypeDescriptorArray:
		var arr []int
		err := decMode.Unmarshal(raw, &arr)
		return DescriptorArray(arr), err
	case TypeNvList:
		return decodeCBORList(raw, depth+1)
	case TypeNvListArray:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		arr := make(NvListArray, len(items))
		for i, it := range items {
			c, err := decodeCBORList(it, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = c
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}
