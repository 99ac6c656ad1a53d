package nv

import (
	"bytes"
	"encoding/binary"
	"math"
)

// encodeList appends the wire form of l (without the dump header).
//
// Depth counts list nesting: the root list is at depth 0 and entering it
// checks depth+1 against MaxDepth, exactly like the decoder.
func encodeList(buf *bytes.Buffer, l *NvList, depth int) error {
	if depth+1 > MaxDepth {
		return newErr(ErrLimitDepth, "nesting exceeds MaxDepth")
	}
	buf.WriteByte(byte(l.flags))
	for i := range l.entries {
		e := &l.entries[i]
		buf.WriteByte(byte(e.value.Type()))
		writeU16BE(buf, uint16(len(e.name)))
		buf.WriteString(e.name)
		if err := encodePayload(buf, e.value, depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte(byte(TypeNone))
	return nil
}

func encodePayload(buf *bytes.Buffer, v Value, depth int) error {
	switch val := v.(type) {

	case Null:

	case Bool:
		writeBool(buf, bool(val))

	case Number:
		writeU64BE(buf, uint64(val))

	case Descriptor:
		writeU64BE(buf, uint64(int64(val)))

	case String:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		buf.WriteString(string(val))

	case Binary:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		buf.Write(val)

	case *NvList:
		return encodeList(buf, val, depth)

	case BoolArray:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		for _, b := range val {
			writeBool(buf, b)
		}

	case NumberArray:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		for _, n := range val {
			writeU64BE(buf, n)
		}

	case DescriptorArray:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		for _, fd := range val {
			writeU64BE(buf, uint64(int64(fd)))
		}

	case StringArray:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		for _, s := range val {
			if err := writeLen(buf, len(s)); err != nil {
				return err
			}
			buf.WriteString(s)
		}

	case NvListArray:
		if err := writeLen(buf, len(val)); err != nil {
			return err
		}
		for _, c := range val {
			if err := encodeList(buf, c, depth); err != nil {
				return err
			}
		}

	default:
		panic("nv: unexpected stored value type")
	}
	return nil
}

// listSize returns the encoded size of l without the dump header.
func listSize(l *NvList) int {
	n := 2 // flags + end marker
	for i := range l.entries {
		e := &l.entries[i]
		n += 1 + 2 + len(e.name) + payloadSize(e.value)
	}
	return n
}

func payloadSize(v Value) int {
	switch val := v.(type) {
	case Bool:
		return 1
	case Number, Descriptor:
		return 8
	case String:
		return 4 + len(val)
	case Binary:
		return 4 + len(val)
	case *NvList:
		return listSize(val)
	case BoolArray:
		return 4 + len(val)
	case NumberArray:
		return 4 + 8*len(val)
	case DescriptorArray:
		return 4 + 8*len(val)
	case StringArray:
		n := 4
		for _, s := range val {
			n += 4 + len(s)
		}
		return n
	case NvListArray:
		n := 4
		for _, c := range val {
			n += listSize(c)
		}
		return n
	}
	return 0
}

// Size returns the exact number of bytes Marshal produces for l, for
// callers that pre-size buffers.  It is not an entry count; see Len.
func (l *NvList) Size() int {
	if !l.Valid() {
		return 0
	}
	return len(dumpHdr) + listSize(l)
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}
}

func writeLen(buf *bytes.Buffer, n int) error {
	if uint64(n) > math.MaxUint32 {
		return newErr(ErrLimitSize, "length does not fit in 32 bits")
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
	return nil
}

func writeU16BE(buf *bytes.Buffer, n uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], n)
	buf.Write(b[:])
}

func writeU64BE(buf *bytes.Buffer, n uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	buf.Write(b[:])
}
