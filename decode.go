package nv

import (
	"encoding/binary"
	"unicode/utf8"
)

// Minimum encoded size of one array element, used to reject counts that
// cannot possibly fit in the remaining input before allocating for them.
var minElemSize = map[Type]int{
	TypeBoolArray:       1,
	TypeNumberArray:     8,
	TypeDescriptorArray: 8,
	TypeStringArray:     4,
	TypeNvListArray:     2, // flags + end marker
}

// maxPrealloc caps the capacity reserved up front for a decoded array.
// A count only proves that the elements fit in the rest of the input, and
// nested arrays all measure against the same remaining bytes, so larger
// arrays grow as their elements actually decode.
const maxPrealloc = 1024

// decodeList decodes one list (without the dump header) from buf at off.
// Returns the list and the new offset.  Depth semantics mirror the encoder.
func decodeList(buf []byte, off int, depth int) (*NvList, int, error) {
	if depth+1 > MaxDepth {
		return nil, off, newErr(ErrLimitDepth, "nesting exceeds MaxDepth")
	}
	if off >= len(buf) {
		return nil, off, newErr(ErrDecode, "truncated list flags")
	}
	flags := Flags(buf[off])
	if !flags.valid() {
		return nil, off, newErr(ErrDecode, "invalid list flags")
	}
	off++

	l := &NvList{valid: true, flags: flags}
	var seen map[string]struct{}
	if flags&AllowDuplicates == 0 {
		seen = make(map[string]struct{})
	}

	for {
		if off >= len(buf) {
			return nil, off, newErr(ErrDecode, "truncated record tag")
		}
		tag := Type(buf[off])
		off++
		if tag == TypeNone {
			return l, off, nil
		}
		if !tag.valid() {
			return nil, off, newErr(ErrDecode, "unknown type tag")
		}

		n, newOff, err := readU16BE(buf, off)
		if err != nil {
			return nil, off, err
		}
		off = newOff
		if int(n) > MaxNameLen {
			return nil, off, newErr(ErrDecode, "name exceeds MaxNameLen")
		}
		if int(n) > len(buf)-off {
			return nil, off, newErr(ErrMalformedLength, "name length exceeds input")
		}
		name := string(buf[off : off+int(n)])
		off += int(n)

		v, newOff, err := decodePayload(buf, off, tag, depth+1)
		if err != nil {
			return nil, off, err
		}
		off = newOff

		k := l.key(name)
		if seen != nil {
			if _, dup := seen[k]; dup {
				return nil, off, newErr(ErrDecode, "duplicate name in list without AllowDuplicates")
			}
			seen[k] = struct{}{}
		}
		l.entries = append(l.entries, entry{name: name, key: k, value: v})
	}
}

func decodePayload(buf []byte, off int, tag Type, depth int) (Value, int, error) {
	switch tag {

	case TypeNull:
		return Null{}, off, nil

	case TypeBool:
		b, err := readBool(buf, off)
		if err != nil {
			return nil, off, err
		}
		return Bool(b), off + 1, nil

	case TypeNumber:
		n, newOff, err := readU64BE(buf, off)
		if err != nil {
			return nil, off, err
		}
		return Number(n), newOff, nil

	case TypeDescriptor:
		n, newOff, err := readU64BE(buf, off)
		if err != nil {
			return nil, off, err
		}
		return Descriptor(int64(n)), newOff, nil

	case TypeString:
		raw, newOff, err := readBlob(buf, off)
		if err != nil {
			return nil, off, err
		}
		if !utf8.Valid(raw) {
			return nil, off, newErr(ErrDecode, "string is not valid UTF-8")
		}
		return String(raw), newOff, nil

	case TypeBinary:
		raw, newOff, err := readBlob(buf, off)
		if err != nil {
			return nil, off, err
		}
		return Binary(append([]byte{}, raw...)), newOff, nil

	case TypeNvList:
		return decodeList(buf, off, depth)
	}

	// Arrays.
	count, off, err := readCount(buf, off, minElemSize[tag])
	if err != nil {
		return nil, off, err
	}

	switch tag {

	case TypeBoolArray:
		arr := make(BoolArray, 0, min(count, maxPrealloc))
		for n := 0; n < count; n++ {
			b, err := readBool(buf, off)
			if err != nil {
				return nil, off, err
			}
			arr = append(arr, b)
			off++
		}
		return arr, off, nil

	case TypeNumberArray:
		arr := make(NumberArray, 0, min(count, maxPrealloc))
		for n := 0; n < count; n++ {
			arr = append(arr, binary.BigEndian.Uint64(buf[off:off+8]))
			off += 8
		}
		return arr, off, nil

	case TypeDescriptorArray:
		arr := make(DescriptorArray, 0, min(count, maxPrealloc))
		for n := 0; n < count; n++ {
			arr = append(arr, int(int64(binary.BigEndian.Uint64(buf[off:off+8]))))
			off += 8
		}
		return arr, off, nil

	case TypeStringArray:
		arr := make(StringArray, 0, min(count, maxPrealloc))
		for n := 0; n < count; n++ {
			raw, newOff, err := readBlob(buf, off)
			if err != nil {
				return nil, off, err
			}
			if !utf8.Valid(raw) {
				return nil, off, newErr(ErrDecode, "string is not valid UTF-8")
			}
			arr = append(arr, string(raw))
			off = newOff
		}
		return arr, off, nil

	case TypeNvListArray:
		arr := make(NvListArray, 0, min(count, maxPrealloc))
		for n := 0; n < count; n++ {
			c, newOff, err := decodeList(buf, off, depth)
			if err != nil {
				return nil, off, err
			}
			arr = append(arr, c)
			off = newOff
		}
		return arr, off, nil
	}

	return nil, off, newErr(ErrDecode, "unknown type tag")
}

// readCount reads an array element count and checks that count elements
// of at least minSize bytes each fit in the remaining input.  Fixed-width
// element reads after a successful readCount are therefore in bounds.
func readCount(buf []byte, off int, minSize int) (int, int, error) {
	n, off, err := readU32BE(buf, off)
	if err != nil {
		return 0, off, err
	}
	if uint64(n)*uint64(minSize) > uint64(len(buf)-off) {
		return 0, off, newErr(ErrMalformedLength, "element count exceeds input")
	}
	return int(n), off, nil
}

// readBlob reads a u32 length and that many bytes.  The returned slice
// aliases buf.
func readBlob(buf []byte, off int) ([]byte, int, error) {
	n, off, err := readU32BE(buf, off)
	if err != nil {
		return nil, off, err
	}
	if uint64(n) > uint64(len(buf)-off) {
		return nil, off, newErr(ErrMalformedLength, "length exceeds input")
	}
	end := off + int(n)
	return buf[off:end], end, nil
}

func readBool(buf []byte, off int) (bool, error) {
	if off >= len(buf) {
		return false, newErr(ErrDecode, "truncated bool")
	}
	switch buf[off] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	}
	return false, newErr(ErrDecode, "invalid bool payload")
}

func readU16BE(buf []byte, off int) (uint16, int, error) {
	if off+2 > len(buf) {
		return 0, off, newErr(ErrDecode, "truncated u16")
	}
	return binary.BigEndian.Uint16(buf[off : off+2]), off + 2, nil
}

func readU32BE(buf []byte, off int) (uint32, int, error) {
	if off+4 > len(buf) {
		return 0, off, newErr(ErrDecode, "truncated u32")
	}
	return binary.BigEndian.Uint32(buf[off : off+4]), off + 4, nil
}

func readU64BE(buf []byte, off int) (uint64, int, error) {
	if off+8 > len(buf) {
		return 0, off, newErr(ErrDecode, "truncated u64")
	}
	return binary.BigEndian.Uint64(buf[off : off+8]), off + 8, nil
}
