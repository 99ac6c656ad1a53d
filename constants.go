package nv

// dumpHdr is the 5-byte header of a top-level dump: ASCII "NVL1" + NUL.
// Nested lists are written without it.
var dumpHdr = []byte{0x4E, 0x56, 0x4C, 0x31, 0x00}

// Type identifies the kind of value stored under a name.  The numeric
// values are wire identifiers and must never be renumbered.
type Type uint8

const (
	TypeNone            Type = 0 // end-of-list marker, never stored
	TypeNull            Type = 1
	TypeBool            Type = 2
	TypeNumber          Type = 3
	TypeString          Type = 4
	TypeNvList          Type = 5
	TypeDescriptor      Type = 6
	TypeBinary          Type = 7
	TypeBoolArray       Type = 8
	TypeNumberArray     Type = 9
	TypeStringArray     Type = 10
	TypeNvListArray     Type = 11
	TypeDescriptorArray Type = 12
)

var typeNames = [...]string{
	TypeNone:            "none",
	TypeNull:            "null",
	TypeBool:            "bool",
	TypeNumber:          "number",
	TypeString:          "string",
	TypeNvList:          "nvlist",
	TypeDescriptor:      "descriptor",
	TypeBinary:          "binary",
	TypeBoolArray:       "bool_array",
	TypeNumberArray:     "number_array",
	TypeStringArray:     "string_array",
	TypeNvListArray:     "nvlist_array",
	TypeDescriptorArray: "descriptor_array",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// valid reports whether t may appear as a record tag.
func (t Type) valid() bool {
	return t > TypeNone && t <= TypeDescriptorArray
}

// ParseType is the inverse of Type.String.  TypeNone is not accepted.
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s && Type(i) != TypeNone {
			return Type(i), true
		}
	}
	return TypeNone, false
}

// Limits.
const (
	MaxNameLen   = 2048     // bytes; Go strings carry no terminator
	MaxDepth     = 32       // max nesting of lists, counted from the root
	MaxDumpBytes = 64 << 20 // upper bound on input read by Parse
)

// Errno values recorded in a list's sticky error.  They follow the FreeBSD
// numbering used by libnv but are opaque integers here.
const (
	ENOMEM       = 12
	EEXIST       = 17
	EINVAL       = 22
	ENAMETOOLONG = 63
	EILSEQ       = 86
)
