package nv

import (
	"fmt"
	"unicode/utf8"
)

// Add stores v under name, dispatching on its dynamic type.  A nil v and
// an absent Optional store Null.
func (l *NvList) Add(name string, v Value) {
	switch val := v.(type) {
	case nil:
		l.AddNull(name)
	case unwrapper:
		l.Add(name, val.unwrap())
	case Null:
		l.AddNull(name)
	case Bool:
		l.AddBool(name, bool(val))
	case Number:
		l.AddNumber(name, uint64(val))
	case String:
		l.AddString(name, string(val))
	case Descriptor:
		l.AddDescriptor(name, int(val))
	case Binary:
		l.AddBinary(name, val)
	case *NvList:
		l.AddNvList(name, val)
	case BoolArray:
		l.AddBoolArray(name, val)
	case NumberArray:
		l.AddNumberArray(name, val)
	case StringArray:
		l.AddStringArray(name, val)
	case NvListArray:
		l.AddNvListArray(name, val)
	case DescriptorArray:
		l.AddDescriptorArray(name, val)
	default:
		if l.writable() {
			l.setErrno(EINVAL)
		}
	}
}

func (l *NvList) AddNull(name string) {
	l.insert(name, Null{})
}

func (l *NvList) AddBool(name string, v bool) {
	l.insert(name, Bool(v))
}

func (l *NvList) AddNumber(name string, v uint64) {
	l.insert(name, Number(v))
}

// AddString stores a copy of v.  Invalid UTF-8 sets EILSEQ.
func (l *NvList) AddString(name string, v string) {
	if !l.writable() {
		return
	}
	if !utf8.ValidString(v) {
		l.setErrno(EILSEQ)
		return
	}
	l.insert(name, String(v))
}

// AddStringf stores the formatted string under name.
func (l *NvList) AddStringf(name, format string, args ...any) {
	l.AddString(name, fmt.Sprintf(format, args...))
}

// AddDescriptor records the handle value only.
func (l *NvList) AddDescriptor(name string, fd int) {
	l.insert(name, Descriptor(fd))
}

// AddBinary stores a copy of v; the caller may reuse its buffer.
func (l *NvList) AddBinary(name string, v []byte) {
	if !l.writable() {
		return
	}
	l.insert(name, Binary(append([]byte{}, v...)))
}

// AddNvList stores a deep clone of v.  If v is the invalid sentinel, a
// fresh empty list with l's flags is stored instead.  If v carries a
// sticky errno, that errno is propagated to l and nothing is stored.
func (l *NvList) AddNvList(name string, v *NvList) {
	if !l.writable() {
		return
	}
	c, errno := l.child(v)
	if errno != 0 {
		l.setErrno(errno)
		return
	}
	l.insert(name, c)
}

func (l *NvList) AddBoolArray(name string, v []bool) {
	if !l.writable() {
		return
	}
	l.insert(name, BoolArray(append([]bool{}, v...)))
}

func (l *NvList) AddNumberArray(name string, v []uint64) {
	if !l.writable() {
		return
	}
	l.insert(name, NumberArray(append([]uint64{}, v...)))
}

// AddStringArray copies every string.  Any invalid UTF-8 element sets
// EILSEQ and stores nothing.
func (l *NvList) AddStringArray(name string, v []string) {
	if !l.writable() {
		return
	}
	if !validStrings(v) {
		l.setErrno(EILSEQ)
		return
	}
	l.insert(name, StringArray(append([]string{}, v...)))
}

// AddNvListArray stores a deep clone of each element, substituting and
// propagating errors the way AddNvList does.
func (l *NvList) AddNvListArray(name string, v []*NvList) {
	if !l.writable() {
		return
	}
	arr := make(NvListArray, len(v))
	for i, e := range v {
		c, errno := l.child(e)
		if errno != 0 {
			l.setErrno(errno)
			return
		}
		arr[i] = c
	}
	l.insert(name, arr)
}

func (l *NvList) AddDescriptorArray(name string, v []int) {
	if !l.writable() {
		return
	}
	l.insert(name, DescriptorArray(append([]int{}, v...)))
}

// child prepares v for storage inside l.
func (l *NvList) child(v *NvList) (*NvList, int) {
	if !v.Valid() {
		return &NvList{valid: true, flags: l.flags}, 0
	}
	if v.errno != 0 {
		return nil, v.errno
	}
	return v.Clone(), 0
}

// insert appends an entry after the name checks.  v must already be
// owned by l.
func (l *NvList) insert(name string, v Value) {
	if !l.writable() {
		return
	}
	if len(name) > MaxNameLen {
		l.setErrno(ENAMETOOLONG)
		return
	}
	k := l.key(name)
	if l.flags&AllowDuplicates == 0 && l.indexOf(k, TypeNone) >= 0 {
		l.setErrno(EEXIST)
		return
	}
	l.entries = append(l.entries, entry{name: name, key: k, value: v})
	l.gen++
}
