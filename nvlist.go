package nv

import (
	"slices"

	"golang.org/x/text/cases"
)

// Flags are fixed when a list is created.
type Flags uint8

const (
	// CaseInsensitive folds case when names are compared by lookup,
	// existence checks, removal and the duplicate check.
	CaseInsensitive Flags = 1 << 0
	// AllowDuplicates lets a name appear in more than one entry.
	// Lookups return the first match in insertion order.
	AllowDuplicates Flags = 1 << 1
	// Both combines CaseInsensitive and AllowDuplicates.
	Both = CaseInsensitive | AllowDuplicates

	flagMask = Both
)

func (f Flags) valid() bool { return f&^flagMask == 0 }

type entry struct {
	name  string
	key   string // name, case-folded when the list is CaseInsensitive
	value Value
}

// NvList is an ordered list of named values.
//
// The zero value and a nil *NvList are the invalid sentinel: every query
// reports absent, every mutator is a no-op and Errno returns ENOMEM.  Use
// New to create a usable list.
//
// An NvList must not be mutated concurrently.  Concurrent reads of a list
// that nobody mutates are safe.
type NvList struct {
	valid   bool
	flags   Flags
	errno   int
	entries []entry
	gen     uint64 // bumped by every mutation; see View
}

// New creates an empty list.  Flags other than the four defined
// combinations return the invalid sentinel and an ERR_CONSTRUCTION error.
func New(flags Flags) (*NvList, error) {
	if !flags.valid() {
		return &NvList{}, newErr(ErrConstruction, "invalid flags")
	}
	return &NvList{valid: true, flags: flags}, nil
}

// MustNew is like New but panics on invalid flags.
func MustNew(flags Flags) *NvList {
	l, err := New(flags)
	if err != nil {
		panic(err)
	}
	return l
}

// Valid reports whether l was successfully constructed and not destroyed.
func (l *NvList) Valid() bool {
	return l != nil && l.valid
}

// writable reports whether mutators should act on l.
func (l *NvList) writable() bool {
	return l.Valid() && l.errno == 0
}

// Flags returns the flags l was created with.  The invalid sentinel
// reports no flags.
func (l *NvList) Flags() Flags {
	if !l.Valid() {
		return 0
	}
	return l.flags
}

// Errno returns the sticky error code, 0 meaning no error.  The invalid
// sentinel always reports ENOMEM.
func (l *NvList) Errno() int {
	if !l.Valid() {
		return ENOMEM
	}
	return l.errno
}

// Err returns the sticky error code as an *Error, or nil.
func (l *NvList) Err() error {
	if e := errnoError(l.Errno()); e != nil {
		return e
	}
	return nil
}

// SetErrno forces the sticky error code, typically to propagate a
// failure detected elsewhere.  It fails on the invalid sentinel, whose
// code is fixed.
func (l *NvList) SetErrno(code int) error {
	if !l.Valid() {
		return &Error{Code: ErrErrnoNotSet, Msg: "list is invalid", Errno: code}
	}
	l.errno = code
	return nil
}

// ClearErrno resets the sticky error code to 0.  No mutation ever clears
// it implicitly.
func (l *NvList) ClearErrno() {
	if l.Valid() {
		l.errno = 0
	}
}

// setErrno records a mutation failure.  The first failure wins.
func (l *NvList) setErrno(code int) {
	if l.errno == 0 {
		l.errno = code
	}
}

// Empty reports whether l holds no entries.
func (l *NvList) Empty() bool {
	return !l.Valid() || len(l.entries) == 0
}

// Len returns the number of entries.
func (l *NvList) Len() int {
	if !l.Valid() {
		return 0
	}
	return len(l.entries)
}

// Exists reports whether an entry of any type is named name.
func (l *NvList) Exists(name string) bool {
	return l.find(name, TypeNone) >= 0
}

// ExistsType reports whether an entry of type t is named name.
func (l *NvList) ExistsType(name string, t Type) bool {
	if t == TypeNone {
		return false
	}
	return l.find(name, t) >= 0
}

// Free removes the first entry named name, whatever its type.
func (l *NvList) Free(name string) {
	if !l.writable() {
		return
	}
	l.remove(l.find(name, TypeNone))
}

// FreeType removes the first entry named name with type t.
func (l *NvList) FreeType(name string, t Type) {
	if !l.writable() || t == TypeNone {
		return
	}
	l.remove(l.find(name, t))
}

func (l *NvList) remove(i int) {
	if i < 0 {
		return
	}
	l.entries = slices.Delete(l.entries, i, i+1)
	l.gen++
}

// Range calls fn for every entry in insertion order until fn returns
// false.  Values are copies; changing them does not affect l.
func (l *NvList) Range(fn func(name string, v Value) bool) {
	if !l.Valid() {
		return
	}
	for _, e := range l.entries {
		if !fn(e.name, copyValue(e.value)) {
			return
		}
	}
}

// Clone returns a deep copy of l.  Cloning the invalid sentinel yields
// another invalid sentinel.  The sticky errno is copied.
func (l *NvList) Clone() *NvList {
	if !l.Valid() {
		return &NvList{}
	}
	c := &NvList{valid: true, flags: l.flags, errno: l.errno}
	if len(l.entries) > 0 {
		c.entries = make([]entry, len(l.entries))
		for i, e := range l.entries {
			c.entries[i] = entry{name: e.name, key: e.key, value: copyValue(e.value)}
		}
	}
	return c
}

// Equal reports whether l and o hold the same flags and the same entries
// in the same order.  The sticky errno is ignored.  Two invalid lists are
// equal.
func (l *NvList) Equal(o *NvList) bool {
	if !l.Valid() || !o.Valid() {
		return l.Valid() == o.Valid()
	}
	if l.flags != o.flags || len(l.entries) != len(o.entries) {
		return false
	}
	for i := range l.entries {
		a, b := &l.entries[i], &o.entries[i]
		if a.name != b.name || !valuesEqual(a.value, b.value) {
			return false
		}
	}
	return true
}

// Destroy releases every entry, recursively, and turns l into the
// invalid sentinel.  Views taken from l become stale.  Calling Destroy
// again is harmless.
func (l *NvList) Destroy() {
	if !l.Valid() {
		return
	}
	for _, e := range l.entries {
		switch v := e.value.(type) {
		case *NvList:
			v.Destroy()
		case NvListArray:
			for _, c := range v {
				c.Destroy()
			}
		}
	}
	l.entries = nil
	l.valid = false
	l.errno = 0
	l.gen++
}

// key returns the comparison form of name under l's flags.
func (l *NvList) key(name string) string {
	if l.flags&CaseInsensitive != 0 {
		// A Caser keeps state, so each call gets its own.
		return cases.Fold().String(name)
	}
	return name
}

// find returns the index of the first entry named name whose type is t,
// or of any type when t is TypeNone.  -1 if none.
func (l *NvList) find(name string, t Type) int {
	if !l.Valid() {
		return -1
	}
	return l.indexOf(l.key(name), t)
}

func (l *NvList) indexOf(k string, t Type) int {
	for i, e := range l.entries {
		if e.key == k && (t == TypeNone || e.value.Type() == t) {
			return i
		}
	}
	return -1
}
