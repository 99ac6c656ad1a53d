package nv

import (
	"slices"
	"strings"
)

// LookupPath resolves an RFC 6901 pointer through nested lists and
// returns a copy of the value it names.  "" names l itself.
//
// Each reference token selects the first matching entry, honoring the
// list's case folding.  Intermediate tokens only descend into NVLIST
// entries; a token that names an array mid-path fails with ERR_PATH
// because arrays are not addressable.  A path that simply does not exist
// returns false with a nil error.
func LookupPath(l *NvList, ptr string) (Value, bool, error) {
	if !l.Valid() {
		return nil, false, newErr(ErrInvalidList, "list is invalid")
	}
	tokens, err := parsePointer(ptr)
	if err != nil {
		return nil, false, err
	}
	pos, ok, err := resolve(l, tokens)
	if err != nil || !ok {
		return nil, false, err
	}
	return copyValue(valueAt(l, pos)), true, nil
}

// resolve walks tokens from l and returns the index of the matched entry
// at each level.  Two pointers that differ only in spelling (case on a
// CaseInsensitive list) resolve to the same positions.
func resolve(l *NvList, tokens []string) ([]int, bool, error) {
	pos := make([]int, 0, len(tokens))
	cur := l
	for i, tok := range tokens {
		if i == len(tokens)-1 {
			idx := cur.find(tok, TypeNone)
			if idx < 0 {
				return nil, false, nil
			}
			return append(pos, idx), true, nil
		}
		idx := cur.find(tok, TypeNvList)
		if idx < 0 {
			if j := cur.find(tok, TypeNone); j >= 0 && isArray(cur.entries[j].value.Type()) {
				return nil, false, newErr(ErrPath, "cannot traverse array")
			}
			return nil, false, nil
		}
		pos = append(pos, idx)
		cur = cur.entries[idx].value.(*NvList)
	}
	return pos, true, nil
}

// valueAt returns the value at resolved positions pos.  Owned by l.
func valueAt(l *NvList, pos []int) Value {
	var v Value = l
	for _, idx := range pos {
		v = v.(*NvList).entries[idx].value
	}
	return v
}

func isArray(t Type) bool {
	return t >= TypeBoolArray && t <= TypeDescriptorArray
}

// Select builds a new list holding only the entries named by ptrs,
// wrapped in the minimal enclosing nested lists.  Siblings are omitted at
// every level and each nested list keeps the flags of its source.
//
// Rules:
//
//	(a) Every pointer is parsed per RFC 6901; a malformed one fails.
//	(b) Duplicate pointer strings fail.
//	(c) If no pointer matches, the result is an empty list; if some
//	    match and some do not, Select fails.
//	(d) A pointer below another selected pointer is subsumed by it.
//	    Pointers are compared by the entries they resolve to, so case
//	    folding applies.
//	(e) The empty pointer selects the whole list.
//
// Entries appear in the order of ptrs.  All failures are ERR_PATH.
func Select(l *NvList, ptrs []string) (*NvList, error) {
	if !l.Valid() {
		return nil, newErr(ErrInvalidList, "list is invalid")
	}

	seen := make(map[string]bool, len(ptrs))
	for _, p := range ptrs {
		if seen[p] {
			return nil, newErr(ErrPath, "duplicate pointers")
		}
		seen[p] = true
	}

	parsed := make([][]string, len(ptrs))
	for i, ptr := range ptrs {
		tokens, err := parsePointer(ptr)
		if err != nil {
			return nil, err
		}
		parsed[i] = tokens
	}

	if slices.Contains(ptrs, "") {
		return l.Clone(), nil
	}

	var matched [][]int
	anyUnmatched := false
	for _, tokens := range parsed {
		pos, ok, err := resolve(l, tokens)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, pos)
		} else {
			anyUnmatched = true
		}
	}
	if len(matched) == 0 {
		return &NvList{valid: true, flags: l.flags}, nil
	}
	if anyUnmatched {
		return nil, newErr(ErrPath, "unmatched pointer in set")
	}

	projected := &NvList{valid: true, flags: l.flags}
	for i, pos := range matched {
		if covered(matched, i) {
			continue
		}
		src, target := l, projected
		for depth, idx := range pos {
			e := src.entries[idx]
			if depth == len(pos)-1 {
				target.entries = append(target.entries, entry{name: e.name, key: e.key, value: copyValue(e.value)})
				break
			}
			src = e.value.(*NvList)
			target = ensureChild(target, e, src.flags)
		}
	}
	return projected, nil
}

// covered reports whether matched[i] lies below another matched position,
// or repeats one listed earlier.
func covered(matched [][]int, i int) bool {
	pos := matched[i]
	for j, other := range matched {
		if j == i || len(other) > len(pos) || !slices.Equal(other, pos[:len(other)]) {
			continue
		}
		if len(other) < len(pos) || j < i {
			return true
		}
	}
	return false
}

// ensureChild returns the nested list standing for src entry e inside
// target, creating it with flags on first use.
func ensureChild(target *NvList, e entry, flags Flags) *NvList {
	if i := target.indexOf(e.key, TypeNvList); i >= 0 {
		return target.entries[i].value.(*NvList)
	}
	child := &NvList{valid: true, flags: flags}
	target.entries = append(target.entries, entry{name: e.name, key: e.key, value: child})
	return child
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// parsePointer splits an RFC 6901 pointer into unescaped reference
// tokens.  The empty pointer has no tokens.
func parsePointer(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, nil
	}
	rest, ok := strings.CutPrefix(ptr, "/")
	if !ok {
		return nil, newErr(ErrPath, "pointer must start with '/'")
	}
	tokens := strings.Split(rest, "/")
	for i, tok := range tokens {
		for j := strings.IndexByte(tok, '~'); j >= 0; {
			if j+1 == len(tok) || (tok[j+1] != '0' && tok[j+1] != '1') {
				return nil, newErr(ErrPath, "invalid ~ escape in pointer")
			}
			next := strings.IndexByte(tok[j+2:], '~')
			if next < 0 {
				break
			}
			j += 2 + next
		}
		tokens[i] = pointerUnescaper.Replace(tok)
	}
	return tokens, nil
}
