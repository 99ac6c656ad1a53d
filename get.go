package nv

// Getters return the first entry, in insertion order, whose name matches
// and whose type is the requested one.  A name stored with a different
// type reads as absent.

// lookup returns the stored value of the first entry named name with
// type t.  The result is owned by l and must not escape uncopied.
func (l *NvList) lookup(name string, t Type) (Value, bool) {
	i := l.find(name, t)
	if i < 0 {
		return nil, false
	}
	return l.entries[i].value, true
}

// Lookup returns a copy of the first entry named name, of any type.
func (l *NvList) Lookup(name string) (Value, bool) {
	i := l.find(name, TypeNone)
	if i < 0 {
		return nil, false
	}
	return copyValue(l.entries[i].value), true
}

func (l *NvList) GetBool(name string) (bool, bool) {
	v, ok := l.lookup(name, TypeBool)
	if !ok {
		return false, false
	}
	return bool(v.(Bool)), true
}

func (l *NvList) GetNumber(name string) (uint64, bool) {
	v, ok := l.lookup(name, TypeNumber)
	if !ok {
		return 0, false
	}
	return uint64(v.(Number)), true
}

func (l *NvList) GetString(name string) (string, bool) {
	v, ok := l.lookup(name, TypeString)
	if !ok {
		return "", false
	}
	return string(v.(String)), true
}

func (l *NvList) GetDescriptor(name string) (int, bool) {
	v, ok := l.lookup(name, TypeDescriptor)
	if !ok {
		return 0, false
	}
	return int(v.(Descriptor)), true
}

// GetBinary returns a copy of the stored bytes.
func (l *NvList) GetBinary(name string) ([]byte, bool) {
	v, ok := l.lookup(name, TypeBinary)
	if !ok {
		return nil, false
	}
	return append([]byte{}, v.(Binary)...), true
}

// GetNvList returns a deep clone of the nested list; changing it does
// not affect l.
func (l *NvList) GetNvList(name string) (*NvList, bool) {
	v, ok := l.lookup(name, TypeNvList)
	if !ok {
		return nil, false
	}
	return v.(*NvList).Clone(), true
}

// GetNvListArray returns deep clones of the nested lists.
func (l *NvList) GetNvListArray(name string) ([]*NvList, bool) {
	v, ok := l.lookup(name, TypeNvListArray)
	if !ok {
		return nil, false
	}
	return []*NvList(copyValue(v).(NvListArray)), true
}

func (l *NvList) GetBoolArray(name string) (View[bool], bool) {
	v, ok := l.lookup(name, TypeBoolArray)
	if !ok {
		return View[bool]{}, false
	}
	return newView(l, []bool(v.(BoolArray))), true
}

func (l *NvList) GetNumberArray(name string) (View[uint64], bool) {
	v, ok := l.lookup(name, TypeNumberArray)
	if !ok {
		return View[uint64]{}, false
	}
	return newView(l, []uint64(v.(NumberArray))), true
}

func (l *NvList) GetStringArray(name string) (View[string], bool) {
	v, ok := l.lookup(name, TypeStringArray)
	if !ok {
		return View[string]{}, false
	}
	return newView(l, []string(v.(StringArray))), true
}

func (l *NvList) GetDescriptorArray(name string) (View[int], bool) {
	v, ok := l.lookup(name, TypeDescriptorArray)
	if !ok {
		return View[int]{}, false
	}
	return newView(l, []int(v.(DescriptorArray))), true
}
