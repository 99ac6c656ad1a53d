package nv

// View is a read-only view of an array stored in an NvList.  It borrows
// the list's storage and stays valid only until the next Add, Free or
// Destroy on that list.  A stale view reports Len 0 and Copy nil, and At
// panics: reading through it after a mutation is a use-after-mutation
// bug in the caller.
type View[T any] struct {
	list  *NvList
	gen   uint64
	elems []T
}

func newView[T any](l *NvList, elems []T) View[T] {
	return View[T]{list: l, gen: l.gen, elems: elems}
}

// Valid reports whether the list has not been mutated since the view was
// taken.
func (v View[T]) Valid() bool {
	return v.list != nil && v.list.gen == v.gen
}

func (v View[T]) Len() int {
	if !v.Valid() {
		return 0
	}
	return len(v.elems)
}

// At returns element i.
func (v View[T]) At(i int) T {
	if !v.Valid() {
		panic("nv: array view used after its list was mutated")
	}
	return v.elems[i]
}

// Copy returns the elements in storage owned by the caller.
func (v View[T]) Copy() []T {
	if !v.Valid() {
		return nil
	}
	return append(make([]T, 0, len(v.elems)), v.elems...)
}
