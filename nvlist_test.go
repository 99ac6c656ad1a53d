package nv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownFlags(t *testing.T) {
	for _, f := range []Flags{0, CaseInsensitive, AllowDuplicates, Both} {
		l, err := New(f)
		require.NoError(t, err)
		require.True(t, l.Valid())
		require.Equal(t, f, l.Flags())
		require.Zero(t, l.Errno())
		require.True(t, l.Empty())
	}

	l, err := New(Flags(4))
	require.Error(t, err)
	require.True(t, IsCode(err, ErrConstruction))
	require.False(t, l.Valid())
	require.Equal(t, ENOMEM, l.Errno())

	require.Panics(t, func() { MustNew(Flags(0x80)) })
}

func TestDuplicatePolicy(t *testing.T) {
	t.Run("unique", func(t *testing.T) {
		l := MustNew(0)
		l.AddNumber("a", 1)
		size, n := l.Size(), l.Len()

		l.AddNumber("a", 2)
		require.Equal(t, EEXIST, l.Errno())
		require.True(t, IsCode(l.Err(), ErrDuplicateName))
		require.Equal(t, n, l.Len())
		require.Equal(t, size, l.Size())

		v, ok := l.GetNumber("a")
		require.True(t, ok)
		require.Equal(t, uint64(1), v)
	})

	t.Run("different type still collides", func(t *testing.T) {
		l := MustNew(0)
		l.AddNumber("a", 1)
		l.AddString("a", "one")
		require.Equal(t, EEXIST, l.Errno())
		require.False(t, l.ExistsType("a", TypeString))
	})

	t.Run("allowed", func(t *testing.T) {
		l := MustNew(AllowDuplicates)
		l.AddNumber("a", 1)
		l.AddNumber("a", 2)
		require.Zero(t, l.Errno())
		require.Equal(t, 2, l.Len())

		v, _ := l.GetNumber("a")
		require.Equal(t, uint64(1), v, "first match wins")

		l.Free("a")
		v, ok := l.GetNumber("a")
		require.True(t, ok)
		require.Equal(t, uint64(2), v)
	})
}

func TestCaseFolding(t *testing.T) {
	l := MustNew(CaseInsensitive)
	l.AddNumber("Key", 1)
	require.True(t, l.Exists("key"))
	require.True(t, l.ExistsType("KEY", TypeNumber))
	v, ok := l.GetNumber("kEy")
	require.True(t, ok)
	require.Equal(t, uint64(1), v)

	l.AddNumber("KEY", 2)
	require.Equal(t, EEXIST, l.Errno(), "folded names collide")

	u := MustNew(CaseInsensitive)
	u.AddString("ÉCOLE", "x")
	require.True(t, u.Exists("école"))
	u.Free("École")
	require.True(t, u.Empty())

	s := MustNew(0)
	s.AddNumber("Key", 1)
	require.False(t, s.Exists("key"))
	s.AddNumber("key", 2)
	require.Zero(t, s.Errno())
	require.Equal(t, 2, s.Len())

	// The original spelling is kept.
	var names []string
	l.Range(func(name string, _ Value) bool {
		names = append(names, name)
		return true
	})
	require.Equal(t, []string{"Key"}, names)
}

func TestTypeSafeRetrieval(t *testing.T) {
	l := MustNew(0)
	l.AddString("x", "hi")

	n, ok := l.GetNumber("x")
	require.False(t, ok)
	require.Zero(t, n)
	_, ok = l.GetNumberArray("x")
	require.False(t, ok)
	_, ok = l.GetNvList("x")
	require.False(t, ok)

	require.True(t, l.ExistsType("x", TypeString))
	require.False(t, l.ExistsType("x", TypeNumber))
	require.False(t, l.ExistsType("x", TypeNone))

	s, ok := l.GetString("x")
	require.True(t, ok)
	require.Equal(t, "hi", s)

	_, ok = l.GetString("missing")
	require.False(t, ok)
}

func TestNameLengthBoundary(t *testing.T) {
	l := MustNew(0)
	l.AddNull(strings.Repeat("n", MaxNameLen))
	require.Zero(t, l.Errno())
	require.Equal(t, 1, l.Len())

	l.AddNull(strings.Repeat("m", MaxNameLen+1))
	require.Equal(t, ENAMETOOLONG, l.Errno())
	require.True(t, IsCode(l.Err(), ErrNameTooLong))
	require.Equal(t, 1, l.Len())
}

func TestInvalidListIsInert(t *testing.T) {
	bad, _ := New(Flags(7))
	var nilList *NvList

	for name, l := range map[string]*NvList{
		"failed New": bad,
		"zero value": {},
		"nil":        nilList,
	} {
		t.Run(name, func(t *testing.T) {
			l.AddNumber("x", 1)
			l.AddNvList("y", MustNew(0))
			l.Add("z", String("s"))
			l.Free("x")
			l.ClearErrno()

			_, ok := l.GetNumber("x")
			require.False(t, ok)
			require.False(t, l.Exists("x"))
			require.False(t, l.ExistsType("x", TypeNumber))
			require.True(t, l.Empty())
			require.Zero(t, l.Len())
			require.Zero(t, l.Size())
			require.Zero(t, l.Flags())
			require.Equal(t, ENOMEM, l.Errno())
			require.True(t, IsCode(l.Err(), ErrInvalidList))

			err := l.SetErrno(EINVAL)
			require.True(t, IsCode(err, ErrErrnoNotSet))
			require.Equal(t, ENOMEM, l.Errno())

			require.False(t, l.Clone().Valid())
			l.Destroy()
		})
	}
}

func TestErroredListIgnoresMutation(t *testing.T) {
	l := MustNew(0)
	l.AddNumber("kept", 7)
	require.NoError(t, l.SetErrno(EINVAL))
	require.Equal(t, EINVAL, l.Errno())

	l.AddNumber("dropped", 1)
	l.Free("kept")
	require.False(t, l.Exists("dropped"))
	v, ok := l.GetNumber("kept")
	require.True(t, ok, "reads still work on an errored list")
	require.Equal(t, uint64(7), v)

	// A later failure does not overwrite the first one.
	l.setErrno(EEXIST)
	require.Equal(t, EINVAL, l.Errno())

	l.ClearErrno()
	require.Zero(t, l.Errno())
	l.AddNumber("added", 1)
	require.True(t, l.Exists("added"))
}

func TestAddDispatch(t *testing.T) {
	values := map[string]Value{
		"null":        Null{},
		"bool":        Bool(true),
		"number":      Number(42),
		"string":      String("s"),
		"descriptor":  Descriptor(3),
		"binary":      Binary{1, 2},
		"nvlist":      MustNew(0),
		"bools":       BoolArray{true, false},
		"numbers":     NumberArray{1, 2},
		"strings":     StringArray{"a", "b"},
		"nvlists":     NvListArray{MustNew(0)},
		"descriptors": DescriptorArray{0, 1, 2},
	}
	l := MustNew(0)
	for name, v := range values {
		l.Add(name, v)
	}
	require.Zero(t, l.Errno())
	for name, v := range values {
		require.True(t, l.ExistsType(name, v.Type()), name)
	}
}

func TestAddOptional(t *testing.T) {
	l := MustNew(0)
	l.Add("answer", Some(Number(42)))
	l.Add("no answer", Absent[Number]())
	l.Add("nil", nil)
	l.Add("child", Some(MustNew(0)))

	v, ok := l.GetNumber("answer")
	require.True(t, ok)
	require.Equal(t, uint64(42), v)
	require.True(t, l.ExistsType("no answer", TypeNull))
	require.True(t, l.ExistsType("nil", TypeNull))
	require.True(t, l.ExistsType("child", TypeNvList))

	o := Some(String("x"))
	got, present := o.Get()
	require.True(t, present)
	require.Equal(t, String("x"), got)
	require.Equal(t, TypeNull, Absent[String]().Type())
	require.Equal(t, TypeString, o.Type())
}

func TestAddStringRejectsInvalidUTF8(t *testing.T) {
	l := MustNew(0)
	l.AddString("s", "\xff")
	require.Equal(t, EILSEQ, l.Errno())
	require.False(t, l.Exists("s"))

	l = MustNew(0)
	l.AddStringArray("s", []string{"ok", "\xc3"})
	require.Equal(t, EILSEQ, l.Errno())

	l = MustNew(0)
	l.AddStringf("s", "%s-%d", "a", 1)
	s, _ := l.GetString("s")
	require.Equal(t, "a-1", s)
}

func TestInvalidChildIsReplaced(t *testing.T) {
	parent := MustNew(CaseInsensitive)
	parent.AddNvList("nil", nil)
	parent.AddNvList("zero", &NvList{})
	parent.AddNvListArray("arr", []*NvList{nil, MustNew(AllowDuplicates)})
	require.Zero(t, parent.Errno())

	for _, name := range []string{"nil", "zero"} {
		c, ok := parent.GetNvList(name)
		require.True(t, ok)
		require.True(t, c.Valid())
		require.True(t, c.Empty())
		require.Equal(t, CaseInsensitive, c.Flags())
	}

	arr, ok := parent.GetNvListArray("arr")
	require.True(t, ok)
	require.Len(t, arr, 2)
	require.Equal(t, CaseInsensitive, arr[0].Flags())
	require.Equal(t, AllowDuplicates, arr[1].Flags())
}

func TestErroredChildPropagates(t *testing.T) {
	child := MustNew(0)
	require.NoError(t, child.SetErrno(EINVAL))

	parent := MustNew(0)
	parent.AddNvList("c", child)
	require.Equal(t, EINVAL, parent.Errno())
	require.False(t, parent.Exists("c"))
}

func TestCloneIsDeep(t *testing.T) {
	orig := MustNew(0)
	child := MustNew(0)
	child.AddNumber("n", 1)
	orig.AddNvList("child", child)
	nums := []uint64{1, 2, 3}
	orig.AddNumberArray("nums", nums)
	orig.AddBinary("bin", []byte("abc"))

	// The caller's originals are not aliased by the stored copies.
	child.AddNumber("later", 5)
	nums[0] = 100

	clone := orig.Clone()
	require.True(t, clone.Equal(orig))
	require.NotSame(t, orig.entries[0].value, clone.entries[0].value)

	// Mutate the original's nested list and array.
	orig.Free("child")
	replacement := MustNew(0)
	replacement.AddNumber("n", 99)
	orig.AddNvList("child", replacement)
	orig.FreeType("nums", TypeNumberArray)
	orig.AddNumberArray("nums", []uint64{9})

	c, ok := clone.GetNvList("child")
	require.True(t, ok)
	n, _ := c.GetNumber("n")
	require.Equal(t, uint64(1), n)
	require.False(t, c.Exists("later"))

	view, ok := clone.GetNumberArray("nums")
	require.True(t, ok)
	require.Equal(t, []uint64{1, 2, 3}, view.Copy())

	// A retrieved nested list is a copy too.
	c.AddNumber("extra", 1)
	again, _ := clone.GetNvList("child")
	require.False(t, again.Exists("extra"))

	// So is a retrieved blob.
	b, _ := clone.GetBinary("bin")
	b[0] = 'X'
	b2, _ := clone.GetBinary("bin")
	require.Equal(t, []byte("abc"), b2)
}

func TestViewInvalidatedByMutation(t *testing.T) {
	l := MustNew(0)
	l.AddNumberArray("nums", []uint64{1, 2, 3})
	l.AddStringArray("strs", []string{"a"})

	v, ok := l.GetNumberArray("nums")
	require.True(t, ok)
	require.True(t, v.Valid())
	require.Equal(t, 3, v.Len())
	require.Equal(t, uint64(2), v.At(1))

	cp := v.Copy()
	cp[0] = 100
	require.Equal(t, uint64(1), v.At(0), "Copy is owned by the caller")

	l.AddBool("b", true)
	require.False(t, v.Valid())
	require.Zero(t, v.Len())
	require.Nil(t, v.Copy())
	require.Panics(t, func() { v.At(0) })

	s, _ := l.GetStringArray("strs")
	l.Free("b")
	require.False(t, s.Valid())

	s, _ = l.GetStringArray("strs")
	l.Free("missing")
	require.True(t, s.Valid(), "a no-op Free does not mutate")

	l.Destroy()
	require.False(t, s.Valid())

	var zero View[int]
	require.False(t, zero.Valid())
	require.Zero(t, zero.Len())
}

func TestFreeType(t *testing.T) {
	l := MustNew(AllowDuplicates)
	l.AddNumber("x", 1)
	l.AddString("x", "s")
	l.AddNumber("x", 2)

	l.FreeType("x", TypeString)
	require.False(t, l.ExistsType("x", TypeString))
	require.Equal(t, 2, l.Len())

	l.FreeType("x", TypeNumber)
	v, _ := l.GetNumber("x")
	require.Equal(t, uint64(2), v)

	l.FreeType("x", TypeBool)
	l.FreeType("x", TypeNone)
	l.Free("nothing")
	require.Zero(t, l.Errno())
	require.Equal(t, 1, l.Len())
}

func TestDestroy(t *testing.T) {
	l := MustNew(0)
	l.AddNvList("c", MustNew(0))
	l.AddNvListArray("a", []*NvList{MustNew(0)})
	l.Destroy()
	require.False(t, l.Valid())
	require.Equal(t, ENOMEM, l.Errno())
	require.NotPanics(t, l.Destroy)
}

func TestRangeAndLookup(t *testing.T) {
	l := MustNew(0)
	l.AddNumber("a", 1)
	l.AddBinary("b", []byte{1})
	l.AddNull("c")

	var names []string
	l.Range(func(name string, v Value) bool {
		names = append(names, name)
		if b, ok := v.(Binary); ok {
			b[0] = 9
		}
		return name != "b"
	})
	require.Equal(t, []string{"a", "b"}, names)

	v, ok := l.Lookup("b")
	require.True(t, ok)
	require.Equal(t, Binary{1}, v)

	_, ok = l.Lookup("zzz")
	require.False(t, ok)
}

func TestEqual(t *testing.T) {
	a := MustNew(0)
	a.AddNumber("n", 1)
	b := a.Clone()
	require.True(t, a.Equal(b))

	b.AddNull("extra")
	require.False(t, a.Equal(b))

	c := MustNew(CaseInsensitive)
	c.AddNumber("n", 1)
	require.False(t, a.Equal(c), "flags differ")

	var invalid *NvList
	require.True(t, invalid.Equal(&NvList{}))
	require.False(t, invalid.Equal(a))
}

func TestTypeNames(t *testing.T) {
	for i := TypeNull; i <= TypeDescriptorArray; i++ {
		got, ok := ParseType(i.String())
		require.True(t, ok)
		require.Equal(t, i, got)
	}
	_, ok := ParseType("none")
	require.False(t, ok)
	require.Equal(t, "unknown", Type(200).String())
}
