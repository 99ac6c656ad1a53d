package nv_test

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/map-protocol/nv"
)

type vectorEntry struct {
	TestID   string `json:"test_id"`
	InputB64 string `json:"input_b64"`
	Err      string `json:"err,omitempty"`
	Entries  *int   `json:"entries,omitempty"`
}

type vectorsFile struct {
	Meta    json.RawMessage `json:"meta"`
	Vectors []vectorEntry   `json:"vectors"`
}

func loadVectors(t *testing.T) []vectorEntry {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "vectors.json"))
	require.NoError(t, err)
	var vf vectorsFile
	require.NoError(t, json.Unmarshal(data, &vf))
	require.NotEmpty(t, vf.Vectors)
	return vf.Vectors
}

func errCode(err error) string {
	var e *nv.Error
	if pkgerrors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN_ERROR"
}

func TestConformance(t *testing.T) {
	for _, vec := range loadVectors(t) {
		t.Run(vec.TestID, func(t *testing.T) {
			raw, err := base64.StdEncoding.DecodeString(vec.InputB64)
			require.NoError(t, err)

			l, err := nv.Unmarshal(raw)
			if vec.Err != "" {
				require.Error(t, err)
				require.Nil(t, l, "no partial list on failure")
				require.Equal(t, vec.Err, errCode(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, vec.Entries)
			require.Equal(t, *vec.Entries, l.Len())

			// Re-encoding a valid dump reproduces it byte for byte.
			again, err := l.Marshal()
			require.NoError(t, err)
			require.Equal(t, raw, again)
			require.Equal(t, len(raw), l.Size())
		})
	}
}

// TestAnswerScenario walks the basic produce, dump, parse, read cycle.
func TestAnswerScenario(t *testing.T) {
	l := nv.MustNew(nv.AllowDuplicates)
	l.AddNumber("answer", 42)
	l.AddNull("nothing")
	require.Zero(t, l.Errno())

	var buf bytes.Buffer
	require.NoError(t, l.Dump(&buf))

	got, err := nv.Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, nv.AllowDuplicates, got.Flags())

	n, ok := got.GetNumber("answer")
	require.True(t, ok)
	require.Equal(t, uint64(42), n)
	require.True(t, got.ExistsType("nothing", nv.TypeNull))
}

type namedValue struct {
	Name  string
	Value nv.Value
}

func entriesOf(l *nv.NvList) []namedValue {
	var out []namedValue
	l.Range(func(name string, v nv.Value) bool {
		out = append(out, namedValue{name, v})
		return true
	})
	return out
}

var listComparer = cmp.Comparer(func(a, b *nv.NvList) bool { return a.Equal(b) })

func allKinds() *nv.NvList {
	inner := nv.MustNew(nv.CaseInsensitive)
	inner.AddString("Greeting", "hi")

	l := nv.MustNew(nv.AllowDuplicates)
	l.AddNull("null")
	l.AddBool("bool", true)
	l.AddNumber("number", ^uint64(0))
	l.AddString("string", "héllo")
	l.AddNvList("nvlist", inner)
	l.AddDescriptor("descriptor", -1)
	l.AddBinary("binary", []byte{0, 1, 0xff})
	l.AddBoolArray("bools", []bool{true, false})
	l.AddNumberArray("numbers", []uint64{0, 1, 1 << 63})
	l.AddStringArray("strings", []string{"a", "", "ü"})
	l.AddNvListArray("nvlists", []*nv.NvList{inner, nv.MustNew(0)})
	l.AddDescriptorArray("descriptors", []int{0, 1, 2})
	l.AddNumber("number", 7)
	l.AddBoolArray("empty", nil)
	return l
}

func TestRoundTripAllKinds(t *testing.T) {
	want := allKinds()
	require.Zero(t, want.Errno())

	b, err := nv.Marshal(want)
	require.NoError(t, err)
	require.Equal(t, want.Size(), len(b))

	got, err := nv.Unmarshal(b)
	require.NoError(t, err)
	require.True(t, got.Equal(want))
	if diff := cmp.Diff(entriesOf(want), entriesOf(got), listComparer); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	inner, ok := got.GetNvList("nvlist")
	require.True(t, ok)
	require.Equal(t, nv.CaseInsensitive, inner.Flags())
	s, ok := inner.GetString("greeting")
	require.True(t, ok, "case folding survives the wire")
	require.Equal(t, "hi", s)

	fd, ok := got.GetDescriptor("descriptor")
	require.True(t, ok)
	require.Equal(t, -1, fd)
}

func randomList(rng *frand.RNG, depth int) *nv.NvList {
	flags := nv.Flags(rng.Intn(4))
	l := nv.MustNew(flags)
	for i, n := 0, rng.Intn(8); i < n; i++ {
		name := fmt.Sprintf("k%d", i)
		switch rng.Intn(12) {
		case 0:
			l.AddNull(name)
		case 1:
			l.AddBool(name, rng.Intn(2) == 1)
		case 2:
			l.AddNumber(name, rng.Uint64n(^uint64(0)))
		case 3:
			l.AddString(name, strings.Repeat("x", rng.Intn(40)))
		case 4:
			l.AddDescriptor(name, rng.Intn(1024)-512)
		case 5:
			l.AddBinary(name, rng.Bytes(rng.Intn(64)))
		case 6:
			if depth < 4 {
				l.AddNvList(name, randomList(rng, depth+1))
			} else {
				l.AddNull(name)
			}
		case 7:
			bs := make([]bool, rng.Intn(10))
			for j := range bs {
				bs[j] = rng.Intn(2) == 1
			}
			l.AddBoolArray(name, bs)
		case 8:
			ns := make([]uint64, rng.Intn(10))
			for j := range ns {
				ns[j] = rng.Uint64n(1 << 40)
			}
			l.AddNumberArray(name, ns)
		case 9:
			ss := make([]string, rng.Intn(5))
			for j := range ss {
				ss[j] = fmt.Sprintf("s%d", rng.Intn(1000))
			}
			l.AddStringArray(name, ss)
		case 10:
			var ls []*nv.NvList
			if depth < 4 {
				for k, n := 0, rng.Intn(3); k < n; k++ {
					ls = append(ls, randomList(rng, depth+1))
				}
			}
			l.AddNvListArray(name, ls)
		case 11:
			ds := make([]int, rng.Intn(6))
			for j := range ds {
				ds[j] = rng.Intn(100)
			}
			l.AddDescriptorArray(name, ds)
		}
	}
	return l
}

func TestRoundTripRandom(t *testing.T) {
	rng := frand.NewCustom(make([]byte, 32), 1024, 12)
	for i := 0; i < 200; i++ {
		want := randomList(rng, 0)
		require.Zero(t, want.Errno(), "list %d", i)

		b, err := want.Marshal()
		require.NoError(t, err)
		require.Equal(t, want.Size(), len(b))

		got, err := nv.Unmarshal(b)
		require.NoError(t, err)
		if diff := cmp.Diff(entriesOf(want), entriesOf(got), listComparer); diff != "" {
			t.Fatalf("list %d mismatch (-want +got):\n%s", i, diff)
		}
		require.Equal(t, want.Flags(), got.Flags())
	}
}

func TestEncodeDepthLimit(t *testing.T) {
	nest := func(k int) *nv.NvList {
		l := nv.MustNew(0)
		for n := 0; n < k; n++ {
			p := nv.MustNew(0)
			p.AddNvList("c", l)
			l = p
		}
		return l
	}

	b, err := nest(nv.MaxDepth - 1).Marshal()
	require.NoError(t, err)
	_, err = nv.Unmarshal(b)
	require.NoError(t, err)

	_, err = nest(nv.MaxDepth).Marshal()
	require.True(t, nv.IsCode(err, nv.ErrLimitDepth), "got %v", err)

	arr := nv.MustNew(0)
	arr.AddNvListArray("a", []*nv.NvList{nest(nv.MaxDepth - 1)})
	_, err = arr.Marshal()
	require.True(t, nv.IsCode(err, nv.ErrLimitDepth), "arrays count toward depth")
}

func TestMarshalRefusesBrokenLists(t *testing.T) {
	l := nv.MustNew(0)
	l.AddNumber("a", 1)
	l.AddNumber("a", 2)
	_, err := l.Marshal()
	require.True(t, nv.IsCode(err, nv.ErrDuplicateName))

	var invalid *nv.NvList
	_, err = nv.Marshal(invalid)
	require.True(t, nv.IsCode(err, nv.ErrInvalidList))
	require.Zero(t, invalid.Size())

	require.Error(t, nv.Dump(invalid, &bytes.Buffer{}))
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestDumpWriteFailure(t *testing.T) {
	sink := pkgerrors.New("disk full")
	err := nv.MustNew(0).Dump(failingWriter{sink})
	require.Error(t, err)
	require.ErrorIs(t, err, sink)
	require.Contains(t, err.Error(), "nv: dump")
}

func TestParseLimits(t *testing.T) {
	big := bytes.NewReader(make([]byte, nv.MaxDumpBytes+1))
	_, err := nv.Parse(big)
	require.True(t, nv.IsCode(err, nv.ErrLimitSize), "got %v", err)

	_, err = nv.Parse(strings.NewReader("NVL1"))
	require.True(t, nv.IsCode(err, nv.ErrDecode))
}

func TestEmptyListWireForm(t *testing.T) {
	b, err := nv.MustNew(nv.Both).Marshal()
	require.NoError(t, err)
	require.Equal(t, []byte{'N', 'V', 'L', '1', 0, 3, 0}, b)
}

// nestedArrayCounts builds a dump in which every level is a list holding
// one nvlist_array whose count claims half of all the bytes that follow.
// The first real element has invalid flags.
func nestedArrayCounts(levels, tail int) []byte {
	b := []byte("NVL1\x00")
	var countAt []int
	for n := 0; n < levels; n++ {
		b = append(b, 0x00, byte(nv.TypeNvListArray), 0x00, 0x01, 'a')
		countAt = append(countAt, len(b))
		b = append(b, 0, 0, 0, 0)
	}
	b = append(b, bytes.Repeat([]byte{0xff}, tail)...)
	for _, at := range countAt {
		binary.BigEndian.PutUint32(b[at:], uint32((len(b)-at-4)/2))
	}
	return b
}

func TestDecodeNestedArrayCountsStayBounded(t *testing.T) {
	in := nestedArrayCounts(nv.MaxDepth-2, 4<<20)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := nv.Unmarshal(in)
	runtime.ReadMemStats(&after)

	require.True(t, nv.IsCode(err, nv.ErrDecode), "got %v", err)
	require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(8<<20),
		"declared counts must not be allocated before elements decode")
}
