package nv

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Marshal returns the wire form of l: the dump header followed by the
// list's records in insertion order.
//
// The sticky errno is not part of the wire form.  A list carrying one
// may be missing entries, so Marshal refuses it with the errno's *Error;
// the invalid sentinel fails with ERR_INVALID_LIST.
func Marshal(l *NvList) ([]byte, error) {
	if err := l.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(l.Size())
	buf.Write(dumpHdr)
	if err := encodeList(&buf, l, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump writes the wire form of l to w.  A write failure is returned
// wrapped; Dump never retries.
func Dump(l *NvList, w io.Writer) error {
	b, err := Marshal(l)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return errors.Wrap(err, "nv: dump")
	}
	return nil
}

// Unmarshal parses a complete dump.  Trailing bytes are an error.  No
// partially decoded list is ever returned.
func Unmarshal(b []byte) (*NvList, error) {
	if !bytes.HasPrefix(b, dumpHdr) {
		return nil, newErr(ErrDecode, "bad dump header")
	}
	l, end, err := decodeList(b, len(dumpHdr), 0)
	if err != nil {
		return nil, err
	}
	if end != len(b) {
		return nil, newErr(ErrDecode, "trailing bytes after list")
	}
	return l, nil
}

// Parse reads r to EOF and parses the dump.  At most MaxDumpBytes are
// read; longer input fails with ERR_LIMIT_SIZE.
func Parse(r io.Reader) (*NvList, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxDumpBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "nv: parse")
	}
	if len(b) > MaxDumpBytes {
		return nil, newErr(ErrLimitSize, "dump exceeds MaxDumpBytes")
	}
	return Unmarshal(b)
}

// Marshal is shorthand for Marshal(l).
func (l *NvList) Marshal() ([]byte, error) {
	return Marshal(l)
}

// Dump is shorthand for Dump(l, w).
func (l *NvList) Dump(w io.Writer) error {
	return Dump(l, w)
}
