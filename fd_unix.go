//go:build unix

package nv

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// writeFD is unix.Write; tests replace it to simulate short writes.
var writeFD = unix.Write

// DumpFD writes l's dump to the raw file descriptor fd, for callers that
// hold a descriptor rather than an *os.File (for example one received
// over a unix socket).  Interrupted writes are resumed; any other
// failure, including a write that makes no progress, is returned
// wrapped.  fd is not closed.
func DumpFD(l *NvList, fd int) error {
	b, err := Marshal(l)
	if err != nil {
		return err
	}
	for len(b) > 0 {
		n, err := writeFD(fd, b)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "nv: dump to fd %d", fd)
		}
		if n == 0 {
			return errors.Wrapf(io.ErrShortWrite, "nv: dump to fd %d", fd)
		}
		b = b[n:]
	}
	return nil
}

// ParseFD reads fd until EOF and parses the dump.  fd is not closed.
func ParseFD(fd int) (*NvList, error) {
	var b []byte
	chunk := make([]byte, 32<<10)
	for {
		n, err := unix.Read(fd, chunk)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "nv: parse from fd %d", fd)
		}
		if n == 0 {
			break
		}
		if len(b)+n > MaxDumpBytes {
			return nil, newErr(ErrLimitSize, "dump exceeds MaxDumpBytes")
		}
		b = append(b, chunk[:n]...)
	}
	return Unmarshal(b)
}
