package nv

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error codes.
const (
	ErrConstruction    = "ERR_CONSTRUCTION"
	ErrErrnoNotSet     = "ERR_ERRNO_NOT_SET"
	ErrInvalidList     = "ERR_INVALID_LIST"
	ErrNameTooLong     = "ERR_NAME_TOO_LONG"
	ErrDuplicateName   = "ERR_DUPLICATE_NAME"
	ErrErrno           = "ERR_ERRNO"
	ErrDecode          = "ERR_DECODE"
	ErrMalformedLength = "ERR_MALFORMED_LENGTH"
	ErrLimitDepth      = "ERR_LIMIT_DEPTH"
	ErrLimitSize       = "ERR_LIMIT_SIZE"
	ErrPath            = "ERR_PATH"
	ErrDocument        = "ERR_DOCUMENT"
)

// Error is the error type returned by this package.  Callers compare the
// Code field against the ERR_* constants, or use IsCode.
type Error struct {
	Code  string
	Msg   string
	Errno int // set for errors derived from a list's sticky errno
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	}
	return e.Code
}

func newErr(code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// IsCode reports whether err, or any error it wraps, is an *Error with
// the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// errnoError maps a sticky errno to an *Error.
func errnoError(errno int) *Error {
	switch errno {
	case 0:
		return nil
	case ENAMETOOLONG:
		return &Error{Code: ErrNameTooLong, Msg: "name exceeds MaxNameLen", Errno: errno}
	case EEXIST:
		return &Error{Code: ErrDuplicateName, Msg: "name already present", Errno: errno}
	case ENOMEM:
		return &Error{Code: ErrInvalidList, Msg: "list is invalid", Errno: errno}
	default:
		return &Error{Code: ErrErrno, Msg: fmt.Sprintf("errno %d", errno), Errno: errno}
	}
}
