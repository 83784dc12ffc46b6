package gsply

import (
	"errors"
	"fmt"

	"github.com/opsiclear/gogsply/internal/codecerr"
)

// ErrorKind classifies a gsply.Error into a closed taxonomy of failure
// modes callers can switch on.
type ErrorKind int

const (
	// KindIO covers failures reading from or writing to the underlying
	// io.Reader/io.Writer or file.
	KindIO ErrorKind = iota
	// KindHeaderMalformed covers PLY ASCII header parse failures: missing
	// magic, wrong format line, missing required elements.
	KindHeaderMalformed
	// KindUnsupportedSchema covers a property count or SH band count
	// outside the set this codec recognizes.
	KindUnsupportedSchema
	// KindSizeMismatch covers a declared count inconsistent with the
	// payload actually present.
	KindSizeMismatch
	// KindDomain covers container-level invariant violations: mismatched
	// field lengths, unknown or duplicate mask-layer names.
	KindDomain
	// KindState covers an operation requested while the container's
	// format-state doesn't support it (e.g. writing PLY from a container
	// still in linear/RGB state after a failed normalize).
	KindState
)

// String returns the taxonomy name used in error messages.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindHeaderMalformed:
		return "header_malformed"
	case KindUnsupportedSchema:
		return "unsupported_schema"
	case KindSizeMismatch:
		return "size_mismatch"
	case KindDomain:
		return "domain"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is the public error type returned across gsply's package boundary:
// every error an exported function returns either is, or wraps, one of
// these. Kind is derived automatically from the internal codecerr sentinel
// the wrapped error carries, falling back to KindIO when none is found.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gsply: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// kindOf classifies err by matching it against the internal codecerr
// sentinels with errors.Is; an err that matches none of them is assumed to
// be a raw I/O failure from the underlying reader/writer.
func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, codecerr.ErrHeaderMalformed):
		return KindHeaderMalformed
	case errors.Is(err, codecerr.ErrUnsupportedSchema):
		return KindUnsupportedSchema
	case errors.Is(err, codecerr.ErrSizeMismatch):
		return KindSizeMismatch
	case errors.Is(err, codecerr.ErrDomain):
		return KindDomain
	case errors.Is(err, codecerr.ErrState):
		return KindState
	default:
		return KindIO
	}
}

// wrapErr wraps err (if non-nil) as an *Error tagged with op and the kind
// inferred from its wrapped codecerr sentinel, if any.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}
