// Package codecerr holds the sentinel errors that classify codec failures
// into a closed taxonomy. Internal packages wrap their errors with these
// sentinels via fmt.Errorf("...: %w", codecerr.ErrX); the root package
// matches on them with errors.Is to attach the public ErrorKind.
package codecerr

import "errors"

var (
	// ErrHeaderMalformed: missing magic, wrong format line, missing
	// required elements, non-float property where float is required.
	ErrHeaderMalformed = errors.New("header malformed")

	// ErrUnsupportedSchema: property count not in {14,23,38,59}; K not in
	// {0,9,24,45}.
	ErrUnsupportedSchema = errors.New("unsupported schema")

	// ErrSizeMismatch: declared N or C inconsistent with payload length.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrDomain: container field length mismatch, unknown mask-layer
	// name, invalid degree hint.
	ErrDomain = errors.New("domain error")

	// ErrState: write requested while container format-state is not PLY
	// after normalization attempt.
	ErrState = errors.New("state error")
)
