package gsply

import (
	"github.com/opsiclear/gogsply/internal/chunked"
)

// CompressToBytes normalizes c to PLY format-state, chunk-encodes it, and
// returns the complete assembled chunked-PLY byte sequence (header, bounds,
// packed, and sh blocks concatenated).
func CompressToBytes(c *Container) ([]byte, error) {
	parts, err := chunked.Encode(c)
	if err != nil {
		return nil, wrapErr("CompressToBytes", err)
	}
	return chunked.AssembleBytes(parts), nil
}

// CompressToParts is the decomposed form of CompressToBytes: it returns the
// ASCII header and the three binary blocks separately instead of
// concatenating them, for callers that want to store or transmit them
// independently (e.g. a GPU upload path that wants bounds and packed as
// distinct buffers).
func CompressToParts(c *Container) (header []byte, bounds []float32, packed []uint32, sh []byte, err error) {
	parts, perr := chunked.Encode(c)
	if perr != nil {
		return nil, nil, nil, nil, wrapErr("CompressToParts", perr)
	}
	return parts.Header, parts.Bounds, parts.Packed, parts.SH, nil
}

// DecompressFromBytes is the inverse of CompressToBytes: it parses a
// complete chunked-PLY byte sequence and decodes it into a Container in PLY
// format-state.
func DecompressFromBytes(data []byte) (*Container, error) {
	parts, err := chunked.ParseBytes(data)
	if err != nil {
		return nil, wrapErr("DecompressFromBytes", err)
	}
	c, err := chunked.Decode(parts)
	if err != nil {
		return nil, wrapErr("DecompressFromBytes", err)
	}
	return c, nil
}
