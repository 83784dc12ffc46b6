package gsply

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/opsiclear/gogsply/internal/chunked"
	"github.com/opsiclear/gogsply/internal/plyprobe"
	"github.com/opsiclear/gogsply/internal/uply"
)

// Read opens path, probes its wire format, and decodes it into a Container.
func Read(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr("Read", err)
	}
	defer f.Close()
	c, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, wrapErr("Read", err)
	}
	return c, nil
}

// Write normalizes c to PLY format-state and writes it to path, using the
// chunked/quantized wire format when compressed is true and the
// uncompressed fixed-schema format otherwise.
func Write(path string, c *Container, compressed bool) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapErr("Write", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := Encode(bw, c, compressed); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return wrapErr("Write", err)
	}
	return nil
}

// Decode probes r's wire format (peeking its header) and decodes the full
// stream into a Container in PLY format-state.
func Decode(r io.Reader) (*Container, error) {
	br := bufio.NewReaderSize(r, 8192+64)
	peek, _ := br.Peek(8192)
	res, err := plyprobe.Probe(bytes.NewReader(peek))
	if err != nil {
		return nil, wrapErr("Decode", err)
	}

	switch res.Kind {
	case plyprobe.Uncompressed:
		c, err := uply.Read(br)
		return c, wrapErr("Decode", err)
	case plyprobe.Chunked:
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, wrapErr("Decode", err)
		}
		parts, err := chunked.ParseBytes(data)
		if err != nil {
			return nil, wrapErr("Decode", err)
		}
		c, err := chunked.Decode(parts)
		return c, wrapErr("Decode", err)
	default:
		return nil, wrapErr("Decode", fmt.Errorf("gsply: unrecognized probe kind %v", res.Kind))
	}
}

// Encode normalizes c to PLY format-state and writes it to w, using the
// chunked/quantized wire format when compressed is true and the
// uncompressed fixed-schema format otherwise.
func Encode(w io.Writer, c *Container, compressed bool) error {
	if compressed {
		parts, err := chunked.Encode(c)
		if err != nil {
			return wrapErr("Encode", err)
		}
		if _, err := w.Write(chunked.AssembleBytes(parts)); err != nil {
			return wrapErr("Encode", err)
		}
		return nil
	}
	norm := c.NormalizeToPLY(false)
	if err := uply.Write(w, norm); err != nil {
		return wrapErr("Encode", err)
	}
	return nil
}
