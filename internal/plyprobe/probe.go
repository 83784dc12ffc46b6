// Package plyprobe implements format detection for the two wire formats:
// uncompressed fixed-schema PLY and chunked quantized PLY.
package plyprobe

import (
	"fmt"
	"io"

	"github.com/opsiclear/gogsply/internal/codecerr"
	"github.com/opsiclear/gogsply/internal/numerics"
	"github.com/opsiclear/gogsply/internal/plyheader"
)

// Kind is the detected wire format.
type Kind int

const (
	Uncompressed Kind = iota
	Chunked
)

func (k Kind) String() string {
	if k == Chunked {
		return "chunked"
	}
	return "uncompressed"
}

// Result is the outcome of a Probe call.
type Result struct {
	Kind      Kind
	Degree    int  // valid only when HasDegree is true
	HasDegree bool // false on the chunked path: degree is not inferable from the header alone
	Header    plyheader.Header
}

// compressedVertexProperties is the fixed packed_* property schema of the
// chunked vertex element.
var compressedVertexProperties = []string{"packed_position", "packed_rotation", "packed_scale", "packed_color"}

// Probe reads up to plyheader.MaxProbeBytes from the start of r, parses the
// ASCII PLY header, and classifies the file as Uncompressed or Chunked.
func Probe(r io.Reader) (Result, error) {
	buf := make([]byte, plyheader.MaxProbeBytes)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Result{}, fmt.Errorf("plyprobe: reading header bytes: %w", err)
	}
	buf = buf[:n]

	h, err := plyheader.Parse(buf)
	if err != nil {
		return Result{}, fmt.Errorf("plyprobe: %w", err)
	}

	if chunk, ok := h.Element("chunk"); ok {
		if chunk.FloatPropertyCount() < 18 {
			return Result{}, fmt.Errorf("plyprobe: chunk element has %d float properties, want >= 18: %w", chunk.FloatPropertyCount(), codecerr.ErrHeaderMalformed)
		}
		vertex, ok := h.Element("vertex")
		if !ok {
			return Result{}, fmt.Errorf("plyprobe: chunked file missing vertex element: %w", codecerr.ErrHeaderMalformed)
		}
		if !hasUintProperties(vertex, compressedVertexProperties) {
			return Result{}, fmt.Errorf("plyprobe: vertex element does not match the compressed schema: %w", codecerr.ErrUnsupportedSchema)
		}
		return Result{Kind: Chunked, HasDegree: false, Header: h}, nil
	}

	vertex, ok := h.Element("vertex")
	if !ok {
		return Result{}, fmt.Errorf("plyprobe: no vertex element in header: %w", codecerr.ErrHeaderMalformed)
	}
	if len(h.Elements) != 1 {
		return Result{}, fmt.Errorf("plyprobe: uncompressed file must declare only a vertex element, found %d elements: %w", len(h.Elements), codecerr.ErrHeaderMalformed)
	}
	degree, ok := numerics.PropertyCountToDegree(len(vertex.Properties))
	if !ok {
		return Result{}, fmt.Errorf("plyprobe: unsupported vertex property count %d: %w", len(vertex.Properties), codecerr.ErrUnsupportedSchema)
	}
	for _, p := range vertex.Properties {
		if p.Type != "float" {
			return Result{}, fmt.Errorf("plyprobe: vertex property %q has non-float type %q: %w", p.Name, p.Type, codecerr.ErrHeaderMalformed)
		}
	}
	return Result{Kind: Uncompressed, Degree: degree, HasDegree: true, Header: h}, nil
}

func hasUintProperties(e plyheader.Element, names []string) bool {
	if len(e.Properties) != len(names) {
		return false
	}
	for i, name := range names {
		if e.Properties[i].Name != name {
			return false
		}
		if e.Properties[i].Type != "uint" && e.Properties[i].Type != "uint32" {
			return false
		}
	}
	return true
}
