// Package uply implements the uncompressed, fixed-schema binary PLY codec:
// header parse, zero-copy bulk load of the vertex block, and
// header+record-block emission.
package uply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/opsiclear/gogsply/internal/codecerr"
	"github.com/opsiclear/gogsply/internal/gscontainer"
	"github.com/opsiclear/gogsply/internal/numerics"
	"github.com/opsiclear/gogsply/internal/parallel"
	"github.com/opsiclear/gogsply/internal/plyheader"
)

// WriteBufSize is the minimum output buffer size used when writing, chosen
// to amortize syscall overhead across large point clouds.
const WriteBufSize = 2 << 20 // 2 MiB

// Read parses an uncompressed PLY stream and returns its contents as a
// Container in PLY format-state with a fresh backing buffer.
func Read(r io.Reader) (*gscontainer.Container, error) {
	br := bufio.NewReaderSize(r, plyheader.MaxProbeBytes+64)
	peek, _ := br.Peek(plyheader.MaxProbeBytes)

	h, err := plyheader.Parse(peek)
	if err != nil {
		return nil, fmt.Errorf("uply: %w", err)
	}
	if _, err := br.Discard(h.Len); err != nil {
		return nil, fmt.Errorf("uply: advancing past header: %w", err)
	}

	vertex, ok := h.Element("vertex")
	if !ok {
		return nil, fmt.Errorf("uply: missing vertex element: %w", codecerr.ErrHeaderMalformed)
	}
	if len(h.Elements) != 1 {
		return nil, fmt.Errorf("uply: expected a single vertex element, found %d: %w", len(h.Elements), codecerr.ErrHeaderMalformed)
	}
	p := len(vertex.Properties)
	degree, ok := numerics.PropertyCountToDegree(p)
	if !ok {
		return nil, fmt.Errorf("uply: unsupported vertex property count %d: %w", p, codecerr.ErrUnsupportedSchema)
	}
	for _, prop := range vertex.Properties {
		if prop.Type != "float" {
			return nil, fmt.Errorf("uply: property %q has non-float type %q: %w", prop.Name, prop.Type, codecerr.ErrHeaderMalformed)
		}
	}

	n := vertex.Count
	recordBytes := n * p * 4
	raw := make([]byte, recordBytes)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("uply: reading vertex block (want %d bytes): %w: %w", recordBytes, err, codecerr.ErrSizeMismatch)
	}

	floats := make([]float32, n*p)
	parallel.Range(len(floats), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
			floats[i] = math.Float32frombits(bits)
		}
	})

	c, err := gscontainer.FromBase(floats, n, degree)
	if err != nil {
		return nil, fmt.Errorf("uply: %w", err)
	}
	return c, nil
}

// propertyNames returns the canonical property name list for degree, in
// on-wire order.
func propertyNames(degree int) []string {
	k, _ := numerics.DegreeToBands(degree)
	names := []string{"x", "y", "z", "f_dc_0", "f_dc_1", "f_dc_2"}
	for i := 0; i < 3*k; i++ {
		names = append(names, fmt.Sprintf("f_rest_%d", i))
	}
	names = append(names, "opacity", "scale_0", "scale_1", "scale_2", "rot_0", "rot_1", "rot_2", "rot_3")
	return names
}

func buildHeader(degree, n int) []byte {
	b := plyheader.NewBuilder()
	b.Element("vertex", n)
	for _, name := range propertyNames(degree) {
		b.Property("float", name)
	}
	return b.Bytes()
}

// Write emits c to w in the uncompressed wire format. c must be in PLY
// format-state (log scales, logit opacities, SH sh0); callers normalize
// before calling Write.
func Write(w io.Writer, c *gscontainer.Container) error {
	if !c.Format.IsPLY() {
		return fmt.Errorf("uply: container is not in PLY format-state: %w", codecerr.ErrState)
	}
	degree := c.Degree
	p, ok := numerics.DegreeToPropertyCount(degree)
	if !ok {
		return fmt.Errorf("uply: invalid degree %d: %w", degree, codecerr.ErrUnsupportedSchema)
	}
	n := c.N

	bw := bufio.NewWriterSize(w, WriteBufSize)
	header := buildHeader(degree, n)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("uply: writing header: %w", err)
	}

	shRestWidth := (p - 14)
	raw := make([]byte, n*p*4)
	means := c.Means.ToContiguous()
	sh0 := c.SH0.ToContiguous()
	var shN []float32
	if shRestWidth > 0 {
		shN = c.SHN.ToContiguous()
	}
	opacities := c.Opacities.ToContiguous()
	scales := c.Scales.ToContiguous()
	quats := c.Quats

	parallel.Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			base := i * p * 4
			col := 0
			put := func(v float32) {
				binary.LittleEndian.PutUint32(raw[base+col*4:base+col*4+4], math.Float32bits(v))
				col++
			}
			put(means[i*3])
			put(means[i*3+1])
			put(means[i*3+2])
			put(sh0[i*3])
			put(sh0[i*3+1])
			put(sh0[i*3+2])
			for j := 0; j < shRestWidth; j++ {
				put(shN[i*shRestWidth+j])
			}
			put(opacities[i])
			put(scales[i*3])
			put(scales[i*3+1])
			put(scales[i*3+2])
			// container order is w,x,y,z; wire order is x,y,z,w.
			w, x, y, z := quats[i*4], quats[i*4+1], quats[i*4+2], quats[i*4+3]
			put(x)
			put(y)
			put(z)
			put(w)
		}
	})

	if _, err := bw.Write(raw); err != nil {
		return fmt.Errorf("uply: writing vertex block: %w", err)
	}
	return bw.Flush()
}
