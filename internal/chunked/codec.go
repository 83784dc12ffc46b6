// Package chunked implements the chunked, quantized PLY codec compatible
// with the PlayCanvas SuperSplat encoding: chunking, per-chunk bounds,
// Morton+radix spatial sort, parallel bit-packing, and SH quantization,
// plus the byte-level assembly/parsing of a complete chunked file.
package chunked

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/opsiclear/gogsply/internal/codecerr"
	"github.com/opsiclear/gogsply/internal/gscontainer"
	"github.com/opsiclear/gogsply/internal/numerics"
	"github.com/opsiclear/gogsply/internal/parallel"
	"github.com/opsiclear/gogsply/internal/plyheader"
)

// boundsPropertyNames is the on-wire column order of the 18 "chunk"
// element bounds floats.
var boundsPropertyNames = []string{
	"min_x", "min_y", "min_z", "max_x", "max_y", "max_z",
	"min_scale_x", "min_scale_y", "min_scale_z", "max_scale_x", "max_scale_y", "max_scale_z",
	"min_r", "min_g", "min_b", "max_r", "max_g", "max_b",
}

var packedPropertyNames = []string{"packed_position", "packed_rotation", "packed_scale", "packed_color"}

// Parts is the decomposed form of a chunked file: the ASCII header and the
// two (or three, with SH) binary blocks produced by CompressToParts.
type Parts struct {
	Header       []byte
	Bounds       []float32 // numChunks*18
	Packed       []uint32  // N*4, order: packed_position, packed_rotation, packed_scale, packed_color
	SH           []byte    // N*3K, empty when Degree == 0
	SHMin, SHMax float32
	N, Degree    int
}

func buildHeader(n, numChunks, degree int, shMin, shMax float32) []byte {
	b := plyheader.NewBuilder()
	b.Element("chunk", numChunks)
	for _, name := range boundsPropertyNames {
		b.Property("float", name)
	}
	b.Element("vertex", n)
	for _, name := range packedPropertyNames {
		b.Property("uint", name)
	}
	if degree > 0 {
		k, _ := numerics.DegreeToBands(degree)
		b.Element("sh", n)
		for i := 0; i < 3*k; i++ {
			b.Property("uchar", fmt.Sprintf("f_rest_%d", i))
		}
		b.Comment(fmt.Sprintf("shRange %s %s", formatFloat(shMin), formatFloat(shMax)))
	}
	return b.Bytes()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', 9, 32)
}

// Encode runs the encoder state machine (validate, normalize to PLY state,
// global bounds, Morton+radix sort, per-chunk bounds, parallel pack, SH
// quantization) and returns the assembled parts.
func Encode(c *gscontainer.Container) (*Parts, error) {
	if c == nil {
		return nil, fmt.Errorf("chunked: nil container: %w", codecerr.ErrDomain)
	}
	norm := c.NormalizeToPLY(false)
	n := norm.N
	degree := norm.Degree

	if n == 0 {
		return &Parts{Header: buildHeader(0, 0, degree, 0, 0), N: 0, Degree: degree}, nil
	}

	means := norm.Means.ToContiguous()
	scales := norm.Scales.ToContiguous()
	sh0 := norm.SH0.ToContiguous()
	opacities := norm.Opacities.ToContiguous()
	quats := norm.Quats
	var shN []float32
	shWidth := 0
	if degree > 0 {
		shN = norm.SHN.ToContiguous()
		shWidth = len(shN) / n
	}

	gmin, gmax := GlobalBounds(means, n)
	order := SortByPosition(means, n, gmin, gmax)
	bounds := ComputeChunkBounds(means, scales, sh0, order)
	numChunks := len(bounds)

	packed := make([]uint32, n*4)
	parallel.Range(n, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			i := order[r]
			b := bounds[r/ChunkSize]

			px, py, pz := means[i*3], means[i*3+1], means[i*3+2]
			packed[r*4+0] = PackPosition(px, py, pz, b.MinPos, b.MaxPos)

			sx, sy, sz := scales[i*3], scales[i*3+1], scales[i*3+2]
			packed[r*4+2] = PackScale(sx, sy, sz, b.MinScale, b.MaxScale)

			rc := numerics.SH2RGB(sh0[i*3])
			gc := numerics.SH2RGB(sh0[i*3+1])
			bc := numerics.SH2RGB(sh0[i*3+2])
			opLinear := numerics.Sigmoid(opacities[i])
			packed[r*4+3] = PackColor(rc, gc, bc, opLinear, b.MinColor, b.MaxColor)

			qw, qx, qy, qz := quats[i*4], quats[i*4+1], quats[i*4+2], quats[i*4+3]
			packed[r*4+1] = PackRotation(qw, qx, qy, qz)
		}
	})

	var shBytes []byte
	var shMin, shMax float32
	if degree > 0 {
		reordered := make([]float32, n*shWidth)
		for r := 0; r < n; r++ {
			i := order[r]
			copy(reordered[r*shWidth:(r+1)*shWidth], shN[i*shWidth:(i+1)*shWidth])
		}
		shMin, shMax = GlobalSHRange(reordered)
		shBytes = QuantizeSH(reordered, shMin, shMax)
	}

	boundsFlat := make([]float32, numChunks*18)
	for ci, b := range bounds {
		b.Flatten(boundsFlat[ci*18 : (ci+1)*18])
	}

	return &Parts{
		Header: buildHeader(n, numChunks, degree, shMin, shMax),
		Bounds: boundsFlat,
		Packed: packed,
		SH:     shBytes,
		SHMin:  shMin,
		SHMax:  shMax,
		N:      n,
		Degree: degree,
	}, nil
}

// Decode inverts Encode: for every point, reverses the bit-packing using
// its chunk's bounds, reconstructs the dropped quaternion component,
// unpacks opacity from the color word back into logit form, and
// dequantizes SH-rest from the recorded global range. Returns a container
// in PLY format-state whose fields are freshly allocated, contiguous
// per-field arrays; its Backing is nil (no single shared allocation).
func Decode(p *Parts) (*gscontainer.Container, error) {
	n := p.N
	degree := p.Degree
	if n == 0 {
		return gscontainer.NewEmpty(degree, gscontainer.PLYFormatState())
	}
	if len(p.Packed) != n*4 {
		return nil, fmt.Errorf("chunked: packed block has %d uint32s, want %d: %w", len(p.Packed), n*4, codecerr.ErrSizeMismatch)
	}
	if len(p.Bounds)%18 != 0 {
		return nil, fmt.Errorf("chunked: bounds block length %d is not a multiple of 18: %w", len(p.Bounds), codecerr.ErrSizeMismatch)
	}
	numChunks := len(p.Bounds) / 18
	wantChunks := (n + ChunkSize - 1) / ChunkSize
	if numChunks != wantChunks {
		return nil, fmt.Errorf("chunked: header declares %d chunks, payload implies %d: %w", numChunks, wantChunks, codecerr.ErrSizeMismatch)
	}
	bounds := make([]ChunkBounds, numChunks)
	for ci := range bounds {
		bounds[ci] = ParseChunkBounds(p.Bounds[ci*18 : (ci+1)*18])
	}

	means := make([]float32, n*3)
	scales := make([]float32, n*3)
	sh0 := make([]float32, n*3)
	opacities := make([]float32, n)
	quats := make([]float32, n*4)
	eps := numerics.DefaultDeactivateParams().Eps

	parallel.Range(n, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			b := bounds[r/ChunkSize]
			pos, rot, scale, color := p.Packed[r*4+0], p.Packed[r*4+1], p.Packed[r*4+2], p.Packed[r*4+3]

			x, y, z := UnpackPosition(pos, b.MinPos, b.MaxPos)
			means[r*3], means[r*3+1], means[r*3+2] = x, y, z

			sx, sy, sz := UnpackScale(scale, b.MinScale, b.MaxScale)
			scales[r*3], scales[r*3+1], scales[r*3+2] = sx, sy, sz

			rr, gg, bb, opLinear := UnpackColor(color, b.MinColor, b.MaxColor)
			sh0[r*3] = numerics.RGB2SH(rr)
			sh0[r*3+1] = numerics.RGB2SH(gg)
			sh0[r*3+2] = numerics.RGB2SH(bb)
			opacities[r] = numerics.Logit(opLinear, eps)

			w, x2, y2, z2 := UnpackRotation(rot)
			quats[r*4], quats[r*4+1], quats[r*4+2], quats[r*4+3] = w, x2, y2, z2
		}
	})

	var shN []float32
	if degree > 0 {
		k, _ := numerics.DegreeToBands(degree)
		want := n * 3 * k
		if len(p.SH) != want {
			return nil, fmt.Errorf("chunked: sh block has %d bytes, want %d: %w", len(p.SH), want, codecerr.ErrSizeMismatch)
		}
		shN = DequantizeSH(p.SH, p.SHMin, p.SHMax)
	}

	return gscontainer.FromArrays(means, scales, quats, opacities, sh0, shN, gscontainer.PLYFormatState())
}

// AssembleBytes concatenates header|bounds|packed|sh into one complete
// chunked-file byte sequence (little-endian).
func AssembleBytes(p *Parts) []byte {
	total := len(p.Header) + len(p.Bounds)*4 + len(p.Packed)*4 + len(p.SH)
	out := make([]byte, total)
	off := copy(out, p.Header)
	for _, f := range p.Bounds {
		binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(f))
		off += 4
	}
	for _, v := range p.Packed {
		binary.LittleEndian.PutUint32(out[off:off+4], v)
		off += 4
	}
	copy(out[off:], p.SH)
	return out
}

// ParseBytes is the inverse of AssembleBytes: parses the header to recover
// N, Degree, and the SH global range, then slices out the bounds, packed,
// and sh binary blocks.
func ParseBytes(data []byte) (*Parts, error) {
	probeLen := len(data)
	if probeLen > plyheader.MaxProbeBytes {
		probeLen = plyheader.MaxProbeBytes
	}
	h, err := plyheader.Parse(data[:probeLen])
	if err != nil {
		return nil, fmt.Errorf("chunked: %w", err)
	}

	chunkEl, ok := h.Element("chunk")
	if !ok {
		return nil, fmt.Errorf("chunked: missing chunk element: %w", codecerr.ErrHeaderMalformed)
	}
	if chunkEl.FloatPropertyCount() != 18 {
		return nil, fmt.Errorf("chunked: chunk element has %d float properties, want 18: %w", chunkEl.FloatPropertyCount(), codecerr.ErrHeaderMalformed)
	}
	vertexEl, ok := h.Element("vertex")
	if !ok {
		return nil, fmt.Errorf("chunked: missing vertex element: %w", codecerr.ErrHeaderMalformed)
	}
	n := vertexEl.Count
	numChunks := chunkEl.Count

	degree := 0
	var shMin, shMax float32
	var shEl plyheader.Element
	hasSH := false
	if el, ok := h.Element("sh"); ok {
		hasSH = true
		shEl = el
		k3 := len(el.Properties)
		if k3%3 != 0 {
			return nil, fmt.Errorf("chunked: sh element has %d properties, not a multiple of 3: %w", k3, codecerr.ErrUnsupportedSchema)
		}
		d, ok := numerics.BandsToDegree(k3 / 3)
		if !ok {
			return nil, fmt.Errorf("chunked: sh element band count %d is not a supported degree: %w", k3/3, codecerr.ErrUnsupportedSchema)
		}
		degree = d
		shMin, shMax, err = parseSHRangeComment(shEl.Comments)
		if err != nil {
			return nil, fmt.Errorf("chunked: %w", err)
		}
	}

	off := h.Len
	boundsBytes := numChunks * 18 * 4
	if off+boundsBytes > len(data) {
		return nil, fmt.Errorf("chunked: truncated bounds block: need %d bytes after header, have %d: %w", boundsBytes, len(data)-off, codecerr.ErrSizeMismatch)
	}
	bounds := make([]float32, numChunks*18)
	for i := range bounds {
		bounds[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}

	packedBytes := n * 4 * 4
	if off+packedBytes > len(data) {
		return nil, fmt.Errorf("chunked: truncated packed block: need %d bytes after bounds, have %d: %w", packedBytes, len(data)-off, codecerr.ErrSizeMismatch)
	}
	packed := make([]uint32, n*4)
	for i := range packed {
		packed[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}

	var sh []byte
	if hasSH {
		shBytes := n * len(shEl.Properties)
		if off+shBytes > len(data) {
			return nil, fmt.Errorf("chunked: truncated sh block: need %d bytes, have %d: %w", shBytes, len(data)-off, codecerr.ErrSizeMismatch)
		}
		sh = append([]byte(nil), data[off:off+shBytes]...)
		off += shBytes
	}

	return &Parts{
		Header: append([]byte(nil), data[:h.Len]...),
		Bounds: bounds, Packed: packed, SH: sh,
		SHMin: shMin, SHMax: shMax, N: n, Degree: degree,
	}, nil
}

func parseSHRangeComment(comments []string) (min, max float32, err error) {
	for _, c := range comments {
		if !strings.HasPrefix(c, "shRange ") {
			continue
		}
		fields := strings.Fields(c)
		if len(fields) != 3 {
			return 0, 0, fmt.Errorf("malformed shRange comment %q: %w", c, codecerr.ErrHeaderMalformed)
		}
		lo, err1 := strconv.ParseFloat(fields[1], 32)
		hi, err2 := strconv.ParseFloat(fields[2], 32)
		if err1 != nil || err2 != nil {
			return 0, 0, fmt.Errorf("malformed shRange comment %q: %w", c, codecerr.ErrHeaderMalformed)
		}
		return float32(lo), float32(hi), nil
	}
	return 0, 0, fmt.Errorf("sh element missing required shRange comment: %w", codecerr.ErrHeaderMalformed)
}
