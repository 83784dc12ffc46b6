package chunked

import (
	"errors"
	"math"
	"testing"

	"github.com/opsiclear/gogsply/internal/codecerr"
	"github.com/opsiclear/gogsply/internal/gscontainer"
	"github.com/opsiclear/gogsply/internal/numerics"
)

func shBandsFor(degree int) int {
	k, _ := numerics.DegreeToBands(degree)
	return 3 * k
}

func buildContainer(t *testing.T, n, degree int) *gscontainer.Container {
	t.Helper()
	shWidth := shBandsFor(degree)
	if n == 0 {
		// FromArrays cannot carry a degree for an empty cloud.
		c, err := gscontainer.NewEmpty(degree, gscontainer.PLYFormatState())
		if err != nil {
			t.Fatalf("NewEmpty: %v", err)
		}
		return c
	}
	means := make([]float32, n*3)
	scales := make([]float32, n*3)
	quats := make([]float32, n*4)
	opacities := make([]float32, n)
	sh0 := make([]float32, n*3)
	var shN []float32
	if shWidth > 0 {
		shN = make([]float32, n*shWidth)
	}
	for i := 0; i < n; i++ {
		means[i*3] = float32(i) * 0.37
		means[i*3+1] = float32(i%7) * -1.1
		means[i*3+2] = float32(i%13) * 2.3
		scales[i*3], scales[i*3+1], scales[i*3+2] = -2.1, -1.5, -3.2
		quats[i*4] = 1
		opacities[i] = -1 + float32(i%5)*0.5
		sh0[i*3], sh0[i*3+1], sh0[i*3+2] = 0.1, -0.2, 0.3
		for j := 0; j < shWidth; j++ {
			shN[i*shWidth+j] = float32((i+j)%10) * 0.07
		}
	}
	c, err := gscontainer.FromArrays(means, scales, quats, opacities, sh0, shN, gscontainer.PLYFormatState())
	if err != nil {
		t.Fatalf("FromArrays: %v", err)
	}
	return c
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, ChunkSize, ChunkSize + 1, 2*ChunkSize + 5} {
		for _, degree := range []int{0, 2} {
			c := buildContainer(t, n, degree)
			parts, err := Encode(c)
			if err != nil {
				t.Fatalf("n=%d degree=%d: Encode: %v", n, degree, err)
			}
			out, err := Decode(parts)
			if err != nil {
				t.Fatalf("n=%d degree=%d: Decode: %v", n, degree, err)
			}
			if out.N != n || out.Degree != degree {
				t.Fatalf("n=%d degree=%d: got N=%d Degree=%d", n, degree, out.N, out.Degree)
			}
			if n == 0 {
				continue
			}
			// Encode stores points in Morton order, so decoded row 0 is
			// input point order[0]. Its x survives within half an 11-bit
			// quantization step of chunk 0's x range.
			means := c.Means.ToContiguous()
			gmin, gmax := GlobalBounds(means, n)
			order := SortByPosition(means, n, gmin, gmax)
			b := ParseChunkBounds(parts.Bounds[0:18])
			tol := float64(b.MaxPos[0]-b.MinPos[0])/2047/2 + 1e-5
			gotX := out.Means.At(0, 0)
			wantX := c.Means.At(order[0], 0)
			if math.Abs(float64(gotX-wantX)) > tol {
				t.Errorf("n=%d degree=%d: means[0][0] = %v, want ~%v", n, degree, gotX, wantX)
			}
		}
	}
}

func TestEncodeDecodeDegenerateAxisReconstructsExactly(t *testing.T) {
	n := 4
	means := make([]float32, n*3)
	scales := make([]float32, n*3)
	quats := make([]float32, n*4)
	opacities := make([]float32, n)
	sh0 := make([]float32, n*3)
	for i := 0; i < n; i++ {
		means[i*3], means[i*3+1], means[i*3+2] = 5, 5, 5
		scales[i*3], scales[i*3+1], scales[i*3+2] = -2, -2, -2
		quats[i*4] = 1
		sh0[i*3], sh0[i*3+1], sh0[i*3+2] = 0.1, 0.1, 0.1
	}
	c, err := gscontainer.FromArrays(means, scales, quats, opacities, sh0, nil, gscontainer.PLYFormatState())
	if err != nil {
		t.Fatalf("FromArrays: %v", err)
	}
	parts, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(parts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			if out.Means.At(i, k) != 5 {
				t.Errorf("point %d means[%d] = %v, want exactly 5", i, k, out.Means.At(i, k))
			}
			if out.Scales.At(i, k) != -2 {
				t.Errorf("point %d scales[%d] = %v, want exactly -2", i, k, out.Scales.At(i, k))
			}
		}
	}
}

func TestAssembleParseBytesRoundTrip(t *testing.T) {
	c := buildContainer(t, ChunkSize+10, 1)
	parts, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := AssembleBytes(parts)
	got, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if got.N != parts.N || got.Degree != parts.Degree {
		t.Fatalf("N=%d Degree=%d, want %d %d", got.N, got.Degree, parts.N, parts.Degree)
	}
	if got.SHMin != parts.SHMin || got.SHMax != parts.SHMax {
		t.Errorf("SHMin/Max = %v/%v, want %v/%v", got.SHMin, got.SHMax, parts.SHMin, parts.SHMax)
	}
	if len(got.Bounds) != len(parts.Bounds) || len(got.Packed) != len(parts.Packed) || len(got.SH) != len(parts.SH) {
		t.Fatalf("block lengths differ: bounds %d/%d packed %d/%d sh %d/%d",
			len(got.Bounds), len(parts.Bounds), len(got.Packed), len(parts.Packed), len(got.SH), len(parts.SH))
	}
	for i := range parts.Packed {
		if got.Packed[i] != parts.Packed[i] {
			t.Fatalf("Packed[%d] = %d, want %d", i, got.Packed[i], parts.Packed[i])
		}
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	c := buildContainer(t, 10, 0)
	parts, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parts.Packed = parts.Packed[:len(parts.Packed)-4]
	_, err = Decode(parts)
	if !errors.Is(err, codecerr.ErrSizeMismatch) {
		t.Errorf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestParseBytesTruncated(t *testing.T) {
	c := buildContainer(t, 10, 0)
	parts, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := AssembleBytes(parts)
	_, err = ParseBytes(data[:len(data)-8])
	if !errors.Is(err, codecerr.ErrSizeMismatch) {
		t.Errorf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestParseBytesMissingSHRangeComment(t *testing.T) {
	c := buildContainer(t, 5, 1)
	parts, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	strippedHeader := stripShRangeComment(parts.Header)
	data := make([]byte, 0, len(strippedHeader)+len(parts.Bounds)*4+len(parts.Packed)*4+len(parts.SH))
	data = append(data, strippedHeader...)
	data = append(data, AssembleBytes(parts)[len(parts.Header):]...)
	_, err = ParseBytes(data)
	if !errors.Is(err, codecerr.ErrHeaderMalformed) {
		t.Errorf("err = %v, want ErrHeaderMalformed", err)
	}
}

// stripShRangeComment removes the "comment shRange ..." line from an ASCII
// PLY header, leaving every other line and the header's exact byte length
// otherwise free to change (ParseBytes re-derives it from "end_header").
func stripShRangeComment(header []byte) []byte {
	lines := make([][]byte, 0)
	start := 0
	for i := 0; i < len(header); i++ {
		if header[i] == '\n' {
			lines = append(lines, header[start:i])
			start = i + 1
		}
	}
	out := make([]byte, 0, len(header))
	for _, line := range lines {
		if len(line) >= 16 && string(line[:16]) == "comment shRange " {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}
