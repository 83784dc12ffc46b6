package uply

import (
	"bytes"
	"errors"
	"testing"

	"github.com/opsiclear/gogsply/internal/codecerr"
	"github.com/opsiclear/gogsply/internal/gscontainer"
)

func buildContainer(t *testing.T, n, degree int) *gscontainer.Container {
	t.Helper()
	shWidth, _ := numericsBands(degree)
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
		means[i*3], means[i*3+1], means[i*3+2] = float32(i), float32(i)*2, float32(i)*3
		scales[i*3], scales[i*3+1], scales[i*3+2] = -1, -2, -3
		quats[i*4] = 1 // w=1, x=y=z=0
		opacities[i] = 0.1 * float32(i%10)
		sh0[i*3], sh0[i*3+1], sh0[i*3+2] = 0.1, 0.2, 0.3
		for j := 0; j < shWidth; j++ {
			shN[i*shWidth+j] = float32(j) * 0.01
		}
	}
	c, err := gscontainer.FromArrays(means, scales, quats, opacities, sh0, shN, gscontainer.PLYFormatState())
	if err != nil {
		t.Fatalf("FromArrays: %v", err)
	}
	return c
}

func numericsBands(degree int) (int, bool) {
	switch degree {
	case 0:
		return 0, true
	case 1:
		return 9 * 3, true
	case 2:
		return 24 * 3, true
	case 3:
		return 45 * 3, true
	}
	return 0, false
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, degree := range []int{0, 1, 2, 3} {
		c := buildContainer(t, 17, degree)
		var buf bytes.Buffer
		if err := Write(&buf, c); err != nil {
			t.Fatalf("degree %d: Write: %v", degree, err)
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("degree %d: Read: %v", degree, err)
		}
		if got.N != c.N || got.Degree != c.Degree {
			t.Fatalf("degree %d: N=%d Degree=%d, want %d %d", degree, got.N, got.Degree, c.N, c.Degree)
		}
		for i := 0; i < c.N; i++ {
			for k := 0; k < 3; k++ {
				if got.Means.At(i, k) != c.Means.At(i, k) {
					t.Errorf("degree %d: Means[%d][%d] = %v, want %v", degree, i, k, got.Means.At(i, k), c.Means.At(i, k))
				}
			}
			for k := 0; k < 4; k++ {
				if got.Quats[i*4+k] != c.Quats[i*4+k] {
					t.Errorf("degree %d: Quats[%d][%d] = %v, want %v", degree, i, k, got.Quats[i*4+k], c.Quats[i*4+k])
				}
			}
		}
	}
}

func TestWriteRejectsNonPLYState(t *testing.T) {
	c := buildContainer(t, 3, 0)
	c.Format = gscontainer.LinearFormatState()
	var buf bytes.Buffer
	err := Write(&buf, c)
	if !errors.Is(err, codecerr.ErrState) {
		t.Errorf("err = %v, want ErrState", err)
	}
}

func TestReadTruncatedVertexBlock(t *testing.T) {
	c := buildContainer(t, 5, 0)
	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-4]
	_, err := Read(bytes.NewReader(truncated))
	if err == nil {
		t.Fatal("Read should fail on truncated vertex block")
	}
}

func TestReadRejectsWrongElementCount(t *testing.T) {
	// Build a header with two elements, which the uncompressed codec forbids.
	data := []byte("ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty float x\nelement other 1\nproperty float y\nend_header\n")
	data = append(data, make([]byte, 4+4)...)
	_, err := Read(bytes.NewReader(data))
	if !errors.Is(err, codecerr.ErrHeaderMalformed) {
		t.Errorf("err = %v, want ErrHeaderMalformed", err)
	}
}
