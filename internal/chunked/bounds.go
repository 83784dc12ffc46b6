package chunked

import "github.com/opsiclear/gogsply/internal/numerics"

// ChunkSize is the number of consecutive (post-sort) points sharing one
// set of quantization bounds.
const ChunkSize = 256

// BoundsEpsilon is the nudge applied to a chunk axis whose min equals its
// max. In float32 it keeps the quantization interval strictly positive for
// values of magnitude up to 32; above that, min - BoundsEpsilon rounds back
// to min and the interval stays empty.
const BoundsEpsilon = 1e-6

// ChunkBounds is the 18 floats of per-chunk quantization bounds stored in
// the "chunk" PLY element: min/max for position, scale, and sh0-as-RGB.
type ChunkBounds struct {
	MinPos, MaxPos     [3]float32
	MinScale, MaxScale [3]float32
	MinColor, MaxColor [3]float32
}

// Flatten writes the 18 bounds floats in their on-wire order.
func (b ChunkBounds) Flatten(out []float32) {
	copy(out[0:3], b.MinPos[:])
	copy(out[3:6], b.MaxPos[:])
	copy(out[6:9], b.MinScale[:])
	copy(out[9:12], b.MaxScale[:])
	copy(out[12:15], b.MinColor[:])
	copy(out[15:18], b.MaxColor[:])
}

// ParseChunkBounds reads the 18 bounds floats for one chunk.
func ParseChunkBounds(in []float32) ChunkBounds {
	var b ChunkBounds
	copy(b.MinPos[:], in[0:3])
	copy(b.MaxPos[:], in[3:6])
	copy(b.MinScale[:], in[6:9])
	copy(b.MaxScale[:], in[9:12])
	copy(b.MinColor[:], in[12:15])
	copy(b.MaxColor[:], in[15:18])
	return b
}

// nudge widens a degenerate [min, max] interval by lowering min only, so
// that quantizing the shared constant value yields the maximum code (t=1)
// and decodes back to exactly that value. Where the float32 subtraction
// leaves min unchanged (magnitudes above 32), the interval stays empty;
// quantizeUnsigned then yields code 0, which also decodes to exactly min.
func nudge(min, max float32) (float32, float32) {
	if max <= min {
		return min - BoundsEpsilon, max
	}
	return min, max
}

// GlobalBounds computes the min/max over every row of a flat (N,3) buffer;
// used both for the Morton sort's global position bbox and can be reused
// for any other global per-axis bound.
func GlobalBounds(data []float32, n int) (min, max [3]float32) {
	if n == 0 {
		return
	}
	min = [3]float32{data[0], data[1], data[2]}
	max = min
	for i := 1; i < n; i++ {
		for k := 0; k < 3; k++ {
			v := data[i*3+k]
			if v < min[k] {
				min[k] = v
			}
			if v > max[k] {
				max[k] = v
			}
		}
	}
	return
}

// ComputeChunkBounds computes per-chunk bounds for every chunk implied by
// order (consecutive runs of ChunkSize output positions). sh0 is converted
// to linear RGB via SH2RGB before bounding.
func ComputeChunkBounds(means, scales, sh0 []float32, order []int) []ChunkBounds {
	n := len(order)
	numChunks := (n + ChunkSize - 1) / ChunkSize
	bounds := make([]ChunkBounds, numChunks)
	for c := 0; c < numChunks; c++ {
		lo := c * ChunkSize
		hi := lo + ChunkSize
		if hi > n {
			hi = n
		}
		first := order[lo]
		b := ChunkBounds{
			MinPos: [3]float32{means[first*3], means[first*3+1], means[first*3+2]},
			MinScale: [3]float32{scales[first*3], scales[first*3+1], scales[first*3+2]},
			MinColor: [3]float32{
				numerics.SH2RGB(sh0[first*3]), numerics.SH2RGB(sh0[first*3+1]), numerics.SH2RGB(sh0[first*3+2]),
			},
		}
		b.MaxPos, b.MaxScale, b.MaxColor = b.MinPos, b.MinScale, b.MinColor
		for r := lo; r < hi; r++ {
			i := order[r]
			for k := 0; k < 3; k++ {
				p := means[i*3+k]
				if p < b.MinPos[k] {
					b.MinPos[k] = p
				}
				if p > b.MaxPos[k] {
					b.MaxPos[k] = p
				}
				s := scales[i*3+k]
				if s < b.MinScale[k] {
					b.MinScale[k] = s
				}
				if s > b.MaxScale[k] {
					b.MaxScale[k] = s
				}
				rgb := numerics.SH2RGB(sh0[i*3+k])
				if rgb < b.MinColor[k] {
					b.MinColor[k] = rgb
				}
				if rgb > b.MaxColor[k] {
					b.MaxColor[k] = rgb
				}
			}
		}
		for k := 0; k < 3; k++ {
			b.MinPos[k], b.MaxPos[k] = nudge(b.MinPos[k], b.MaxPos[k])
			b.MinScale[k], b.MaxScale[k] = nudge(b.MinScale[k], b.MaxScale[k])
			b.MinColor[k], b.MaxColor[k] = nudge(b.MinColor[k], b.MaxColor[k])
		}
		bounds[c] = b
	}
	return bounds
}
