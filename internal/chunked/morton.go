package chunked

import "github.com/opsiclear/gogsply/internal/parallel"

// mortonBits is the per-axis quantization width used for spatial sort
// ordering, independent of the 11/10/11-bit widths used by the position
// bit-packing itself.
const mortonBits = 10
const mortonMax = (1 << mortonBits) - 1

// part1By2 spreads the low 10 bits of x so that bit i lands at bit 3*i,
// leaving two zero bits between each original bit for y and z to
// interleave into: bit 0 of x, then bit 0 of y, then bit 0 of z, then
// bit 1 of x, and so on.
func part1By2(x uint32) uint32 {
	x &= 0x3ff
	x = (x | (x << 16)) & 0xff0000ff
	x = (x | (x << 8)) & 0x0300f00f
	x = (x | (x << 4)) & 0x030c30c3
	x = (x | (x << 2)) & 0x09249249
	return x
}

// mortonEncode interleaves three 10-bit coordinates into a 30-bit Morton
// code.
func mortonEncode(x, y, z uint32) uint32 {
	return part1By2(x) | (part1By2(y) << 1) | (part1By2(z) << 2)
}

func quantizeAxis(v, lo, hi float32) uint32 {
	if hi <= lo {
		return 0
	}
	t := (v - lo) / (hi - lo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	q := int32(t*float32(mortonMax) + 0.5)
	if q < 0 {
		q = 0
	}
	if q > mortonMax {
		q = mortonMax
	}
	return uint32(q)
}

// mortonCodes computes the per-point Morton code over positions quantized
// to the global bounding box [gmin, gmax].
func mortonCodes(means []float32, n int, gmin, gmax [3]float32) []uint32 {
	codes := make([]uint32, n)
	parallel.Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			qx := quantizeAxis(means[i*3], gmin[0], gmax[0])
			qy := quantizeAxis(means[i*3+1], gmin[1], gmax[1])
			qz := quantizeAxis(means[i*3+2], gmin[2], gmax[2])
			codes[i] = mortonEncode(qx, qy, qz)
		}
	})
	return codes
}

// sortOrder returns order such that order[r] is the original point index
// that should occupy output position r, after a stable sort by Morton
// code. Implemented as a 3-pass LSD radix sort over the 30-bit code (10
// bits per pass), each pass a counting sort: per-point codes are tallied
// into per-thread partial counts and reduced, then prefix-summed and
// scattered in a single deterministic pass to preserve stability. Ties
// (equal Morton code) keep their original relative order.
func sortOrder(codes []uint32) []int {
	n := len(codes)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if n == 0 {
		return order
	}
	scratch := make([]int, n)
	const radixBits = 10
	const numBuckets = 1 << radixBits
	for pass := 0; pass < 3; pass++ {
		shift := uint(pass * radixBits)
		counts := parallel.ReduceCounts(n, numBuckets, func(lo, hi int, local []int) {
			for idx := lo; idx < hi; idx++ {
				d := (codes[order[idx]] >> shift) & (numBuckets - 1)
				local[d]++
			}
		})
		offsets := make([]int, numBuckets)
		sum := 0
		for d := 0; d < numBuckets; d++ {
			offsets[d] = sum
			sum += counts[d]
		}
		for idx := 0; idx < n; idx++ {
			i := order[idx]
			d := (codes[i] >> shift) & (numBuckets - 1)
			scratch[offsets[d]] = i
			offsets[d]++
		}
		order, scratch = scratch, order
	}
	return order
}

// SortByPosition computes the encoder's spatial point ordering: per-point
// Morton codes over the global position bounding box, followed by the
// stable radix sort that groups consecutive ranks into chunks.
func SortByPosition(means []float32, n int, gmin, gmax [3]float32) []int {
	codes := mortonCodes(means, n, gmin, gmax)
	return sortOrder(codes)
}
