package chunked

import "github.com/opsiclear/gogsply/internal/parallel"

// GlobalSHRange returns the single scalar min/max spanning every SH-rest
// coefficient: each scalar is quantized independently against this one
// shared global min/max pair, not per-chunk bounds.
func GlobalSHRange(shN []float32) (min, max float32) {
	if len(shN) == 0 {
		return 0, 0
	}
	min, max = shN[0], shN[0]
	for _, v := range shN[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	min, max = nudge(min, max)
	return
}

// QuantizeSH quantizes shN (row-major, in output/sorted order) to one byte
// per scalar using trunc rather than round.
func QuantizeSH(shN []float32, min, max float32) []byte {
	out := make([]byte, len(shN))
	parallel.Range(len(shN), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = byte(quantizeUnsignedTrunc(shN[i], min, max, 8))
		}
	})
	return out
}

// DequantizeSH inverts QuantizeSH.
func DequantizeSH(bytes []byte, min, max float32) []float32 {
	out := make([]float32, len(bytes))
	parallel.Range(len(bytes), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = dequantizeUnsigned(uint32(bytes[i]), min, max, 8)
		}
	})
	return out
}
