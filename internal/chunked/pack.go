package chunked

import "math"

// invSqrt2 bounds the range of the three non-dropped quaternion components
// after the largest-three normalization.
const invSqrt2 = 0.70710678118654752440

// quantizeUnsigned maps v in [lo, hi] to an n-bit unsigned code by
// rounding.
func quantizeUnsigned(v, lo, hi float32, bits uint) uint32 {
	maxCode := uint32(1)<<bits - 1
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
	q := int64(math.Round(float64(t) * float64(maxCode)))
	if q < 0 {
		q = 0
	}
	if q > int64(maxCode) {
		q = int64(maxCode)
	}
	return uint32(q)
}

// quantizeUnsignedTrunc is quantizeUnsigned with trunc instead of round,
// used for SH-rest quantization for byte-exact parity with the reference
// SuperSplat encoder.
func quantizeUnsignedTrunc(v, lo, hi float32, bits uint) uint32 {
	maxCode := uint32(1)<<bits - 1
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
	q := int64(float64(t) * float64(uint32(1)<<bits))
	if q < 0 {
		q = 0
	}
	if q > int64(maxCode) {
		q = int64(maxCode)
	}
	return uint32(q)
}

func dequantizeUnsigned(q uint32, lo, hi float32, bits uint) float32 {
	maxCode := float32(uint32(1)<<bits - 1)
	if maxCode == 0 {
		return lo
	}
	t := float32(q) / maxCode
	return lo + t*(hi-lo)
}

// PackPosition quantizes x,y,z to 11/10/11 bits within bounds and packs
// them into one uint32 as (qx<<21)|(qy<<11)|qz.
func PackPosition(x, y, z float32, minB, maxB [3]float32) uint32 {
	qx := quantizeUnsigned(x, minB[0], maxB[0], 11)
	qy := quantizeUnsigned(y, minB[1], maxB[1], 10)
	qz := quantizeUnsigned(z, minB[2], maxB[2], 11)
	return (qx << 21) | (qy << 11) | qz
}

// UnpackPosition inverts PackPosition.
func UnpackPosition(packed uint32, minB, maxB [3]float32) (x, y, z float32) {
	qx := (packed >> 21) & 0x7ff
	qy := (packed >> 11) & 0x3ff
	qz := packed & 0x7ff
	x = dequantizeUnsigned(qx, minB[0], maxB[0], 11)
	y = dequantizeUnsigned(qy, minB[1], maxB[1], 10)
	z = dequantizeUnsigned(qz, minB[2], maxB[2], 11)
	return
}

// PackScale quantizes a log-scale triple identically to PackPosition.
func PackScale(sx, sy, sz float32, minB, maxB [3]float32) uint32 {
	return PackPosition(sx, sy, sz, minB, maxB)
}

// UnpackScale inverts PackScale.
func UnpackScale(packed uint32, minB, maxB [3]float32) (sx, sy, sz float32) {
	return UnpackPosition(packed, minB, maxB)
}

// PackColor quantizes r,g,b (linear, sh0 already passed through SH2RGB) to
// 8 bits each within the chunk's color bounds, plus linear opacity
// (already through Sigmoid) to 8 bits in [0,1], and packs them as
// (qr<<24)|(qg<<16)|(qb<<8)|qa.
func PackColor(r, g, b, opacity float32, minC, maxC [3]float32) uint32 {
	qr := quantizeUnsigned(r, minC[0], maxC[0], 8)
	qg := quantizeUnsigned(g, minC[1], maxC[1], 8)
	qb := quantizeUnsigned(b, minC[2], maxC[2], 8)
	qa := quantizeUnsigned(opacity, 0, 1, 8)
	return (qr << 24) | (qg << 16) | (qb << 8) | qa
}

// UnpackColor inverts PackColor, returning linear RGB and linear opacity.
func UnpackColor(packed uint32, minC, maxC [3]float32) (r, g, b, opacity float32) {
	qr := (packed >> 24) & 0xff
	qg := (packed >> 16) & 0xff
	qb := (packed >> 8) & 0xff
	qa := packed & 0xff
	r = dequantizeUnsigned(qr, minC[0], maxC[0], 8)
	g = dequantizeUnsigned(qg, minC[1], maxC[1], 8)
	b = dequantizeUnsigned(qb, minC[2], maxC[2], 8)
	opacity = dequantizeUnsigned(qa, 0, 1, 8)
	return
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// PackRotation implements the largest-three quaternion encoding: normalize
// (w,x,y,z), find the largest-magnitude component (ties keep the lowest
// index), flip sign so that component is non-negative, then quantize the
// remaining three to 10 bits each over [-1/sqrt2, 1/sqrt2] and pack as
// (k<<30)|(a<<20)|(b<<10)|c.
func PackRotation(w, x, y, z float32) uint32 {
	comps := [4]float32{w, x, y, z}
	norm := float32(math.Sqrt(float64(w*w + x*x + y*y + z*z)))
	if norm > 0 {
		for i := range comps {
			comps[i] /= norm
		}
	}
	k := 0
	maxAbs := absF32(comps[0])
	for i := 1; i < 4; i++ {
		if a := absF32(comps[i]); a > maxAbs {
			maxAbs = a
			k = i
		}
	}
	sign := float32(1)
	if comps[k] < 0 {
		sign = -1
	}

	var others [3]float32
	j := 0
	for i := 0; i < 4; i++ {
		if i == k {
			continue
		}
		others[j] = comps[i] * sign
		j++
	}
	a := quantizeUnsigned(others[0], -invSqrt2, invSqrt2, 10)
	b := quantizeUnsigned(others[1], -invSqrt2, invSqrt2, 10)
	c := quantizeUnsigned(others[2], -invSqrt2, invSqrt2, 10)
	return (uint32(k) << 30) | (a << 20) | (b << 10) | c
}

// UnpackRotation inverts PackRotation, reconstructing the dropped
// component as sqrt(max(0, 1-a^2-b^2-c^2)).
func UnpackRotation(packed uint32) (w, x, y, z float32) {
	k := int(packed>>30) & 0x3
	qa := (packed >> 20) & 0x3ff
	qb := (packed >> 10) & 0x3ff
	qc := packed & 0x3ff
	a := dequantizeUnsigned(qa, -invSqrt2, invSqrt2, 10)
	b := dequantizeUnsigned(qb, -invSqrt2, invSqrt2, 10)
	c := dequantizeUnsigned(qc, -invSqrt2, invSqrt2, 10)
	sq := 1 - a*a - b*b - c*c
	if sq < 0 {
		sq = 0
	}
	missing := float32(math.Sqrt(float64(sq)))

	var comps [4]float32
	comps[k] = missing
	others := [3]float32{a, b, c}
	j := 0
	for i := 0; i < 4; i++ {
		if i == k {
			continue
		}
		comps[i] = others[j]
		j++
	}
	return comps[0], comps[1], comps[2], comps[3]
}
