// Package numerics implements the spherical-harmonic/RGB conversions,
// sigmoid/logit pre- and de-activation, and the SH-degree/band/property-count
// tables shared by the uncompressed and chunked codecs.
package numerics

import (
	"math"

	"github.com/opsiclear/gogsply/internal/parallel"
)

// SHC0 is the degree-0 spherical harmonic basis constant
// 0.5 / sqrt(pi) used to convert between SH DC coefficients and linear RGB.
const SHC0 = 0.28209479177387814

// DefaultLogitEps is the clamp epsilon used by Logit when no override is given.
const DefaultLogitEps = 1e-6

// SH2RGB converts a spherical-harmonic DC coefficient to linear RGB.
func SH2RGB(x float32) float32 {
	return x*SHC0 + 0.5
}

// RGB2SH converts linear RGB to a spherical-harmonic DC coefficient.
func RGB2SH(c float32) float32 {
	return (c - 0.5) / SHC0
}

// Sigmoid computes 1 / (1 + exp(-x)).
func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// Logit computes log(y' / (1-y')) where y' = clamp(y, eps, 1-eps).
func Logit(y, eps float32) float32 {
	y = clamp(y, eps, 1-eps)
	return float32(math.Log(float64(y) / float64(1-y)))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DeactivateParams holds the tunables for Deactivate; a zero value is not
// valid, use DefaultDeactivateParams.
type DeactivateParams struct {
	MinScale float32
	MinOp    float32
	MaxOp    float32
	Eps      float32
}

// DefaultDeactivateParams returns the default tunables for linear-to-PLY
// deactivation.
func DefaultDeactivateParams() DeactivateParams {
	return DeactivateParams{MinScale: 1e-9, MinOp: 1e-4, MaxOp: 1 - 1e-4, Eps: 1e-4}
}

// Deactivate converts scales and opacities in place from linear
// (renderer-ready) form to PLY form: scales become log-scale, opacities
// become logit. Both slices must describe the same N points; scales is
// a flat (N,3) row-major buffer, opacities is (N,).
func Deactivate(scales, opacities []float32, p DeactivateParams) {
	parallel.Range(len(opacities), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			for k := 0; k < 3; k++ {
				v := scales[i*3+k]
				if v < p.MinScale {
					v = p.MinScale
				}
				scales[i*3+k] = float32(math.Log(float64(v)))
			}
			o := clamp(opacities[i], p.MinOp, p.MaxOp)
			opacities[i] = Logit(o, p.Eps)
		}
	})
}

// ActivateParams holds the tunables for Activate; a zero value is not
// valid, use DefaultActivateParams.
type ActivateParams struct {
	MinScale   float32
	MaxScale   float32
	MinQuatNorm float32
}

// DefaultActivateParams returns the default tunables for PLY-to-linear
// activation.
func DefaultActivateParams() ActivateParams {
	return ActivateParams{MinScale: 1e-4, MaxScale: 100, MinQuatNorm: 1e-8}
}

// Activate converts scales, opacities, and quats in place from PLY
// (log-scale/logit) form to linear (renderer-ready) form. quats is a flat
// (N,4) row-major buffer in w,x,y,z order.
func Activate(scales, opacities, quats []float32, p ActivateParams) {
	logMin := float32(math.Log(float64(p.MinScale)))
	logMax := float32(math.Log(float64(p.MaxScale)))
	n := len(opacities)
	parallel.Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			for k := 0; k < 3; k++ {
				v := clamp(scales[i*3+k], logMin, logMax)
				scales[i*3+k] = float32(math.Exp(float64(v)))
			}
			opacities[i] = Sigmoid(opacities[i])

			w, x, y, z := quats[i*4], quats[i*4+1], quats[i*4+2], quats[i*4+3]
			norm := float32(math.Sqrt(float64(w*w + x*x + y*y + z*z)))
			if norm < p.MinQuatNorm {
				norm = p.MinQuatNorm
			}
			quats[i*4] = w / norm
			quats[i*4+1] = x / norm
			quats[i*4+2] = y / norm
			quats[i*4+3] = z / norm
		}
	})
}

// DeactivateScalesOnly applies just the scale half of Deactivate, for
// containers whose opacities are already in logit form.
func DeactivateScalesOnly(scales []float32, p DeactivateParams) {
	parallel.Range(len(scales)/3, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			for k := 0; k < 3; k++ {
				v := scales[i*3+k]
				if v < p.MinScale {
					v = p.MinScale
				}
				scales[i*3+k] = float32(math.Log(float64(v)))
			}
		}
	})
}

// DeactivateOpacitiesOnly applies just the opacity half of Deactivate, for
// containers whose scales are already in log form.
func DeactivateOpacitiesOnly(opacities []float32, p DeactivateParams) {
	parallel.Range(len(opacities), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			o := clamp(opacities[i], p.MinOp, p.MaxOp)
			opacities[i] = Logit(o, p.Eps)
		}
	})
}

// BandsToDegree maps an SH-rest band count K to its degree D, and reports
// whether K was a recognized value.
func BandsToDegree(k int) (degree int, ok bool) {
	switch k {
	case 0:
		return 0, true
	case 9:
		return 1, true
	case 24:
		return 2, true
	case 45:
		return 3, true
	default:
		return 0, false
	}
}

// DegreeToBands maps an SH degree D (0-3) to its band count K = 3*(D+1)^2 - 3.
func DegreeToBands(degree int) (k int, ok bool) {
	switch degree {
	case 0:
		return 0, true
	case 1:
		return 9, true
	case 2:
		return 24, true
	case 3:
		return 45, true
	default:
		return 0, false
	}
}

// PropertyCountToDegree maps an uncompressed-PLY vertex property count P to
// its SH degree: 14->0, 23->1, 38->2, 59->3.
func PropertyCountToDegree(p int) (degree int, ok bool) {
	switch p {
	case 14:
		return 0, true
	case 23:
		return 1, true
	case 38:
		return 2, true
	case 59:
		return 3, true
	default:
		return 0, false
	}
}

// DegreeToPropertyCount is the inverse of PropertyCountToDegree.
func DegreeToPropertyCount(degree int) (p int, ok bool) {
	switch degree {
	case 0:
		return 14, true
	case 1:
		return 23, true
	case 2:
		return 38, true
	case 3:
		return 59, true
	default:
		return 0, false
	}
}
