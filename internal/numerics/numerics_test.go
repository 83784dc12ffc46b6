package numerics

import (
	"math"
	"testing"
)

func TestSH2RGBRoundTrip(t *testing.T) {
	vals := []float32{-4, -1, -0.1, 0, 0.1, 1, 4}
	for _, sh := range vals {
		rgb := SH2RGB(sh)
		back := RGB2SH(rgb)
		if diff := math.Abs(float64(back - sh)); diff > 1e-4 {
			t.Errorf("RGB2SH(SH2RGB(%v)) = %v, want %v", sh, back, sh)
		}
	}
}

func TestSH2RGBZeroIsMidGray(t *testing.T) {
	if got := SH2RGB(0); math.Abs(float64(got-0.5)) > 1e-6 {
		t.Errorf("SH2RGB(0) = %v, want 0.5", got)
	}
}

func TestSigmoidLogitRoundTrip(t *testing.T) {
	for _, x := range []float32{-8, -2, -0.1, 0, 0.1, 2, 8} {
		y := Sigmoid(x)
		back := Logit(y, DefaultLogitEps)
		if diff := math.Abs(float64(back - x)); diff > 1e-3 {
			t.Errorf("Logit(Sigmoid(%v)) = %v, want %v", x, back, x)
		}
	}
}

func TestLogitClampsToEpsBounds(t *testing.T) {
	eps := float32(1e-3)
	lo := Logit(-5, eps)      // clamps to eps
	atEps := Logit(eps, eps)
	if lo != atEps {
		t.Errorf("Logit(-5, eps) = %v, want clamp to Logit(eps, eps) = %v", lo, atEps)
	}
	hi := Logit(5, eps) // clamps to 1-eps
	atOneMinusEps := Logit(1-eps, eps)
	if hi != atOneMinusEps {
		t.Errorf("Logit(5, eps) = %v, want clamp to Logit(1-eps, eps) = %v", hi, atOneMinusEps)
	}
}

func TestActivateDeactivateRoundTrip(t *testing.T) {
	n := 100
	scales := make([]float32, n*3)
	opacities := make([]float32, n)
	quats := make([]float32, n*4)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			scales[i*3+k] = 0.01 + float32(i)*0.03
		}
		opacities[i] = float32(i) / float32(n)
		quats[i*4], quats[i*4+1], quats[i*4+2], quats[i*4+3] = 1, 0, 0, 0
	}

	origScales := append([]float32(nil), scales...)
	origOpacities := append([]float32(nil), opacities...)

	ap := DefaultActivateParams()
	dp := DefaultDeactivateParams()

	Deactivate(scales, opacities, dp)
	Activate(scales, opacities, quats, ap)

	for i := range scales {
		if diff := math.Abs(float64(scales[i] - origScales[i])); diff > 1e-3 {
			t.Errorf("scale[%d] round trip = %v, want %v", i, scales[i], origScales[i])
		}
	}
	for i := range opacities {
		if diff := math.Abs(float64(opacities[i] - origOpacities[i])); diff > 1e-3 {
			t.Errorf("opacity[%d] round trip = %v, want %v", i, opacities[i], origOpacities[i])
		}
	}
}

func TestActivateNormalizesQuats(t *testing.T) {
	scales := []float32{0, 0, 0}
	opacities := []float32{0}
	quats := []float32{2, 0, 0, 0} // unnormalized
	Activate(scales, opacities, quats, DefaultActivateParams())
	norm := math.Sqrt(float64(quats[0]*quats[0] + quats[1]*quats[1] + quats[2]*quats[2] + quats[3]*quats[3]))
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("quat norm = %v, want 1", norm)
	}
}

func TestBandsDegreeTables(t *testing.T) {
	cases := []struct {
		degree int
		bands  int
		props  int
	}{
		{0, 0, 14},
		{1, 9, 23},
		{2, 24, 38},
		{3, 45, 59},
	}
	for _, tc := range cases {
		if k, ok := DegreeToBands(tc.degree); !ok || k != tc.bands {
			t.Errorf("DegreeToBands(%d) = %d, %v, want %d, true", tc.degree, k, ok, tc.bands)
		}
		if d, ok := BandsToDegree(tc.bands); !ok || d != tc.degree {
			t.Errorf("BandsToDegree(%d) = %d, %v, want %d, true", tc.bands, d, ok, tc.degree)
		}
		if p, ok := DegreeToPropertyCount(tc.degree); !ok || p != tc.props {
			t.Errorf("DegreeToPropertyCount(%d) = %d, %v, want %d, true", tc.degree, p, ok, tc.props)
		}
		if d, ok := PropertyCountToDegree(tc.props); !ok || d != tc.degree {
			t.Errorf("PropertyCountToDegree(%d) = %d, %v, want %d, true", tc.props, d, ok, tc.degree)
		}
	}
	if _, ok := BandsToDegree(13); ok {
		t.Error("BandsToDegree(13) should not be ok")
	}
	if _, ok := PropertyCountToDegree(20); ok {
		t.Error("PropertyCountToDegree(20) should not be ok")
	}
}
