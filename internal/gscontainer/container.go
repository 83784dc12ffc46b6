// Package gscontainer implements the in-memory Gaussian-splat point cloud
// container: owned backing buffer plus strided per-property views, mask
// layers, and format-state tracking.
package gscontainer

import (
	"fmt"

	"github.com/opsiclear/gogsply/internal/codecerr"
	"github.com/opsiclear/gogsply/internal/numerics"
)

// ScaleFormat is whether Scales holds log-scale ("PLY") or linear values.
type ScaleFormat int

const (
	ScaleLog ScaleFormat = iota
	ScaleLinear
)

// OpacityFormat is whether Opacities holds logit ("PLY") or linear values.
type OpacityFormat int

const (
	OpacityLogit OpacityFormat = iota
	OpacityLinear
)

// SH0Format is whether SH0 holds SH DC coefficients or RGB.
type SH0Format int

const (
	SH0SH SH0Format = iota
	SH0RGB
)

// FormatState is the format-state triple tracked on every Container.
type FormatState struct {
	Scale   ScaleFormat
	Opacity OpacityFormat
	SH0     SH0Format
}

// PLYFormatState is the canonical wire-ready format state: log scales,
// logit opacities, SH DC coefficients.
func PLYFormatState() FormatState {
	return FormatState{Scale: ScaleLog, Opacity: OpacityLogit, SH0: SH0SH}
}

// LinearFormatState is the canonical render-ready format state: linear
// scales, linear opacities, RGB sh0.
func LinearFormatState() FormatState {
	return FormatState{Scale: ScaleLinear, Opacity: OpacityLinear, SH0: SH0RGB}
}

// IsPLY reports whether every field of the state is in PLY form.
func (f FormatState) IsPLY() bool {
	return f == PLYFormatState()
}

// View is a strided, non-owning window over a shared backing buffer: N rows
// of Width columns each, Stride apart, starting at Offset. When Stride ==
// Width the view is contiguous and its rows sit back-to-back.
type View struct {
	Data   []float32
	Offset int
	Stride int
	Width  int
	Rows   int
}

// NewOwnedView allocates a fresh contiguous view of n rows by width columns.
func NewOwnedView(n, width int) View {
	return View{Data: make([]float32, n*width), Offset: 0, Stride: width, Width: width, Rows: n}
}

// NewWindowView returns a strided window over an existing buffer. It does
// not copy; mutating data mutates the view and vice versa.
func NewWindowView(data []float32, n, stride, offset, width int) View {
	return View{Data: data, Offset: offset, Stride: stride, Width: width, Rows: n}
}

// WrapContiguous wraps an already-contiguous caller-owned slice of n*width
// floats as a zero-copy View.
func WrapContiguous(data []float32, n, width int) (View, error) {
	if len(data) != n*width {
		return View{}, fmt.Errorf("gscontainer: expected %d floats (n=%d, width=%d), got %d: %w", n*width, n, width, len(data), codecerr.ErrDomain)
	}
	return View{Data: data, Offset: 0, Stride: width, Width: width, Rows: n}, nil
}

// Contiguous reports whether the view's rows sit back-to-back in Data.
func (v View) Contiguous() bool {
	return v.Stride == v.Width
}

// At returns element (i, j).
func (v View) At(i, j int) float32 {
	return v.Data[i*v.Stride+v.Offset+j]
}

// Set assigns element (i, j).
func (v View) Set(i, j int, x float32) {
	v.Data[i*v.Stride+v.Offset+j] = x
}

// ToContiguous returns a flat row-major []float32 of length Rows*Width,
// materializing (copying) when the view is strided and returning the
// underlying slice directly when it is already contiguous and starts at
// offset 0 with no surrounding rows.
func (v View) ToContiguous() []float32 {
	if v.Contiguous() && v.Offset == 0 && len(v.Data) == v.Rows*v.Width {
		return v.Data
	}
	out := make([]float32, v.Rows*v.Width)
	for i := 0; i < v.Rows; i++ {
		base := i*v.Stride + v.Offset
		copy(out[i*v.Width:(i+1)*v.Width], v.Data[base:base+v.Width])
	}
	return out
}

// Materialize rewrites the view in place to be an owned, contiguous copy of
// its current contents; it no longer shares storage with any prior backing.
func (v *View) Materialize() {
	flat := make([]float32, v.Rows*v.Width)
	for i := 0; i < v.Rows; i++ {
		base := i*v.Stride + v.Offset
		copy(flat[i*v.Width:(i+1)*v.Width], v.Data[base:base+v.Width])
	}
	v.Data = flat
	v.Offset = 0
	v.Stride = v.Width
}

// SelectRows returns a fresh owned View containing only the rows for which
// keep[i] is true, preserving order.
func (v View) SelectRows(keep []bool) View {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := NewOwnedView(n, v.Width)
	r := 0
	for i, k := range keep {
		if !k {
			continue
		}
		base := i*v.Stride + v.Offset
		copy(out.Data[r*v.Width:(r+1)*v.Width], v.Data[base:base+v.Width])
		r++
	}
	return out
}

// Container is the in-memory Gaussian-splat point cloud: N points and
// their position, scale, orientation, opacity, and spherical-harmonic
// color fields, plus optional named boolean mask layers.
type Container struct {
	N int

	Means     View // (N,3)
	Scales    View // (N,3)
	Opacities View // (N,1)
	SH0       View // (N,3)
	SHN       View // (N,3K), K = 3*(degree+1)^2-3 bands... stored as 3*bands columns

	// Quats is always an owned, w-first flat (N,4) buffer. Spec.md §4.4
	// permits a host-side reorder instead of maintaining a strided
	// zero-copy view for the wire's x,y,z,w column order, since the
	// container's observable order must be w-first regardless.
	Quats []float32

	Degree int

	MaskLayers map[string][]bool

	// Backing is the raw owned buffer backing Means/Scales/Opacities/SH0/SHN
	// when the container was built from a single row-major allocation (the
	// uncompressed reader's zero-copy path). Nil otherwise. Backing must
	// not be mutated directly by callers.
	Backing []float32

	Format FormatState
}

// bandsForDegree returns 3*K where K is the SH-rest band count for degree.
func bandsForDegree(degree int) (shRestWidth int, ok bool) {
	switch degree {
	case 0:
		return 0, true
	case 1:
		return 27, true // 9 bands * 3 channels
	case 2:
		return 72, true // 24 * 3
	case 3:
		return 135, true // 45 * 3
	default:
		return 0, false
	}
}

// FromBase builds a Container as zero-copy windows into buf, a single
// N*P row-major float32 allocation laid out in the uncompressed-PLY
// canonical column order: x,y,z, f_dc_0..2, f_rest_0..3K-1, opacity,
// scale_0..2, rot_0..3 (wire order x,y,z,w). Quats are materialized in
// w-first order.
func FromBase(buf []float32, n, degree int) (*Container, error) {
	shRestWidth, ok := bandsForDegree(degree)
	if !ok {
		return nil, fmt.Errorf("gscontainer: invalid degree %d: %w", degree, codecerr.ErrUnsupportedSchema)
	}
	p := 3 + 3 + shRestWidth + 1 + 3 + 4
	if n < 0 || len(buf) != n*p {
		return nil, fmt.Errorf("gscontainer: buffer has %d floats, want %d (n=%d, p=%d): %w", len(buf), n*p, n, p, codecerr.ErrSizeMismatch)
	}

	means := NewWindowView(buf, n, p, 0, 3)
	sh0 := NewWindowView(buf, n, p, 3, 3)
	shN := NewWindowView(buf, n, p, 6, shRestWidth)
	opOffset := 6 + shRestWidth
	opacities := NewWindowView(buf, n, p, opOffset, 1)
	scaleOffset := opOffset + 1
	scales := NewWindowView(buf, n, p, scaleOffset, 3)
	quatOffset := scaleOffset + 3
	quatsWire := NewWindowView(buf, n, p, quatOffset, 4)

	quats := make([]float32, n*4)
	for i := 0; i < n; i++ {
		x, y, z, w := quatsWire.At(i, 0), quatsWire.At(i, 1), quatsWire.At(i, 2), quatsWire.At(i, 3)
		quats[i*4], quats[i*4+1], quats[i*4+2], quats[i*4+3] = w, x, y, z
	}

	return &Container{
		N: n, Means: means, Scales: scales, Opacities: opacities, SH0: sh0, SHN: shN,
		Quats: quats, Degree: degree, MaskLayers: map[string][]bool{}, Backing: buf,
		Format: PLYFormatState(),
	}, nil
}

// FromArrays builds a Container from individually-owned arrays. means,
// scales are flat (N,3); quats is flat (N,4) w-first; opacities is (N,);
// sh0 is flat (N,3); shN, if non-nil, is flat (N, 3K) for K in {9,24,45}.
func FromArrays(means, scales, quats, opacities, sh0, shN []float32, format FormatState) (*Container, error) {
	if len(quats)%4 != 0 {
		return nil, fmt.Errorf("gscontainer: quats length %d not a multiple of 4: %w", len(quats), codecerr.ErrDomain)
	}
	n := len(quats) / 4
	if len(means) != n*3 {
		return nil, fmt.Errorf("gscontainer: means length %d, want %d: %w", len(means), n*3, codecerr.ErrDomain)
	}
	if len(scales) != n*3 {
		return nil, fmt.Errorf("gscontainer: scales length %d, want %d: %w", len(scales), n*3, codecerr.ErrDomain)
	}
	if len(opacities) != n {
		return nil, fmt.Errorf("gscontainer: opacities length %d, want %d: %w", len(opacities), n, codecerr.ErrDomain)
	}
	if len(sh0) != n*3 {
		return nil, fmt.Errorf("gscontainer: sh0 length %d, want %d: %w", len(sh0), n*3, codecerr.ErrDomain)
	}
	degree, ok := bandsToDegree(len(shN), n)
	if !ok {
		return nil, fmt.Errorf("gscontainer: shN length %d is not a valid (N,K,3) size for N=%d: %w", len(shN), n, codecerr.ErrUnsupportedSchema)
	}

	meansV, err := WrapContiguous(means, n, 3)
	if err != nil {
		return nil, err
	}
	scalesV, err := WrapContiguous(scales, n, 3)
	if err != nil {
		return nil, err
	}
	opV, err := WrapContiguous(opacities, n, 1)
	if err != nil {
		return nil, err
	}
	sh0V, err := WrapContiguous(sh0, n, 3)
	if err != nil {
		return nil, err
	}
	var shNV View
	if len(shN) > 0 {
		shNV, err = WrapContiguous(shN, n, len(shN)/n)
		if err != nil {
			return nil, err
		}
	} else {
		shNV = NewOwnedView(n, 0)
	}

	return &Container{
		N: n, Means: meansV, Scales: scalesV, Opacities: opV, SH0: sh0V, SHN: shNV,
		Quats: append([]float32(nil), quats...), Degree: degree, MaskLayers: map[string][]bool{},
		Format: format,
	}, nil
}

func bandsToDegree(shNLen, n int) (int, bool) {
	if n == 0 {
		if shNLen == 0 {
			return 0, true
		}
		return 0, false
	}
	width := shNLen / n
	if shNLen%n != 0 {
		return 0, false
	}
	switch width {
	case 0:
		return 0, true
	case 27:
		return 1, true
	case 72:
		return 2, true
	case 135:
		return 3, true
	default:
		return 0, false
	}
}

// NewEmpty builds a zero-point Container carrying the given SH degree.
// FromArrays cannot distinguish degree 0 from higher degrees when N is 0
// (an empty shN slice is ambiguous), so callers that need to preserve a
// known degree across an empty point cloud use this instead.
func NewEmpty(degree int, format FormatState) (*Container, error) {
	shRestWidth, ok := bandsForDegree(degree)
	if !ok {
		return nil, fmt.Errorf("gscontainer: invalid degree %d: %w", degree, codecerr.ErrUnsupportedSchema)
	}
	return &Container{
		N:          0,
		Means:      NewOwnedView(0, 3),
		Scales:     NewOwnedView(0, 3),
		Opacities:  NewOwnedView(0, 1),
		SH0:        NewOwnedView(0, 3),
		SHN:        NewOwnedView(0, shRestWidth),
		Quats:      []float32{},
		Degree:     degree,
		MaskLayers: map[string][]bool{},
		Format:     format,
	}, nil
}

// GetSHDegree returns the container's derived SH degree (0-3).
func (c *Container) GetSHDegree() int {
	return c.Degree
}

// AddMaskLayer adds a named boolean layer of length N. Re-adding an
// existing name is a DomainError-class failure: duplicate layer names
// must never silently overwrite.
func (c *Container) AddMaskLayer(name string, mask []bool) error {
	if len(mask) != c.N {
		return fmt.Errorf("gscontainer: mask layer %q has length %d, want %d: %w", name, len(mask), c.N, codecerr.ErrDomain)
	}
	if _, exists := c.MaskLayers[name]; exists {
		return fmt.Errorf("gscontainer: mask layer %q already exists: %w", name, codecerr.ErrDomain)
	}
	if c.MaskLayers == nil {
		c.MaskLayers = map[string][]bool{}
	}
	c.MaskLayers[name] = append([]bool(nil), mask...)
	return nil
}

// MaskLayerNames returns the sorted-by-insertion-irrelevant set of mask
// layer names currently defined on the container.
func (c *Container) MaskLayerNames() []string {
	names := make([]string, 0, len(c.MaskLayers))
	for name := range c.MaskLayers {
		names = append(names, name)
	}
	return names
}

// CombineMode selects how named mask layers are combined.
type CombineMode int

const (
	CombineAnd CombineMode = iota
	CombineOr
)

// CombineMasks ANDs or ORs the named layers together (all layers if names
// is empty) and returns the resulting per-point boolean slice.
func (c *Container) CombineMasks(mode CombineMode, names []string) ([]bool, error) {
	if len(names) == 0 {
		names = c.MaskLayerNames()
	}
	if len(names) == 0 {
		out := make([]bool, c.N)
		for i := range out {
			out[i] = true
		}
		return out, nil
	}
	out := make([]bool, c.N)
	for i := range out {
		out[i] = mode == CombineAnd
	}
	for _, name := range names {
		layer, ok := c.MaskLayers[name]
		if !ok {
			return nil, fmt.Errorf("gscontainer: unknown mask layer %q: %w", name, codecerr.ErrDomain)
		}
		for i, v := range layer {
			if mode == CombineAnd {
				out[i] = out[i] && v
			} else {
				out[i] = out[i] || v
			}
		}
	}
	return out, nil
}

// ApplyMasks returns a fresh, backing-free Container containing only the
// rows where mask[i] is true.
func (c *Container) ApplyMasks(mask []bool) (*Container, error) {
	if len(mask) != c.N {
		return nil, fmt.Errorf("gscontainer: mask length %d, want %d: %w", len(mask), c.N, codecerr.ErrDomain)
	}
	out := &Container{
		Means:     c.Means.SelectRows(mask),
		Scales:    c.Scales.SelectRows(mask),
		Opacities: c.Opacities.SelectRows(mask),
		SH0:       c.SH0.SelectRows(mask),
		Degree:    c.Degree,
		Format:    c.Format,
		MaskLayers: map[string][]bool{},
	}
	if c.SHN.Width > 0 {
		out.SHN = c.SHN.SelectRows(mask)
	} else {
		out.SHN = NewOwnedView(out.Means.Rows, 0)
	}
	out.N = out.Means.Rows

	quats := make([]float32, 0, out.N*4)
	for i, keep := range mask {
		if keep {
			quats = append(quats, c.Quats[i*4], c.Quats[i*4+1], c.Quats[i*4+2], c.Quats[i*4+3])
		}
	}
	out.Quats = quats

	for name, layer := range c.MaskLayers {
		filtered := make([]bool, 0, out.N)
		for i, keep := range mask {
			if keep {
				filtered = append(filtered, layer[i])
			}
		}
		out.MaskLayers[name] = filtered
	}
	return out, nil
}

// MakeContiguous materializes every strided view into an owned, contiguous
// buffer. When inplace is true the receiver's views are rewritten and its
// Backing is cleared (detaching it from any prior shared allocation);
// otherwise a new Container is returned and the receiver is untouched.
func (c *Container) MakeContiguous(inplace bool) *Container {
	target := c
	if !inplace {
		cp := *c
		cp.MaskLayers = make(map[string][]bool, len(c.MaskLayers))
		for k, v := range c.MaskLayers {
			cp.MaskLayers[k] = append([]bool(nil), v...)
		}
		cp.Quats = append([]float32(nil), c.Quats...)
		target = &cp
	}
	target.Means.Materialize()
	target.Scales.Materialize()
	target.Opacities.Materialize()
	target.SH0.Materialize()
	target.SHN.Materialize()
	target.Backing = nil
	return target
}

// NormalizeToPLY ensures the format-state is PLY (log scales, logit
// opacities, SH sh0), running the deactivate kernel and/or the RGB->SH
// conversion as needed. When inplace is false (the default used by
// writers) an owned, contiguous copy is normalized and returned, leaving
// the receiver untouched; when inplace is true the receiver itself is
// materialized and normalized.
func (c *Container) NormalizeToPLY(inplace bool) *Container {
	target := c.MakeContiguous(inplace)
	if target.Format.Scale == ScaleLinear || target.Format.Opacity == OpacityLinear {
		scales := target.Scales.Data
		opacities := target.Opacities.Data
		p := numerics.DefaultDeactivateParams()
		if target.Format.Scale == ScaleLog {
			// already log; deactivate would double-transform, so only
			// run the kernel halves that actually need conversion.
			numerics.DeactivateOpacitiesOnly(opacities, p)
		} else if target.Format.Opacity == OpacityLogit {
			numerics.DeactivateScalesOnly(scales, p)
		} else {
			numerics.Deactivate(scales, opacities, p)
		}
		target.Format.Scale = ScaleLog
		target.Format.Opacity = OpacityLogit
	}
	if target.Format.SH0 == SH0RGB {
		sh0 := target.SH0.Data
		for i := range sh0 {
			sh0[i] = numerics.RGB2SH(sh0[i])
		}
		target.Format.SH0 = SH0SH
	}
	return target
}

// Concat concatenates containers into a single fresh, backing-free
// Container. Mask layers are merged by name across all inputs; a
// container missing a layer present in another contributes `true` for
// its rows. All inputs must share the same SH degree.
func Concat(containers []*Container) (*Container, error) {
	if len(containers) == 0 {
		return nil, fmt.Errorf("gscontainer: concat requires at least one container: %w", codecerr.ErrDomain)
	}
	degree := containers[0].Degree
	total := 0
	for _, c := range containers {
		if c.Degree != degree {
			return nil, fmt.Errorf("gscontainer: concat degree mismatch: %d vs %d: %w", c.Degree, degree, codecerr.ErrUnsupportedSchema)
		}
		total += c.N
	}

	shRestWidth, _ := bandsForDegree(degree)
	out := &Container{
		Means:      NewOwnedView(total, 3),
		Scales:     NewOwnedView(total, 3),
		Opacities:  NewOwnedView(total, 1),
		SH0:        NewOwnedView(total, 3),
		SHN:        NewOwnedView(total, shRestWidth),
		Quats:      make([]float32, total*4),
		Degree:     degree,
		N:          total,
		Format:     containers[0].Format,
		MaskLayers: map[string][]bool{},
	}

	layerNames := map[string]struct{}{}
	for _, c := range containers {
		for name := range c.MaskLayers {
			layerNames[name] = struct{}{}
		}
	}

	row := 0
	for _, c := range containers {
		means := c.Means.ToContiguous()
		scales := c.Scales.ToContiguous()
		sh0 := c.SH0.ToContiguous()
		var shN []float32
		if shRestWidth > 0 {
			shN = c.SHN.ToContiguous()
		}
		for i := 0; i < c.N; i++ {
			copy(out.Means.Data[(row+i)*3:(row+i+1)*3], means[i*3:i*3+3])
			copy(out.Scales.Data[(row+i)*3:(row+i+1)*3], scales[i*3:i*3+3])
			out.Opacities.Data[row+i] = c.Opacities.At(i, 0)
			copy(out.SH0.Data[(row+i)*3:(row+i+1)*3], sh0[i*3:i*3+3])
			if shRestWidth > 0 {
				copy(out.SHN.Data[(row+i)*shRestWidth:(row+i+1)*shRestWidth], shN[i*shRestWidth:(i+1)*shRestWidth])
			}
			copy(out.Quats[(row+i)*4:(row+i+1)*4], c.Quats[i*4:i*4+4])
		}
		row += c.N
	}

	for name := range layerNames {
		merged := make([]bool, total)
		row = 0
		for _, c := range containers {
			if layer, ok := c.MaskLayers[name]; ok {
				copy(merged[row:row+c.N], layer)
			} else {
				for i := row; i < row+c.N; i++ {
					merged[i] = true
				}
			}
			row += c.N
		}
		out.MaskLayers[name] = merged
	}

	return out, nil
}
