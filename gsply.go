// Package gsply implements a codec for 3D Gaussian Splatting point clouds,
// reading and writing both the uncompressed fixed-schema binary PLY wire
// format and the chunked, quantized PLY format compatible with PlayCanvas
// SuperSplat.
//
// Basic usage for reading a file, whichever wire format it happens to be
// in:
//
//	c, err := gsply.Read("scene.ply")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Basic usage for writing, choosing the chunked/compressed format:
//
//	err := gsply.Write("scene_compressed.ply", c, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
package gsply

import (
	"github.com/opsiclear/gogsply/internal/gscontainer"
)

// Container is the in-memory Gaussian-splat point cloud: per-point
// position, scale, orientation, opacity, and spherical-harmonic color
// fields, plus named boolean mask layers. See gscontainer.Container for the
// full field documentation; this is a type alias so that FromArrays,
// Concat, and the codec entry points in this package all share one
// concrete type with the internal packages that build and consume it.
type Container = gscontainer.Container

// ScaleFormat, OpacityFormat, and SH0Format record whether a Container's
// Scales/Opacities/SH0 fields hold the raw PLY wire encoding (log scale,
// logit opacity, SH DC coefficients) or the linear/render-ready encoding.
type (
	ScaleFormat   = gscontainer.ScaleFormat
	OpacityFormat = gscontainer.OpacityFormat
	SH0Format     = gscontainer.SH0Format
	FormatState   = gscontainer.FormatState
	CombineMode   = gscontainer.CombineMode
)

const (
	ScaleLog    = gscontainer.ScaleLog
	ScaleLinear = gscontainer.ScaleLinear

	OpacityLogit  = gscontainer.OpacityLogit
	OpacityLinear = gscontainer.OpacityLinear

	SH0SH  = gscontainer.SH0SH
	SH0RGB = gscontainer.SH0RGB

	CombineAnd = gscontainer.CombineAnd
	CombineOr  = gscontainer.CombineOr
)

// PLYFormatState is the canonical wire-ready format state: log scales,
// logit opacities, SH DC coefficients.
func PLYFormatState() FormatState { return gscontainer.PLYFormatState() }

// LinearFormatState is the canonical render-ready format state: linear
// scales, linear opacities, RGB sh0.
func LinearFormatState() FormatState { return gscontainer.LinearFormatState() }

// FromArrays builds a Container from individually-owned arrays. means and
// scales are flat (N,3); quats is flat (N,4) and w-first; opacities is
// (N,); sh0 is flat (N,3); shN, if non-nil, is flat (N,3K) for K in
// {9,24,45}.
func FromArrays(means, scales, quats, opacities, sh0, shN []float32, format FormatState) (*Container, error) {
	c, err := gscontainer.FromArrays(means, scales, quats, opacities, sh0, shN, format)
	return c, wrapErr("FromArrays", err)
}

// Concat concatenates containers into a single fresh Container. Mask
// layers are merged by name across all inputs; a container missing a layer
// present in another contributes true for its rows. All inputs must share
// the same SH degree.
func Concat(containers []*Container) (*Container, error) {
	c, err := gscontainer.Concat(containers)
	return c, wrapErr("Concat", err)
}
