package transform

import "math"

// Size is a pixel dimension pair
type Size struct {
	Width  int
	Height int
}

// ResolveSize computes the final pixel dimensions for a transform.
//
// With keepRatio off the target is returned verbatim (stretch). Otherwise a
// scale ratio is derived from the per-axis target/original ratios, where a
// target of 0 leaves that axis unconstrained (ratio 0):
//
//   - both axes constrained: min of the two in fit-within mode, max in
//     fill-and-crop mode
//   - exactly one axis constrained: that axis decides (max of the two)
//   - neither constrained: ratio 1, no scaling
//
// Rounding is half-away-from-zero. In fill-and-crop mode the returned size
// is the intermediate resample size; the output canvas stays at the target
// size and clips the overflow.
func ResolveSize(origW, origH, targetW, targetH int, keepRatio, fit bool) Size {
	if !keepRatio {
		return Size{Width: targetW, Height: targetH}
	}
	if origW <= 0 || origH <= 0 {
		return Size{Width: targetW, Height: targetH}
	}

	var xRatio, yRatio float64
	if targetW > 0 {
		xRatio = float64(targetW) / float64(origW)
	}
	if targetH > 0 {
		yRatio = float64(targetH) / float64(origH)
	}

	var ratio float64
	switch {
	case xRatio == 0 && yRatio == 0:
		ratio = 1
	case xRatio > 0 && yRatio > 0 && !fit:
		ratio = math.Min(xRatio, yRatio)
	default:
		ratio = math.Max(xRatio, yRatio)
	}

	return Size{
		Width:  int(math.Round(ratio * float64(origW))),
		Height: int(math.Round(ratio * float64(origH))),
	}
}

// ResolveSize computes the final dimensions for the descriptor's current
// parameters given the original image dimensions
func (d *Descriptor) ResolveSize(origW, origH int) Size {
	return ResolveSize(origW, origH, d.params.Width, d.params.Height, d.params.KeepRatio, d.params.Fit)
}
