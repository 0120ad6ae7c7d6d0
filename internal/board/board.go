// Package board defines the normalized dartboard coordinate system and the
// polar scoring rules shared by every stage of the triangulation pipeline.
//
// Normalized board space puts the origin at the board centre with radius 1.0
// at the outer edge of the doubles ring (170mm). Angles are measured
// clockwise from the top (segment 20) in degrees, normalized to [0,360).
package board

import "math"

// SegmentOrder maps wedge index (clockwise from top) to the printed segment
// number. Wedge 0 is the 20, wedge 1 the 1, and so on.
var SegmentOrder = [20]int{20, 1, 18, 4, 13, 6, 10, 15, 2, 17, 3, 19, 7, 16, 8, 11, 14, 9, 12, 5}

// Ring radii in millimetres from board centre. Wire width (1.4mm) is already
// folded in so that boundary hits resolve toward the higher-value bed.
const (
	BullseyeRadiusMM    = 6.35
	BullRadiusMM        = 16.0
	TripleInnerRadiusMM = 99.0
	TripleOuterRadiusMM = 107.0
	DoubleInnerRadiusMM = 162.0
	DoubleOuterRadiusMM = 170.0
)

// Normalized ring radii (fractions of the outer double edge).
const (
	BullseyeNorm    = BullseyeRadiusMM / DoubleOuterRadiusMM
	BullNorm        = BullRadiusMM / DoubleOuterRadiusMM
	TripleInnerNorm = TripleInnerRadiusMM / DoubleOuterRadiusMM
	TripleOuterNorm = TripleOuterRadiusMM / DoubleOuterRadiusMM
	DoubleInnerNorm = DoubleInnerRadiusMM / DoubleOuterRadiusMM
	DoubleOuterNorm = 1.0
)

// WedgeSpanDeg is the angular width of one scoring wedge.
const WedgeSpanDeg = 18.0

// RingBoundaries lists the six normalized ring radii from the centre out.
// Used by the radial stability clamp to detect near-ring points.
var RingBoundaries = [6]float64{
	BullseyeNorm, BullNorm, TripleInnerNorm, TripleOuterNorm, DoubleInnerNorm, DoubleOuterNorm,
}

// AngleDeg returns the clockwise-from-top board angle of a normalized-space
// point, in degrees normalized to [0,360).
func AngleDeg(x, y float64) float64 {
	deg := math.Atan2(x, y) * 180.0 / math.Pi
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// NormalizeDeg wraps an angle into [0,360).
func NormalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// WedgeIndexForAngle returns the wedge index i such that the wedge covers
// [18i-9, 18i+9) clockwise from top.
func WedgeIndexForAngle(angleDeg float64) int {
	shifted := NormalizeDeg(angleDeg + WedgeSpanDeg/2)
	return int(shifted/WedgeSpanDeg) % 20
}

// SegmentForAngle returns the printed segment number under the given angle.
func SegmentForAngle(angleDeg float64) int {
	return SegmentOrder[WedgeIndexForAngle(angleDeg)]
}

// WedgeCenterDeg returns the centre angle of a wedge index.
func WedgeCenterDeg(wedge int) float64 {
	return NormalizeDeg(float64(wedge) * WedgeSpanDeg)
}

// BoundaryDistanceDeg returns the angular distance, in degrees, from the
// given angle to the nearest wedge boundary (the wires at 18i±9).
func BoundaryDistanceDeg(angleDeg float64) float64 {
	shifted := NormalizeDeg(angleDeg + WedgeSpanDeg/2)
	inWedge := math.Mod(shifted, WedgeSpanDeg)
	return math.Min(inWedge, WedgeSpanDeg-inWedge)
}

// AngularDiffDeg returns the absolute difference between two angles in
// degrees, wrapped to [0,180].
func AngularDiffDeg(a, b float64) float64 {
	d := math.Abs(NormalizeDeg(a) - NormalizeDeg(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// WedgeAdjacent reports whether two wedge indices are the same wedge or
// angular neighbours.
func WedgeAdjacent(a, b int) bool {
	if a == b {
		return true
	}
	d := (a - b + 20) % 20
	return d == 1 || d == 19
}
