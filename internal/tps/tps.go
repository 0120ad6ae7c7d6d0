// Package tps implements the thin-plate-spline warp from camera pixel
// coordinates to normalized board coordinates.
//
// The transform is built once per camera at calibration time from ring
// ellipse samples, and is immutable afterwards. Evaluation is the
// closed-form spline sum plus an affine term, so warping points during
// detection involves no solving.
package tps

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dartsense/dartsense/internal/board"
)

// minControlPoints is the smallest control set the TPS system accepts; the
// (N+3)x(N+3) system is singular below this.
const minControlPoints = 4

// Transform is an immutable pixel -> normalized-board thin-plate-spline
// warp. A zero Transform is invalid; use Build.
type Transform struct {
	srcX, srcY []float64 // control points, pixel space
	wx, wy     []float64 // spline weights, then affine a0, ax, ay
	valid      bool
}

// Valid reports whether the transform was built from enough control points.
// Callers must skip cameras with invalid transforms.
func (t *Transform) Valid() bool { return t != nil && t.valid }

// ControlPointCount returns the number of spline control points.
func (t *Transform) ControlPointCount() int { return len(t.srcX) }

// basis is the TPS radial kernel r² log r.
func basis(r float64) float64 {
	if r < 1e-10 {
		return 0
	}
	return r * r * math.Log(r)
}

func basisDist(x1, y1, x2, y2 float64) float64 {
	return basis(math.Hypot(x1-x2, y1-y2))
}

// Warp maps a pixel-space point into normalized board space. An invalid
// transform maps everything to the origin.
func (t *Transform) Warp(px, py float64) (x, y float64) {
	if !t.Valid() {
		return 0, 0
	}

	n := len(t.srcX)
	for i := 0; i < n; i++ {
		phi := basisDist(px, py, t.srcX[i], t.srcY[i])
		x += t.wx[i] * phi
		y += t.wy[i] * phi
	}
	x += t.wx[n] + t.wx[n+1]*px + t.wx[n+2]*py
	y += t.wy[n] + t.wy[n+1]*px + t.wy[n+2]*py
	return x, y
}

// ringSpec pairs a calibrated ellipse with its normalized board radius.
type ringSpec struct {
	ellipse    *board.Ellipse
	normRadius float64
}

// Build assembles the control-point correspondences from the camera's ring
// ellipses and solves the TPS system. Up to 161 control points: 20 angles
// for each of the six rings, two interpolated mid-radius rings covering the
// large unconstrained gaps between bull and triple and between triple and
// double, and the board centre anchored to the origin.
//
// Returns an invalid Transform (never an error) when fewer than four
// control points could be sampled or the solve is singular; degenerate
// calibration is a per-camera condition the caller skips, not a failure of
// the whole board.
func Build(cal *board.CameraCalibration) *Transform {
	t := &Transform{}
	if cal == nil || len(cal.SegmentAngles) < 20 {
		return t
	}

	cx, cy := cal.Center.X, cal.Center.Y

	rings := []ringSpec{
		{cal.OuterDoubleEllipse, board.DoubleOuterNorm},
		{cal.InnerDoubleEllipse, board.DoubleInnerNorm},
		{cal.OuterTripleEllipse, board.TripleOuterNorm},
		{cal.InnerTripleEllipse, board.TripleInnerNorm},
		{cal.BullEllipse, board.BullNorm},
		{cal.BullseyeEllipse, board.BullseyeNorm},
	}

	var srcX, srcY, dstX, dstY []float64

	appendPoint := func(px, py float64, angleIdx int, normRadius float64) {
		boardIdx := ((angleIdx-cal.Segment20Index)%20 + 20) % 20
		// Calibration rays are wedge boundaries, offset -9° from centres.
		angleCW := (float64(boardIdx)*board.WedgeSpanDeg - 9.0) * math.Pi / 180
		srcX = append(srcX, px)
		srcY = append(srcY, py)
		dstX = append(dstX, normRadius*math.Sin(angleCW))
		dstY = append(dstY, normRadius*math.Cos(angleCW))
	}

	for _, ring := range rings {
		if ring.ellipse == nil {
			continue
		}
		for idx := 0; idx < 20; idx++ {
			px, py, ok := ring.ellipse.SampleAtAngle(cal.SegmentAngles[idx], cx, cy)
			if !ok {
				continue
			}
			appendPoint(px, py, idx, ring.normRadius)
		}
	}

	// Mid-radius rings: interpolated between bull/triple-inner and
	// triple-outer/double-inner. The single beds between those rings are
	// otherwise unconstrained and the warp drifts there.
	midRings := []struct {
		inner, outer *board.Ellipse
		normRadius   float64
	}{
		{cal.BullEllipse, cal.InnerTripleEllipse, (board.BullRadiusMM + board.TripleInnerRadiusMM) / 2 / board.DoubleOuterRadiusMM},
		{cal.OuterTripleEllipse, cal.InnerDoubleEllipse, (board.TripleOuterRadiusMM + board.DoubleInnerRadiusMM) / 2 / board.DoubleOuterRadiusMM},
	}
	for _, mr := range midRings {
		if mr.inner == nil || mr.outer == nil {
			continue
		}
		for idx := 0; idx < 20; idx++ {
			ix, iy, iok := mr.inner.SampleAtAngle(cal.SegmentAngles[idx], cx, cy)
			ox, oy, ook := mr.outer.SampleAtAngle(cal.SegmentAngles[idx], cx, cy)
			if !iok || !ook {
				continue
			}
			appendPoint((ix+ox)/2, (iy+oy)/2, idx, mr.normRadius)
		}
	}

	// Centre anchor.
	srcX = append(srcX, cx)
	srcY = append(srcY, cy)
	dstX = append(dstX, 0)
	dstY = append(dstY, 0)

	return solve(srcX, srcY, dstX, dstY)
}

// Inverse builds the normalized-board -> pixel warp by solving the same TPS
// system with source and destination swapped. Used by the plotting tools to
// reproject the ideal board onto a camera view for calibration checks.
func (t *Transform) Inverse() *Transform {
	if !t.Valid() {
		return &Transform{}
	}
	// Recover destination points by warping the stored sources.
	n := len(t.srcX)
	dstX := make([]float64, n)
	dstY := make([]float64, n)
	for i := 0; i < n; i++ {
		dstX[i], dstY[i] = t.Warp(t.srcX[i], t.srcY[i])
	}
	return solve(dstX, dstY, t.srcX, t.srcY)
}

// solve builds and solves the (N+3)x(N+3) TPS system
//
//	[K  P] [w]   [v]
//	[Pᵀ 0] [a] = [0]
//
// with K the kernel matrix and P = [1 x y]. The system is symmetric but
// indefinite and close to singular when many control points are
// co-circular, so an ill-conditioned solve is tolerated; only a hard
// singularity invalidates the transform.
func solve(srcX, srcY, dstX, dstY []float64) *Transform {
	t := &Transform{}
	n := len(srcX)
	if n < minControlPoints {
		return t
	}

	m := n + 3
	l := mat.NewDense(m, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			l.Set(i, j, basisDist(srcX[i], srcY[i], srcX[j], srcY[j]))
		}
		l.Set(i, n, 1)
		l.Set(i, n+1, srcX[i])
		l.Set(i, n+2, srcY[i])
		l.Set(n, i, 1)
		l.Set(n+1, i, srcX[i])
		l.Set(n+2, i, srcY[i])
	}

	rhs := mat.NewDense(m, 2, nil)
	for i := 0; i < n; i++ {
		rhs.Set(i, 0, dstX[i])
		rhs.Set(i, 1, dstY[i])
	}

	var sol mat.Dense
	if err := sol.Solve(l, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return t
		}
		// Ill-conditioned but solved; acceptable for TPS systems.
	}

	t.srcX = append([]float64(nil), srcX...)
	t.srcY = append([]float64(nil), srcY...)
	t.wx = make([]float64, m)
	t.wy = make([]float64, m)
	for i := 0; i < m; i++ {
		t.wx[i] = sol.At(i, 0)
		t.wy[i] = sol.At(i, 1)
	}
	t.valid = true
	return t
}
