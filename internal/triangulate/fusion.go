package triangulate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dartsense/dartsense/internal/board"
)

// fusionOutcome is the point produced by one fusion stage, with the
// per-camera weights that produced it.
type fusionOutcome struct {
	point   board.Point
	weights map[string]float64
	method  string
}

// solveFusedPoint finds the point minimising the weighted sum of squared
// perpendicular distances to every camera line, with Huber reweighting on
// the residuals (IRLS). The base weights are fixed per camera; the Huber
// factor adapts each iteration.
func solveFusedPoint(obs []*Observation, baseWeights map[string]float64, start board.Point, iterations int, huberDelta float64) (board.Point, bool) {
	if len(obs) < 2 {
		return start, false
	}
	if iterations < 1 {
		iterations = 1
	}

	p := start
	for iter := 0; iter < iterations; iter++ {
		var a00, a01, a11, b0, b1 float64
		for _, o := range obs {
			w := baseWeights[o.CameraID]
			if w <= 0 {
				continue
			}
			r := perpResidual(o, p)
			if r > huberDelta {
				w *= huberDelta / r
			}

			n := math.Hypot(o.Dir.X, o.Dir.Y)
			if n < 1e-12 {
				continue
			}
			dx := o.Dir.X / n
			dy := o.Dir.Y / n

			// Projector onto the line normal: I - d d^T.
			p00 := 1 - dx*dx
			p01 := -dx * dy
			p11 := 1 - dy*dy

			a00 += w * p00
			a01 += w * p01
			a11 += w * p11
			b0 += w * (p00*o.TipBoard.X + p01*o.TipBoard.Y)
			b1 += w * (p01*o.TipBoard.X + p11*o.TipBoard.Y)
		}

		A := mat.NewDense(2, 2, []float64{a00, a01, a01, a11})
		rhs := mat.NewVecDense(2, []float64{b0, b1})
		var sol mat.VecDense
		if err := sol.SolveVec(A, rhs); err != nil {
			return start, false
		}
		p = board.Point{X: sol.AtVec(0), Y: sol.AtVec(1)}
	}

	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return start, false
	}
	return p, true
}

// baseFusion runs the strict-Huber fusion seeded from the pairwise winner,
// weighted by detection quality and mask quality. The fused point is only
// adopted when it stays on-board and does not wander far from the winner.
func baseFusion(obs []*Observation, winner board.Point, cfg Config) (fusionOutcome, bool) {
	weights := make(map[string]float64, len(obs))
	for _, o := range obs {
		w := o.DetectionQuality
		if o.MaskQuality > 0 {
			w *= o.MaskQuality
		}
		weights[o.CameraID] = w
	}

	p, ok := solveFusedPoint(obs, weights, winner, cfg.FusionIterations, cfg.FusionHuberDelta)
	if !ok {
		return fusionOutcome{}, false
	}

	if math.Hypot(p.X, p.Y) > cfg.FusionMaxRadius {
		return fusionOutcome{}, false
	}
	if math.Hypot(p.X-winner.X, p.Y-winner.Y) > cfg.FusionMaxShift {
		return fusionOutcome{}, false
	}

	return fusionOutcome{point: p, weights: weights, method: MethodFusion}, true
}

// bcwtWeight scores one camera's trustworthiness for the confidence-weighted
// refit. The pixel-count, aspect, inlier and mask sub-scores come straight
// from the detection; the angle, tip and stability sub-scores have no
// upstream source yet and sit at their configured defaults.
func bcwtWeight(o *Observation, cfg Config) float64 {
	sPx := math.Min(1, float64(o.BarrelPixelCount)/200.0)
	sAspect := math.Min(1, o.BarrelAspectRatio/8.0)
	sInlier := clamp(o.InlierRatio, 0, 1)
	sMask := clamp(o.MaskQuality, 0, 1)

	return 0.20*sPx +
		0.15*sAspect +
		0.15*sInlier +
		0.15*sMask +
		0.15*cfg.BCWTDefaultAngleScore +
		0.10*cfg.BCWTDefaultTipScore +
		0.10*cfg.BCWTDefaultStabilityScore
}

// bcwtFusion refits the fused point with per-camera confidence weights,
// excluding low-weight cameras. It needs at least two surviving cameras
// whose lines span a real angular range; a near-parallel remainder cannot
// localise a point and the stage declines.
func bcwtFusion(obs []*Observation, base fusionOutcome, cfg Config) (fusionOutcome, bool) {
	weights := make(map[string]float64, len(obs))
	var kept []*Observation
	for _, o := range obs {
		w := bcwtWeight(o, cfg)
		if w < cfg.BCWTMinWeight {
			if !cfg.BCWTSoftInclude {
				continue
			}
			w = cfg.BCWTMinWeight / 2
		}
		weights[o.CameraID] = w
		kept = append(kept, o)
	}

	if len(kept) < 2 {
		return fusionOutcome{}, false
	}
	if angularSpreadDeg(kept) < cfg.BCWTMinAngularRangeDeg {
		return fusionOutcome{}, false
	}

	p, ok := solveFusedPoint(kept, weights, base.point, cfg.FusionIterations, 0.1)
	if !ok {
		return fusionOutcome{}, false
	}
	if math.Hypot(p.X, p.Y) > cfg.FusionMaxRadius {
		return fusionOutcome{}, false
	}

	return fusionOutcome{point: p, weights: weights, method: MethodBCWT}, true
}

// nearRingBoundary reports whether the radius sits within tol of any
// scoring ring boundary, where a small radial shift flips the multiplier.
func nearRingBoundary(radius, tol float64) bool {
	for _, rb := range board.RingBoundaries {
		if math.Abs(radius-rb) <= tol {
			return true
		}
	}
	return false
}

// applyRadialClamp guards against the confidence-weighted refit dragging
// the radius across a ring wire. When the refit moved the radius by more
// than ClampRadiusDelta while either the base or the refit radius sits
// near a ring boundary, the refit's radius is rejected: either fall back
// to the base point entirely or keep the refit's angle on the base radius
// (hybrid).
func applyRadialClamp(base, refit fusionOutcome, cfg Config) fusionOutcome {
	rBase := math.Hypot(base.point.X, base.point.Y)
	rRefit := math.Hypot(refit.point.X, refit.point.Y)

	if math.Abs(rRefit-rBase) <= cfg.ClampRadiusDelta ||
		(!nearRingBoundary(rBase, cfg.ClampRingProximity) && !nearRingBoundary(rRefit, cfg.ClampRingProximity)) {
		return refit
	}

	if !cfg.ClampHybrid {
		clamped := base
		clamped.weights = refit.weights
		clamped.method = MethodRadialClamp
		return clamped
	}

	// Hybrid: refit angle, base radius.
	theta := math.Atan2(refit.point.Y, refit.point.X)
	return fusionOutcome{
		point:   board.Point{X: rBase * math.Cos(theta), Y: rBase * math.Sin(theta)},
		weights: refit.weights,
		method:  MethodRadialClampHybrid,
	}
}
