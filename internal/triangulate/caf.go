package triangulate

import (
	"math"
	"sort"

	"github.com/dartsense/dartsense/internal/board"
)

// cafOutcome is the angular-correction decision for a boundary-sensitive
// point: either a corrected point (applied=true) or a recorded decline.
type cafOutcome struct {
	point    board.Point
	applied  bool
	declined bool // boundary-sensitive but correction rejected
}

// wedgeSensitive reports whether a tangential nudge of epsilon (in either
// direction) flips the segment, i.e. the point sits on a wedge wire within
// measurement noise.
func wedgeSensitive(p board.Point, epsilon float64) bool {
	r := math.Hypot(p.X, p.Y)
	if r < 1e-9 {
		return false
	}
	// Unit tangent, perpendicular to the radius.
	tx := -p.Y / r
	ty := p.X / r

	seg := board.SegmentForAngle(board.AngleDeg(p.X, p.Y))
	segPlus := board.SegmentForAngle(board.AngleDeg(p.X+epsilon*tx, p.Y+epsilon*ty))
	segMinus := board.SegmentForAngle(board.AngleDeg(p.X-epsilon*tx, p.Y-epsilon*ty))
	return segPlus != seg || segMinus != seg
}

// circularMeanDeg computes the weighted circular mean of angles in degrees.
func circularMeanDeg(angles, weights []float64) (float64, bool) {
	var sx, sy, sw float64
	for i, a := range angles {
		w := weights[i]
		if w <= 0 {
			continue
		}
		rad := a * math.Pi / 180
		sx += w * math.Cos(rad)
		sy += w * math.Sin(rad)
		sw += w
	}
	if sw < 1e-12 || math.Hypot(sx, sy) < 1e-12 {
		return 0, false
	}
	return board.NormalizeDeg(math.Atan2(sy, sx) * 180 / math.Pi), true
}

// medianResidualAt is the median perpendicular residual of all camera lines
// to a candidate point.
func medianResidualAt(obs []*Observation, p board.Point) float64 {
	rs := make([]float64, 0, len(obs))
	for _, o := range obs {
		rs = append(rs, perpResidual(o, p))
	}
	sort.Float64s(rs)
	return median(rs)
}

// angularCluster returns the indices of the largest group of angles that
// all sit within spreadDeg of one member (a one-centre circular cluster).
func angularCluster(angles []float64, spreadDeg float64) []int {
	var best []int
	for i := range angles {
		var group []int
		for j := range angles {
			if board.AngularDiffDeg(angles[i], angles[j]) <= spreadDeg {
				group = append(group, j)
			}
		}
		if len(group) > len(best) {
			best = group
		}
	}
	return best
}

// majoritySegment returns the most common per-camera vote segment, or 0
// when the observations split evenly.
func majoritySegment(obs []*Observation) int {
	counts := make(map[int]int)
	for _, o := range obs {
		counts[o.Vote.Segment]++
	}
	bestSeg, bestCount, tied := 0, 0, false
	for seg, c := range counts {
		switch {
		case c > bestCount:
			bestSeg, bestCount, tied = seg, c, false
		case c == bestCount:
			tied = true
		}
	}
	if tied || bestCount < 2 {
		return 0
	}
	return bestSeg
}

// angularFusion corrects the angular coordinate of a boundary-sensitive
// point using a weighted circular mean of the per-camera tip angles,
// anchored by a prior toward the base-fusion angle. The radius of the
// current (clamp-stage) point never changes; only the wedge decision is at
// stake.
//
// The camera angles must first form a consistent cluster: at least two
// weighted cameras within the configured spread of each other. Acceptance
// is residual-driven in three tiers: a correction that tightens the median
// residual is taken outright; one that loosens it slightly is taken when
// it stays in the same wedge; a correction that crosses a wedge wire must
// either clear a stricter bound or agree with the camera majority vote.
func angularFusion(obs []*Observation, current, base board.Point, weights map[string]float64, cfg Config) cafOutcome {
	if !wedgeSensitive(current, cfg.CAFTangentialEpsilon) {
		return cafOutcome{point: current}
	}

	priorAngle := board.AngleDeg(base.X, base.Y)
	currentAngle := board.AngleDeg(current.X, current.Y)

	var angles, ws []float64
	for _, o := range obs {
		w := weights[o.CameraID]
		if w <= 0 {
			continue
		}
		angles = append(angles, board.AngleDeg(o.TipBoard.X, o.TipBoard.Y))
		ws = append(ws, w)
	}

	cluster := angularCluster(angles, cfg.CAFMaxSpreadDeg)
	if len(cluster) < 2 {
		return cafOutcome{point: current, declined: true}
	}

	fuseAngles := make([]float64, 0, len(cluster)+1)
	fuseWeights := make([]float64, 0, len(cluster)+1)
	for _, idx := range cluster {
		fuseAngles = append(fuseAngles, angles[idx])
		fuseWeights = append(fuseWeights, ws[idx])
	}
	fuseAngles = append(fuseAngles, priorAngle)
	fuseWeights = append(fuseWeights, cfg.CAFPriorWeight)

	fusedAngle, ok := circularMeanDeg(fuseAngles, fuseWeights)
	if !ok {
		return cafOutcome{point: current, declined: true}
	}

	radius := math.Hypot(current.X, current.Y)
	rad := fusedAngle * math.Pi / 180
	// AngleDeg measures clockwise from the top: x = r*sin, y = r*cos.
	candidate := board.Point{X: radius * math.Sin(rad), Y: radius * math.Cos(rad)}

	resCurrent := medianResidualAt(obs, current)
	resCandidate := medianResidualAt(obs, candidate)

	// Strict: the correction tightens the fit.
	if resCandidate <= resCurrent {
		return cafOutcome{point: candidate, applied: true}
	}

	softBound := resCurrent * (1 + cfg.CAFSoftRegression)
	candidateSeg := board.SegmentForAngle(fusedAngle)
	currentSeg := board.SegmentForAngle(currentAngle)

	if candidateSeg == currentSeg {
		// Soft: small regression tolerated when no wedge changes hands.
		if resCandidate <= softBound {
			return cafOutcome{point: candidate, applied: true}
		}
		return cafOutcome{point: current, declined: true}
	}

	// Wedge cross: stricter bound, or backing from the base-fusion wedge
	// or the camera majority.
	baseSeg := board.SegmentForAngle(priorAngle)
	if resCandidate <= softBound*cfg.CAFWedgeCrossFactor ||
		candidateSeg == baseSeg ||
		candidateSeg == majoritySegment(obs) {
		if resCandidate <= softBound {
			return cafOutcome{point: candidate, applied: true}
		}
	}
	return cafOutcome{point: current, declined: true}
}
