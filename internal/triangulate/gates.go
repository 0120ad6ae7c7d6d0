package triangulate

import (
	"math"
	"sort"

	"github.com/dartsense/dartsense/internal/board"
)

// residualStats summarises how well the camera lines agree with a candidate
// point: the perpendicular residual of every line to the point (median and
// max), the maximum pairwise angular spread of the line directions, and the
// mean detection quality.
type residualStats struct {
	residuals      map[string]float64
	medianResidual float64
	maxResidual    float64
	spreadDeg      float64
	meanQuality    float64
}

// perpResidual is the perpendicular distance from a point to an
// observation's board-space line.
func perpResidual(o *Observation, p board.Point) float64 {
	n := math.Hypot(o.Dir.X, o.Dir.Y)
	if n < 1e-12 {
		return math.Hypot(p.X-o.TipBoard.X, p.Y-o.TipBoard.Y)
	}
	return math.Abs(-(p.X-o.TipBoard.X)*o.Dir.Y+(p.Y-o.TipBoard.Y)*o.Dir.X) / n
}

// computeStats evaluates residual statistics for the candidate point.
func computeStats(obs []*Observation, p board.Point) residualStats {
	st := residualStats{residuals: make(map[string]float64, len(obs))}

	rs := make([]float64, 0, len(obs))
	var qsum float64
	for _, o := range obs {
		r := perpResidual(o, p)
		st.residuals[o.CameraID] = r
		rs = append(rs, r)
		if r > st.maxResidual {
			st.maxResidual = r
		}
		qsum += o.DetectionQuality
	}
	sort.Float64s(rs)
	st.medianResidual = median(rs)
	st.meanQuality = qsum / float64(len(obs))
	st.spreadDeg = angularSpreadDeg(obs)
	return st
}

// median of an already-sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// angularSpreadDeg is the maximum pairwise crossing angle between the
// camera line directions. Directions are normalized to dy >= 0, so each
// angle lies in [0, 180) and the difference folds at 180°.
func angularSpreadDeg(obs []*Observation) float64 {
	var maxDiff float64
	for i := 0; i < len(obs); i++ {
		ai := math.Atan2(obs[i].Dir.Y, obs[i].Dir.X) * 180 / math.Pi
		for j := i + 1; j < len(obs); j++ {
			aj := math.Atan2(obs[j].Dir.Y, obs[j].Dir.X) * 180 / math.Pi
			d := math.Abs(ai - aj)
			if d > 180 {
				d = 360 - d
			}
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}

// compositeConfidence is the agreement score used both as a gate and as
// the final confidence input: tight residuals, wide camera geometry and
// strong detections all push it toward 1.
func compositeConfidence(st residualStats) float64 {
	return math.Exp(-5*st.medianResidual) * clamp(st.spreadDeg/60, 0, 1) * st.meanQuality
}

// gateState tracks the running confidence and the gate decisions taken.
type gateState struct {
	confidence float64
	capped     bool
	decisions  []string
}

func (g *gateState) capConfidence(cap float64, reason string) {
	if g.confidence > cap {
		g.confidence = cap
	}
	g.capped = true
	g.decisions = append(g.decisions, reason)
}

// applyEarlyGates runs the pre-fusion portion of the miss cascade against
// the pairwise winner. The first matching miss gate short-circuits; soft
// gates only cap confidence and let the pipeline continue. Returns a miss
// Result or nil.
func applyEarlyGates(obs []*Observation, win voteOutcome, st residualStats, g *gateState, cfg Config) *Result {
	// Off-board: the winning intersection itself is too far out.
	if win.best.ixDist > cfg.OffBoardRadius {
		g.decisions = append(g.decisions, "off_board")
		return missResult(MethodMissOffBoard, 0.7, win, obs)
	}

	// Doubles sanity: a scored double with every camera's own tip off the
	// board is a rim strike, not a double.
	if win.best.score.Multiplier == 2 {
		allOff := true
		for _, o := range obs {
			if o.TipDist <= cfg.DoublesOffBoardTipDist {
				allOff = false
				break
			}
		}
		if allOff {
			g.decisions = append(g.decisions, "doubles_all_off")
			return missResult(MethodMissDoublesOff, 0.7, win, obs)
		}
	}

	if st.maxResidual > cfg.ResidualHardMax {
		g.decisions = append(g.decisions, "residual_hard")
		return missResult(MethodMissResidualHard, g.confidence, win, obs)
	}
	if st.maxResidual > cfg.ResidualSoftMin {
		g.capConfidence(cfg.LowConfidenceCap, "residual_soft")
	}

	if st.spreadDeg < cfg.SpreadHardDeg && st.medianResidual > cfg.SpreadHardMedianResidual {
		g.decisions = append(g.decisions, "spread_hard")
		return missResult(MethodMissSpreadHard, g.confidence, win, obs)
	}
	if st.spreadDeg < cfg.SpreadSoftDeg && st.medianResidual > cfg.SpreadSoftMedianResidual {
		g.capConfidence(cfg.LowConfidenceCap, "spread_soft")
	}

	if compositeConfidence(st) < cfg.CompositeConfidenceMin {
		g.capConfidence(cfg.LowConfidenceCap, "composite_low")
	}

	return nil
}

// applyRadiusGates runs the post-fusion radius portion of the cascade on
// the final point. Returns a miss Result or nil.
func applyRadiusGates(obs []*Observation, win voteOutcome, p board.Point, g *gateState, cfg Config) *Result {
	radius := math.Hypot(p.X, p.Y)

	if radius > cfg.RadiusHard {
		g.decisions = append(g.decisions, "radius_hard")
		return missResult(MethodMissRadiusHard, g.confidence, win, obs)
	}
	if radius > cfg.RadiusSoft {
		if g.confidence < cfg.RadiusSoftMinConfidence {
			g.decisions = append(g.decisions, "radius_soft_low_conf")
			return missResult(MethodMissRadiusSoftConf, g.confidence, win, obs)
		}
		g.capConfidence(cfg.LowConfidenceCap, "radius_soft")
	}

	return nil
}

// missResult builds the standard miss outcome: segment 0, an explanatory
// method tag, and the per-camera votes preserved for diagnostics.
func missResult(method string, confidence float64, win voteOutcome, obs []*Observation) *Result {
	r := &Result{
		Method:     method,
		Confidence: confidence,
		PerCamera:  make(map[string]board.Score, len(obs)),
	}
	if win.best != nil {
		r.X = win.best.point.X
		r.Y = win.best.point.Y
		r.TotalError = win.best.totalError
	}
	for _, o := range obs {
		r.PerCamera[o.CameraID] = o.Vote
	}
	return r
}
