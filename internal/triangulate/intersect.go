package triangulate

import (
	"math"
	"sort"

	"github.com/dartsense/dartsense/internal/board"
)

// intersectLines computes the crossing of two infinite 2D lines, each given
// by two points. Returns ok=false for (near-)parallel lines.
func intersectLines(x1, y1, x2, y2, x3, y3, x4, y4 float64) (float64, float64, bool) {
	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(denom) < 1e-10 {
		return 0, 0, false
	}
	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / denom
	return x1 + t*(x2-x1), y1 + t*(y2-y1), true
}

// crossingSine returns |sin| of the angle between two directions.
func crossingSine(a, b board.Point) float64 {
	na := math.Hypot(a.X, a.Y)
	nb := math.Hypot(b.X, b.Y)
	if na < 1e-12 || nb < 1e-12 {
		return 0
	}
	return math.Abs(a.X*b.Y-a.Y*b.X) / (na * nb)
}

// pairwiseIntersections crosses every camera pair, dropping degenerate
// pairs: shallow crossing angles amplify tip noise into large positional
// error, and intersections far outside the board are geometric nonsense.
func pairwiseIntersections(obs []*Observation, cfg Config) []pairIntersection {
	var out []pairIntersection
	for i := 0; i < len(obs); i++ {
		for j := i + 1; j < len(obs); j++ {
			a, b := obs[i], obs[j]

			if crossingSine(a.Dir, b.Dir) < cfg.MinCrossingSine {
				continue
			}

			ix, iy, ok := intersectLines(
				a.LineStart.X, a.LineStart.Y, a.LineEnd.X, a.LineEnd.Y,
				b.LineStart.X, b.LineStart.Y, b.LineEnd.X, b.LineEnd.Y)
			if !ok {
				continue
			}

			ixDist := math.Hypot(ix, iy)
			if ixDist > cfg.MaxIntersectionRadius {
				continue
			}

			// Tip distance scaled down by detection quality: a confident
			// camera's disagreement counts for less.
			e1 := math.Hypot(ix-a.TipBoard.X, iy-a.TipBoard.Y) / math.Max(a.DetectionQuality, 1e-6)
			e2 := math.Hypot(ix-b.TipBoard.X, iy-b.TipBoard.Y) / math.Max(b.DetectionQuality, 1e-6)

			out = append(out, pairIntersection{
				cam1:       a.CameraID,
				cam2:       b.CameraID,
				point:      board.Point{X: ix, Y: iy},
				err1:       e1,
				err2:       e2,
				totalError: e1 + e2,
				score:      board.ScoreFromPoint(ix, iy),
				ixDist:     ixDist,
				reliable:   a.TipReliable && b.TipReliable,
				onBoard:    ixDist <= cfg.OffBoardRadius,
			})
		}
	}
	return out
}

// voteOutcome is the winner selected by the agreement hierarchy.
type voteOutcome struct {
	best       *pairIntersection
	method     string
	confidence float64
	topSegment int // the majority segment, 0 when no majority
}

// selectByVoting applies the three-tier agreement hierarchy over the
// per-camera votes:
//
//  1. UnanimousCam: every camera (>=3) votes the same segment.
//  2. Cam+1: a majority (>=2) agree; intersections touching an agreeing
//     camera are preferred.
//  3. BestError: no agreement; lowest total error wins.
//
// Segment ties in the majority count are broken by summed detection
// quality, so two confident cameras outvote two doubtful ones.
func selectByVoting(obs []*Observation, ix []pairIntersection, cfg Config) voteOutcome {
	counts := make(map[int]int)
	quality := make(map[int]float64)
	for _, o := range obs {
		counts[o.Vote.Segment]++
		quality[o.Vote.Segment] += o.DetectionQuality
	}

	segments := make([]int, 0, len(counts))
	for seg := range counts {
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool {
		if counts[segments[i]] != counts[segments[j]] {
			return counts[segments[i]] > counts[segments[j]]
		}
		if quality[segments[i]] != quality[segments[j]] {
			return quality[segments[i]] > quality[segments[j]]
		}
		return segments[i] < segments[j]
	})

	topSeg := segments[0]
	topCount := counts[topSeg]

	lowestError := func(candidates []*pairIntersection) *pairIntersection {
		var best *pairIntersection
		for _, c := range candidates {
			if best == nil || c.totalError < best.totalError {
				best = c
			}
		}
		return best
	}

	all := make([]*pairIntersection, len(ix))
	for i := range ix {
		all[i] = &ix[i]
	}

	switch {
	case topCount == len(obs) && len(obs) >= 3:
		return voteOutcome{best: lowestError(all), method: MethodUnanimousCam, confidence: 0.95, topSegment: topSeg}

	case topCount >= 2:
		agreeing := make(map[string]bool)
		for _, o := range obs {
			if o.Vote.Segment == topSeg {
				agreeing[o.CameraID] = true
			}
		}
		var touching []*pairIntersection
		for i := range ix {
			if agreeing[ix[i].cam1] || agreeing[ix[i].cam2] {
				touching = append(touching, &ix[i])
			}
		}
		best := lowestError(touching)
		if best == nil {
			best = lowestError(all)
		}
		return voteOutcome{best: best, method: MethodCamPlusOne, confidence: 0.8, topSegment: topSeg}

	default:
		return voteOutcome{best: lowestError(all), method: MethodBestError, confidence: 0.5}
	}
}
