package triangulate

import (
	"math"
	"sort"

	"github.com/dartsense/dartsense/internal/board"
)

// wireVoteOutcome records the boundary-voting decision for a point close
// to a wedge wire.
type wireVoteOutcome struct {
	segment       int
	applied       bool // voting ran
	adopted       bool // the winning wedge differs from the direct one
	lowConfidence bool // ambiguity survived the vote
}

// wireVote disambiguates the wedge of a point sitting within
// WireVoteBandDeg of a wedge wire. The point is perturbed on a ring of
// WireVoteSamples fixed offsets whose radius tracks the measurement noise
// (2x the median residual, clamped), each perturbed position votes for a
// wedge, and the tally including the unperturbed point decides.
func wireVote(p board.Point, medianRes float64, cfg Config) wireVoteOutcome {
	angle := board.AngleDeg(p.X, p.Y)
	wedge := board.WedgeIndexForAngle(angle)
	out := wireVoteOutcome{segment: board.SegmentOrder[wedge]}

	boundaryDist := board.BoundaryDistanceDeg(angle)
	if boundaryDist >= cfg.WireVoteBandDeg {
		return out
	}

	sigma := clamp(2*medianRes, cfg.WireVoteSigmaMin, cfg.WireVoteSigmaMax)

	n := cfg.WireVoteSamples
	if n < 4 {
		n = 4
	}

	votes := make(map[int]int)
	votes[wedge]++ // the unperturbed point votes too
	for k := 0; k < n; k++ {
		phi := 2 * math.Pi * float64(k) / float64(n)
		w := board.WedgeIndexForAngle(board.AngleDeg(
			p.X+sigma*math.Cos(phi),
			p.Y+sigma*math.Sin(phi)))
		// Anything other than the current or an adjacent wedge is
		// measurement nonsense; collapse it back into the current wedge.
		if !board.WedgeAdjacent(w, wedge) {
			w = wedge
		}
		votes[w]++
	}

	return decideWireVote(votes, wedge, boundaryDist, cfg)
}

// decideWireVote applies the adoption rule to a completed tally. A wedge
// holding the supermajority is adopted outright. Failing that, inside the
// hard band the point is effectively on the wire: the plurality winner is
// adopted but the result is flagged low confidence. Outside the hard band
// the direct wedge stands, also flagged.
func decideWireVote(votes map[int]int, wedge int, boundaryDist float64, cfg Config) wireVoteOutcome {
	out := wireVoteOutcome{segment: board.SegmentOrder[wedge], applied: true}

	total := 0
	wedges := make([]int, 0, len(votes))
	for w, c := range votes {
		total += c
		wedges = append(wedges, w)
	}
	if total == 0 {
		return out
	}
	sort.Ints(wedges)

	// Ties keep the direct wedge.
	winner, winnerCount := wedge, votes[wedge]
	for _, w := range wedges {
		if votes[w] > winnerCount {
			winner, winnerCount = w, votes[w]
		}
	}

	if float64(winnerCount)/float64(total) >= cfg.WireVoteMajority {
		if winner != wedge {
			out.segment = board.SegmentOrder[winner]
			out.adopted = true
		}
		return out
	}

	if boundaryDist < cfg.WireVoteHardBandDeg {
		if winner != wedge {
			out.segment = board.SegmentOrder[winner]
			out.adopted = true
		}
		out.lowConfidence = true
		return out
	}

	out.lowConfidence = true
	return out
}
