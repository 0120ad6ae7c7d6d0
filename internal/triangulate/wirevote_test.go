package triangulate

import (
	"math"
	"testing"

	"github.com/dartsense/dartsense/internal/board"
)

func TestWireVoteNotInvokedAwayFromBoundary(t *testing.T) {
	// Wedge centre, 9 degrees from either wire.
	p := board.Point{X: 0, Y: 0.6}
	out := wireVote(p, 0.004, DefaultConfig())
	if out.applied {
		t.Error("wire vote ran far from a boundary")
	}
	if out.segment != 20 {
		t.Errorf("segment = %d, want 20", out.segment)
	}

	// 5 degrees from the nearest wire must still not invoke it.
	rad := 4.0 * math.Pi / 180
	p = board.Point{X: 0.6 * math.Sin(rad), Y: 0.6 * math.Cos(rad)}
	if out := wireVote(p, 0.004, DefaultConfig()); out.applied {
		t.Error("wire vote ran 5 degrees from the boundary")
	}
}

func TestWireVoteAdoptsSupermajorityNeighbor(t *testing.T) {
	cfg := DefaultConfig()

	// Every perturbation sample lands in the neighbouring wedge.
	votes := map[int]int{1: 16, 0: 1}
	out := decideWireVote(votes, 0, 0.1, cfg)
	if !out.adopted {
		t.Fatal("expected the neighbour wedge to be adopted")
	}
	if out.segment != board.SegmentOrder[1] {
		t.Errorf("segment = %d, want %d", out.segment, board.SegmentOrder[1])
	}
	if out.lowConfidence {
		t.Error("a supermajority adoption is not low confidence")
	}
}

func TestWireVoteKeepsWedgeWithoutMajority(t *testing.T) {
	cfg := DefaultConfig()

	// Split tally outside the hard band: the direct wedge stands, flagged.
	votes := map[int]int{0: 9, 1: 8}
	out := decideWireVote(votes, 0, 0.4, cfg)
	if out.adopted {
		t.Error("adopted without a supermajority outside the hard band")
	}
	if out.segment != board.SegmentOrder[0] {
		t.Errorf("segment = %d, want %d", out.segment, board.SegmentOrder[0])
	}
	if !out.lowConfidence {
		t.Error("ambiguous vote must be flagged low confidence")
	}
}

func TestWireVoteHardBandPlurality(t *testing.T) {
	cfg := DefaultConfig()

	// On the wire itself a plain plurality decides, still flagged.
	votes := map[int]int{1: 9, 0: 8}
	out := decideWireVote(votes, 0, 0.1, cfg)
	if !out.adopted {
		t.Fatal("expected plurality adoption inside the hard band")
	}
	if out.segment != board.SegmentOrder[1] {
		t.Errorf("segment = %d, want %d", out.segment, board.SegmentOrder[1])
	}
	if !out.lowConfidence {
		t.Error("hard-band adoption must be flagged low confidence")
	}

	// Ties keep the direct wedge.
	votes = map[int]int{0: 8, 1: 8, 19: 1}
	out = decideWireVote(votes, 0, 0.1, cfg)
	if out.adopted {
		t.Error("a tie must not flip the wedge")
	}
}

func TestWireVoteSigmaTracksResidual(t *testing.T) {
	cfg := DefaultConfig()

	// Near-zero residual clamps sigma to the floor; the samples stay on
	// the direct side of a wire 0.3 degrees away and nothing flips.
	rad := (9.0 - 0.3) * math.Pi / 180
	p := board.Point{X: 0.6 * math.Sin(rad), Y: 0.6 * math.Cos(rad)}
	out := wireVote(p, 0.0001, cfg)
	if !out.applied {
		t.Fatal("expected wire vote to run 0.3 degrees from the wire")
	}
	if out.adopted {
		t.Error("tight samples must not flip the wedge")
	}
	if out.segment != 20 {
		t.Errorf("segment = %d, want 20", out.segment)
	}
}
