package triangulate

import (
	"math"
	"testing"

	"github.com/dartsense/dartsense/internal/board"
)

// polarPt returns the board point at the given clockwise-from-top angle
// and radius.
func polarPt(angleDeg, r float64) board.Point {
	rad := angleDeg * math.Pi / 180
	return board.Point{X: r * math.Sin(rad), Y: r * math.Cos(rad)}
}

// wireObs places a tip at the given board angle with its x coordinate
// pinned, running the camera line vertically through it. Vertical lines
// make the perpendicular residual of any candidate simply |x - tipX|.
func wireObs(id string, angleDeg, tipX float64, voteSeg int) *Observation {
	r := tipX / math.Sin(angleDeg*math.Pi/180)
	tip := polarPt(angleDeg, r)
	return &Observation{
		CameraID:  id,
		LineStart: board.Point{X: tip.X, Y: tip.Y - 1},
		LineEnd:   board.Point{X: tip.X, Y: tip.Y + 1},
		TipBoard:  tip,
		Dir:       board.Point{X: 0, Y: 1},
		Vote:      board.Score{Segment: voteSeg},
	}
}

func TestWedgeSensitive(t *testing.T) {
	// On the 20/1 wire a tangential nudge flips the segment.
	if !wedgeSensitive(polarPt(9, 0.6), 0.005) {
		t.Error("point on the 9 degree wire should be wedge sensitive")
	}
	// Wedge centre: the nudge stays well inside segment 20.
	if wedgeSensitive(polarPt(0, 0.6), 0.005) {
		t.Error("wedge centre should not be wedge sensitive")
	}
	if wedgeSensitive(board.Point{}, 0.005) {
		t.Error("origin should not be wedge sensitive")
	}
}

func TestCircularMeanDeg(t *testing.T) {
	got, ok := circularMeanDeg([]float64{350, 10}, []float64{1, 1})
	if !ok {
		t.Fatal("mean of a tight pair failed")
	}
	if board.AngularDiffDeg(got, 0) > 1e-9 {
		t.Errorf("mean of 350 and 10 = %v, want 0", got)
	}

	got, ok = circularMeanDeg([]float64{0, 90}, []float64{3, 1})
	if !ok {
		t.Fatal("weighted mean failed")
	}
	want := math.Atan2(1, 3) * 180 / math.Pi
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("weighted mean = %v, want %v", got, want)
	}

	if _, ok := circularMeanDeg([]float64{10, 20}, []float64{0, 0}); ok {
		t.Error("expected failure with no positive weights")
	}
	if _, ok := circularMeanDeg([]float64{0, 180}, []float64{1, 1}); ok {
		t.Error("expected failure for an antipodal pair")
	}
}

func TestAngularCluster(t *testing.T) {
	cluster := angularCluster([]float64{10, 12, 14, 100}, 6)
	if len(cluster) != 3 {
		t.Fatalf("cluster size = %d, want 3", len(cluster))
	}
	for _, idx := range cluster {
		if idx == 3 {
			t.Error("outlier angle 100 included in the cluster")
		}
	}
}

func TestAngularFusionSkipsStablePoints(t *testing.T) {
	center := polarPt(0, 0.6)
	obs := threeCameraScene(center, 0.9)
	w := map[string]float64{"cam0": 1, "cam1": 1, "cam2": 1}

	out := angularFusion(obs, center, center, w, DefaultConfig())
	if out.applied || out.declined {
		t.Errorf("applied = %v, declined = %v, want neither for a wedge-centre point", out.applied, out.declined)
	}
	if out.point != center {
		t.Errorf("point = %v, want unchanged %v", out.point, center)
	}
}

func TestAngularFusionStrictAccept(t *testing.T) {
	// All cameras agree on a tip two degrees inside segment 20; the clamp
	// stage left the point exactly on the 20/1 wire.
	target := polarPt(7, 0.6)
	obs := threeCameraScene(target, 0.9)
	w := map[string]float64{"cam0": 1, "cam1": 1, "cam2": 1}
	current := polarPt(9, 0.6)

	out := angularFusion(obs, current, target, w, DefaultConfig())
	if !out.applied {
		t.Fatal("expected the correction to be applied")
	}
	if a := board.AngleDeg(out.point.X, out.point.Y); board.AngularDiffDeg(a, 7) > 1e-9 {
		t.Errorf("corrected angle = %v, want 7", a)
	}
	if r := math.Hypot(out.point.X, out.point.Y); math.Abs(r-0.6) > 1e-12 {
		t.Errorf("radius = %v, want 0.6 preserved", r)
	}
}

func TestAngularFusionPriorPullsTowardBase(t *testing.T) {
	// Two cameras see the tip at 12 degrees, the base fusion sits at 6:
	// the corrected angle is the weighted circular mean with the prior at
	// its configured weight.
	tip := polarPt(12, 0.6)
	obs := []*Observation{
		synthObs("cam0", board.Point{X: 0, Y: 2}, tip, 0.9),
		synthObs("cam1", board.Point{X: 1.732, Y: -1}, tip, 0.9),
	}
	w := map[string]float64{"cam0": 1, "cam1": 1}
	base := polarPt(6, 0.6)
	current := polarPt(9.3, 0.6)
	cfg := DefaultConfig()

	out := angularFusion(obs, current, base, w, cfg)
	if !out.applied {
		t.Fatal("expected the correction to be applied")
	}

	rad := func(d float64) float64 { return d * math.Pi / 180 }
	sx := 2*math.Cos(rad(12)) + cfg.CAFPriorWeight*math.Cos(rad(6))
	sy := 2*math.Sin(rad(12)) + cfg.CAFPriorWeight*math.Sin(rad(6))
	want := math.Atan2(sy, sx) * 180 / math.Pi

	if a := board.AngleDeg(out.point.X, out.point.Y); board.AngularDiffDeg(a, want) > 1e-9 {
		t.Errorf("corrected angle = %v, want blended %v", a, want)
	}
	if r := math.Hypot(out.point.X, out.point.Y); math.Abs(r-0.6) > 1e-12 {
		t.Errorf("radius = %v, want 0.6 preserved", r)
	}
}

func TestAngularFusionDeclinesScatteredCameras(t *testing.T) {
	// Tip angles 50 degrees apart: no cluster of two forms.
	obs := []*Observation{
		synthObs("cam0", board.Point{X: 0, Y: 2}, polarPt(30, 0.6), 0.9),
		synthObs("cam1", board.Point{X: 1.732, Y: -1}, polarPt(80, 0.6), 0.9),
	}
	w := map[string]float64{"cam0": 1, "cam1": 1}
	current := polarPt(9, 0.6)

	out := angularFusion(obs, current, current, w, DefaultConfig())
	if !out.declined || out.applied {
		t.Errorf("applied = %v, declined = %v, want a decline", out.applied, out.declined)
	}
	if out.point != current {
		t.Errorf("point = %v, want unchanged %v", out.point, current)
	}
}

func TestAngularFusionSoftAccept(t *testing.T) {
	// The candidate regresses the median residual by ~2.9% while staying
	// in segment 1: inside the soft tolerance, the correction is taken.
	obs := []*Observation{
		wireObs("cam0", 10, 0.08, 1),
		wireObs("cam1", 12, 0.114, 1),
	}
	w := map[string]float64{"cam0": 1, "cam1": 1}
	base := polarPt(11, 0.6)
	current := polarPt(9.3, 0.6)

	out := angularFusion(obs, current, base, w, DefaultConfig())
	if !out.applied {
		t.Fatal("expected a soft accept")
	}
	if a := board.AngleDeg(out.point.X, out.point.Y); board.AngularDiffDeg(a, 11) > 1e-9 {
		t.Errorf("corrected angle = %v, want 11", a)
	}
}

func TestAngularFusionSoftDecline(t *testing.T) {
	// Same wedge, but the candidate more than doubles the median residual:
	// both the strict and the soft tier reject it.
	obs := []*Observation{
		wireObs("cam0", 10, 0.08, 1),
		wireObs("cam1", 12, 0.100, 1),
	}
	w := map[string]float64{"cam0": 1, "cam1": 1}
	base := polarPt(11, 0.6)
	current := polarPt(9.3, 0.6)

	out := angularFusion(obs, current, base, w, DefaultConfig())
	if !out.declined || out.applied {
		t.Errorf("applied = %v, declined = %v, want a decline", out.applied, out.declined)
	}
	if out.point != current {
		t.Errorf("point = %v, want unchanged %v", out.point, current)
	}
}

func TestAngularFusionWedgeCross(t *testing.T) {
	cfg := DefaultConfig()
	rad := func(d float64) float64 { return d * math.Pi / 180 }

	// Cameras see the tip just inside segment 20 while the clamp stage
	// left the point in segment 1; the prior sits with the current point.
	// The candidate crosses the 9 degree wire with a residual inside the
	// soft bound but outside the stricter crossing bound, so acceptance
	// hinges on the camera majority vote.
	sx := math.Cos(rad(6)) + math.Cos(rad(8)) + cfg.CAFPriorWeight*math.Cos(rad(9.3))
	sy := math.Sin(rad(6)) + math.Sin(rad(8)) + cfg.CAFPriorWeight*math.Sin(rad(9.3))
	fused := math.Atan2(sy, sx) * 180 / math.Pi
	xCand := 0.6 * math.Sin(rad(fused))

	base := polarPt(9.3, 0.6)
	current := polarPt(9.3, 0.6)
	w := map[string]float64{"cam0": 1, "cam1": 1}

	t.Run("camera majority backs the cross", func(t *testing.T) {
		obs := []*Observation{
			wireObs("cam0", 6, xCand+0.0004, 20),
			wireObs("cam1", 8, 0.1, 20),
		}
		out := angularFusion(obs, current, base, w, cfg)
		if !out.applied {
			t.Fatal("expected the backed wedge cross to be applied")
		}
		a := board.AngleDeg(out.point.X, out.point.Y)
		if seg := board.SegmentForAngle(a); seg != 20 {
			t.Errorf("corrected segment = %d, want 20", seg)
		}
	})

	t.Run("unbacked cross declines", func(t *testing.T) {
		obs := []*Observation{
			wireObs("cam0", 6, xCand+0.0004, 20),
			wireObs("cam1", 8, 0.1, 1),
		}
		out := angularFusion(obs, current, base, w, cfg)
		if !out.declined || out.applied {
			t.Errorf("applied = %v, declined = %v, want a decline", out.applied, out.declined)
		}
		if out.point != current {
			t.Errorf("point = %v, want unchanged %v", out.point, current)
		}
	})
}
