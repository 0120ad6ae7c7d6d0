package tps

import (
	"math"
	"testing"

	"github.com/dartsense/dartsense/internal/board"
)

// testCalibration builds a synthetic camera with perfectly circular rings
// centred at (500, 500), 400px at the outer double, and wedge boundary rays
// every 18 degrees.
func testCalibration() *board.CameraCalibration {
	circle := func(norm float64) *board.Ellipse {
		return &board.Ellipse{CX: 500, CY: 500, Width: 2 * norm * 400, Height: 2 * norm * 400}
	}
	cal := &board.CameraCalibration{
		Center:             board.Point{X: 500, Y: 500},
		Segment20Index:     0,
		OuterDoubleEllipse: circle(board.DoubleOuterNorm),
		InnerDoubleEllipse: circle(board.DoubleInnerNorm),
		OuterTripleEllipse: circle(board.TripleOuterNorm),
		InnerTripleEllipse: circle(board.TripleInnerNorm),
		BullEllipse:        circle(board.BullNorm),
		BullseyeEllipse:    circle(board.BullseyeNorm),
	}
	for i := 0; i < 20; i++ {
		cal.SegmentAngles = append(cal.SegmentAngles, (float64(i)*18-9)*math.Pi/180)
	}
	return cal
}

func TestBuildControlPointCount(t *testing.T) {
	warp := Build(testCalibration())
	if !warp.Valid() {
		t.Fatal("expected valid transform from full calibration")
	}
	// Six rings and two mid-rings of 20 samples each, plus the centre.
	if got := warp.ControlPointCount(); got != 161 {
		t.Errorf("ControlPointCount() = %d, want 161", got)
	}
}

func TestWarpInterpolatesControlPoints(t *testing.T) {
	cal := testCalibration()
	warp := Build(cal)
	if !warp.Valid() {
		t.Fatal("invalid transform")
	}

	// The spline interpolates: every ring sample must land exactly on its
	// normalized destination.
	rings := []struct {
		ellipse *board.Ellipse
		norm    float64
	}{
		{cal.OuterDoubleEllipse, board.DoubleOuterNorm},
		{cal.InnerTripleEllipse, board.TripleInnerNorm},
		{cal.BullseyeEllipse, board.BullseyeNorm},
	}
	for _, ring := range rings {
		for idx := 0; idx < 20; idx += 5 {
			px, py, ok := ring.ellipse.SampleAtAngle(cal.SegmentAngles[idx], 500, 500)
			if !ok {
				t.Fatalf("sample failed at ring %v idx %d", ring.norm, idx)
			}
			x, y := warp.Warp(px, py)
			angleCW := (float64(idx)*board.WedgeSpanDeg - 9.0) * math.Pi / 180
			wantX := ring.norm * math.Sin(angleCW)
			wantY := ring.norm * math.Cos(angleCW)
			if math.Abs(x-wantX) > 1e-6 || math.Abs(y-wantY) > 1e-6 {
				t.Errorf("ring %.3f idx %d: warp = (%.6f, %.6f), want (%.6f, %.6f)",
					ring.norm, idx, x, y, wantX, wantY)
			}
		}
	}
}

func TestWarpCentreAnchor(t *testing.T) {
	warp := Build(testCalibration())
	x, y := warp.Warp(500, 500)
	if math.Hypot(x, y) > 1e-6 {
		t.Errorf("centre warps to (%v, %v), want origin", x, y)
	}
}

func TestWarpRadiusBetweenRings(t *testing.T) {
	warp := Build(testCalibration())

	// A pixel between the triple and double rings must land radially
	// between them after warping.
	px := 500 + 0.75*400
	x, y := warp.Warp(px, 500)
	r := math.Hypot(x, y)
	if r < board.TripleOuterNorm || r > board.DoubleInnerNorm {
		t.Errorf("warped radius %v outside (%v, %v)", r, board.TripleOuterNorm, board.DoubleInnerNorm)
	}
}

func TestBuildDegenerateCalibration(t *testing.T) {
	if Build(nil).Valid() {
		t.Error("nil calibration must produce an invalid transform")
	}

	cal := testCalibration()
	cal.OuterDoubleEllipse = nil
	cal.InnerDoubleEllipse = nil
	cal.OuterTripleEllipse = nil
	cal.InnerTripleEllipse = nil
	cal.BullEllipse = nil
	cal.BullseyeEllipse = nil
	warp := Build(cal)
	if warp.Valid() {
		t.Error("calibration with no rings must produce an invalid transform")
	}

	x, y := warp.Warp(123, 456)
	if x != 0 || y != 0 {
		t.Errorf("invalid transform warps to (%v, %v), want origin", x, y)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	warp := Build(testCalibration())
	inv := warp.Inverse()
	if !inv.Valid() {
		t.Fatal("inverse transform invalid")
	}

	pts := [][2]float64{{500 + 200, 500}, {500, 500 - 300}, {500 + 150, 500 + 150}}
	for _, p := range pts {
		bx, by := warp.Warp(p[0], p[1])
		px, py := inv.Warp(bx, by)
		if math.Abs(px-p[0]) > 0.5 || math.Abs(py-p[1]) > 0.5 {
			t.Errorf("round trip of (%v, %v) = (%v, %v)", p[0], p[1], px, py)
		}
	}
}
