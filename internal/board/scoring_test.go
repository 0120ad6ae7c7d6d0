package board

import (
	"math"
	"testing"
)

func TestScoreFromPolarZones(t *testing.T) {
	tests := []struct {
		name       string
		angle      float64
		dist       float64
		segment    int
		multiplier int
		score      int
		zone       string
	}{
		{"inner bull", 123, 0.02, 25, 2, 50, ZoneInnerBull},
		{"outer bull", 300, 0.07, 0, 1, 25, ZoneOuterBull},
		{"single inner 20", 0, 0.3, 20, 1, 20, ZoneSingleInner},
		{"triple 20", 0, 0.6, 20, 3, 60, ZoneTriple},
		{"single outer 20", 0, 0.8, 20, 1, 20, ZoneSingleOuter},
		{"double 20", 0, 0.98, 20, 2, 40, ZoneDouble},
		{"double 3 at bottom", 180, 0.97, 3, 2, 6, ZoneDouble},
		{"just past the rim still double", 0, 1.04, 20, 2, 40, ZoneDouble},
		{"miss", 0, 1.06, 0, 0, 0, ZoneMiss},
		{"single 18", 36, 0.4, 18, 1, 18, ZoneSingleInner},
		{"triple 6 to the right", 90, 0.61, 6, 3, 18, ZoneTriple},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreFromPolar(tt.angle, tt.dist)
			if s.Segment != tt.segment || s.Multiplier != tt.multiplier || s.Score != tt.score {
				t.Errorf("ScoreFromPolar(%v, %v) = %d x%d = %d, want %d x%d = %d",
					tt.angle, tt.dist, s.Segment, s.Multiplier, s.Score,
					tt.segment, tt.multiplier, tt.score)
			}
			if s.Zone != tt.zone {
				t.Errorf("zone = %q, want %q", s.Zone, tt.zone)
			}
		})
	}
}

func TestScoreFromPoint(t *testing.T) {
	// Straight up at triple-ring depth is the treble 20.
	s := ScoreFromPoint(0, (TripleInnerNorm+TripleOuterNorm)/2)
	if s.Score != 60 {
		t.Errorf("expected treble 20 (60), got %d x%d", s.Segment, s.Multiplier)
	}

	// Straight down at the same depth is the treble 3.
	s = ScoreFromPoint(0, -(TripleInnerNorm+TripleOuterNorm)/2)
	if s.Score != 9 {
		t.Errorf("expected treble 3 (9), got %d x%d", s.Segment, s.Multiplier)
	}
}

// circularCalibration builds a synthetic camera calibration with perfectly
// circular rings centred at (500, 500) with 400px at the outer double, and
// wedge boundaries every 18 degrees with segment 20 at index 0.
func circularCalibration() *CameraCalibration {
	px := func(norm float64) float64 { return norm * 400 }
	circle := func(norm float64) *Ellipse {
		return &Ellipse{CX: 500, CY: 500, Width: 2 * px(norm), Height: 2 * px(norm)}
	}

	cal := &CameraCalibration{
		Center:             Point{X: 500, Y: 500},
		Segment20Index:     0,
		BullseyeEllipse:    circle(BullseyeNorm),
		BullEllipse:        circle(BullNorm),
		InnerTripleEllipse: circle(TripleInnerNorm),
		OuterTripleEllipse: circle(TripleOuterNorm),
		InnerDoubleEllipse: circle(DoubleInnerNorm),
		OuterDoubleEllipse: circle(DoubleOuterNorm),
	}
	for i := 0; i < 20; i++ {
		// Boundary angles in image space (atan2 convention, radians).
		cal.SegmentAngles = append(cal.SegmentAngles, float64(i)*18*math.Pi/180-9*math.Pi/180)
	}
	return cal
}

func TestScoreFromCalibration(t *testing.T) {
	cal := circularCalibration()

	tests := []struct {
		name       string
		dx, dy     float64 // offset from calibration centre, pixels
		multiplier int
		score      int
	}{
		{"inner bull", 3, 0, 2, 50},
		{"outer bull", 25, 0, 1, 25},
		{"triple ring", 242, 8, 3, 0}, // segment depends on wedge layout, multiplier must be 3
		{"double ring", 385, 8, 2, 0},
		{"miss outside tolerance", 450, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreFromCalibration(500+tt.dx, 500+tt.dy, cal)
			if s.Multiplier != tt.multiplier {
				t.Errorf("multiplier = %d, want %d", s.Multiplier, tt.multiplier)
			}
			if tt.score != 0 && s.Score != tt.score {
				t.Errorf("score = %d, want %d", s.Score, tt.score)
			}
		})
	}
}

func TestScoreFromCalibrationSegmentMapping(t *testing.T) {
	cal := circularCalibration()

	// A point in the middle of wedge index i (image space) must map to
	// SegmentOrder[(i - Segment20Index) mod 20].
	for i := 0; i < 20; i++ {
		angle := float64(i) * 18 * math.Pi / 180
		x := 500 + 300*math.Cos(angle)
		y := 500 + 300*math.Sin(angle)
		s := ScoreFromCalibration(x, y, cal)
		want := SegmentOrder[i%20]
		if s.Segment != want {
			t.Errorf("wedge %d: segment = %d, want %d", i, s.Segment, want)
		}
	}
}

func TestEllipseRadiusAtAngle(t *testing.T) {
	// A circle has constant radius.
	c := &Ellipse{CX: 0, CY: 0, Width: 200, Height: 200}
	for _, a := range []float64{0, 0.5, 1.2, math.Pi} {
		if r := c.RadiusAtAngle(a); math.Abs(r-100) > 1e-9 {
			t.Errorf("circle radius at %v = %v, want 100", a, r)
		}
	}

	// An axis-aligned ellipse hits its semi-axes on the axes.
	e := &Ellipse{CX: 0, CY: 0, Width: 200, Height: 100}
	if r := e.RadiusAtAngle(0); math.Abs(r-100) > 1e-9 {
		t.Errorf("semi-major = %v, want 100", r)
	}
	if r := e.RadiusAtAngle(math.Pi / 2); math.Abs(r-50) > 1e-9 {
		t.Errorf("semi-minor = %v, want 50", r)
	}
}
