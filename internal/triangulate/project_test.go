package triangulate

import (
	"math"
	"testing"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/tps"
)

// pixelCalibration builds a synthetic camera with circular rings centred at
// (500, 500), 400px at the outer double, and wedge rays every 18 degrees.
func pixelCalibration() *board.CameraCalibration {
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

func trebleDetection(dirX, dirY float64) *DetectionInput {
	return &DetectionInput{
		HasTip:  true,
		TipX:    740, // 240px from centre, inside the circular treble band
		TipY:    500,
		HasAxis: true,
		DirX:    dirX,
		DirY:    dirY,

		BarrelPixelCount:  250,
		BarrelAspectRatio: 8,
		InlierRatio:       0.9,
		MaskQuality:       0.9,
	}
}

func TestProjectObservation(t *testing.T) {
	cal := pixelCalibration()
	warp := tps.Build(cal)
	cfg := DefaultConfig()
	cfg.AxisSampleSpanPx = 120
	cfg.UseLocalHomography = false

	obs := ProjectObservation("cam0", trebleDetection(1, 0), warp, cal, cfg)
	if obs == nil {
		t.Fatal("projection returned nil for a usable detection")
	}

	// The tip sits on the pixel-space 0-degree ray, which the circular
	// calibration maps onto the board's vertical axis in the treble band.
	if math.Abs(obs.TipBoard.X) > 0.01 {
		t.Errorf("TipBoard.X = %v, want ~0", obs.TipBoard.X)
	}
	if obs.TipBoard.Y < board.TripleInnerNorm || obs.TipBoard.Y > board.TripleOuterNorm {
		t.Errorf("TipBoard.Y = %v, want inside (%v, %v)",
			obs.TipBoard.Y, board.TripleInnerNorm, board.TripleOuterNorm)
	}

	// A radial pixel axis warps to a radial board axis.
	if math.Abs(obs.Dir.X) > 0.05 || obs.Dir.Y < 0.99 {
		t.Errorf("Dir = (%v, %v), want ~(0, 1)", obs.Dir.X, obs.Dir.Y)
	}

	if !obs.TipReliable {
		t.Errorf("TipDist = %v flagged unreliable", obs.TipDist)
	}
	if obs.Vote.Segment != 20 || obs.Vote.Multiplier != 3 {
		t.Errorf("camera vote = %dx%d, want treble 20", obs.Vote.Segment, obs.Vote.Multiplier)
	}
	if want := 0.95; math.Abs(obs.DetectionQuality-want) > 1e-9 {
		t.Errorf("DetectionQuality = %v, want %v", obs.DetectionQuality, want)
	}
	if obs.WeakBarrelSignal {
		t.Error("strong barrel flagged weak")
	}
}

func TestProjectObservationLocalHomography(t *testing.T) {
	cal := pixelCalibration()
	warp := tps.Build(cal)
	cfg := DefaultConfig()
	cfg.AxisSampleSpanPx = 120
	cfg.UseLocalHomography = true

	// The local homography smooths the spline but must not move the tip
	// out of its scoring zone.
	obs := ProjectObservation("cam0", trebleDetection(1, 0), warp, cal, cfg)
	if obs == nil {
		t.Fatal("projection returned nil")
	}
	if d := math.Hypot(obs.TipBoard.X, obs.TipBoard.Y-0.6); d > 0.05 {
		t.Errorf("tip moved %v from the spline answer", d)
	}
	if obs.Vote.Segment != 20 || obs.Vote.Multiplier != 3 {
		t.Errorf("camera vote = %dx%d, want treble 20", obs.Vote.Segment, obs.Vote.Multiplier)
	}
}

func TestProjectObservationRejectsUnusable(t *testing.T) {
	cal := pixelCalibration()
	warp := tps.Build(cal)
	cfg := DefaultConfig()

	if obs := ProjectObservation("cam0", nil, warp, cal, cfg); obs != nil {
		t.Error("nil detection projected")
	}
	det := trebleDetection(1, 0)
	det.HasAxis = false
	if obs := ProjectObservation("cam0", det, warp, cal, cfg); obs != nil {
		t.Error("axis-less detection projected")
	}
	if obs := ProjectObservation("cam0", trebleDetection(0, 0), warp, cal, cfg); obs != nil {
		t.Error("zero-length axis projected")
	}
	if obs := ProjectObservation("cam0", trebleDetection(1, 0), tps.Build(nil), cal, cfg); obs != nil {
		t.Error("invalid warp projected")
	}
}

func TestDetectionQuality(t *testing.T) {
	tests := []struct {
		name     string
		det      DetectionInput
		want     float64
		wantWeak bool
	}{
		{"saturated", DetectionInput{InlierRatio: 0.9, BarrelPixelCount: 250, BarrelAspectRatio: 8}, 0.95, false},
		{"half pixels", DetectionInput{InlierRatio: 1, BarrelPixelCount: 100, BarrelAspectRatio: 8}, 0.5 + 0.15 + 0.2, false},
		{"inlier clamped up", DetectionInput{InlierRatio: 0.1, BarrelPixelCount: 200, BarrelAspectRatio: 8}, 0.5*0.3 + 0.3 + 0.2, false},
		{"no barrel halves", DetectionInput{InlierRatio: 0.8, BarrelPixelCount: 0, BarrelAspectRatio: 0}, 0.2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, weak := detectionQuality(&tt.det)
			if math.Abs(q-tt.want) > 1e-9 {
				t.Errorf("quality = %v, want %v", q, tt.want)
			}
			if weak != tt.wantWeak {
				t.Errorf("weak = %v, want %v", weak, tt.wantWeak)
			}
		})
	}
}

func TestHuberLineFit(t *testing.T) {
	// Points along the 45-degree diagonal with one gross outlier.
	xs := []float64{-2, -1, 0, 1, 2, 0.5}
	ys := []float64{-2, -1, 0, 1, 2, -1.5}
	dx, dy, ok := huberLineFit(xs, ys, 0.02)
	if !ok {
		t.Fatal("fit failed")
	}
	want := math.Sqrt2 / 2
	if math.Abs(dx-want) > 0.05 || math.Abs(dy-want) > 0.05 {
		t.Errorf("direction = (%v, %v), want ~(%v, %v)", dx, dy, want, want)
	}

	// Orientation is normalized to dy >= 0.
	dx, dy, ok = huberLineFit([]float64{0, 1, 2}, []float64{0, -1, -2}, 0.02)
	if !ok {
		t.Fatal("fit failed")
	}
	if dy < 0 {
		t.Errorf("direction = (%v, %v), want dy >= 0", dx, dy)
	}

	if _, _, ok := huberLineFit([]float64{1}, []float64{1}, 0.02); ok {
		t.Error("single point must not fit")
	}
}

func TestFromDetectionsUnanimousTreble(t *testing.T) {
	cal := pixelCalibration()
	warp := tps.Build(cal)
	cfg := DefaultConfig()
	cfg.AxisSampleSpanPx = 120
	cfg.UseLocalHomography = false

	cams := []Camera{
		{ID: "cam0", Warp: warp, Calibration: cal},
		{ID: "cam1", Warp: warp, Calibration: cal},
		{ID: "cam2", Warp: warp, Calibration: cal},
	}
	// One shared tip pixel seen along three barrel orientations.
	dets := map[string]*DetectionInput{
		"cam0": trebleDetection(1, 0),
		"cam1": trebleDetection(0.5, 0.866),
		"cam2": trebleDetection(0.5, -0.866),
	}

	res, err := FromDetections(cams, dets, cfg)
	if err != nil {
		t.Fatalf("FromDetections: %v", err)
	}
	if res.Segment != 20 || res.Multiplier != 3 || res.Score != 60 {
		t.Fatalf("score = %d (%dx%d), want treble 20", res.Score, res.Segment, res.Multiplier)
	}
	if res.Method != MethodUnanimousCam {
		t.Errorf("method = %q, want %q", res.Method, MethodUnanimousCam)
	}
	if len(res.PerCamera) != 3 {
		t.Errorf("per-camera votes = %d, want 3", len(res.PerCamera))
	}
}

func TestFromDetectionsSkipsUnusableCameras(t *testing.T) {
	cal := pixelCalibration()
	warp := tps.Build(cal)
	cfg := DefaultConfig()
	cfg.AxisSampleSpanPx = 120

	cams := []Camera{
		{ID: "cam0", Warp: warp, Calibration: cal},
		{ID: "cam1", Warp: warp, Calibration: cal},
	}
	dets := map[string]*DetectionInput{
		"cam0": trebleDetection(1, 0),
		"cam1": {HasTip: true, TipX: 740, TipY: 500}, // no axis
	}

	if _, err := FromDetections(cams, dets, cfg); err != ErrInsufficientCameras {
		t.Errorf("err = %v, want ErrInsufficientCameras", err)
	}
}
