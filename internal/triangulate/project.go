package triangulate

import (
	"math"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/tps"
)

// ProjectObservation maps one camera's detected tip and barrel axis into a
// normalized board-space line observation.
//
// The pixel axis is sampled at cfg.AxisSampleCount points over
// ±cfg.AxisSampleSpanPx around the tip, every sample is warped through the
// camera's calibration transform, and a Huber-weighted line is fitted
// through the warped samples. Fitting instead of warping just two points
// suppresses the curvature noise the spline introduces near the tip.
//
// Returns nil when the detection is unusable or the transform is invalid.
func ProjectObservation(cameraID string, det *DetectionInput, warp *tps.Transform, cal *board.CameraCalibration, cfg Config) *Observation {
	if !det.Usable() || !warp.Valid() || cal == nil {
		return nil
	}

	norm := math.Hypot(det.DirX, det.DirY)
	if norm < 1e-9 {
		return nil
	}
	dirX := det.DirX / norm
	dirY := det.DirY / norm

	count := cfg.AxisSampleCount
	if count < 5 {
		count = 5
	}
	span := cfg.AxisSampleSpanPx

	warpPoint := warpFunc(det, warp, cfg, span)

	xs := make([]float64, 0, count)
	ys := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		t := -span + 2*span*float64(i)/float64(count-1)
		bx, by := warpPoint(det.TipX+t*dirX, det.TipY+t*dirY)
		xs = append(xs, bx)
		ys = append(ys, by)
	}

	tipX, tipY := warpPoint(det.TipX, det.TipY)
	fitDirX, fitDirY, ok := huberLineFit(xs, ys, cfg.LineFitHuberDelta)
	if !ok {
		return nil
	}

	tipDist := math.Hypot(tipX, tipY)

	obs := &Observation{
		CameraID:    cameraID,
		LineStart:   board.Point{X: tipX - fitDirX, Y: tipY - fitDirY},
		LineEnd:     board.Point{X: tipX + fitDirX, Y: tipY + fitDirY},
		TipBoard:    board.Point{X: tipX, Y: tipY},
		TipPixel:    board.Point{X: det.TipX, Y: det.TipY},
		Dir:         board.Point{X: fitDirX, Y: fitDirY},
		TipDist:     tipDist,
		TipReliable: tipDist <= cfg.TipReliableMaxDist,
		Vote:        board.ScoreFromCalibration(det.TipX, det.TipY, cal),

		MaskQuality:       det.MaskQuality,
		BarrelPixelCount:  det.BarrelPixelCount,
		BarrelAspectRatio: det.BarrelAspectRatio,
		InlierRatio:       det.InlierRatio,
	}

	obs.DetectionQuality, obs.WeakBarrelSignal = detectionQuality(det)
	return obs
}

// warpFunc returns the pixel->board mapping for the projector: either the
// raw spline or a homography fitted to a local grid of spline
// correspondences around the tip, which irons out spline ripple at the
// cost of local projective rigidity.
func warpFunc(det *DetectionInput, warp *tps.Transform, cfg Config, span float64) func(px, py float64) (float64, float64) {
	if !cfg.UseLocalHomography {
		return warp.Warp
	}

	// 4x4 grid over the sampling neighbourhood.
	const gridN = 4
	srcX := make([]float64, 0, gridN*gridN)
	srcY := make([]float64, 0, gridN*gridN)
	dstX := make([]float64, 0, gridN*gridN)
	dstY := make([]float64, 0, gridN*gridN)
	for i := 0; i < gridN; i++ {
		for j := 0; j < gridN; j++ {
			px := det.TipX - span + 2*span*float64(i)/float64(gridN-1)
			py := det.TipY - span + 2*span*float64(j)/float64(gridN-1)
			bx, by := warp.Warp(px, py)
			srcX = append(srcX, px)
			srcY = append(srcY, py)
			dstX = append(dstX, bx)
			dstY = append(dstY, by)
		}
	}

	h, err := tps.FitHomography(srcX, srcY, dstX, dstY)
	if err != nil {
		return warp.Warp
	}
	return h.Apply
}

// detectionQuality scores a camera's detection signal in [0,1]:
// a fixed linear combination of RANSAC inlier ratio, normalized barrel
// pixel count, and normalized aspect ratio, floored at 0.1. A zero barrel
// pixel count marks the signal weak and halves the score.
func detectionQuality(det *DetectionInput) (q float64, weak bool) {
	inlier := clamp(det.InlierRatio, 0.3, 1.0)
	pixels := math.Min(1, float64(det.BarrelPixelCount)/200.0)
	aspect := math.Min(1, det.BarrelAspectRatio/8.0)

	q = 0.5*inlier + 0.3*pixels + 0.2*aspect
	if q < 0.1 {
		q = 0.1
	}
	if det.BarrelPixelCount == 0 {
		weak = true
		q /= 2
	}
	return q, weak
}

// huberLineFit fits a direction through 2D points using iteratively
// reweighted principal-axis fitting with Huber weights on the
// perpendicular residuals. Returns a unit direction with vy >= 0 to keep
// orientation stable across cameras.
func huberLineFit(xs, ys []float64, delta float64) (dx, dy float64, ok bool) {
	n := len(xs)
	if n < 2 {
		return 0, 0, false
	}
	if delta <= 0 {
		delta = 0.02
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}

	var cx, cy float64
	for iter := 0; iter < 3; iter++ {
		var sw float64
		cx, cy = 0, 0
		for i := 0; i < n; i++ {
			sw += w[i]
			cx += w[i] * xs[i]
			cy += w[i] * ys[i]
		}
		if sw < 1e-12 {
			return 0, 0, false
		}
		cx /= sw
		cy /= sw

		// Weighted 2x2 covariance; principal axis in closed form.
		var sxx, sxy, syy float64
		for i := 0; i < n; i++ {
			ux := xs[i] - cx
			uy := ys[i] - cy
			sxx += w[i] * ux * ux
			sxy += w[i] * ux * uy
			syy += w[i] * uy * uy
		}

		theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
		dx = math.Cos(theta)
		dy = math.Sin(theta)

		// Reweight by perpendicular residual.
		for i := 0; i < n; i++ {
			r := math.Abs(-(xs[i]-cx)*dy + (ys[i]-cy)*dx)
			if r <= delta {
				w[i] = 1
			} else {
				w[i] = delta / r
			}
		}
	}

	if math.Hypot(dx, dy) < 1e-9 {
		return 0, 0, false
	}
	if dy < 0 {
		dx, dy = -dx, -dy
	}
	return dx, dy, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
