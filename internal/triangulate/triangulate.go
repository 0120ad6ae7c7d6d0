package triangulate

import (
	"math"

	"github.com/dartsense/dartsense/internal/board"
	"github.com/dartsense/dartsense/internal/monitoring"
	"github.com/dartsense/dartsense/internal/tps"
)

// Camera bundles the per-camera state needed to project detections: the
// pixel-to-board warp built from calibration and the calibration itself.
type Camera struct {
	ID          string
	Warp        *tps.Transform
	Calibration *board.CameraCalibration
}

// FromDetections projects each camera's detection and triangulates the
// result in one call. Cameras with unusable detections are skipped.
func FromDetections(cams []Camera, dets map[string]*DetectionInput, cfg Config) (*Result, error) {
	var obs []*Observation
	for _, cam := range cams {
		det := dets[cam.ID]
		if o := ProjectObservation(cam.ID, det, cam.Warp, cam.Calibration, cfg); o != nil {
			obs = append(obs, o)
		}
	}
	return Triangulate(obs, cfg)
}

// fusionAgreementEps is the point distance below which two fusion stages
// are considered to have produced the same answer.
const fusionAgreementEps = 1e-6

// Triangulate fuses the camera line observations into one scored board
// position. A miss is a normal *Result (segment 0 with a method tag naming
// the gate); an error means no result could be produced at all.
func Triangulate(obs []*Observation, cfg Config) (*Result, error) {
	usable := obs[:0:0]
	for _, o := range obs {
		if o != nil {
			usable = append(usable, o)
		}
	}
	obs = usable
	if len(obs) < 2 {
		return nil, ErrInsufficientCameras
	}

	ix := pairwiseIntersections(obs, cfg)
	if len(ix) == 0 {
		return nil, ErrNoIntersection
	}

	win := selectByVoting(obs, ix, cfg)
	g := &gateState{confidence: win.confidence}

	st := computeStats(obs, win.best.point)
	if miss := applyEarlyGates(obs, win, st, g, cfg); miss != nil {
		finalize(miss, obs, st, g, nil, cfg)
		monitoring.Logf("triangulate: miss %s conf=%.2f", miss.Method, miss.Confidence)
		return miss, nil
	}

	// The pipeline threads three points forward: the pairwise winner, the
	// base-fusion point (CAF's prior and the clamp's reference), and the
	// current best point after each accepted stage.
	point := win.best.point
	base := win.best.point
	method := win.method
	var weights map[string]float64
	var diagFusion, diagBCWT, diagClamp, diagCAF, diagNoCAF bool

	if cfg.UseFusion {
		if bf, ok := baseFusion(obs, point, cfg); ok {
			// Base fusion refines the point but keeps the tier name.
			point = bf.point
			base = bf.point
			weights = bf.weights
			diagFusion = true

			if cfg.UseBCWT {
				if refit, ok := bcwtFusion(obs, bf, cfg); ok {
					clamped := applyRadialClamp(bf, refit, cfg)
					point = clamped.point
					weights = clamped.weights
					diagBCWT = true
					switch clamped.method {
					case MethodRadialClamp, MethodRadialClampHybrid:
						method = clamped.method
						diagClamp = true
					default:
						// The refit tag only applies when it changed
						// the answer.
						if dist(point, base) > fusionAgreementEps {
							method = MethodBCWT
						}
					}
				}
			}
		}
	}

	if cfg.UseCAF {
		w := weights
		if w == nil {
			w = make(map[string]float64, len(obs))
			for _, o := range obs {
				w[o.CameraID] = o.DetectionQuality
			}
		}
		caf := angularFusion(obs, point, base, w, cfg)
		switch {
		case caf.applied:
			point = caf.point
			method = MethodCAF
			diagCAF = true
		case caf.declined:
			if dist(point, base) <= fusionAgreementEps {
				method = MethodNoCAF
			} else {
				// Rejected correction on a disputed point: retreat to
				// the base fusion answer.
				point = base
				method = win.method
			}
			diagNoCAF = true
			g.decisions = append(g.decisions, "no_caf")
		}
	}

	// Final-point statistics drive the radius gates, wire voting and the
	// closing confidence.
	final := computeStats(obs, point)
	if miss := applyRadiusGates(obs, win, point, g, cfg); miss != nil {
		finalize(miss, obs, final, g, weights, cfg)
		monitoring.Logf("triangulate: miss %s r=%.3f", miss.Method, math.Hypot(point.X, point.Y))
		return miss, nil
	}

	sc := board.ScoreFromPoint(point.X, point.Y)

	segmentCorrected := false
	wireApplied := false
	wireLowConfidence := false
	if sc.Multiplier > 0 && sc.Segment >= 1 && sc.Segment <= 20 {
		wv := wireVote(point, final.medianResidual, cfg)
		wireApplied = wv.applied
		wireLowConfidence = wv.lowConfidence
		if wv.adopted {
			sc.Segment = wv.segment
			sc.Score = sc.Segment * sc.Multiplier
			segmentCorrected = true
		}
	}

	// Zone label and multiplier must agree on the way out.
	if fixed, changed := reconcileZone(sc); changed {
		sc = fixed
		segmentCorrected = true
	}

	confidence := math.Min(g.confidence, math.Max(0.1, compositeConfidence(final)))
	if wireLowConfidence {
		confidence = math.Min(confidence, cfg.LowConfidenceCap)
	}

	res := &Result{
		Segment:    sc.Segment,
		Multiplier: sc.Multiplier,
		Score:      sc.Score,
		Method:     method,
		Confidence: confidence,
		X:          point.X,
		Y:          point.Y,
		TotalError: win.best.totalError,
		PerCamera:  make(map[string]board.Score, len(obs)),
	}
	for _, o := range obs {
		res.PerCamera[o.CameraID] = o.Vote
	}

	if cfg.Diagnostics {
		res.Diagnostics = buildDiagnostics(obs, final, g, weights)
		res.Diagnostics.FusionApplied = diagFusion
		res.Diagnostics.BCWTApplied = diagBCWT
		res.Diagnostics.ClampApplied = diagClamp
		res.Diagnostics.CAFApplied = diagCAF
		res.Diagnostics.CAFDeclined = diagNoCAF
		res.Diagnostics.WireVoteApplied = wireApplied
		res.Diagnostics.SegmentLabelCorrected = segmentCorrected
		res.Diagnostics.BoardRadius = math.Hypot(point.X, point.Y)
	}

	monitoring.Logf("triangulate: %s segment=%d x%d conf=%.2f", method, sc.Segment, sc.Multiplier, confidence)
	return res, nil
}

func dist(a, b board.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// reconcileZone forces multiplier and score to agree with the zone label.
func reconcileZone(sc board.Score) (board.Score, bool) {
	want := sc.Multiplier
	switch sc.Zone {
	case board.ZoneDouble:
		want = 2
	case board.ZoneTriple:
		want = 3
	case board.ZoneSingle, board.ZoneSingleInner, board.ZoneSingleOuter:
		want = 1
	}
	if want == sc.Multiplier {
		return sc, false
	}
	sc.Multiplier = want
	sc.Score = sc.Segment * want
	return sc, true
}

// finalize attaches diagnostics to a miss result when requested.
func finalize(r *Result, obs []*Observation, st residualStats, g *gateState, weights map[string]float64, cfg Config) {
	if !cfg.Diagnostics {
		return
	}
	r.Diagnostics = buildDiagnostics(obs, st, g, weights)
	r.Diagnostics.BoardRadius = math.Hypot(r.X, r.Y)
}

func buildDiagnostics(obs []*Observation, st residualStats, g *gateState, weights map[string]float64) *Diagnostics {
	d := &Diagnostics{
		AngularSpreadDeg:    st.spreadDeg,
		MedianResidual:      st.medianResidual,
		MaxResidual:         st.maxResidual,
		CompositeConfidence: compositeConfidence(st),
		GateDecisions:       g.decisions,
		Cameras:             make(map[string]CameraDiagnostics, len(obs)),
	}
	for _, o := range obs {
		d.Cameras[o.CameraID] = CameraDiagnostics{
			DirX:             o.Dir.X,
			DirY:             o.Dir.Y,
			PerpResidual:     st.residuals[o.CameraID],
			DetectionQuality: o.DetectionQuality,
			BCWTWeight:       weights[o.CameraID],
			WeakBarrelSignal: o.WeakBarrelSignal,
			TipDist:          o.TipDist,
		}
	}
	return d
}
