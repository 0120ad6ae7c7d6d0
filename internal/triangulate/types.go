// Package triangulate fuses per-camera dart line observations into one
// authoritative board position and score.
//
// The pipeline: project each camera's detected tip+axis into normalized
// board space through its calibration warp, intersect every pair of board
// lines, pick a winner through the voting hierarchy, run the miss and
// plausibility gate cascade, optionally replace the point with a robust
// multi-line fusion (plus confidence weighting and an angular correction
// near wedge boundaries), disambiguate wedge-boundary hits by perturbation
// voting, and emit the final score with a composite confidence.
//
// A miss is a normal result (segment 0 with an explanatory method tag).
// Errors are returned only when the engine declines to produce any result
// at all, such as with fewer than two usable cameras.
package triangulate

import (
	"errors"

	"github.com/dartsense/dartsense/internal/board"
)

// ErrInsufficientCameras is returned when fewer than two cameras produced a
// usable line observation. Callers fall back to single-camera scoring
// outside this package.
var ErrInsufficientCameras = errors.New("triangulate: need at least 2 camera observations")

// ErrNoIntersection is returned when no camera pair produced a usable
// intersection (all pairs near-parallel or wildly off board). Distinct from
// a miss: the engine has no position to judge.
var ErrNoIntersection = errors.New("triangulate: no usable pairwise intersection")

// Method tags identifying which pipeline path produced a result.
const (
	MethodUnanimousCam      = "UnanimousCam"
	MethodCamPlusOne        = "Cam+1"
	MethodBestError         = "BestError"
	MethodFusion            = "Fusion"
	MethodBCWT              = "BCWT"
	MethodRadialClamp       = "RadialClamp"
	MethodRadialClampHybrid = "RadialClampHybrid"
	MethodCAF               = "CAF"
	MethodNoCAF             = "NoCAF"

	MethodMissOffBoard       = "MissOffBoard"
	MethodMissDoublesOff     = "MissDoublesOffBoard"
	MethodMissResidualHard   = "MissResidualHard"
	MethodMissSpreadHard     = "MissAngularSpreadHard"
	MethodMissRadiusHard     = "MissRadiusHard"
	MethodMissRadiusSoftConf = "MissRadiusSoftLowConf"
)

// DetectionInput is one camera's raw detector output for a single event.
// A camera without both a tip and an axis contributes nothing.
type DetectionInput struct {
	HasTip  bool    `json:"has_tip"`
	TipX    float64 `json:"tip_x"`
	TipY    float64 `json:"tip_y"`
	HasAxis bool    `json:"has_axis"`
	DirX    float64 `json:"dir_x"` // unit axis direction, pixel space
	DirY    float64 `json:"dir_y"`

	BarrelPixelCount  int     `json:"barrel_pixel_count"`
	BarrelAspectRatio float64 `json:"barrel_aspect_ratio"`
	InlierRatio       float64 `json:"inlier_ratio"`
	MaskQuality       float64 `json:"mask_quality"`
}

// Usable reports whether the detection carries enough signal to project.
func (d *DetectionInput) Usable() bool {
	return d != nil && d.HasTip && d.HasAxis
}

// Observation is one camera's line observation projected into normalized
// board space. Created fresh per detection event.
type Observation struct {
	CameraID string

	// Board-space line through the dart, anchored at the warped tip.
	LineStart board.Point
	LineEnd   board.Point

	TipBoard board.Point
	TipPixel board.Point

	// Normalized board-space direction of the fitted line.
	Dir board.Point

	TipDist     float64 // distance of the board-space tip from centre
	TipReliable bool    // TipDist within the trusted range

	Vote board.Score // this camera's own scoring of its pixel tip

	MaskQuality      float64
	DetectionQuality float64
	WeakBarrelSignal bool

	BarrelPixelCount  int
	BarrelAspectRatio float64
	InlierRatio       float64
}

// pairIntersection is one camera pair's line crossing, with quality-scaled
// errors. Ephemeral; one set per call.
type pairIntersection struct {
	cam1, cam2 string
	point      board.Point
	err1, err2 float64 // per-camera tip distance scaled by detection quality
	totalError float64
	score      board.Score
	ixDist     float64
	reliable   bool
	onBoard    bool
}

// Diagnostics is the optional introspection bundle attached to a Result
// when Config.Diagnostics is set. It replaces the ambient debug output the
// detector historically wrote to disk.
type Diagnostics struct {
	AngularSpreadDeg      float64                      `json:"angular_spread_deg"`
	MedianResidual        float64                      `json:"median_residual"`
	MaxResidual           float64                      `json:"max_residual"`
	CompositeConfidence   float64                      `json:"composite_confidence"`
	BoardRadius           float64                      `json:"board_radius"`
	GateDecisions         []string                     `json:"gate_decisions,omitempty"`
	FusionApplied         bool                         `json:"fusion_applied"`
	BCWTApplied           bool                         `json:"bcwt_applied"`
	ClampApplied          bool                         `json:"clamp_applied"`
	CAFApplied            bool                         `json:"caf_applied"`
	CAFDeclined           bool                         `json:"caf_declined"`
	WireVoteApplied       bool                         `json:"wire_vote_applied"`
	SegmentLabelCorrected bool                         `json:"segment_label_corrected"`
	Cameras               map[string]CameraDiagnostics `json:"cameras,omitempty"`
}

// CameraDiagnostics carries the per-camera numbers behind a decision.
type CameraDiagnostics struct {
	DirX             float64 `json:"dir_x"`
	DirY             float64 `json:"dir_y"`
	PerpResidual     float64 `json:"perp_residual"`
	DetectionQuality float64 `json:"detection_quality"`
	BCWTWeight       float64 `json:"bcwt_weight"`
	WeakBarrelSignal bool    `json:"weak_barrel_signal"`
	TipDist          float64 `json:"tip_dist"`
}

// Result is the fused outcome for one detection event. A miss is encoded
// as Segment=Multiplier=Score=0 with a Method tag naming the gate that
// fired; it is a valid, intentional outcome.
type Result struct {
	Segment    int     `json:"segment"`
	Multiplier int     `json:"multiplier"`
	Score      int     `json:"score"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`

	X float64 `json:"coords_x"`
	Y float64 `json:"coords_y"`

	TotalError float64 `json:"total_error"`

	PerCamera map[string]board.Score `json:"per_camera"`

	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// IsMiss reports whether the result is a miss outcome.
func (r *Result) IsMiss() bool {
	return r.Segment == 0 && r.Score == 0
}
