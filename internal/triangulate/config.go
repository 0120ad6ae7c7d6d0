package triangulate

// Config carries every tunable threshold and feature toggle for one
// triangulation call. It is an explicit, immutable value: build it once
// before a detection sequence and pass it into each call. The engine never
// mutates it and keeps no state between calls.
type Config struct {
	// Line projector.
	AxisSampleCount    int     // samples along the pixel axis, odd so the tip is included
	AxisSampleSpanPx   float64 // half-range of axis sampling around the tip
	UseLocalHomography bool    // refine the warp around the tip with a locally fitted homography
	LineFitHuberDelta  float64 // Huber threshold for the board-space line fit
	TipReliableMaxDist float64 // board-space tip distance beyond which a tip is unreliable

	// Pairwise intersection.
	MinCrossingSine       float64 // reject pairs with sin(crossing angle) below this
	MaxIntersectionRadius float64 // reject intersections beyond this many board radii

	// Gate cascade.
	OffBoardRadius           float64
	DoublesOffBoardTipDist   float64
	ResidualHardMax          float64
	ResidualSoftMin          float64
	SpreadHardDeg            float64
	SpreadHardMedianResidual float64
	SpreadSoftDeg            float64
	SpreadSoftMedianResidual float64
	CompositeConfidenceMin   float64
	LowConfidenceCap         float64
	RadiusHard               float64
	RadiusSoft               float64
	RadiusSoftMinConfidence  float64

	// Robust multi-line fusion.
	UseFusion        bool
	FusionIterations int
	FusionHuberDelta float64 // 0.01 strict, 0.1 soft
	FusionMaxRadius  float64
	FusionMaxShift   float64 // max disagreement with the pairwise winner

	// Confidence-weighted fusion (BCWT).
	UseBCWT                   bool
	BCWTMinWeight             float64
	BCWTSoftInclude           bool
	BCWTMinAngularRangeDeg    float64
	BCWTDefaultAngleScore     float64
	BCWTDefaultTipScore       float64
	BCWTDefaultStabilityScore float64

	// Radial stability clamp between base fusion and BCWT.
	ClampRadiusDelta   float64
	ClampRingProximity float64
	ClampHybrid        bool // blend BCWT angle with base-fusion radius instead of full fallback

	// Circular angular fusion (CAF).
	UseCAF               bool
	CAFTangentialEpsilon float64 // normalized-units perturbation for the boundary test
	CAFMaxSpreadDeg      float64
	CAFPriorWeight       float64
	CAFSoftRegression    float64 // allowed fractional residual regression for soft accept
	CAFWedgeCrossFactor  float64 // fraction of the soft bound allowed on a wedge cross

	// Wedge boundary (wire) voting.
	WireVoteBandDeg     float64
	WireVoteHardBandDeg float64
	WireVoteMajority    float64
	WireVoteSamples     int
	WireVoteSigmaMin    float64
	WireVoteSigmaMax    float64

	// Attach the Diagnostics bundle to results.
	Diagnostics bool
}

// DefaultConfig returns the tuned production configuration. The values are
// board-space (radius 1.0 = outer double) unless the name says otherwise.
func DefaultConfig() Config {
	return Config{
		AxisSampleCount:    21,
		AxisSampleSpanPx:   200,
		UseLocalHomography: true,
		LineFitHuberDelta:  0.02,
		TipReliableMaxDist: 1.2,

		MinCrossingSine:       0.26, // ~15 degrees
		MaxIntersectionRadius: 1.5,

		OffBoardRadius:           1.3,
		DoublesOffBoardTipDist:   1.05,
		ResidualHardMax:          0.18,
		ResidualSoftMin:          0.12,
		SpreadHardDeg:            20,
		SpreadHardMedianResidual: 0.10,
		SpreadSoftDeg:            25,
		SpreadSoftMedianResidual: 0.06,
		CompositeConfidenceMin:   0.35,
		LowConfidenceCap:         0.3,
		RadiusHard:               1.030,
		RadiusSoft:               1.015,
		RadiusSoftMinConfidence:  0.55,

		UseFusion:        true,
		FusionIterations: 5,
		FusionHuberDelta: 0.01,
		FusionMaxRadius:  1.3,
		FusionMaxShift:   0.15,

		UseBCWT:                   true,
		BCWTMinWeight:             0.25,
		BCWTSoftInclude:           false,
		BCWTMinAngularRangeDeg:    15,
		BCWTDefaultAngleScore:     0.5,
		BCWTDefaultTipScore:       0.5,
		BCWTDefaultStabilityScore: 0.5,

		ClampRadiusDelta:   0.030,
		ClampRingProximity: 0.020,
		ClampHybrid:        false,

		UseCAF:               true,
		CAFTangentialEpsilon: 0.005,
		CAFMaxSpreadDeg:      6,
		CAFPriorWeight:       0.35,
		CAFSoftRegression:    0.05,
		CAFWedgeCrossFactor:  0.90,

		WireVoteBandDeg:     0.50,
		WireVoteHardBandDeg: 0.25,
		WireVoteMajority:    0.65,
		WireVoteSamples:     16,
		WireVoteSigmaMin:    0.001,
		WireVoteSigmaMax:    0.010,
	}
}
