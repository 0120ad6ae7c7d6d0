// Package replay re-runs stored detection events through the triangulation
// engine and compares the fresh results against what was persisted at
// capture time. It is the tuning loop: change the engine configuration,
// replay a session, and read the aggregate statistics before touching a
// live setup.
package replay

import (
	"fmt"

	"github.com/dartsense/dartsense/internal/monitoring"
	"github.com/dartsense/dartsense/internal/throwdb"
	"github.com/dartsense/dartsense/internal/triangulate"
)

// Runner replays the throws of a session against a camera rig and engine
// configuration.
type Runner struct {
	store   *throwdb.ThrowStore
	cameras []triangulate.Camera
	config  triangulate.Config
}

// NewRunner creates a replay runner. The camera set must carry the warps
// and calibrations matching the rig the session was recorded on.
func NewRunner(store *throwdb.ThrowStore, cameras []triangulate.Camera, cfg triangulate.Config) *Runner {
	return &Runner{store: store, cameras: cameras, config: cfg}
}

// Comparison is the outcome of replaying one stored throw.
type Comparison struct {
	ThrowID string `json:"throw_id"`

	StoredSegment    int     `json:"stored_segment"`
	StoredMultiplier int     `json:"stored_multiplier"`
	StoredScore      int     `json:"stored_score"`
	StoredMethod     string  `json:"stored_method"`
	StoredConfidence float64 `json:"stored_confidence"`

	Replayed *triangulate.Result `json:"replayed,omitempty"`
	Err      string              `json:"error,omitempty"`

	ScoreMatch    bool    `json:"score_match"`
	SegmentMatch  bool    `json:"segment_match"`
	MethodChanged bool    `json:"method_changed"`
	ConfidenceDel float64 `json:"confidence_delta"`
}

// ReplaySession replays every throw of a session, oldest first.
func (r *Runner) ReplaySession(sessionID string) ([]Comparison, error) {
	throws, err := r.store.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("list throws: %w", err)
	}
	if len(throws) == 0 {
		return nil, fmt.Errorf("session %s has no throws", sessionID)
	}

	comps := make([]Comparison, 0, len(throws))
	for _, th := range throws {
		comps = append(comps, r.replayThrow(th))
	}
	monitoring.Logf("replay: session %s replayed %d throws", sessionID, len(comps))
	return comps, nil
}

// ReplayThrow replays a single stored throw by ID.
func (r *Runner) ReplayThrow(throwID string) (Comparison, error) {
	th, err := r.store.GetThrow(throwID)
	if err != nil {
		return Comparison{}, err
	}
	return r.replayThrow(th), nil
}

func (r *Runner) replayThrow(th *throwdb.Throw) Comparison {
	c := Comparison{
		ThrowID:          th.ThrowID,
		StoredSegment:    th.Segment,
		StoredMultiplier: th.Multiplier,
		StoredScore:      th.Score,
		StoredMethod:     th.Method,
		StoredConfidence: th.Confidence,
	}

	dets, err := r.store.Detections(th.ThrowID)
	if err != nil {
		c.Err = err.Error()
		return c
	}

	inputs := make(map[string]*triangulate.DetectionInput, len(dets))
	for i := range dets {
		inputs[dets[i].CameraID] = detectionInput(&dets[i])
	}

	res, err := triangulate.FromDetections(r.cameras, inputs, r.config)
	if err != nil {
		c.Err = err.Error()
		return c
	}

	c.Replayed = res
	c.ScoreMatch = res.Score == th.Score
	c.SegmentMatch = res.Segment == th.Segment && res.Multiplier == th.Multiplier
	c.MethodChanged = res.Method != th.Method
	c.ConfidenceDel = res.Confidence - th.Confidence
	return c
}

// detectionInput reconstructs the engine input from a stored detection row.
// Rows are only written for cameras that produced both a tip and an axis,
// so both flags are set unconditionally.
func detectionInput(d *throwdb.CameraDetection) *triangulate.DetectionInput {
	return &triangulate.DetectionInput{
		HasTip:  true,
		TipX:    d.TipX,
		TipY:    d.TipY,
		HasAxis: true,
		DirX:    d.DirX,
		DirY:    d.DirY,

		BarrelPixelCount:  d.BarrelPixelCount,
		BarrelAspectRatio: d.BarrelAspectRatio,
		InlierRatio:       d.InlierRatio,
		MaskQuality:       d.MaskQuality,
	}
}
