package board

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// CameraCalibration holds the per-camera board geometry produced by the
// calibration tooling: the board centre in pixel coordinates, the 20 wedge
// boundary ray angles, and the fitted ring ellipses that were visible to
// this camera. Any ellipse may be nil when the fit failed; the TPS builder
// simply skips that ring.
type CameraCalibration struct {
	Center             Point     `json:"center"`
	SegmentAngles      []float64 `json:"segment_angles"` // radians, wedge boundary rays
	Segment20Index     int       `json:"segment_20_index"`
	OuterDoubleEllipse *Ellipse  `json:"outer_double_ellipse"`
	InnerDoubleEllipse *Ellipse  `json:"inner_double_ellipse"`
	OuterTripleEllipse *Ellipse  `json:"outer_triple_ellipse"`
	InnerTripleEllipse *Ellipse  `json:"inner_triple_ellipse"`
	BullEllipse        *Ellipse  `json:"bull_ellipse"`
	BullseyeEllipse    *Ellipse  `json:"bullseye_ellipse"`
}

// Point is a 2D point in either pixel or normalized board coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate checks that the calibration carries enough geometry to build a
// warp: a centre and the full set of 20 boundary rays.
func (c *CameraCalibration) Validate() error {
	if len(c.SegmentAngles) < 20 {
		return fmt.Errorf("calibration has %d segment angles, need 20", len(c.SegmentAngles))
	}
	if c.Segment20Index < 0 || c.Segment20Index >= 20 {
		return fmt.Errorf("segment_20_index %d out of range [0,20)", c.Segment20Index)
	}
	return nil
}

// NormalizeAngles wraps all segment angles into [0, 2π). Calibration files
// written by older tooling occasionally carry negative angles.
func (c *CameraCalibration) NormalizeAngles() {
	for i, a := range c.SegmentAngles {
		for a < 0 {
			a += 2 * math.Pi
		}
		for a >= 2*math.Pi {
			a -= 2 * math.Pi
		}
		c.SegmentAngles[i] = a
	}
}

// wedgeForAngle finds the calibrated wedge containing the given pixel-space
// angle, handling the single wraparound in the boundary list.
func (c *CameraCalibration) wedgeForAngle(angleRad float64) (int, bool) {
	norm := func(a float64) float64 {
		for a < 0 {
			a += 2 * math.Pi
		}
		for a >= 2*math.Pi {
			a -= 2 * math.Pi
		}
		return a
	}
	tip := norm(angleRad)
	for i := 0; i < 20; i++ {
		lo := norm(c.SegmentAngles[i])
		hi := norm(c.SegmentAngles[(i+1)%20])
		if lo <= hi {
			if tip >= lo && tip < hi {
				return i, true
			}
		} else if tip >= lo || tip < hi {
			return i, true
		}
	}
	return -1, false
}

// boundaryDistanceDeg returns the angular distance in degrees from the tip
// angle to the nearer of the wedge's two boundary rays.
func (c *CameraCalibration) boundaryDistanceDeg(angleRad float64, wedge int) float64 {
	diff := func(a, b float64) float64 {
		d := math.Abs(a - b)
		if d > math.Pi {
			d = 2*math.Pi - d
		}
		return d
	}
	d1 := diff(angleRad, c.SegmentAngles[wedge])
	d2 := diff(angleRad, c.SegmentAngles[(wedge+1)%20])
	return math.Min(d1, d2) * 180 / math.Pi
}

// LoadCalibrations reads a JSON file mapping camera id to calibration.
func LoadCalibrations(path string) (map[string]*CameraCalibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	return ParseCalibrations(data)
}

// ParseCalibrations decodes a camera-id -> calibration JSON document,
// dropping entries that fail validation. Returns an error only when nothing
// usable was found.
func ParseCalibrations(data []byte) (map[string]*CameraCalibration, error) {
	var raw map[string]*CameraCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	out := make(map[string]*CameraCalibration, len(raw))
	for id, cal := range raw {
		if cal == nil {
			continue
		}
		if err := cal.Validate(); err != nil {
			continue
		}
		cal.NormalizeAngles()
		out[id] = cal
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid camera calibrations in file")
	}
	return out, nil
}
