package board

import "math"

// Zone labels attached to a Score. The triangulation engine relies on these
// when reconciling zone and multiplier on the final result.
const (
	ZoneInnerBull   = "inner_bull"
	ZoneOuterBull   = "outer_bull"
	ZoneTriple      = "triple"
	ZoneDouble      = "double"
	ZoneSingleInner = "single_inner"
	ZoneSingleOuter = "single_outer"
	ZoneSingle      = "single"
	ZoneMiss        = "miss"
)

// Score is the outcome of the polar or per-camera scorer for one point.
type Score struct {
	Segment             int     `json:"segment"`
	Multiplier          int     `json:"multiplier"`
	Score               int     `json:"score"`
	Zone                string  `json:"zone"`
	BoundaryDistanceDeg float64 `json:"boundary_distance_deg"`
	Confidence          float64 `json:"confidence"`
}

// outerTolerance accepts hits marginally past the double wire; real boards
// flex and the warp is least accurate at the rim.
const outerTolerance = 1.05

// ScoreFromPolar scores a point given in normalized board polar coordinates:
// clockwise-from-top angle in degrees and distance from centre in board
// radii.
func ScoreFromPolar(angleDeg, dist float64) Score {
	switch {
	case dist <= BullseyeNorm:
		return Score{Segment: 25, Multiplier: 2, Score: 50, Zone: ZoneInnerBull, BoundaryDistanceDeg: 9.0}
	case dist <= BullNorm:
		return Score{Segment: 0, Multiplier: 1, Score: 25, Zone: ZoneOuterBull, BoundaryDistanceDeg: 9.0}
	case dist > DoubleOuterNorm*outerTolerance:
		return Score{Zone: ZoneMiss}
	}

	s := Score{
		Segment:             SegmentForAngle(angleDeg),
		BoundaryDistanceDeg: BoundaryDistanceDeg(angleDeg),
	}

	switch {
	case dist >= DoubleInnerNorm:
		s.Multiplier = 2
		s.Zone = ZoneDouble
	case dist >= TripleInnerNorm && dist <= TripleOuterNorm:
		s.Multiplier = 3
		s.Zone = ZoneTriple
	case dist < TripleInnerNorm:
		s.Multiplier = 1
		s.Zone = ZoneSingleInner
	default:
		s.Multiplier = 1
		s.Zone = ZoneSingleOuter
	}

	s.Score = s.Segment * s.Multiplier
	return s
}

// ScoreFromPoint scores a normalized board-space cartesian point.
func ScoreFromPoint(x, y float64) Score {
	return ScoreFromPolar(AngleDeg(x, y), math.Hypot(x, y))
}

// ScoreFromCalibration scores a pixel-space tip against a single camera's
// ring-ellipse calibration, without going through the TPS warp. This is the
// per-camera vote used by the triangulation voting hierarchy.
func ScoreFromCalibration(tipX, tipY float64, cal *CameraCalibration) Score {
	dx := tipX - cal.Center.X
	dy := tipY - cal.Center.Y
	dist := math.Hypot(dx, dy)
	angle := math.Atan2(dy, dx)

	// Bull zones first, from the inside out.
	if cal.BullseyeEllipse != nil {
		if r := cal.BullseyeEllipse.RadiusAtAngle(angle); dist <= r {
			return Score{Segment: 25, Multiplier: 2, Score: 50, Zone: ZoneInnerBull, BoundaryDistanceDeg: 9.0, Confidence: 0.8}
		}
	}
	if cal.BullEllipse != nil {
		if r := cal.BullEllipse.RadiusAtAngle(angle); dist <= r {
			return Score{Segment: 0, Multiplier: 1, Score: 25, Zone: ZoneOuterBull, BoundaryDistanceDeg: 9.0, Confidence: 0.8}
		}
	}

	var s Score
	if len(cal.SegmentAngles) >= 20 {
		if idx, ok := cal.wedgeForAngle(angle); ok {
			boardIdx := ((idx-cal.Segment20Index)%20 + 20) % 20
			s.Segment = SegmentOrder[boardIdx]
			s.BoundaryDistanceDeg = cal.boundaryDistanceDeg(angle, idx)
		}
	}

	if cal.OuterDoubleEllipse != nil {
		if r := cal.OuterDoubleEllipse.RadiusAtAngle(angle); dist > r*outerTolerance {
			return Score{Zone: ZoneMiss}
		}
	}

	inTriple := ringContains(cal.InnerTripleEllipse, cal.OuterTripleEllipse, dist, angle)
	inDouble := ringContains(cal.InnerDoubleEllipse, cal.OuterDoubleEllipse, dist, angle)

	switch {
	case inTriple:
		s.Multiplier = 3
		s.Zone = ZoneTriple
	case inDouble:
		s.Multiplier = 2
		s.Zone = ZoneDouble
	default:
		s.Multiplier = 1
		if cal.InnerTripleEllipse != nil {
			if dist < cal.InnerTripleEllipse.RadiusAtAngle(angle) {
				s.Zone = ZoneSingleInner
			} else {
				s.Zone = ZoneSingleOuter
			}
		} else {
			s.Zone = ZoneSingle
		}
	}

	s.Score = s.Segment * s.Multiplier
	s.Confidence = 0.8
	return s
}

func ringContains(inner, outer *Ellipse, dist, angle float64) bool {
	if inner == nil || outer == nil {
		return false
	}
	return dist >= inner.RadiusAtAngle(angle) && dist <= outer.RadiusAtAngle(angle)
}
