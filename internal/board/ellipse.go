package board

import "math"

// Ellipse describes a fitted dartboard ring in camera pixel space.
type Ellipse struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	RotationDeg float64 `json:"rotation_deg"`
}

// RadiusAtAngle returns the ellipse radius along a ray at the given angle
// (radians, measured from the ellipse centre in image coordinates).
func (e *Ellipse) RadiusAtAngle(angleRad float64) float64 {
	a := e.Width / 2
	b := e.Height / 2
	theta := angleRad - e.RotationDeg*math.Pi/180

	cosT := math.Cos(theta)
	sinT := math.Sin(theta)
	denom := math.Sqrt(b*cosT*b*cosT + a*sinT*a*sinT)
	if denom < 1e-6 {
		return 0
	}
	return a * b / denom
}

// SampleAtAngle casts a ray from (ox, oy) at the given angle and returns the
// first forward intersection with the ellipse. The ray origin is normally
// the calibrated board centre, which need not coincide with the ellipse
// centre. Returns ok=false when the ray misses the ellipse entirely.
func (e *Ellipse) SampleAtAngle(angleRad, ox, oy float64) (x, y float64, ok bool) {
	a := e.Width / 2
	b := e.Height / 2
	rot := e.RotationDeg * math.Pi / 180
	cosR := math.Cos(rot)
	sinR := math.Sin(rot)

	dx := math.Cos(angleRad)
	dy := math.Sin(angleRad)

	// Express the ray in ellipse-local axes.
	relX := ox - e.CX
	relY := oy - e.CY
	u0 := relX*cosR + relY*sinR
	du := dx*cosR + dy*sinR
	v0 := -relX*sinR + relY*cosR
	dv := -dx*sinR + dy*cosR

	// Quadratic in ray parameter t.
	qa := du*du/(a*a) + dv*dv/(b*b)
	qb := 2 * (u0*du/(a*a) + v0*dv/(b*b))
	qc := u0*u0/(a*a) + v0*v0/(b*b) - 1
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return 0, 0, false
	}

	sq := math.Sqrt(disc)
	t1 := (-qb + sq) / (2 * qa)
	t2 := (-qb - sq) / (2 * qa)
	t := math.Min(t1, t2)
	if t < 0 {
		t = math.Max(t1, t2)
	}
	if t <= 0 {
		return 0, 0, false
	}

	return ox + t*dx, oy + t*dy, true
}
