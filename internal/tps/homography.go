package tps

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform fit locally around a dart tip.
// The line projector optionally uses it to stabilise the warp in the tip
// neighbourhood, where evaluating the global spline can pick up curvature
// from distant control points.
type Homography struct {
	h [9]float64
}

// FitHomography estimates the homography mapping src points onto dst points
// using the normalized direct linear transform. At least four
// correspondences are required; more are solved in a least-squares sense.
func FitHomography(srcX, srcY, dstX, dstY []float64) (*Homography, error) {
	n := len(srcX)
	if n != len(srcY) || n != len(dstX) || n != len(dstY) {
		return nil, fmt.Errorf("point count mismatch: %d/%d/%d/%d", len(srcX), len(srcY), len(dstX), len(dstY))
	}
	if n < 4 {
		return nil, fmt.Errorf("need at least 4 correspondences, got %d", n)
	}

	sx, sy, ss := normalizeForDLT(srcX, srcY)
	dx, dy, ds := normalizeForDLT(dstX, dstY)

	// Each correspondence contributes two rows of the 2n x 9 DLT matrix.
	// Fix h[8]=1 and solve the 8-unknown least-squares system instead of
	// the full null-space problem; the fixed-scale form is adequate for
	// the near-affine local patches the projector fits.
	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		x := (srcX[i] - sx) * ss
		y := (srcY[i] - sy) * ss
		u := (dstX[i] - dx) * ds
		v := (dstY[i] - dy) * ds

		a.Set(2*i, 0, x)
		a.Set(2*i, 1, y)
		a.Set(2*i, 2, 1)
		a.Set(2*i, 6, -x*u)
		a.Set(2*i, 7, -y*u)
		b.SetVec(2*i, u)

		a.Set(2*i+1, 3, x)
		a.Set(2*i+1, 4, y)
		a.Set(2*i+1, 5, 1)
		a.Set(2*i+1, 6, -x*v)
		a.Set(2*i+1, 7, -y*v)
		b.SetVec(2*i+1, v)
	}

	var qr mat.QR
	qr.Factorize(a)
	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		return nil, fmt.Errorf("homography solve: %w", err)
	}

	// Denormalise: H = Td⁻¹ · Hn · Ts.
	hn := [9]float64{
		params.AtVec(0), params.AtVec(1), params.AtVec(2),
		params.AtVec(3), params.AtVec(4), params.AtVec(5),
		params.AtVec(6), params.AtVec(7), 1,
	}
	ts := [9]float64{ss, 0, -ss * sx, 0, ss, -ss * sy, 0, 0, 1}
	tdInv := [9]float64{1 / ds, 0, dx, 0, 1 / ds, dy, 0, 0, 1}

	h := mul3(tdInv, mul3(hn, ts))
	if math.Abs(h[8]) < 1e-12 {
		return nil, fmt.Errorf("degenerate homography")
	}
	for i := range h {
		h[i] /= h[8]
	}
	return &Homography{h: h}, nil
}

// Apply maps a point through the homography.
func (h *Homography) Apply(x, y float64) (float64, float64) {
	w := h.h[6]*x + h.h[7]*y + h.h[8]
	if math.Abs(w) < 1e-12 {
		return 0, 0
	}
	return (h.h[0]*x + h.h[1]*y + h.h[2]) / w, (h.h[3]*x + h.h[4]*y + h.h[5]) / w
}

// normalizeForDLT returns the centroid and isotropic scale bringing the
// mean point distance to sqrt(2), the standard Hartley conditioning.
func normalizeForDLT(xs, ys []float64) (cx, cy, scale float64) {
	n := float64(len(xs))
	for i := range xs {
		cx += xs[i]
		cy += ys[i]
	}
	cx /= n
	cy /= n

	var meanDist float64
	for i := range xs {
		meanDist += math.Hypot(xs[i]-cx, ys[i]-cy)
	}
	meanDist /= n
	if meanDist < 1e-12 {
		return cx, cy, 1
	}
	return cx, cy, math.Sqrt2 / meanDist
}

func mul3(a, b [9]float64) [9]float64 {
	var c [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				c[i*3+j] += a[i*3+k] * b[k*3+j]
			}
		}
	}
	return c
}
