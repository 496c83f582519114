// Package align computes the per-image affine placement that lands a face
// on a fixed canvas position, scale, and rotation, and warps images onto
// that canvas for match-cut sequences.
package align

import (
	"errors"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/detector"
)

// ErrDegenerateGeometry is returned when the source correspondences are
// collinear or too close together to determine a transform.
var ErrDegenerateGeometry = errors.New("degenerate source geometry")

// Affine is a 2x3 affine transform in row-major order:
//
//	[ A[0] A[1] A[2] ]
//	[ A[3] A[4] A[5] ]
//
// mapping source coordinates (x, y) to (A[0]x + A[1]y + A[2], A[3]x + A[4]y + A[5]).
type Affine [6]float64

// Apply maps a source point through the transform.
func (a Affine) Apply(p detector.Point) detector.Point {
	x := float64(p.X)
	y := float64(p.Y)
	return detector.Point{
		X: float32(a[0]*x + a[1]*y + a[2]),
		Y: float32(a[3]*x + a[4]*y + a[5]),
	}
}

// Mat converts the transform to a gocv 2x3 CV64F matrix for warping.
// The caller owns the returned Mat.
func (a Affine) Mat() gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, a[0])
	m.SetDoubleAt(0, 1, a[1])
	m.SetDoubleAt(0, 2, a[2])
	m.SetDoubleAt(1, 0, a[3])
	m.SetDoubleAt(1, 1, a[4])
	m.SetDoubleAt(1, 2, a[5])
	return m
}

// solveAffine finds the unique affine transform mapping three source points
// exactly onto three destination points. Collinear source points have no
// unique solution and yield ErrDegenerateGeometry.
func solveAffine(src, dst [3]detector.Point) (Affine, error) {
	x1, y1 := float64(src[0].X), float64(src[0].Y)
	x2, y2 := float64(src[1].X), float64(src[1].Y)
	x3, y3 := float64(src[2].X), float64(src[2].Y)

	// Determinant of [[x1 y1 1],[x2 y2 1],[x3 y3 1]]; zero means the
	// source triangle has no area.
	det := x1*(y2-y3) - y1*(x2-x3) + (x2*y3 - x3*y2)
	if math.Abs(det) < 1e-9 {
		return Affine{}, ErrDegenerateGeometry
	}

	// Cramer's rule, solved independently for the x and y output rows.
	solveRow := func(u1, u2, u3 float64) (float64, float64, float64) {
		a := (u1*(y2-y3) - y1*(u2-u3) + (u2*y3 - u3*y2)) / det
		b := (x1*(u2-u3) - u1*(x2-x3) + (x2*u3 - x3*u2)) / det
		c := (x1*(y2*u3-y3*u2) - y1*(x2*u3-x3*u2) + u1*(x2*y3-x3*y2)) / det
		return a, b, c
	}

	var out Affine
	out[0], out[1], out[2] = solveRow(float64(dst[0].X), float64(dst[1].X), float64(dst[2].X))
	out[3], out[4], out[5] = solveRow(float64(dst[0].Y), float64(dst[1].Y), float64(dst[2].Y))
	return out, nil
}
