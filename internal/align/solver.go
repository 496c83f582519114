package align

import (
	"errors"
	"math"

	"github.com/dudu/matchcut/internal/detector"
)

// ErrMissingLandmarks is returned when the face lacks the landmark groups
// the solver needs (eye contours and nose bridge).
var ErrMissingLandmarks = errors.New("required landmark groups missing")

// minEyeDistance is the smallest usable source eye separation in pixels.
// Anything below it gives an undefined scale.
const minEyeDistance = 1e-6

// CanvasSpec is the fixed output geometry every face is aligned to.
type CanvasSpec struct {
	Width    int
	Height   int
	EyeWidth float64 // target distance between eye centers, in pixels
}

// Anchor returns the canvas point where the eye midpoint is placed
// (the canvas center).
func (c CanvasSpec) Anchor() detector.Point {
	return detector.Point{
		X: float32(c.Width) / 2,
		Y: float32(c.Height) / 2,
	}
}

// Placement is a solved per-image alignment: the transform onto the canvas
// and the destination landmark positions it maps the face to.
type Placement struct {
	Transform Affine
	LeftEye   detector.Point
	RightEye  detector.Point
	Nose      detector.Point
}

// Solve computes the affine transform placing the face's eyes symmetrically
// about the canvas anchor on a horizontal line, EyeWidth pixels apart, with
// the nose position derived so the face's proportions are preserved under
// the same rigid transform.
func Solve(face *detector.Face, canvas CanvasSpec) (Placement, error) {
	if !face.HasAlignmentGroups() {
		return Placement{}, ErrMissingLandmarks
	}

	srcLeft := face.GroupCenter(detector.GroupLeftEye)
	srcRight := face.GroupCenter(detector.GroupRightEye)
	bridge := face.Groups[detector.GroupNoseBridge]
	srcNose := bridge[len(bridge)-1] // bottom of the bridge, the most stable third point

	// Source eye vector determines scale and rotation.
	vx := float64(srcRight.X - srcLeft.X)
	vy := float64(srcRight.Y - srcLeft.Y)
	eyeDist := math.Hypot(vx, vy)
	if eyeDist < minEyeDistance {
		return Placement{}, ErrDegenerateGeometry
	}

	anchor := canvas.Anchor()
	half := float32(canvas.EyeWidth / 2)
	dstLeft := detector.Point{X: anchor.X - half, Y: anchor.Y}
	dstRight := detector.Point{X: anchor.X + half, Y: anchor.Y}

	scale := canvas.EyeWidth / eyeDist
	angle := math.Atan2(vy, vx)

	// Vector from the source eye midpoint to the nose, expressed relative
	// to a horizontal eye baseline, then scaled into canvas units.
	midX := (float64(srcLeft.X) + float64(srcRight.X)) / 2
	midY := (float64(srcLeft.Y) + float64(srcRight.Y)) / 2
	nx := float64(srcNose.X) - midX
	ny := float64(srcNose.Y) - midY

	cosA := math.Cos(-angle)
	sinA := math.Sin(-angle)
	rx := nx*cosA - ny*sinA
	ry := nx*sinA + ny*cosA

	dstNose := detector.Point{
		X: anchor.X + float32(rx*scale),
		Y: anchor.Y + float32(ry*scale),
	}

	transform, err := solveAffine(
		[3]detector.Point{srcLeft, srcRight, srcNose},
		[3]detector.Point{dstLeft, dstRight, dstNose},
	)
	if err != nil {
		return Placement{}, err
	}

	return Placement{
		Transform: transform,
		LeftEye:   dstLeft,
		RightEye:  dstRight,
		Nose:      dstNose,
	}, nil
}
