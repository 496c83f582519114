package align

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/detector"
)

// WarpResult holds a face warped onto the canvas: the color image and the
// opacity mask marking the original image's footprint. Both are canvas-sized.
type WarpResult struct {
	Image gocv.Mat // BGR, canvas size
	Mask  gocv.Mat // single channel, 255 inside the warped footprint, 0 outside
}

// Close releases the result's Mats.
func (r *WarpResult) Close() {
	r.Image.Close()
	r.Mask.Close()
}

// Warp applies the transform to the full source image and to a synthetic
// full-opacity mask of the source's dimensions. The image is warped with
// cubic interpolation and black fill; the mask with nearest-neighbor so its
// edge stays hard, and zero (transparent) fill.
func Warp(img gocv.Mat, transform Affine, canvas CanvasSpec) (WarpResult, error) {
	if img.Empty() {
		return WarpResult{}, fmt.Errorf("warp: empty source image")
	}

	m := transform.Mat()
	defer m.Close()

	size := image.Pt(canvas.Width, canvas.Height)
	black := color.RGBA{}

	warped := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &warped, m, size,
		gocv.InterpolationCubic, gocv.BorderConstant, black)
	if warped.Empty() {
		warped.Close()
		return WarpResult{}, fmt.Errorf("warp: image warp produced empty output")
	}

	opaque := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0),
		img.Rows(), img.Cols(), gocv.MatTypeCV8U)
	defer opaque.Close()

	mask := gocv.NewMat()
	gocv.WarpAffineWithParams(opaque, &mask, m, size,
		gocv.InterpolationNearestNeighbor, gocv.BorderConstant, black)
	if mask.Empty() {
		warped.Close()
		mask.Close()
		return WarpResult{}, fmt.Errorf("warp: mask warp produced empty output")
	}

	return WarpResult{Image: warped, Mask: mask}, nil
}

// CompositeTransparent merges the warped image and mask into a BGRA image
// whose alpha channel is the warped footprint. The caller owns the result.
func (r *WarpResult) CompositeTransparent() gocv.Mat {
	channels := gocv.Split(r.Image)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	bgra := gocv.NewMat()
	gocv.Merge([]gocv.Mat{channels[0], channels[1], channels[2], r.Mask}, &bgra)
	return bgra
}

// CompositeOnWhite places the warped image over a solid white canvas using
// the mask, producing an opaque BGR image. The caller owns the result.
func (r *WarpResult) CompositeOnWhite() gocv.Mat {
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0),
		r.Image.Rows(), r.Image.Cols(), gocv.MatTypeCV8UC3)
	r.Image.CopyToWithMask(&white, r.Mask)
	return white
}

// DrawEyeMarkers draws the target eye line and circles onto img, for debug
// output. Matches the overlay style used to verify alignment by eye.
func DrawEyeMarkers(img *gocv.Mat, left, right detector.Point) {
	lime := color.RGBA{G: 255, A: 255}
	lp := image.Pt(int(left.X+0.5), int(left.Y+0.5))
	rp := image.Pt(int(right.X+0.5), int(right.Y+0.5))

	gocv.Line(img, lp, rp, lime, 3)
	gocv.Circle(img, lp, 5, lime, 2)
	gocv.Circle(img, rp, 5, lime, 2)
}
