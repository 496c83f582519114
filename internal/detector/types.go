package detector

import "math"

// Point represents a 2D point in image coordinates
type Point struct {
	X, Y float32
}

// BoundingBox represents a face bounding box
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Keypoints represents the 5 coarse landmark points from the face detector
type Keypoints struct {
	LeftEye    Point // index 0
	RightEye   Point // index 1
	Nose       Point // index 2
	LeftMouth  Point // index 3
	RightMouth Point // index 4
}

// AsSlice returns keypoints as a flat slice [x0,y0,x1,y1,...]
func (k Keypoints) AsSlice() []float32 {
	return []float32{
		k.LeftEye.X, k.LeftEye.Y,
		k.RightEye.X, k.RightEye.Y,
		k.Nose.X, k.Nose.Y,
		k.LeftMouth.X, k.LeftMouth.Y,
		k.RightMouth.X, k.RightMouth.Y,
	}
}

// LandmarkGroup names a cluster of fine-grained landmark points outlining
// one facial feature.
type LandmarkGroup string

const (
	GroupLeftEye    LandmarkGroup = "left_eye"
	GroupRightEye   LandmarkGroup = "right_eye"
	GroupNoseBridge LandmarkGroup = "nose_bridge"
)

// EmbeddingDim is the dimensionality of face identity embeddings.
const EmbeddingDim = 512

// Embedding is an L2-normalized face identity vector.
type Embedding [EmbeddingDim]float32

// Distance returns the Euclidean distance between two embeddings.
// Lower means more similar; both vectors are expected to be L2-normalized.
func (e *Embedding) Distance(other *Embedding) float32 {
	var sum float64
	for i := 0; i < EmbeddingDim; i++ {
		d := float64(e[i] - other[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// CosineSimilarity computes cosine similarity between two embeddings.
// Since embeddings are L2-normalized, this is the dot product.
func CosineSimilarity(a, b *Embedding) float32 {
	var dot float32
	for i := 0; i < EmbeddingDim; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

// Face represents a detected face
type Face struct {
	BoundingBox BoundingBox
	Keypoints   Keypoints                 // 5-point from SCRFD
	Groups      map[LandmarkGroup][]Point // fine-grained groups from the landmark model (optional)
	Embedding   *Embedding                // identity embedding (optional)
	Score       float32
}

// HasAlignmentGroups reports whether the fine-grained landmark groups
// required by the alignment solver are present and non-empty.
func (f *Face) HasAlignmentGroups() bool {
	if f.Groups == nil {
		return false
	}
	for _, g := range []LandmarkGroup{GroupLeftEye, GroupRightEye, GroupNoseBridge} {
		if len(f.Groups[g]) == 0 {
			return false
		}
	}
	return true
}

// GroupCenter returns the mean of a landmark group's points.
// Returns the zero point for an empty group.
func (f *Face) GroupCenter(g LandmarkGroup) Point {
	pts := f.Groups[g]
	if len(pts) == 0 {
		return Point{}
	}
	var cx, cy float32
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float32(len(pts))
	return Point{X: cx / n, Y: cy / n}
}
