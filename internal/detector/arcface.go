package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/inference"
)

const arcfaceSize = 112

// ArcFace reference landmarks for a 112x112 aligned face
var arcfaceTemplate = [5]Point{
	{X: 38.2946, Y: 51.6963}, // left eye
	{X: 73.5318, Y: 51.5014}, // right eye
	{X: 56.0252, Y: 71.7366}, // nose
	{X: 41.5493, Y: 92.3655}, // left mouth
	{X: 70.7299, Y: 92.2041}, // right mouth
}

// ArcFaceEncoder extracts face identity embeddings using ArcFace
type ArcFaceEncoder struct {
	session *inference.Session
}

// NewArcFaceEncoder creates a new ArcFace encoder
func NewArcFaceEncoder(modelPath string) (*ArcFaceEncoder, error) {
	inputNames := []string{"input.1"}
	outputNames := []string{"683"} // output node name from model

	session, err := inference.NewSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create ArcFace session: %w", err)
	}

	return &ArcFaceEncoder{
		session: session,
	}, nil
}

// Extract computes the embedding for a detected face. The face crop is
// aligned to the ArcFace template with a similarity transform on the
// detector's 5 keypoints before inference.
func (e *ArcFaceEncoder) Extract(img gocv.Mat, face *Face) (*Embedding, error) {
	transform := estimateSimilarityTransform(face.Keypoints)
	defer transform.Close()

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, transform, image.Pt(arcfaceSize, arcfaceSize))

	inputData := e.preprocess(aligned)

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, arcfaceSize, arcfaceSize),
		inputData,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := inference.CreateEmptyTensor[float32]([]int64{1, EmbeddingDim})
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := e.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return normalizeEmbedding(outputTensor.GetData()), nil
}

// preprocess converts an aligned face to model input format
func (e *ArcFaceEncoder) preprocess(img gocv.Mat) []float32 {
	rgb := gocv.NewMat()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	floatImg := gocv.NewMat()
	rgb.ConvertTo(&floatImg, gocv.MatTypeCV32FC3)
	defer floatImg.Close()

	// HWC to NCHW, normalized to [0, 1]
	blob := gocv.BlobFromImage(floatImg, 1.0/255.0, image.Pt(arcfaceSize, arcfaceSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	return bytesToFloat32(blob.ToBytes())
}

// normalizeEmbedding L2-normalizes the raw model output
func normalizeEmbedding(data []float32) *Embedding {
	var embedding Embedding

	var norm float64
	for _, v := range data[:EmbeddingDim] {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)

	if norm < 1e-10 {
		norm = 1
	}

	for i := 0; i < EmbeddingDim; i++ {
		embedding[i] = data[i] / float32(norm)
	}

	return &embedding
}

// Close releases encoder resources
func (e *ArcFaceEncoder) Close() error {
	return e.session.Destroy()
}

// estimateSimilarityTransform computes the 2D similarity transform
// (rotation, uniform scale, translation) mapping the detected keypoints
// onto the ArcFace template, as a 2x3 matrix.
func estimateSimilarityTransform(kps Keypoints) gocv.Mat {
	src := kps.AsSlice()
	dst := make([]float32, 0, 10)
	for _, p := range arcfaceTemplate {
		dst = append(dst, p.X, p.Y)
	}

	const n = 5

	// Centroids
	var srcCx, srcCy, dstCx, dstCy float32
	for i := 0; i < n; i++ {
		srcCx += src[i*2]
		srcCy += src[i*2+1]
		dstCx += dst[i*2]
		dstCy += dst[i*2+1]
	}
	srcCx /= n
	srcCy /= n
	dstCx /= n
	dstCy /= n

	// Center the points and accumulate norms
	var srcNorm, dstNorm float64
	srcCentered := make([]float64, n*2)
	dstCentered := make([]float64, n*2)
	for i := 0; i < n; i++ {
		srcCentered[i*2] = float64(src[i*2] - srcCx)
		srcCentered[i*2+1] = float64(src[i*2+1] - srcCy)
		dstCentered[i*2] = float64(dst[i*2] - dstCx)
		dstCentered[i*2+1] = float64(dst[i*2+1] - dstCy)

		srcNorm += srcCentered[i*2]*srcCentered[i*2] + srcCentered[i*2+1]*srcCentered[i*2+1]
		dstNorm += dstCentered[i*2]*dstCentered[i*2] + dstCentered[i*2+1]*dstCentered[i*2+1]
	}
	srcNorm = math.Sqrt(srcNorm)
	dstNorm = math.Sqrt(dstNorm)

	// Cross-covariance
	var a11, a12, a21, a22 float64
	for i := 0; i < n; i++ {
		sx := srcCentered[i*2]
		sy := srcCentered[i*2+1]
		dx := dstCentered[i*2]
		dy := dstCentered[i*2+1]

		a11 += sx * dx
		a12 += sx * dy
		a21 += sy * dx
		a22 += sy * dy
	}

	// cos ∝ a11 + a22, sin ∝ a21 - a12
	norm := math.Sqrt((a11+a22)*(a11+a22) + (a21-a12)*(a21-a12))
	if norm < 1e-10 {
		norm = 1
	}

	cosTheta := (a11 + a22) / norm
	sinTheta := (a21 - a12) / norm
	scale := dstNorm / srcNorm

	transform := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	transform.SetDoubleAt(0, 0, scale*cosTheta)
	transform.SetDoubleAt(0, 1, -scale*sinTheta)
	transform.SetDoubleAt(1, 0, scale*sinTheta)
	transform.SetDoubleAt(1, 1, scale*cosTheta)

	// Translation: dstC - scale * R * srcC
	tx := float64(dstCx) - scale*(cosTheta*float64(srcCx)-sinTheta*float64(srcCy))
	ty := float64(dstCy) - scale*(sinTheta*float64(srcCx)+cosTheta*float64(srcCy))
	transform.SetDoubleAt(0, 2, tx)
	transform.SetDoubleAt(1, 2, ty)

	return transform
}
