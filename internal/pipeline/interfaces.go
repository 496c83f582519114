package pipeline

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/detector"
	"github.com/dudu/matchcut/internal/inference"
)

// FaceDetector finds candidate faces in an image.
type FaceDetector interface {
	Detect(img gocv.Mat) ([]detector.Face, error)
	Close() error
}

// LandmarkDetector fills in fine-grained landmark groups for a detected face.
type LandmarkDetector interface {
	Detect(img gocv.Mat, face *detector.Face) error
	Close() error
}

// FaceEncoder extracts an identity embedding for a detected face.
type FaceEncoder interface {
	Extract(img gocv.Mat, face *detector.Face) (*detector.Embedding, error)
	Close() error
}

// Deps bundles the external model collaborators the pipeline runs against.
// Tests substitute deterministic stubs.
type Deps struct {
	Detector   FaceDetector
	Landmarker LandmarkDetector
	Encoder    FaceEncoder
}

// Close releases all collaborators.
func (d Deps) Close() {
	if d.Detector != nil {
		d.Detector.Close()
	}
	if d.Landmarker != nil {
		d.Landmarker.Close()
	}
	if d.Encoder != nil {
		d.Encoder.Close()
	}
}

// NewONNXDeps constructs the real model-backed collaborators from the ONNX
// models in modelsDir (scrfd_10g.onnx, 2d106det.onnx, arcface.onnx).
func NewONNXDeps(modelsDir string, mode detector.Mode) (Deps, error) {
	if err := inference.Initialize(); err != nil {
		return Deps{}, fmt.Errorf("failed to initialize inference: %w", err)
	}

	det, err := detector.NewSCRFD(filepath.Join(modelsDir, "scrfd_10g.onnx"), mode, 0.5, 0.4)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to create detector: %w", err)
	}

	lm, err := detector.NewLandmark106(filepath.Join(modelsDir, "2d106det.onnx"))
	if err != nil {
		det.Close()
		return Deps{}, fmt.Errorf("failed to create landmark detector: %w", err)
	}

	enc, err := detector.NewArcFaceEncoder(filepath.Join(modelsDir, "arcface.onnx"))
	if err != nil {
		det.Close()
		lm.Close()
		return Deps{}, fmt.Errorf("failed to create encoder: %w", err)
	}

	return Deps{Detector: det, Landmarker: lm, Encoder: enc}, nil
}
