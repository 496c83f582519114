// Package pipeline orchestrates face alignment batches: reference loading,
// face matching, affine placement, canvas warping, and output writing.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/align"
	"github.com/dudu/matchcut/internal/detector"
)

// Config holds the immutable per-run pipeline settings.
type Config struct {
	Canvas         align.CanvasSpec
	MatchTolerance float64
	JPEGOutput     bool // composite on white and save JPEG instead of transparent PNG
	JPEGQuality    int
	DebugDraw      bool
	Limit          int // stop after this many attempted images; 0 means no cap
}

// Pipeline processes images one at a time against a fixed reference set.
type Pipeline struct {
	cfg        Config
	deps       Deps
	references []detector.Embedding
}

// New creates a pipeline with pre-loaded reference embeddings.
func New(cfg Config, deps Deps, references []detector.Embedding) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		deps:       deps,
		references: references,
	}
}

// ProcessImage runs the full per-image flow: load, match, solve, warp,
// composite, save. Returns the canonical output path on success. Failures
// are reported as a status plus an optional underlying error; they never
// affect other images.
func (p *Pipeline) ProcessImage(inputPath, processedDir, debugDir string) (string, Status, error) {
	img := gocv.IMRead(inputPath, gocv.IMReadColor)
	if img.Empty() {
		return "", StatusLoadError, fmt.Errorf("failed to decode image: %s", inputPath)
	}
	defer img.Close()

	face, status, err := p.findMatchingFace(img)
	if status != StatusSuccess {
		return "", status, err
	}

	placement, err := align.Solve(face, p.cfg.Canvas)
	if err != nil {
		if err == align.ErrMissingLandmarks {
			return "", StatusNoLandmarks, err
		}
		return "", StatusDegenerateGeometry, err
	}

	warped, err := align.Warp(img, placement.Transform, p.cfg.Canvas)
	if err != nil {
		return "", StatusWarpError, err
	}
	defer warped.Close()

	var final gocv.Mat
	if p.cfg.JPEGOutput {
		final = warped.CompositeOnWhite()
	} else {
		final = warped.CompositeTransparent()
	}
	defer final.Close()

	if p.cfg.DebugDraw {
		p.writeDebugOverlay(final, placement, inputPath, debugDir)
	}

	outputPath := outputName(inputPath, processedDir, p.cfg.JPEGOutput)
	if err := p.save(final, outputPath); err != nil {
		return "", StatusSaveError, err
	}

	return outputPath, StatusSuccess, nil
}

// save encodes and writes the composited canvas.
func (p *Pipeline) save(img gocv.Mat, path string) error {
	var ok bool
	if p.cfg.JPEGOutput {
		ok = gocv.IMWriteWithParams(path, img, []int{gocv.IMWriteJpegQuality, p.cfg.JPEGQuality})
	} else {
		ok = gocv.IMWrite(path, img)
	}
	if !ok {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}

// writeDebugOverlay saves a copy of the final image with the target eye
// positions marked. Best effort: a failed overlay never fails the image.
func (p *Pipeline) writeDebugOverlay(final gocv.Mat, placement align.Placement, inputPath, debugDir string) {
	overlay := final.Clone()
	defer overlay.Close()

	align.DrawEyeMarkers(&overlay, placement.LeftEye, placement.RightEye)

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	path := filepath.Join(debugDir, "debug_"+base+".png")
	if !gocv.IMWrite(path, overlay) {
		logrus.Warnf("could not write debug overlay %s", path)
	}
}

// outputName derives the canonical output path from the input filename.
func outputName(inputPath, processedDir string, jpeg bool) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	ext := ".png"
	if jpeg {
		ext = ".jpg"
	}
	return filepath.Join(processedDir, "aligned_"+base+ext)
}
