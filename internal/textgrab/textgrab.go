// Package textgrab samples frames from a video and runs OCR on them via a
// spawned tesseract process.
package textgrab

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// RunnerFunc executes an external command and returns its stdout.
type RunnerFunc func(ctx context.Context, name string, args ...string) (string, error)

// Service extracts overlay text from videos.
type Service struct {
	binary         string
	sampleInterval float64
	runner         RunnerFunc
}

// NewService creates an OCR extraction service. sampleInterval is the time in
// seconds between sampled frames.
func NewService(binary string, sampleInterval float64) *Service {
	return &Service{binary: binary, sampleInterval: sampleInterval}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(runner RunnerFunc) {
	s.runner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}

// ocrFrame writes the frame to a temporary PNG and runs tesseract on it.
func (s *Service) ocrFrame(ctx context.Context, frame gocv.Mat, tempDir string) (string, error) {
	framePath := filepath.Join(tempDir, "frame.png")
	if ok := gocv.IMWrite(framePath, frame); !ok {
		return "", fmt.Errorf("write frame image")
	}
	return s.run(ctx, s.binary, framePath, "stdout")
}

// OutputPath returns the text file path for a video: same location and stem
// with a .txt extension.
func OutputPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".txt"
}

// Run samples videoPath every sampleInterval seconds, OCRs each sampled frame
// in grayscale, and writes any recognized text to outputPath with frame and
// timestamp headers. Returns the number of frames that yielded text.
func (s *Service) Run(ctx context.Context, videoPath, outputPath string) (int, error) {
	capture, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return 0, fmt.Errorf("open video: %w", err)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		return 0, fmt.Errorf("video reports invalid frame rate %.2f", fps)
	}
	frameInterval := int(fps * s.sampleInterval)
	if frameInterval < 1 {
		frameInterval = 1
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	tempDir, err := os.MkdirTemp("", "matchcut-ocr-*")
	if err != nil {
		return 0, fmt.Errorf("create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	frame := gocv.NewMat()
	defer frame.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	frameCount := 0
	hits := 0
	for {
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		if frameCount%frameInterval == 0 {
			gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
			text, err := s.ocrFrame(ctx, gray, tempDir)
			if err != nil {
				logrus.WithField("frame", frameCount).Warnf("ocr failed: %v", err)
			} else if strings.TrimSpace(text) != "" {
				fmt.Fprintf(out, "Frame %d (Time: %.2f sec):\n", frameCount, float64(frameCount)/fps)
				fmt.Fprint(out, text)
				fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 50))
				hits++
			}
		}
		frameCount++
	}

	logrus.Infof("text extraction complete, %d frames with text, output saved to %s", hits, outputPath)
	return hits, nil
}
