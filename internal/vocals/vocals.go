// Package vocals wraps a spawned Demucs process to isolate the vocal stem
// of an audio file.
package vocals

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// RunnerFunc executes an external command. Tests inject one to avoid
// depending on an installed demucs.
type RunnerFunc func(ctx context.Context, name string, args ...string) error

// Service extracts vocals via the demucs CLI.
type Service struct {
	binary string
	model  string
	runner RunnerFunc
}

// NewService creates a vocal extraction service.
func NewService(binary, model string) *Service {
	return &Service{binary: binary, model: model}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(runner RunnerFunc) {
	s.runner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Extract separates the vocal stem from inputPath and moves it to
// outputDir/vocals_<basename>.wav, returning the final path. Demucs writes
// into a staging directory first; the separated stem lands at
// <staging>/<model>/<track>/vocals.wav.
func (s *Service) Extract(ctx context.Context, inputPath, outputDir string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	staging, err := os.MkdirTemp("", "matchcut-demucs-*")
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	logrus.Infof("separating vocals from %s with %s", filepath.Base(inputPath), s.model)
	args := []string{"-n", s.model, "--two-stems", "vocals", "-o", staging, inputPath}
	if err := s.run(ctx, s.binary, args...); err != nil {
		return "", fmt.Errorf("demucs failed: %w", err)
	}

	track := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	separated := filepath.Join(staging, s.model, track, "vocals.wav")
	if _, err := os.Stat(separated); err != nil {
		return "", fmt.Errorf("expected separated stem missing: %w", err)
	}

	outputPath := filepath.Join(outputDir, "vocals_"+track+".wav")
	if err := moveFile(separated, outputPath); err != nil {
		return "", fmt.Errorf("move vocals: %w", err)
	}

	logrus.Infof("vocals saved to %s", outputPath)
	return outputPath, nil
}

// moveFile renames, falling back to copy when staging is on another filesystem.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
