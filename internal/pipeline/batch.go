package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Subdirectories created under the output folder.
const (
	ProcessedDirName = "_processed"
	DebugDirName     = "_debug_affine"
)

// Batch-aborting conditions. Everything else skips a single image.
var (
	ErrInputDirMissing  = errors.New("input directory not found")
	ErrNoEligibleImages = errors.New("no eligible images in input directory")
)

// batch input extensions, matched case-insensitively
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// Summary reports batch counters for verification and display.
type Summary struct {
	Attempted int
	Saved     int
	Skipped   int
	ByStatus  map[Status]int
}

// eligibleImages returns the sorted batch inputs in dir.
func eligibleImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, dir)
		}
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run processes every eligible image in inputDir, writing results under
// outputDir. A failure on one image skips it and continues; the batch only
// aborts for a missing input dir, an empty input set, or an output
// directory that cannot be created.
func (p *Pipeline) Run(inputDir, outputDir string) (Summary, error) {
	summary := Summary{ByStatus: make(map[Status]int)}

	files, err := eligibleImages(inputDir)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		return summary, fmt.Errorf("%w: %s", ErrNoEligibleImages, inputDir)
	}

	processedDir := filepath.Join(outputDir, ProcessedDirName)
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output directory: %w", err)
	}
	debugDir := filepath.Join(outputDir, DebugDirName)
	if p.cfg.DebugDraw {
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return summary, fmt.Errorf("create debug directory: %w", err)
		}
	}

	total := len(files)
	if p.cfg.Limit > 0 && p.cfg.Limit < total {
		total = p.cfg.Limit
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("aligning"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	for _, name := range files {
		inputPath := filepath.Join(inputDir, name)

		outputPath, status, err := p.ProcessImage(inputPath, processedDir, debugDir)
		summary.Attempted++
		summary.ByStatus[status]++
		bar.Add(1)

		if status == StatusSuccess {
			summary.Saved++
			logrus.Debugf("saved %s", outputPath)
		} else {
			summary.Skipped++
			entry := logrus.WithField("file", name).WithField("status", string(status))
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Warn("skipping image")
		}

		if p.cfg.Limit > 0 && summary.Attempted >= p.cfg.Limit {
			logrus.Infof("image cap reached after %d attempts", summary.Attempted)
			break
		}
	}

	return summary, nil
}
