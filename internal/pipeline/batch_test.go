package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/align"
	"github.com/dudu/matchcut/internal/detector"
)

// writeTestImage writes a small solid-color PNG or JPEG.
func writeTestImage(t *testing.T, path string) {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0),
		240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()
	if !gocv.IMWrite(path, img) {
		t.Fatalf("could not write test image %s", path)
	}
}

func workingDeps() Deps {
	return Deps{
		Detector:   &stubDetector{faces: []detector.Face{faceBox(100)}},
		Landmarker: &stubLandmarker{},
		Encoder:    &stubEncoder{},
	}
}

func batchPipeline(deps Deps, limit int) *Pipeline {
	return New(Config{
		Canvas:         align.CanvasSpec{Width: 640, Height: 480, EyeWidth: 100},
		MatchTolerance: 0.6,
		JPEGQuality:    95,
		Limit:          limit,
	}, deps, nil)
}

func TestRunMissingInputDir(t *testing.T) {
	p := batchPipeline(workingDeps(), 0)
	_, err := p.Run(filepath.Join(t.TempDir(), "does-not-exist"), t.TempDir())
	if !errors.Is(err, ErrInputDirMissing) {
		t.Errorf("Run() error = %v, want ErrInputDirMissing", err)
	}
}

func TestRunNoEligibleImages(t *testing.T) {
	inputDir := t.TempDir()
	// A non-image file must not count as eligible.
	if err := os.WriteFile(filepath.Join(inputDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := batchPipeline(workingDeps(), 0)
	_, err := p.Run(inputDir, t.TempDir())
	if !errors.Is(err, ErrNoEligibleImages) {
		t.Errorf("Run() error = %v, want ErrNoEligibleImages", err)
	}
}

func TestRunProcessesAllImages(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writeTestImage(t, filepath.Join(inputDir, name))
	}

	p := batchPipeline(workingDeps(), 0)
	summary, err := p.Run(inputDir, outputDir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Attempted != 3 || summary.Saved != 3 || summary.Skipped != 0 {
		t.Errorf("summary = %+v, want 3 attempted, 3 saved, 0 skipped", summary)
	}
	if summary.ByStatus[StatusSuccess] != 3 {
		t.Errorf("ByStatus[success] = %d, want 3", summary.ByStatus[StatusSuccess])
	}

	for _, name := range []string{"aligned_a.png", "aligned_b.png", "aligned_c.png"} {
		path := filepath.Join(outputDir, ProcessedDirName, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected output %s: %v", path, err)
		}
	}
}

func TestRunSkipsFailedImages(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestImage(t, filepath.Join(inputDir, "good.png"))
	// An unreadable image file produces a load error, not a batch abort.
	if err := os.WriteFile(filepath.Join(inputDir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := batchPipeline(workingDeps(), 0)
	summary, err := p.Run(inputDir, outputDir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Attempted != 2 || summary.Saved != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 2 attempted, 1 saved, 1 skipped", summary)
	}
	if summary.ByStatus[StatusLoadError] != 1 {
		t.Errorf("ByStatus[load-error] = %d, want 1", summary.ByStatus[StatusLoadError])
	}
}

func TestRunNoFaceCountsSkipped(t *testing.T) {
	inputDir := t.TempDir()
	writeTestImage(t, filepath.Join(inputDir, "a.png"))

	deps := Deps{Detector: &stubDetector{}, Landmarker: &stubLandmarker{}, Encoder: &stubEncoder{}}
	p := batchPipeline(deps, 0)
	summary, err := p.Run(inputDir, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Saved != 0 || summary.ByStatus[StatusNoFace] != 1 {
		t.Errorf("summary = %+v, want 0 saved and 1 no-face", summary)
	}
}

func TestRunHonorsLimit(t *testing.T) {
	inputDir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writeTestImage(t, filepath.Join(inputDir, name))
	}

	p := batchPipeline(workingDeps(), 2)
	summary, err := p.Run(inputDir, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Attempted != 2 {
		t.Errorf("Attempted = %d, want 2 (cap)", summary.Attempted)
	}
}

func TestProcessImageJPEGOutput(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	inputPath := filepath.Join(inputDir, "face.png")
	writeTestImage(t, inputPath)

	p := New(Config{
		Canvas:         align.CanvasSpec{Width: 640, Height: 480, EyeWidth: 100},
		MatchTolerance: 0.6,
		JPEGOutput:     true,
		JPEGQuality:    95,
	}, workingDeps(), nil)

	outputPath, status, err := p.ProcessImage(inputPath, outputDir, outputDir)
	if err != nil || status != StatusSuccess {
		t.Fatalf("ProcessImage() = (%v, %v)", status, err)
	}
	if filepath.Base(outputPath) != "aligned_face.jpg" {
		t.Errorf("output name = %s, want aligned_face.jpg", filepath.Base(outputPath))
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestResolveReferencePaths(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "b.jpg"))
	writeTestImage(t, filepath.Join(dir, "a.png"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("directory", func(t *testing.T) {
		paths, err := ResolveReferencePaths(dir)
		if err != nil {
			t.Fatalf("ResolveReferencePaths() error = %v", err)
		}
		if len(paths) != 2 {
			t.Fatalf("got %d paths, want 2", len(paths))
		}
		if filepath.Base(paths[0]) != "a.png" || filepath.Base(paths[1]) != "b.jpg" {
			t.Errorf("paths = %v, want sorted [a.png b.jpg]", paths)
		}
	})

	t.Run("comma list drops missing", func(t *testing.T) {
		spec := filepath.Join(dir, "a.png") + "," + filepath.Join(dir, "missing.png")
		paths, err := ResolveReferencePaths(spec)
		if err != nil {
			t.Fatalf("ResolveReferencePaths() error = %v", err)
		}
		if len(paths) != 1 || filepath.Base(paths[0]) != "a.png" {
			t.Errorf("paths = %v, want just a.png", paths)
		}
	})

	t.Run("single file", func(t *testing.T) {
		paths, err := ResolveReferencePaths(filepath.Join(dir, "b.jpg"))
		if err != nil {
			t.Fatalf("ResolveReferencePaths() error = %v", err)
		}
		if len(paths) != 1 {
			t.Errorf("paths = %v, want one entry", paths)
		}
	})
}

func TestLoadReferencesSkipsFacelessImages(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "ref.png"))

	// Detector finds nothing: the reference is skipped and the set is empty.
	deps := Deps{Detector: &stubDetector{}, Landmarker: &stubLandmarker{}, Encoder: &stubEncoder{}}
	embeddings, err := LoadReferences(dir, deps)
	if err != nil {
		t.Fatalf("LoadReferences() error = %v", err)
	}
	if len(embeddings) != 0 {
		t.Errorf("got %d embeddings, want 0", len(embeddings))
	}
}

func TestLoadReferencesUnresolvableSpecFallsBack(t *testing.T) {
	// A reference spec that matches no existing files must not abort the
	// run; it warns and leaves matching in first-face fallback mode.
	spec := filepath.Join(t.TempDir(), "missing-dir")
	embeddings, err := LoadReferences(spec, workingDeps())
	if err != nil {
		t.Fatalf("LoadReferences() error = %v, want nil", err)
	}
	if len(embeddings) != 0 {
		t.Fatalf("got %d embeddings, want 0", len(embeddings))
	}

	// The batch proceeds with the empty set and aligns the first face.
	inputDir := t.TempDir()
	writeTestImage(t, filepath.Join(inputDir, "a.png"))

	p := New(Config{
		Canvas:         align.CanvasSpec{Width: 640, Height: 480, EyeWidth: 100},
		MatchTolerance: 0.6,
		JPEGQuality:    95,
	}, workingDeps(), embeddings)

	summary, err := p.Run(inputDir, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Attempted != 1 || summary.Saved != 1 {
		t.Errorf("summary = %+v, want 1 attempted, 1 saved", summary)
	}
}

func TestProcessImageSaveError(t *testing.T) {
	inputDir := t.TempDir()
	inputPath := filepath.Join(inputDir, "face.png")
	writeTestImage(t, inputPath)

	// A processed dir that does not exist makes the final write fail.
	missingDir := filepath.Join(t.TempDir(), "not-created")

	p := batchPipeline(workingDeps(), 0)
	_, status, err := p.ProcessImage(inputPath, missingDir, missingDir)
	if status != StatusSaveError {
		t.Errorf("ProcessImage() status = %v, want save-error", status)
	}
	if err == nil {
		t.Error("ProcessImage() error = nil, want write failure")
	}
}

func TestProcessImageDegenerateGeometry(t *testing.T) {
	inputDir := t.TempDir()
	inputPath := filepath.Join(inputDir, "face.png")
	writeTestImage(t, inputPath)

	// Landmarker reports coincident eye centers: no usable scale.
	deps := Deps{
		Detector:   &stubDetector{faces: []detector.Face{faceBox(100)}},
		Landmarker: &collapsedLandmarker{},
		Encoder:    &stubEncoder{},
	}
	p := batchPipeline(deps, 0)

	_, status, err := p.ProcessImage(inputPath, t.TempDir(), t.TempDir())
	if status != StatusDegenerateGeometry {
		t.Errorf("ProcessImage() status = %v, want degenerate-geometry", status)
	}
	if err == nil {
		t.Error("ProcessImage() error = nil, want degenerate geometry error")
	}
}

func TestLoadReferencesExtractsEmbeddings(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "ref.png"))

	deps := workingDeps()
	embeddings, err := LoadReferences(dir, deps)
	if err != nil {
		t.Fatalf("LoadReferences() error = %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("got %d embeddings, want 1", len(embeddings))
	}
	want := embeddingAt(0.1) // stub encoder: X1 / 1000, face at X1=100
	if embeddings[0] != want {
		t.Errorf("embedding[0][0] = %v, want %v", embeddings[0][0], want[0])
	}
}
