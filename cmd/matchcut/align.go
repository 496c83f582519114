package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudu/matchcut/internal/align"
	"github.com/dudu/matchcut/internal/detector"
	"github.com/dudu/matchcut/internal/pipeline"
)

var alignFlags struct {
	input     string
	output    string
	reference string
	eyeWidth  float64
	accurate  bool
	jpg       bool
	limit     int
	debugDraw bool
}

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Align faces across an image collection onto a fixed canvas",
	Long: `Detects a target face in every image of a directory, solves an affine
transform that places its eyes at a fixed symmetric position on a large
canvas, and writes the warped result with a transparency mask. When
reference images are given, only faces matching them are aligned.`,
	RunE: runAlign,
}

func init() {
	f := alignCmd.Flags()
	f.StringVarP(&alignFlags.input, "input", "i", "", "directory of images to align (required)")
	f.StringVarP(&alignFlags.output, "output", "o", "", "output directory (default: the input directory)")
	f.StringVarP(&alignFlags.reference, "reference", "r", "", "reference image file, comma-separated list, or directory")
	f.Float64Var(&alignFlags.eyeWidth, "eye-width", 0, "target inter-eye distance in canvas pixels")
	f.BoolVar(&alignFlags.accurate, "accurate", false, "use the slower, more accurate detector")
	f.BoolVar(&alignFlags.jpg, "jpg", false, "save white-backed JPEG instead of transparent PNG")
	f.IntVar(&alignFlags.limit, "limit", 0, "stop after this many images (0 = all)")
	f.BoolVar(&alignFlags.debugDraw, "debug-draw", false, "also write debug overlays marking the solved eye line")
	alignCmd.MarkFlagRequired("input")
}

func runAlign(cmd *cobra.Command, args []string) error {
	ac := cfg.Align
	if alignFlags.eyeWidth > 0 {
		ac.TargetEyeWidth = alignFlags.eyeWidth
	}
	mode := detector.Mode(ac.Detector)
	if alignFlags.accurate {
		mode = detector.ModeAccurate
	}

	outputDir := alignFlags.output
	if outputDir == "" {
		outputDir = alignFlags.input
	}

	deps, err := pipeline.NewONNXDeps(ac.ModelsDir, mode)
	if err != nil {
		return fmt.Errorf("initialize models: %w", err)
	}
	defer deps.Close()

	var references []detector.Embedding
	if alignFlags.reference != "" {
		references, err = pipeline.LoadReferences(alignFlags.reference, deps)
		if err != nil {
			return err
		}
	}

	p := pipeline.New(pipeline.Config{
		Canvas: align.CanvasSpec{
			Width:    ac.CanvasWidth,
			Height:   ac.CanvasHeight,
			EyeWidth: ac.TargetEyeWidth,
		},
		MatchTolerance: ac.MatchTolerance,
		JPEGOutput:     alignFlags.jpg,
		JPEGQuality:    ac.JPEGQuality,
		DebugDraw:      alignFlags.debugDraw,
		Limit:          alignFlags.limit,
	}, deps, references)

	summary, err := p.Run(alignFlags.input, outputDir)
	if err != nil {
		if errors.Is(err, pipeline.ErrInputDirMissing) || errors.Is(err, pipeline.ErrNoEligibleImages) {
			logrus.Warn(err)
			return nil
		}
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(summary pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Result", "Count"})
	t.AppendRow(table.Row{"attempted", summary.Attempted})
	t.AppendRow(table.Row{"saved", summary.Saved})
	t.AppendRow(table.Row{"skipped", summary.Skipped})
	for _, status := range []pipeline.Status{
		pipeline.StatusLoadError,
		pipeline.StatusNoFace,
		pipeline.StatusNoMatch,
		pipeline.StatusNoLandmarks,
		pipeline.StatusDegenerateGeometry,
		pipeline.StatusWarpError,
		pipeline.StatusSaveError,
	} {
		if n := summary.ByStatus[status]; n > 0 {
			t.AppendRow(table.Row{string(status), n})
		}
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
