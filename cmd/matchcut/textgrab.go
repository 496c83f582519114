package main

import (
	"github.com/spf13/cobra"

	"github.com/dudu/matchcut/internal/textgrab"
)

var textgrabFlags struct {
	input    string
	output   string
	interval float64
}

var textgrabCmd = &cobra.Command{
	Use:   "textgrab",
	Short: "Extract on-screen text from a video with OCR",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := cfg.TextGrab.SampleIntervalSec
		if textgrabFlags.interval > 0 {
			interval = textgrabFlags.interval
		}
		outputFile := textgrabFlags.output
		if outputFile == "" {
			outputFile = textgrab.OutputPath(textgrabFlags.input)
		}
		svc := textgrab.NewService(cfg.TextGrab.Binary, interval)
		_, err := svc.Run(cmd.Context(), textgrabFlags.input, outputFile)
		return err
	},
}

func init() {
	f := textgrabCmd.Flags()
	f.StringVarP(&textgrabFlags.input, "input", "i", "", "video file to scan (required)")
	f.StringVarP(&textgrabFlags.output, "output", "o", "", "output text file (default: next to the video)")
	f.Float64Var(&textgrabFlags.interval, "interval", 0, "seconds between sampled frames (default from config)")
	textgrabCmd.MarkFlagRequired("input")
}
