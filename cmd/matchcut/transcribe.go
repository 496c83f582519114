package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dudu/matchcut/internal/transcribe"
)

var transcribeFlags struct {
	input  string
	output string
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe every video in a directory into one text file",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile := transcribeFlags.output
		if outputFile == "" {
			outputFile = filepath.Join(transcribeFlags.input, "transcriptions.txt")
		}
		svc := transcribe.NewService(cfg.Transcribe.FFmpegBinary, cfg.Transcribe.WhisperBinary, cfg.Transcribe.Model, cfg.Transcribe.Language)
		_, err := svc.Run(cmd.Context(), transcribeFlags.input, outputFile)
		return err
	},
}

func init() {
	f := transcribeCmd.Flags()
	f.StringVarP(&transcribeFlags.input, "input", "i", "", "directory of videos to transcribe (required)")
	f.StringVarP(&transcribeFlags.output, "output", "o", "", "transcript file (default: <input>/transcriptions.txt)")
	transcribeCmd.MarkFlagRequired("input")
}
