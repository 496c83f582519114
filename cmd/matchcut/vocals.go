package main

import (
	"github.com/spf13/cobra"

	"github.com/dudu/matchcut/internal/vocals"
)

var vocalsFlags struct {
	input  string
	output string
}

var vocalsCmd = &cobra.Command{
	Use:   "vocals",
	Short: "Isolate the vocal stem of an audio file with Demucs",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := vocals.NewService(cfg.Vocals.Binary, cfg.Vocals.Model)
		_, err := svc.Extract(cmd.Context(), vocalsFlags.input, vocalsFlags.output)
		return err
	},
}

func init() {
	f := vocalsCmd.Flags()
	f.StringVarP(&vocalsFlags.input, "input", "i", "", "audio file to separate (required)")
	f.StringVarP(&vocalsFlags.output, "output", "o", ".", "directory for the extracted vocals")
	vocalsCmd.MarkFlagRequired("input")
}
