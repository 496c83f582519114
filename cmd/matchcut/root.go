package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudu/matchcut/internal/config"
	"github.com/dudu/matchcut/internal/logging"
)

var (
	cfg      config.Config
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "matchcut",
	Short: "Media preparation toolkit for match-cut video editing",
	Long: `matchcut prepares source material for match-cut edits: it aligns faces
across image collections onto a fixed canvas, and wraps common audio and
video preprocessing (vocal isolation, transcription, text overlay OCR).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logging.Setup(cfg.Logging.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(alignCmd)
	rootCmd.AddCommand(vocalsCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(textgrabCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		return err
	}
	return nil
}
