// Package config holds the immutable runtime configuration for all
// matchcut subcommands, loaded from an optional TOML file over defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Logging controls log output.
type Logging struct {
	Level string `toml:"level"`
}

// Align configures the face alignment pipeline.
type Align struct {
	CanvasWidth    int     `toml:"canvas_width"`
	CanvasHeight   int     `toml:"canvas_height"`
	TargetEyeWidth float64 `toml:"target_eye_width"`
	MatchTolerance float64 `toml:"match_tolerance"`
	JPEGQuality    int     `toml:"jpeg_quality"`
	Detector       string  `toml:"detector"` // "fast" or "accurate"
	ModelsDir      string  `toml:"models_dir"`
}

// Vocals configures the Demucs vocal extraction wrapper.
type Vocals struct {
	Binary string `toml:"binary"`
	Model  string `toml:"model"`
}

// Transcribe configures the ffmpeg + Whisper transcription wrapper.
type Transcribe struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	WhisperBinary string `toml:"whisper_binary"`
	Model         string `toml:"model"`
	Language      string `toml:"language"`
}

// TextGrab configures the video OCR wrapper.
type TextGrab struct {
	Binary            string  `toml:"binary"`
	SampleIntervalSec float64 `toml:"sample_interval_sec"`
}

// Config is the root configuration.
type Config struct {
	Logging    Logging    `toml:"logging"`
	Align      Align      `toml:"align"`
	Vocals     Vocals     `toml:"vocals"`
	Transcribe Transcribe `toml:"transcribe"`
	TextGrab   TextGrab   `toml:"textgrab"`
}

// Default returns the built-in configuration. The alignment geometry
// defaults match the canvas used for downstream video editing.
func Default() Config {
	return Config{
		Logging: Logging{Level: "info"},
		Align: Align{
			CanvasWidth:    12228,
			CanvasHeight:   6912,
			TargetEyeWidth: 200,
			MatchTolerance: 0.6,
			JPEGQuality:    95,
			Detector:       "fast",
			ModelsDir:      "models",
		},
		Vocals: Vocals{
			Binary: "demucs",
			Model:  "htdemucs",
		},
		Transcribe: Transcribe{
			FFmpegBinary:  "ffmpeg",
			WhisperBinary: "whisper",
			Model:         "base",
		},
		TextGrab: TextGrab{
			Binary:            "tesseract",
			SampleIntervalSec: 1,
		},
	}
}

// Load reads the config file at path over the defaults. An empty path, or a
// missing file at the default location, yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	a := c.Align
	if a.CanvasWidth <= 0 || a.CanvasHeight <= 0 {
		return fmt.Errorf("align: canvas dimensions must be positive, got %dx%d", a.CanvasWidth, a.CanvasHeight)
	}
	if a.TargetEyeWidth <= 0 {
		return fmt.Errorf("align: target_eye_width must be positive, got %v", a.TargetEyeWidth)
	}
	if a.MatchTolerance < 0 {
		return fmt.Errorf("align: match_tolerance must not be negative, got %v", a.MatchTolerance)
	}
	if a.JPEGQuality < 1 || a.JPEGQuality > 100 {
		return fmt.Errorf("align: jpeg_quality must be in 1..100, got %d", a.JPEGQuality)
	}
	if a.Detector != "fast" && a.Detector != "accurate" {
		return fmt.Errorf("align: detector must be \"fast\" or \"accurate\", got %q", a.Detector)
	}
	if c.TextGrab.SampleIntervalSec <= 0 {
		return fmt.Errorf("textgrab: sample_interval_sec must be positive, got %v", c.TextGrab.SampleIntervalSec)
	}
	return nil
}
