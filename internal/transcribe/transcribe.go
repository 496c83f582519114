// Package transcribe extracts audio from videos with ffmpeg and transcribes
// it with a spawned whisper CLI.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// tempAudioName is the intermediate WAV written next to the videos.
const tempAudioName = "_temp_audio.wav"

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
}

// RunnerFunc executes an external command and returns its stdout.
type RunnerFunc func(ctx context.Context, name string, args ...string) (string, error)

// Service transcribes every video in a directory into one text file.
type Service struct {
	ffmpegBinary  string
	whisperBinary string
	whisperModel  string
	language      string
	runner        RunnerFunc
}

// NewService creates a transcription service. An empty language leaves
// detection to the speech model.
func NewService(ffmpegBinary, whisperBinary, whisperModel, language string) *Service {
	return &Service{
		ffmpegBinary:  ffmpegBinary,
		whisperBinary: whisperBinary,
		whisperModel:  whisperModel,
		language:      language,
	}
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

// extractAudio pulls a 16 kHz mono PCM track out of a video.
func (s *Service) extractAudio(ctx context.Context, videoPath, wavPath string) error {
	args := []string{"-i", videoPath, "-y", "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", wavPath}
	if _, err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("audio extraction failed: %w", err)
	}
	return nil
}

// transcribeAudio runs whisper over a WAV file and returns the text.
func (s *Service) transcribeAudio(ctx context.Context, wavPath string) (string, error) {
	args := []string{wavPath, "--model", s.whisperModel, "--output_format", "txt", "--output_dir", filepath.Dir(wavPath)}
	if s.language != "" {
		args = append(args, "--language", s.language)
	}
	if _, err := s.run(ctx, s.whisperBinary, args...); err != nil {
		return "", fmt.Errorf("whisper failed: %w", err)
	}
	txtPath := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".txt"
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("read transcription: %w", err)
	}
	os.Remove(txtPath)
	return string(data), nil
}

// listVideos returns the sorted video files directly inside dir.
func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var videos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			videos = append(videos, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(videos)
	return videos, nil
}

// Run transcribes every video in inputDir, appending each result to
// outputFile. A failed video is recorded in the output and skipped. Returns
// the number of successful transcriptions.
func (s *Service) Run(ctx context.Context, inputDir, outputFile string) (int, error) {
	videos, err := listVideos(inputDir)
	if err != nil {
		return 0, err
	}
	if len(videos) == 0 {
		logrus.Warnf("no video files found in %s", inputDir)
		return 0, nil
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	wavPath := filepath.Join(inputDir, tempAudioName)
	succeeded := 0
	for _, video := range videos {
		name := filepath.Base(video)
		logrus.Infof("transcribing %s", name)

		text, err := s.processVideo(ctx, video, wavPath)
		os.Remove(wavPath)
		if err != nil {
			logrus.WithField("video", name).Warnf("transcription failed: %v", err)
			fmt.Fprintf(out, "--- Transcription FAILED for: %s ---\n\n", name)
			continue
		}
		fmt.Fprintf(out, "--- Transcription for: %s ---\n%s\n\n", name, strings.TrimSpace(text))
		succeeded++
	}

	logrus.Infof("transcribed %d of %d videos to %s", succeeded, len(videos), outputFile)
	return succeeded, nil
}

func (s *Service) processVideo(ctx context.Context, videoPath, wavPath string) (string, error) {
	if err := s.extractAudio(ctx, videoPath, wavPath); err != nil {
		return "", err
	}
	return s.transcribeAudio(ctx, wavPath)
}
