package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeVideos(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// fakeRunner simulates ffmpeg (last arg is the WAV path) and whisper (first
// arg is the WAV path, writes a .txt next to it).
func fakeRunner(t *testing.T, text string, failFor map[string]bool) RunnerFunc {
	return func(ctx context.Context, name string, args ...string) (string, error) {
		switch name {
		case "ffmpeg":
			video := args[1]
			if failFor[filepath.Base(video)] {
				return "", errors.New("corrupt stream")
			}
			wav := args[len(args)-1]
			return "", os.WriteFile(wav, []byte("pcm"), 0o644)
		case "whisper":
			wav := args[0]
			txt := strings.TrimSuffix(wav, filepath.Ext(wav)) + ".txt"
			return "", os.WriteFile(txt, []byte(text+"\n"), 0o644)
		default:
			t.Fatalf("unexpected binary %q", name)
			return "", nil
		}
	}
}

func TestRunTranscribesAllVideos(t *testing.T) {
	inputDir := t.TempDir()
	writeVideos(t, inputDir, "b.mp4", "a.MOV", "notes.txt")
	outputFile := filepath.Join(t.TempDir(), "transcriptions.txt")

	svc := NewService("ffmpeg", "whisper", "base", "")
	svc.WithRunner(fakeRunner(t, "hello world", nil))

	count, err := svc.Run(context.Background(), inputDir, outputFile)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (txt file is not a video)", count)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	want := "--- Transcription for: a.MOV ---\nhello world\n\n" +
		"--- Transcription for: b.mp4 ---\nhello world\n\n"
	if got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}

func TestRunFFmpegArgs(t *testing.T) {
	inputDir := t.TempDir()
	writeVideos(t, inputDir, "clip.mp4")
	outputFile := filepath.Join(t.TempDir(), "out.txt")

	var ffmpegArgs []string
	svc := NewService("ffmpeg", "whisper", "base", "")
	svc.WithRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if name == "ffmpeg" {
			ffmpegArgs = append([]string(nil), args...)
			return "", os.WriteFile(args[len(args)-1], []byte("pcm"), 0o644)
		}
		txt := strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".txt"
		return "", os.WriteFile(txt, []byte("ok"), 0o644)
	})

	if _, err := svc.Run(context.Background(), inputDir, outputFile); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	videoPath := filepath.Join(inputDir, "clip.mp4")
	wavPath := filepath.Join(inputDir, tempAudioName)
	want := []string{"-i", videoPath, "-y", "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", wavPath}
	if !reflect.DeepEqual(ffmpegArgs, want) {
		t.Errorf("ffmpeg args = %v, want %v", ffmpegArgs, want)
	}
}

func TestRunWhisperLanguageFlag(t *testing.T) {
	inputDir := t.TempDir()
	writeVideos(t, inputDir, "clip.mp4")
	outputFile := filepath.Join(t.TempDir(), "out.txt")

	var whisperArgs []string
	svc := NewService("ffmpeg", "whisper", "base", "en")
	svc.WithRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if name == "ffmpeg" {
			return "", os.WriteFile(args[len(args)-1], []byte("pcm"), 0o644)
		}
		whisperArgs = append([]string(nil), args...)
		txt := strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".txt"
		return "", os.WriteFile(txt, []byte("ok"), 0o644)
	})

	if _, err := svc.Run(context.Background(), inputDir, outputFile); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	joined := strings.Join(whisperArgs, " ")
	if !strings.Contains(joined, "--language en") {
		t.Errorf("whisper args %v missing --language en", whisperArgs)
	}
	if !strings.Contains(joined, "--model base") {
		t.Errorf("whisper args %v missing --model base", whisperArgs)
	}
}

func TestRunSkipsFailedVideo(t *testing.T) {
	inputDir := t.TempDir()
	writeVideos(t, inputDir, "bad.mp4", "good.mp4")
	outputFile := filepath.Join(t.TempDir(), "out.txt")

	svc := NewService("ffmpeg", "whisper", "base", "")
	svc.WithRunner(fakeRunner(t, "fine", map[string]bool{"bad.mp4": true}))

	count, err := svc.Run(context.Background(), inputDir, outputFile)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "--- Transcription FAILED for: bad.mp4 ---\n\n") {
		t.Errorf("transcript missing failure marker: %q", got)
	}
	if !strings.Contains(got, "--- Transcription for: good.mp4 ---\nfine\n\n") {
		t.Errorf("transcript missing successful entry: %q", got)
	}
}

func TestRunCleansTempAudio(t *testing.T) {
	inputDir := t.TempDir()
	writeVideos(t, inputDir, "clip.mp4")
	outputFile := filepath.Join(t.TempDir(), "out.txt")

	svc := NewService("ffmpeg", "whisper", "base", "")
	svc.WithRunner(fakeRunner(t, "text", nil))

	if _, err := svc.Run(context.Background(), inputDir, outputFile); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(inputDir, tempAudioName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp audio still present: %v", err)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	svc := NewService("ffmpeg", "whisper", "base", "")
	svc.WithRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		t.Fatal("runner called with no videos")
		return "", nil
	})

	count, err := svc.Run(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
