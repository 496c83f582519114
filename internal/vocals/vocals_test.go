package vocals

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExtractRunsDemucsAndMovesStem(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	inputPath := filepath.Join(inputDir, "song.mp3")
	if err := os.WriteFile(inputPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService("demucs", "htdemucs")

	var gotName string
	var gotArgs []string
	svc.WithRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		// Simulate demucs writing the separated stem into the staging
		// directory passed after -o.
		staging := args[5]
		stemDir := filepath.Join(staging, "htdemucs", "song")
		if err := os.MkdirAll(stemDir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(stemDir, "vocals.wav"), []byte("vocals"), 0o644)
	})

	outputPath, err := svc.Extract(context.Background(), inputPath, outputDir)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if gotName != "demucs" {
		t.Errorf("spawned binary = %q, want demucs", gotName)
	}
	wantArgs := []string{"-n", "htdemucs", "--two-stems", "vocals", "-o", gotArgs[5], inputPath}
	if !reflect.DeepEqual(gotArgs, wantArgs) {
		t.Errorf("args = %v, want %v", gotArgs, wantArgs)
	}

	want := filepath.Join(outputDir, "vocals_song.wav")
	if outputPath != want {
		t.Errorf("output path = %s, want %s", outputPath, want)
	}
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "vocals" {
		t.Errorf("output content = %q, want the separated stem", data)
	}
}

func TestExtractMissingInput(t *testing.T) {
	svc := NewService("demucs", "htdemucs")
	svc.WithRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner called for missing input")
		return nil
	})

	if _, err := svc.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), t.TempDir()); err == nil {
		t.Error("Extract() = nil error for missing input")
	}
}

func TestExtractCommandFailure(t *testing.T) {
	inputDir := t.TempDir()
	inputPath := filepath.Join(inputDir, "song.mp3")
	if err := os.WriteFile(inputPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	wantErr := errors.New("demucs not installed")
	svc := NewService("demucs", "htdemucs")
	svc.WithRunner(func(ctx context.Context, name string, args ...string) error {
		return wantErr
	})

	if _, err := svc.Extract(context.Background(), inputPath, t.TempDir()); !errors.Is(err, wantErr) {
		t.Errorf("Extract() error = %v, want wrapped runner error", err)
	}
}

func TestExtractMissingStem(t *testing.T) {
	inputDir := t.TempDir()
	inputPath := filepath.Join(inputDir, "song.mp3")
	if err := os.WriteFile(inputPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Runner succeeds but writes nothing.
	svc := NewService("demucs", "htdemucs")
	svc.WithRunner(func(ctx context.Context, name string, args ...string) error {
		return nil
	})

	if _, err := svc.Extract(context.Background(), inputPath, t.TempDir()); err == nil {
		t.Error("Extract() = nil error when the stem is missing")
	}
}
