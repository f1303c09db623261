package align

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const sampleTranscript = `{
  "text": " Hello there. General Kenobi.",
  "segments": [
    {"id": 0, "start": 0.0, "end": 1.24, "text": " Hello there."},
    {"id": 1, "start": 1.24, "end": 1.9, "text": "   "},
    {"id": 2, "start": 1.9, "end": 3.5, "text": " General Kenobi."}
  ],
  "language": "en"
}`

func TestLoadSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.json")
	if err := os.WriteFile(path, []byte(sampleTranscript), 0644); err != nil {
		t.Fatal(err)
	}

	chunks, err := LoadSegments(path)
	if err != nil {
		t.Fatalf("LoadSegments() error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].Text != "Hello there." || chunks[0].End != 1.24 {
		t.Errorf("chunks[0] = %+v", chunks[0])
	}
	if chunks[1].Start != 1.9 || chunks[1].Text != "General Kenobi." {
		t.Errorf("chunks[1] = %+v", chunks[1])
	}
}

func TestLoadSegmentsErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"segments": [`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSegments(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadSegments(missing) error = %v, want not exist", err)
	}
	if _, err := LoadSegments(broken); err == nil {
		t.Error("LoadSegments(broken) expected error")
	}
}

func TestWhisperAlign(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		outDir := args[slices.Index(args, "--output_dir")+1]
		return os.WriteFile(filepath.Join(outDir, "narration.json"), []byte(sampleTranscript), 0644)
	}

	w := NewWhisper(Config{Language: "en"}).WithCommandRunner(runner)
	chunks, err := w.Align(context.Background(), "/work/narration.mp3")
	if err != nil {
		t.Fatalf("Align() error: %v", err)
	}

	if gotName != DefaultBinary {
		t.Errorf("binary = %q, want %q", gotName, DefaultBinary)
	}
	if gotArgs[0] != "/work/narration.mp3" {
		t.Errorf("first arg = %q, want audio path", gotArgs[0])
	}
	for _, want := range []string{"--model", DefaultModel, "--output_format", "json", "--language", "en"} {
		if !slices.Contains(gotArgs, want) {
			t.Errorf("args %v missing %q", gotArgs, want)
		}
	}
	if len(chunks) != 2 {
		t.Errorf("len(chunks) = %d, want 2", len(chunks))
	}
}

func TestWhisperAlignFailures(t *testing.T) {
	tests := []struct {
		name   string
		audio  string
		runner func(context.Context, string, ...string) error
	}{
		{
			name:   "emptyPath",
			audio:  "",
			runner: func(context.Context, string, ...string) error { return nil },
		},
		{
			name:   "commandFails",
			audio:  "a.mp3",
			runner: func(context.Context, string, ...string) error { return errors.New("exit status 2") },
		},
		{
			name:   "noTranscript",
			audio:  "a.mp3",
			runner: func(context.Context, string, ...string) error { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWhisper(Config{}).WithCommandRunner(tt.runner)
			if _, err := w.Align(context.Background(), tt.audio); err == nil {
				t.Error("Align() expected error")
			}
		})
	}
}
