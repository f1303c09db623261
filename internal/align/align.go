package align

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"storyreel/internal/subtitles"
)

const (
	DefaultBinary = "whisper"
	DefaultModel  = "base"
)

// Aligner turns narration audio into timed text chunks.
type Aligner interface {
	Align(ctx context.Context, audioPath string) ([]subtitles.TimedChunk, error)
}

type Config struct {
	Binary   string
	Model    string
	Language string
}

// Whisper runs the openai-whisper command line tool and reads its JSON
// transcript.
type Whisper struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

func NewWhisper(cfg Config) *Whisper {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Whisper{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *Whisper) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) *Whisper {
	w.commandRunner = runner
	return w
}

func (w *Whisper) Model() string {
	return w.cfg.Model
}

func (w *Whisper) Align(ctx context.Context, audioPath string) ([]subtitles.TimedChunk, error) {
	if audioPath == "" {
		return nil, fmt.Errorf("align: audio path required")
	}

	outputDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("align: create output dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(outputDir) }()

	slog.Info("Aligning narration", "audio", audioPath, "model", w.cfg.Model)
	if err := w.run(ctx, w.cfg.Binary, w.buildArgs(audioPath, outputDir)...); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	chunks, err := LoadSegments(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	slog.Debug("Alignment finished", "segments", len(chunks))
	return chunks, nil
}

func (w *Whisper) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		audioPath,
		"--model", w.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False",
		"--verbose", "False",
	}
	if w.cfg.Language != "" {
		args = append(args, "--language", w.cfg.Language)
	}
	return args
}

func (w *Whisper) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcript struct {
	Segments []segment `json:"segments"`
}

// LoadSegments reads a whisper JSON transcript. Segment text is trimmed and
// segments without text are dropped.
func LoadSegments(path string) ([]subtitles.TimedChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var payload transcript
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}

	chunks := make([]subtitles.TimedChunk, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		chunks = append(chunks, subtitles.TimedChunk{Start: seg.Start, End: seg.End, Text: text})
	}
	return chunks, nil
}
