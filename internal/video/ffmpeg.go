package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// CommandRunner executes name with args and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Resolution is a width:height pair used for re-encoding.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%d:%d", r.Width, r.Height)
}

// CompressionLadder lists the portrait resolutions tried in order when a
// clip must shrink below a size limit.
var CompressionLadder = []Resolution{
	{Width: 1080, Height: 1920},
	{Width: 720, Height: 1280},
	{Width: 540, Height: 960},
	{Width: 360, Height: 640},
}

const compressCRF = "28"

type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	run         CommandRunner
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		run:         defaultCommandRunner,
	}
}

// WithBinaries overrides the ffmpeg and ffprobe executables. Empty values keep
// the current ones.
func (f *FFmpeg) WithBinaries(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath != "" {
		f.ffmpegPath = ffmpegPath
	}
	if ffprobePath != "" {
		f.ffprobePath = ffprobePath
	}
	return f
}

// WithCommandRunner replaces process execution, for tests.
func (f *FFmpeg) WithCommandRunner(run CommandRunner) *FFmpeg {
	f.run = run
	return f
}

func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	output, err := f.run(ctx, f.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe failed: %w, output: %s", ErrMediaProcessing, err, string(output))
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse duration of %s: %w", ErrMediaProcessing, path, err)
	}
	return dur, nil
}

func (f *FFmpeg) Trim(ctx context.Context, src string, seconds float64, dst string) error {
	stream := ffmpeg.Input(src).Output(dst, ffmpeg.KwArgs{
		"t":   formatSeconds(seconds),
		"c:v": "libx264",
		"c:a": "aac",
	})
	return f.exec(ctx, "trim", stream)
}

func (f *FFmpeg) Copy(ctx context.Context, src, dst string) error {
	stream := ffmpeg.Input(src).Output(dst, ffmpeg.KwArgs{"c": "copy"})
	return f.exec(ctx, "copy", stream)
}

// Concat joins segments with the concat demuxer and re-encodes, so segments
// produced by different operations can be mixed.
func (f *FFmpeg) Concat(ctx context.Context, segments []string, dst string) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: concat: no segments", ErrMediaProcessing)
	}

	listFile, err := os.CreateTemp(filepath.Dir(dst), ".concat-*.txt")
	if err != nil {
		return fmt.Errorf("%w: create concat list: %w", ErrMediaProcessing, err)
	}
	listPath := listFile.Name()
	defer func() { _ = os.Remove(listPath) }()

	var sb strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			_ = listFile.Close()
			return fmt.Errorf("%w: resolve %s: %w", ErrMediaProcessing, seg, err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if _, err := listFile.WriteString(sb.String()); err != nil {
		_ = listFile.Close()
		return fmt.Errorf("%w: write concat list: %w", ErrMediaProcessing, err)
	}
	if err := listFile.Close(); err != nil {
		return fmt.Errorf("%w: write concat list: %w", ErrMediaProcessing, err)
	}

	stream := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(dst, ffmpeg.KwArgs{"c:v": "libx264", "c:a": "aac"})
	return f.exec(ctx, "concat", stream)
}

// Burn renders an ASS caption file into the video frames.
func (f *FFmpeg) Burn(ctx context.Context, src, captions, dst string) error {
	stream := ffmpeg.Input(src).Output(dst, ffmpeg.KwArgs{
		"vf":     "ass=" + escapeFilterPath(captions),
		"c:a":    "copy",
		"c:v":    "libx264",
		"crf":    "18",
		"preset": "medium",
	})
	return f.exec(ctx, "burn", stream)
}

// ReplaceAudio muxes the video stream of videoPath with the audio of
// audioPath, ending at the shorter of the two.
func (f *FFmpeg) ReplaceAudio(ctx context.Context, videoPath, audioPath, dst string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		dst, "-y",
	}
	return f.ffmpeg(ctx, "mux", args)
}

// Compress re-encodes src at the given resolution with a high crf, keeping
// the aspect ratio and padding to the exact frame size.
func (f *FFmpeg) Compress(ctx context.Context, src string, res Resolution, dst string) error {
	scale := fmt.Sprintf("scale=%s:force_original_aspect_ratio=decrease,pad=%s:(ow-iw)/2:(oh-ih)/2", res, res)
	stream := ffmpeg.Input(src).Output(dst, ffmpeg.KwArgs{
		"vf":     scale,
		"c:v":    "libx264",
		"crf":    compressCRF,
		"preset": "medium",
		"c:a":    "aac",
		"b:a":    "128k",
	})
	return f.exec(ctx, "compress", stream)
}

func (f *FFmpeg) exec(ctx context.Context, op string, stream *ffmpeg.Stream) error {
	return f.ffmpeg(ctx, op, stream.OverWriteOutput().GetArgs())
}

func (f *FFmpeg) ffmpeg(ctx context.Context, op string, args []string) error {
	slog.Debug("Running ffmpeg", "op", op, "args", strings.Join(args, " "))
	if output, err := f.run(ctx, f.ffmpegPath, args...); err != nil {
		return fmt.Errorf("%w: %s: ffmpeg failed: %w, output: %s", ErrMediaProcessing, op, err, string(output))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// escapeFilterPath quotes characters that the filtergraph parser treats as
// separators.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`, `[`, `\[`, `]`, `\]`)
	return r.Replace(path)
}
