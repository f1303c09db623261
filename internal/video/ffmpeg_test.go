package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type recordedCommand struct {
	name string
	args []string
}

type stubRunner struct {
	output   string
	err      error
	commands []recordedCommand
}

func (s *stubRunner) Runner(_ context.Context, name string, args ...string) ([]byte, error) {
	s.commands = append(s.commands, recordedCommand{name: name, args: args})
	return []byte(s.output), s.err
}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestNewFFmpeg(t *testing.T) {
	f := NewFFmpeg()
	if f.ffmpegPath != "ffmpeg" {
		t.Errorf("ffmpegPath = %q, want %q", f.ffmpegPath, "ffmpeg")
	}
	if f.ffprobePath != "ffprobe" {
		t.Errorf("ffprobePath = %q, want %q", f.ffprobePath, "ffprobe")
	}

	f.WithBinaries("/opt/ffmpeg", "")
	if f.ffmpegPath != "/opt/ffmpeg" || f.ffprobePath != "ffprobe" {
		t.Errorf("WithBinaries() = %q, %q", f.ffmpegPath, f.ffprobePath)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		err     error
		want    float64
		wantErr bool
	}{
		{name: "valid", output: "12.500000\n", want: 12.5},
		{name: "garbage", output: "N/A\n", wantErr: true},
		{name: "processError", output: "No such file", err: errors.New("exit status 1"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{output: tt.output, err: tt.err}
			f := NewFFmpeg().WithCommandRunner(runner.Runner)

			got, err := f.Probe(context.Background(), "clip.mp4")
			if tt.wantErr {
				if !errors.Is(err, ErrMediaProcessing) {
					t.Errorf("Probe() error = %v, want ErrMediaProcessing", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
			cmd := runner.commands[0]
			if cmd.name != "ffprobe" || cmd.args[len(cmd.args)-1] != "clip.mp4" {
				t.Errorf("command = %s %v", cmd.name, cmd.args)
			}
		})
	}
}

func TestFFmpegArgs(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		run       func(f *FFmpeg) error
		wantPairs [][2]string
		wantFlags []string
	}{
		{
			name:      "trim",
			run:       func(f *FFmpeg) error { return f.Trim(context.Background(), "in.mp4", 2, "out.mp4") },
			wantPairs: [][2]string{{"-i", "in.mp4"}, {"-t", "2.000"}, {"-c:v", "libx264"}, {"-c:a", "aac"}},
			wantFlags: []string{"out.mp4", "-y"},
		},
		{
			name:      "copy",
			run:       func(f *FFmpeg) error { return f.Copy(context.Background(), "in.mp4", "out.mp4") },
			wantPairs: [][2]string{{"-i", "in.mp4"}, {"-c", "copy"}},
			wantFlags: []string{"out.mp4", "-y"},
		},
		{
			name:      "burn",
			run:       func(f *FFmpeg) error { return f.Burn(context.Background(), "in.mp4", "/tmp/subs.ass", "out.mp4") },
			wantPairs: [][2]string{{"-vf", `ass=/tmp/subs.ass`}, {"-c:a", "copy"}, {"-crf", "18"}, {"-preset", "medium"}},
			wantFlags: []string{"out.mp4"},
		},
		{
			name:      "replaceAudio",
			run:       func(f *FFmpeg) error { return f.ReplaceAudio(context.Background(), "bg.mp4", "speech.mp3", "out.mp4") },
			wantPairs: [][2]string{{"-map", "0:v"}, {"-map", "1:a"}, {"-c:v", "copy"}, {"-c:a", "aac"}},
			wantFlags: []string{"-shortest", "out.mp4"},
		},
		{
			name: "compress",
			run: func(f *FFmpeg) error {
				return f.Compress(context.Background(), "in.mp4", Resolution{Width: 720, Height: 1280}, "small.mp4")
			},
			wantPairs: [][2]string{{"-crf", "28"}, {"-c:v", "libx264"}},
			wantFlags: []string{"small.mp4"},
		},
		{
			name: "concat",
			run: func(f *FFmpeg) error {
				return f.Concat(context.Background(), []string{"a.mp4", "b.mp4"}, filepath.Join(dir, "joined.mp4"))
			},
			wantPairs: [][2]string{{"-f", "concat"}, {"-safe", "0"}, {"-c:v", "libx264"}},
			wantFlags: []string{filepath.Join(dir, "joined.mp4")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			f := NewFFmpeg().WithCommandRunner(runner.Runner)
			if err := tt.run(f); err != nil {
				t.Fatalf("error: %v", err)
			}
			if len(runner.commands) != 1 {
				t.Fatalf("commands = %d, want 1", len(runner.commands))
			}
			args := runner.commands[0].args
			for _, p := range tt.wantPairs {
				if !hasPair(args, p[0], p[1]) {
					t.Errorf("args %v missing %s %s", args, p[0], p[1])
				}
			}
			for _, flag := range tt.wantFlags {
				if !slices.Contains(args, flag) {
					t.Errorf("args %v missing %s", args, flag)
				}
			}
		})
	}
}

func TestConcatListFile(t *testing.T) {
	dir := t.TempDir()
	var list string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		for i, a := range args {
			if a == "-i" {
				data, err := os.ReadFile(args[i+1])
				if err != nil {
					return nil, err
				}
				list = string(data)
			}
		}
		return nil, nil
	}

	f := NewFFmpeg().WithCommandRunner(runner)
	if err := f.Concat(context.Background(), []string{"/clips/a.mp4", "/clips/it's.mp4"}, filepath.Join(dir, "out.mp4")); err != nil {
		t.Fatalf("Concat() error: %v", err)
	}

	want := "file '/clips/a.mp4'\nfile '/clips/it'\\''s.mp4'\n"
	if list != want {
		t.Errorf("list = %q, want %q", list, want)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("concat list not removed: %d entries", len(entries))
	}
}

func TestFFmpegFailureIncludesOutput(t *testing.T) {
	runner := &stubRunner{output: "Invalid data found", err: errors.New("exit status 1")}
	f := NewFFmpeg().WithCommandRunner(runner.Runner)

	err := f.Copy(context.Background(), "in.mp4", "out.mp4")
	if !errors.Is(err, ErrMediaProcessing) {
		t.Fatalf("Copy() error = %v, want ErrMediaProcessing", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error %q does not include tool output", err)
	}

	if err := f.Concat(context.Background(), nil, "out.mp4"); !errors.Is(err, ErrMediaProcessing) {
		t.Errorf("Concat(nil) error = %v, want ErrMediaProcessing", err)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\subs\it's,here.ass`)
	want := `C\:\\subs\\it\'s\,here.ass`
	if got != want {
		t.Errorf("escapeFilterPath() = %q, want %q", got, want)
	}
}

type sizeCompressor struct {
	sizes map[int]int
	calls []Resolution
}

func (c *sizeCompressor) Compress(_ context.Context, _ string, res Resolution, dst string) error {
	c.calls = append(c.calls, res)
	return os.WriteFile(dst, make([]byte, c.sizes[res.Width]), 0644)
}

func TestShrinkToLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "final.mp4")
	if err := os.WriteFile(src, make([]byte, 500), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("alreadySmall", func(t *testing.T) {
		c := &sizeCompressor{}
		got, err := ShrinkToLimit(context.Background(), c, src, 1000)
		if err != nil || got != src {
			t.Errorf("ShrinkToLimit() = %q, %v; want source", got, err)
		}
		if len(c.calls) != 0 {
			t.Errorf("compressed %d times, want 0", len(c.calls))
		}
	})

	t.Run("firstFittingResolution", func(t *testing.T) {
		c := &sizeCompressor{sizes: map[int]int{1080: 400, 720: 250, 540: 100}}
		got, err := ShrinkToLimit(context.Background(), c, src, 300)
		if err != nil {
			t.Fatalf("ShrinkToLimit() error: %v", err)
		}
		if want := filepath.Join(dir, "final_720x1280.mp4"); got != want {
			t.Errorf("ShrinkToLimit() = %q, want %q", got, want)
		}
		if len(c.calls) != 2 {
			t.Errorf("compressed %d times, want 2", len(c.calls))
		}
		if _, err := os.Stat(filepath.Join(dir, "final_1080x1920.mp4")); !os.IsNotExist(err) {
			t.Error("oversized attempt was not removed")
		}
	})

	t.Run("nothingFits", func(t *testing.T) {
		c := &sizeCompressor{sizes: map[int]int{1080: 900, 720: 800, 540: 700, 360: 600}}
		_, err := ShrinkToLimit(context.Background(), c, src, 100)
		if !errors.Is(err, ErrMediaProcessing) {
			t.Errorf("ShrinkToLimit() error = %v, want ErrMediaProcessing", err)
		}
		if len(c.calls) != len(CompressionLadder) {
			t.Errorf("compressed %d times, want %d", len(c.calls), len(CompressionLadder))
		}
	})
}
