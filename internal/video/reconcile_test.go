package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type call struct {
	op      string
	src     string
	seconds float64
	inputs  []string
}

type fakeMedia struct {
	duration float64
	probeErr error
	failOp   string
	calls    []call
}

func (m *fakeMedia) Probe(_ context.Context, _ string) (float64, error) {
	return m.duration, m.probeErr
}

func (m *fakeMedia) Trim(_ context.Context, src string, seconds float64, dst string) error {
	m.calls = append(m.calls, call{op: "trim", src: src, seconds: seconds})
	return m.write("trim", dst, fmt.Sprintf("trim %s %.3f", src, seconds))
}

func (m *fakeMedia) Concat(_ context.Context, segments []string, dst string) error {
	m.calls = append(m.calls, call{op: "concat", inputs: segments})
	return m.write("concat", dst, strings.Join(segments, "|"))
}

func (m *fakeMedia) Copy(_ context.Context, src, dst string) error {
	m.calls = append(m.calls, call{op: "copy", src: src})
	return m.write("copy", dst, "copy "+src)
}

func (m *fakeMedia) Burn(_ context.Context, src, _, dst string) error {
	m.calls = append(m.calls, call{op: "burn", src: src})
	return m.write("burn", dst, "burn "+src)
}

func (m *fakeMedia) write(op, dst, content string) error {
	if m.failOp == op {
		return fmt.Errorf("%w: %s exploded", ErrMediaProcessing, op)
	}
	return os.WriteFile(dst, []byte(content), 0644)
}

func newTestReconciler(t *testing.T, media Media) (*Reconciler, string) {
	t.Helper()
	tmp := t.TempDir()
	return NewReconciler(media, DefaultTolerance).WithTempDir(tmp), tmp
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace not cleaned up: %d entries left in %s", len(entries), dir)
	}
}

func TestReconcileStrategies(t *testing.T) {
	tests := []struct {
		name         string
		current      float64
		target       float64
		wantStrategy Strategy
		wantOps      []string
	}{
		{name: "withinTolerance", current: 30.05, target: 30, wantStrategy: StrategyCopy, wantOps: []string{"copy"}},
		{name: "slightlyLongIsCopied", current: 30.3, target: 30, wantStrategy: StrategyCopy, wantOps: []string{"copy"}},
		{name: "slightlyShortIsCopied", current: 29.6, target: 30, wantStrategy: StrategyCopy, wantOps: []string{"copy"}},
		{name: "justOutsideTolerance", current: 30.6, target: 30, wantStrategy: StrategyTrim, wantOps: []string{"trim"}},
		{name: "longerIsTrimmed", current: 60, target: 25.5, wantStrategy: StrategyTrim, wantOps: []string{"trim"}},
		{name: "shorterIsExtended", current: 10, target: 22, wantStrategy: StrategyExtend, wantOps: []string{"trim", "concat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := &fakeMedia{duration: tt.current}
			r, tmp := newTestReconciler(t, media)
			dst := filepath.Join(t.TempDir(), "out", "video.mp4")

			result, err := r.Reconcile(context.Background(), "bg.mp4", tt.target, dst)
			if err != nil {
				t.Fatalf("Reconcile() error: %v", err)
			}
			if result.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %s, want %s", result.Strategy, tt.wantStrategy)
			}
			if len(media.calls) != len(tt.wantOps) {
				t.Fatalf("calls = %+v, want ops %v", media.calls, tt.wantOps)
			}
			for i, op := range tt.wantOps {
				if media.calls[i].op != op {
					t.Errorf("call %d = %s, want %s", i, media.calls[i].op, op)
				}
			}
			if _, err := os.Stat(dst); err != nil {
				t.Errorf("output missing: %v", err)
			}
			assertEmptyDir(t, tmp)
		})
	}
}

func TestReconcileExtendLoopCount(t *testing.T) {
	media := &fakeMedia{duration: 10}
	r, _ := newTestReconciler(t, media)
	dst := filepath.Join(t.TempDir(), "video.mp4")

	result, err := r.Reconcile(context.Background(), "bg.mp4", 22, dst)
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}

	trim := media.calls[0]
	if trim.src != "bg.mp4" || trim.seconds < 1.999 || trim.seconds > 2.001 {
		t.Errorf("remainder trim = %+v, want 2s of bg.mp4", trim)
	}

	concat := media.calls[1].inputs
	if len(concat) != 3 {
		t.Fatalf("concat inputs = %v, want 3 segments", concat)
	}
	if concat[0] != "bg.mp4" || concat[1] != "bg.mp4" {
		t.Errorf("leading segments = %v, want two full copies", concat[:2])
	}
	if filepath.Base(concat[2]) != "remainder.mp4" {
		t.Errorf("last segment = %s, want trimmed remainder", concat[2])
	}
	if result.Loops != 3 {
		t.Errorf("Loops = %d, want 3", result.Loops)
	}
}

func TestReconcileExtendTinyRemainder(t *testing.T) {
	media := &fakeMedia{duration: 10}
	r, _ := newTestReconciler(t, media)

	_, err := r.Reconcile(context.Background(), "bg.mp4", 20.05, filepath.Join(t.TempDir(), "v.mp4"))
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}

	if len(media.calls) != 1 || media.calls[0].op != "concat" {
		t.Fatalf("calls = %+v, want only concat", media.calls)
	}
	for _, seg := range media.calls[0].inputs {
		if seg != "bg.mp4" {
			t.Errorf("segment %s, want only full copies", seg)
		}
	}
	if len(media.calls[0].inputs) != 3 {
		t.Errorf("segments = %d, want 3", len(media.calls[0].inputs))
	}
}

func TestReconcileCopyInPlaceIsNoop(t *testing.T) {
	media := &fakeMedia{duration: 12}
	r, tmp := newTestReconciler(t, media)
	src := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(src, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		result, err := r.Reconcile(context.Background(), src, 12.02, src)
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if result.Strategy != StrategyCopy {
			t.Errorf("Strategy = %s, want copy", result.Strategy)
		}
	}

	if len(media.calls) != 0 {
		t.Errorf("calls = %+v, want none", media.calls)
	}
	data, _ := os.ReadFile(src)
	if string(data) != "original" {
		t.Errorf("source modified: %q", data)
	}
	assertEmptyDir(t, tmp)
}

func TestReconcileFailures(t *testing.T) {
	tests := []struct {
		name   string
		media  *fakeMedia
		target float64
	}{
		{name: "probeError", media: &fakeMedia{probeErr: fmt.Errorf("%w: no such file", ErrMediaProcessing)}, target: 10},
		{name: "zeroDuration", media: &fakeMedia{duration: 0}, target: 10},
		{name: "invalidTarget", media: &fakeMedia{duration: 10}, target: 0},
		{name: "trimFails", media: &fakeMedia{duration: 40, failOp: "trim"}, target: 10},
		{name: "concatFails", media: &fakeMedia{duration: 4, failOp: "concat"}, target: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, tmp := newTestReconciler(t, tt.media)
			outDir := t.TempDir()
			dst := filepath.Join(outDir, "v.mp4")

			_, err := r.Reconcile(context.Background(), "bg.mp4", tt.target, dst)
			if !errors.Is(err, ErrMediaProcessing) {
				t.Errorf("Reconcile() error = %v, want ErrMediaProcessing", err)
			}
			if _, err := os.Stat(dst); !os.IsNotExist(err) {
				t.Errorf("partial output left at %s", dst)
			}
			assertEmptyDir(t, tmp)
		})
	}
}

func TestLoopPlan(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		target    float64
		wantLoops int
		wantRem   float64
	}{
		{name: "twoAndAFifth", current: 10, target: 22, wantLoops: 3, wantRem: 2},
		{name: "exactMultiple", current: 5, target: 15, wantLoops: 4, wantRem: 0},
		{name: "shorterThanOne", current: 8, target: 6, wantLoops: 1, wantRem: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops, rem := LoopPlan(tt.current, tt.target)
			if loops != tt.wantLoops {
				t.Errorf("loops = %d, want %d", loops, tt.wantLoops)
			}
			if rem < tt.wantRem-1e-9 || rem > tt.wantRem+1e-9 {
				t.Errorf("rem = %v, want %v", rem, tt.wantRem)
			}
		})
	}
}
