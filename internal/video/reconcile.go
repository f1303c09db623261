package video

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
)

// Strategy names the operation used to bring a video to its target length.
type Strategy string

const (
	StrategyCopy   Strategy = "copy"
	StrategyTrim   Strategy = "trim"
	StrategyExtend Strategy = "extend"
)

const (
	// DefaultTolerance is how close, in seconds, a video must already be to
	// the target for a plain copy.
	DefaultTolerance = 0.5

	// A loop remainder at or below this length is replaced by a full copy.
	minRemainder = 0.1
)

// Result describes a finished reconciliation.
type Result struct {
	Path     string
	Strategy Strategy
	Source   float64
	Target   float64
	Loops    int
}

// Reconciler trims or loops a video until it matches a target duration.
type Reconciler struct {
	media     Media
	tolerance float64
	tempDir   string
}

func NewReconciler(media Media, tolerance float64) *Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Reconciler{media: media, tolerance: tolerance}
}

// WithTempDir sets the parent directory for per-call workspaces. Empty uses
// the system default.
func (r *Reconciler) WithTempDir(dir string) *Reconciler {
	r.tempDir = dir
	return r
}

func (r *Reconciler) Reconcile(ctx context.Context, src string, target float64, dst string) (*Result, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: invalid target duration %.3f", ErrMediaProcessing, target)
	}

	current, err := r.media.Probe(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", src, err)
	}
	if current <= 0 {
		return nil, fmt.Errorf("%w: %s has non-positive duration %.3f", ErrMediaProcessing, src, current)
	}

	result := &Result{Path: dst, Source: current, Target: target, Loops: 1}

	if math.Abs(current-target) < r.tolerance {
		result.Strategy = StrategyCopy
		if sameFile(src, dst) {
			slog.Debug("Video already at target duration", "path", src, "duration", current)
			return result, nil
		}
	} else if current > target {
		result.Strategy = StrategyTrim
	} else {
		result.Strategy = StrategyExtend
	}

	if r.tempDir != "" {
		if err := os.MkdirAll(r.tempDir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create temp dir: %w", ErrMediaProcessing, err)
		}
	}
	workspace, err := os.MkdirTemp(r.tempDir, "reconcile-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create workspace: %w", ErrMediaProcessing, err)
	}
	defer func() { _ = os.RemoveAll(workspace) }()

	tmpOut := filepath.Join(workspace, "out"+filepath.Ext(dst))

	switch result.Strategy {
	case StrategyCopy:
		err = r.media.Copy(ctx, src, tmpOut)
	case StrategyTrim:
		err = r.media.Trim(ctx, src, target, tmpOut)
	case StrategyExtend:
		var segments []string
		segments, err = r.loopSegments(ctx, src, current, target, workspace)
		if err == nil {
			result.Loops = len(segments)
			err = r.media.Concat(ctx, segments, tmpOut)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", result.Strategy, src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %w", ErrMediaProcessing, err)
	}
	if err := moveFile(tmpOut, dst); err != nil {
		return nil, fmt.Errorf("%w: move output to %s: %w", ErrMediaProcessing, dst, err)
	}

	slog.Info("Video reconciled",
		"strategy", result.Strategy,
		"source", fmt.Sprintf("%.2fs", current),
		"target", fmt.Sprintf("%.2fs", target),
		"segments", result.Loops,
	)
	return result, nil
}

// loopSegments lists floor(target/current) full copies of src followed by one
// trimmed remainder segment. A remainder too short to encode is replaced by
// one more full copy.
func (r *Reconciler) loopSegments(ctx context.Context, src string, current, target float64, workspace string) ([]string, error) {
	loops, rem := LoopPlan(current, target)

	segments := make([]string, 0, loops)
	for range loops - 1 {
		segments = append(segments, src)
	}

	if rem > minRemainder {
		part := filepath.Join(workspace, "remainder"+filepath.Ext(src))
		if err := r.media.Trim(ctx, src, rem, part); err != nil {
			return nil, err
		}
		segments = append(segments, part)
	} else {
		segments = append(segments, src)
	}
	return segments, nil
}

// LoopPlan returns the total number of segments needed to cover target with a
// clip of length current, and the length of the last partial segment.
func LoopPlan(current, target float64) (int, float64) {
	return int(math.Floor(target/current)) + 1, math.Mod(target, current)
}

func sameFile(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// moveFile renames src to dst, falling back to copy and remove when the two
// live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := dst + ".partial"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}
