package video

import (
	"context"
	"errors"
)

// ErrMediaProcessing wraps every failure of the external encoder or prober.
var ErrMediaProcessing = errors.New("media processing failed")

// Media is the subset of encoder operations the reconciler and the pipeline
// depend on. Durations are in seconds.
type Media interface {
	Probe(ctx context.Context, path string) (float64, error)
	Trim(ctx context.Context, src string, seconds float64, dst string) error
	Concat(ctx context.Context, segments []string, dst string) error
	Copy(ctx context.Context, src, dst string) error
	Burn(ctx context.Context, src, captions, dst string) error
}
