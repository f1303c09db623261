package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"storyreel/internal/align"
	"storyreel/internal/subtitles"
	"storyreel/internal/video"
)

// Captions builds a caption file from either a whisper JSON transcript or an
// audio file, which is transcribed first.
func (s *Service) Captions(ctx context.Context, input, output string, wordLevel bool) (*subtitles.Track, error) {
	if s.captions == nil {
		return nil, errors.New("captions generator not configured")
	}

	var (
		chunks []subtitles.TimedChunk
		err    error
	)
	if strings.EqualFold(filepath.Ext(input), ".json") {
		chunks, err = align.LoadSegments(input)
	} else {
		if s.aligner == nil {
			return nil, errors.New("speech aligner not configured")
		}
		chunks, err = s.aligner.Align(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	return s.captions.WriteFile(output, chunks, wordLevel)
}

// Fit reconciles src to target seconds. A zero target uses the duration of
// the reference media instead.
func (s *Service) Fit(ctx context.Context, src, reference string, target float64, dst string) (*video.Result, error) {
	if s.reconciler == nil {
		return nil, errors.New("media tool not configured")
	}
	if target <= 0 {
		if reference == "" {
			return nil, errors.New("either a target duration or a reference file is required")
		}
		d, err := s.media.Probe(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("probe reference: %w", err)
		}
		target = d
	}
	return s.reconciler.Reconcile(ctx, src, target, dst)
}
