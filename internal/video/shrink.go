package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Compressor re-encodes a video at a fixed resolution.
type Compressor interface {
	Compress(ctx context.Context, src string, res Resolution, dst string) error
}

// ShrinkToLimit returns src when it is already within limit bytes. Otherwise
// it walks the compression ladder and returns the first re-encode that fits.
// Re-encodes are written next to src and the caller owns the returned file.
func ShrinkToLimit(ctx context.Context, c Compressor, src string, limit int64) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if info.Size() <= limit {
		return src, nil
	}

	slog.Info("Video over size limit, compressing", "size_mb", mb(info.Size()), "limit_mb", mb(limit))

	base := strings.TrimSuffix(src, filepath.Ext(src))
	for _, res := range CompressionLadder {
		dst := fmt.Sprintf("%s_%dx%d%s", base, res.Width, res.Height, filepath.Ext(src))
		if err := c.Compress(ctx, src, res, dst); err != nil {
			return "", err
		}

		info, err := os.Stat(dst)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", dst, err)
		}
		if info.Size() <= limit {
			slog.Info("Compressed video fits", "resolution", res.String(), "size_mb", mb(info.Size()))
			return dst, nil
		}
		_ = os.Remove(dst)
	}

	return "", fmt.Errorf("%w: %s cannot be compressed below %.1f MB", ErrMediaProcessing, src, mb(limit))
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
