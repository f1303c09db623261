// Package distribution uploads finished clips to social platforms.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// ErrNotConfigured marks a platform whose credentials are missing.
var ErrNotConfigured = errors.New("platform not configured")

type UploadRequest struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	Privacy     string
}

type UploadResponse struct {
	ID       string
	URL      string
	Platform string
}

type Uploader interface {
	Platform() string
	// Authenticate checks credentials. It returns ErrNotConfigured,
	// possibly wrapped, when the platform cannot be used.
	Authenticate(ctx context.Context) error
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
}

type Result struct {
	Response *UploadResponse
	Skipped  bool
	Err      error
}

type Distributor struct {
	uploaders map[string]Uploader
}

func NewDistributor(uploaders ...Uploader) *Distributor {
	d := &Distributor{uploaders: make(map[string]Uploader)}
	for _, u := range uploaders {
		if u != nil {
			d.uploaders[u.Platform()] = u
		}
	}
	return d
}

// Platforms returns the registered platform names in sorted order.
func (d *Distributor) Platforms() []string {
	return slices.Sorted(maps.Keys(d.uploaders))
}

// Distribute uploads to every platform in turn. A failing platform is
// recorded in the result and does not stop the others.
func (d *Distributor) Distribute(ctx context.Context, req UploadRequest) map[string]Result {
	results := make(map[string]Result, len(d.uploaders))

	for _, name := range d.Platforms() {
		u := d.uploaders[name]
		if err := ctx.Err(); err != nil {
			results[name] = Result{Err: err}
			continue
		}

		if err := u.Authenticate(ctx); err != nil {
			slog.Warn("Skipping platform", "platform", name, "reason", err)
			results[name] = Result{Skipped: true, Err: err}
			continue
		}

		resp, err := u.Upload(ctx, req)
		if err != nil {
			slog.Error("Upload failed", "platform", name, "error", err)
			results[name] = Result{Err: fmt.Errorf("%s: %w", name, err)}
			continue
		}

		slog.Info("Uploaded", "platform", name, "url", resp.URL)
		results[name] = Result{Response: resp}
	}

	return results
}

// CaptionWithTags appends tags as hashtags after text, joined by sep.
func CaptionWithTags(text string, tags []string, sep string) string {
	var hashtags []string
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		hashtags = append(hashtags, "#"+strings.ReplaceAll(tag, " ", ""))
	}
	if len(hashtags) == 0 {
		return text
	}
	if text == "" {
		return strings.Join(hashtags, " ")
	}
	return text + sep + strings.Join(hashtags, " ")
}
