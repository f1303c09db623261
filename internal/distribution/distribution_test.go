package distribution

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
)

type fakeUploader struct {
	name     string
	ready    error
	fail     error
	uploaded []UploadRequest
}

func (f *fakeUploader) Platform() string { return f.name }
func (f *fakeUploader) Authenticate(context.Context) error { return f.ready }

func (f *fakeUploader) Upload(_ context.Context, req UploadRequest) (*UploadResponse, error) {
	f.uploaded = append(f.uploaded, req)
	if f.fail != nil {
		return nil, f.fail
	}
	return &UploadResponse{ID: "id-" + f.name, URL: "https://example.com/" + f.name, Platform: f.name}, nil
}

func TestDistribute(t *testing.T) {
	ok := &fakeUploader{name: "youtube"}
	broken := &fakeUploader{name: "facebook", fail: errors.New("graph error")}
	unconfigured := &fakeUploader{name: "tiktok", ready: fmt.Errorf("%w: missing token", ErrNotConfigured)}
	last := &fakeUploader{name: "instagram"}

	d := NewDistributor(ok, nil, broken, unconfigured, last)
	if got := d.Platforms(); !slices.Equal(got, []string{"facebook", "instagram", "tiktok", "youtube"}) {
		t.Fatalf("Platforms() = %v", got)
	}

	results := d.Distribute(context.Background(), UploadRequest{FilePath: "v.mp4", Title: "t"})

	if r := results["youtube"]; r.Err != nil || r.Response.ID != "id-youtube" {
		t.Errorf("youtube result = %+v", r)
	}
	if r := results["facebook"]; r.Err == nil || r.Skipped {
		t.Errorf("facebook result = %+v, want error", r)
	}
	if r := results["tiktok"]; !r.Skipped || !errors.Is(r.Err, ErrNotConfigured) {
		t.Errorf("tiktok result = %+v, want skipped", r)
	}
	if len(unconfigured.uploaded) != 0 {
		t.Error("unconfigured uploader was called")
	}
	if r := results["instagram"]; r.Err != nil || len(last.uploaded) != 1 {
		t.Errorf("instagram result = %+v, platform after a failure must still run", r)
	}
}

func TestDistributeCancelled(t *testing.T) {
	u := &fakeUploader{name: "youtube"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewDistributor(u).Distribute(ctx, UploadRequest{})
	if !errors.Is(results["youtube"].Err, context.Canceled) {
		t.Errorf("result = %+v, want context.Canceled", results["youtube"])
	}
	if len(u.uploaded) != 0 {
		t.Error("upload ran after cancellation")
	}
}

func TestCaptionWithTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		tags []string
		sep  string
		want string
	}{
		{name: "noTags", text: "story", want: "story"},
		{name: "newlineSeparator", text: "story", tags: []string{"reddit", "#tifu"}, sep: "\n\n", want: "story\n\n#reddit #tifu"},
		{name: "spaceSeparator", text: "story", tags: []string{"reddit"}, sep: " ", want: "story #reddit"},
		{name: "blankTagsDropped", text: "story", tags: []string{" ", "#", "ask reddit"}, sep: " ", want: "story #askreddit"},
		{name: "emptyText", tags: []string{"a", "b"}, sep: " ", want: "#a #b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CaptionWithTags(tt.text, tt.tags, tt.sep); got != tt.want {
				t.Errorf("CaptionWithTags() = %q, want %q", got, tt.want)
			}
		})
	}
}
