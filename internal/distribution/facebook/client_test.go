package facebook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/distribution"
)

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		pageID  string
		token   string
		wantErr bool
	}{
		{name: "configured", pageID: "123", token: "tok"},
		{name: "missingToken", pageID: "123", wantErr: true},
		{name: "missingPage", token: "tok", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewClient(tt.pageID, tt.token).Authenticate(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, distribution.ErrNotConfigured) {
				t.Errorf("Authenticate() error = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/123/videos" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error: %v", err)
			return
		}
		if got := r.FormValue("access_token"); got != "tok" {
			t.Errorf("access_token = %q", got)
		}
		if got := r.FormValue("description"); got != "story\n\n#reddit" {
			t.Errorf("description = %q", got)
		}
		file, _, err := r.FormFile("source")
		if err != nil {
			t.Errorf("FormFile() error: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "video-bytes" {
			t.Errorf("source = %q", data)
		}
		_, _ = w.Write([]byte(`{"id":"987"}`))
	}))
	defer server.Close()

	client := NewClient("123", "tok").WithBaseURL(server.URL)
	resp, err := client.Upload(context.Background(), distribution.UploadRequest{
		FilePath:    writeVideo(t),
		Title:       "title",
		Description: "story",
		Tags:        []string{"reddit"},
	})
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if resp.ID != "987" || resp.URL != "https://www.facebook.com/987" || resp.Platform != "facebook" {
		t.Errorf("Upload() = %+v", resp)
	}
}

func TestUploadGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	client := NewClient("123", "bad").WithBaseURL(server.URL)
	_, err := client.Upload(context.Background(), distribution.UploadRequest{FilePath: writeVideo(t)})
	if err == nil || !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Errorf("Upload() error = %v", err)
	}

	if _, err := client.Upload(context.Background(), distribution.UploadRequest{FilePath: "/missing.mp4"}); err == nil {
		t.Error("Upload() should fail for a missing file")
	}
}
