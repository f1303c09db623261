package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyreel/internal/distribution"
)

type fakePublisher struct {
	url  string
	err  error
	name string
}

func (f *fakePublisher) Publish(_ context.Context, _, name string) (string, error) {
	f.name = name
	return f.url, f.err
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name      string
		account   string
		token     string
		publisher Publisher
		wantErr   bool
	}{
		{name: "configured", account: "17841", token: "tok", publisher: &fakePublisher{}},
		{name: "noPublisher", account: "17841", token: "tok", wantErr: true},
		{name: "noToken", account: "17841", publisher: &fakePublisher{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewClient(tt.account, tt.token, tt.publisher).Authenticate(context.Background())
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
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/17841/media":
			_ = r.ParseForm()
			if r.FormValue("media_type") != "REELS" || r.FormValue("video_url") != "https://cdn.example.com/clip.mp4" {
				t.Errorf("container form = %v", r.Form)
			}
			if r.FormValue("caption") != "story\n\n#reddit" {
				t.Errorf("caption = %q", r.FormValue("caption"))
			}
			_, _ = w.Write([]byte(`{"id":"container1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/container1":
			polls++
			if polls < 2 {
				_, _ = w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status_code":"FINISHED"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/17841/media_publish":
			_ = r.ParseForm()
			if r.FormValue("creation_id") != "container1" {
				t.Errorf("creation_id = %q", r.FormValue("creation_id"))
			}
			_, _ = w.Write([]byte(`{"id":"media9"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/media9":
			_, _ = w.Write([]byte(`{"permalink":"https://www.instagram.com/reel/abc/"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	pub := &fakePublisher{url: "https://cdn.example.com/clip.mp4"}
	client := NewClient("17841", "tok", pub).WithBaseURL(server.URL).WithPolling(time.Millisecond, 5)

	resp, err := client.Upload(context.Background(), distribution.UploadRequest{
		FilePath:    "/tmp/out/clip.mp4",
		Description: "story",
		Tags:        []string{"reddit"},
	})
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if resp.ID != "media9" || resp.URL != "https://www.instagram.com/reel/abc/" {
		t.Errorf("Upload() = %+v", resp)
	}
	if pub.name != "clip.mp4" {
		t.Errorf("published name = %q", pub.name)
	}
	if polls != 2 {
		t.Errorf("polls = %d, want 2", polls)
	}
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name      string
		publisher *fakePublisher
		status    string
		maxPolls  int
		wantErr   string
	}{
		{name: "publishFails", publisher: &fakePublisher{err: errors.New("bucket denied")}, wantErr: "bucket denied"},
		{name: "containerError", publisher: &fakePublisher{url: "u"}, status: "ERROR", maxPolls: 3, wantErr: "failed"},
		{name: "neverFinishes", publisher: &fakePublisher{url: "u"}, status: "IN_PROGRESS", maxPolls: 2, wantErr: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					_, _ = w.Write([]byte(`{"id":"c1"}`))
					return
				}
				_, _ = w.Write([]byte(`{"status_code":"` + tt.status + `"}`))
			}))
			defer server.Close()

			client := NewClient("1", "tok", tt.publisher).WithBaseURL(server.URL).WithPolling(time.Millisecond, tt.maxPolls)
			_, err := client.Upload(context.Background(), distribution.UploadRequest{FilePath: "clip.mp4"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Upload() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestUploadGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Unsupported post request","code":100}}`))
	}))
	defer server.Close()

	client := NewClient("1", "tok", &fakePublisher{url: "u"}).WithBaseURL(server.URL)
	_, err := client.Upload(context.Background(), distribution.UploadRequest{FilePath: "clip.mp4"})
	if err == nil || !strings.Contains(err.Error(), "Unsupported post request") {
		t.Errorf("Upload() error = %v", err)
	}
}
