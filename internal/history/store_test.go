package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStartAndFinish(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Start(ctx, "abc123", "AskReddit", "A title")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if run.ID == "" || run.Status != StatusRunning {
		t.Fatalf("Start() = %+v", run)
	}

	if err := store.Finish(ctx, run.ID, "/out/story.mp4", nil); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != StatusSucceeded || got.VideoPath != "/out/story.mp4" || got.Error != "" {
		t.Errorf("Get() = %+v", got)
	}
	if got.Subreddit != "AskReddit" || got.Title != "A title" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestFinishFailure(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Start(ctx, "p1", "tifu", "t")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := store.Finish(ctx, run.ID, "", errors.New("tts: quota")); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	got, _ := store.Get(ctx, run.ID)
	if got.Status != StatusFailed || got.Error != "tts: quota" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := openTestStore(t)
	err := store.Finish(context.Background(), "missing", "", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStartRequiresPostID(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Start(context.Background(), "", "sub", "title"); err == nil {
		t.Error("Start() expected error for empty post id")
	}
}

func TestSeen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	failed, _ := store.Start(ctx, "failed-post", "s", "t")
	_ = store.Finish(ctx, failed.ID, "", errors.New("boom"))
	ok, _ := store.Start(ctx, "done-post", "s", "t")
	_ = store.Finish(ctx, ok.ID, "/v.mp4", nil)
	_, _ = store.Start(ctx, "running-post", "s", "t")

	tests := []struct {
		postID string
		want   bool
	}{
		{postID: "done-post", want: true},
		{postID: "failed-post", want: false},
		{postID: "running-post", want: false},
		{postID: "never", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.postID, func(t *testing.T) {
			got, err := store.Seen(ctx, tt.postID)
			if err != nil {
				t.Fatalf("Seen() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Seen(%q) = %v, want %v", tt.postID, got, tt.want)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		if _, err := store.Start(ctx, id, "s", id); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 || all[0].PostID != "third" || all[2].PostID != "first" {
		t.Errorf("List(0) = %+v", all)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(limited) != 2 || limited[0].PostID != "third" {
		t.Errorf("List(2) = %+v", limited)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	run, _ := store.Start(context.Background(), "p", "s", "t")
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, err := reopened.Get(context.Background(), run.ID); err != nil {
		t.Errorf("Get() after reopen error: %v", err)
	}
}
