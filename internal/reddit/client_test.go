package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

const topListing = `{
  "data": {
    "children": [
      {"data": {"id": "abc1", "subreddit": "nosleep", "title": "The house", "selftext": "It started on a Tuesday.", "author": "u1", "score": 900, "permalink": "/r/nosleep/comments/abc1/the_house/", "created_utc": 1700000000, "is_self": true}},
      {"data": {"id": "img2", "title": "A picture", "selftext": "", "url": "https://i.redd.it/x.jpg", "is_self": false}},
      {"data": {"id": "emp3", "title": "Empty self post", "selftext": "   ", "is_self": true}},
      {"data": {"id": "def4", "subreddit": "nosleep", "title": "The lake", "selftext": "Nobody swims there.", "score": 40, "permalink": "/r/nosleep/comments/def4/the_lake/", "is_self": true}}
    ]
  }
}`

func TestTopPosts(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotUA = r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(topListing))
	}))
	defer server.Close()

	client := NewClient().WithBaseURL(server.URL)
	posts, err := client.TopPosts(context.Background(), "r/nosleep", "day", 5)
	if err != nil {
		t.Fatalf("TopPosts() error = %v", err)
	}

	if gotPath != "/r/nosleep/top.json" {
		t.Errorf("path = %q, want /r/nosleep/top.json", gotPath)
	}
	if gotQuery != "limit=5&t=day" {
		t.Errorf("query = %q, want limit=5&t=day", gotQuery)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}

	if len(posts) != 2 {
		t.Fatalf("TopPosts() returned %d posts, want 2", len(posts))
	}
	first := posts[0]
	if first.ID != "abc1" || first.Title != "The house" || first.Score != 900 {
		t.Errorf("posts[0] = %+v", first)
	}
	if first.Permalink != "https://www.reddit.com/r/nosleep/comments/abc1/the_house/" {
		t.Errorf("Permalink = %q", first.Permalink)
	}
	if !first.Created.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Created = %v", first.Created)
	}
	if posts[1].ID != "def4" {
		t.Errorf("posts[1].ID = %q, want def4", posts[1].ID)
	}
}

func TestTopPostsParameters(t *testing.T) {
	tests := []struct {
		name      string
		period    string
		limit     int
		wantQuery string
	}{
		{name: "defaults", period: "", limit: 0, wantQuery: "limit=10&t=day"},
		{name: "invalidPeriod", period: "decade", limit: 3, wantQuery: "limit=3&t=day"},
		{name: "limitTooHigh", period: "week", limit: 500, wantQuery: "limit=10&t=week"},
		{name: "maxLimit", period: "all", limit: 100, wantQuery: "limit=100&t=all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				_, _ = w.Write([]byte(`{"data": {"children": []}}`))
			}))
			defer server.Close()

			client := NewClient().WithBaseURL(server.URL)
			if _, err := client.TopPosts(context.Background(), "books", tt.period, tt.limit); err != nil {
				t.Fatalf("TopPosts() error = %v", err)
			}
			if gotQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", gotQuery, tt.wantQuery)
			}
		})
	}
}

func TestTopPostsErrors(t *testing.T) {
	tests := []struct {
		name      string
		subreddit string
		status    int
		body      string
	}{
		{name: "emptySubreddit", subreddit: " ", status: http.StatusOK, body: "{}"},
		{name: "forbidden", subreddit: "private", status: http.StatusForbidden},
		{name: "badJSON", subreddit: "books", status: http.StatusOK, body: "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient().WithBaseURL(server.URL)
			if _, err := client.TopPosts(context.Background(), tt.subreddit, "day", 5); err == nil {
				t.Error("TopPosts() expected error")
			}
		})
	}
}

func TestRandomSubreddit(t *testing.T) {
	for range 20 {
		if got := RandomSubreddit(nil); !slices.Contains(DefaultSubreddits, got) {
			t.Fatalf("RandomSubreddit(nil) = %q, not in defaults", got)
		}
	}
	if got := RandomSubreddit([]string{"only"}); got != "only" {
		t.Errorf("RandomSubreddit() = %q, want only", got)
	}
}
