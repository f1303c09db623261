package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storyreel/internal/reddit"
)

const datasourceReddit = "reddit"

// pickPost returns the first post that has not produced a clip yet.
func pickPost(ctx context.Context, recorder RunRecorder, posts []reddit.Post) (*reddit.Post, error) {
	for i := range posts {
		if recorder == nil {
			return &posts[i], nil
		}
		seen, err := recorder.Seen(ctx, posts[i].ID)
		if err != nil {
			return nil, fmt.Errorf("check history: %w", err)
		}
		if seen {
			slog.Debug("Skipping processed post", "id", posts[i].ID, "title", posts[i].Title)
			continue
		}
		return &posts[i], nil
	}
	return nil, fmt.Errorf("no unprocessed posts among %d candidates", len(posts))
}

func storyText(post *reddit.Post) string {
	return strings.TrimSpace(post.Title + "\n\n" + post.Selftext)
}

func uploadDescription(post *reddit.Post) string {
	return fmt.Sprintf("%s\n\nOriginal story by u/%s on r/%s: %s", titleCase(post.Title), post.Author, post.Subreddit, post.Permalink)
}
