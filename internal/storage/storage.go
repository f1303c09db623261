package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// BackgroundProvider hands out a local path to a background clip.
type BackgroundProvider interface {
	Background(ctx context.Context) (string, error)
}

// Publisher stores a finished clip under name and returns where it can be
// found: a local path or a public URL.
type Publisher interface {
	Publish(ctx context.Context, localPath, name string) (string, error)
}

func isVideo(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov", ".mkv", ".webm":
		return true
	}
	return false
}
