package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
)

type LocalStorage struct {
	backgroundPath string
	backgroundDir  string
	outputDir      string
}

// NewLocalStorage serves backgroundPath when set, otherwise a random clip
// from backgroundDir. Published clips are copied into outputDir.
func NewLocalStorage(backgroundPath, backgroundDir, outputDir string) *LocalStorage {
	return &LocalStorage{
		backgroundPath: backgroundPath,
		backgroundDir:  backgroundDir,
		outputDir:      outputDir,
	}
}

func (s *LocalStorage) Background(_ context.Context) (string, error) {
	if s.backgroundPath != "" {
		if _, err := os.Stat(s.backgroundPath); err != nil {
			return "", fmt.Errorf("background video: %w", err)
		}
		return s.backgroundPath, nil
	}

	clips, err := s.ListBackgroundClips()
	if err != nil {
		return "", err
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no video clips found in %s", s.backgroundDir)
	}

	return clips[rand.IntN(len(clips))], nil
}

func (s *LocalStorage) ListBackgroundClips() ([]string, error) {
	if s.backgroundDir == "" {
		return nil, fmt.Errorf("no background directory configured")
	}
	entries, err := os.ReadDir(s.backgroundDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read background directory: %w", err)
	}

	var clips []string
	for _, entry := range entries {
		if entry.IsDir() || !isVideo(entry.Name()) {
			continue
		}
		clips = append(clips, filepath.Join(s.backgroundDir, entry.Name()))
	}

	return clips, nil
}

// Publish copies localPath to outputDir/name through a temporary file so a
// reader never sees a half-written clip.
func (s *LocalStorage) Publish(_ context.Context, localPath, name string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	dst := filepath.Join(s.outputDir, name)

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(s.outputDir, "."+name+"-*.partial")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("copy clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close clip: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("move clip: %w", err)
	}

	return dst, nil
}
