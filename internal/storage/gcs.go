package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const publicHost = "https://storage.googleapis.com"

type GCSStorage struct {
	client        *storage.Client
	bucket        string
	backgroundDir string
	publishPrefix string
	localCacheDir string
}

func NewGCSStorage(ctx context.Context, bucket, backgroundDir, publishPrefix, localCacheDir string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket not configured")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client:        client,
		bucket:        bucket,
		backgroundDir: backgroundDir,
		publishPrefix: publishPrefix,
		localCacheDir: localCacheDir,
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Background downloads a random clip under the background prefix, reusing
// the local cache when the clip was fetched before.
func (s *GCSStorage) Background(ctx context.Context) (string, error) {
	clips, err := s.listBackgroundClips(ctx)
	if err != nil {
		return "", err
	}

	if len(clips) == 0 {
		return "", fmt.Errorf("no video clips found in gs://%s/%s", s.bucket, s.backgroundDir)
	}

	remotePath := clips[rand.IntN(len(clips))]
	localPath := filepath.Join(s.localCacheDir, filepath.Base(remotePath))

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := s.downloadFile(ctx, remotePath, localPath); err != nil {
		return "", fmt.Errorf("failed to download background clip: %w", err)
	}

	return localPath, nil
}

// Publish uploads localPath under the publish prefix and returns its public
// URL. The bucket must allow public reads for platforms that pull by URL.
func (s *GCSStorage) Publish(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	object := path.Join(s.publishPrefix, name)
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "video/mp4"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", object, err)
	}

	return PublicURL(s.bucket, object), nil
}

func PublicURL(bucket, object string) string {
	return fmt.Sprintf("%s/%s/%s", publicHost, bucket, object)
}

func (s *GCSStorage) listBackgroundClips(ctx context.Context) ([]string, error) {
	query := &storage.Query{Prefix: s.backgroundDir}

	var clips []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if isVideo(attrs.Name) {
			clips = append(clips, attrs.Name)
		}
	}

	return clips, nil
}

func (s *GCSStorage) downloadFile(ctx context.Context, remotePath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	r, err := s.client.Bucket(s.bucket).Object(remotePath).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	tmp := localPath + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to download file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write local file: %w", err)
	}

	return os.Rename(tmp, localPath)
}
