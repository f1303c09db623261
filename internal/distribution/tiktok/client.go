package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"storyreel/internal/distribution"
	"storyreel/pkg/httputil"
)

const (
	baseURL        = "https://open.tiktokapis.com/v2"
	platform       = "tiktok"
	defaultPrivacy = "SELF_ONLY"
	maxTitleRunes  = 2200

	// Files up to chunkSize go up in one piece; larger ones are split and
	// the last chunk absorbs the remainder.
	chunkSize int64 = 10 * 1024 * 1024
)

var _ distribution.Uploader = (*Client)(nil)

type Client struct {
	httpClient  *httputil.RetryClient
	baseURL     string
	accessToken string
	privacy     string
}

type postInfo struct {
	Title          string `json:"title"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableComment bool   `json:"disable_comment"`
	DisableStitch  bool   `json:"disable_stitch"`
}

type sourceInfo struct {
	Source          string `json:"source"`
	VideoSize       int64  `json:"video_size"`
	ChunkSize       int64  `json:"chunk_size"`
	TotalChunkCount int64  `json:"total_chunk_count"`
}

type initRequest struct {
	PostInfo   postInfo   `json:"post_info"`
	SourceInfo sourceInfo `json:"source_info"`
}

type initResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
		UploadURL string `json:"upload_url"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		LogID   string `json:"log_id"`
	} `json:"error"`
}

func NewClient(accessToken, privacy string) *Client {
	if privacy == "" {
		privacy = defaultPrivacy
	}
	return &Client{
		httpClient:  httputil.NewRetryClient(&http.Client{Timeout: 5 * time.Minute}, httputil.DefaultRetryConfig()),
		baseURL:     baseURL,
		accessToken: accessToken,
		privacy:     privacy,
	}
}

func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Platform() string {
	return platform
}

func (c *Client) Authenticate(_ context.Context) error {
	if c.accessToken == "" {
		return fmt.Errorf("%w: missing tiktok access token", distribution.ErrNotConfigured)
	}
	return nil
}

// Upload initializes a direct post and PUTs the file in chunks to the
// returned upload URL. TikTok processes the post asynchronously, so the
// response carries the publish id and no public URL.
func (c *Client) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResponse, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("video %s is empty", req.FilePath)
	}

	chunk, count := ChunkPlan(size)
	caption := distribution.CaptionWithTags(req.Description, req.Tags, " ")
	if caption == "" {
		caption = req.Title
	}

	payload := initRequest{
		PostInfo: postInfo{
			Title:        truncate(caption, maxTitleRunes),
			PrivacyLevel: c.privacy,
		},
		SourceInfo: sourceInfo{
			Source:          "FILE_UPLOAD",
			VideoSize:       size,
			ChunkSize:       chunk,
			TotalChunkCount: count,
		},
	}

	session, err := c.initialize(ctx, payload)
	if err != nil {
		return nil, err
	}

	for i := range count {
		start := i * chunk
		end := start + chunk
		if i == count-1 {
			end = size
		}
		if err := c.putChunk(ctx, session.Data.UploadURL, file, start, end, size); err != nil {
			return nil, fmt.Errorf("upload chunk %d/%d: %w", i+1, count, err)
		}
	}

	return &distribution.UploadResponse{
		ID:       session.Data.PublishID,
		Platform: platform,
	}, nil
}

// ChunkPlan returns the chunk size and count for a file of size bytes.
func ChunkPlan(size int64) (int64, int64) {
	if size <= chunkSize {
		return size, 1
	}
	return chunkSize, size / chunkSize
}

func (c *Client) initialize(ctx context.Context, payload initRequest) (*initResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal init request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/post/publish/video/init/", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("init upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result initResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse init response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, fmt.Errorf("tiktok error %s: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || result.Data.UploadURL == "" {
		return nil, fmt.Errorf("init upload failed (status %d): %s", resp.StatusCode, string(body))
	}

	return &result, nil
}

func (c *Client) putChunk(ctx context.Context, uploadURL string, file io.ReaderAt, start, end, total int64) error {
	buf := make([]byte, end-start)
	if _, err := file.ReadAt(buf, start); err != nil && err != io.EOF {
		return fmt.Errorf("read chunk: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
