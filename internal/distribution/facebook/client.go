package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"storyreel/internal/distribution"
	"storyreel/pkg/httputil"
)

const (
	// Video uploads go to the graph-video host, everything else to graph.
	baseURL        = "https://graph-video.facebook.com/v19.0"
	platform       = "facebook"
	defaultTimeout = 10 * time.Minute
)

var _ distribution.Uploader = (*Client)(nil)

type Client struct {
	httpClient  *httputil.RetryClient
	baseURL     string
	pageID      string
	accessToken string
}

type uploadResponse struct {
	ID    string      `json:"id"`
	Error *graphError `json:"error,omitempty"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func NewClient(pageID, accessToken string) *Client {
	return &Client{
		httpClient:  httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		baseURL:     baseURL,
		pageID:      pageID,
		accessToken: accessToken,
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
	if c.pageID == "" || c.accessToken == "" {
		return fmt.Errorf("%w: missing facebook page id or access token", distribution.ErrNotConfigured)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResponse, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("access_token", c.accessToken)
	_ = writer.WriteField("title", req.Title)
	_ = writer.WriteField("description", distribution.CaptionWithTags(req.Description, req.Tags, "\n\n"))

	part, err := writer.CreateFormFile("source", filepath.Base(req.FilePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	url := fmt.Sprintf("%s/%s/videos", c.baseURL, c.pageID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("graph error %d: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || result.ID == "" {
		return nil, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(body))
	}

	return &distribution.UploadResponse{
		ID:       result.ID,
		URL:      fmt.Sprintf("https://www.facebook.com/%s", result.ID),
		Platform: platform,
	}, nil
}
