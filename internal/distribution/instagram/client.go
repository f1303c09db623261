package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"storyreel/internal/distribution"
	"storyreel/pkg/httputil"
)

const (
	baseURL  = "https://graph.facebook.com/v19.0"
	platform = "instagram"

	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 60
)

var _ distribution.Uploader = (*Client)(nil)

// Publisher makes a local clip reachable by URL. Instagram pulls the video
// itself, so a public location is required.
type Publisher interface {
	Publish(ctx context.Context, localPath, name string) (string, error)
}

type Client struct {
	httpClient   *httputil.RetryClient
	baseURL      string
	accountID    string
	accessToken  string
	publisher    Publisher
	pollInterval time.Duration
	maxPolls     int
}

type graphError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type idResponse struct {
	ID    string      `json:"id"`
	Error *graphError `json:"error,omitempty"`
}

type statusResponse struct {
	StatusCode string      `json:"status_code"`
	Status     string      `json:"status"`
	Error      *graphError `json:"error,omitempty"`
}

type permalinkResponse struct {
	Permalink string `json:"permalink"`
}

func NewClient(accountID, accessToken string, publisher Publisher) *Client {
	return &Client{
		httpClient:   httputil.NewRetryClient(&http.Client{Timeout: time.Minute}, httputil.DefaultRetryConfig()),
		baseURL:      baseURL,
		accountID:    accountID,
		accessToken:  accessToken,
		publisher:    publisher,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
}

func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) WithPolling(interval time.Duration, maxPolls int) *Client {
	c.pollInterval = interval
	c.maxPolls = maxPolls
	return c
}

func (c *Client) Platform() string {
	return platform
}

func (c *Client) Authenticate(_ context.Context) error {
	if c.accountID == "" || c.accessToken == "" {
		return fmt.Errorf("%w: missing instagram account id or access token", distribution.ErrNotConfigured)
	}
	if c.publisher == nil {
		return fmt.Errorf("%w: instagram needs a public video URL, configure gcs", distribution.ErrNotConfigured)
	}
	return nil
}

// Upload publishes a reel in three steps: create a container pointing at the
// public video, wait for Instagram to process it, then publish.
func (c *Client) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResponse, error) {
	videoURL, err := c.publisher.Publish(ctx, req.FilePath, filepath.Base(req.FilePath))
	if err != nil {
		return nil, fmt.Errorf("publish video: %w", err)
	}

	form := url.Values{
		"media_type":    {"REELS"},
		"video_url":     {videoURL},
		"caption":       {distribution.CaptionWithTags(req.Description, req.Tags, "\n\n")},
		"share_to_feed": {"true"},
		"access_token":  {c.accessToken},
	}
	var container idResponse
	if err := c.post(ctx, fmt.Sprintf("%s/%s/media", c.baseURL, c.accountID), form, &container); err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	if err := c.waitForContainer(ctx, container.ID); err != nil {
		return nil, err
	}

	var published idResponse
	publishForm := url.Values{
		"creation_id":  {container.ID},
		"access_token": {c.accessToken},
	}
	if err := c.post(ctx, fmt.Sprintf("%s/%s/media_publish", c.baseURL, c.accountID), publishForm, &published); err != nil {
		return nil, fmt.Errorf("publish container: %w", err)
	}

	return &distribution.UploadResponse{
		ID:       published.ID,
		URL:      c.permalink(ctx, published.ID),
		Platform: platform,
	}, nil
}

func (c *Client) waitForContainer(ctx context.Context, id string) error {
	for range c.maxPolls {
		var status statusResponse
		endpoint := fmt.Sprintf("%s/%s?fields=status_code,status&access_token=%s",
			c.baseURL, id, url.QueryEscape(c.accessToken))
		if err := c.get(ctx, endpoint, &status); err != nil {
			return fmt.Errorf("container status: %w", err)
		}

		switch status.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("container %s failed: %s %s", id, status.StatusCode, status.Status)
		}

		slog.Debug("Waiting for Instagram container", "id", id, "status", status.StatusCode)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return fmt.Errorf("container %s not ready after %d checks", id, c.maxPolls)
}

func (c *Client) permalink(ctx context.Context, mediaID string) string {
	var resp permalinkResponse
	endpoint := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s",
		c.baseURL, mediaID, url.QueryEscape(c.accessToken))
	if err := c.get(ctx, endpoint, &resp); err != nil || resp.Permalink == "" {
		return "https://www.instagram.com/"
	}
	return resp.Permalink
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Error *graphError `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("graph error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
