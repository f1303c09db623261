package telegram

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

	"storyreel/pkg/httputil"
)

const (
	baseURL = "https://api.telegram.org/bot"
	// Uploads of large clips over slow links need far more than the default.
	defaultTimeout = 5 * time.Minute

	// MaxUploadBytes is the Bot API limit for files sent by a bot.
	MaxUploadBytes int64 = 50 * 1024 * 1024
)

type Client struct {
	httpClient *httputil.RetryClient
	baseURL    string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		baseURL:    baseURL + token,
	}
}

// WithBaseURL replaces the API endpoint including the token, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendMessage", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result apiResponse[MessageResponse]
	return c.do(req, &result)
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, videoPath, caption string) (*MessageResponse, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	_ = writer.WriteField("chat_id", fmt.Sprintf("%d", chatID))
	_ = writer.WriteField("supports_streaming", "true")
	if caption != "" {
		_ = writer.WriteField("caption", caption)
		_ = writer.WriteField("parse_mode", "Markdown")
	}

	part, err := writer.CreateFormFile("video", filepath.Base(videoPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	body := buf.Bytes()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendVideo", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result apiResponse[MessageResponse]
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("send video: %w", err)
	}
	return &result.Result, nil
}

func (c *Client) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	url := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=0", c.baseURL, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var result apiResponse[[]Update]
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

// GetChatID returns the chat of the most recent message sent to the bot,
// which is how the setup wizard discovers where to deliver clips.
func (c *Client) GetChatID(ctx context.Context) (int64, string, error) {
	updates, err := c.GetUpdates(ctx, 0)
	if err != nil {
		return 0, "", fmt.Errorf("get updates: %w", err)
	}

	for i := len(updates) - 1; i >= 0; i-- {
		msg := updates[i].Message
		if msg == nil || msg.Chat == nil {
			continue
		}
		name := msg.Chat.Title
		if name == "" && msg.From != nil {
			name = msg.From.FirstName
			if msg.From.UserName != "" {
				name += " (@" + msg.From.UserName + ")"
			}
		}
		return msg.Chat.ID, name, nil
	}

	return 0, "", fmt.Errorf("no messages found - send a message to your bot first")
}

func (c *Client) do(req *http.Request, out interface{ ok() (bool, string) }) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response (%s): %w", resp.Status, err)
	}
	if ok, desc := out.ok(); !ok {
		return fmt.Errorf("telegram error: %s", desc)
	}
	return nil
}

func (r *apiResponse[T]) ok() (bool, string) {
	return r.Ok, r.Description
}
