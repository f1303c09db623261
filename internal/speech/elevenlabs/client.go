package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"storyreel/internal/speech"
	"storyreel/pkg/httputil"
)

const (
	baseURL      = "https://api.elevenlabs.io/v1"
	timeout      = 120 * time.Second
	model        = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"
)

var errQuota = errors.New("quota exceeded")

type Client struct {
	apiKeys    []string
	keyIndex   uint64
	httpClient *httputil.RetryClient
	voiceID    string
	baseURL    string
	speed      float64
	stability  float64
	similarity float64
}

type Config struct {
	APIKeys    []string
	VoiceID    string
	Speed      float64
	Stability  float64
	Similarity float64
}

func NewClient(cfg Config) *Client {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}

	return &Client{
		apiKeys:    keys,
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: timeout}, httputil.DefaultRetryConfig()),
		voiceID:    cfg.VoiceID,
		baseURL:    baseURL,
		speed:      cfg.Speed,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}
}

// WithBaseURL overrides the API host, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Name() string { return "elevenlabs" }

// Synthesize tries each configured key in turn, moving on only when a key
// has run out of quota.
func (c *Client) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	if c.voiceID == "" {
		return nil, fmt.Errorf("elevenlabs: voice id not configured")
	}

	start := atomic.AddUint64(&c.keyIndex, 1)
	var lastErr error
	for i := range len(c.apiKeys) {
		key := c.apiKeys[(start+uint64(i))%uint64(len(c.apiKeys))]
		data, err := c.doRequest(ctx, text, key)
		if err == nil {
			return &speech.Audio{Data: data, Format: "mp3"}, nil
		}
		if !errors.Is(err, errQuota) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, text, apiKey string) ([]byte, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": model,
		"voice_settings": map[string]any{
			"stability":        c.stability,
			"similarity_boost": c.similarity,
			"speed":            c.speed,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", c.baseURL, c.voiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if isQuotaResponse(resp.StatusCode, body) {
			return nil, fmt.Errorf("elevenlabs: %s: %w", resp.Status, errQuota)
		}
		return nil, fmt.Errorf("elevenlabs: %s - %s", resp.Status, string(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("elevenlabs: empty audio")
	}

	return body, nil
}

func isQuotaResponse(status int, body []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return bytes.Contains(body, []byte("quota_exceeded")) || bytes.Contains(body, []byte("rate_limit"))
}
