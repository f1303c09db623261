package gtranslate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"storyreel/internal/speech"
	"storyreel/pkg/httputil"
)

const (
	baseURL         = "https://translate.google.com"
	timeout         = 30 * time.Second
	DefaultLanguage = "en"
	// The endpoint rejects requests with more than this many characters.
	maxChunkLength = 100
	userAgent      = "Mozilla/5.0 (compatible; storyreel/1.0)"
)

var sentenceEnd = regexp.MustCompile(`[.!?;:,\n]+\s*`)

// Client speaks text through the public Google Translate voice, the same one
// gTTS uses. Long text is sent in pieces and the MP3 frames are joined.
type Client struct {
	httpClient *httputil.RetryClient
	baseURL    string
	language   string
}

func NewClient(language string) *Client {
	if language == "" {
		language = DefaultLanguage
	}
	return &Client{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: timeout}, httputil.DefaultRetryConfig()),
		baseURL:    baseURL,
		language:   language,
	}
}

// WithBaseURL overrides the host, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) Name() string { return "gtranslate" }

func (c *Client) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	chunks := splitText(text, maxChunkLength)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("gtranslate: empty text")
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		data, err := c.fetch(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("gtranslate chunk %d/%d: %w", i+1, len(chunks), err)
		}
		buf.Write(data)
	}

	return &speech.Audio{Data: buf.Bytes(), Format: "mp3"}, nil
}

func (c *Client) fetch(ctx context.Context, text string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", c.language)
	q.Set("q", text)
	q.Set("idx", fmt.Sprint(idx))
	q.Set("total", fmt.Sprint(total))
	q.Set("textlen", fmt.Sprint(len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", "http://translate.google.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio")
	}
	return data, nil
}

// splitText breaks text at punctuation, then packs words into pieces of at
// most maxLen runes. A single word longer than maxLen is hard-split.
func splitText(text string, maxLen int) []string {
	var chunks []string
	for _, part := range splitSentences(text) {
		var current []rune
		for _, word := range strings.Fields(part) {
			w := []rune(word)
			for len(w) > maxLen {
				if len(current) > 0 {
					chunks = append(chunks, string(current))
					current = nil
				}
				chunks = append(chunks, string(w[:maxLen]))
				w = w[maxLen:]
			}
			if len(w) == 0 {
				continue
			}
			if len(current) > 0 && len(current)+1+len(w) > maxLen {
				chunks = append(chunks, string(current))
				current = nil
			}
			if len(current) > 0 {
				current = append(current, ' ')
			}
			current = append(current, w...)
		}
		if len(current) > 0 {
			chunks = append(chunks, string(current))
		}
	}
	return chunks
}

// splitSentences keeps the punctuation with the sentence it ends.
func splitSentences(text string) []string {
	var parts []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		parts = append(parts, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		parts = append(parts, text[last:])
	}
	return parts
}
