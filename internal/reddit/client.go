package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyreel/pkg/httputil"
)

const (
	baseURL        = "https://www.reddit.com"
	defaultTimeout = 30 * time.Second
	// Reddit rate-limits generic user agents aggressively.
	userAgent = "Mozilla/5.0 (compatible; RedditTextFetcher/1.0)"

	DefaultPeriod = "day"
	DefaultLimit  = 10
	maxLimit      = 100
)

// DefaultSubreddits are story-heavy communities whose top posts are mostly
// self text.
var DefaultSubreddits = []string{
	"entitledparents",
	"shortstories",
	"flashfiction",
	"shortscarystories",
	"shortscifistories",
	"WritingPrompts",
	"TrueOffMyChest",
	"TwoSentenceStories",
	"makestories",
	"nosleep",
	"UnresolvedMysteries",
	"LetsNotMeet",
	"self",
	"books",
	"literature",
}

var validPeriods = map[string]bool{
	"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true,
}

type Client struct {
	httpClient *httputil.RetryClient
	baseURL    string
}

type Post struct {
	ID        string
	Subreddit string
	Title     string
	Selftext  string
	Author    string
	Score     int
	URL       string
	Permalink string
	Created   time.Time
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID        string  `json:"id"`
	Subreddit string  `json:"subreddit"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Author    string  `json:"author"`
	Score     int     `json:"score"`
	URL       string  `json:"url"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	IsSelf    bool    `json:"is_self"`
}

func NewClient() *Client {
	return &Client{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		baseURL:    baseURL,
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// TopPosts returns the top self posts of a subreddit for the given period.
// Link and media posts are dropped, so fewer than limit posts may come back.
func (c *Client) TopPosts(ctx context.Context, subreddit, period string, limit int) ([]Post, error) {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit required")
	}
	if !validPeriods[period] {
		period = DefaultPeriod
	}
	if limit <= 0 || limit > maxLimit {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("t", period)
	q.Set("limit", fmt.Sprint(limit))
	endpoint := fmt.Sprintf("%s/r/%s/top.json?%s", c.baseURL, url.PathEscape(subreddit), q.Encode())

	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	posts := make([]Post, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		if !child.Data.IsSelf || strings.TrimSpace(child.Data.Selftext) == "" {
			continue
		}
		posts = append(posts, c.postFromData(child.Data))
	}

	return posts, nil
}

// RandomSubreddit picks one entry of list, or of DefaultSubreddits when list
// is empty.
func RandomSubreddit(list []string) string {
	if len(list) == 0 {
		list = DefaultSubreddits
	}
	return list[rand.IntN(len(list))]
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit api error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

func (c *Client) postFromData(data postData) Post {
	return Post{
		ID:        data.ID,
		Subreddit: data.Subreddit,
		Title:     data.Title,
		Selftext:  data.Selftext,
		Author:    data.Author,
		Score:     data.Score,
		URL:       data.URL,
		Permalink: baseURL + data.Permalink,
		Created:   time.Unix(int64(data.Created), 0).UTC(),
	}
}
