package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"storyreel/internal/distribution"
)

const (
	uploadURL  = "https://www.googleapis.com/upload/youtube/v3/videos"
	categoryID = "22"
	platform   = "youtube"

	// CallbackAddr is where the local OAuth callback server listens.
	CallbackAddr   = ":8085"
	callbackURL    = "http://localhost:8085/callback"
	defaultPrivacy = "private"
)

var _ distribution.Uploader = (*Client)(nil)

type Client struct {
	auth      *Auth
	uploadURL string
}

type Auth struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenPath string
}

type uploadResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type videoSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId"`
}

type videoStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

type videoMetadata struct {
	Snippet videoSnippet `json:"snippet"`
	Status  videoStatus  `json:"status"`
}

var scopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube",
}

func NewAuth(clientID, clientSecret, tokenPath string) *Auth {
	return &Auth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
			RedirectURL:  callbackURL,
		},
		tokenPath: tokenPath,
	}
}

func NewClient(auth *Auth) *Client {
	return &Client{auth: auth, uploadURL: uploadURL}
}

func (c *Client) WithUploadURL(u string) *Client {
	c.uploadURL = u
	return c
}

func (c *Client) Platform() string {
	return platform
}

func (c *Client) Auth() *Auth {
	return c.auth
}

func (c *Client) Authenticate(_ context.Context) error {
	if c.auth == nil || c.auth.config.ClientID == "" || c.auth.config.ClientSecret == "" {
		return fmt.Errorf("%w: missing youtube client id or secret", distribution.ErrNotConfigured)
	}
	if !c.auth.HasToken() {
		return fmt.Errorf("%w: no youtube token, run auth youtube", distribution.ErrNotConfigured)
	}
	return nil
}

// Upload sends metadata and video in a single multipart/related request.
func (c *Client) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResponse, error) {
	httpClient, err := c.auth.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = defaultPrivacy
	}
	metadata := videoMetadata{
		Snippet: videoSnippet{
			Title:       truncate(req.Title, 100),
			Description: req.Description,
			Tags:        req.Tags,
			CategoryID:  categoryID,
		},
		Status: videoStatus{PrivacyStatus: privacy},
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	videoFile, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() { _ = videoFile.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	metadataPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata part: %w", err)
	}
	if _, err := metadataPart.Write(metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	videoPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"video/mp4"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create video part: %w", err)
	}
	if _, err := io.Copy(videoPart, videoFile); err != nil {
		return nil, fmt.Errorf("failed to copy video: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	url := fmt.Sprintf("%s?uploadType=multipart&part=snippet,status", c.uploadURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &distribution.UploadResponse{
		ID:       uploadResp.ID,
		URL:      fmt.Sprintf("https://youtube.com/shorts/%s", uploadResp.ID),
		Platform: platform,
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (a *Auth) TokenPath() string {
	return a.tokenPath
}

func (a *Auth) LoadToken() error {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}

	a.token = &token
	return nil
}

func (a *Auth) SaveToken() error {
	data, err := json.MarshalIndent(a.token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(a.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

func (a *Auth) AuthURL() string {
	return a.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

func (a *Auth) Exchange(ctx context.Context, code string) error {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	a.token = token
	return a.SaveToken()
}

func (a *Auth) Client(ctx context.Context) (*http.Client, error) {
	if a.token == nil {
		if err := a.LoadToken(); err != nil {
			return nil, err
		}
	}

	return a.config.Client(ctx, a.token), nil
}

// HasToken reports whether a token is loaded or can be loaded. An expired
// access token still counts while a refresh token is present.
func (a *Auth) HasToken() bool {
	if a.token == nil {
		if err := a.LoadToken(); err != nil {
			return false
		}
	}
	return a.token != nil && (a.token.Valid() || a.token.RefreshToken != "")
}
