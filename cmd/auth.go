package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"storyreel/internal/distribution/youtube"
	"storyreel/pkg/config"
)

const authTimeout = 5 * time.Minute

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with external services",
	Long:  `Authenticate with YouTube or check which services have credentials configured.`,
}

var authYouTubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Authenticate with YouTube (OAuth)",
	Long:  `Complete the YouTube OAuth flow using YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET.`,
	RunE:  runAuthYouTube,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check authentication status for all services",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authYouTubeCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cmd.Context(), configPath, nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	printTitle("Service Authentication Status")

	if cfg.LLMAPIKey != "" {
		printSuccess("LLM: API key configured (%s)", cfg.LLM.BaseURL)
	} else {
		printInfo("○ LLM: no LLM_API_KEY, using %s unauthenticated", cfg.LLM.BaseURL)
	}

	switch cfg.TTS.Provider {
	case "elevenlabs":
		if len(cfg.ElevenLabsAPIKeys) > 0 {
			printSuccess("ElevenLabs: %d API key(s) configured", len(cfg.ElevenLabsAPIKeys))
		} else {
			printError("ElevenLabs: selected but ELEVENLABS_API_KEY is missing")
		}
	default:
		printSuccess("Speech: %s (no key needed)", cfg.TTS.Provider)
	}

	if cfg.TelegramBotToken != "" && cfg.Telegram.ChatID != 0 {
		printSuccess("Telegram: bot token and chat configured")
	} else if cfg.TelegramBotToken != "" {
		printError("Telegram: bot token set but no chat ID")
	} else {
		printInfo("○ Telegram: not configured (optional)")
	}

	printPlatformStatus(cfg)
	fmt.Println()
	return nil
}

func printPlatformStatus(cfg *config.Config) {
	if cfg.YouTubeClientID != "" && cfg.YouTubeClientSecret != "" {
		auth := youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
		if auth.HasToken() {
			printSuccess("YouTube: authenticated (%s)", cfg.YouTubeTokenPath)
		} else {
			printError("YouTube: credentials set, but not authenticated")
			printInfo("  Run: storyreel auth youtube")
		}
	} else {
		printInfo("○ YouTube: missing YOUTUBE_CLIENT_ID or YOUTUBE_CLIENT_SECRET")
	}

	platforms := []struct {
		name   string
		ok     bool
		detail string
	}{
		{"Facebook", cfg.FacebookPageToken != "" && cfg.Facebook.PageID != "", "FACEBOOK_PAGE_TOKEN and facebook.page_id"},
		{"Instagram", cfg.InstagramToken != "" && cfg.Instagram.AccountID != "" && cfg.GCS.Enabled, "INSTAGRAM_ACCESS_TOKEN, instagram.account_id and gcs"},
		{"TikTok", cfg.TikTokAccessToken != "", "TIKTOK_ACCESS_TOKEN"},
	}
	for _, p := range platforms {
		if p.ok {
			printSuccess("%s: configured", p.name)
		} else {
			printInfo("○ %s: needs %s", p.name, p.detail)
		}
	}
}

func runAuthYouTube(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cmd.Context(), configPath, nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.YouTubeClientID == "" || cfg.YouTubeClientSecret == "" {
		return errors.New("YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET must be set in .env")
	}

	return runYouTubeAuth(cmd.Context(), youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath))
}

func runYouTubeAuth(ctx context.Context, auth *youtube.Auth) error {
	listener, err := net.Listen("tcp", youtube.CallbackAddr)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}

	authURL := auth.AuthURL()
	printInfo("Opening browser for YouTube authentication...")
	printInfo("If the browser doesn't open, visit:\n%s", authURL)
	_ = browser.OpenURL(authURL)
	printInfo("Waiting for authentication...")

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	code, err := waitForCode(ctx, listener)
	if err != nil {
		return err
	}
	if err := auth.Exchange(ctx, code); err != nil {
		return err
	}

	printSuccess("YouTube authentication complete")
	printInfo("  Token saved to: %s", auth.TokenPath())
	return nil
}

// waitForCode serves the OAuth redirect on listener until one authorization
// code arrives or ctx ends. The listener is closed on return.
func waitForCode(ctx context.Context, listener net.Listener) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler:           callbackHandler(codeCh, errCh),
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("authentication timed out: %w", ctx.Err())
	}
}

func callbackHandler(codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			reason := r.URL.Query().Get("error")
			if reason == "" {
				reason = "no code in callback"
			}
			select {
			case errCh <- fmt.Errorf("authorization failed: %s", reason):
			default:
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, "<html><body><h1>Error</h1><p>No authorization code received.</p></body></html>")
			return
		}

		select {
		case codeCh <- code:
		default:
		}
		_, _ = fmt.Fprint(w, "<html><body><h1>Success!</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})
}
