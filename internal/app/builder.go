package app

import (
	"context"
	"fmt"
	"log/slog"

	"storyreel/internal/align"
	"storyreel/internal/distribution"
	"storyreel/internal/distribution/facebook"
	"storyreel/internal/distribution/instagram"
	"storyreel/internal/distribution/tiktok"
	"storyreel/internal/distribution/youtube"
	"storyreel/internal/history"
	"storyreel/internal/llm"
	"storyreel/internal/reddit"
	"storyreel/internal/speech"
	"storyreel/internal/speech/elevenlabs"
	"storyreel/internal/speech/gtranslate"
	"storyreel/internal/storage"
	"storyreel/internal/subtitles"
	"storyreel/internal/telegram"
	"storyreel/internal/video"
	"storyreel/pkg/config"
	"storyreel/pkg/prompts"
)

// BuildService wires every collaborator from cfg. The returned service owns
// the history database and the GCS client; call Close when done.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := loadPrompts(cfg.LLM.PromptsPath)
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewGroqClient(cfg.LLMAPIKey, cfg.LLM.BaseURL, cfg.LLM.Model, p)
	if err != nil {
		return nil, err
	}

	ttsProvider, err := buildSpeech(cfg)
	if err != nil {
		return nil, err
	}

	ffmpeg := video.NewFFmpeg().WithBinaries(cfg.Video.FFmpegPath, cfg.Video.FFprobePath)

	var closers []func() error
	local := storage.NewLocalStorage(cfg.Video.BackgroundPath, cfg.Video.BackgroundDir, cfg.Video.OutputDir)
	var background storage.BackgroundProvider = local
	var publisher instagram.Publisher

	if cfg.GCS.Enabled {
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCS.Bucket, cfg.GCS.BackgroundDir, cfg.GCS.PublishPrefix, cfg.GCS.CacheDir)
		if err != nil {
			return nil, err
		}
		closers = append(closers, gcs.Close)
		publisher = gcs
		if cfg.Video.BackgroundPath == "" {
			background = gcs
		}
	}

	runs, err := history.Open(cfg.History.Path)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("open history: %w", err)
	}
	closers = append(closers, runs.Close)

	var notifier Notifier
	if cfg.TelegramBotToken != "" {
		client := telegram.NewClient(cfg.TelegramBotToken)
		notifier = telegram.NewNotifier(client, ffmpeg, cfg.Telegram.ChatID, cfg.Telegram.SizeLimitMB)
	} else {
		slog.Warn("Telegram not configured, clips will only be saved locally")
	}

	style := subtitles.LoadStyle(cfg.Captions.StylePath).Merge(cfg.Captions.Style)
	store := subtitles.NewASSFile()

	aligner := align.NewWhisper(align.Config{
		Binary:   cfg.Whisper.Binary,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
	})

	return NewService(ServiceOptions{
		Config:      cfg,
		Posts:       reddit.NewClient(),
		LLM:         llmClient,
		TTS:         ttsProvider,
		Media:       ffmpeg,
		Aligner:     aligner,
		Captions:    subtitles.NewGenerator(style, store),
		Store:       store,
		Background:  background,
		Output:      local,
		Notifier:    notifier,
		History:     runs,
		Distributor: buildDistributor(cfg, publisher),
		Closers:     closers,
	}), nil
}

func loadPrompts(path string) (*prompts.Prompts, error) {
	if path == "" {
		return prompts.Load()
	}
	return prompts.LoadFrom(path)
}

func buildSpeech(cfg *config.Config) (speech.Provider, error) {
	switch cfg.TTS.Provider {
	case "elevenlabs":
		if len(cfg.ElevenLabsAPIKeys) == 0 {
			return nil, fmt.Errorf("tts provider elevenlabs needs ELEVENLABS_API_KEY")
		}
		return elevenlabs.NewClient(elevenlabs.Config{
			APIKeys:    cfg.ElevenLabsAPIKeys,
			VoiceID:    cfg.TTS.VoiceID,
			Speed:      cfg.TTS.Speed,
			Stability:  cfg.TTS.Stability,
			Similarity: cfg.TTS.Similarity,
		}), nil
	case "stub":
		return speech.NewStubProvider(speech.DefaultWordsPerMinute * cfg.TTS.Speed), nil
	case "gtranslate", "":
		return gtranslate.NewClient(cfg.TTS.Language), nil
	}
	return nil, fmt.Errorf("unknown tts provider %q", cfg.TTS.Provider)
}

// buildDistributor registers the platforms enabled in cfg. Credentials are
// checked per upload, so a platform without them is skipped at run time.
func buildDistributor(cfg *config.Config, publisher instagram.Publisher) *distribution.Distributor {
	var uploaders []distribution.Uploader
	if cfg.YouTube.Enabled {
		auth := youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
		uploaders = append(uploaders, youtube.NewClient(auth))
	}
	if cfg.Facebook.Enabled {
		uploaders = append(uploaders, facebook.NewClient(cfg.Facebook.PageID, cfg.FacebookPageToken))
	}
	if cfg.Instagram.Enabled {
		uploaders = append(uploaders, instagram.NewClient(cfg.Instagram.AccountID, cfg.InstagramToken, publisher))
	}
	if cfg.TikTok.Enabled {
		uploaders = append(uploaders, tiktok.NewClient(cfg.TikTokAccessToken, cfg.TikTok.Privacy))
	}
	return distribution.NewDistributor(uploaders...)
}

func closeAll(closers []func() error) {
	for _, closeFn := range closers {
		_ = closeFn()
	}
}
