package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"

	defaultPeriod         = "day"
	defaultPostLimit      = 10
	defaultLLMBaseURL     = "http://localhost:8080/v1"
	defaultLLMModel       = "llama-3.1-8b-instant"
	defaultScriptSeconds  = 60
	defaultStyle          = "tiktok"
	defaultTone           = "casual"
	defaultTTSProvider    = "gtranslate"
	defaultLanguage       = "en"
	defaultSpeed          = 1.0
	defaultStability      = 0.5
	defaultSimilarity     = 0.75
	defaultWhisperBinary  = "whisper"
	defaultWhisperModel   = "base"
	defaultBackgroundDir  = "./assets/backgrounds"
	defaultOutputDir      = "./output"
	defaultWorkDir        = "./.work"
	defaultPadding        = 2.0
	defaultTolerance      = 0.5
	defaultMaxLength      = 42
	defaultMinDuration    = 1.0
	defaultSizeLimitMB    = 50
	defaultPrivacyStatus  = "private"
	defaultTikTokPrivacy  = "SELF_ONLY"
	defaultTokenPath      = "./youtube_token.json"
	defaultGCSBackgrounds = "backgrounds"
	defaultPublishPrefix  = "published"
	defaultCacheDir       = "./.cache"
	defaultHistoryPath    = "./.storyreel/history.db"
)

var TTSProviders = []string{"gtranslate", "elevenlabs", "stub"}

type Config struct {
	// Secrets come from the environment only.
	LLMAPIKey           string   `yaml:"-"`
	ElevenLabsAPIKeys   []string `yaml:"-"`
	TelegramBotToken    string   `yaml:"-"`
	YouTubeClientID     string   `yaml:"-"`
	YouTubeClientSecret string   `yaml:"-"`
	YouTubeTokenPath    string   `yaml:"-"`
	FacebookPageToken   string   `yaml:"-"`
	InstagramToken      string   `yaml:"-"`
	TikTokAccessToken   string   `yaml:"-"`
	GCPProject          string   `yaml:"-"`

	Reddit       RedditConfig       `yaml:"reddit"`
	LLM          LLMConfig          `yaml:"llm"`
	TTS          TTSConfig          `yaml:"tts"`
	Whisper      WhisperConfig      `yaml:"whisper"`
	Video        VideoConfig        `yaml:"video"`
	Captions     CaptionsConfig     `yaml:"captions"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Distribution DistributionConfig `yaml:"distribution"`
	YouTube      YouTubeConfig      `yaml:"youtube"`
	Facebook     FacebookConfig     `yaml:"facebook"`
	Instagram    InstagramConfig    `yaml:"instagram"`
	TikTok       TikTokConfig       `yaml:"tiktok"`
	GCS          GCSConfig          `yaml:"gcs"`
	History      HistoryConfig      `yaml:"history"`
}

type RedditConfig struct {
	Subreddits []string `yaml:"subreddits"`
	Period     string   `yaml:"period"`
	Limit      int      `yaml:"limit"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Seconds     float64 `yaml:"seconds"`
	Style       string  `yaml:"style"`
	Tone        string  `yaml:"tone"`
	Theme       string  `yaml:"theme"`
	PromptsPath string  `yaml:"prompts_path"`
}

type TTSConfig struct {
	Provider   string  `yaml:"provider"` // "gtranslate", "elevenlabs" or "stub"
	Language   string  `yaml:"language"`
	VoiceID    string  `yaml:"voice_id"`
	Speed      float64 `yaml:"speed"`
	Stability  float64 `yaml:"stability"`
	Similarity float64 `yaml:"similarity"`
}

type WhisperConfig struct {
	Binary   string `yaml:"binary"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type VideoConfig struct {
	BackgroundPath string  `yaml:"background_path"`
	BackgroundDir  string  `yaml:"background_dir"`
	OutputDir      string  `yaml:"output_dir"`
	WorkDir        string  `yaml:"work_dir"`
	Padding        float64 `yaml:"padding"`
	Tolerance      float64 `yaml:"tolerance"`
	FFmpegPath     string  `yaml:"ffmpeg_path"`
	FFprobePath    string  `yaml:"ffprobe_path"`
}

type CaptionsConfig struct {
	StylePath   string         `yaml:"style_path"`
	Style       map[string]any `yaml:"style"`
	WordLevel   *bool          `yaml:"word_level"`
	MaxLength   int            `yaml:"max_length"`
	MinDuration float64        `yaml:"min_duration"`
}

func (c CaptionsConfig) IsWordLevel() bool {
	return c.WordLevel == nil || *c.WordLevel
}

type TelegramConfig struct {
	ChatID      int64 `yaml:"chat_id"`
	SizeLimitMB int   `yaml:"size_limit_mb"`
}

type DistributionConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tags    []string `yaml:"tags"`
}

type YouTubeConfig struct {
	Enabled       bool   `yaml:"enabled"`
	PrivacyStatus string `yaml:"privacy_status"`
}

type FacebookConfig struct {
	Enabled bool   `yaml:"enabled"`
	PageID  string `yaml:"page_id"`
}

type InstagramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AccountID string `yaml:"account_id"`
}

type TikTokConfig struct {
	Enabled bool   `yaml:"enabled"`
	Privacy string `yaml:"privacy"`
}

type GCSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Bucket        string `yaml:"bucket"`
	BackgroundDir string `yaml:"background_dir"`
	PublishPrefix string `yaml:"publish_prefix"`
	CacheDir      string `yaml:"cache_dir"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Load reads .env and config.yaml from the working directory.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, DefaultConfigPath, nil)
}

// LoadFrom reads the YAML file at path, fills secrets from the environment
// and applies defaults. Environment values of the form sm://... are
// resolved through resolver; a nil resolver uses Secret Manager.
func LoadFrom(ctx context.Context, path string, resolver SecretResolver) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found, run 'storyreel setup' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	secrets := newSecretLoader(ctx, resolver)
	defer secrets.Close()

	cfg.LLMAPIKey = secrets.env("LLM_API_KEY", os.Getenv("GROQ_API_KEY"))
	cfg.ElevenLabsAPIKeys = splitList(secrets.env("ELEVENLABS_API_KEY", ""))
	cfg.TelegramBotToken = secrets.env("TELEGRAM_BOT_TOKEN", "")
	cfg.YouTubeClientID = secrets.env("YOUTUBE_CLIENT_ID", "")
	cfg.YouTubeClientSecret = secrets.env("YOUTUBE_CLIENT_SECRET", "")
	cfg.YouTubeTokenPath = getEnvOrDefault("YOUTUBE_TOKEN_PATH", defaultTokenPath)
	cfg.FacebookPageToken = secrets.env("FACEBOOK_PAGE_TOKEN", "")
	cfg.InstagramToken = secrets.env("INSTAGRAM_ACCESS_TOKEN", "")
	cfg.TikTokAccessToken = secrets.env("TIKTOK_ACCESS_TOKEN", "")
	cfg.GCPProject = os.Getenv("GOOGLE_CLOUD_PROJECT")
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" && cfg.Telegram.ChatID == 0 {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" && cfg.GCS.Bucket == "" {
		cfg.GCS.Bucket = bucket
	}

	if err := secrets.Err(); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and no
// secrets. Commands that work on local files use it when no config file
// exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Save writes the YAML sections of c to path. Secrets are never written.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	valid := false
	for _, p := range TTSProviders {
		if c.TTS.Provider == p {
			valid = true
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("tts.provider %q is not one of %s", c.TTS.Provider, strings.Join(TTSProviders, ", ")))
	}
	if c.Video.Padding < 0 {
		errs = append(errs, fmt.Errorf("video.padding must not be negative"))
	}
	if c.Video.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("video.tolerance must not be negative"))
	}
	if c.Telegram.SizeLimitMB < 0 {
		errs = append(errs, fmt.Errorf("telegram.size_limit_mb must not be negative"))
	}
	if c.LLM.Seconds <= 0 {
		errs = append(errs, fmt.Errorf("llm.seconds must be positive"))
	}
	if c.GCS.Enabled && c.GCS.Bucket == "" {
		errs = append(errs, fmt.Errorf("gcs.enabled requires gcs.bucket or GCS_BUCKET"))
	}
	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	applyRedditDefaults(cfg)
	applyLLMDefaults(cfg)
	applyTTSDefaults(cfg)
	applyWhisperDefaults(cfg)
	applyVideoDefaults(cfg)
	applyCaptionsDefaults(cfg)
	applyTelegramDefaults(cfg)
	applyPlatformDefaults(cfg)
	applyGCSDefaults(cfg)
	applyHistoryDefaults(cfg)
}

func applyRedditDefaults(cfg *Config) {
	if cfg.Reddit.Period == "" {
		cfg.Reddit.Period = defaultPeriod
	}
	if cfg.Reddit.Limit == 0 {
		cfg.Reddit.Limit = defaultPostLimit
	}
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultLLMBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultLLMModel
	}
	if cfg.LLM.Seconds == 0 {
		cfg.LLM.Seconds = defaultScriptSeconds
	}
	if cfg.LLM.Style == "" {
		cfg.LLM.Style = defaultStyle
	}
	if cfg.LLM.Tone == "" {
		cfg.LLM.Tone = defaultTone
	}
}

func applyTTSDefaults(cfg *Config) {
	if cfg.TTS.Provider == "" {
		cfg.TTS.Provider = defaultTTSProvider
	}
	if cfg.TTS.Language == "" {
		cfg.TTS.Language = defaultLanguage
	}
	if cfg.TTS.Speed == 0 {
		cfg.TTS.Speed = defaultSpeed
	}
	if cfg.TTS.Stability == 0 {
		cfg.TTS.Stability = defaultStability
	}
	if cfg.TTS.Similarity == 0 {
		cfg.TTS.Similarity = defaultSimilarity
	}
}

func applyWhisperDefaults(cfg *Config) {
	if cfg.Whisper.Binary == "" {
		cfg.Whisper.Binary = defaultWhisperBinary
	}
	if cfg.Whisper.Model == "" {
		cfg.Whisper.Model = defaultWhisperModel
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.BackgroundDir == "" {
		cfg.Video.BackgroundDir = defaultBackgroundDir
	}
	if cfg.Video.OutputDir == "" {
		cfg.Video.OutputDir = defaultOutputDir
	}
	if cfg.Video.WorkDir == "" {
		cfg.Video.WorkDir = defaultWorkDir
	}
	if cfg.Video.Padding == 0 {
		cfg.Video.Padding = defaultPadding
	}
	if cfg.Video.Tolerance == 0 {
		cfg.Video.Tolerance = defaultTolerance
	}
}

func applyCaptionsDefaults(cfg *Config) {
	if cfg.Captions.MaxLength == 0 {
		cfg.Captions.MaxLength = defaultMaxLength
	}
	if cfg.Captions.MinDuration == 0 {
		cfg.Captions.MinDuration = defaultMinDuration
	}
}

func applyTelegramDefaults(cfg *Config) {
	if cfg.Telegram.SizeLimitMB == 0 {
		cfg.Telegram.SizeLimitMB = defaultSizeLimitMB
	}
}

func applyPlatformDefaults(cfg *Config) {
	if cfg.YouTube.PrivacyStatus == "" {
		cfg.YouTube.PrivacyStatus = defaultPrivacyStatus
	}
	if cfg.TikTok.Privacy == "" {
		cfg.TikTok.Privacy = defaultTikTokPrivacy
	}
	if len(cfg.Distribution.Tags) == 0 {
		cfg.Distribution.Tags = []string{"reddit", "storytime", "shorts"}
	}
}

func applyGCSDefaults(cfg *Config) {
	if cfg.GCS.BackgroundDir == "" {
		cfg.GCS.BackgroundDir = defaultGCSBackgrounds
	}
	if cfg.GCS.PublishPrefix == "" {
		cfg.GCS.PublishPrefix = defaultPublishPrefix
	}
	if cfg.GCS.CacheDir == "" {
		cfg.GCS.CacheDir = defaultCacheDir
	}
}

func applyHistoryDefaults(cfg *Config) {
	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
