package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"storyreel/internal/distribution/youtube"
	"storyreel/internal/telegram"
	"storyreel/pkg/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for storyreel",
	Long:  `Check external tools, create directories, write config.yaml and collect API keys into .env.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	printTitle("🎬 storyreel setup")

	cfg := config.Default()
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Configuring pipeline", func() error { return configurePipeline(cfg) }},
		{"Creating directories", func() error { return createDirectories(cfg) }},
		{"Configuring environment", func() error { return configureEnv(cmd.Context(), cfg) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	printNextSteps(cfg)
	return nil
}

// requiredTools are invoked as external processes by the pipeline.
var requiredTools = []struct {
	name string
	hint string
}{
	{"ffmpeg", "https://ffmpeg.org/download.html"},
	{"ffprobe", "ships with ffmpeg"},
	{"whisper", "pip install openai-whisper"},
}

func checkTools() error {
	var missing []string
	for _, tool := range requiredTools {
		if commandExists(tool.name) {
			printSuccess("Found %s", tool.name)
			continue
		}
		printWarn("%s not found (%s)", tool.name, tool.hint)
		missing = append(missing, tool.name)
	}
	if len(missing) == 0 {
		return nil
	}

	var proceed bool
	if err := huh.NewConfirm().
		Title("Some tools are missing").
		Description("Continue setup anyway? Generation will fail until they are installed.").
		Affirmative("Continue").
		Negative("Abort").
		Value(&proceed).
		Run(); err != nil {
		return err
	}
	if !proceed {
		return fmt.Errorf("missing tools: %s", strings.Join(missing, ", "))
	}
	return nil
}

func configurePipeline(cfg *config.Config) error {
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing " + configPath).
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			printInfo("Kept existing %s", configPath)
			return nil
		}
	}

	subreddits := "tifu, AmItheAsshole, confessions, pettyrevenge"
	seconds := "60"
	wordLevel := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Subreddits").
				Description("Comma separated; one is picked at random per run").
				Value(&subreddits).
				Validate(required("Subreddits")),
			huh.NewInput().
				Title("Narration length (seconds)").
				Value(&seconds).
				Validate(positiveNumber),
			huh.NewSelect[string]().
				Title("Speech provider").
				Options(huh.NewOptions(config.TTSProviders...)...).
				Value(&cfg.TTS.Provider),
			huh.NewConfirm().
				Title("Word-level captions?").
				Description("One caption per word instead of one per phrase").
				Value(&wordLevel),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	for _, sub := range strings.Split(subreddits, ",") {
		if sub = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sub), "r/")); sub != "" {
			cfg.Reddit.Subreddits = append(cfg.Reddit.Subreddits, sub)
		}
	}
	cfg.LLM.Seconds, _ = strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	cfg.Captions.WordLevel = &wordLevel

	if err := cfg.Save(configPath); err != nil {
		return err
	}
	printSuccess("Wrote %s", configPath)
	return nil
}

func createDirectories(cfg *config.Config) error {
	dirs := []string{cfg.Video.BackgroundDir, cfg.Video.OutputDir, cfg.Video.WorkDir, filepath.Dir(cfg.History.Path)}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	printSuccess("Created directories")
	return nil
}

func configureEnv(ctx context.Context, cfg *config.Config) error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			printInfo("Kept existing .env")
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureGCP(ctx, env, cfg); err != nil {
		return err
	}

	if err := configureRequiredKeys(env, cfg); err != nil {
		return err
	}

	if err := configureTelegram(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureGCP(ctx context.Context, env map[string]string, cfg *config.Config) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("For YouTube uploads, Cloud Storage backgrounds and Secret Manager").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		printWarn("gcloud CLI not found, install from https://cloud.google.com/sdk/docs/install")
		return nil
	}

	project, err := getOrCreateGCPProject()
	if err != nil {
		printWarn("GCP setup skipped: %v", err)
		return nil
	}

	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		printWarn("API enablement failed: %v", err)
	}

	if err := setupYouTubeOAuth(ctx, env); err != nil {
		printWarn("YouTube OAuth skipped: %v", err)
	}

	if err := setupBucket(project, env, cfg); err != nil {
		printWarn("Cloud Storage skipped: %v", err)
	}

	return nil
}

func getOrCreateGCPProject() (string, error) {
	existing := getActiveProject()

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Create new project", "new"),
	}

	if existing != "" {
		options = append([]huh.Option[string]{
			huh.NewOption(fmt.Sprintf("Use current: %s", existing), existing),
		}, options...)
	}

	options = append(options, huh.NewOption("Enter project ID manually", "manual"))

	if err := huh.NewSelect[string]().
		Title("Google Cloud Project").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}

	switch choice {
	case "new":
		return createGCPProject()
	case "manual":
		var projectID string
		if err := huh.NewInput().
			Title("Project ID").
			Value(&projectID).
			Run(); err != nil {
			return "", err
		}
		return projectID, nil
	default:
		return choice, nil
	}
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func createGCPProject() (string, error) {
	var projectID string
	if err := huh.NewInput().
		Title("New Project ID").
		Description("Must be globally unique, 6-30 chars, lowercase letters, digits, hyphens").
		Placeholder("storyreel-12345").
		Value(&projectID).
		Validate(func(s string) error {
			if len(s) < 6 || len(s) > 30 {
				return fmt.Errorf("must be 6-30 characters")
			}
			return nil
		}).
		Run(); err != nil {
		return "", err
	}

	err := runWithSpinner("Creating project", func() error {
		return runSetupCmd("gcloud", "projects", "create", projectID)
	})
	if err != nil {
		return "", err
	}

	_ = runSetupCmd("gcloud", "config", "set", "project", projectID)

	return projectID, nil
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"youtube.googleapis.com",
		"storage.googleapis.com",
		"secretmanager.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func setupYouTubeOAuth(ctx context.Context, env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup YouTube OAuth?").
		Description("Required for uploading videos to YouTube").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	printInfo(`
To create OAuth credentials:
1. Go to https://console.cloud.google.com/apis/credentials
2. Click "Create Credentials" → "OAuth client ID"
3. Choose "Desktop app" as application type
4. Copy the Client ID and Client Secret
`)

	var clientID, clientSecret string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("YouTube Client ID").
				Value(&clientID),
			huh.NewInput().
				Title("YouTube Client Secret").
				EchoMode(huh.EchoModePassword).
				Value(&clientSecret),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)

	if clientID != "" {
		env["YOUTUBE_CLIENT_ID"] = clientID
	}
	if clientSecret != "" {
		env["YOUTUBE_CLIENT_SECRET"] = clientSecret
	}

	if clientID != "" && clientSecret != "" {
		var authenticate bool
		if err := huh.NewConfirm().
			Title("Authenticate with YouTube now?").
			Description("Opens browser to complete OAuth flow").
			Value(&authenticate).
			Run(); err != nil {
			return err
		}

		if authenticate {
			auth := youtube.NewAuth(clientID, clientSecret, youtubeTokenPath)
			if err := runYouTubeAuth(ctx, auth); err != nil {
				printWarn("OAuth flow failed: %v", err)
				printInfo("You can retry later with: storyreel auth youtube")
			}
		}
	}

	return nil
}

func setupBucket(project string, env map[string]string, cfg *config.Config) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Use a Cloud Storage bucket?").
		Description("Background clips are read from it and clips are published to it (needed for Instagram)").
		Value(&setup).
		Run(); err != nil || !setup {
		return err
	}

	bucket := project + "-storyreel"
	var create bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bucket name").
				Value(&bucket).
				Validate(required("Bucket name")),
			huh.NewConfirm().
				Title("Create the bucket now?").
				Value(&create),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	bucket = strings.TrimSpace(bucket)

	if create {
		err := runWithSpinner("Creating bucket", func() error {
			return runSetupCmd("gcloud", "storage", "buckets", "create", "gs://"+bucket, "--project", project)
		})
		if err != nil {
			return err
		}
	}

	env["GCS_BUCKET"] = bucket
	cfg.GCS.Enabled = true
	cfg.GCS.Bucket = bucket
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	printInfo("Upload background clips to gs://%s/%s/", bucket, cfg.GCS.BackgroundDir)
	return nil
}

func configureRequiredKeys(env map[string]string, cfg *config.Config) error {
	var llmKey, elevenKey string

	fields := []huh.Field{
		huh.NewInput().
			Title("LLM API Key").
			Description("Leave empty for a local OpenAI-compatible server at " + cfg.LLM.BaseURL).
			EchoMode(huh.EchoModePassword).
			Value(&llmKey),
	}
	if cfg.TTS.Provider == "elevenlabs" {
		fields = append(fields, huh.NewInput().
			Title("ElevenLabs API Key").
			Description("https://elevenlabs.io/app/settings/api-keys (comma separate several keys)").
			EchoMode(huh.EchoModePassword).
			Value(&elevenKey).
			Validate(required("ElevenLabs API Key")))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	env["LLM_API_KEY"] = strings.TrimSpace(llmKey)
	env["ELEVENLABS_API_KEY"] = strings.TrimSpace(elevenKey)
	return nil
}

func configureTelegram(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup Telegram bot?").
		Description("Finished clips are sent to a chat (optional)").
		Value(&setup).
		Run(); err != nil {
		return err
	}

	if !setup {
		return nil
	}

	var token, chatID string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Get from @BotFather → https://t.me/BotFather").
				EchoMode(huh.EchoModePassword).
				Value(&token),
			huh.NewInput().
				Title("Chat ID").
				Description("Leave empty to detect it from the bot's latest message").
				Value(&chatID),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	chatID = strings.TrimSpace(chatID)
	if token == "" {
		return nil
	}
	env["TELEGRAM_BOT_TOKEN"] = token

	if chatID == "" {
		err := runWithSpinner("Detecting chat ID", func() error {
			id, title, err := telegram.NewClient(token).GetChatID(context.Background())
			if err != nil {
				return err
			}
			chatID = strconv.FormatInt(id, 10)
			slog.Debug("Telegram chat detected", "chat", title)
			return nil
		})
		if err != nil {
			printWarn("Send any message to the bot, then rerun setup or set TELEGRAM_CHAT_ID: %v", err)
		}
	}
	if chatID != "" {
		env["TELEGRAM_CHAT_ID"] = chatID
	}
	return nil
}

// envOrder is the key order of the written .env file.
var envOrder = []string{
	"GOOGLE_CLOUD_PROJECT",
	"LLM_API_KEY",
	"ELEVENLABS_API_KEY",
	"YOUTUBE_CLIENT_ID",
	"YOUTUBE_CLIENT_SECRET",
	"GCS_BUCKET",
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
}

func writeEnvFile(env map[string]string) error {
	if err := os.WriteFile(".env", []byte(formatEnv(env)), 0600); err != nil {
		return err
	}
	printSuccess("Created .env file")
	return nil
}

func formatEnv(env map[string]string) string {
	var sb strings.Builder
	for _, key := range envOrder {
		if val, ok := env[key]; ok && val != "" {
			fmt.Fprintf(&sb, "%s=%s\n", key, val)
		}
	}
	return sb.String()
}

func printNextSteps(cfg *config.Config) {
	fmt.Println()
	printTitle("Next steps:")
	fmt.Printf("  1. Add background videos to: %s\n", cfg.Video.BackgroundDir)
	fmt.Println("  2. Check credentials: storyreel auth status")
	fmt.Println("  3. Run: storyreel generate")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func positiveNumber(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	printSuccess("%s", title)
	return nil
}

const youtubeTokenPath = "./youtube_token.json"
