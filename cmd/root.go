package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"storyreel/pkg/config"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "storyreel",
	Short: "Turn forum stories into captioned short videos",
	Long: `Storyreel narrates Reddit stories over background footage, burns in
timed captions and optionally sends the result to Telegram and social platforms.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to config.yaml")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// loadConfigOrDefault is for commands that only touch local files: a missing
// config file is not an error for them.
func loadConfigOrDefault(cmd *cobra.Command) *config.Config {
	if _, err := os.Stat(configPath); err != nil {
		slog.Debug("No config file, using defaults", "path", configPath)
		return config.Default()
	}
	cfg, err := config.LoadFrom(cmd.Context(), configPath, nil)
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		return config.Default()
	}
	return cfg
}
