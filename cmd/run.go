package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/app"
	"storyreel/pkg/config"
)

var (
	runInterval   time.Duration
	runDistribute bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cron mode: generate a clip at a fixed interval",
	Long: `Run continuously, generating one clip from Reddit every interval until
interrupted. A failed run is logged and recorded in history; the loop keeps going.`,
	RunE: runCron,
}

func init() {
	runCmd.Flags().DurationVarP(&runInterval, "interval", "i", 30*time.Minute, "Interval between generations")
	runCmd.Flags().BoolVarP(&runDistribute, "distribute", "d", false, "Upload each clip to the enabled social platforms")
	rootCmd.AddCommand(runCmd)
}

func runCron(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFrom(ctx, configPath, nil)
	if err != nil {
		return err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	pipeline := app.NewPipeline(service)
	opts := app.GenerateOptions{
		Distribute: runDistribute || cfg.Distribution.Enabled,
		Notify:     true,
	}

	slog.Info("Starting cron mode", "interval", runInterval, "distribute", opts.Distribute)

	generate := func(ctx context.Context) {
		result, err := pipeline.Generate(ctx, opts)
		if err != nil {
			slog.Error("Generation failed", "error", err)
			return
		}
		slog.Info("Clip generated", "title", result.Title, "path", result.VideoPath)
	}

	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	generate(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down...")
			return nil
		case <-ticker.C:
			generate(ctx)
		}
	}
}
