package cmd

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"storyreel/internal/app"
	"storyreel/pkg/config"
)

var (
	generateSubreddit  string
	generateDistribute bool
	generateNoNotify   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single clip from a Reddit story",
	Long: `Pick an unprocessed top post, narrate it over a background clip fitted to
the narration, burn in captions and publish the result.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateSubreddit, "subreddit", "s", "", "Subreddit to use instead of a random configured one")
	generateCmd.Flags().BoolVarP(&generateDistribute, "distribute", "d", false, "Upload to the enabled social platforms")
	generateCmd.Flags().BoolVar(&generateNoNotify, "no-notify", false, "Do not send the clip to Telegram")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFrom(ctx, configPath, nil)
	if err != nil {
		return err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	result, err := app.NewPipeline(service).Generate(ctx, app.GenerateOptions{
		Subreddit:  generateSubreddit,
		Distribute: generateDistribute || cfg.Distribution.Enabled,
		Notify:     !generateNoNotify,
	})
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *app.GenerateResult) {
	printSuccess("%s", result.Title)
	printInfo("  Clip:     %s", result.VideoPath)
	printInfo("  Duration: %.2fs (%s)", result.Duration, result.Strategy)
	printInfo("  Captions: %d", result.Captions)

	if result.NotifyErr != nil {
		printWarn("Telegram: %v", result.NotifyErr)
	}

	platforms := make([]string, 0, len(result.Distributions))
	for name := range result.Distributions {
		platforms = append(platforms, name)
	}
	slices.Sort(platforms)
	for _, name := range platforms {
		r := result.Distributions[name]
		switch {
		case r.Skipped:
			printWarn("%s: skipped (%v)", name, r.Err)
		case r.Err != nil:
			printError("%s: %v", name, r.Err)
		default:
			printSuccess("%s: %s", name, uploadLocation(r.Response.URL, r.Response.ID))
		}
	}
	slog.Debug("Run finished", "run", result.RunID, "post", result.Post.ID)
}

func uploadLocation(url, id string) string {
	if url != "" {
		return url
	}
	return fmt.Sprintf("id %s", id)
}
