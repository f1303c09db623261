package cmd

import (
	"github.com/spf13/cobra"

	"storyreel/internal/align"
	"storyreel/internal/app"
	"storyreel/internal/subtitles"
)

var (
	captionsInput     string
	captionsOutput    string
	captionsStylePath string
	captionsWordLevel bool
)

var captionsCmd = &cobra.Command{
	Use:   "captions",
	Short: "Generate a caption file from audio or a whisper transcript",
	Long: `Build an ASS caption track. A .json input is read as a whisper transcript;
anything else is treated as audio and transcribed first.`,
	RunE: runCaptions,
}

func init() {
	captionsCmd.Flags().StringVarP(&captionsInput, "input", "i", "", "Audio file or whisper JSON transcript")
	captionsCmd.Flags().StringVarP(&captionsOutput, "output", "o", "captions.ass", "Caption file to write")
	captionsCmd.Flags().StringVar(&captionsStylePath, "style", "", "Style file (JSON, YAML or TOML)")
	captionsCmd.Flags().BoolVarP(&captionsWordLevel, "word-level", "w", true, "One caption per word")
	_ = captionsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(captionsCmd)
}

func runCaptions(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault(cmd)

	stylePath := cfg.Captions.StylePath
	if captionsStylePath != "" {
		stylePath = captionsStylePath
	}
	style := subtitles.LoadStyle(stylePath).Merge(cfg.Captions.Style)
	store := subtitles.NewASSFile()

	service := app.NewService(app.ServiceOptions{
		Config: cfg,
		Aligner: align.NewWhisper(align.Config{
			Binary:   cfg.Whisper.Binary,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
		}),
		Captions: subtitles.NewGenerator(style, store),
		Store:    store,
	})

	track, err := service.Captions(cmd.Context(), captionsInput, captionsOutput, captionsWordLevel)
	if err != nil {
		return err
	}
	printSuccess("Wrote %d caption(s) to %s", len(track.Events), captionsOutput)
	return nil
}
