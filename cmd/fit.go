package cmd

import (
	"github.com/spf13/cobra"

	"storyreel/internal/app"
	"storyreel/internal/video"
)

var (
	fitInput     string
	fitOutput    string
	fitReference string
	fitTarget    float64
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Trim or loop a video to a target duration",
	Long: `Reconcile a video with a target duration: copy when already within
tolerance, trim when longer, loop when shorter. The target is either given in
seconds or taken from a reference audio or video file.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVarP(&fitInput, "input", "i", "", "Video to fit")
	fitCmd.Flags().StringVarP(&fitOutput, "output", "o", "", "Where to write the fitted video")
	fitCmd.Flags().StringVarP(&fitReference, "reference", "r", "", "Media file whose duration is the target")
	fitCmd.Flags().Float64VarP(&fitTarget, "target", "t", 0, "Target duration in seconds")
	_ = fitCmd.MarkFlagRequired("input")
	_ = fitCmd.MarkFlagRequired("output")
	fitCmd.MarkFlagsOneRequired("target", "reference")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault(cmd)

	service := app.NewService(app.ServiceOptions{
		Config: cfg,
		Media:  video.NewFFmpeg().WithBinaries(cfg.Video.FFmpegPath, cfg.Video.FFprobePath),
	})

	result, err := service.Fit(cmd.Context(), fitInput, fitReference, fitTarget, fitOutput)
	if err != nil {
		return err
	}

	printSuccess("%s -> %s", fitInput, result.Path)
	printInfo("  Strategy: %s", result.Strategy)
	printInfo("  Duration: %.2fs -> %.2fs", result.Source, result.Target)
	if result.Strategy == video.StrategyExtend {
		printInfo("  Segments: %d", result.Loops)
	}
	return nil
}
