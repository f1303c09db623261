package cmd

import (
	"github.com/spf13/cobra"

	"storyreel/internal/subtitles"
)

var (
	adjustInput  string
	adjustOutput string
	adjustOpts   = subtitles.DefaultAdjustments()
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Shift, scale or stretch caption timing",
	Long: `Apply timing corrections to an ASS caption file. Operations run in a fixed
order: shift, scale, stretch, minimum duration, then line splitting. Without
--output the input file is rewritten.`,
	RunE: runAdjust,
}

func init() {
	adjustCmd.Flags().StringVarP(&adjustInput, "input", "i", "", "Caption file to adjust")
	adjustCmd.Flags().StringVarP(&adjustOutput, "output", "o", "", "Where to write the result (default: overwrite input)")
	adjustCmd.Flags().Float64Var(&adjustOpts.Shift, "shift", 0, "Seconds to add to every timestamp (may be negative)")
	adjustCmd.Flags().Float64Var(&adjustOpts.Scale, "scale", 1.0, "Multiply every event duration, keeping start times")
	adjustCmd.Flags().Float64Var(&adjustOpts.Stretch, "stretch", 1.0, "Multiply every start and end time")
	adjustCmd.Flags().Float64Var(&adjustOpts.MinDuration, "min-duration", 1.0, "Minimum event duration in seconds")
	adjustCmd.Flags().BoolVar(&adjustOpts.Split, "split", false, "Split long lines into timed pieces")
	adjustCmd.Flags().IntVar(&adjustOpts.MaxLength, "max-length", subtitles.DefaultMaxLength, "Maximum characters per line when splitting")
	_ = adjustCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(adjustCmd)
}

func runAdjust(cmd *cobra.Command, args []string) error {
	report, err := subtitles.AdjustFile(subtitles.NewASSFile(), adjustInput, adjustOutput, adjustOpts)
	if err != nil {
		return err
	}

	out := adjustOutput
	if out == "" {
		out = adjustInput
	}
	printSuccess("Adjusted %d caption(s) into %s", report.Events, out)
	if report.Lengthened > 0 {
		printInfo("  Lengthened: %d", report.Lengthened)
	}
	if report.Split > 0 {
		printInfo("  Split: %d into %d", report.Split, report.Created)
	}
	return nil
}
