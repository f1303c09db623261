package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storyreel/internal/subtitles"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <captions.ass>",
	Short: "Print a caption file as a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	track, err := subtitles.NewASSFile().Load(args[0])
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(track.Events))
	for i, ev := range track.Events {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatMillis(ev.Start),
			formatMillis(ev.End),
			strconv.FormatInt(ev.Duration(), 10),
			ev.Text,
		})
	}

	printTitle(fmt.Sprintf("%s (style %s, %s %g)", args[0], track.Style.Name, track.Style.FontName, track.Style.FontSize))
	fmt.Println(renderTable(
		[]string{"#", "Start", "End", "ms", "Text"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	if !track.Sorted() {
		printWarn("events are not ordered by start time")
	}
	return nil
}
