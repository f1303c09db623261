package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded pipeline runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault(cmd)

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No runs recorded in %s", store.Path())
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		detail := run.VideoPath
		if run.Status == history.StatusFailed {
			detail = run.Error
		}
		rows = append(rows, []string{
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			"r/" + run.Subreddit,
			truncate(run.Title, 48),
			truncate(detail, 60),
		})
	}

	fmt.Println(renderTable([]string{"Started", "Status", "Subreddit", "Title", "Clip / Error"}, rows, nil))
	return nil
}
