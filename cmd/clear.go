package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove leftover run workspaces",
	Long: `Delete run-* and reconcile-* directories left in the work directory by
interrupted runs. Published clips are never touched.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrDefault(cmd)

	count := 0
	for _, pattern := range []string{"run-*", "reconcile-*"} {
		matches, err := filepath.Glob(filepath.Join(cfg.Video.WorkDir, pattern))
		if err != nil {
			return fmt.Errorf("list workspaces: %w", err)
		}
		for _, dir := range matches {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("remove %s: %w", dir, err)
			}
			count++
		}
	}

	printSuccess("Removed %d workspace(s) from %s", count, cfg.Video.WorkDir)
	return nil
}
