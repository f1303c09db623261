package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var colorOutput = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func render(style lipgloss.Style, s string) string {
	if !colorOutput {
		return s
	}
	return style.Render(s)
}

func printSuccess(format string, args ...any) {
	fmt.Println(render(successStyle, "✓ "+fmt.Sprintf(format, args...)))
}

func printWarn(format string, args ...any) {
	fmt.Println(render(warnStyle, "! "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Println(render(errorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(render(infoStyle, fmt.Sprintf(format, args...)))
}

func printTitle(s string) {
	fmt.Println(render(titleStyle, s))
}
