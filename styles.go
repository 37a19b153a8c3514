package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}).
		Render

	subtle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}).
		Render

	okMark = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).
		SetString("✓").
		String()

	failMark = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#ED567A", Dark: "#FF5F87"}).
		SetString("✗").
		String()

	paragraphStyle = lipgloss.NewStyle().Padding(0, 0, 0, 2)
)

// paragraph wraps help and report copy to the terminal, narrowing from
// the default 78 columns when the terminal is smaller.
func paragraph(s string) string {
	width := 78
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < 80 {
		width = w - 2
	}
	return paragraphStyle.Width(width).Render(s)
}
