package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the console output.
var (
	ColorGreen  = lipgloss.Color("#00FF00")
	ColorYellow = lipgloss.Color("#FFFF00")
	ColorCyan   = lipgloss.Color("#00FFFF")
	ColorGray   = lipgloss.Color("#666666")
	ColorRed    = lipgloss.Color("#FF0000")
)

// Base styles reused by the run log and progress rendering.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	RuleStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FileStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	DetailStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	OKStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	WarnStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	SummaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)
)

// Rule renders a horizontal separator of the given width.
func Rule(width int) string {
	if width <= 0 {
		width = 50
	}
	line := make([]rune, width)
	for i := range line {
		line[i] = '━'
	}
	return RuleStyle.Render(string(line))
}
