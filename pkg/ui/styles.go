package ui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	neonRed     = lipgloss.Color("#FF3131")
	dimWhite    = lipgloss.Color("#B0B0B0")

	logoStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange)

	errorStyle = lipgloss.NewStyle().
			Foreground(neonRed).
			Bold(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(neonMagenta)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(neonMagenta).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// statusStyle colors an account status
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "ok":
		return successStyle
	case "exhausted", "panicked":
		return errorStyle
	case "interrupted", "skipped":
		return warningStyle
	default:
		return dimStyle
	}
}
