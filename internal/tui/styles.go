// Package tui implements the Bubble Tea terminal UI for perch review
// sessions. It hosts the engine's panels, routes keybindings to session
// operations, and renders notices from the notification bus.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	panelBorderFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	panelTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 1)

	cursorLine = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	noticeInfo = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	noticeWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	noticeError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

var panelTitles = map[string]string{
	"files":    "Files",
	"diff-old": "Before",
	"diff-new": "After",
	"comments": "Comments",
}
