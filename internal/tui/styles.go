package tui

import "github.com/charmbracelet/lipgloss"

var theme = struct {
	Title      lipgloss.Style
	Crumb      lipgloss.Style
	Selected   lipgloss.Style
	Unselected lipgloss.Style
	Enabled    lipgloss.Style
	Disabled   lipgloss.Style
	Prompt     lipgloss.Style
	Status     lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7B61FF")),
	Crumb: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5A9")),
	Selected: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#73F59F")),
	Unselected: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")),
	Enabled: lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7B61FF")),
	Disabled: lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("#666666")),
	Prompt: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F5A623")),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF5F56")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5A9")),
}
