package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the TUI.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan

	// Camera list styles.
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // magenta
	currentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")) // green
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow

	// Preview panel styles.
	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(1, 2)
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	arrowStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))

	// General utility styles.
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray/dim
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
)

// List markers.
const (
	markCursor   = "›"
	markCurrent  = "●"
	markIdle     = "○"
	markLastUsed = "★"
)
