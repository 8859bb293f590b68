package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colAccent  = lipgloss.Color("#2DD4BF")
	colFrame   = lipgloss.Color("#7C3AED")
	colOK      = lipgloss.Color("#4ADE80")
	colValue   = lipgloss.Color("#FACC15")
	colWarn    = lipgloss.Color("#FB923C")
	colFail    = lipgloss.Color("#F87171")
	colCanvas  = lipgloss.Color("#111827")
	colSurface = lipgloss.Color("#1F2937")
	colText    = lipgloss.Color("#D1D5DB")
	colFaint   = lipgloss.Color("#6B7280")
)

func bold(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

var (
	baseStyle = lipgloss.NewStyle().Background(colCanvas).Foreground(colText)
	logoStyle = bold(colAccent).Padding(1, 0).Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colFrame).
			Background(colSurface).
			Padding(1, 2)
	titleStyle = bold(colCanvas).Background(colFrame).Padding(0, 1)

	fieldLabelStyle = bold(colAccent)
	fieldValueStyle = lipgloss.NewStyle().Foreground(colValue)

	successStyle = bold(colOK)
	warningStyle = bold(colWarn)
	errorStyle   = bold(colFail)

	// query list rows
	queryRowStyle       = lipgloss.NewStyle().PaddingLeft(2)
	queryRowActiveStyle = bold(colOK).PaddingLeft(2)
	queryRowDoneStyle   = lipgloss.NewStyle().Foreground(colText).Faint(true).PaddingLeft(2)

	logTimestampStyle = lipgloss.NewStyle().Foreground(colFaint)
	logMessageStyle   = lipgloss.NewStyle().Foreground(colText)

	helpStyle = lipgloss.NewStyle().Foreground(colFaint).Padding(1, 0, 0, 2)
)

// GetBackoffStyle returns the style for the remaining backoff time
func GetBackoffStyle(remaining time.Duration) lipgloss.Style {
	if remaining > 2*time.Second {
		return warningStyle
	}
	return successStyle
}
