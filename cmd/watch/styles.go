package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true)

	HelpStyle = lipgloss.NewStyle().Faint(true)

	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	WinStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	LossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// FormatR formats an R multiple with an arrow for its sign.
func FormatR(r float64) string {
	s := fmt.Sprintf("%+.2fR", r)

	switch {
	case r > 0:
		return s + " ▲"
	case r < 0:
		return s + " ▼"
	default:
		return s
	}
}
