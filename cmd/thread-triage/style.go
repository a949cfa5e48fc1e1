package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mikey/thread-triage/internal/core"
)

var (
	highStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	unsetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// priorityStyle renders a priority label in its colour
func priorityStyle(label string) string {
	switch core.Priority(label) {
	case core.PriorityHigh:
		return highStyle.Render(label)
	case core.PriorityMedium:
		return mediumStyle.Render(label)
	case core.PriorityLow:
		return lowStyle.Render(label)
	default:
		return unsetStyle.Render("-")
	}
}
