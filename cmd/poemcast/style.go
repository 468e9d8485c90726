package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jgoulah/poemcast/pkg/models"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	poemStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	publishedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func statusText(s models.DeliveryStatus) string {
	switch s {
	case models.DeliveryPublished:
		return publishedStyle.Render(string(s))
	case models.DeliveryFailed:
		return failedStyle.Render(string(s))
	default:
		return pendingStyle.Render(string(s))
	}
}

// firstLine returns the first line of s, cut to max runes
func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
