package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/sevigo/ci-warden/internal/core"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// statusColor picks the terminal color for a record status.
func statusColor(s core.Status) *color.Color {
	switch s {
	case core.StatusSuccess:
		return successColor
	case core.StatusFailure:
		return errorColor
	case core.StatusPending:
		return warnColor
	default:
		return dimColor
	}
}

var badgeColors = map[string]lipgloss.Color{
	"brightgreen": lipgloss.Color("40"),
	"red":         lipgloss.Color("160"),
	"orange":      lipgloss.Color("208"),
}

var (
	badgeLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("240")).
			Padding(0, 1)
	badgeMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Bold(true).
				Padding(0, 1)
)

// renderBadge draws a badge payload the way shields.io lays it out.
func renderBadge(p *core.BadgePayload) string {
	bg, ok := badgeColors[p.Color]
	if !ok {
		bg = lipgloss.Color("244")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		badgeLabelStyle.Render(p.Label),
		badgeMessageStyle.Background(bg).Render(p.Message),
	)
}

func formatCoverage(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *c)
}
