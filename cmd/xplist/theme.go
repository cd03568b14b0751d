package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"xplist/leveling"
)

const (
	iconSparkle = "✨"
	iconDone    = "✅"
	iconOpen    = "⬜"
	iconError   = "🧨"
	iconScroll  = "📜"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(cBad)

	levelUpBadge = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

const progressWidth = 20

func heading(icon, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return titleStyle.Render(icon + title)
}

func labelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", keyStyle.Render(label+":"), value)
}

// bandStyle draws text in the colour of a level band.
func bandStyle(c leveling.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Hex()))
}

// progressBar renders pct (0..100) as a fixed-width bar in the band colour.
func progressBar(pct float64, c leveling.Color) string {
	filled := int(pct / 100 * progressWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	return bandStyle(c).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", progressWidth-filled))
}
