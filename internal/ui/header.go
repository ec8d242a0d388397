package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cardbridge/internal/outcome"
)

const (
	headerHeight = 1
	statusHeight = 4 // two lines plus border
)

// renderHeader renders the title bar with reader connectivity.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	bg := lipgloss.NewStyle().Background(lipgloss.Color(m.theme.Surface))

	parts := []string{styles.Logo.Render(outcome.AppTitle)}
	switch {
	case snap.ReaderError != "":
		parts = append(parts, styles.DangerText.Inherit(bg).Render("● READER ERROR"))
	case snap.ReaderConnected:
		parts = append(parts, styles.SuccessText.Inherit(bg).Render("● ONLINE"))
	default:
		parts = append(parts, styles.WarningText.Inherit(bg).Render("● WAITING"))
	}
	if snap.Reader != "" {
		parts = append(parts, styles.MutedText.Inherit(bg).Render(snap.Reader))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Inherit(bg).Render(m.lastUpdated.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, bg.Render("  ")))
}

// renderStatus renders the card state and running totals.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	var card string
	switch {
	case snap.Capturing:
		card = m.spinner.View() + " " + styles.AccentText.Render("Reading card...")
	case snap.CardInserted:
		card = styles.InfoText.Render("Card present")
	default:
		card = styles.MutedText.Render("Insert a MyKad to begin")
	}

	totals := fmt.Sprintf("%s %s   %s %s",
		styles.MutedText.Render("Succeeded"), styles.SuccessText.Render(fmt.Sprint(snap.Succeeded)),
		styles.MutedText.Render("Failed"), styles.DangerText.Render(fmt.Sprint(snap.Failed)),
	)
	if !snap.LastSweep.IsZero() {
		totals += "   " + styles.MutedText.Render("Last sweep") + " " + styles.Text.Render(snap.LastSweep.Format("2006-01-02 15:04"))
	}
	if snap.ReaderError != "" {
		totals = styles.WarningText.Render(truncate(snap.ReaderError, m.innerWidth()))
	}

	return m.panel().Render(card + "\n" + totals)
}

// renderRecent renders the newest outcomes, one per line.
func (m Model) renderRecent() string {
	styles := m.theme.Styles()
	lines := []string{styles.AccentText.Bold(true).Render("Recent")}

	if len(m.snapshot.Recent) == 0 {
		lines = append(lines, styles.FaintText.Render("No activity yet"))
	}
	for i, o := range m.snapshot.Recent {
		if i == recentRows {
			break
		}
		lines = append(lines, m.renderOutcome(o))
	}
	for len(lines) < recentRows+1 {
		lines = append(lines, "")
	}
	return m.panel().Render(strings.Join(lines, "\n"))
}

func (m Model) renderOutcome(o outcome.Outcome) string {
	styles := m.theme.Styles()
	stamp := styles.FaintText.Render(o.At.Format(time.TimeOnly))
	kind := styles.KindStyle(o.Kind).Render(string(o.Kind))
	room := m.innerWidth() - lipgloss.Width(stamp) - lipgloss.Width(kind) - 2
	return stamp + " " + kind + " " + styles.Text.Render(truncate(o.Message, room))
}

func (m Model) panel() lipgloss.Style {
	width := m.width - 2
	if width < 10 {
		width = 10
	}
	return m.theme.Styles().Panel.Width(width)
}

func (m Model) innerWidth() int {
	w := m.width - 6
	if w < 10 {
		return 10
	}
	return w
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
