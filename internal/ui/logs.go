package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/cardbridge/internal/logtail"
)

type logLinesMsg struct {
	lines []string
	err   error
}

func readLogCmd(path string, maxLines int) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, maxLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

// resizeLogView gives the log panel whatever height the fixed sections leave.
func (m *Model) resizeLogView() {
	recentHeight := recentRows + 1 + 2
	footerHeight := 1
	chrome := 3 // title plus border
	height := m.height - headerHeight - statusHeight - recentHeight - footerHeight - chrome
	if height < 3 {
		height = 3
	}
	m.logView.Width = m.innerWidth()
	m.logView.Height = height
}

func (m *Model) updateLogView() {
	if !m.ready {
		return
	}
	rendered := make([]string, 0, len(m.logLines))
	for _, line := range m.logLines {
		rendered = append(rendered, m.renderLogLine(line))
	}
	m.logView.SetContent(strings.Join(rendered, "\n"))
	if m.follow {
		m.logView.GotoBottom()
	}
}

func (m Model) renderLogLine(line string) string {
	styles := m.theme.Styles()
	entry := logtail.Parse(line)
	if !entry.HasLvl {
		return styles.MutedText.Render(truncate(line, m.innerWidth()))
	}

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	parts := []string{
		styles.FaintText.Render(entry.Time),
		styles.LevelStyle(entry.Level).Render(level),
		styles.Text.Render(entry.Message),
	}
	if entry.Fields != "" {
		parts = append(parts, styles.FaintText.Render(entry.Fields))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	title := styles.AccentText.Bold(true).Render("Log")
	switch {
	case m.logErr != nil:
		title += " " + styles.DangerText.Render(m.logErr.Error())
	case !m.follow:
		title += " " + styles.WarningText.Render("(paused)")
	}
	return m.panel().Render(title + "\n" + m.logView.View())
}
