package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cardbridge/internal/prefs"
	"github.com/five82/cardbridge/internal/state"
)

const (
	defaultPollTick = time.Second
	recentRows      = 6
)

// Snapshotter supplies the bridge state. *state.Store implements it.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

// Options configures the dashboard.
type Options struct {
	Store     Snapshotter
	LogPath   string
	PrefsPath string
	PollTick  time.Duration
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	store     Snapshotter
	logPath   string
	prefsPath string
	prefs     prefs.Prefs
	pollTick  time.Duration

	theme   Theme
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width    int
	height   int
	ready    bool
	showHelp bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	logView  viewport.Model
	logLines []string
	logErr   error
	follow   bool
}

// New creates the dashboard model, loading the saved theme.
func New(opts Options) Model {
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	p := prefs.Load(prefsPath)

	m := Model{
		store:     opts.Store,
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		prefs:     p,
		pollTick:  pollTick,
		theme:     GetTheme(p.Theme),
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		follow:    true,
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick), m.spinner.Tick}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.logPath != "" {
		cmds = append(cmds, readLogCmd(m.logPath, m.prefs.LogLines))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.logView = viewport.New(0, 0)
			m.ready = true
		}
		m.resizeLogView()
		m.updateLogView()
		return m, nil

	case tickMsg:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		if m.logPath != "" {
			cmds = append(cmds, readLogCmd(m.logPath, m.prefs.LogLines))
		}
		cmds = append(cmds, tickCmd(m.pollTick))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case logLinesMsg:
		m.logErr = msg.err
		if msg.err == nil {
			m.logLines = msg.lines
			m.updateLogView()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.updateLogView()
		m.prefs.Theme = m.theme.Name
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, m.prefs)
		}
		return m, nil

	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
		if m.follow && m.ready {
			m.logView.GotoBottom()
		}
		return m, nil
	}

	if !m.ready {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		m.follow = false
		m.logView.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logView.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.follow = false
		m.logView.HalfPageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.logView.HalfPageDown()
	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.logView.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.logView.GotoBottom()
	}
	return m, nil
}

func (m *Model) applyTheme() {
	styles := m.theme.Styles()
	m.spinner.Style = styles.AccentText
	m.help.Styles.ShortKey = styles.WarningText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
	m.help.Styles.FullKey = styles.WarningText
	m.help.Styles.FullDesc = styles.MutedText
	m.help.Styles.FullSeparator = styles.FaintText
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatus(),
		m.renderRecent(),
		m.renderLogs(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderFooter() string {
	return m.theme.Styles().Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store Snapshotter) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the dashboard and blocks until the operator quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
