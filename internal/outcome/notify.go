package outcome

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
)

// AppTitle is the title shown on toasts and console banners.
const AppTitle = "MyKad Reader"

// LogNotifier writes every outcome to the logger.
type LogNotifier struct {
	Log logrus.FieldLogger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(o Outcome) {
	entry := n.Log.WithField("kind", string(o.Kind))
	if o.Err != nil {
		entry = entry.WithError(o.Err)
	}
	if o.Kind.Success() {
		entry.Info(o.Message)
		return
	}
	entry.Warn(o.Message)
}

// DesktopNotifier raises a desktop toast for insertion-cycle outcomes.
type DesktopNotifier struct {
	Title       string
	IconSuccess string
	IconFailure string
	Log         logrus.FieldLogger

	send func(title, message, icon string) error
}

// NewDesktopNotifier returns a notifier backed by the platform toast service.
func NewDesktopNotifier(iconSuccess, iconFailure string, log logrus.FieldLogger) *DesktopNotifier {
	return &DesktopNotifier{
		Title:       AppTitle,
		IconSuccess: iconSuccess,
		IconFailure: iconFailure,
		Log:         log,
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

// Notify implements Notifier.
func (n *DesktopNotifier) Notify(o Outcome) {
	if !o.Kind.Cycle() {
		return
	}
	icon := n.IconFailure
	if o.Kind.Success() {
		icon = n.IconSuccess
	}
	if err := n.send(n.Title, o.Message, icon); err != nil && n.Log != nil {
		n.Log.WithError(err).Debug("desktop notification failed")
	}
}

var (
	bannerBase = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	bannerTitle = lipgloss.NewStyle().Bold(true)
	bannerOK    = bannerBase.BorderForeground(lipgloss.Color("#81b29a"))
	bannerFail  = bannerBase.BorderForeground(lipgloss.Color("#c94f6d"))
)

// ConsoleNotifier renders insertion-cycle outcomes as a boxed banner, standing
// in for a toast on machines without a desktop session.
type ConsoleNotifier struct {
	mu  sync.Mutex
	Out io.Writer
}

// Notify implements Notifier.
func (n *ConsoleNotifier) Notify(o Outcome) {
	if !o.Kind.Cycle() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.Out, Banner(o))
}

// Banner renders o as a bordered box.
func Banner(o Outcome) string {
	style := bannerFail
	if o.Kind.Success() {
		style = bannerOK
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		bannerTitle.Render(AppTitle),
		o.Message,
	)
	return style.Render(body)
}
