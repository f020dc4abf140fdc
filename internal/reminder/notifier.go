package reminder

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Notifier shows a reminder to the user. It reports whether the
// notification was actually shown.
type Notifier interface {
	Notify(title, body string) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, body string) bool

// Notify calls f.
func (f NotifierFunc) Notify(title, body string) bool { return f(title, body) }

// NopNotifier drops every reminder.
type NopNotifier struct{}

// Notify reports false.
func (NopNotifier) Notify(string, string) bool { return false }

// LogNotifier writes reminders to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify logs the reminder at info level.
func (n LogNotifier) Notify(title, body string) bool {
	if n.Logger == nil {
		return false
	}
	n.Logger.Info("reminder", zap.String("title", title), zap.String("body", body))
	return true
}

// MultiNotifier fans a reminder out to every notifier. It reports true
// if at least one of them showed it.
type MultiNotifier []Notifier

// Notify delivers to all notifiers, even after one succeeds.
func (m MultiNotifier) Notify(title, body string) bool {
	shown := false
	for _, n := range m {
		if n == nil {
			continue
		}
		if n.Notify(title, body) {
			shown = true
		}
	}
	return shown
}

// ReminderMsg is a tea.Msg carrying a fired reminder.
type ReminderMsg struct {
	Title string
	Body  string
	At    time.Time
}

// ChannelNotifier forwards reminders to the TUI. Reminders that arrive
// while the buffer is full are dropped and reported as not shown.
type ChannelNotifier struct {
	mu     sync.Mutex
	ch     chan ReminderMsg
	now    func() time.Time
	closed bool
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer size.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelNotifier{ch: make(chan ReminderMsg, buffer), now: time.Now}
}

// Notify enqueues the reminder without blocking.
func (n *ChannelNotifier) Notify(title, body string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	select {
	case n.ch <- ReminderMsg{Title: title, Body: body, At: n.now()}:
		return true
	default:
		return false
	}
}

// WaitForReminder returns a tea.Cmd that blocks until the next reminder.
// Call it again after handling each ReminderMsg to keep listening.
func (n *ChannelNotifier) WaitForReminder() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-n.ch
		if !ok {
			return nil
		}
		return msg
	}
}

// Close stops delivery. Pending WaitForReminder commands return nil.
func (n *ChannelNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.ch)
}
