package sync

import (
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
)

// ChangeMsg is a tea.Msg sent after the task list changed. Tasks is a
// snapshot taken when the message was delivered, so several coalesced
// changes still leave the UI current.
type ChangeMsg struct {
	Change planner.Change
	Tasks  []model.Task
}

// ClockMsg is a tea.Msg sent on every clock tick so that views depending
// on the wall clock (header date, reminder countdowns) can refresh.
type ClockMsg struct {
	Now time.Time
}

// Source is what the feed observes. *planner.TaskStore implements it.
type Source interface {
	List(f planner.Filter) []model.Task
	Subscribe(fn func(planner.Change))
}

// Feed bridges store notifications into the Bubble Tea runtime.
type Feed struct {
	src      Source
	changeCh chan planner.Change
	stopCh   chan struct{}
	mu       gosync.Mutex
	stopped  bool
}

// New creates a feed subscribed to src.
func New(src Source) *Feed {
	f := &Feed{
		src:      src,
		changeCh: make(chan planner.Change, 16),
		stopCh:   make(chan struct{}),
	}
	src.Subscribe(f.publish)
	return f
}

// publish never blocks the store. When the buffer is full the change is
// dropped; the pending ChangeMsg already carries a fresh snapshot.
func (f *Feed) publish(c planner.Change) {
	select {
	case f.changeCh <- c:
	default:
	}
}

// Snapshot returns the current task list.
func (f *Feed) Snapshot() []model.Task {
	return f.src.List(planner.Filter{})
}

// WaitForChange returns a tea.Cmd that blocks until the next change.
// After Stop it returns nil.
func (f *Feed) WaitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.stopCh:
			return nil
		case c := <-f.changeCh:
			return ChangeMsg{Change: c, Tasks: f.Snapshot()}
		}
	}
}

// Tick returns a tea.Cmd that fires a ClockMsg on the next interval
// boundary. Callers re-issue it after each ClockMsg.
func (f *Feed) Tick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = time.Minute
	}
	return tea.Every(interval, func(t time.Time) tea.Msg {
		return ClockMsg{Now: t}
	})
}

// Stop releases pending WaitForChange commands.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}
	close(f.stopCh)
	f.stopped = true
}
