package help

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/daily-docket/internal/keys"
)

var (
	down = tea.KeyMsg{Type: tea.KeyDown}
	up   = tea.KeyMsg{Type: tea.KeyUp}
)

func TestViewListsRulesAndCommands(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 200)
	m.SetReminderLead(5 * time.Minute)

	out := m.View()
	assert.Contains(t, out, "Keyboard Shortcuts")
	assert.Contains(t, out, "Planning")
	assert.Contains(t, out, "grab/drop")
	assert.Contains(t, out, "6:00 AM to 11:00 PM")
	assert.Contains(t, out, "5 minutes before")
	assert.Contains(t, out, "reminders")
	assert.NotContains(t, out, "j/k scroll", "everything fits")
}

func TestRemindersOff(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 200)
	assert.Contains(t, m.View(), "Reminders are off.")
}

func TestScrollStaysInRange(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 12)
	assert.Contains(t, m.View(), "j/k scroll")

	m, _ = m.Update(up)
	assert.Equal(t, 0, m.Offset())

	for i := 0; i < 200; i++ {
		m, _ = m.Update(down)
	}
	last := m.Offset()
	assert.Positive(t, last)
	assert.Equal(t, m.maxOffset(), last)
	assert.Contains(t, m.View(), "quit", "the last command is visible at the bottom")

	m, _ = m.Update(up)
	assert.Equal(t, last-1, m.Offset())

	m.SetSize(100, 400)
	assert.Equal(t, 0, m.Offset())
}
