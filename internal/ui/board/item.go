package board

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/theme"
)

// PoolItem wraps a model.Task so it can be used in a bubbles/list.
type PoolItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i PoolItem) FilterValue() string { return i.Task.Title }

// Title returns the task title.
func (i PoolItem) Title() string { return i.Task.Title }

// Description returns a short summary line.
func (i PoolItem) Description() string {
	return fmt.Sprintf("%s | %s", i.Task.Priority, formatDuration(i.Task.Duration))
}

// PoolDelegate renders pool rows. grabbed is the id of the task being
// carried, if any.
type PoolDelegate struct {
	grabbed string
	focused bool
}

// Height returns the number of lines each item takes.
func (d PoolDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d PoolDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d PoolDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single pool row.
func (d PoolDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(PoolItem)
	if !ok {
		return
	}
	selected := d.focused && index == m.Index()
	fmt.Fprint(w, renderTaskLine(it.Task, m.Width(), selected, it.Task.ID == d.grabbed))
}

// renderTaskLine draws "[x] H title  30m", truncated to width.
func renderTaskLine(t model.Task, width int, selected, grabbed bool) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}

	title := t.Title
	dur := formatDuration(t.Duration)

	// 3 check + 1 + 1 badge + 1 + title + 2 + dur + padding
	avail := width - 3 - 1 - 1 - 1 - 2 - len(dur) - 3
	if avail < 4 {
		avail = 4
	}
	title = truncate(title, avail)

	var titleRendered string
	switch {
	case grabbed:
		titleRendered = theme.GrabbedStyle.Render(title)
	case t.Completed:
		titleRendered = theme.DimmedStyle.Render(title)
	default:
		titleRendered = title
	}

	line := fmt.Sprintf("%s %s %s  %s",
		check,
		theme.PriorityBadge(t.Priority),
		titleRendered,
		lipgloss.NewStyle().Foreground(theme.Current().Muted).Render(dur),
	)

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// formatDuration renders minutes as "45m", "1h" or "1h30m".
func formatDuration(minutes int) string {
	if minutes <= 0 {
		minutes = model.DurationDefault
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
