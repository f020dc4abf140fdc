package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daily-docket/internal/keys"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/theme"
	"github.com/nhle/daily-docket/internal/ui"
)

// Pane identifies which board column receives navigation keys.
type Pane int

const (
	PanePool Pane = iota
	PaneGrid
)

// MoveMsg asks the root model to apply a drop.
type MoveMsg struct {
	Event planner.Event
}

// ToggleMsg asks for a task's completion to be flipped.
type ToggleMsg struct{ ID string }

// EditMsg asks for the editor to open on a task.
type EditMsg struct{ ID string }

// DeleteMsg asks for a task to be removed.
type DeleteMsg struct{ ID string }

// NewMsg asks for the create form. Hour is set when the user started
// from a grid row.
type NewMsg struct{ Hour *int }

// grab is the task currently carried between panes.
type grab struct {
	id   string
	from planner.Location
}

// Model is the planning board: the pool on the left, the hourly grid in
// the middle and the day's stats on the right.
type Model struct {
	keys     *keys.KeyMap
	pool     list.Model
	progress progress.Model

	tasks    []model.Task
	schedule planner.Schedule
	stats    planner.Stats
	filter   *model.Priority
	quote    Quote

	pane    Pane
	row     int
	grabbed *grab

	width  int
	height int
}

// New creates a board sized to width x height.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New(nil, PoolDelegate{focused: true}, width, height)
	l.Title = "Task Pool"
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := Model{
		keys:     k,
		pool:     l,
		progress: progress.New(progress.WithDefaultGradient()),
		schedule: planner.NewSchedule(nil),
	}
	m.SetSize(width, height)
	return m
}

// SetTasks replaces the board's snapshot of the task list.
func (m *Model) SetTasks(tasks []model.Task) {
	m.tasks = tasks
	m.schedule = planner.NewSchedule(tasks)
	m.stats = planner.ComputeStats(tasks)

	if m.grabbed != nil && !m.has(m.grabbed.id) {
		m.grabbed = nil
	}
	m.refreshPool()
}

// SetNow picks the quote for the given time.
func (m *Model) SetNow(t time.Time) {
	m.quote = QuoteAt(t)
}

// SetFilter limits the pool to one priority; nil shows every task.
func (m *Model) SetFilter(p *model.Priority) {
	m.filter = p
	m.refreshPool()
}

// Filter returns the active priority filter.
func (m Model) Filter() *model.Priority { return m.filter }

// Pane returns the focused column.
func (m Model) Pane() Pane { return m.pane }

// Row returns the grid cursor as an index into the grid.
func (m Model) Row() int { return m.row }

// Stats returns the stats computed from the last snapshot.
func (m Model) Stats() planner.Stats { return m.stats }

// Grabbed returns the id of the carried task.
func (m Model) Grabbed() (string, bool) {
	if m.grabbed == nil {
		return "", false
	}
	return m.grabbed.id, true
}

// SelectedHour returns the hour under the grid cursor.
func (m Model) SelectedHour() int {
	return model.SlotStart + m.row
}

// Selected returns the task under the cursor of the focused pane. On the
// grid that is the slot's active task, or failing that its earliest
// completed occupant.
func (m Model) Selected() (model.Task, bool) {
	if m.pane == PanePool {
		it, ok := m.pool.SelectedItem().(PoolItem)
		if !ok {
			return model.Task{}, false
		}
		return it.Task, true
	}
	occ := m.schedule.Grid()[m.row].Tasks
	if len(occ) == 0 {
		return model.Task{}, false
	}
	return occ[0], true
}

// Init returns nil; tasks are pushed in with SetTasks.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles board keys. Gestures that change tasks come back as
// messages for the root model to carry out.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SwitchPane):
		if m.pane == PanePool {
			m.pane = PaneGrid
		} else {
			m.pane = PanePool
		}
		m.refreshDelegate()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, m.keys.Grab):
		return m.grabOrDrop()

	case key.Matches(msg, m.keys.Back):
		if m.grabbed != nil {
			m.grabbed = nil
			m.refreshDelegate()
		}
		return m, nil

	case key.Matches(msg, m.keys.Unplace):
		t, ok := m.Selected()
		if !ok || !t.Scheduled {
			return m, nil
		}
		ev := planner.Event{TaskID: t.ID, From: planner.LocationOf(t), To: planner.Pool}
		return m, func() tea.Msg { return MoveMsg{Event: ev} }

	case key.Matches(msg, m.keys.Toggle):
		return m, m.withSelected(func(id string) tea.Msg { return ToggleMsg{ID: id} })

	case key.Matches(msg, m.keys.Edit):
		return m, m.withSelected(func(id string) tea.Msg { return EditMsg{ID: id} })

	case key.Matches(msg, m.keys.Delete):
		return m, m.withSelected(func(id string) tea.Msg { return DeleteMsg{ID: id} })

	case key.Matches(msg, m.keys.New):
		var hour *int
		if m.pane == PaneGrid {
			h := m.SelectedHour()
			hour = &h
		}
		return m, func() tea.Msg { return NewMsg{Hour: hour} }

	case key.Matches(msg, m.keys.FilterHigh):
		p := model.PriorityHigh
		m.SetFilter(&p)
	case key.Matches(msg, m.keys.FilterMedium):
		p := model.PriorityMedium
		m.SetFilter(&p)
	case key.Matches(msg, m.keys.FilterLow):
		p := model.PriorityLow
		m.SetFilter(&p)
	case key.Matches(msg, m.keys.FilterAll):
		m.SetFilter(nil)
	}
	return m, nil
}

// grabOrDrop picks up the selected task, or drops the carried one on the
// cursor's location.
func (m Model) grabOrDrop() (Model, tea.Cmd) {
	if m.grabbed == nil {
		t, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.grabbed = &grab{id: t.ID, from: planner.LocationOf(t)}
		m.refreshDelegate()
		return m, nil
	}

	to := planner.Pool
	if m.pane == PaneGrid {
		to = planner.Slot(m.SelectedHour())
	}
	ev := planner.Event{TaskID: m.grabbed.id, From: m.grabbed.from, To: to}
	m.grabbed = nil
	m.refreshDelegate()
	return m, func() tea.Msg { return MoveMsg{Event: ev} }
}

func (m Model) withSelected(build func(id string) tea.Msg) tea.Cmd {
	t, ok := m.Selected()
	if !ok {
		return nil
	}
	id := t.ID
	return func() tea.Msg { return build(id) }
}

func (m *Model) moveCursor(delta int) {
	if m.pane == PanePool {
		if delta > 0 {
			m.pool.CursorDown()
		} else {
			m.pool.CursorUp()
		}
		return
	}
	last := model.SlotEnd - model.SlotStart
	m.row += delta
	if m.row < 0 {
		m.row = 0
	}
	if m.row > last {
		m.row = last
	}
}

func (m Model) has(id string) bool {
	for _, t := range m.tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// refreshPool rebuilds the pool items from the snapshot, keeping the
// cursor where it was when possible.
func (m *Model) refreshPool() {
	unscheduled := false
	f := planner.Filter{Priority: m.filter, Scheduled: &unscheduled}

	items := make([]list.Item, 0, len(m.tasks))
	for _, t := range m.tasks {
		if f.Match(t) {
			items = append(items, PoolItem{Task: t})
		}
	}
	idx := m.pool.Index()
	m.pool.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.pool.Select(idx)
	}
	m.refreshDelegate()
}

func (m *Model) refreshDelegate() {
	d := PoolDelegate{focused: m.pane == PanePool}
	if m.grabbed != nil {
		d.grabbed = m.grabbed.id
	}
	m.pool.SetDelegate(d)
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	poolW, _, statsW := ui.Layout{Width: width, Height: height}.Columns()
	m.pool.SetSize(poolW-4, height-3)
	if statsW > 0 {
		m.progress.Width = statsW - 6
	}
}

// View renders the board.
func (m Model) View() string {
	poolW, gridW, statsW := ui.Layout{Width: m.width, Height: m.height}.Columns()

	cols := []string{
		m.panel(m.pane == PanePool, poolW, m.poolView()),
		m.panel(m.pane == PaneGrid, gridW, m.gridView(gridW-4)),
	}
	if statsW > 0 {
		cols = append(cols, m.panel(false, statsW, m.statsView()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) panel(focused bool, width int, content string) string {
	style := theme.PanelStyle
	if focused {
		style = theme.FocusedPanelStyle
	}
	return style.Width(width - 2).Height(m.height - 2).Render(content)
}

func (m Model) poolView() string {
	title := "Task Pool"
	if m.filter != nil {
		title = fmt.Sprintf("Task Pool (%s)", *m.filter)
	}
	header := theme.TitleStyle.Render(title)

	if len(m.pool.Items()) == 0 {
		hint := "No unscheduled tasks.\nPress n to add one."
		if m.filter != nil {
			hint = "No matching tasks.\nPress 0 to show every priority."
		}
		return lipgloss.JoinVertical(lipgloss.Left, header, theme.HelpStyle.Render(hint))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.pool.View())
}

// gridView renders the visible window of hour rows, scrolled so that
// the cursor stays on screen.
func (m Model) gridView(width int) string {
	rows := m.schedule.Grid()

	visible := m.height - 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.row >= visible {
		start = m.row - visible + 1
	}
	end := start + visible
	if end > len(rows) {
		end = len(rows)
	}

	lines := []string{theme.TitleStyle.Render("Schedule")}
	for i := start; i < end; i++ {
		lines = append(lines, m.gridRow(rows[i], width, i == m.row && m.pane == PaneGrid))
	}
	return strings.Join(lines, "\n")
}

func (m Model) gridRow(row planner.SlotView, width int, selected bool) string {
	label := theme.SlotLabelStyle.Render(row.Label)
	avail := width - lipgloss.Width(label) - 2

	var body string
	if len(row.Tasks) == 0 {
		body = theme.HelpStyle.Render("·")
	} else {
		t := row.Tasks[0]
		grabbed := m.grabbed != nil && m.grabbed.id == t.ID
		body = strings.TrimSpace(renderTaskLine(t, avail, false, grabbed))
		if extra := len(row.Tasks) - 1; extra > 0 {
			body += theme.HelpStyle.Render(fmt.Sprintf(" +%d", extra))
		}
	}

	line := label + "  " + body
	if selected {
		marker := "▸ "
		if m.grabbed != nil {
			marker = "⇣ "
		}
		return theme.TitleStyle.Render(marker) + line
	}
	return "  " + line
}

func (m Model) statsView() string {
	s := m.stats
	lines := []string{
		theme.TitleStyle.Render("Today"),
		fmt.Sprintf("Total      %d", s.Total),
		fmt.Sprintf("Completed  %d", s.Completed),
		fmt.Sprintf("Remaining  %d", s.Remaining),
		fmt.Sprintf("Focus      %dh", s.FocusHours()),
		"",
		m.progress.ViewAs(s.Ratio()),
		"",
		theme.TitleStyle.Render("By priority"),
	}
	lines = append(lines, histogram(s.ByPriority, m.progress.Width)...)
	lines = append(lines, "", theme.HelpStyle.Render(s.Message()))
	if m.quote.Text != "" {
		wrap := theme.DimmedStyle.Width(max(m.progress.Width, 20))
		lines = append(lines, "", wrap.Render(fmt.Sprintf("%q\n- %s", m.quote.Text, m.quote.Author)))
	}
	return strings.Join(lines, "\n")
}

// histogram draws one bar per priority scaled to the largest count.
func histogram(c model.PriorityCounts, width int) []string {
	peak := 0
	for _, p := range model.Priorities {
		if n := c.Get(p); n > peak {
			peak = n
		}
	}

	barMax := width - 12
	if barMax < 1 {
		barMax = 1
	}

	lines := make([]string, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		n := c.Get(p)
		bar := 0
		if peak > 0 {
			bar = n * barMax / peak
		}
		if n > 0 && bar == 0 {
			bar = 1
		}
		name := strings.ToUpper(string(p[:1])) + string(p[1:])
		lines = append(lines, fmt.Sprintf("%-7s %s %d",
			name,
			theme.PriorityStyle(p).Render(strings.Repeat("█", bar)),
			n,
		))
	}
	return lines
}
