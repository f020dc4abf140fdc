package taskform

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/theme"
)

// Mode says what the form is for.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeBlock
)

// CreateMsg is dispatched when a new pool task is submitted.
type CreateMsg struct {
	Input planner.TaskInput
}

// BlockMsg is dispatched when a task is submitted from the time-block
// form. The task is created directly in Hour.
type BlockMsg struct {
	Input planner.TaskInput
	Hour  int
}

// EditMsg is dispatched when an edit is submitted.
type EditMsg struct {
	ID    string
	Patch planner.TaskPatch
}

// CancelMsg is dispatched when the user aborts the form. ID is set in
// edit mode so the editor session can be released.
type CancelMsg struct {
	ID string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	duration    string
	hour        int
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	mode   Mode
	editID string
	width  int
	height int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium, duration: strconv.Itoa(model.DurationDefault), hour: model.SlotStart},
		width:  width,
		height: height,
	}
}

// Mode returns what the form is currently editing.
func (m Model) Mode() Mode { return m.mode }

// EditID returns the task being edited, if any.
func (m Model) EditID() string { return m.editID }

func (m *Model) reset() {
	m.editID = ""
	m.fb.title = ""
	m.fb.description = ""
	m.fb.priority = model.PriorityMedium
	m.fb.duration = strconv.Itoa(model.DurationDefault)
	m.fb.hour = model.SlotStart
}

// StartCreate initializes the form for a new pool task.
func (m *Model) StartCreate() tea.Cmd {
	m.mode = ModeCreate
	m.reset()
	m.form = m.buildForm(false)
	return m.form.Init()
}

// StartBlock initializes the time-block form for hour.
func (m *Model) StartBlock(hour int) tea.Cmd {
	m.mode = ModeBlock
	m.reset()
	if model.ValidSlot(hour) {
		m.fb.hour = hour
	}
	m.form = m.buildForm(true)
	return m.form.Init()
}

// StartEdit initializes the form for editing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.mode = ModeEdit
	m.editID = task.ID
	m.fb.title = task.Title
	m.fb.description = task.Description
	m.fb.priority = task.Priority
	m.fb.duration = strconv.Itoa(task.Duration)
	m.form = m.buildForm(false)
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.handleSubmit()
	case huh.StateAborted:
		id := m.editID
		return m, func() tea.Msg { return CancelMsg{ID: id} }
	}
	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	switch m.mode {
	case ModeEdit:
		titleText = "Edit Task"
	case ModeBlock:
		titleText = "Time Block"
	}

	content := theme.TitleStyle.MarginBottom(1).Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm(withHour bool) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateTitle),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(
				huh.NewOption("High", model.PriorityHigh),
				huh.NewOption("Medium", model.PriorityMedium),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Duration (minutes)").
			Placeholder("15-480, in steps of 15").
			Value(&m.fb.duration).
			Validate(validateDuration),
	}

	if withHour {
		opts := make([]huh.Option[int], 0, model.SlotEnd-model.SlotStart+1)
		for _, h := range model.SlotHours() {
			opts = append(opts, huh.NewOption(model.SlotLabel(h), h))
		}
		fields = append(fields, huh.NewSelect[int]().
			Title("Time slot").
			Options(opts...).
			Value(&m.fb.hour))
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	minutes, _ := strconv.Atoi(strings.TrimSpace(m.fb.duration))
	title := m.fb.title
	description := m.fb.description
	priority := m.fb.priority

	switch m.mode {
	case ModeEdit:
		id := m.editID
		d := minutes
		patch := planner.TaskPatch{
			Title:       &title,
			Description: &description,
			Priority:    &priority,
			Duration:    &d,
		}
		return func() tea.Msg { return EditMsg{ID: id, Patch: patch} }
	case ModeBlock:
		in := planner.TaskInput{Title: title, Description: description, Priority: priority, Duration: minutes}
		hour := m.fb.hour
		return func() tea.Msg { return BlockMsg{Input: in, Hour: hour} }
	default:
		in := planner.TaskInput{Title: title, Description: description, Priority: priority, Duration: minutes}
		return func() tea.Msg { return CreateMsg{Input: in} }
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateTitle(s string) error {
	if _, err := planner.ValidateTitle(s); err != nil {
		return fmt.Errorf("title is required")
	}
	return nil
}

func validateDuration(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("duration must be a number of minutes")
	}
	if n < model.DurationMin || n > model.DurationMax {
		return fmt.Errorf("duration must be between %d and %d minutes", model.DurationMin, model.DurationMax)
	}
	return nil
}
