package help

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daily-docket/internal/keys"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/theme"
	"github.com/nhle/daily-docket/internal/ui/command"
)

// Model is the help screen: bindings grouped by what they act on, the
// scheduling rules and the palette commands. It scrolls when the
// terminal is shorter than the page.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	lead   time.Duration
	offset int
	width  int
	height int
}

type section struct {
	title    string
	bindings []key.Binding
}

// New creates the help screen.
func New(k *keys.KeyMap, width, height int) Model {
	m := Model{keys: k, help: help.New()}
	m.SetSize(width, height)
	return m
}

// SetReminderLead sets the lead time quoted in the rules. Zero means
// reminders are off.
func (m *Model) SetReminderLead(d time.Duration) {
	m.lead = d
}

// Init returns nil.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update scrolls the page.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Down):
			m.offset = min(m.offset+1, m.maxOffset())
		case key.Matches(msg, m.keys.Up):
			m.offset = max(m.offset-1, 0)
		}
	}
	return m, nil
}

// Offset is the first visible line.
func (m Model) Offset() int { return m.offset }

func (m Model) sections() []section {
	k := m.keys
	return []section{
		{"Moving around", []key.Binding{k.Up, k.Down, k.SwitchPane, k.Back}},
		{"Planning", []key.Binding{k.Grab, k.Unplace, k.New, k.Edit, k.Toggle, k.Delete}},
		{"Pool filter", []key.Binding{k.FilterHigh, k.FilterMedium, k.FilterLow, k.FilterAll}},
		{"Day", []key.Binding{k.Export, k.Theme, k.Settings, k.Command, k.Help, k.Quit}},
	}
}

func (m Model) rules() []string {
	rules := []string{
		fmt.Sprintf("Slots run hourly from %s to %s.",
			model.SlotLabel(model.SlotStart), model.SlotLabel(model.SlotEnd)),
		"A slot holds one open task; dropping onto an open task is refused.",
		"A completed task in a slot is deleted when another task takes the slot.",
		"Press n on a schedule row to create a task straight into that hour.",
	}
	if m.lead > 0 {
		rules = append(rules, fmt.Sprintf("A reminder fires %d minutes before a scheduled task starts.", int(m.lead.Minutes())))
	} else {
		rules = append(rules, "Reminders are off.")
	}
	return rules
}

// lines renders the whole page before scrolling is applied.
func (m Model) lines() []string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n")

	for _, s := range m.sections() {
		b.WriteString("\n" + theme.SlotLabelStyle.Render(s.title) + "\n")
		b.WriteString(m.help.FullHelpView([][]key.Binding{s.bindings}))
		b.WriteString("\n")
	}

	b.WriteString("\n" + theme.SlotLabelStyle.Render("Schedule rules") + "\n")
	for _, r := range m.rules() {
		b.WriteString(theme.HelpStyle.Render("• "+r) + "\n")
	}

	b.WriteString("\n" + theme.SlotLabelStyle.Render("Commands (:)") + "\n")
	for _, c := range command.Commands {
		b.WriteString(fmt.Sprintf("%-10s %s\n", c.Name, theme.HelpStyle.Render(c.Description)))
	}

	return strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
}

// visible is the number of page lines that fit inside the panel, leaving
// a row for the scroll hint.
func (m Model) visible() int {
	return max(m.height-5, 1)
}

func (m Model) maxOffset() int {
	return max(len(m.lines())-m.visible(), 0)
}

// View renders the visible part of the page.
func (m Model) View() string {
	lines := m.lines()
	offset := min(m.offset, m.maxOffset())
	end := min(offset+m.visible(), len(lines))
	content := strings.Join(lines[offset:end], "\n")

	if len(lines) > m.visible() {
		hint := fmt.Sprintf("%d-%d of %d · j/k scroll · esc close", offset+1, end, len(lines))
		content = lipgloss.JoinVertical(lipgloss.Left, content, theme.DimmedStyle.Render(hint))
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the dimensions and keeps the offset in range.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
	m.offset = min(m.offset, m.maxOffset())
}
