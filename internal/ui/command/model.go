package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/nhle/daily-docket/internal/theme"
)

// CommandMsg is emitted when the user executes a command. It holds the
// command name followed by any arguments the user typed.
type CommandMsg string

// Command is one palette entry.
type Command struct {
	Name        string
	Description string
}

// Commands is the palette's catalogue.
var Commands = []Command{
	{"export", "write today's plan to a JSON file"},
	{"mail", "send today's plan to the configured mailbox"},
	{"clear", "delete every task"},
	{"theme", "switch theme: theme <name>"},
	{"new", "create a task in the pool"},
	{"block", "create a task in a slot: block <hour>"},
	{"pool", "move the selected task back to the pool"},
	{"reminders", "list pending reminders"},
	{"settings", "edit reminder, mail and display settings"},
	{"help", "show keyboard shortcuts"},
	{"quit", "exit"},
}

type commandSource []Command

func (s commandSource) String(i int) string { return s[i].Name }
func (s commandSource) Len() int            { return len(s) }

// Model is the command palette view.
type Model struct {
	input    textinput.Model
	commands []Command
	matches  []Command
	cursor   int
	width    int
	height   int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	m := Model{
		input:    ti,
		commands: Commands,
		width:    width,
		height:   height,
	}
	m.filter()
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := m.resolve()
			m.input.Reset()
			m.filter()
			if line == "" {
				return m, nil
			}
			return m, func() tea.Msg { return CommandMsg(line) }
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter()
	return m, cmd
}

// resolve turns the input into a command line. The first word is
// completed to the highlighted match; arguments are kept as typed.
func (m Model) resolve() string {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" && len(m.matches) == 0 {
		return ""
	}
	name, args, _ := strings.Cut(raw, " ")
	if m.cursor < len(m.matches) {
		name = m.matches[m.cursor].Name
	}
	if args = strings.TrimSpace(args); args != "" {
		return name + " " + args
	}
	return name
}

// filter recomputes matches for the first word of the input.
func (m *Model) filter() {
	name, _, _ := strings.Cut(strings.TrimSpace(m.input.Value()), " ")
	if name == "" {
		m.matches = append([]Command(nil), m.commands...)
	} else {
		found := fuzzy.FindFrom(name, commandSource(m.commands))
		m.matches = nil
		for _, f := range found {
			m.matches = append(m.matches, m.commands[f.Index])
		}
	}
	if m.cursor >= len(m.matches) {
		m.cursor = 0
	}
}

// Matches returns the commands matching the current input, best first.
func (m Model) Matches() []Command {
	return append([]Command(nil), m.matches...)
}

// View renders the command palette.
func (m Model) View() string {
	title := theme.TitleStyle.MarginBottom(1).Render("Command Palette")

	var rows []string
	for i, c := range m.matches {
		line := c.Name + "  " + theme.HelpStyle.Render(c.Description)
		if i == m.cursor {
			rows = append(rows, theme.SelectedItemStyle.Render(line))
		} else {
			rows = append(rows, theme.ListItemStyle.Render(line))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, theme.HelpStyle.Render("no matching command"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View(), "", strings.Join(rows, "\n"))

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
