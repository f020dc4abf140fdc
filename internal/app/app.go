package app

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/keys"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/reminder"
	appsync "github.com/nhle/daily-docket/internal/sync"
	"github.com/nhle/daily-docket/internal/theme"
	"github.com/nhle/daily-docket/internal/ui"
	"github.com/nhle/daily-docket/internal/ui/board"
	"github.com/nhle/daily-docket/internal/ui/command"
	settingsview "github.com/nhle/daily-docket/internal/ui/config"
	helpview "github.com/nhle/daily-docket/internal/ui/help"
	"github.com/nhle/daily-docket/internal/ui/taskform"
)

// statusTTL is how long a toast stays in the status bar.
const statusTTL = 4 * time.Second

// headerDateLayout renders e.g. "Tuesday, March 10, 2026".
const headerDateLayout = "Monday, January 2, 2006"

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewForm
	ViewHelp
	ViewCommand
	ViewSettings
)

// Deps are the services the UI drives. Store and Reconciler are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Store      *planner.TaskStore
	Reconciler *planner.Reconciler
	Editor     *planner.Editor
	Reminders  *reminder.Scheduler
	Notices    *reminder.ChannelNotifier
	Mailer     Mailer

	// NewMailer rebuilds Mailer after the mail settings change.
	NewMailer   func(model.MailConfig) (Mailer, error)
	// Probe tests mail settings from the settings screen.
	Probe       settingsview.Prober
	// StoreSecret writes a credential to the keyring.
	StoreSecret func(key, value string) error

	Config     *model.AppConfig
	ConfigPath string
	ExportDir  string

	Logger *zap.Logger
	Now    func() time.Time
}

// statusClearMsg expires the toast with the given sequence number.
type statusClearMsg struct{ seq int }

// confirmation is a destructive action waiting for y/n.
type confirmation struct {
	prompt string
	run    tea.Cmd
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the services behind the board.
type Model struct {
	deps   Deps
	log    *zap.Logger
	feed   *appsync.Feed
	keys   *keys.KeyMap
	layout ui.Layout

	currentView  ViewState
	previousView ViewState

	board       board.Model
	form        taskform.Model
	helpView    helpview.Model
	commandView command.Model
	settings    settingsview.Model

	now       time.Time
	status    string
	statusErr bool
	statusSeq int
	confirm   *confirmation
	ready     bool
}

// New creates the root model.
func New(deps Deps) (Model, error) {
	if deps.Store == nil || deps.Reconciler == nil {
		return Model{}, errors.New("app: store and reconciler are required")
	}
	if deps.Editor == nil {
		deps.Editor = planner.NewEditor(deps.Store)
	}
	if deps.Config == nil {
		deps.Config = model.DefaultAppConfig()
	}
	if deps.ExportDir == "" {
		deps.ExportDir = "."
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	k := keys.DefaultKeyMap()
	feed := appsync.New(deps.Store)

	m := Model{
		deps:        deps,
		log:         deps.Logger,
		feed:        feed,
		keys:        k,
		layout:      ui.NewLayout(80, 24),
		currentView: ViewBoard,
		board:       board.New(k, 80, 22),
		form:        taskform.New(80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80, 22),
		settings:    settingsview.New(k, deps.Probe, 80, 22),
		now:         deps.Now(),
	}
	if deps.Reminders != nil {
		m.helpView.SetReminderLead(deps.Reminders.Lead())
	}
	m.board.SetNow(m.now)
	m.board.SetTasks(feed.Snapshot())
	return m, nil
}

// Init starts the change feed, the clock and the reminder listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.feed.WaitForChange(),
		m.feed.Tick(time.Minute),
		m.waitForReminder(),
	)
}

func (m Model) waitForReminder() tea.Cmd {
	if m.deps.Notices == nil {
		return nil
	}
	return m.deps.Notices.WaitForReminder()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		m.board.SetSize(w, h)
		m.form.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward to the active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.ChangeMsg:
		m.board.SetTasks(msg.Tasks)
		next := m.feed.WaitForChange()
		if msg.Change.Err != nil {
			m.log.Warn("task list not saved", zap.Error(msg.Change.Err))
			toast := m.setStatus("Failed to save tasks", true)
			return m, tea.Batch(next, toast)
		}
		return m, next

	case appsync.ClockMsg:
		m.now = msg.Now
		m.board.SetNow(msg.Now)
		return m, m.feed.Tick(time.Minute)

	case reminder.ReminderMsg:
		toast := m.setStatus(fmt.Sprintf("%s: %s", msg.Title, msg.Body), false)
		return m, tea.Batch(m.waitForReminder(), toast)

	case resultMsg:
		if msg.err != nil {
			cmd := m.setStatus(msg.text, true)
			return m, cmd
		}
		if msg.text == "" {
			return m, nil
		}
		cmd := m.setStatus(msg.text, false)
		return m, cmd

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case board.MoveMsg:
		return m, m.applyMove(msg.Event)

	case board.ToggleMsg:
		return m, m.toggleComplete(msg.ID)

	case board.DeleteMsg:
		t, ok := m.deps.Store.Get(msg.ID)
		if !ok {
			return m, nil
		}
		cmd := m.ask(fmt.Sprintf("Delete task: %q? (y/n)", t.Title), m.deleteTask(msg.ID))
		return m, cmd

	case board.EditMsg:
		t, err := m.deps.Editor.Begin(msg.ID)
		if err != nil {
			cmd := m.setStatus(describeError(err), true)
			return m, cmd
		}
		m.switchTo(ViewForm)
		cmd := m.form.StartEdit(t)
		return m, cmd

	case board.NewMsg:
		m.switchTo(ViewForm)
		if msg.Hour != nil {
			cmd := m.form.StartBlock(*msg.Hour)
			return m, cmd
		}
		cmd := m.form.StartCreate()
		return m, cmd

	case taskform.CreateMsg:
		m.currentView = ViewBoard
		return m, m.createTask(msg.Input)

	case taskform.BlockMsg:
		m.currentView = ViewBoard
		return m, m.createInSlot(msg.Input, msg.Hour)

	case taskform.EditMsg:
		m.currentView = ViewBoard
		return m, m.saveEdit(msg.ID, msg.Patch)

	case taskform.CancelMsg:
		m.currentView = ViewBoard
		if msg.ID != "" {
			m.deps.Editor.Cancel(msg.ID)
		}
		return m, nil

	case settingsview.DoneMsg:
		m.currentView = ViewBoard
		return m, nil

	case settingsview.SavedMsg:
		cmd := m.applySettings(msg)
		return m, cmd

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if m.confirm != nil {
			c := m.confirm
			m.confirm = nil
			if msg.String() == "y" || msg.String() == "Y" {
				return m, c.run
			}
			cmd := m.setStatus("Cancelled", false)
			return m, cmd
		}

		// Global keys that work regardless of current view
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.currentView == ViewBoard {
				return m, m.quit()
			}

		case "esc":
			if m.currentView == ViewHelp || m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}

		case "?":
			if m.currentView == ViewForm || m.currentView == ViewCommand || m.currentView == ViewSettings {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.switchTo(ViewHelp)
			return m, nil

		case ":":
			if m.currentView == ViewForm || m.currentView == ViewSettings {
				break
			}
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.switchTo(ViewCommand)
			cmd := m.commandView.Focus()
			return m, cmd

		case "T":
			if m.currentView == ViewBoard {
				cmd := m.cycleTheme()
				return m, cmd
			}

		case "E":
			if m.currentView == ViewBoard {
				return m, m.exportDay("")
			}

		case "S":
			if m.currentView == ViewBoard {
				m.openSettings()
				return m, nil
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

func (m *Model) switchTo(v ViewState) {
	if m.currentView != v {
		m.previousView = m.currentView
	}
	m.currentView = v
}

// setStatus shows a toast and schedules its expiry.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

// ask parks run behind a y/n prompt.
func (m *Model) ask(prompt string, run tea.Cmd) tea.Cmd {
	m.confirm = &confirmation{prompt: prompt, run: run}
	return nil
}

func (m Model) quit() tea.Cmd {
	m.feed.Stop()
	return tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Daily Docket", m.headerRight())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerRight() string {
	s := m.board.Stats()
	return fmt.Sprintf("%s  %d/%d done", m.now.Format(headerDateLayout), s.Completed, s.Total)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewForm:
		return m.form.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return m.board.View()
	}
}

// statusLine returns the prompt, toast or key hints for the status bar.
func (m Model) statusLine() string {
	if m.confirm != nil {
		return m.confirm.prompt
	}
	if m.status != "" {
		if m.statusErr {
			return theme.ErrorStyle.Render(m.status)
		}
		return theme.SuccessStyle.Render(m.status)
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | ↑/↓ choose | esc back"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewSettings:
		return "settings are saved to " + m.configLocation()
	default:
		if id, ok := m.board.Grabbed(); ok {
			if t, found := m.deps.Store.Get(id); found {
				return fmt.Sprintf("carrying %q | tab switch pane | space drop | esc cancel", t.Title)
			}
		}
		return "q quit | ? help | space grab | n new | x done | e edit | tab pane | : command"
	}
}

func (m *Model) openSettings() {
	m.settings.Open(*m.deps.Config)
	m.switchTo(ViewSettings)
}

func (m Model) configLocation() string {
	if m.deps.ConfigPath == "" {
		return "memory only"
	}
	return m.deps.ConfigPath
}
