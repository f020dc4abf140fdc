package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/credential"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/theme"
	settingsview "github.com/nhle/daily-docket/internal/ui/config"
)

// mailTimeout bounds one mailbox delivery.
const mailTimeout = 30 * time.Second

// Mailer delivers an exported day. *mailout.Appender implements it.
type Mailer interface {
	Deliver(ctx context.Context, cfg model.MailConfig, doc model.ExportDocument) error
}

// resultMsg reports the outcome of a task operation. An empty text with
// a nil err shows nothing.
type resultMsg struct {
	text string
	err  error
}

func failed(err error) resultMsg {
	return resultMsg{text: describeError(err), err: err}
}

// describeError turns planner errors into toast text.
func describeError(err error) string {
	var occupied *planner.SlotOccupiedError
	var invalid *planner.ValidationError
	switch {
	case errors.As(err, &occupied):
		return "Time slot is already occupied"
	case errors.As(err, &invalid):
		if invalid.Field == "title" {
			return "Task title cannot be empty"
		}
		return invalid.Error()
	case errors.Is(err, planner.ErrAlreadyEditing):
		return "That task is already being edited"
	case errors.Is(err, planner.ErrTaskNotFound):
		return "Task no longer exists"
	case planner.IsPersist(err):
		return "Failed to save tasks"
	default:
		return err.Error()
	}
}

// describeOutcome words a successful move.
func describeOutcome(out planner.Outcome) string {
	if out.Noop {
		return ""
	}
	hour, _ := out.Task.Slot()
	var text string
	switch out.Kind {
	case planner.EventScheduled:
		text = "Task scheduled for " + model.SlotLabel(hour)
	case planner.EventMoved:
		text = "Task rescheduled to " + model.SlotLabel(hour)
	case planner.EventUnscheduled:
		text = "Task moved to unscheduled"
	}
	if n := len(out.Displaced); n > 0 {
		text += fmt.Sprintf(" (replaced %d completed)", n)
	}
	return text
}

// persisted keeps a success message unless the write to disk failed, in
// which case the in-memory change stands and the failure is reported.
func persisted(text string, err error) resultMsg {
	if err != nil {
		return failed(err)
	}
	return resultMsg{text: text}
}

func (m Model) applyMove(ev planner.Event) tea.Cmd {
	rc := m.deps.Reconciler
	log := m.log
	return func() tea.Msg {
		out, err := rc.Apply(context.Background(), ev)
		if err != nil && !planner.IsPersist(err) {
			log.Debug("move refused", zap.String("task_id", ev.TaskID), zap.Error(err))
			return failed(err)
		}
		return persisted(describeOutcome(out), err)
	}
}

func (m Model) toggleComplete(id string) tea.Cmd {
	rc := m.deps.Reconciler
	return func() tea.Msg {
		t, ok, err := rc.ToggleComplete(context.Background(), id)
		if !ok {
			return failed(planner.ErrTaskNotFound)
		}
		if err != nil && !planner.IsPersist(err) {
			return failed(err)
		}
		text := "Task reopened"
		if t.Completed {
			text = "Task completed"
		}
		return persisted(text, err)
	}
}

func (m Model) deleteTask(id string) tea.Cmd {
	rc := m.deps.Reconciler
	return func() tea.Msg {
		_, ok, err := rc.Delete(context.Background(), id)
		if !ok {
			return failed(planner.ErrTaskNotFound)
		}
		return persisted("Task deleted", err)
	}
}

func (m Model) createTask(in planner.TaskInput) tea.Cmd {
	s := m.deps.Store
	return func() tea.Msg {
		_, err := s.Create(context.Background(), in)
		if planner.IsValidation(err) {
			return failed(err)
		}
		return persisted("Task added successfully!", err)
	}
}

func (m Model) createInSlot(in planner.TaskInput, hour int) tea.Cmd {
	rc := m.deps.Reconciler
	return func() tea.Msg {
		out, err := rc.CreateInSlot(context.Background(), in, hour)
		if err != nil && !planner.IsPersist(err) {
			return failed(err)
		}
		text := "Task created successfully!"
		if n := len(out.Displaced); n > 0 {
			text += fmt.Sprintf(" (replaced %d completed)", n)
		}
		return persisted(text, err)
	}
}

func (m Model) saveEdit(id string, patch planner.TaskPatch) tea.Cmd {
	ed := m.deps.Editor
	return func() tea.Msg {
		_, err := ed.Save(context.Background(), id, patch)
		if planner.IsValidation(err) {
			// The form is gone; drop the session rather than leave it open.
			ed.Cancel(id)
			return failed(err)
		}
		if err != nil && !planner.IsPersist(err) {
			return failed(err)
		}
		return persisted("Task updated successfully", err)
	}
}

func (m Model) clearAll() tea.Cmd {
	rc := m.deps.Reconciler
	return func() tea.Msg {
		return persisted("All tasks cleared", rc.Clear(context.Background()))
	}
}

// exportDay writes today's document to dir (ExportDir when empty).
func (m Model) exportDay(dir string) tea.Cmd {
	if dir == "" {
		dir = m.deps.ExportDir
	}
	doc := planner.Export(m.deps.Store.List(planner.Filter{}), m.deps.Now())
	log := m.log
	return func() tea.Msg {
		data, err := planner.EncodeExport(doc)
		if err != nil {
			return failed(err)
		}
		path := filepath.Join(dir, planner.ExportFileName(doc))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Error("export failed", zap.String("path", path), zap.Error(err))
			return resultMsg{text: "Export failed: " + err.Error(), err: err}
		}
		log.Info("day exported", zap.String("path", path), zap.Int("tasks", len(doc.Tasks)))
		return resultMsg{text: "Daily plan exported! " + path}
	}
}

func (m Model) mailDay() tea.Cmd {
	if m.deps.Mailer == nil {
		return m.failNow(errors.New("mail is not configured; set mail.imap_host and run `docket config set-credential imap-password`"))
	}
	mailer := m.deps.Mailer
	cfg := m.deps.Config.Mail
	doc := planner.Export(m.deps.Store.List(planner.Filter{}), m.deps.Now())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := mailer.Deliver(ctx, cfg, doc); err != nil {
			return resultMsg{text: "Mail failed: " + err.Error(), err: err}
		}
		return resultMsg{text: "Daily plan sent to " + cfg.Mailbox}
	}
}

func (m Model) failNow(err error) tea.Cmd {
	return func() tea.Msg { return resultMsg{text: err.Error(), err: err} }
}

// cycleTheme switches to the next theme and remembers the choice.
func (m *Model) cycleTheme() tea.Cmd {
	return m.useTheme(theme.Next(theme.Current().Name))
}

func (m *Model) useTheme(name string) tea.Cmd {
	if err := theme.Use(name); err != nil {
		return m.setStatus(err.Error(), true)
	}
	m.deps.Config.Display.Theme = name
	if m.deps.ConfigPath != "" {
		if err := model.SaveConfig(m.deps.ConfigPath, m.deps.Config); err != nil {
			m.log.Warn("theme not saved", zap.Error(err))
		}
	}
	return m.setStatus("Theme: "+name, false)
}

// applySettings adopts the configuration edited on the settings screen.
// Reminder changes take effect on the next start.
func (m *Model) applySettings(msg settingsview.SavedMsg) tea.Cmd {
	prev := *m.deps.Config
	*m.deps.Config = msg.Config

	for k, v := range msg.Secrets {
		if m.deps.StoreSecret == nil {
			return m.setStatus("No keyring available; "+k+" not stored", true)
		}
		if err := m.deps.StoreSecret(k, v); err != nil {
			m.log.Warn("credential not stored", zap.String("key", k), zap.Error(err))
			return m.setStatus("Could not store "+k+": "+err.Error(), true)
		}
	}

	if msg.Config.Display.Theme != prev.Display.Theme {
		if err := theme.Use(msg.Config.Display.Theme); err != nil {
			return m.setStatus(err.Error(), true)
		}
	}

	if msg.Config.Mail != prev.Mail || msg.Secrets[credential.IMAPPassword] != "" {
		m.rebuildMailer()
	}

	if m.deps.ConfigPath != "" {
		if err := model.SaveConfig(m.deps.ConfigPath, m.deps.Config); err != nil {
			m.log.Error("settings not saved", zap.Error(err))
			return m.setStatus("Settings not saved: "+err.Error(), true)
		}
	}

	text := "Settings saved"
	if msg.Config.Reminder != prev.Reminder {
		text += "; reminder changes apply on next start"
	}
	return m.setStatus(text, false)
}

func (m *Model) rebuildMailer() {
	if m.deps.NewMailer == nil {
		return
	}
	if m.deps.Config.Mail.IMAPHost == "" {
		m.deps.Mailer = nil
		return
	}
	mailer, err := m.deps.NewMailer(m.deps.Config.Mail)
	if err != nil {
		m.log.Warn("mail disabled", zap.Error(err))
		m.deps.Mailer = nil
		return
	}
	m.deps.Mailer = mailer
}

// pendingSummary describes the reminder queue.
func (m Model) pendingSummary() string {
	if m.deps.Reminders == nil {
		return "Reminders are disabled"
	}
	pending := m.deps.Reminders.Pending()
	if len(pending) == 0 {
		return "No reminders pending"
	}
	next := pending[0]
	return fmt.Sprintf("%d pending; next at %s for %q", len(pending), next.FireAt.Format("15:04"), next.TaskTitle)
}

// executeCommand handles a command line from the command palette.
func (m *Model) executeCommand(line string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "q":
		return m.quit()
	case "help":
		m.currentView = ViewHelp
		return nil
	case "export":
		return m.exportDay(arg)
	case "mail":
		return m.mailDay()
	case "clear":
		return m.ask("Are you sure you want to clear all tasks for today? (y/n)", m.clearAll())
	case "theme":
		if arg == "" {
			return m.cycleTheme()
		}
		return m.useTheme(arg)
	case "new":
		m.switchTo(ViewForm)
		return m.form.StartCreate()
	case "block":
		hour := m.board.SelectedHour()
		if arg != "" {
			h, err := strconv.Atoi(arg)
			if err != nil || !model.ValidSlot(h) {
				return m.setStatus(fmt.Sprintf("block: hour must be %d..%d", model.SlotStart, model.SlotEnd), true)
			}
			hour = h
		}
		m.switchTo(ViewForm)
		return m.form.StartBlock(hour)
	case "pool":
		t, ok := m.board.Selected()
		if !ok || !t.Scheduled {
			return m.setStatus("Select a scheduled task first", true)
		}
		return m.applyMove(planner.Event{TaskID: t.ID, From: planner.LocationOf(t), To: planner.Pool})
	case "reminders":
		return m.setStatus(m.pendingSummary(), false)
	case "settings":
		m.openSettings()
		return nil
	default:
		return m.setStatus(fmt.Sprintf("Unknown command %q", name), true)
	}
}
