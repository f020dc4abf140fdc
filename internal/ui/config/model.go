package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/daily-docket/internal/credential"
	"github.com/nhle/daily-docket/internal/keys"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/theme"
)

// probeTimeout bounds one connection test.
const probeTimeout = 20 * time.Second

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeMenu       Mode = iota // Section list
	ModeForm                   // Editing one section
	ModeTesting                // Mail connection test running
	ModeTestResult             // Showing the test result
)

// Section is one group of settings with its own form.
type Section int

const (
	SectionReminders Section = iota
	SectionMail
	SectionDisplay
)

var sections = []struct {
	section Section
	title   string
	hint    string
}{
	{SectionReminders, "Reminders", "lead time and push webhook"},
	{SectionMail, "Mail", "IMAP mailbox for the daily plan"},
	{SectionDisplay, "Display", "colour theme"},
}

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg carries the edited configuration. Secrets maps credential keys
// to newly entered values; blank fields are left out so stored secrets
// survive an edit.
type SavedMsg struct {
	Config  model.AppConfig
	Secrets map[string]string
}

// TestResultMsg carries the result of a mail connection test.
type TestResultMsg struct {
	Err error
}

// Prober tests a mail configuration. An empty password means "use the
// stored one".
type Prober func(ctx context.Context, cfg model.MailConfig, password string) error

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	remindersOn  bool
	leadMinutes  string
	webhookURL   string
	webhookToken string

	imapHost string
	imapPort string
	tls      bool
	username string
	password string
	mailbox  string
	from     string
	to       string

	theme string
}

// Model is the Bubble Tea model for the settings screen.
type Model struct {
	mode     Mode
	cfg      model.AppConfig
	selected int
	section  Section

	form *huh.Form
	fb   *formBindings

	probe   Prober
	testErr error
	spinner spinner.Model

	// Status message for transient feedback
	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates a settings view. probe may be nil, which disables the
// connection test.
func New(k *keys.KeyMap, probe Prober, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeMenu,
		fb:      &formBindings{},
		probe:   probe,
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open shows the section menu for cfg.
func (m *Model) Open(cfg model.AppConfig) {
	m.cfg = cfg
	m.mode = ModeMenu
	m.statusMsg = ""
	m.testErr = nil
	m.form = nil
}

// Mode returns the current screen.
func (m Model) Mode() Mode { return m.mode }

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TestResultMsg:
		if m.mode != ModeTesting {
			return m, nil
		}
		m.testErr = msg.Err
		m.mode = ModeTestResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeTesting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeMenu:
			return m.handleMenuKeys(msg)
		case ModeTesting:
			// Only allow escape during the test
			if msg.String() == "esc" {
				m.mode = ModeMenu
				m.statusMsg = "Connection test abandoned"
			}
			return m, nil
		case ModeTestResult:
			switch msg.String() {
			case "enter", "esc":
				m.mode = ModeMenu
			case "r":
				return m.startTest()
			}
			return m, nil
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

// handleMenuKeys processes key events in the section menu.
func (m Model) handleMenuKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case key.Matches(msg, m.keys.Down):
		m.selected = (m.selected + 1) % len(sections)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.selected--
		if m.selected < 0 {
			m.selected = len(sections) - 1
		}
		return m, nil

	case msg.String() == "enter":
		cmd := m.startForm(sections[m.selected].section)
		return m, cmd

	case msg.String() == "t":
		return m.startTest()
	}
	return m, nil
}

func (m Model) startTest() (Model, tea.Cmd) {
	if m.probe == nil {
		m.statusMsg = "Connection test is not available"
		return m, nil
	}
	if m.cfg.Mail.IMAPHost == "" {
		m.statusMsg = "Set an IMAP host first"
		return m, nil
	}
	m.mode = ModeTesting
	m.testErr = nil
	probe := m.probe
	cfg := m.cfg.Mail
	password := m.fb.password
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			defer cancel()
			return TestResultMsg{Err: probe(ctx, cfg, password)}
		},
	)
}

// startForm loads the bindings from the current config and builds the
// form for s.
func (m *Model) startForm(s Section) tea.Cmd {
	m.section = s
	m.mode = ModeForm
	m.statusMsg = ""
	m.loadBindings()

	switch s {
	case SectionReminders:
		m.form = m.buildRemindersForm()
	case SectionMail:
		m.form = m.buildMailForm()
	default:
		m.form = m.buildDisplayForm()
	}
	return m.form.Init()
}

func (m *Model) loadBindings() {
	c := m.cfg
	*m.fb = formBindings{
		remindersOn: c.Reminder.Enabled,
		leadMinutes: strconv.Itoa(c.Reminder.LeadMinutes),
		webhookURL:  c.Reminder.WebhookURL,
		imapHost:    c.Mail.IMAPHost,
		imapPort:    c.Mail.IMAPPort,
		tls:         c.Mail.TLS,
		username:    c.Mail.Username,
		mailbox:     c.Mail.Mailbox,
		from:        c.Mail.From,
		to:          c.Mail.To,
		theme:       c.Display.Theme,
	}
	if m.fb.imapPort == "" {
		m.fb.imapPort = "993"
	}
	if m.fb.mailbox == "" {
		m.fb.mailbox = "Drafts"
	}
	if !theme.Known(m.fb.theme) {
		m.fb.theme = theme.Default
	}
}

// --- Forms ---

func (m *Model) buildRemindersForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reminders").
				Description("Notify before a scheduled task starts").
				Affirmative("On").
				Negative("Off").
				Value(&m.fb.remindersOn),
			huh.NewInput().
				Title("Lead time (minutes)").
				Description("How long before the slot the reminder fires").
				Placeholder("5").
				Value(&m.fb.leadMinutes).
				Validate(validateMinutes),
			huh.NewInput().
				Title("Webhook URL").
				Description("Optional push endpoint (ntfy, gotify, ...)").
				Placeholder("https://ntfy.sh/my-docket").
				Value(&m.fb.webhookURL).
				Validate(validateOptionalURL),
			huh.NewInput().
				Title("Webhook token").
				Description("Bearer token; leave blank to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.webhookToken),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildMailForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.example.com").
				Value(&m.fb.imapHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&m.fb.imapPort).
				Validate(validatePort),
			huh.NewConfirm().
				Title("Use TLS").
				Description("Implicit TLS; off means STARTTLS").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.tls),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&m.fb.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Leave blank to keep the stored password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Mailbox").
				Description("Where the plan is filed").
				Placeholder("Drafts").
				Value(&m.fb.mailbox),
			huh.NewInput().
				Title("From").
				Value(&m.fb.from),
			huh.NewInput().
				Title("To").
				Description("Comma-separated").
				Value(&m.fb.to),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildDisplayForm() *huh.Form {
	opts := make([]huh.Option[string], 0, len(theme.Names()))
	for _, name := range theme.Names() {
		opts = append(opts, huh.NewOption(name, name))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Options(opts...).
				Value(&m.fb.theme),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		m.mode = ModeMenu
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.save()
	case huh.StateAborted:
		m.mode = ModeMenu
		return m, nil
	}
	return m, cmd
}

// save folds the bindings for the current section into the config.
func (m Model) save() (Model, tea.Cmd) {
	secrets := map[string]string{}

	switch m.section {
	case SectionReminders:
		lead, _ := strconv.Atoi(strings.TrimSpace(m.fb.leadMinutes))
		m.cfg.Reminder.Enabled = m.fb.remindersOn
		m.cfg.Reminder.LeadMinutes = lead
		m.cfg.Reminder.WebhookURL = strings.TrimSpace(m.fb.webhookURL)
		if m.fb.webhookToken != "" {
			secrets[credential.WebhookToken] = m.fb.webhookToken
		}
	case SectionMail:
		m.cfg.Mail.IMAPHost = strings.TrimSpace(m.fb.imapHost)
		m.cfg.Mail.IMAPPort = strings.TrimSpace(m.fb.imapPort)
		m.cfg.Mail.TLS = m.fb.tls
		m.cfg.Mail.Username = strings.TrimSpace(m.fb.username)
		m.cfg.Mail.Mailbox = strings.TrimSpace(m.fb.mailbox)
		m.cfg.Mail.From = strings.TrimSpace(m.fb.from)
		m.cfg.Mail.To = strings.TrimSpace(m.fb.to)
		if m.fb.password != "" {
			secrets[credential.IMAPPassword] = m.fb.password
		}
	case SectionDisplay:
		m.cfg.Display.Theme = m.fb.theme
	}

	m.mode = ModeMenu
	m.statusMsg = sections[m.section].title + " saved"
	saved := SavedMsg{Config: m.cfg, Secrets: secrets}
	return m, func() tea.Msg { return saved }
}

// --- View ---

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.frame(theme.TitleStyle.MarginBottom(1).Render(sections[m.section].title) + "\n" + m.form.View())
	case ModeTesting:
		return m.frame(fmt.Sprintf("%s Testing connection to %s...\n\nPress esc to cancel.", m.spinner.View(), m.cfg.Mail.IMAPHost))
	case ModeTestResult:
		return m.viewTestResult()
	default:
		return m.viewMenu()
	}
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.MarginBottom(1).Render("Settings"))
	b.WriteString("\n\n")

	for i, s := range sections {
		line := fmt.Sprintf("%-10s %s", s.title, theme.HelpStyle.Render(m.summary(s.section)))
		if i == m.selected {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.SuccessStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("enter edit | t test mail | esc back"))
	return m.frame(b.String())
}

// summary describes the current value of a section in one line.
func (m Model) summary(s Section) string {
	switch s {
	case SectionReminders:
		if !m.cfg.Reminder.Enabled {
			return "off"
		}
		out := fmt.Sprintf("%d min before", m.cfg.Reminder.LeadMinutes)
		if m.cfg.Reminder.WebhookURL != "" {
			out += " + webhook"
		}
		return out
	case SectionMail:
		if m.cfg.Mail.IMAPHost == "" {
			return "not configured"
		}
		return fmt.Sprintf("%s@%s/%s", m.cfg.Mail.Username, m.cfg.Mail.IMAPHost, m.cfg.Mail.Mailbox)
	default:
		return m.cfg.Display.Theme
	}
}

func (m Model) viewTestResult() string {
	var content string
	if m.testErr != nil {
		content = theme.ErrorStyle.Bold(true).Render("Connection failed") + "\n\n" +
			m.testErr.Error() + "\n\n" +
			theme.HelpStyle.Render("r retry | enter/esc back")
	} else {
		content = theme.SuccessStyle.Bold(true).Render("Connection successful") + "\n\n" +
			fmt.Sprintf("Logged in as %s", m.cfg.Mail.Username) + "\n\n" +
			theme.HelpStyle.Render("enter/esc back")
	}
	return m.frame(content)
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
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

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateMinutes(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 120 {
		return fmt.Errorf("lead time must be 0-120 minutes")
	}
	return nil
}
