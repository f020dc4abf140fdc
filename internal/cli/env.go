package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/credential"
	"github.com/nhle/daily-docket/internal/logger"
	"github.com/nhle/daily-docket/internal/mailout"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/reminder"
	"github.com/nhle/daily-docket/internal/store"
)

// env holds the services one command runs against. Close releases them
// in reverse order of construction.
type env struct {
	cfg     *model.AppConfig
	cfgPath string
	log     *zap.Logger

	store   *planner.TaskStore
	rc      *planner.Reconciler
	sched   *reminder.Scheduler
	notices *reminder.ChannelNotifier

	creds   credential.Source
	now     func() time.Time
	closers []func() error
}

// Keyring access; tests swap these for in-memory maps.
var credentials credential.Source = credential.System

var (
	storeCredential  = credential.Set
	removeCredential = credential.Delete
)

type envOptions struct {
	// interactive runs the board: logs go to the log file and reminders
	// are armed.
	interactive bool
}

func configPath(g *globalFlags) string {
	if g.configPath != "" {
		return g.configPath
	}
	return model.DefaultConfigPath()
}

// openEnv loads .env and the config file, then builds the logger, blob,
// task store and reconciler.
func openEnv(cmd *cobra.Command, g *globalFlags, opts envOptions) (*env, error) {
	_ = godotenv.Load(".env")

	path := configPath(g)
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if g.ephemeral {
		cfg.Storage.Backend = model.BackendMemory
	}

	e := &env{cfg: cfg, cfgPath: path, creds: credentials, now: time.Now}

	lc := logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding, Path: cfg.Log.Path}
	fallback := io.Discard // the board owns the terminal
	if !opts.interactive {
		// One-shot commands share the terminal; keep stderr quiet.
		lc = logger.Config{Level: "warn", Encoding: "console"}
		fallback = cmd.ErrOrStderr()
	}
	if g.verbose {
		lc.Level = "debug"
	}
	log, closeLog, err := logger.New(lc, fallback)
	if err != nil {
		return nil, err
	}
	e.log = log
	e.closers = append(e.closers, closeLog, func() error {
		_ = log.Sync()
		return nil
	})

	blob, err := store.Open(cfg.Storage)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}
	e.closers = append(e.closers, blob.Close)

	e.store, err = planner.NewTaskStore(cmd.Context(), blob, planner.WithLogger(logger.Component(log, "store")))
	if err != nil {
		e.Close()
		return nil, err
	}

	rcOpts := []planner.ReconcilerOption{
		planner.WithReconcilerLogger(logger.Component(log, "reconciler")),
	}
	if opts.interactive && cfg.Reminder.Enabled {
		e.sched = e.newScheduler()
		rcOpts = append(rcOpts, planner.WithReminders(e.sched))
	}

	e.rc, err = planner.NewReconciler(e.store, rcOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}

	log.Debug("environment ready",
		zap.String("config", path),
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("tasks", e.store.Len()),
	)
	return e, nil
}

// newScheduler wires the reminder fan-out: the log, the board's toast
// channel and, when configured, the push webhook.
func (e *env) newScheduler() *reminder.Scheduler {
	log := logger.Component(e.log, "reminder")

	e.notices = reminder.NewChannelNotifier(16)
	notifiers := reminder.MultiNotifier{
		reminder.LogNotifier{Logger: log},
		e.notices,
	}

	if url := e.cfg.Reminder.WebhookURL; url != "" {
		token, err := credential.Lookup(e.creds, credential.WebhookToken)
		if err != nil {
			log.Warn("webhook token unavailable", zap.Error(err))
		}
		notifiers = append(notifiers, reminder.NewWebhookNotifier(url, token, logger.Component(e.log, "webhook")))
	}

	return reminder.New(notifiers,
		reminder.WithLead(time.Duration(e.cfg.Reminder.LeadMinutes)*time.Minute),
		reminder.WithLogger(log),
	)
}

// mailer builds an IMAP appender from the mail settings and the keyring.
func (e *env) mailer() (*mailout.Appender, error) {
	return e.appender(e.cfg.Mail, "")
}

// appender builds an IMAP appender for cfg. An empty password is looked
// up in the keyring.
func (e *env) appender(cfg model.MailConfig, password string) (*mailout.Appender, error) {
	if password == "" {
		var err error
		password, err = credential.Lookup(e.creds, credential.IMAPPassword)
		if err != nil {
			return nil, err
		}
	}
	if password == "" {
		return nil, fmt.Errorf("no IMAP password stored; run `docket config set-credential %s`", credential.IMAPPassword)
	}
	return mailout.NewAppender(cfg, password)
}

// Close stops reminders and releases the store and log file.
func (e *env) Close() {
	if e.sched != nil {
		e.sched.Stop()
	}
	if e.notices != nil {
		e.notices.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// resolveTask finds a task by exact id, by its 1-based position in
// `docket list`, or by a unique title substring or id fragment. Title
// matching ignores case, and an exact title wins over partial matches.
func (e *env) resolveTask(ref string) (model.Task, error) {
	ref = strings.TrimSpace(strings.TrimPrefix(ref, "#"))
	if t, ok := e.store.Get(ref); ok {
		return t, nil
	}

	all := e.store.List(planner.Filter{})
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(all) {
			return all[n-1], nil
		}
		return model.Task{}, fmt.Errorf("task #%d: %w", n, planner.ErrTaskNotFound)
	}
	if ref == "" {
		return model.Task{}, fmt.Errorf("empty task reference: %w", planner.ErrTaskNotFound)
	}

	needle := strings.ToLower(ref)
	var exact, found []model.Task
	for _, t := range all {
		title := strings.ToLower(t.Title)
		if title == needle {
			exact = append(exact, t)
		}
		if strings.Contains(title, needle) || strings.Contains(t.ID, ref) {
			found = append(found, t)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return model.Task{}, fmt.Errorf("task %q: %w", ref, planner.ErrTaskNotFound)
	default:
		return model.Task{}, fmt.Errorf("task %q is ambiguous (%d matches)", ref, len(found))
	}
}

// parseHour accepts "9", "09:00", "9am", "2pm" or "14".
func parseHour(s string) (int, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	pm := strings.HasSuffix(raw, "pm")
	am := strings.HasSuffix(raw, "am")
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(raw, "pm"), "am"))
	raw = strings.TrimSuffix(raw, ":00")

	h, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not an hour", s)
	}
	switch {
	case (am || pm) && (h < 1 || h > 12):
		return 0, fmt.Errorf("%q is not an hour", s)
	case pm && h != 12:
		h += 12
	case am && h == 12:
		h = 0
	}
	if !model.ValidSlot(h) {
		return 0, fmt.Errorf("hour %d is outside the schedule (%s to %s)", h, model.SlotLabel(model.SlotStart), model.SlotLabel(model.SlotEnd))
	}
	return h, nil
}

// userError rewrites planner errors for the terminal.
func userError(err error) error {
	var occupied *planner.SlotOccupiedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &occupied):
		return fmt.Errorf("time slot %s is already occupied", model.SlotLabel(occupied.Hour))
	case planner.IsPersist(err):
		return fmt.Errorf("failed to save tasks: %w", err)
	default:
		return err
	}
}
