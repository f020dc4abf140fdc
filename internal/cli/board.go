package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/app"
	"github.com/nhle/daily-docket/internal/logger"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/theme"
)

// runBoard opens the interactive planning board.
func runBoard(cmd *cobra.Command, g *globalFlags) error {
	e, err := openEnv(cmd, g, envOptions{interactive: true})
	if err != nil {
		return err
	}
	defer e.Close()

	if err := theme.Use(e.cfg.Display.Theme); err != nil {
		e.log.Warn("unknown theme, using default", zap.String("theme", e.cfg.Display.Theme))
	}

	armed := e.rc.ArmReminders()
	e.log.Info("board starting", zap.Int("tasks", e.store.Len()), zap.Int("reminders", armed))

	deps := app.Deps{
		Store:      e.store,
		Reconciler: e.rc,
		Editor:     planner.NewEditor(e.store),
		Reminders:  e.sched,
		Notices:    e.notices,
		Config:     e.cfg,
		ConfigPath: e.cfgPath,
		Logger:     logger.Component(e.log, "ui"),
		Now:        e.now,

		NewMailer: func(cfg model.MailConfig) (app.Mailer, error) {
			a, err := e.appender(cfg, "")
			if err != nil {
				return nil, err
			}
			return a, nil
		},
		Probe: func(ctx context.Context, cfg model.MailConfig, password string) error {
			a, err := e.appender(cfg, password)
			if err != nil {
				return err
			}
			return a.Check(ctx)
		},
		StoreSecret: storeCredential,
	}
	if e.cfg.Mail.IMAPHost != "" {
		if mailer, err := e.mailer(); err != nil {
			e.log.Warn("mail disabled", zap.Error(err))
		} else {
			deps.Mailer = mailer
		}
	}

	m, err := app.New(deps)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
