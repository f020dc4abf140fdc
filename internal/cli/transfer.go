package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/mailout"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
)

// mailTimeout bounds one IMAP delivery.
const mailTimeout = 30 * time.Second

func newExportCmd(g *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write today's plan as daily-docket-YYYY-MM-DD.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			doc := planner.Export(e.store.List(planner.Filter{}), e.now())
			if out == "-" {
				return planner.WriteExport(cmd.OutOrStdout(), doc)
			}

			data, err := planner.EncodeExport(doc)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			path := filepath.Join(out, planner.ExportFileName(doc))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			e.log.Info("day exported", zap.String("path", path), zap.Int("tasks", len(doc.Tasks)))
			fmt.Fprintf(cmd.OutOrStdout(), "Daily plan exported! %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", ".", `directory to write into, or "-" for stdout`)
	return cmd
}

func newImportCmd(g *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace today's tasks with an exported plan (.json or .eml)",
		Long: `Replace today's tasks with an exported plan. FILE is a JSON export or a
message written by "docket mail --eml"; "-" reads JSON from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readExport(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			if n := e.store.Len(); n > 0 && !yes {
				q := fmt.Sprintf("Replace %d existing tasks with %d from %s?", n, len(doc.Tasks), args[0])
				if args[0] == "-" || !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), q) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			n, err := e.rc.Import(cmd.Context(), e.store, doc)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks from %s\n", n, doc.Date)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "replace existing tasks without asking")
	return cmd
}

// readExport loads an export document from a JSON file, a composed
// message, or stdin.
func readExport(stdin io.Reader, name string) (model.ExportDocument, error) {
	if name == "-" {
		return planner.DecodeExport(stdin)
	}

	f, err := os.Open(name)
	if err != nil {
		return model.ExportDocument{}, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(name), ".eml") {
		return planner.DecodeExport(f)
	}
	parsed, err := mailout.Parse(f)
	if err != nil {
		return model.ExportDocument{}, fmt.Errorf("%s: %w", name, err)
	}
	return *parsed.Export, nil
}

func newMailCmd(g *globalFlags) *cobra.Command {
	var eml string

	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Send today's plan to the configured IMAP mailbox",
		Long: `Compose today's plan as an email (summary plus JSON attachment) and
append it to mail.mailbox on mail.imap_host. The IMAP password is read
from the keyring; store it with "docket config set-credential imap-password".

With --eml the message is written to a file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			doc := planner.Export(e.store.List(planner.Filter{}), e.now())

			if eml != "" {
				data, err := mailout.ComposeBytes(mailout.Envelope{From: e.cfg.Mail.From, To: e.cfg.Mail.To, Date: e.now()}, doc)
				if err != nil {
					return err
				}
				if err := os.WriteFile(eml, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", eml, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Message written to %s\n", eml)
				return nil
			}

			if e.cfg.Mail.IMAPHost == "" {
				return fmt.Errorf("mail.imap_host is not set in %s", e.cfgPath)
			}
			mailer, err := e.mailer()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), mailTimeout)
			defer cancel()
			if err := mailer.Deliver(ctx, e.cfg.Mail, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daily plan sent to %s\n", e.cfg.Mail.Mailbox)
			return nil
		},
	}

	cmd.Flags().StringVar(&eml, "eml", "", "write the message to this file instead of sending it")
	return cmd
}
