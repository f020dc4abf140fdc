package mailout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/daily-docket/internal/model"
)

// ErrAuth is returned when the IMAP server rejects the credentials.
var ErrAuth = errors.New("imap authentication failed")

// Appender uploads composed messages into an IMAP mailbox.
type Appender struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewAppender creates an Appender from the mail settings and password.
func NewAppender(cfg model.MailConfig, password string) (*Appender, error) {
	if cfg.IMAPHost == "" {
		return nil, errors.New("mail.imap_host is not configured")
	}
	if cfg.Username == "" {
		return nil, errors.New("mail.username is not configured")
	}
	port := cfg.IMAPPort
	if port == "" {
		port = "993"
	}
	return &Appender{
		host:     cfg.IMAPHost,
		port:     port,
		username: cfg.Username,
		password: password,
		tls:      cfg.TLS,
	}, nil
}

// connect dials and authenticates. The caller logs out.
func (a *Appender) connect() (*imapclient.Client, error) {
	addr := a.host + ":" + a.port

	var (
		client *imapclient.Client
		err    error
	)
	if a.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(a.username, a.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("%w for %s: %v", ErrAuth, a.username, err)
	}
	return client, nil
}

// Check dials and authenticates, then logs out. It is what the settings
// screen runs as "test connection".
func (a *Appender) Check(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		client, err := a.connect()
		if err != nil {
			done <- err
			return
		}
		done <- client.Logout().Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Append stores msg in mailbox, marked as seen.
func (a *Appender) Append(ctx context.Context, mailbox string, msg []byte) error {
	if mailbox == "" {
		mailbox = "Drafts"
	}

	client, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	done := make(chan error, 1)
	go func() {
		cmd := client.Append(mailbox, int64(len(msg)), &imap.AppendOptions{
			Flags: []imap.Flag{imap.FlagSeen},
			Time:  time.Now(),
		})
		if _, err := cmd.Write(msg); err != nil {
			done <- fmt.Errorf("writing message: %w", err)
			return
		}
		if err := cmd.Close(); err != nil {
			done <- fmt.Errorf("closing append: %w", err)
			return
		}
		if _, err := cmd.Wait(); err != nil {
			done <- fmt.Errorf("appending to %s: %w", mailbox, err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = client.Close()
		return ctx.Err()
	}
}

// Deliver composes doc and appends it to cfg.Mailbox.
func (a *Appender) Deliver(ctx context.Context, cfg model.MailConfig, doc model.ExportDocument) error {
	var buf bytes.Buffer
	if err := Compose(&buf, Envelope{From: cfg.From, To: cfg.To}, doc); err != nil {
		return err
	}
	return a.Append(ctx, cfg.Mailbox, buf.Bytes())
}
