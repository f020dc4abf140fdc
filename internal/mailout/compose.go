package mailout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
)

// ErrNoExport is returned when a message carries no JSON export.
var ErrNoExport = errors.New("message has no daily-docket attachment")

// Envelope holds the addressing for a composed message.
type Envelope struct {
	From string
	To   string
	Date time.Time
}

// Compose writes doc as a MIME message: a plain-text summary followed by
// the JSON export as an attachment.
func Compose(w io.Writer, env Envelope, doc model.ExportDocument) error {
	var h mail.Header
	if env.Date.IsZero() {
		env.Date = time.Now()
	}
	h.SetDate(env.Date)
	h.SetSubject(Subject(doc))
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}
	if err := setAddresses(&h, "From", env.From); err != nil {
		return err
	}
	if err := setAddresses(&h, "To", env.To); err != nil {
		return err
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating text part: %w", err)
	}
	if _, err := io.WriteString(pw, Summary(doc)); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing text part: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing inline part: %w", err)
	}

	var ah mail.AttachmentHeader
	ah.SetContentType("application/json", nil)
	ah.SetFilename(planner.ExportFileName(doc))
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment: %w", err)
	}
	if err := planner.WriteExport(aw, doc); err != nil {
		return err
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("closing attachment: %w", err)
	}

	return mw.Close()
}

// ComposeBytes is Compose into a buffer.
func ComposeBytes(env Envelope, doc model.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := Compose(&buf, env, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setAddresses(h *mail.Header, field, list string) error {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return fmt.Errorf("parsing %s address %q: %w", strings.ToLower(field), list, err)
	}
	h.SetAddressList(field, addrs)
	return nil
}

// Subject returns the message subject for doc.
func Subject(doc model.ExportDocument) string {
	return "Daily Docket for " + doc.Date
}

// Summary renders the plan as plain text: stats, the schedule in hour
// order, then the unscheduled pool.
func Summary(doc model.ExportDocument) string {
	stats := planner.ComputeStats(doc.Tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Docket - %s\n\n", doc.Date)
	fmt.Fprintf(&b, "Completed: %d of %d (%d%%)\n", stats.Completed, stats.Total, stats.Percent)
	fmt.Fprintf(&b, "Focus time: %dh\n", stats.FocusHours())
	fmt.Fprintf(&b, "Priorities: high %d, medium %d, low %d\n",
		stats.ByPriority.High, stats.ByPriority.Medium, stats.ByPriority.Low)
	fmt.Fprintf(&b, "%s\n", stats.Message())

	b.WriteString("\nSchedule\n")
	listed := false
	for _, row := range planner.NewSchedule(doc.Tasks).Grid() {
		for _, t := range row.Tasks {
			fmt.Fprintf(&b, "  %8s  %s %s\n", row.Label, checkbox(t), t.Title)
			listed = true
		}
	}
	if !listed {
		b.WriteString("  (nothing scheduled)\n")
	}

	b.WriteString("\nUnscheduled\n")
	listed = false
	for _, t := range doc.Tasks {
		if t.Scheduled {
			continue
		}
		fmt.Fprintf(&b, "  %s %s (%s, %dm)\n", checkbox(t), t.Title, t.Priority, t.Duration)
		listed = true
	}
	if !listed {
		b.WriteString("  (none)\n")
	}
	return b.String()
}

func checkbox(t model.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

// Parsed is the content recovered from a composed message.
type Parsed struct {
	Subject  string
	Text     string
	Filename string
	Export   *model.ExportDocument
}

// Parse reads a message produced by Compose (or any MIME message with a
// JSON attachment) and decodes the export it carries.
func Parse(r io.Reader) (*Parsed, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	out := &Parsed{}
	out.Subject, _ = mr.Header.Subject()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("reading message part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if !strings.HasPrefix(contentType, "text/plain") {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return out, fmt.Errorf("reading text part: %w", err)
			}
			out.Text = string(body)

		case *mail.AttachmentHeader:
			contentType, _, _ := h.ContentType()
			filename, _ := h.Filename()
			if out.Export != nil || (contentType != "application/json" && !strings.HasSuffix(filename, ".json")) {
				continue
			}
			doc, err := planner.DecodeExport(part.Body)
			if err != nil {
				return out, err
			}
			out.Filename = filename
			out.Export = &doc
		}
	}

	if out.Export == nil {
		return out, ErrNoExport
	}
	return out, nil
}
