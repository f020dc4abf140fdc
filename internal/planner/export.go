package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nhle/daily-docket/internal/model"
)

// dateLayout is the calendar date format used in export documents.
const dateLayout = "2006-01-02"

// Export builds the day document for tasks. The date is taken from day in
// its own location.
func Export(tasks []model.Task, day time.Time) model.ExportDocument {
	doc := model.ExportDocument{
		Date:  day.Format(dateLayout),
		Tasks: make([]model.Task, 0, len(tasks)),
	}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, t.Clone())
		if t.Completed {
			doc.Stats.Completed++
		}
		doc.Stats.ByPriority.Add(t.Priority)
	}
	doc.Stats.Total = len(tasks)
	return doc
}

// ExportFileName returns the download name for doc.
func ExportFileName(doc model.ExportDocument) string {
	return fmt.Sprintf("daily-docket-%s.json", doc.Date)
}

// EncodeExport renders doc as indented JSON.
func EncodeExport(doc model.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteExport writes doc to w as JSON indented by two spaces.
func WriteExport(w io.Writer, doc model.ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// DecodeExport reads an export document and checks its date.
func DecodeExport(r io.Reader) (model.ExportDocument, error) {
	var doc model.ExportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return model.ExportDocument{}, fmt.Errorf("decoding export: %w", err)
	}
	if doc.Date != "" {
		if _, err := time.Parse(dateLayout, doc.Date); err != nil {
			return model.ExportDocument{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", doc.Date)}
		}
	}
	return doc, nil
}

// Replacer swaps the whole task list. *TaskStore implements it.
type Replacer interface {
	Replace(ctx context.Context, tasks []model.Task) error
}

// ImportTasks validates doc and replaces the task list with its tasks.
// A document that would put two active tasks on one slot is refused and
// nothing changes.
func ImportTasks(ctx context.Context, dst Replacer, doc model.ExportDocument) (int, error) {
	for i, t := range doc.Tasks {
		if _, err := ValidateTitle(t.Title); err != nil {
			return 0, &ValidationError{Field: fmt.Sprintf("tasks[%d].title", i), Reason: "must not be empty"}
		}
		if h, ok := t.Slot(); ok && !model.ValidSlot(h) {
			return 0, &ValidationError{
				Field:  fmt.Sprintf("tasks[%d].timeSlot", i),
				Reason: fmt.Sprintf("%d is outside %d..%d", h, model.SlotStart, model.SlotEnd),
			}
		}
	}

	placed := make([]model.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		t = t.Clone()
		if h, ok := t.Slot(); ok {
			t.Place(h)
		} else {
			t.Unplace()
		}
		placed = append(placed, t)
	}
	if hours := NewSchedule(placed).Conflicts(); len(hours) > 0 {
		return 0, &ValidationError{Field: "tasks", Reason: fmt.Sprintf("more than one active task in slots %v", hours)}
	}

	if err := dst.Replace(ctx, placed); err != nil {
		return len(placed), err
	}
	return len(placed), nil
}
