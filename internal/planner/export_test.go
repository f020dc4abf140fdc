package planner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/model"
)

func TestExport_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _ = s.Create(ctx, TaskInput{Title: "a", Priority: model.PriorityHigh, Completed: true})
	_, _ = s.Create(ctx, TaskInput{Title: "b", Priority: model.PriorityLow, Slot: ptr(9)})
	_, _ = s.Create(ctx, TaskInput{Title: "c", Priority: model.PriorityHigh})

	doc := Export(s.List(Filter{}), morning)
	assert.Equal(t, "2026-03-10", doc.Date)
	assert.Equal(t, len(doc.Tasks), doc.Stats.Total)
	assert.Equal(t, 1, doc.Stats.Completed)
	assert.Equal(t, model.PriorityCounts{High: 2, Low: 1}, doc.Stats.ByPriority)
	assert.Equal(t, "daily-docket-2026-03-10.json", ExportFileName(doc))
}

func TestWriteExport_Format(t *testing.T) {
	task := model.Task{ID: "task_1_aaaaaaaaa", Title: "a", Priority: model.PriorityMedium, Duration: 30, CreatedAt: morning.UTC()}
	task.Place(9)
	doc := Export([]model.Task{task}, morning)

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, doc))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "{\n  \"date\": \"2026-03-10\",\n  \"tasks\": ["))
	assert.Contains(t, out, `"timeSlot": 9`)
	assert.Contains(t, out, `"scheduledTime": "09:00"`)
	assert.Contains(t, out, `"byPriority": {`)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	_, _ = src.Create(ctx, TaskInput{Title: "a", Slot: ptr(7), Completed: true})
	_, _ = src.Create(ctx, TaskInput{Title: "b", Slot: ptr(7)})
	_, _ = src.Create(ctx, TaskInput{Title: "c", Duration: 120})

	data, err := EncodeExport(Export(src.List(Filter{}), morning))
	require.NoError(t, err)

	doc, err := DecodeExport(bytes.NewReader(data))
	require.NoError(t, err)

	dst := newTestStore(t)
	n, err := ImportTasks(ctx, dst, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := src.List(Filter{})
	got := dst.List(Filter{})
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Completed, got[i].Completed)
		assert.Equal(t, want[i].TimeSlot, got[i].TimeSlot)
		assert.Equal(t, want[i].Duration, got[i].Duration)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestImportTasks_RejectsConflicts(t *testing.T) {
	ctx := context.Background()
	dst := newTestStore(t)
	mustCreate(t, dst, "existing")

	doc := model.ExportDocument{Date: "2026-03-10", Tasks: []model.Task{
		placed("task_1_aaaaaaaaa", 9, false),
		placed("task_1_bbbbbbbbb", 9, false),
	}}
	_, err := ImportTasks(ctx, dst, doc)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 1, dst.Len(), "store untouched")
}

func TestImportTasks_RejectsBadRecords(t *testing.T) {
	ctx := context.Background()
	dst := newTestStore(t)

	_, err := ImportTasks(ctx, dst, model.ExportDocument{Tasks: []model.Task{{ID: "x", Title: ""}}})
	assert.True(t, IsValidation(err))

	_, err = ImportTasks(ctx, dst, model.ExportDocument{Tasks: []model.Task{{ID: "x", Title: "x", TimeSlot: ptr(30)}}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "tasks[0].timeSlot", ve.Field)
}

func TestDecodeExport_BadDate(t *testing.T) {
	_, err := DecodeExport(strings.NewReader(`{"date":"10/03/2026","tasks":[]}`))
	assert.True(t, IsValidation(err))

	_, err = DecodeExport(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestReconcilerImport_RearmsReminders(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t)
	old := mustCreate(t, f.store, "old")
	_, err := f.rc.MoveTo(ctx, old.ID, Slot(20))
	require.NoError(t, err)

	doc := model.ExportDocument{Date: "2026-03-10", Tasks: []model.Task{placed("task_9_zzzzzzzzz", 21, false)}}
	n, err := f.rc.Import(ctx, f.store, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending := f.sched.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "task_9_zzzzzzzzz", pending[0].TaskID)
}
