package planner

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/store"
)

var idPattern = regexp.MustCompile(`^task_\d+_[0-9a-z]{9}$`)

func TestNewTaskStore_NilBlob(t *testing.T) {
	_, err := NewTaskStore(context.Background(), nil)
	assert.Error(t, err)
}

func TestCreate_Defaults(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Create(context.Background(), TaskInput{Title: "  Write report  "})
	require.NoError(t, err)

	assert.Regexp(t, idPattern, task.ID)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.DurationDefault, task.Duration)
	assert.False(t, task.Completed)
	assert.False(t, task.Scheduled)
	assert.Nil(t, task.TimeSlot)
	assert.Nil(t, task.ScheduledTime)
	assert.Equal(t, morning, task.CreatedAt)
}

func TestCreate_EmptyTitleRejected(t *testing.T) {
	s, blob := newMemoryStore(t)

	_, err := s.Create(context.Background(), TaskInput{Title: "   "})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, s.Len())

	_, loadErr := blob.Load(context.Background(), store.TasksKey)
	assert.ErrorIs(t, loadErr, store.ErrNotFound, "nothing should be persisted")
}

func TestCreate_UnknownPriorityRejected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), TaskInput{Title: "x", Priority: "urgent"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "priority", ve.Field)
}

func TestCreate_IDsUnique(t *testing.T) {
	s := newTestStore(t)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		task := mustCreate(t, s, "task")
		require.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	s := newTestStore(t)
	ids := []string{"task_1_aaaaaaaaa", "task_1_aaaaaaaaa", "task_1_bbbbbbbbb"}
	s.newID = func(_ time.Time) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	assert.Equal(t, "task_1_aaaaaaaaa", a.ID)
	assert.Equal(t, "task_1_bbbbbbbbb", b.ID)
}

func TestCreate_DeletedIDNotReused(t *testing.T) {
	s := newTestStore(t)
	ids := []string{"task_1_aaaaaaaaa", "task_1_aaaaaaaaa", "task_1_ccccccccc"}
	s.newID = func(_ time.Time) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	a := mustCreate(t, s, "a")
	_, ok, err := s.Delete(context.Background(), a.ID)
	require.NoError(t, err)
	require.True(t, ok)

	b := mustCreate(t, s, "b")
	assert.Equal(t, "task_1_ccccccccc", b.ID)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := mustCreate(t, s, "Draft")

	updated, ok, err := s.Update(ctx, task.ID, TaskPatch{
		Title:    ptr("Final"),
		Priority: ptr(model.PriorityHigh),
		Duration: ptr(95),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
	assert.Equal(t, 90, updated.Duration)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)

	got, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestUpdate_UnknownID(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Update(context.Background(), "task_0_missing00", TaskPatch{Title: ptr("x")})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_EmptyTitleLeavesTask(t *testing.T) {
	s := newTestStore(t)
	task := mustCreate(t, s, "Keep me")

	_, ok, err := s.Update(context.Background(), task.ID, TaskPatch{Title: ptr(" ")})
	assert.True(t, ok)
	assert.True(t, IsValidation(err))

	got, _ := s.Get(task.ID)
	assert.Equal(t, "Keep me", got.Title)
}

func TestUpdate_SlotFieldsStayConsistent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := mustCreate(t, s, "Gym")

	placed, _, err := s.Update(ctx, task.ID, TaskPatch{Slot: ptr(7)})
	require.NoError(t, err)
	assert.True(t, placed.Scheduled)
	assert.Equal(t, 7, *placed.TimeSlot)
	assert.Equal(t, "07:00", *placed.ScheduledTime)

	cleared, _, err := s.Update(ctx, task.ID, TaskPatch{ClearSlot: true, Slot: ptr(9)})
	require.NoError(t, err)
	assert.False(t, cleared.Scheduled)
	assert.Nil(t, cleared.TimeSlot)
	assert.Nil(t, cleared.ScheduledTime)

	_, _, err = s.Update(ctx, task.ID, TaskPatch{Slot: ptr(24)})
	assert.True(t, IsValidation(err))
}

func TestToggleComplete_KeepsSchedule(t *testing.T) {
	s := newTestStore(t)
	task := mustCreate(t, s, "Standup", 9)

	toggled, ok, err := s.ToggleComplete(context.Background(), task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, toggled.Completed)
	assert.True(t, toggled.Scheduled)
	assert.Equal(t, 9, *toggled.TimeSlot)

	toggled, _, _ = s.ToggleComplete(context.Background(), task.ID)
	assert.False(t, toggled.Completed)

	_, ok, err = s.ToggleComplete(context.Background(), "nope")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, "a")
	mustCreate(t, s, "b")

	removed, ok, err := s.Delete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, a.ID, removed.ID)
	assert.Equal(t, 1, s.Len())

	_, ok, err = s.Delete(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len(), "deleting a missing id leaves the count alone")

	_, ok, err = s.Delete(context.Background(), "task_0_nothere00")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestList_FiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Create(ctx, TaskInput{Title: "a", Priority: model.PriorityHigh})
	b, _ := s.Create(ctx, TaskInput{Title: "b", Priority: model.PriorityLow, Slot: ptr(10)})
	c, _ := s.Create(ctx, TaskInput{Title: "c", Priority: model.PriorityHigh, Completed: true, Slot: ptr(11)})

	ids := func(tasks []model.Task) []string {
		var out []string
		for _, t := range tasks {
			out = append(out, t.ID)
		}
		return out
	}

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(s.List(Filter{})))
	assert.Equal(t, []string{a.ID, c.ID}, ids(s.List(Filter{Priority: ptr(model.PriorityHigh)})))
	assert.Equal(t, []string{b.ID, c.ID}, ids(s.List(Filter{Scheduled: ptr(true)})))
	assert.Equal(t, []string{c.ID}, ids(s.List(Filter{Priority: ptr(model.PriorityHigh), Scheduled: ptr(true)})))
	assert.Equal(t, []string{a.ID, b.ID}, ids(s.List(Filter{Completed: ptr(false)})))
	assert.Empty(t, s.List(Filter{Priority: ptr(model.PriorityMedium)}))
}

func TestList_ReturnsCopies(t *testing.T) {
	s := newTestStore(t)
	task := mustCreate(t, s, "orig", 9)

	listed := s.List(Filter{})
	listed[0].Title = "changed"
	*listed[0].TimeSlot = 12

	got, _ := s.Get(task.ID)
	assert.Equal(t, "orig", got.Title)
	assert.Equal(t, 9, *got.TimeSlot)
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemoryBlob()
	s, err := NewTaskStore(ctx, blob)
	require.NoError(t, err)
	a, _ := s.Create(ctx, TaskInput{Title: "a", Slot: ptr(6)})
	b, _ := s.Create(ctx, TaskInput{Title: "b", Priority: model.PriorityLow})

	reloaded, err := NewTaskStore(ctx, blob)
	require.NoError(t, err)
	got := reloaded.List(Filter{})
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, 6, *got[0].TimeSlot)
	assert.Equal(t, b.ID, got[1].ID)
	assert.Equal(t, model.PriorityLow, got[1].Priority)
}

func TestLoad_CorruptBlobYieldsEmptyStore(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemoryBlob()
	require.NoError(t, blob.Save(ctx, store.TasksKey, []byte("{not json")))

	s, err := NewTaskStore(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestLoad_RepairsLegacyRecords(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemoryBlob()
	legacy := `[
		{"id":"task_1_aaaaaaaaa","title":"string slot","priority":"high","duration":60,"scheduled":true,"timeSlot":"9","scheduledTime":"09:00","createdAt":"2026-03-10T08:00:00Z"},
		{"id":"task_1_aaaaaaaaa","title":"duplicate id","scheduled":true,"timeSlot":null},
		{"id":"task_1_bbbbbbbbb","title":"  ","priority":"low"},
		{"id":"task_1_ccccccccc","title":"bad slot","priority":"weird","timeSlot":40},
		{"id":"task_1_ddddddddd","title":"string duration","priority":"medium","duration":"45","completed":false,"scheduled":false,"timeSlot":null,"scheduledTime":null,"createdAt":"2026-03-10T08:05:00Z"},
		{"id":"task_1_eeeeeeeee","title":"NaN duration","duration":"","timeSlot":"10"},
		{"id":"task_1_fffffffff","title":"unreadable","timeSlot":{"hour":9}}
	]`
	require.NoError(t, blob.Save(ctx, store.TasksKey, []byte(legacy)))

	s, err := NewTaskStore(ctx, blob)
	require.NoError(t, err)
	got := s.List(Filter{})
	require.Len(t, got, 5)

	assert.Equal(t, 9, *got[0].TimeSlot)
	assert.Equal(t, "09:00", *got[0].ScheduledTime)
	assert.True(t, got[0].Scheduled)

	assert.NotEqual(t, "task_1_aaaaaaaaa", got[1].ID)
	assert.False(t, got[1].Scheduled)
	assert.Equal(t, model.DurationDefault, got[1].Duration)

	assert.Equal(t, model.PriorityMedium, got[2].Priority)
	assert.False(t, got[2].Scheduled)
	assert.Nil(t, got[2].TimeSlot)

	assert.Equal(t, "string duration", got[3].Title)
	assert.Equal(t, 45, got[3].Duration)

	assert.Equal(t, "NaN duration", got[4].Title)
	assert.Equal(t, model.DurationDefault, got[4].Duration)
	assert.Equal(t, 10, *got[4].TimeSlot)
	assert.True(t, got[4].Scheduled)
}

func TestLoad_OriginalFormatRecords(t *testing.T) {
	ctx := context.Background()
	blob := store.NewMemoryBlob()
	saved := `[
		{"title":"Write report","description":"","priority":"high","duration":"45","id":"task_1741593600000_k3j9x2m1q","completed":false,"scheduled":true,"timeSlot":"9","scheduledTime":"09:00","createdAt":"2025-03-10T08:00:00.000Z"},
		{"title":"Gym","description":"","priority":"low","duration":30,"id":"task_1741593600001_a8b7c6d5e","completed":true,"scheduled":false,"timeSlot":null,"scheduledTime":null,"createdAt":"2025-03-10T08:01:00.000Z"}
	]`
	require.NoError(t, blob.Save(ctx, store.TasksKey, []byte(saved)))

	s, err := NewTaskStore(ctx, blob)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	report, ok := s.Get("task_1741593600000_k3j9x2m1q")
	require.True(t, ok)
	assert.Equal(t, 45, report.Duration)
	assert.Equal(t, 9, *report.TimeSlot)
	assert.Equal(t, model.PriorityHigh, report.Priority)
}

func TestPersistFailure_KeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	s, blob := newMemoryStore(t)
	blob.SaveErr = errors.New("disk full")

	task, err := s.Create(ctx, TaskInput{Title: "unsaved"})
	require.Error(t, err)
	assert.True(t, IsPersist(err))
	assert.ErrorIs(t, err, blob.SaveErr)

	got, ok := s.Get(task.ID)
	assert.True(t, ok)
	assert.Equal(t, "unsaved", got.Title)
}

func TestClearAndReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustCreate(t, s, "a")
	mustCreate(t, s, "b")

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Replace(ctx, []model.Task{{ID: "task_2_xxxxxxxxx", Title: "imported", Priority: model.PriorityLow}}))
	got := s.List(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, "imported", got[0].Title)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var kinds []ChangeKind
	s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	task := mustCreate(t, s, "a")
	_, _, _ = s.Update(ctx, task.ID, TaskPatch{Title: ptr("b")})
	_, _, _ = s.Delete(ctx, task.ID)
	_ = s.Clear(ctx)

	assert.Equal(t, []ChangeKind{ChangeCreated, ChangeUpdated, ChangeDeleted, ChangeCleared}, kinds)
}
