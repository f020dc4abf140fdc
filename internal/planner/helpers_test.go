package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/store"
	"github.com/nhle/daily-docket/internal/testutil"
)

// morning is a fixed wall-clock time used across planner tests.
var morning = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *TaskStore {
	t.Helper()
	s, err := NewTaskStore(context.Background(), testutil.NewTestBlob(t), WithClock(func() time.Time { return morning }))
	require.NoError(t, err)
	return s
}

func newMemoryStore(t *testing.T) (*TaskStore, *store.MemoryBlob) {
	t.Helper()
	blob := store.NewMemoryBlob()
	s, err := NewTaskStore(context.Background(), blob, WithClock(func() time.Time { return morning }))
	require.NoError(t, err)
	return s, blob
}

func mustCreate(t *testing.T, s *TaskStore, title string, slot ...int) model.Task {
	t.Helper()
	in := TaskInput{Title: title}
	if len(slot) > 0 {
		in.Slot = &slot[0]
	}
	task, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	return task
}

func ptr[T any](v T) *T { return &v }
