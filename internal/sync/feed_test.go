package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/store"
	appsync "github.com/nhle/daily-docket/internal/sync"
)

func newFeed(t *testing.T) (*appsync.Feed, *planner.TaskStore) {
	t.Helper()
	s, err := planner.NewTaskStore(context.Background(), store.NewMemoryBlob())
	require.NoError(t, err)
	return appsync.New(s), s
}

func TestFeed_DeliversSnapshot(t *testing.T) {
	feed, s := newFeed(t)
	ctx := context.Background()

	created, err := s.Create(ctx, planner.TaskInput{Title: "Plan sprint"})
	require.NoError(t, err)

	msg, ok := feed.WaitForChange()().(appsync.ChangeMsg)
	require.True(t, ok)
	assert.Equal(t, planner.ChangeCreated, msg.Change.Kind)
	assert.Equal(t, created.ID, msg.Change.Task.ID)
	require.Len(t, msg.Tasks, 1)
	assert.Equal(t, "Plan sprint", msg.Tasks[0].Title)
}

func TestFeed_NeverBlocksStore(t *testing.T) {
	feed, s := newFeed(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			_, _ = s.Create(ctx, planner.TaskInput{Title: "t"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("store blocked on an unread feed")
	}

	msg, ok := feed.WaitForChange()().(appsync.ChangeMsg)
	require.True(t, ok)
	assert.Len(t, msg.Tasks, 64)
}

func TestFeed_Stop(t *testing.T) {
	feed, _ := newFeed(t)
	feed.Stop()
	feed.Stop()
	assert.Nil(t, feed.WaitForChange()())
}
