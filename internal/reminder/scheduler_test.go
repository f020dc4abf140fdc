package reminder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/reminder"
	"github.com/nhle/daily-docket/internal/testutil"
)

var start = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

type capture struct {
	bodies []string
	shown  bool
}

func (c *capture) Notify(_, body string) bool {
	c.bodies = append(c.bodies, body)
	return c.shown
}

func newScheduler(t *testing.T, opts ...reminder.Option) (*reminder.Scheduler, *testutil.FakeClock, *capture) {
	t.Helper()
	clock := testutil.NewFakeClock(start)
	c := &capture{shown: true}
	s := reminder.New(c, append([]reminder.Option{reminder.WithClock(clock)}, opts...)...)
	t.Cleanup(s.Stop)
	return s, clock, c
}

func TestScheduleAt_FiresAtLead(t *testing.T) {
	s, clock, c := newScheduler(t)

	h, ok := s.ScheduleAt("t1", "Standup", start.Add(time.Hour))
	require.True(t, ok)
	assert.Equal(t, start.Add(55*time.Minute), h.Reminder().FireAt)
	assert.Equal(t, "Task Reminder", h.Reminder().Title)

	clock.Advance(54 * time.Minute)
	assert.Empty(t, c.bodies)

	clock.Advance(time.Minute)
	assert.Equal(t, []string{`"Standup" is scheduled in 5 minutes`}, c.bodies)
	assert.Empty(t, s.Pending())
}

func TestScheduleAt_NonPositiveDelay(t *testing.T) {
	s, clock, _ := newScheduler(t)

	_, ok := s.ScheduleAt("t1", "x", start.Add(5*time.Minute))
	assert.False(t, ok)
	_, ok = s.ScheduleAt("t1", "x", start.Add(-time.Hour))
	assert.False(t, ok)
	assert.Zero(t, clock.Pending())
}

func TestScheduleAt_ReplacesPending(t *testing.T) {
	s, clock, c := newScheduler(t)

	_, ok := s.ScheduleAt("t1", "first", start.Add(time.Hour))
	require.True(t, ok)
	_, ok = s.ScheduleAt("t1", "second", start.Add(2*time.Hour))
	require.True(t, ok)
	require.Len(t, s.Pending(), 1)

	clock.Advance(3 * time.Hour)
	assert.Equal(t, []string{`"second" is scheduled in 5 minutes`}, c.bodies)
}

func TestScheduleAt_PastTimeCancelsPrevious(t *testing.T) {
	s, clock, c := newScheduler(t)

	_, ok := s.ScheduleAt("t1", "x", start.Add(time.Hour))
	require.True(t, ok)
	_, ok = s.ScheduleAt("t1", "x", start.Add(-time.Hour))
	require.False(t, ok)

	clock.Advance(2 * time.Hour)
	assert.Empty(t, c.bodies)
}

func TestCancel(t *testing.T) {
	s, clock, c := newScheduler(t)

	h, _ := s.ScheduleAt("t1", "a", start.Add(time.Hour))
	_, _ = s.ScheduleAt("t2", "b", start.Add(2*time.Hour))

	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel())
	assert.True(t, s.Cancel("t2"))
	assert.False(t, s.Cancel("t2"))
	assert.False(t, s.Cancel("unknown"))

	var nilHandle *reminder.Handle
	assert.False(t, nilHandle.Cancel())

	clock.Advance(3 * time.Hour)
	assert.Empty(t, c.bodies)
}

func TestStaleHandleDoesNotCancelReplacement(t *testing.T) {
	s, clock, c := newScheduler(t)

	old, _ := s.ScheduleAt("t1", "a", start.Add(time.Hour))
	_, _ = s.ScheduleAt("t1", "a", start.Add(2*time.Hour))
	assert.False(t, old.Cancel())

	clock.Advance(3 * time.Hour)
	assert.Len(t, c.bodies, 1)
}

func TestPendingOrdered(t *testing.T) {
	s, _, _ := newScheduler(t)
	_, _ = s.ScheduleAt("late", "l", start.Add(3*time.Hour))
	_, _ = s.ScheduleAt("early", "e", start.Add(time.Hour))

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].TaskID)
	assert.Equal(t, "late", pending[1].TaskID)
	assert.Equal(t, "e", pending[0].TaskTitle)
	assert.Equal(t, "Task Reminder", pending[0].Title)
}

func TestStop(t *testing.T) {
	s, clock, c := newScheduler(t)
	_, _ = s.ScheduleAt("t1", "a", start.Add(time.Hour))

	s.Stop()
	_, ok := s.ScheduleAt("t2", "b", start.Add(time.Hour))
	assert.False(t, ok)

	clock.Advance(2 * time.Hour)
	assert.Empty(t, c.bodies)
	assert.Empty(t, s.Pending())
}

func TestWithLead(t *testing.T) {
	s, clock, c := newScheduler(t, reminder.WithLead(15*time.Minute))
	assert.Equal(t, 15*time.Minute, s.Lead())

	_, ok := s.ScheduleAt("t1", "Review", start.Add(time.Hour))
	require.True(t, ok)
	clock.Advance(45 * time.Minute)
	assert.Equal(t, []string{`"Review" is scheduled in 15 minutes`}, c.bodies)
}

func TestNotifierNotShown(t *testing.T) {
	clock := testutil.NewFakeClock(start)
	c := &capture{shown: false}
	s := reminder.New(c, reminder.WithClock(clock))
	defer s.Stop()

	_, _ = s.ScheduleAt("t1", "a", start.Add(time.Hour))
	clock.Advance(time.Hour)
	assert.Len(t, c.bodies, 1)
	assert.Empty(t, s.Pending())
}

func TestRealClock(t *testing.T) {
	ch := reminder.NewChannelNotifier(1)
	s := reminder.New(ch, reminder.WithLead(0))
	defer s.Stop()

	_, ok := s.ScheduleAt("t1", "soon", time.Now().Add(20*time.Millisecond))
	require.True(t, ok)

	select {
	case msg := <-waitMsg(ch):
		assert.Equal(t, "Task Reminder", msg.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder did not fire")
	}
}

func waitMsg(ch *reminder.ChannelNotifier) <-chan reminder.ReminderMsg {
	out := make(chan reminder.ReminderMsg, 1)
	go func() {
		if msg, ok := ch.WaitForReminder()().(reminder.ReminderMsg); ok {
			out <- msg
		}
	}()
	return out
}
