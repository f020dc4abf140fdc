package reminder

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultLead is how long before a slot starts the reminder fires.
const DefaultLead = 5 * time.Minute

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so tests can drive timers by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Reminder describes one pending notification.
type Reminder struct {
	TaskID    string
	TaskTitle string
	Title     string
	Body      string
	FireAt    time.Time
}

// Handle is returned for every scheduled reminder and cancels it.
type Handle struct {
	reminder Reminder
	timer    Timer
	s        *Scheduler
}

// Reminder returns what the handle will deliver.
func (h *Handle) Reminder() Reminder { return h.reminder }

// Cancel stops the reminder. It reports whether the reminder was still
// pending.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.cancelLocked(h)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLead sets how long before the slot the reminder fires.
func WithLead(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.lead = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler keeps at most one pending reminder per task.
type Scheduler struct {
	mu       sync.Mutex
	clock    Clock
	notifier Notifier
	lead     time.Duration
	logger   *zap.Logger
	pending  map[string]*Handle
	stopped  bool
}

// New creates a Scheduler that delivers through n.
func New(n Notifier, opts ...Option) *Scheduler {
	if n == nil {
		n = NopNotifier{}
	}
	s := &Scheduler{
		clock:    realClock{},
		notifier: n,
		lead:     DefaultLead,
		logger:   zap.NewNop(),
		pending:  make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Lead returns the configured lead time.
func (s *Scheduler) Lead() time.Duration { return s.lead }

// ScheduleAt arranges a reminder for taskTitle ahead of at. Any reminder
// already pending for taskID is cancelled first. When the reminder time
// has already passed nothing is scheduled and ok is false.
func (s *Scheduler) ScheduleAt(taskID, taskTitle string, at time.Time) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[taskID]; ok {
		s.cancelLocked(old)
	}
	if s.stopped {
		return nil, false
	}

	fireAt := at.Add(-s.lead)
	delay := fireAt.Sub(s.clock.Now())
	if delay <= 0 {
		return nil, false
	}

	h := &Handle{
		reminder: Reminder{
			TaskID:    taskID,
			TaskTitle: taskTitle,
			Title:     "Task Reminder",
			Body:      fmt.Sprintf("%q is scheduled in %d minutes", taskTitle, int(s.lead.Minutes())),
			FireAt:    fireAt,
		},
		s: s,
	}
	h.timer = s.clock.AfterFunc(delay, func() { s.fire(h) })
	s.pending[taskID] = h

	s.logger.Debug("reminder scheduled",
		zap.String("task_id", taskID),
		zap.Time("fire_at", fireAt),
		zap.Duration("delay", delay),
	)
	return h, true
}

// Cancel stops the pending reminder for taskID, if any.
func (s *Scheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pending[taskID]
	if !ok {
		return false
	}
	return s.cancelLocked(h)
}

// cancelLocked stops h. Callers hold s.mu.
func (s *Scheduler) cancelLocked(h *Handle) bool {
	cur, ok := s.pending[h.reminder.TaskID]
	if !ok || cur != h {
		return false
	}
	delete(s.pending, h.reminder.TaskID)
	h.timer.Stop()
	s.logger.Debug("reminder cancelled", zap.String("task_id", h.reminder.TaskID))
	return true
}

// Pending lists scheduled reminders ordered by fire time.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, 0, len(s.pending))
	for _, h := range s.pending {
		out = append(out, h.reminder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Stop cancels every pending reminder. Later ScheduleAt calls are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.pending {
		h.timer.Stop()
	}
	s.pending = make(map[string]*Handle)
	s.stopped = true
}

// fire delivers h unless it was cancelled or replaced in the meantime.
func (s *Scheduler) fire(h *Handle) {
	s.mu.Lock()
	cur, ok := s.pending[h.reminder.TaskID]
	if !ok || cur != h {
		s.mu.Unlock()
		return
	}
	delete(s.pending, h.reminder.TaskID)
	s.mu.Unlock()

	r := h.reminder
	if shown := s.notifier.Notify(r.Title, r.Body); !shown {
		s.logger.Warn("reminder not shown", zap.String("task_id", r.TaskID))
		return
	}
	s.logger.Info("reminder delivered", zap.String("task_id", r.TaskID))
}
