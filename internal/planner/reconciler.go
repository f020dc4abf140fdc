package planner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/reminder"
)

// Location is where a task sits on the board: the pool or an hour slot.
type Location int

// Pool is the unscheduled task list.
const Pool Location = 0

// Slot returns the location of the given grid hour. It panics on hours
// outside the grid.
func Slot(hour int) Location {
	mustSlot(hour)
	return Location(hour)
}

// LocationOf returns where t currently sits.
func LocationOf(t model.Task) Location {
	if h, ok := t.Slot(); ok && t.Scheduled {
		return Location(h)
	}
	return Pool
}

// Hour returns the slot hour, or false for the pool.
func (l Location) Hour() (int, bool) {
	if l == Pool {
		return 0, false
	}
	return int(l), true
}

func (l Location) String() string {
	if l == Pool {
		return "pool"
	}
	return "slot " + strconv.Itoa(int(l))
}

// EventKind classifies a move by its source and destination.
type EventKind int

const (
	EventReordered EventKind = iota
	EventScheduled
	EventUnscheduled
	EventMoved
)

func (k EventKind) String() string {
	switch k {
	case EventScheduled:
		return "scheduled"
	case EventUnscheduled:
		return "unscheduled"
	case EventMoved:
		return "moved"
	default:
		return "reordered"
	}
}

// Event is one drag-and-drop gesture.
type Event struct {
	TaskID string
	From   Location
	To     Location
}

// Kind derives the event kind from From and To.
func (e Event) Kind() EventKind {
	switch {
	case e.From == Pool && e.To == Pool:
		return EventReordered
	case e.From == Pool:
		return EventScheduled
	case e.To == Pool:
		return EventUnscheduled
	default:
		return EventMoved
	}
}

// Outcome reports what Apply did.
type Outcome struct {
	Kind EventKind
	Task model.Task

	// Displaced holds completed occupants deleted to make room.
	Displaced []model.Task

	// Reminder is set when a reminder was armed for Task.
	Reminder *reminder.Handle

	// Noop is true when the store was not touched.
	Noop bool
}

// ReminderScheduler arms and cancels per-task reminders.
// *reminder.Scheduler implements it.
type ReminderScheduler interface {
	ScheduleAt(taskID, title string, at time.Time) (*reminder.Handle, bool)
	Cancel(taskID string) bool
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReminders enables reminders for scheduled tasks.
func WithReminders(r ReminderScheduler) ReconcilerOption {
	return func(rc *Reconciler) {
		rc.reminders = r
	}
}

// WithNow sets the clock used to resolve a slot hour to today's date.
func WithNow(now func() time.Time) ReconcilerOption {
	return func(rc *Reconciler) {
		if now != nil {
			rc.now = now
		}
	}
}

// WithReconcilerLogger sets the logger.
func WithReconcilerLogger(l *zap.Logger) ReconcilerOption {
	return func(rc *Reconciler) {
		if l != nil {
			rc.logger = l
		}
	}
}

// Reconciler applies board gestures to the task repository, enforcing
// the one-active-task-per-slot rule.
type Reconciler struct {
	mu        sync.Mutex
	repo      TaskRepository
	reminders ReminderScheduler
	now       func() time.Time
	logger    *zap.Logger
}

// NewReconciler creates a Reconciler over repo.
func NewReconciler(repo TaskRepository, opts ...ReconcilerOption) (*Reconciler, error) {
	if repo == nil {
		return nil, errors.New("planner: reconciler requires a task repository")
	}
	rc := &Reconciler{
		repo:   repo,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc, nil
}

// Apply performs ev. The task's current location in the store is
// authoritative; ev.From is only used for logging a stale view. A
// rejected placement returns *SlotOccupiedError and leaves the task where
// it was.
func (rc *Reconciler) Apply(ctx context.Context, ev Event) (Outcome, error) {
	if _, ok := ev.To.Hour(); ok {
		mustSlot(int(ev.To))
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	t, ok := rc.repo.Get(ev.TaskID)
	if !ok {
		return Outcome{}, fmt.Errorf("applying %s event: %w", ev.Kind(), ErrTaskNotFound)
	}

	from := LocationOf(t)
	if from != ev.From {
		rc.logger.Debug("event source differs from store",
			zap.String("task_id", t.ID),
			zap.Stringer("event_from", ev.From),
			zap.Stringer("store_from", from),
		)
	}
	actual := Event{TaskID: t.ID, From: from, To: ev.To}
	out := Outcome{Kind: actual.Kind(), Task: t}

	switch out.Kind {
	case EventReordered:
		out.Noop = true
		return out, nil
	case EventUnscheduled:
		updated, _, err := rc.repo.Update(ctx, t.ID, TaskPatch{ClearSlot: true})
		rc.cancelReminder(t.ID)
		if updated.ID != "" {
			out.Task = updated
		}
		return out, err
	}

	hour := int(ev.To)
	if from == ev.To {
		out.Noop = true
		return out, nil
	}
	return rc.place(ctx, out, hour)
}

// MoveTo moves the task to dest from wherever it currently is.
func (rc *Reconciler) MoveTo(ctx context.Context, id string, dest Location) (Outcome, error) {
	t, ok := rc.repo.Get(id)
	if !ok {
		return Outcome{}, fmt.Errorf("moving %s: %w", id, ErrTaskNotFound)
	}
	return rc.Apply(ctx, Event{TaskID: id, From: LocationOf(t), To: dest})
}

// place runs the occupancy rule and puts out.Task on hour. Callers hold
// rc.mu.
func (rc *Reconciler) place(ctx context.Context, out Outcome, hour int) (Outcome, error) {
	displace, err := NewSchedule(rc.repo.List(Filter{})).Check(hour, out.Task.ID)
	if err != nil {
		rc.logger.Info("placement rejected",
			zap.String("task_id", out.Task.ID),
			zap.Int("hour", hour),
			zap.Error(err),
		)
		return out, err
	}

	var persistErr error
	out.Displaced, persistErr = rc.displace(ctx, displace)

	h := hour
	updated, _, err := rc.repo.Update(ctx, out.Task.ID, TaskPatch{Slot: &h})
	if err != nil && !IsPersist(err) {
		return out, err
	}
	if persistErr == nil {
		persistErr = err
	}
	out.Task = updated

	out.Reminder = rc.armReminder(updated)
	return out, persistErr
}

// displace deletes completed occupants. Persist failures do not stop the
// sequence; the first one is returned.
func (rc *Reconciler) displace(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	var (
		removed  []model.Task
		firstErr error
	)
	for _, d := range tasks {
		gone, ok, err := rc.repo.Delete(ctx, d.ID)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !ok {
			continue
		}
		rc.cancelReminder(d.ID)
		removed = append(removed, gone)
		rc.logger.Info("displaced completed task", zap.String("task_id", d.ID), zap.Stringp("slot", d.ScheduledTime))
	}
	return removed, firstErr
}

// CreateInSlot creates a task directly on hour, displacing completed
// occupants. Input is validated before anything is deleted.
func (rc *Reconciler) CreateInSlot(ctx context.Context, in TaskInput, hour int) (Outcome, error) {
	h := hour
	in.Slot = &h
	if _, err := buildTask(in); err != nil {
		return Outcome{}, err
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := Outcome{Kind: EventScheduled}
	displace, err := NewSchedule(rc.repo.List(Filter{})).Check(hour, "")
	if err != nil {
		return out, err
	}

	var persistErr error
	out.Displaced, persistErr = rc.displace(ctx, displace)

	t, err := rc.repo.Create(ctx, in)
	if err != nil && !IsPersist(err) {
		return out, err
	}
	if persistErr == nil {
		persistErr = err
	}
	out.Task = t
	out.Reminder = rc.armReminder(t)
	return out, persistErr
}

// Delete removes a task and cancels its reminder.
func (rc *Reconciler) Delete(ctx context.Context, id string) (model.Task, bool, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	t, ok, err := rc.repo.Delete(ctx, id)
	if ok {
		rc.cancelReminder(id)
	}
	return t, ok, err
}

// ToggleComplete flips the completed flag. Completing a task cancels its
// reminder. Reopening a scheduled task is refused with
// *SlotOccupiedError when another active task holds its slot.
func (rc *Reconciler) ToggleComplete(ctx context.Context, id string) (model.Task, bool, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	t, ok := rc.repo.Get(id)
	if !ok {
		return model.Task{}, false, nil
	}

	if t.Completed {
		if h, scheduled := t.Slot(); scheduled && t.Scheduled {
			if _, err := NewSchedule(rc.repo.List(Filter{})).Check(h, t.ID); err != nil {
				return t, true, err
			}
		}
	}

	done := !t.Completed
	updated, ok, err := rc.repo.Update(ctx, id, TaskPatch{Completed: &done})
	if !ok {
		return model.Task{}, false, err
	}
	if updated.Completed {
		rc.cancelReminder(id)
	} else {
		rc.armReminder(updated)
	}
	return updated, true, err
}

// Clear removes every task and cancels all reminders.
func (rc *Reconciler) Clear(ctx context.Context) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	tasks := rc.repo.List(Filter{})
	for _, t := range tasks {
		rc.cancelReminder(t.ID)
	}

	if c, ok := rc.repo.(interface{ Clear(context.Context) error }); ok {
		return c.Clear(ctx)
	}

	var firstErr error
	for _, t := range tasks {
		if _, _, err := rc.repo.Delete(ctx, t.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ArmReminders schedules reminders for every active scheduled task whose
// reminder time is still ahead. It returns how many were armed.
func (rc *Reconciler) ArmReminders() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	scheduled := true
	armed := 0
	for _, t := range rc.repo.List(Filter{Scheduled: &scheduled}) {
		if rc.armReminder(t) != nil {
			armed++
		}
	}
	return armed
}

// SlotTimeToday resolves hour to a wall-clock time on today's date.
func (rc *Reconciler) SlotTimeToday(hour int) time.Time {
	n := rc.now()
	return time.Date(n.Year(), n.Month(), n.Day(), hour, 0, 0, 0, n.Location())
}

func (rc *Reconciler) armReminder(t model.Task) *reminder.Handle {
	if rc.reminders == nil || !t.Active() {
		return nil
	}
	hour, ok := t.Slot()
	if !ok {
		return nil
	}
	h, ok := rc.reminders.ScheduleAt(t.ID, t.Title, rc.SlotTimeToday(hour))
	if !ok {
		return nil
	}
	return h
}

func (rc *Reconciler) cancelReminder(id string) {
	if rc.reminders == nil {
		return
	}
	rc.reminders.Cancel(id)
}

// Import replaces the task list with doc's tasks. Reminders for the old
// tasks are cancelled and the imported ones are armed.
func (rc *Reconciler) Import(ctx context.Context, dst Replacer, doc model.ExportDocument) (int, error) {
	rc.mu.Lock()
	before := rc.repo.List(Filter{})
	rc.mu.Unlock()

	n, err := ImportTasks(ctx, dst, doc)
	if IsValidation(err) {
		return 0, err
	}

	rc.mu.Lock()
	for _, t := range before {
		rc.cancelReminder(t.ID)
	}
	rc.mu.Unlock()

	rc.ArmReminders()
	return n, err
}
