package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/store"
)

// TaskInput carries the fields for a new task. Zero values take defaults.
type TaskInput struct {
	Title       string
	Description string
	Priority    model.Priority
	Duration    int
	Completed   bool

	// Slot creates the task directly on the grid. The caller is
	// responsible for the occupancy check (see Reconciler.CreateInSlot).
	Slot *int
}

// TaskPatch is a shallow field overwrite. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *model.Priority
	Duration    *int
	Completed   *bool

	// Slot places the task on the given hour; ClearSlot returns it to the
	// pool. ClearSlot wins when both are set.
	Slot      *int
	ClearSlot bool
}

// Filter narrows List results. Nil fields are unconstrained; set fields
// are combined with AND.
type Filter struct {
	Priority  *model.Priority
	Completed *bool
	Scheduled *bool
}

// Match reports whether t satisfies every set field of f.
func (f Filter) Match(t model.Task) bool {
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Scheduled != nil && t.Scheduled != *f.Scheduled {
		return false
	}
	return true
}

// ChangeKind identifies the mutation behind a Change.
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeUpdated
	ChangeDeleted
	ChangeCleared
	ChangeReplaced
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind ChangeKind
	Task model.Task
	Err  error
}

// TaskRepository is the capability set the reconciler and editor need.
type TaskRepository interface {
	Create(ctx context.Context, in TaskInput) (model.Task, error)
	Get(id string) (model.Task, bool)
	Update(ctx context.Context, id string, patch TaskPatch) (model.Task, bool, error)
	Delete(ctx context.Context, id string) (model.Task, bool, error)
	List(f Filter) []model.Task
}

// StoreOption configures a TaskStore.
type StoreOption func(*TaskStore)

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *TaskStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for ids and CreatedAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *TaskStore) {
		if now != nil {
			s.now = now
		}
	}
}

// TaskStore owns the task list. Every mutation rewrites the whole list to
// the blob before returning.
type TaskStore struct {
	mu     sync.Mutex
	blob   store.Blob
	logger *zap.Logger
	now    func() time.Time
	newID  func(time.Time) string

	tasks  []model.Task
	issued map[string]struct{}

	subMu       sync.Mutex
	subscribers []func(Change)
}

var _ TaskRepository = (*TaskStore)(nil)

// NewTaskStore builds a store over blob and loads any saved tasks. A
// missing or unreadable blob yields an empty store.
func NewTaskStore(ctx context.Context, blob store.Blob, opts ...StoreOption) (*TaskStore, error) {
	if blob == nil {
		return nil, errors.New("planner: task store requires a blob")
	}

	s := &TaskStore{
		blob:   blob,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  newTaskID,
		issued: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tasks = s.load(ctx)
	for _, t := range s.tasks {
		s.issued[t.ID] = struct{}{}
	}
	return s, nil
}

// load reads the blob, tolerating absence and corrupt content.
func (s *TaskStore) load(ctx context.Context) []model.Task {
	raw, err := s.blob.Load(ctx, store.TasksKey)
	if errors.Is(err, store.ErrNotFound) {
		return []model.Task{}
	}
	if err != nil {
		s.logger.Error("failed to load tasks", zap.Error(err))
		return []model.Task{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Error("failed to parse saved tasks", zap.Error(err), zap.Int("bytes", len(raw)))
		return []model.Task{}
	}

	tasks := make([]model.Task, 0, len(records))
	for i, rec := range records {
		var t model.Task
		if err := json.Unmarshal(rec, &t); err != nil {
			s.logger.Warn("dropping unreadable saved task", zap.Int("index", i), zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	return s.normalizeLoaded(tasks)
}

// normalizeLoaded repairs records written by older or foreign clients so
// the scheduled/timeSlot invariant and id uniqueness hold.
func (s *TaskStore) normalizeLoaded(tasks []model.Task) []model.Task {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]model.Task, 0, len(tasks))

	for _, t := range tasks {
		if strings.TrimSpace(t.Title) == "" {
			s.logger.Warn("dropping saved task without title", zap.String("id", t.ID))
			continue
		}
		if _, dup := seen[t.ID]; t.ID == "" || dup {
			old := t.ID
			t.ID = s.uniqueID(seen)
			s.logger.Warn("reassigned task id", zap.String("old", old), zap.String("new", t.ID))
		}
		seen[t.ID] = struct{}{}

		if !t.Priority.Valid() {
			t.Priority = model.PriorityMedium
		}
		t.Duration = model.NormalizeDuration(t.Duration)

		if h, ok := t.Slot(); ok && model.ValidSlot(h) {
			t.Place(h)
		} else {
			if ok {
				s.logger.Warn("unscheduling task with out-of-range slot",
					zap.String("id", t.ID), zap.Int("slot", h))
			}
			t.Unplace()
		}
		out = append(out, t)
	}

	if hours := NewSchedule(out).Conflicts(); len(hours) > 0 {
		s.logger.Warn("saved tasks share active slots", zap.Ints("hours", hours))
	}
	return out
}

// uniqueID returns an id that is in neither taken nor the issued set.
func (s *TaskStore) uniqueID(taken map[string]struct{}) string {
	for {
		id := s.newID(s.now())
		if _, ok := taken[id]; ok {
			continue
		}
		if _, ok := s.issued[id]; ok {
			continue
		}
		return id
	}
}

// persist writes the full task list. Callers hold s.mu.
func (s *TaskStore) persist(ctx context.Context) error {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		return &PersistError{Err: fmt.Errorf("encoding tasks: %w", err)}
	}
	if err := s.blob.Save(ctx, store.TasksKey, data); err != nil {
		s.logger.Error("failed to save tasks", zap.Error(err), zap.Int("count", len(s.tasks)))
		return &PersistError{Err: err}
	}
	return nil
}

// indexOf returns the position of id, or -1. Callers hold s.mu.
func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// ValidateTitle trims title and rejects it when empty.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return title, nil
}

// buildTask validates in and fills defaults.
func buildTask(in TaskInput) (model.Task, error) {
	title, err := ValidateTitle(in.Title)
	if err != nil {
		return model.Task{}, err
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.Task{}, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", priority)}
	}

	t := model.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		Duration:    model.NormalizeDuration(in.Duration),
		Completed:   in.Completed,
	}
	if in.Slot != nil {
		if !model.ValidSlot(*in.Slot) {
			return model.Task{}, &ValidationError{
				Field:  "timeSlot",
				Reason: fmt.Sprintf("%d is outside %d..%d", *in.Slot, model.SlotStart, model.SlotEnd),
			}
		}
		t.Place(*in.Slot)
	}
	return t, nil
}

// Create validates and appends a new task.
func (s *TaskStore) Create(ctx context.Context, in TaskInput) (model.Task, error) {
	t, err := buildTask(in)
	if err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	now := s.now()
	t.ID = s.uniqueID(nil)
	t.CreatedAt = now
	s.issued[t.ID] = struct{}{}
	s.tasks = append(s.tasks, t)
	err = s.persist(ctx)
	out := t.Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeCreated, Task: out, Err: err})
	return out, err
}

// Get returns the task with the given id.
func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// List returns the tasks matching f in insertion order.
func (s *TaskStore) List(f Filter) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// applyPatch validates p against t and returns the patched copy.
func applyPatch(t model.Task, p TaskPatch) (model.Task, error) {
	if p.Title != nil {
		title, err := ValidateTitle(*p.Title)
		if err != nil {
			return t, err
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return t, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", *p.Priority)}
		}
		t.Priority = *p.Priority
	}
	if p.Duration != nil {
		t.Duration = model.NormalizeDuration(*p.Duration)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	switch {
	case p.ClearSlot:
		t.Unplace()
	case p.Slot != nil:
		if !model.ValidSlot(*p.Slot) {
			return t, &ValidationError{
				Field:  "timeSlot",
				Reason: fmt.Sprintf("%d is outside %d..%d", *p.Slot, model.SlotStart, model.SlotEnd),
			}
		}
		t.Place(*p.Slot)
	}
	return t, nil
}

// Update merges patch into the task with the given id. ok is false when
// the id is unknown.
func (s *TaskStore) Update(ctx context.Context, id string, patch TaskPatch) (model.Task, bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, false, nil
	}
	updated, err := applyPatch(s.tasks[i].Clone(), patch)
	if err != nil {
		s.mu.Unlock()
		return model.Task{}, true, err
	}
	s.tasks[i] = updated
	err = s.persist(ctx)
	out := updated.Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpdated, Task: out, Err: err})
	return out, true, err
}

// ToggleComplete flips the completed flag. Scheduling fields are untouched.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) (model.Task, bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, false, nil
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	err := s.persist(ctx)
	out := s.tasks[i].Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpdated, Task: out, Err: err})
	return out, true, err
}

// Delete removes and returns the task with the given id.
func (s *TaskStore) Delete(ctx context.Context, id string) (model.Task, bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, false, nil
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	err := s.persist(ctx)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeDeleted, Task: removed, Err: err})
	return removed, true, err
}

// Clear removes every task.
func (s *TaskStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.tasks = []model.Task{}
	err := s.persist(ctx)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeCleared, Err: err})
	return err
}

// Replace swaps the whole task list, e.g. after an import. Tasks are
// normalized the same way as on load.
func (s *TaskStore) Replace(ctx context.Context, tasks []model.Task) error {
	s.mu.Lock()
	next := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		next = append(next, t.Clone())
	}
	s.tasks = s.normalizeLoaded(next)
	for _, t := range s.tasks {
		s.issued[t.ID] = struct{}{}
	}
	err := s.persist(ctx)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReplaced, Err: err})
	return err
}

// Subscribe registers fn to run after every mutation. fn runs on the
// caller's goroutine after the store lock is released.
func (s *TaskStore) Subscribe(fn func(Change)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *TaskStore) notify(c Change) {
	s.subMu.Lock()
	subs := make([]func(Change), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}
