package planner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nhle/daily-docket/internal/model"
)

// Editor tracks which tasks have an open inline editor so that a task is
// never edited twice at once.
type Editor struct {
	mu      sync.Mutex
	repo    TaskRepository
	editing map[string]struct{}
}

// NewEditor creates an Editor over repo.
func NewEditor(repo TaskRepository) *Editor {
	return &Editor{repo: repo, editing: make(map[string]struct{})}
}

// Begin opens an editor for id and returns the task as it is now.
func (e *Editor) Begin(id string) (model.Task, error) {
	t, ok := e.repo.Get(id)
	if !ok {
		return model.Task{}, fmt.Errorf("editing %s: %w", id, ErrTaskNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, open := e.editing[id]; open {
		return model.Task{}, fmt.Errorf("editing %s: %w", id, ErrAlreadyEditing)
	}
	e.editing[id] = struct{}{}
	return t, nil
}

// Save applies patch and closes the editor. Scheduling fields in patch
// are ignored; moving a task goes through the Reconciler. On a
// validation error the editor stays open so the user can correct it.
func (e *Editor) Save(ctx context.Context, id string, patch TaskPatch) (model.Task, error) {
	e.mu.Lock()
	_, open := e.editing[id]
	e.mu.Unlock()
	if !open {
		return model.Task{}, fmt.Errorf("saving %s: %w", id, ErrNotEditing)
	}

	patch.Slot = nil
	patch.ClearSlot = false
	patch.Completed = nil

	t, ok, err := e.repo.Update(ctx, id, patch)
	if IsValidation(err) {
		return model.Task{}, err
	}

	e.close(id)
	if !ok {
		return model.Task{}, fmt.Errorf("saving %s: %w", id, ErrTaskNotFound)
	}
	return t, err
}

// Cancel closes the editor for id without saving. It reports whether an
// editor was open.
func (e *Editor) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, open := e.editing[id]; !open {
		return false
	}
	delete(e.editing, id)
	return true
}

// Editing reports whether id has an open editor.
func (e *Editor) Editing(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, open := e.editing[id]
	return open
}

// Open lists the ids with an open editor, sorted.
func (e *Editor) Open() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.editing))
	for id := range e.editing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Editor) close(id string) {
	e.mu.Lock()
	delete(e.editing, id)
	e.mu.Unlock()
}
