// Package collection keeps the in-memory task list consistent with the
// remote service.
//
// List-replacing loads (all, by category, pending, completed, search) are
// mutually exclusive views: each dispatch takes a sequence number and only
// the latest dispatch may replace the list. Mutations (create, update,
// delete, status) are independent and may run concurrently; each result is
// applied under the lock in a single step.
package collection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"taskflow/internal/service"
)

// Status is the load status of the collection.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "error"
	default:
		return "idle"
	}
}

// ErrSuperseded is returned by a load whose result was dropped because a
// newer load was dispatched (or the view was cancelled) before it arrived.
var ErrSuperseded = errors.New("superseded by a newer request")

const msgLoadFailed = "failed to load tasks"

// Snapshot is a copy of the collection's observable state.
type Snapshot struct {
	Items    []service.Task
	Status   Status
	Err      string
	Selected *service.Task
}

// State is the task collection. It is safe for concurrent use.
type State struct {
	svc service.TaskService
	log *slog.Logger

	mu       sync.Mutex
	items    []service.Task
	status   Status
	err      string
	selected *service.Task
	seq      uint64
}

// New creates an empty, idle collection over svc.
func New(svc service.TaskService, log *slog.Logger) *State {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{svc: svc, log: log, items: []service.Task{}}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Items:  s.itemsCopy(),
		Status: s.status,
		Err:    s.err,
	}
	if s.selected != nil {
		t := *s.selected
		snap.Selected = &t
	}
	return snap
}

// Items returns a copy of the current list.
func (s *State) Items() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsCopy()
}

// Find returns the listed task with id.
func (s *State) Find(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return service.Task{}, false
}

func (s *State) itemsCopy() []service.Task {
	out := make([]service.Task, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State) index(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ResetError clears the error message and nothing else.
func (s *State) ResetError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// Clear drops the selected task and the error message.
func (s *State) Clear() {
	s.mu.Lock()
	s.selected = nil
	s.err = ""
	s.mu.Unlock()
}

// Cancel drops interest in any in-flight load; its result is discarded on
// arrival. Used when leaving the task view.
func (s *State) Cancel() {
	s.mu.Lock()
	s.seq++
	if s.status == Loading {
		s.status = Idle
	}
	s.mu.Unlock()
}

// LoadAll replaces the list with all of the owner's tasks.
func (s *State) LoadAll(ctx context.Context, ownerID string) ([]service.Task, error) {
	return s.load(ctx, "all", func(ctx context.Context) (service.Envelope, error) {
		return s.svc.List(ctx, ownerID)
	})
}

// LoadByCategory replaces the list with the owner's tasks in category.
func (s *State) LoadByCategory(ctx context.Context, ownerID string, category service.Category) ([]service.Task, error) {
	return s.load(ctx, "category", func(ctx context.Context) (service.Envelope, error) {
		return s.svc.ListByCategory(ctx, ownerID, category)
	})
}

// LoadPending replaces the list with the owner's pending tasks.
func (s *State) LoadPending(ctx context.Context, ownerID string) ([]service.Task, error) {
	return s.load(ctx, "pending", func(ctx context.Context) (service.Envelope, error) {
		return s.svc.ListPending(ctx, ownerID)
	})
}

// LoadCompleted replaces the list with the owner's completed tasks.
func (s *State) LoadCompleted(ctx context.Context, ownerID string) ([]service.Task, error) {
	return s.load(ctx, "completed", func(ctx context.Context) (service.Envelope, error) {
		return s.svc.ListCompleted(ctx, ownerID)
	})
}

// Search replaces the list with the tasks matching query.
func (s *State) Search(ctx context.Context, query string) ([]service.Task, error) {
	return s.load(ctx, "search", func(ctx context.Context) (service.Envelope, error) {
		return s.svc.Search(ctx, query)
	})
}

func (s *State) load(ctx context.Context, view string, fetch func(context.Context) (service.Envelope, error)) ([]service.Task, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.status = Loading
	s.err = ""
	s.mu.Unlock()

	env, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		s.log.Debug("dropped stale load", "view", view, "seq", token, "latest", s.seq)
		return nil, ErrSuperseded
	}
	if err != nil {
		s.status = Failed
		s.err = service.Message(err, msgLoadFailed)
		return nil, err
	}
	s.items = unique(env.Tasks)
	s.status = Loaded
	s.log.Debug("loaded", "view", view, "count", len(s.items))
	return s.itemsCopy(), nil
}

// unique keeps the first task for each id, preserving order.
func unique(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// Fetch loads a single task into Selected. The list is not touched.
func (s *State) Fetch(ctx context.Context, taskID string) (service.Task, error) {
	env, err := s.svc.GetByID(ctx, taskID)
	if err != nil {
		return service.Task{}, s.fail(err)
	}
	if env.Task == nil {
		return service.Task{}, s.fail(&service.Error{Kind: service.KindNotFound, Message: "task not found"})
	}
	s.mu.Lock()
	t := *env.Task
	s.selected = &t
	s.mu.Unlock()
	return t, nil
}

// Create creates a task and appends it to the list. The input is not
// validated here.
func (s *State) Create(ctx context.Context, input service.TaskInput) (service.Task, error) {
	env, err := s.svc.Create(ctx, input)
	if err != nil {
		return service.Task{}, s.fail(err)
	}
	if env.Task == nil {
		return service.Task{}, s.fail(errNoTask)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(env.Task.ID); i >= 0 {
		// A reload already picked it up.
		s.items[i] = *env.Task
	} else {
		s.items = append(s.items, *env.Task)
	}
	return *env.Task, nil
}

// Update applies a partial update and replaces the listed task. A task that
// is not listed stays unlisted.
func (s *State) Update(ctx context.Context, taskID string, patch service.TaskPatch) (service.Task, error) {
	env, err := s.svc.Update(ctx, taskID, patch)
	if err != nil {
		return service.Task{}, s.fail(err)
	}
	return s.replace(env)
}

// ToggleStatus sets a task's status and replaces the listed task, with the
// same miss semantics as Update.
func (s *State) ToggleStatus(ctx context.Context, taskID string, status service.Status) (service.Task, error) {
	env, err := s.svc.ToggleStatus(ctx, taskID, status)
	if err != nil {
		return service.Task{}, s.fail(err)
	}
	return s.replace(env)
}

// Delete removes a task. Removing an unlisted id leaves the list unchanged.
func (s *State) Delete(ctx context.Context, taskID string) error {
	if _, err := s.svc.Delete(ctx, taskID); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(taskID); i >= 0 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	if s.selected != nil && s.selected.ID == taskID {
		s.selected = nil
	}
	return nil
}

var errNoTask = &service.Error{Kind: service.KindTransport, Message: "service returned no task"}

func (s *State) replace(env service.Envelope) (service.Task, error) {
	if env.Task == nil {
		return service.Task{}, s.fail(errNoTask)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(env.Task.ID); i >= 0 {
		s.items[i] = *env.Task
	} else {
		s.log.Debug("update for unlisted task dropped", "id", env.Task.ID)
	}
	if s.selected != nil && s.selected.ID == env.Task.ID {
		t := *env.Task
		s.selected = &t
	}
	return *env.Task, nil
}

// fail records a mutation failure. The list and status are unchanged.
func (s *State) fail(err error) error {
	s.mu.Lock()
	s.err = service.Message(err, "request failed")
	s.mu.Unlock()
	return err
}
