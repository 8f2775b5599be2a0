// Package app holds the per-user application state and the session registry
// that signs users in and out.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"task-tamer/internal/model"
	"task-tamer/internal/service"
)

// ErrNotSignedIn is returned for operations on a user without a session.
var ErrNotSignedIn = errors.New("not signed in")

type taskBackend interface {
	CreateTask(ctx context.Context, user *model.User, input service.TaskInput) (*model.Task, error)
	ListAll(ctx context.Context, user *model.User) ([]model.Task, error)
	CompleteTask(ctx context.Context, user *model.User, taskID uint, completedAt time.Time) (*model.Task, error)
	DeleteTask(ctx context.Context, user *model.User, taskID uint) error
}

// State is the signed-in user and their task list. The list is only ever
// replaced by a successful read from the store, so a failed write or read
// leaves the previous list in place.
type State struct {
	tasks  taskBackend
	notify func(Event)

	mu     sync.RWMutex
	user   model.User
	list   []model.Task
	loaded bool
}

func newState(user model.User, tasks taskBackend, notify func(Event)) *State {
	return &State{user: user, tasks: tasks, notify: notify}
}

func (s *State) User() model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Tasks returns a copy of the current list, newest first.
func (s *State) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.list))
	copy(out, s.list)
	return out
}

// Loaded reports whether the list has been read at least once.
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Task looks a task up in the current list.
func (s *State) Task(id uint) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.list {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Refresh re-reads the whole list from the store.
func (s *State) Refresh(ctx context.Context) error {
	user := s.User()
	list, err := s.tasks.ListAll(ctx, &user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.list = list
	s.loaded = true
	s.mu.Unlock()
	s.emit(EventTasksChanged)
	return nil
}

// AddTask creates a task and then refreshes the list.
func (s *State) AddTask(ctx context.Context, input service.TaskInput) (*model.Task, error) {
	user := s.User()
	task, err := s.tasks.CreateTask(ctx, &user, input)
	if err != nil {
		return nil, err
	}
	return task, s.Refresh(ctx)
}

// CompleteTask marks the task done at now and then refreshes the list.
func (s *State) CompleteTask(ctx context.Context, taskID uint, now time.Time) (*model.Task, error) {
	user := s.User()
	task, err := s.tasks.CompleteTask(ctx, &user, taskID, now)
	if err != nil {
		return task, err
	}
	return task, s.Refresh(ctx)
}

// DeleteTask removes the task and then refreshes the list.
func (s *State) DeleteTask(ctx context.Context, taskID uint) error {
	user := s.User()
	if err := s.tasks.DeleteTask(ctx, &user, taskID); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// EnsureLoaded reads the list on first use.
func (s *State) EnsureLoaded(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *State) emit(kind EventKind) {
	if s.notify == nil {
		return
	}
	s.notify(Event{Kind: kind, User: s.User()})
}
