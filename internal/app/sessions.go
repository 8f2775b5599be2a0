package app

import (
	"context"
	"log"
	"sync"

	"task-tamer/internal/model"
)

// EventKind tells subscribers what changed.
type EventKind int

const (
	EventSignedIn EventKind = iota
	EventSignedOut
	EventTasksChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventTasksChanged:
		return "tasks_changed"
	default:
		return "unknown"
	}
}

// Event is delivered synchronously to every subscriber.
type Event struct {
	Kind EventKind
	User model.User
}

// Identity is what the chat platform tells us about a user.
type Identity struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
}

type userBackend interface {
	UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error)
}

// Sessions is the registry of signed-in users, keyed by Telegram ID.
type Sessions struct {
	users userBackend
	tasks taskBackend

	mu          sync.Mutex
	states      map[int64]*State
	subscribers []func(Event)
}

func NewSessions(users userBackend, tasks taskBackend) *Sessions {
	return &Sessions{users: users, tasks: tasks, states: make(map[int64]*State)}
}

// Subscribe registers fn for every future event.
func (s *Sessions) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// SignIn upserts the user and loads their tasks. Signing in again refreshes the profile and the list.
func (s *Sessions) SignIn(ctx context.Context, id Identity) (*State, error) {
	user, err := s.users.UpsertFromTelegram(ctx, id.TelegramID, id.FirstName, id.LastName, id.Username)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	state, ok := s.states[id.TelegramID]
	if ok {
		state.mu.Lock()
		state.user = *user
		state.mu.Unlock()
	} else {
		state = newState(*user, s.tasks, s.publish)
	}
	s.mu.Unlock()

	if err := state.Refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.states[id.TelegramID] = state
	s.mu.Unlock()
	if !ok {
		log.Printf("[info] signed in user=%d telegram=%d", user.ID, id.TelegramID)
		s.publish(Event{Kind: EventSignedIn, User: *user})
	}
	return state, nil
}

// SignOut drops the session. It reports whether one existed.
func (s *Sessions) SignOut(telegramID int64) bool {
	s.mu.Lock()
	state, ok := s.states[telegramID]
	delete(s.states, telegramID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	user := state.User()
	log.Printf("[info] signed out user=%d telegram=%d", user.ID, telegramID)
	s.publish(Event{Kind: EventSignedOut, User: user})
	return true
}

// Current returns the session of telegramID or ErrNotSignedIn.
func (s *Sessions) Current(telegramID int64) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[telegramID]
	if !ok {
		return nil, ErrNotSignedIn
	}
	return state, nil
}

// All returns every signed-in session.
func (s *Sessions) All() []*State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	return out
}

func (s *Sessions) publish(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
