package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"task-tamer/internal/model"
	"task-tamer/internal/timer"
)

type focusStore interface {
	Create(ctx context.Context, session *model.FocusSession) error
	ListBetween(ctx context.Context, userID uint, from, to time.Time) ([]model.FocusSession, error)
}

// FocusView is a point-in-time copy of a running focus session.
type FocusView struct {
	ID        string
	UserID    uint
	ChatID    int64
	Task      model.Task
	StartedAt time.Time
	Duration  time.Duration
	Remaining time.Duration
	Progress  float64
	State     timer.State
	Expired   bool
}

type activeFocus struct {
	id        string
	userID    uint
	chatID    int64
	task      model.Task
	startedAt time.Time
	countdown *timer.Countdown
	notified  bool
}

func (a *activeFocus) view() FocusView {
	state := a.countdown.State()
	return FocusView{
		ID:        a.id,
		UserID:    a.userID,
		ChatID:    a.chatID,
		Task:      a.task,
		StartedAt: a.startedAt,
		Duration:  a.countdown.Duration(),
		Remaining: a.countdown.Remaining(),
		Progress:  a.countdown.Progress(),
		State:     state,
		Expired:   a.countdown.Expired(),
	}
}

// FocusService keeps one countdown per user and records finished sessions.
type FocusService struct {
	store focusStore
	clock timer.Clock

	mu     sync.Mutex
	active map[uint]*activeFocus
}

func NewFocusService(store focusStore, clock timer.Clock) *FocusService {
	if clock == nil {
		clock = timer.SystemClock
	}
	return &FocusService{store: store, clock: clock, active: make(map[uint]*activeFocus)}
}

// Start begins a running countdown on task. A session that already finished
// but still waits for its reflection is replaced.
func (s *FocusService) Start(user *model.User, chatID int64, task model.Task, d time.Duration) (FocusView, error) {
	if task.Completed {
		return FocusView{}, ErrTaskCompleted
	}
	if d == 0 {
		d = timer.DefaultDuration
	}
	countdown, err := timer.New(d, s.clock)
	if err != nil {
		return FocusView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.active[user.ID]; ok && current.countdown.State() != timer.StateFinished {
		return current.view(), ErrFocusRunning
	}

	countdown.Start()
	a := &activeFocus{
		id:        uuid.NewString(),
		userID:    user.ID,
		chatID:    chatID,
		task:      task,
		startedAt: s.clock.Now(),
		countdown: countdown,
	}
	s.active[user.ID] = a
	return a.view(), nil
}

func (s *FocusService) Active(userID uint) (FocusView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.active[userID]
	if !ok {
		return FocusView{}, false
	}
	return a.view(), true
}

// Toggle pauses or resumes the user's countdown.
func (s *FocusService) Toggle(userID uint) (FocusView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.active[userID]
	if !ok {
		return FocusView{}, ErrNoActiveFocus
	}
	a.countdown.Toggle()
	return a.view(), nil
}

// Stop ends the countdown early; the session then waits for Finish.
func (s *FocusService) Stop(userID uint) (FocusView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.active[userID]
	if !ok {
		return FocusView{}, ErrNoActiveFocus
	}
	a.countdown.Done()
	a.notified = true
	return a.view(), nil
}

// Finish records the session with the user's reflection and forgets it.
// When the write fails the session stays active so the user can retry.
func (s *FocusService) Finish(ctx context.Context, user *model.User, howItWent string) (*model.FocusSession, error) {
	s.mu.Lock()
	a, ok := s.active[user.ID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoActiveFocus
	}
	a.countdown.Done()
	session := &model.FocusSession{
		ID:              a.id,
		UserID:          user.ID,
		TaskID:          a.task.ID,
		DurationMinutes: int(a.countdown.Duration() / time.Minute),
		HowItWent:       howItWent,
		StartedAt:       a.startedAt,
		CompletedAt:     s.clock.Now(),
	}
	s.mu.Unlock()

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if current, ok := s.active[user.ID]; ok && current.id == session.ID {
		delete(s.active, user.ID)
	}
	s.mu.Unlock()
	return session, nil
}

// Cancel drops the user's session without recording it.
func (s *FocusService) Cancel(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	delete(s.active, userID)
	return ok
}

// CollectExpired returns countdowns that ran out since the last call. Each
// expiry is reported once.
func (s *FocusService) CollectExpired() []FocusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FocusView
	for _, a := range s.active {
		if a.notified || !a.countdown.Expired() {
			continue
		}
		a.notified = true
		out = append(out, a.view())
	}
	return out
}

// MinutesOn sums the planned minutes of sessions finished on the day of now.
func (s *FocusService) MinutesOn(ctx context.Context, user *model.User, now time.Time, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	sessions, err := s.store.ListBetween(ctx, user.ID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("focus minutes: %w", err)
	}
	total := 0
	for _, session := range sessions {
		total += session.DurationMinutes
	}
	return total, nil
}
