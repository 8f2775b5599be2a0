package service

import (
	"context"
	"errors"
	"time"

	"task-tamer/internal/model"
	"task-tamer/internal/selector"
)

type spinStore interface {
	Find(ctx context.Context, userID uint, date string) (*model.DailySpin, error)
	GetOrCreate(ctx context.Context, userID uint, date string) (*model.DailySpin, bool, error)
	SavePicks(ctx context.Context, spin *model.DailySpin, picks string) error
	Reroll(ctx context.Context, spin *model.DailySpin, picks string, max int) error
}

// Spin is today's spin record with its picks resolved against the task list.
type Spin struct {
	Record model.DailySpin
	Picks  []model.Task
	// Fresh is set when the picks were drawn by this call.
	Fresh bool
}

// SpinService runs the daily spin and enforces the re-roll budget.
type SpinService struct {
	store    spinStore
	selector *selector.Selector
	loc      *time.Location
}

func NewSpinService(store spinStore, sel *selector.Selector, loc *time.Location) *SpinService {
	if sel == nil {
		sel = selector.New(nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &SpinService{store: store, selector: sel, loc: loc}
}

// Today returns the day's spin, creating it on the first visit. The first
// draw of the day is free; later visits show the stored picks. When none of
// the stored picks exist anymore the day is drawn again for free.
func (s *SpinService) Today(ctx context.Context, user *model.User, tasks []model.Task, now time.Time) (*Spin, error) {
	record, _, err := s.store.GetOrCreate(ctx, user.ID, model.Day(now, s.loc))
	if err != nil {
		return nil, err
	}

	if stored := resolvePicks(record.PickIDs(), tasks); len(stored) > 0 {
		return &Spin{Record: *record, Picks: stored}, nil
	}

	picks := s.selector.Pick(tasks)
	if len(picks) > 0 || record.Picks != "" {
		if err := s.store.SavePicks(ctx, record, model.EncodePicks(picks)); err != nil {
			return nil, err
		}
	}
	return &Spin{Record: *record, Picks: picks, Fresh: true}, nil
}

// Reroll draws new picks and consumes one re-roll. The draw is only
// returned once the incremented counter is persisted; on any error the
// stored spin is unchanged.
func (s *SpinService) Reroll(ctx context.Context, user *model.User, tasks []model.Task, now time.Time) (*Spin, error) {
	record, _, err := s.store.GetOrCreate(ctx, user.ID, model.Day(now, s.loc))
	if err != nil {
		return nil, err
	}
	if record.RerollCount >= model.MaxRerolls {
		return &Spin{Record: *record, Picks: resolvePicks(record.PickIDs(), tasks)}, ErrRerollLimit
	}

	picks := s.selector.Pick(tasks)
	if err := s.store.Reroll(ctx, record, model.EncodePicks(picks), model.MaxRerolls); err != nil {
		if errors.Is(err, ErrRerollLimit) {
			return s.limitReached(ctx, user, tasks, now)
		}
		return nil, err
	}
	return &Spin{Record: *record, Picks: picks, Fresh: true}, nil
}

// limitReached reports the budget as spent by a concurrent re-roll, with the
// picks that re-roll stored.
func (s *SpinService) limitReached(ctx context.Context, user *model.User, tasks []model.Task, now time.Time) (*Spin, error) {
	record, err := s.store.Find(ctx, user.ID, model.Day(now, s.loc))
	if err != nil {
		return nil, err
	}
	return &Spin{Record: *record, Picks: resolvePicks(record.PickIDs(), tasks)}, ErrRerollLimit
}

// Peek returns today's spin without creating one. A nil spin means the user has not spun today.
func (s *SpinService) Peek(ctx context.Context, user *model.User, tasks []model.Task, now time.Time) (*Spin, error) {
	record, err := s.store.Find(ctx, user.ID, model.Day(now, s.loc))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &Spin{Record: *record, Picks: resolvePicks(record.PickIDs(), tasks)}, nil
}

// resolvePicks keeps the stored order and drops tasks that no longer exist.
func resolvePicks(ids []uint, tasks []model.Task) []model.Task {
	byID := make(map[uint]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	picks := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			picks = append(picks, t)
		}
	}
	return picks
}
