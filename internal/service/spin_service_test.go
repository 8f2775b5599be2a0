package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tamer/internal/model"
	"task-tamer/internal/repository"
	"task-tamer/internal/selector"
)

// flakyStore fails re-roll writes while broken is set.
type flakyStore struct {
	*repository.SpinRepository
	broken bool
}

func (s *flakyStore) Reroll(ctx context.Context, spin *model.DailySpin, picks string, max int) error {
	if s.broken {
		return errors.New("connection refused")
	}
	return s.SpinRepository.Reroll(ctx, spin, picks, max)
}

// racingStore spends the whole budget from another device right before
// its own re-roll write, so that write hits the limit.
type racingStore struct {
	*repository.SpinRepository
}

func (s *racingStore) Reroll(ctx context.Context, spin *model.DailySpin, picks string, max int) error {
	other := *spin
	for {
		if err := s.SpinRepository.Reroll(ctx, &other, picks, max); err != nil {
			return err
		}
	}
}

func seedTasks(t *testing.T, svc *TaskService, user *model.User) []model.Task {
	t.Helper()
	inputs := []TaskInput{
		{Title: "U1", Category: model.CategoryUrgent},
		{Title: "I1", Category: model.CategoryImportant},
		{Title: "S1", Category: model.CategorySoon},
		{Title: "D1", Category: model.CategorySomeday},
	}
	for _, in := range inputs {
		_, err := svc.CreateTask(context.Background(), user, in)
		require.NoError(t, err)
	}
	tasks, err := svc.ListAll(context.Background(), user)
	require.NoError(t, err)
	return tasks
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestSpinTodayIsStable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	tasks := seedTasks(t, NewTaskService(repository.NewTaskRepository(db)), user)
	svc := NewSpinService(repository.NewSpinRepository(db), selector.New(nil), time.UTC)

	first, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)
	assert.True(t, first.Fresh)
	require.Len(t, first.Picks, 3)
	assert.Equal(t, "U1", first.Picks[0].Title)
	assert.Equal(t, "I1", first.Picks[1].Title)
	assert.Contains(t, []string{"S1", "D1"}, first.Picks[2].Title)
	assert.Equal(t, 0, first.Record.RerollCount)

	again, err := svc.Today(ctx, user, tasks, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again.Fresh)
	assert.Equal(t, titles(first.Picks), titles(again.Picks))
}

func TestSpinEmptyTaskList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	svc := NewSpinService(repository.NewSpinRepository(db), selector.New(firstSource{}), time.UTC)

	spin, err := svc.Today(ctx, user, nil, testNow)
	require.NoError(t, err)
	assert.Empty(t, spin.Picks)

	spin, err = svc.Reroll(ctx, user, nil, testNow)
	require.NoError(t, err)
	assert.Empty(t, spin.Picks)
	assert.Equal(t, 1, spin.Record.RerollCount)
}

func TestRerollBudget(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	tasks := seedTasks(t, NewTaskService(repository.NewTaskRepository(db)), user)
	svc := NewSpinService(repository.NewSpinRepository(db), selector.New(nil), time.UTC)

	_, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)

	for i := 1; i <= model.MaxRerolls; i++ {
		spin, err := svc.Reroll(ctx, user, tasks, testNow)
		require.NoError(t, err)
		assert.Equal(t, i, spin.Record.RerollCount)
		assert.Len(t, spin.Picks, 3)
	}

	spin, err := svc.Reroll(ctx, user, tasks, testNow)
	assert.ErrorIs(t, err, ErrRerollLimit)
	require.NotNil(t, spin)
	assert.Equal(t, model.MaxRerolls, spin.Record.RerollCount)
	assert.Len(t, spin.Picks, 3, "limit keeps the last picks on screen")

	next, err := svc.Today(ctx, user, tasks, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, next.Record.RerollCount, "a new day starts a new budget")
	assert.Equal(t, model.MaxRerolls, next.Record.RerollsLeft())
}

func TestRerollNotConsumedWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	tasks := seedTasks(t, NewTaskService(repository.NewTaskRepository(db)), user)
	repo := repository.NewSpinRepository(db)
	store := &flakyStore{SpinRepository: repo}
	svc := NewSpinService(store, selector.New(nil), time.UTC)

	first, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)

	store.broken = true
	spin, err := svc.Reroll(ctx, user, tasks, testNow)
	require.Error(t, err)
	assert.Nil(t, spin)

	stored, err := repo.Find(ctx, user.ID, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RerollCount)
	assert.Equal(t, first.Record.Picks, stored.Picks)

	store.broken = false
	spin, err = svc.Reroll(ctx, user, tasks, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, spin.Record.RerollCount)
}

func TestSpinPeek(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	tasks := seedTasks(t, NewTaskService(repository.NewTaskRepository(db)), user)
	svc := NewSpinService(repository.NewSpinRepository(db), selector.New(firstSource{}), time.UTC)

	none, err := svc.Peek(ctx, user, tasks, testNow)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)

	// Deleted picks drop out of the stored selection.
	remaining := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Title != "U1" {
			remaining = append(remaining, task)
		}
	}
	peek, err := svc.Peek(ctx, user, remaining, testNow)
	require.NoError(t, err)
	require.NotNil(t, peek)
	assert.NotContains(t, titles(peek.Picks), "U1")
	assert.Len(t, peek.Picks, 2)
}

func TestSpinRedrawsWhenStoredPicksAreGone(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	taskSvc := NewTaskService(repository.NewTaskRepository(db))
	svc := NewSpinService(repository.NewSpinRepository(db), selector.New(nil), time.UTC)

	only, err := taskSvc.CreateTask(ctx, user, TaskInput{Title: "U1", Category: model.CategoryUrgent})
	require.NoError(t, err)
	tasks, err := taskSvc.ListAll(ctx, user)
	require.NoError(t, err)
	first, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)
	require.Equal(t, []string{"U1"}, titles(first.Picks))

	require.NoError(t, taskSvc.DeleteTask(ctx, user, only.ID))
	for _, in := range []TaskInput{
		{Title: "I1", Category: model.CategoryImportant},
		{Title: "S1", Category: model.CategorySoon},
	} {
		_, err := taskSvc.CreateTask(ctx, user, in)
		require.NoError(t, err)
	}
	tasks, err = taskSvc.ListAll(ctx, user)
	require.NoError(t, err)

	again, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)
	assert.True(t, again.Fresh)
	assert.Equal(t, []string{"I1", "S1"}, titles(again.Picks))
	assert.Equal(t, 0, again.Record.RerollCount, "a redraw is free")

	stable, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)
	assert.False(t, stable.Fresh)
	assert.Equal(t, titles(again.Picks), titles(stable.Picks))
}

func TestRerollLostRaceReportsLimit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	tasks := seedTasks(t, NewTaskService(repository.NewTaskRepository(db)), user)
	svc := NewSpinService(&racingStore{SpinRepository: repository.NewSpinRepository(db)}, selector.New(nil), time.UTC)

	_, err := svc.Today(ctx, user, tasks, testNow)
	require.NoError(t, err)

	spin, err := svc.Reroll(ctx, user, tasks, testNow)
	assert.ErrorIs(t, err, ErrRerollLimit)
	require.NotNil(t, spin)
	assert.Equal(t, model.MaxRerolls, spin.Record.RerollCount)
	assert.Len(t, spin.Picks, 3)
}
