package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tamer/internal/model"
	"task-tamer/internal/repository"
	"task-tamer/internal/timer"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

type failingFocusStore struct{ focusStore }

func (failingFocusStore) Create(context.Context, *model.FocusSession) error {
	return errors.New("store unavailable")
}

func TestFocusLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	clock := &stepClock{now: testNow}
	repo := repository.NewFocusRepository(db)
	svc := NewFocusService(repo, clock)

	task := model.Task{ID: 7, UserID: user.ID, Title: "write report", Category: model.CategoryImportant}

	view, err := svc.Start(user, 55, task, 0)
	require.NoError(t, err)
	assert.Equal(t, timer.DefaultDuration, view.Duration)
	assert.Equal(t, timer.StateRunning, view.State)
	_, err = uuid.Parse(view.ID)
	require.NoError(t, err)

	_, err = svc.Start(user, 55, task, 15*time.Minute)
	assert.ErrorIs(t, err, ErrFocusRunning)

	clock.now = clock.now.Add(10 * time.Minute)
	view, err = svc.Toggle(user.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StatePaused, view.State)
	assert.Equal(t, 15*time.Minute, view.Remaining)

	view, err = svc.Stop(user.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.StateFinished, view.State)

	clock.now = clock.now.Add(time.Minute)
	session, err := svc.Finish(ctx, user, "went well")
	require.NoError(t, err)
	assert.Equal(t, view.ID, session.ID)
	assert.Equal(t, 25, session.DurationMinutes)
	assert.Equal(t, uint(7), session.TaskID)
	assert.True(t, session.CompletedAt.Equal(testNow.Add(11*time.Minute)))

	_, ok := svc.Active(user.ID)
	assert.False(t, ok)

	minutes, err := svc.MinutesOn(ctx, user, testNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 25, minutes)

	_, err = svc.Finish(ctx, user, "")
	assert.ErrorIs(t, err, ErrNoActiveFocus)
}

func TestFocusRejectsCompletedTask(t *testing.T) {
	svc := NewFocusService(nil, &stepClock{now: testNow})
	_, err := svc.Start(&model.User{ID: 1}, 1, model.Task{ID: 1, Completed: true}, 0)
	assert.ErrorIs(t, err, ErrTaskCompleted)

	_, err = svc.Start(&model.User{ID: 1}, 1, model.Task{ID: 2}, 20*time.Minute)
	assert.ErrorIs(t, err, timer.ErrUnsupportedDuration)
}

func TestFocusFinishFailureKeepsSession(t *testing.T) {
	user := &model.User{ID: 3}
	svc := NewFocusService(failingFocusStore{}, &stepClock{now: testNow})

	_, err := svc.Start(user, 1, model.Task{ID: 9}, 15*time.Minute)
	require.NoError(t, err)

	_, err = svc.Finish(context.Background(), user, "meh")
	require.Error(t, err)

	view, ok := svc.Active(user.ID)
	require.True(t, ok)
	assert.Equal(t, uint(9), view.Task.ID)
	assert.True(t, svc.Cancel(user.ID))
	assert.False(t, svc.Cancel(user.ID))
}

func TestCollectExpiredReportsOnce(t *testing.T) {
	clock := &stepClock{now: testNow}
	svc := NewFocusService(nil, clock)

	_, err := svc.Start(&model.User{ID: 1}, 10, model.Task{ID: 1}, 15*time.Minute)
	require.NoError(t, err)
	_, err = svc.Start(&model.User{ID: 2}, 20, model.Task{ID: 2}, 45*time.Minute)
	require.NoError(t, err)

	assert.Empty(t, svc.CollectExpired())

	clock.now = clock.now.Add(16 * time.Minute)
	expired := svc.CollectExpired()
	require.Len(t, expired, 1)
	assert.Equal(t, int64(10), expired[0].ChatID)
	assert.True(t, expired[0].Expired)

	assert.Empty(t, svc.CollectExpired())

	// A finished session can be replaced by a new one.
	_, err = svc.Start(&model.User{ID: 1}, 10, model.Task{ID: 3}, 25*time.Minute)
	assert.NoError(t, err)
}
