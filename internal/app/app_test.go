package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tamer/internal/model"
	"task-tamer/internal/service"
)

type fakeUsers struct {
	next  uint
	byTID map[int64]*model.User
}

func (f *fakeUsers) UpsertFromTelegram(_ context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	if f.byTID == nil {
		f.byTID = map[int64]*model.User{}
	}
	u, ok := f.byTID[telegramID]
	if !ok {
		f.next++
		u = &model.User{ID: f.next, TelegramID: telegramID}
		f.byTID[telegramID] = u
	}
	u.FirstName, u.LastName, u.Username = firstName, lastName, username
	copied := *u
	return &copied, nil
}

type fakeTasks struct {
	tasks    []model.Task
	next     uint
	failList bool
	failAdd  bool
}

func (f *fakeTasks) CreateTask(_ context.Context, user *model.User, in service.TaskInput) (*model.Task, error) {
	if f.failAdd {
		return nil, errors.New("insert failed")
	}
	f.next++
	t := model.Task{ID: f.next, UserID: user.ID, Title: in.Title, Category: in.Category}
	f.tasks = append([]model.Task{t}, f.tasks...)
	return &t, nil
}

func (f *fakeTasks) ListAll(_ context.Context, user *model.User) ([]model.Task, error) {
	if f.failList {
		return nil, errors.New("select failed")
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.UserID == user.ID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) CompleteTask(_ context.Context, user *model.User, id uint, at time.Time) (*model.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID == id && f.tasks[i].UserID == user.ID {
			f.tasks[i].Completed = true
			f.tasks[i].CompletedAt = &at
			t := f.tasks[i]
			return &t, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeTasks) DeleteTask(_ context.Context, user *model.User, id uint) error {
	for i := range f.tasks {
		if f.tasks[i].ID == id && f.tasks[i].UserID == user.ID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func TestSignInOutEvents(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(&fakeUsers{}, &fakeTasks{})

	var kinds []EventKind
	sessions.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	_, err := sessions.Current(5)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	state, err := sessions.SignIn(ctx, Identity{TelegramID: 5, FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", state.User().FirstName)
	assert.True(t, state.Loaded())

	again, err := sessions.SignIn(ctx, Identity{TelegramID: 5, FirstName: "Anna"})
	require.NoError(t, err)
	assert.Same(t, state, again)
	assert.Equal(t, "Anna", state.User().FirstName)
	assert.Len(t, sessions.All(), 1)

	assert.True(t, sessions.SignOut(5))
	assert.False(t, sessions.SignOut(5))
	_, err = sessions.Current(5)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.Equal(t, []EventKind{EventTasksChanged, EventSignedIn, EventTasksChanged, EventSignedOut}, kinds)
}

func TestStateMutationsRefreshList(t *testing.T) {
	ctx := context.Background()
	backend := &fakeTasks{}
	sessions := NewSessions(&fakeUsers{}, backend)
	state, err := sessions.SignIn(ctx, Identity{TelegramID: 1})
	require.NoError(t, err)

	task, err := state.AddTask(ctx, service.TaskInput{Title: "a", Category: model.CategorySoon})
	require.NoError(t, err)
	require.Len(t, state.Tasks(), 1)

	_, err = state.CompleteTask(ctx, task.ID, time.Now())
	require.NoError(t, err)
	got, ok := state.Task(task.ID)
	require.True(t, ok)
	assert.True(t, got.Completed)

	require.NoError(t, state.DeleteTask(ctx, task.ID))
	assert.Empty(t, state.Tasks())
}

func TestFailedOperationsKeepPreviousList(t *testing.T) {
	ctx := context.Background()
	backend := &fakeTasks{}
	sessions := NewSessions(&fakeUsers{}, backend)
	state, err := sessions.SignIn(ctx, Identity{TelegramID: 1})
	require.NoError(t, err)
	_, err = state.AddTask(ctx, service.TaskInput{Title: "keep", Category: model.CategoryUrgent})
	require.NoError(t, err)

	backend.failAdd = true
	_, err = state.AddTask(ctx, service.TaskInput{Title: "lost", Category: model.CategoryUrgent})
	require.Error(t, err)
	assert.Len(t, state.Tasks(), 1)

	backend.failList = true
	require.Error(t, state.Refresh(ctx))
	require.Len(t, state.Tasks(), 1)
	assert.Equal(t, "keep", state.Tasks()[0].Title)

	require.Error(t, state.DeleteTask(ctx, 999))
	assert.Len(t, state.Tasks(), 1)
}

func TestTasksReturnsCopy(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(&fakeUsers{}, &fakeTasks{})
	state, err := sessions.SignIn(ctx, Identity{TelegramID: 1})
	require.NoError(t, err)
	_, err = state.AddTask(ctx, service.TaskInput{Title: "a", Category: model.CategorySoon})
	require.NoError(t, err)

	list := state.Tasks()
	list[0].Title = "mutated"
	assert.Equal(t, "a", state.Tasks()[0].Title)
}
