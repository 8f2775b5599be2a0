package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tamer/internal/repository"
)

func TestCheckInSaveAndToday(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db)
	svc := NewCheckInService(repository.NewCheckInRepository(db), time.UTC)

	none, err := svc.Today(ctx, user, testNow)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.Save(ctx, user, CheckInInput{SleepQuality: 0, EnergyLevel: 3}, testNow)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = svc.Save(ctx, user, CheckInInput{SleepQuality: 3, EnergyLevel: 6}, testNow)
	assert.ErrorIs(t, err, ErrInvalidRating)

	first, err := svc.Save(ctx, user, CheckInInput{SleepQuality: 2, EnergyLevel: 4, Notes: " slow start "}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", first.Date)
	assert.Equal(t, "slow start", first.Notes)

	second, err := svc.Save(ctx, user, CheckInInput{SleepQuality: 4, EnergyLevel: 4}, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same day updates the existing record")

	today, err := svc.Today(ctx, user, testNow)
	require.NoError(t, err)
	require.NotNil(t, today)
	assert.Equal(t, 4, today.SleepQuality)

	tomorrow, err := svc.Today(ctx, user, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, tomorrow)
}
