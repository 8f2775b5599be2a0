package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func mustNew(t *testing.T, d time.Duration, c Clock) *Countdown {
	t.Helper()
	cd, err := New(d, c)
	require.NoError(t, err)
	return cd
}

func TestNewRejectsUnsupportedDuration(t *testing.T) {
	_, err := New(10*time.Minute, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDuration)
}

func TestCountdownRunsAndPauses(t *testing.T) {
	clock := newFakeClock()
	cd := mustNew(t, 25*time.Minute, clock)
	assert.Equal(t, StateIdle, cd.State())
	assert.Equal(t, 25*time.Minute, cd.Remaining())

	assert.Equal(t, StateRunning, cd.Toggle())
	clock.advance(5 * time.Minute)
	assert.Equal(t, 20*time.Minute, cd.Remaining())
	assert.InDelta(t, 0.2, cd.Progress(), 1e-9)

	assert.Equal(t, StatePaused, cd.Toggle())
	clock.advance(time.Hour)
	assert.Equal(t, 20*time.Minute, cd.Remaining(), "paused time does not count")

	cd.Start()
	clock.advance(10*time.Minute + 500*time.Millisecond)
	assert.Equal(t, 9*time.Minute+59*time.Second, cd.Remaining())
}

func TestCountdownExpires(t *testing.T) {
	clock := newFakeClock()
	cd := mustNew(t, 15*time.Minute, clock)
	cd.Start()
	clock.advance(16 * time.Minute)

	assert.True(t, cd.Expired())
	assert.Equal(t, StateFinished, cd.State())
	assert.Equal(t, time.Duration(0), cd.Remaining())
	assert.Equal(t, 1.0, cd.Progress())

	cd.Start()
	assert.Equal(t, StateFinished, cd.State(), "finished countdown does not restart")
}

func TestCountdownDoneEarly(t *testing.T) {
	clock := newFakeClock()
	cd := mustNew(t, 45*time.Minute, clock)
	cd.Start()
	clock.advance(12 * time.Minute)

	assert.Equal(t, 12*time.Minute, cd.Done())
	assert.Equal(t, StateFinished, cd.State())
	assert.False(t, cd.Expired())
}

func TestSetDurationOnlyWhileUntouched(t *testing.T) {
	clock := newFakeClock()
	cd := mustNew(t, DefaultDuration, clock)
	require.NoError(t, cd.SetDuration(45*time.Minute))
	assert.Equal(t, 45*time.Minute, cd.Remaining())
	assert.ErrorIs(t, cd.SetDuration(time.Minute), ErrUnsupportedDuration)

	cd.Start()
	assert.ErrorIs(t, cd.SetDuration(15*time.Minute), ErrDurationLocked)
	clock.advance(time.Minute)
	cd.Pause()
	assert.ErrorIs(t, cd.SetDuration(15*time.Minute), ErrDurationLocked)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "25:00", FormatRemaining(25*time.Minute))
	assert.Equal(t, "04:09", FormatRemaining(4*time.Minute+9*time.Second))
	assert.Equal(t, "00:00", FormatRemaining(-time.Second))
}
