// Package timer implements the pomodoro countdown used by focus sessions.
package timer

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsupportedDuration = errors.New("unsupported timer duration")
	ErrDurationLocked      = errors.New("duration can only change before the timer starts")
)

// DefaultDuration is selected when the caller does not choose one.
const DefaultDuration = 25 * time.Minute

// Durations are the selectable countdown lengths.
var Durations = []time.Duration{15 * time.Minute, 25 * time.Minute, 45 * time.Minute}

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// State of a countdown.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ValidDuration reports whether d is one of Durations.
func ValidDuration(d time.Duration) bool {
	for _, allowed := range Durations {
		if d == allowed {
			return true
		}
	}
	return false
}

// Countdown is not safe for concurrent use.
type Countdown struct {
	clock    Clock
	total    time.Duration
	elapsed  time.Duration // accumulated before the current run
	resumed  time.Time     // start of the current run
	state    State
	finished bool
}

// New returns an idle countdown of d. A nil clock uses the wall clock.
func New(d time.Duration, clock Clock) (*Countdown, error) {
	if !ValidDuration(d) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDuration, d)
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Countdown{clock: clock, total: d}, nil
}

// SetDuration changes the length while the countdown is idle and untouched.
func (c *Countdown) SetDuration(d time.Duration) error {
	if !ValidDuration(d) {
		return fmt.Errorf("%w: %s", ErrUnsupportedDuration, d)
	}
	if c.state != StateIdle || c.elapsed > 0 {
		return ErrDurationLocked
	}
	c.total = d
	return nil
}

func (c *Countdown) Duration() time.Duration { return c.total }

// State reports the current state, finishing the countdown if time ran out.
func (c *Countdown) State() State {
	c.settle()
	return c.state
}

// Start runs the countdown. Starting a running or finished countdown does nothing.
func (c *Countdown) Start() {
	c.settle()
	if c.state == StateRunning || c.state == StateFinished {
		return
	}
	c.resumed = c.clock.Now()
	c.state = StateRunning
}

// Pause freezes the remaining time.
func (c *Countdown) Pause() {
	c.settle()
	if c.state != StateRunning {
		return
	}
	c.elapsed += c.clock.Now().Sub(c.resumed)
	c.state = StatePaused
}

// Toggle switches between running and paused and returns the new state.
func (c *Countdown) Toggle() State {
	if c.State() == StateRunning {
		c.Pause()
	} else {
		c.Start()
	}
	return c.state
}

// Done stops the countdown early and returns the elapsed time.
func (c *Countdown) Done() time.Duration {
	c.settle()
	if c.state == StateRunning {
		c.elapsed += c.clock.Now().Sub(c.resumed)
	}
	if c.elapsed > c.total {
		c.elapsed = c.total
	}
	c.state = StateFinished
	return c.elapsed
}

// Elapsed is the time run so far, capped at the duration.
func (c *Countdown) Elapsed() time.Duration {
	e := c.elapsed
	if c.state == StateRunning {
		e += c.clock.Now().Sub(c.resumed)
	}
	if e > c.total {
		e = c.total
	}
	return e
}

// Remaining is the time left, truncated to whole seconds.
func (c *Countdown) Remaining() time.Duration {
	return (c.total - c.Elapsed()).Truncate(time.Second)
}

// Progress is elapsed/total in [0, 1].
func (c *Countdown) Progress() float64 {
	if c.total <= 0 {
		return 1
	}
	return float64(c.Elapsed()) / float64(c.total)
}

// Expired reports whether the countdown ran to zero on its own.
func (c *Countdown) Expired() bool {
	c.settle()
	return c.finished
}

func (c *Countdown) settle() {
	if c.state != StateRunning {
		return
	}
	if c.clock.Now().Sub(c.resumed)+c.elapsed >= c.total {
		c.elapsed = c.total
		c.state = StateFinished
		c.finished = true
	}
}

// FormatRemaining renders d as MM:SS.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
