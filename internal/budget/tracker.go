// Package budget caps the number of outbound calls made to the PageVitals API
// inside a sliding time window.
package budget

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Default budget used by PageVitals: 50 calls per 10 seconds.
const (
	DefaultMaxCalls = 50
	DefaultPeriod   = 10 * time.Second
)

// Window configures a Tracker.
type Window struct {
	MaxCalls int
	Period   time.Duration
}

// DefaultWindow returns the PageVitals call budget.
func DefaultWindow() Window {
	return Window{MaxCalls: DefaultMaxCalls, Period: DefaultPeriod}
}

// Tracker records the timestamps of recent calls and blocks callers once the
// window is full. It is meant for a single goroutine.
type Tracker struct {
	window Window
	calls  []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	log    zerolog.Logger
	notice rate.Sometimes
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now and the sleep function, mostly for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Tracker) {
		t.now = now
		t.sleep = sleep
	}
}

// WithLogger sets the logger used for "budget exhausted" notices.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) {
		t.log = log
	}
}

// NewTracker creates a Tracker. Non-positive fields of w fall back to the
// defaults.
func NewTracker(w Window, opts ...Option) *Tracker {
	if w.MaxCalls <= 0 {
		w.MaxCalls = DefaultMaxCalls
	}
	if w.Period <= 0 {
		w.Period = DefaultPeriod
	}

	t := &Tracker{
		window: w,
		calls:  make([]time.Time, 0, w.MaxCalls),
		now:    time.Now,
		sleep:  sleepContext,
		log:    zerolog.Nop(),
		notice: rate.Sometimes{Interval: time.Second},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Window returns the tracker's configuration.
func (t *Tracker) Window() Window {
	return t.window
}

// Len returns the number of calls currently inside the window.
func (t *Tracker) Len() int {
	t.prune(t.now())
	return len(t.calls)
}

// Wait blocks until one more call fits in the window, then records it.
// On return the caller may issue exactly one request.
func (t *Tracker) Wait(ctx context.Context) error {
	now := t.now()
	t.prune(now)

	// A sleep can end early, so recheck until a slot is actually free.
	for len(t.calls) >= t.window.MaxCalls {
		delay := t.calls[0].Add(t.window.Period).Sub(now)
		if delay < 0 {
			delay = 0
		}
		if delay > t.window.Period {
			delay = t.window.Period
		}

		t.notice.Do(func() {
			t.log.Warn().
				Int("max_calls", t.window.MaxCalls).
				Dur("window", t.window.Period).
				Dur("wait", delay).
				Msg("call budget exhausted, waiting")
		})

		if err := t.sleep(ctx, delay); err != nil {
			return err
		}
		now = t.now()
		t.prune(now)
	}

	t.calls = append(t.calls, now)
	return nil
}

// prune drops calls that fell out of the window ending at now.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window.Period)
	i := 0
	for i < len(t.calls) && !t.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.calls = append(t.calls[:0], t.calls[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
