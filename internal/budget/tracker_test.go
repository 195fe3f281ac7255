package budget

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the tracker sleeps or the test says so.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(w Window) (*Tracker, *fakeClock) {
	clock := newFakeClock()
	return NewTracker(w, WithClock(clock.Now, clock.Sleep)), clock
}

func TestNewTrackerDefaults(t *testing.T) {
	tr := NewTracker(Window{})
	assert.Equal(t, DefaultWindow(), tr.Window())

	tr = NewTracker(Window{MaxCalls: -3, Period: time.Second})
	assert.Equal(t, Window{MaxCalls: DefaultMaxCalls, Period: time.Second}, tr.Window())
}

func TestWaitNeverBlocksWithinBudget(t *testing.T) {
	tr, clock := newTestTracker(Window{MaxCalls: 5, Period: 10 * time.Second})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Wait(ctx))
		clock.Advance(100 * time.Millisecond)
	}

	assert.Empty(t, clock.sleeps)
	assert.Equal(t, 5, tr.Len())
}

func TestWaitBlocksWhenBudgetExhausted(t *testing.T) {
	tr, clock := newTestTracker(Window{MaxCalls: 3, Period: 10 * time.Second})
	ctx := context.Background()

	// Three calls one second apart: oldest at t=0, now at t=2s.
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Wait(ctx))
		if i < 2 {
			clock.Advance(time.Second)
		}
	}
	require.Empty(t, clock.sleeps)

	require.NoError(t, tr.Wait(ctx))
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 8*time.Second, clock.sleeps[0])

	// The oldest call left the window, the fourth one took its place.
	assert.Equal(t, 3, tr.Len())
}

func TestWaitBackToBackSleepsFullWindow(t *testing.T) {
	tr, clock := newTestTracker(Window{MaxCalls: 2, Period: 5 * time.Second})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Wait(ctx))
	}

	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 5*time.Second, clock.sleeps[0])
}

func TestWaitSleepIsBounded(t *testing.T) {
	tr, clock := newTestTracker(Window{MaxCalls: 1, Period: 2 * time.Second})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Wait(ctx))
	}

	for _, d := range clock.sleeps {
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
	assert.Len(t, clock.sleeps, 9)
}

func TestWaitPrunesExpiredCalls(t *testing.T) {
	tr, clock := newTestTracker(Window{MaxCalls: 2, Period: 10 * time.Second})
	ctx := context.Background()

	require.NoError(t, tr.Wait(ctx))
	require.NoError(t, tr.Wait(ctx))
	clock.Advance(11 * time.Second)

	assert.Equal(t, 0, tr.Len())
	require.NoError(t, tr.Wait(ctx))
	assert.Empty(t, clock.sleeps)
}

func TestWaitHonorsCancelledContext(t *testing.T) {
	tr, _ := newTestTracker(Window{MaxCalls: 1, Period: time.Minute})

	require.NoError(t, tr.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, tr.Len())
}

func TestWaitRealClock(t *testing.T) {
	tr := NewTracker(Window{MaxCalls: 2, Period: 50 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Wait(ctx))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestWaitRechecksAfterEarlyWakeup(t *testing.T) {
	clock := newFakeClock()
	// The first sleep ends halfway through the requested delay.
	early := func(ctx context.Context, d time.Duration) error {
		if len(clock.sleeps) == 0 {
			d /= 2
		}
		return clock.Sleep(ctx, d)
	}
	tr := NewTracker(Window{MaxCalls: 2, Period: 10 * time.Second}, WithClock(clock.Now, early))
	ctx := context.Background()

	require.NoError(t, tr.Wait(ctx))
	require.NoError(t, tr.Wait(ctx))
	require.NoError(t, tr.Wait(ctx))

	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.sleeps)
	assert.LessOrEqual(t, tr.Len(), 2)
	assert.False(t, clock.now.Before(time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)))
}

func TestWaitLogsExhaustionAsWarning(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.WarnLevel)

	clock := newFakeClock()
	tr := NewTracker(Window{MaxCalls: 1, Period: time.Second},
		WithClock(clock.Now, clock.Sleep), WithLogger(log))
	ctx := context.Background()

	require.NoError(t, tr.Wait(ctx))
	require.NoError(t, tr.Wait(ctx))

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "call budget exhausted")
}
