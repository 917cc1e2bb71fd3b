package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newFakeWindow(t *testing.T, policy Policy) (*Window, *fakeClock) {
	w, err := NewWindow(policy)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
	w.now = clock.now
	return w, clock
}

func TestPolicyValidate(t *testing.T) {
	require.Error(t, Policy{Max: 0, Window: time.Second}.Validate())
	require.Error(t, Policy{Max: 1, Window: 0}.Validate())
	require.NoError(t, Policy{Max: 1, Window: time.Second}.Validate())

	_, err := NewWindow(Policy{})
	require.Error(t, err)
}

func TestWindowAllow(t *testing.T) {
	w, clock := newFakeWindow(t, Policy{Max: 3, Window: 10 * time.Second})

	for i := 0; i < 3; i++ {
		require.True(t, w.Allow(), "grant %d", i)
		clock.advance(time.Second)
	}
	require.False(t, w.Allow())
	require.Equal(t, 7*time.Second, w.Delay())

	// the first grant leaves the window exactly 10s after it was made
	clock.advance(7 * time.Second)
	require.Equal(t, time.Duration(0), w.Delay())
	require.True(t, w.Allow())
	require.False(t, w.Allow())
	require.Equal(t, 3, w.Len())
}

func TestWindowNeverExceedsPolicy(t *testing.T) {
	policy := Policy{Max: 4, Window: 5 * time.Second}
	w, clock := newFakeWindow(t, policy)

	var granted []time.Time
	for i := 0; i < 200; i++ {
		if w.Allow() {
			granted = append(granted, clock.t)
		}
		clock.advance(time.Duration(i%7) * 250 * time.Millisecond)
	}
	require.NotEmpty(t, granted)

	for _, end := range granted {
		count := 0
		for _, g := range granted {
			if g.After(end.Add(-policy.Window)) && !g.After(end) {
				count++
			}
		}
		require.LessOrEqual(t, count, policy.Max, "window ending at %s", end)
	}
}

func TestWindowPause(t *testing.T) {
	w, clock := newFakeWindow(t, Policy{Max: 10, Window: time.Second})
	w.PauseUntil(clock.t.Add(30 * time.Second))
	require.False(t, w.Allow())
	require.Equal(t, 30*time.Second, w.Delay())

	// an earlier pause never shortens the current one
	w.PauseUntil(clock.t.Add(time.Second))
	require.Equal(t, 30*time.Second, w.Delay())

	clock.advance(30 * time.Second)
	require.True(t, w.Allow())
}

func TestWindowWait(t *testing.T) {
	w, err := NewWindow(Policy{Max: 2, Window: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Wait(context.Background()))
	}
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWindowWaitCancelled(t *testing.T) {
	w, err := NewWindow(Policy{Max: 1, Window: time.Hour})
	require.NoError(t, err)
	require.True(t, w.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, w.Wait(ctx), context.DeadlineExceeded)
	require.Equal(t, 1, w.Len())
}
