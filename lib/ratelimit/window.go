package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Policy struct {
	Max    int
	Window time.Duration
}

func (p Policy) Validate() error {
	if p.Max <= 0 {
		return fmt.Errorf("policy max must be positive, got %d", p.Max)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy window must be positive, got %s", p.Window)
	}
	return nil
}

// Window is a sliding log of grant instants. For any instant t, at most
// Policy.Max grants lie in (t - Policy.Window, t].
type Window struct {
	policy Policy
	now    func() time.Time

	mu          sync.Mutex
	grants      []time.Time
	pausedUntil time.Time
}

func NewWindow(policy Policy) (*Window, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Window{
		policy: policy,
		now:    time.Now,
		grants: make([]time.Time, 0, policy.Max),
	}, nil
}

func (w *Window) Policy() Policy {
	return w.policy
}

// delayLocked returns how long the caller must wait before a grant at `now`
// would be legal, pruning grants that have left the window.
func (w *Window) delayLocked(now time.Time) time.Duration {
	cutoff := 0
	for cutoff < len(w.grants) && now.Sub(w.grants[cutoff]) >= w.policy.Window {
		cutoff++
	}
	if cutoff > 0 {
		w.grants = append(w.grants[:0], w.grants[cutoff:]...)
	}

	if now.Before(w.pausedUntil) {
		return w.pausedUntil.Sub(now)
	}
	if len(w.grants) < w.policy.Max {
		return 0
	}
	return w.grants[0].Add(w.policy.Window).Sub(now)
}

func (w *Window) recordLocked(now time.Time) {
	w.grants = append(w.grants, now)
}

// Delay reports how long until the next grant would be legal, 0 if one
// is legal now. It does not record anything.
func (w *Window) Delay() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.delayLocked(w.now())
}

// Allow records a grant and returns true if one is legal right now.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if w.delayLocked(now) > 0 {
		return false
	}
	w.recordLocked(now)
	return true
}

// Wait blocks until a grant is legal, then records it. The grant is only
// recorded once the caller is about to proceed.
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		delay := w.delayLocked(now)
		if delay <= 0 {
			w.recordLocked(now)
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// PauseUntil blocks every grant until t, used when the server tells us to
// back off.
func (w *Window) PauseUntil(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t.After(w.pausedUntil) {
		w.pausedUntil = t
	}
}

// Len is the number of grants currently inside the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delayLocked(w.now())
	return len(w.grants)
}
