// Package userinput delivers physical input events from the human
// operator. Every HTML request must be preceded by one.
package userinput

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnavailable = errors.New("input signal unavailable")
	ErrInterrupted = errors.New("input interrupted by operator")
)

type Event struct {
	At  time.Time
	Key string
}

// Signal blocks until the operator produces a new input event. Implementations
// must never synthesize events on their own.
type Signal interface {
	WaitForEvent(ctx context.Context) (Event, error)
}

// Func adapts a function into a Signal.
type Func func(ctx context.Context) (Event, error)

func (f Func) WaitForEvent(ctx context.Context) (Event, error) {
	return f(ctx)
}

// Events is a Signal fed by a channel, for GUIs or anything else that
// receives key presses on its own. Closing the channel makes the signal
// unavailable.
//
// Every event sent pays for exactly one wait, in order. A buffered channel
// therefore lets presses made before a wait started pay for it. Use an
// unbuffered channel, whose sends only go through while a wait is in
// progress, unless the sender itself guarantees one event per press.
type Events chan Event

func (e Events) WaitForEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case ev, ok := <-e:
		if !ok {
			return Event{}, ErrUnavailable
		}
		if ev.At.IsZero() {
			ev.At = time.Now()
		}
		return ev, nil
	}
}
