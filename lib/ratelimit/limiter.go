// Package ratelimit gates outgoing requests per channel: HTML requests need
// a fresh operator input event, API requests share the API quota.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"nsdotgo/lib/userinput"

	"golang.org/x/time/rate"
)

type Channel int

const (
	ChannelClick Channel = iota
	ChannelAPI
)

func (c Channel) String() string {
	switch c {
	case ChannelClick:
		return "click"
	case ChannelAPI:
		return "api"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

var (
	ErrRateLimited = errors.New("rate limited")
	ErrNoInput     = errors.New("no input signal configured for the click channel")
)

type LimitError struct {
	Channel    Channel
	RetryAfter time.Duration
	// Remote is true when the server imposed the limit.
	Remote bool
}

func (e *LimitError) Error() string {
	source := "local"
	if e.Remote {
		source = "server"
	}
	return fmt.Sprintf("%s rate limit on %s channel, retry after %s", source, e.Channel, e.RetryAfter)
}

func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

var (
	// DefaultClickPolicy caps how fast a held or bouncing key can drive
	// requests, on top of the one-event-per-request rule.
	DefaultClickPolicy = Policy{Max: 5, Window: time.Second}
	// DefaultAPIPolicy is the documented API quota.
	DefaultAPIPolicy = Policy{Max: 50, Window: 30 * time.Second}
)

type Options struct {
	Input userinput.Signal
	Click Policy
	API   Policy
	// BlockAPI makes an exhausted API window block instead of failing
	// with ErrRateLimited.
	BlockAPI bool
	// PaceAPI spreads API requests evenly over the window instead of
	// letting them burst.
	PaceAPI bool
}

type Grant struct {
	Channel Channel
	At      time.Time
}

type Limiter struct {
	input    userinput.Signal
	click    *Window
	api      *Window
	blockAPI bool
	pacer    *rate.Limiter

	granted [2]atomic.Int64
}

func NewLimiter(opts Options) (*Limiter, error) {
	if opts.Input == nil {
		return nil, ErrNoInput
	}
	if opts.Click == (Policy{}) {
		opts.Click = DefaultClickPolicy
	}
	if opts.API == (Policy{}) {
		opts.API = DefaultAPIPolicy
	}

	click, err := NewWindow(opts.Click)
	if err != nil {
		return nil, fmt.Errorf("click policy: %w", err)
	}
	api, err := NewWindow(opts.API)
	if err != nil {
		return nil, fmt.Errorf("api policy: %w", err)
	}

	l := &Limiter{
		input:    opts.Input,
		click:    click,
		api:      api,
		blockAPI: opts.BlockAPI,
	}
	if opts.PaceAPI {
		interval := opts.API.Window / time.Duration(opts.API.Max)
		l.pacer = rate.NewLimiter(rate.Every(interval), 1)
	}
	return l, nil
}

func (l *Limiter) window(ch Channel) *Window {
	if ch == ChannelClick {
		return l.click
	}
	return l.api
}

// Permit returns once a request on `ch` may be sent. On the click channel
// that means a new operator input event arrived and the click window has
// room. Nothing is recorded when Permit fails.
func (l *Limiter) Permit(ctx context.Context, ch Channel) (Grant, error) {
	switch ch {
	case ChannelClick:
		ev, err := l.input.WaitForEvent(ctx)
		if err != nil {
			return Grant{}, fmt.Errorf("wait for input: %w", err)
		}
		if err := l.click.Wait(ctx); err != nil {
			return Grant{}, err
		}
		l.granted[ch].Add(1)
		return Grant{Channel: ch, At: ev.At}, nil

	case ChannelAPI:
		if l.pacer != nil {
			if err := l.pacer.Wait(ctx); err != nil {
				return Grant{}, err
			}
		}
		if l.blockAPI {
			if err := l.api.Wait(ctx); err != nil {
				return Grant{}, err
			}
		} else if !l.api.Allow() {
			return Grant{}, &LimitError{Channel: ch, RetryAfter: l.api.Delay()}
		}
		l.granted[ch].Add(1)
		return Grant{Channel: ch, At: time.Now()}, nil
	}
	return Grant{}, fmt.Errorf("unknown channel %s", ch)
}

// Backoff blocks the channel for `d`, as instructed by a Retry-After header.
func (l *Limiter) Backoff(ch Channel, d time.Duration) {
	if d <= 0 {
		return
	}
	slog.Warn("rate limited by server, backing off", "channel", ch.String(), "duration", d)
	l.window(ch).PauseUntil(time.Now().Add(d))
}

// Granted is the number of permits issued on `ch` so far.
func (l *Limiter) Granted(ch Channel) int64 {
	if ch != ChannelClick && ch != ChannelAPI {
		return 0
	}
	return l.granted[ch].Load()
}
