package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"nsdotgo/lib/ratelimit"
)

var (
	ErrConfiguration    = errors.New("invalid configuration")
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrNetwork          = errors.New("network failure")
	ErrRateLimited      = ratelimit.ErrRateLimited
	ErrSimultaneous     = errors.New("another request is already in flight")
	ErrForbiddenPage    = errors.New("scripts may not access this page")
	ErrForeignHost      = errors.New("url is not on the session's host")
	ErrUseAPIRequest    = errors.New("data api requests must go through APIRequest")
	ErrEmptyCredentials = errors.New("nation and password must not be empty")
)

// NetworkError is a failure to get any response at all: DNS, connection,
// TLS or timeout.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// StatusError is a response with status >= 400.
type StatusError struct {
	StatusCode int
	URL        string
	// ErrorPage names the dump of the response body, if one was written.
	ErrorPage string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("received status code %d from %s", e.StatusCode, e.URL)
	if e.ErrorPage != "" {
		msg += fmt.Sprintf(", error page saved as %s", e.ErrorPage)
	}
	return msg
}

// parseRetryAfter understands both forms of the header, delay seconds and
// an http date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
