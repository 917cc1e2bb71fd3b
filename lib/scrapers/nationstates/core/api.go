package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nsdotgo/lib/ratelimit"
	"nsdotgo/lib/textutil"

	"github.com/antchfx/xmlquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type APIQuery struct {
	// Params are sent as the query string, v is added when missing.
	Params url.Values
	// Password authenticates private shards and commands for the nation in
	// Params. It is optional once a pin for that nation is known.
	Password string
}

func (q APIQuery) nation() string {
	return textutil.Canonicalize(q.Params.Get("nation"))
}

// pinFor returns a pin that authenticates `nation`, either one the api handed
// out or the html session's own.
func (s *Session) pinFor(nation string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nation == "" {
		return ""
	}
	if pin, ok := s.apiPins[nation]; ok {
		return pin
	}
	if s.state.Status == Authenticated && s.state.Nation == nation {
		return s.state.Pin
	}
	return ""
}

// HasAPIAuth reports whether private api calls for `nation` can be made
// without a password.
func (s *Session) HasAPIAuth(nation string) bool {
	return s.pinFor(textutil.Canonicalize(nation)) != ""
}

// APIRequest sends one data api query. It needs no operator input but
// counts against the api quota, an exhausted quota fails with
// ErrRateLimited unless the session was built with BlockAPI.
func (s *Session) APIRequest(ctx context.Context, q APIQuery) (*APIResponse, error) {
	ctx, span := tracer.Start(ctx, "session:APIRequest")
	defer span.End()

	params := url.Values{}
	for k, v := range q.Params {
		params[k] = v
	}
	if !params.Has("v") {
		params.Set("v", APIVersion)
	}
	span.SetAttributes(attribute.String("query", params.Encode()))

	target, err := s.transport.resolve(apiPath)
	if err != nil {
		return nil, err
	}

	header := map[string]string{}
	if q.Password != "" {
		header[passwordHeader] = q.Password
	}
	nation := q.nation()
	if pin := s.pinFor(nation); pin != "" {
		header[pinHeader] = pin
	}

	if _, err := s.limiter.Permit(ctx, ratelimit.ChannelAPI); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no api permit")
		return nil, err
	}

	res, err := s.transport.do(ctx, exchange{
		channel: ratelimit.ChannelAPI,
		method:  http.MethodGet,
		url:     target.String(),
		query:   params,
		header:  header,
	})
	var limitErr *ratelimit.LimitError
	if errors.As(err, &limitErr) {
		s.limiter.Backoff(ratelimit.ChannelAPI, limitErr.RetryAfter)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api request failed")
		return nil, err
	}

	s.observeAPI(ctx, nation, res)

	doc, err := xmlquery.Parse(bytes.NewReader(res.Body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse api response")
		return nil, fmt.Errorf("parse api response: %w", err)
	}
	return &APIResponse{Response: res, Doc: doc}, nil
}

// observeAPI keeps the pin the api hands out and slows down once the
// server reports the quota is nearly spent.
func (s *Session) observeAPI(ctx context.Context, nation string, res *Response) {
	if pin := res.Header.Get(pinHeader); pin != "" && nation != "" {
		s.mu.Lock()
		s.apiPins[nation] = pin
		s.mu.Unlock()
	}

	remaining, err := strconv.Atoi(res.Header.Get("RateLimit-Remaining"))
	if err != nil || remaining >= apiSlowdownBelow {
		return
	}
	reset, err := strconv.Atoi(res.Header.Get("RateLimit-Reset"))
	if err != nil || reset <= 0 {
		return
	}
	slog.DebugContext(ctx, "api quota running low", "remaining", remaining, "reset_seconds", reset)
	s.limiter.Backoff(ratelimit.ChannelAPI, quotaDelay(remaining, reset))
}

// other clients on the same ip share the quota, only the server's headers
// know about them
const apiSlowdownBelow = 10

// quotaDelay spreads the requests left over the time until the quota
// resets, or waits out the whole reset once nothing is left.
func quotaDelay(remaining, reset int) time.Duration {
	resetIn := time.Duration(reset) * time.Second
	if remaining <= 0 {
		return resetIn
	}
	return resetIn / time.Duration(remaining)
}

// VerifyIdentity checks that the nations named in the script identity
// exist, catching identities like "Devved by Testlandia".
func (s *Session) VerifyIdentity(ctx context.Context) error {
	for _, nation := range []string{s.identity.Author, s.identity.User} {
		_, err := s.APIRequest(ctx, APIQuery{Params: url.Values{
			"nation": {textutil.Canonicalize(nation)},
			"q":      {"name"},
		}})
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: nation %q in the script identity does not exist", ErrConfiguration, nation)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
