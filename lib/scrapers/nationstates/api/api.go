// Package api wraps the site's data api: validated shard queries and the
// private commands. Every call goes through the session's api channel, none
// of them wait for operator input.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/nationstates/api")

var (
	ErrInvalidQuery = errors.New("invalid api query")
	// ErrMissingAuth means neither a password nor a pin is available for a
	// private call.
	ErrMissingAuth = errors.New("private api call needs a password or a known pin")
)

// Requester is the part of core.Session the api needs.
type Requester interface {
	APIRequest(ctx context.Context, q core.APIQuery) (*core.APIResponse, error)
	HasAPIAuth(nation string) bool
}

type Client struct {
	session Requester
}

func NewClient(session Requester) Client {
	return Client{session: session}
}

type Query struct {
	Kind Kind
	// Target is the nation, region or wa council id, unused for the world
	// api.
	Target string
	Shards []string
	// Password authenticates private nation shards.
	Password string
	// Params are extra parameters some shards take, like scale for census.
	Params url.Values
}

func (q Query) params() (url.Values, error) {
	if q.Kind != World && strings.TrimSpace(q.Target) == "" {
		return nil, fmt.Errorf("%w: %s api needs a target", ErrInvalidQuery, q.Kind)
	}
	if (q.Kind == World || q.Kind == WA) && len(q.Shards) == 0 {
		return nil, fmt.Errorf("%w: %s api needs at least one shard", ErrInvalidQuery, q.Kind)
	}
	if err := ValidateShards(q.Kind, q.Shards); err != nil {
		return nil, err
	}

	params := url.Values{}
	for k, v := range q.Params {
		params[k] = v
	}
	if q.Kind != World {
		target := q.Target
		if q.Kind != WA {
			target = textutil.Canonicalize(target)
		}
		params.Set(string(q.Kind), target)
	}
	if len(q.Shards) > 0 {
		params.Set("q", strings.Join(q.Shards, " "))
	}
	return params, nil
}

// Query fetches shards from one of the apis.
func (c Client) Query(ctx context.Context, q Query) (*core.APIResponse, error) {
	ctx, span := tracer.Start(ctx, "api:Query")
	defer span.End()

	params, err := q.params()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("kind", string(q.Kind)),
		attribute.StringSlice("shards", q.Shards),
	)

	if q.Kind == Nation && q.Password == "" {
		for _, shard := range q.Shards {
			if IsPrivateShard(shard) && !c.session.HasAPIAuth(q.Target) {
				slog.WarnContext(ctx, "private shard requested without authentication", "nation", q.Target, "shard", shard)
			}
		}
	}

	res, err := c.session.APIRequest(ctx, core.APIQuery{Params: params, Password: q.Password})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api request failed")
		return nil, err
	}
	return res, nil
}

func (c Client) checkAuth(nation, password string) error {
	if password == "" && !c.session.HasAPIAuth(nation) {
		return fmt.Errorf("%w: %s", ErrMissingAuth, nation)
	}
	return nil
}

// Issue answers an issue with the option numbered `option`.
func (c Client) Issue(ctx context.Context, nation string, issue, option int, password string) (*core.APIResponse, error) {
	ctx, span := tracer.Start(ctx, "api:Issue")
	defer span.End()

	canon := textutil.Canonicalize(nation)
	if err := c.checkAuth(canon, password); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing authentication")
		return nil, err
	}

	slog.InfoContext(ctx, "answering issue", "nation", canon, "issue", issue, "option", option)
	res, err := c.session.APIRequest(ctx, core.APIQuery{
		Params: url.Values{
			"c":      {"issue"},
			"nation": {canon},
			"issue":  {strconv.Itoa(issue)},
			"option": {strconv.Itoa(option)},
		},
		Password: password,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api request failed")
		return nil, err
	}
	return res, nil
}
