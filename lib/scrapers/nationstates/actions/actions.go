// Package actions implements the site's game actions on top of a logged in
// session. Each action posts one form and reads success off the response,
// anything it does not recognize counts as failure.
package actions

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"nsdotgo/lib/scrapers/nationstates/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/nationstates/actions")

// ErrInvalidArgument is returned before anything is sent when an action's
// arguments could never succeed.
var ErrInvalidArgument = errors.New("invalid argument")

// Requester is the part of core.Session actions need.
type Requester interface {
	Request(ctx context.Context, page string, form url.Values, files ...core.File) (*core.Response, error)
	RefreshAuthValues(ctx context.Context) error
	Refound(ctx context.Context, nation, password string) (bool, error)
	RecordRegion(region string)
	State() core.State
}

type Client struct {
	session Requester
}

func NewClient(session Requester) Client {
	return Client{session: session}
}

type predicate func(res *core.Response) bool

func contains(text string) predicate {
	return func(res *core.Response) bool {
		return res.Contains(text)
	}
}

func redirectsTo(fragment string) predicate {
	return func(res *core.Response) bool {
		return res.IsRedirect() && strings.Contains(res.Location(), fragment)
	}
}

// post sends one action and reports whether `ok` accepts the response.
func (c Client) post(ctx context.Context, name, page string, form url.Values, ok predicate, files ...core.File) (bool, *core.Response, error) {
	ctx, span := tracer.Start(ctx, "action:"+name)
	defer span.End()

	state := c.session.State()
	span.SetAttributes(
		attribute.String("nation", state.Nation),
		attribute.String("page", page),
	)

	res, err := c.session.Request(ctx, page, form, files...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return false, nil, err
	}
	if !ok(res) {
		slog.WarnContext(ctx, "action did not succeed", "action", name, "nation", state.Nation, "status", res.StatusCode)
		span.SetStatus(codes.Error, "action did not succeed")
		return false, res, nil
	}
	slog.DebugContext(ctx, "action succeeded", "action", name, "nation", state.Nation)
	return true, res, nil
}

func (c Client) do(ctx context.Context, name, page string, form url.Values, ok predicate, files ...core.File) (bool, error) {
	success, _, err := c.post(ctx, name, page, form, ok, files...)
	return success, err
}
