package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type CommandName string

const (
	GiftCardCommand CommandName = "giftcard"
	DispatchCommand CommandName = "dispatch"
	RMBPostCommand  CommandName = "rmbpost"
)

type Mode string

const (
	// PrepareAndExecute runs both steps, passing the prepared token on.
	PrepareAndExecute Mode = ""
	Prepare           Mode = "prepare"
	Execute           Mode = "execute"
)

type Command struct {
	Nation   string
	Name     CommandName
	Params   url.Values
	Password string
	Mode     Mode
	// Token is the prepare step's token, needed when running Execute alone.
	Token string
}

func (cmd Command) validate() error {
	switch cmd.Name {
	case GiftCardCommand, DispatchCommand, RMBPostCommand:
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidQuery, cmd.Name)
	}
	switch cmd.Mode {
	case PrepareAndExecute, Prepare, Execute:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidQuery, cmd.Mode)
	}
	if textutil.Canonicalize(cmd.Nation) == "" {
		return fmt.Errorf("%w: command needs a nation", ErrInvalidQuery)
	}
	return nil
}

func (cmd Command) query(mode Mode, token string) core.APIQuery {
	params := url.Values{}
	for k, v := range cmd.Params {
		params[k] = v
	}
	params.Set("nation", textutil.Canonicalize(cmd.Nation))
	params.Set("c", string(cmd.Name))
	params.Set("mode", string(mode))
	if token != "" {
		params.Set("token", token)
	}
	return core.APIQuery{Params: params, Password: cmd.Password}
}

// Command runs a private command. Without a mode it prepares the command and
// executes it with the returned token.
func (c Client) Command(ctx context.Context, cmd Command) (*core.APIResponse, error) {
	ctx, span := tracer.Start(ctx, "api:Command")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", string(cmd.Name)),
		attribute.String("mode", string(cmd.Mode)),
	)

	if err := cmd.validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid command")
		return nil, err
	}
	if err := c.checkAuth(textutil.Canonicalize(cmd.Nation), cmd.Password); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing authentication")
		return nil, err
	}

	switch cmd.Mode {
	case Prepare:
		return c.session.APIRequest(ctx, cmd.query(Prepare, ""))
	case Execute:
		if cmd.Token == "" {
			return nil, fmt.Errorf("%w: execute needs the prepared token", ErrInvalidQuery)
		}
		return c.session.APIRequest(ctx, cmd.query(Execute, cmd.Token))
	}

	prepared, err := c.session.APIRequest(ctx, cmd.query(Prepare, ""))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prepare failed")
		return nil, err
	}
	token := prepared.Find("/NATION/SUCCESS")
	if token == "" {
		err := fmt.Errorf("%s was not prepared: %s", cmd.Name, prepared.Find("/NATION/ERROR"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "prepare failed")
		return nil, err
	}
	slog.DebugContext(ctx, "command prepared", "command", string(cmd.Name), "nation", cmd.Nation)

	// the prepare step hands out a pin, the password is not needed again
	execute := cmd
	if c.session.HasAPIAuth(textutil.Canonicalize(cmd.Nation)) {
		execute.Password = ""
	}
	return c.session.APIRequest(ctx, execute.query(Execute, token))
}

func (c Client) GiftCard(ctx context.Context, nation string, cardId, season int, recipient, password string) (*core.APIResponse, error) {
	return c.Command(ctx, Command{
		Nation: nation,
		Name:   GiftCardCommand,
		Params: url.Values{
			"cardid": {strconv.Itoa(cardId)},
			"season": {strconv.Itoa(season)},
			"to":     {textutil.Canonicalize(recipient)},
		},
		Password: password,
	})
}

type DispatchAction string

const (
	AddDispatch    DispatchAction = "add"
	EditDispatch   DispatchAction = "edit"
	RemoveDispatch DispatchAction = "remove"
)

type Dispatch struct {
	Action      DispatchAction
	Title       string
	Text        string
	Category    int
	Subcategory int
	// Id names the dispatch to edit or remove.
	Id int
}

func (d Dispatch) params() (url.Values, error) {
	switch d.Action {
	case AddDispatch, EditDispatch, RemoveDispatch:
	default:
		return nil, fmt.Errorf("%w: dispatch action must be add, edit or remove", ErrInvalidQuery)
	}
	if d.Action != RemoveDispatch && (d.Title == "" || d.Text == "" || d.Category == 0 || d.Subcategory == 0) {
		return nil, fmt.Errorf("%w: dispatch needs a title, text, category and subcategory", ErrInvalidQuery)
	}
	if d.Action != AddDispatch && d.Id == 0 {
		return nil, fmt.Errorf("%w: dispatch id is required to %s", ErrInvalidQuery, d.Action)
	}

	params := url.Values{"dispatch": {string(d.Action)}}
	if d.Title != "" {
		params.Set("title", d.Title)
	}
	if d.Text != "" {
		params.Set("text", d.Text)
	}
	if d.Category != 0 {
		params.Set("category", strconv.Itoa(d.Category))
	}
	if d.Subcategory != 0 {
		params.Set("subcategory", strconv.Itoa(d.Subcategory))
	}
	if d.Id != 0 {
		params.Set("dispatchid", strconv.Itoa(d.Id))
	}
	return params, nil
}

// Dispatch adds, edits or removes one of the nation's dispatches.
func (c Client) Dispatch(ctx context.Context, nation string, d Dispatch, password string) (*core.APIResponse, error) {
	params, err := d.params()
	if err != nil {
		return nil, err
	}
	return c.Command(ctx, Command{
		Nation:   nation,
		Name:     DispatchCommand,
		Params:   params,
		Password: password,
	})
}

// RMBPost posts `text` on a region's message board.
func (c Client) RMBPost(ctx context.Context, nation, region, text, password string) (*core.APIResponse, error) {
	if region == "" || text == "" {
		return nil, fmt.Errorf("%w: rmb post needs a region and text", ErrInvalidQuery)
	}
	return c.Command(ctx, Command{
		Nation:   nation,
		Name:     RMBPostCommand,
		Params:   url.Values{"region": {region}, "text": {text}},
		Password: password,
	})
}
