package actions

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"nsdotgo/lib/textutil"
)

const waStatusPage = "/template-overall=none/page=UN_status"

// ApplyWA requests a World Assembly application letter. With `reapply` an
// application that is still valid is sent again.
func (c Client) ApplyWA(ctx context.Context, reapply bool) (bool, error) {
	form := url.Values{"action": {"join_UN"}}
	if reapply {
		form.Set("resend", "1")
	} else {
		form.Set("submit", "1")
	}
	return c.do(ctx, "ApplyWA", waStatusPage, form, contains("Your application to join the World Assembly has been received!"))
}

// JoinWA admits `nation` using the application id from its letter.
func (c Client) JoinWA(ctx context.Context, nation, appId string) (bool, error) {
	canon := textutil.Canonicalize(nation)
	appId = strings.TrimSpace(appId)
	if canon == "" || appId == "" {
		return false, fmt.Errorf("%w: nation and application id are required", ErrInvalidArgument)
	}
	ok, err := c.do(ctx, "JoinWA", "/cgi-bin/join_un.cgi", url.Values{
		"nation": {canon},
		"appid":  {appId},
	}, redirectsTo("?welcome=1"))
	if err != nil || !ok {
		return false, err
	}
	return true, c.session.RefreshAuthValues(ctx)
}

func (c Client) ResignWA(ctx context.Context) (bool, error) {
	return c.do(ctx, "ResignWA", waStatusPage, url.Values{
		"action": {"leave_UN"},
		"submit": {"1"},
	}, contains("From this moment forward, your nation is on its own."))
}

type Council string

const (
	GeneralAssembly Council = "ga"
	SecurityCouncil Council = "sc"
)

// WAVote votes "for" or "against" the resolution at vote in `council`.
func (c Client) WAVote(ctx context.Context, council Council, vote string) (bool, error) {
	if council != GeneralAssembly && council != SecurityCouncil {
		return false, fmt.Errorf("%w: council must be %q or %q", ErrInvalidArgument, GeneralAssembly, SecurityCouncil)
	}
	var label string
	switch vote {
	case "for":
		label = "Vote For"
	case "against":
		label = "Vote Against"
	default:
		return false, fmt.Errorf("%w: vote must be \"for\" or \"against\"", ErrInvalidArgument)
	}
	return c.do(ctx, "WAVote", "/template-overall=none/page="+string(council), url.Values{
		"vote": {label},
	}, contains("Your vote has been lodged."))
}
