package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nsdotgo/lib/scrapers/nationstates/actions"
	"nsdotgo/lib/scrapers/nationstates/core"
	"nsdotgo/lib/userinput"

	"github.com/antchfx/xmlquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"scale=all", "mode=score", "scale=1"})
	require.NoError(t, err)
	require.Equal(t, url.Values{"scale": {"all", "1"}, "mode": {"score"}}, params)

	_, err = parseParams([]string{"scale"})
	require.Error(t, err)
	_, err = parseParams([]string{"=all"})
	require.Error(t, err)
}

func TestElementRows(t *testing.T) {
	doc, err := xmlquery.Parse(strings.NewReader(
		`<REGION id="the_north_pacific"><NAME>The North Pacific</NAME>
<DELEGATE>maxtopia</DELEGATE><OFFICERS><OFFICER>a</OFFICER></OFFICERS></REGION>`,
	))
	require.NoError(t, err)
	require.Equal(t, []table.Row{
		{"NAME", "The North Pacific"},
		{"DELEGATE", "maxtopia"},
		{"OFFICERS", "a"},
	}, elementRows(doc))
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", outcome(true, nil))
	require.Equal(t, "failed", outcome(false, nil))
	require.Equal(t, "error", outcome(true, errors.New("boom")))
}

func TestConfigValidate(t *testing.T) {
	valid := configTemplate
	valid.Script.Author = "Testlandia"
	valid.MainNation = "Maxtopia"
	require.NoError(t, valid.Validate())
	require.Equal(t, "Maxtopia", valid.identity().User)

	// the template needs filling in
	require.Error(t, configTemplate.Validate())

	noJump := valid
	noJump.JumpPoint = " "
	require.Error(t, noJump.Validate())

	badKey := valid
	badKey.Keybind = "ctrl+alt+delete"
	require.Error(t, badKey.Validate())

	badSettings := valid
	badSettings.Settings.Pretitle = "x"
	require.Error(t, badSettings.Validate())
	require.False(t, badSettings.Settings.empty())
	require.True(t, valid.Settings.empty())
}

func TestShouldStop(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect bool
	}{
		{name: "ctrl+c while waiting", err: fmt.Errorf("wait for input: %w", userinput.ErrInterrupted), expect: true},
		{name: "input gone", err: fmt.Errorf("wait for input: %w", userinput.ErrUnavailable), expect: true},
		{name: "cancelled", err: fmt.Errorf("login: %w", context.Canceled), expect: true},
		{name: "configuration", err: core.ErrConfiguration, expect: true},
		{name: "one nation failed", err: &core.StatusError{StatusCode: http.StatusInternalServerError}, expect: false},
		{name: "invalid argument", err: actions.ErrInvalidArgument, expect: false},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expect, shouldStop(test.err))
		})
	}
}

type prepSite struct {
	requests atomic.Int64
}

func (p *prepSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.requests.Add(1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html><body data-nname="testlandia">
<form><input type="hidden" name="chk" value="chk1"><input type="hidden" name="localid" value="local1"></form>
<p>Success! You are now a resident.</p></body></html>`)
}

func newPrepSession(t *testing.T, input userinput.Signal) (*core.Session, *prepSite) {
	site := &prepSite{}
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	session, err := core.New(core.Options{
		Identity: core.ScriptIdentity{Name: "nsprep", Version: "1.0.0", Author: "Testlandia", User: "Maxtopia"},
		Input:    input,
		BaseUrl:  server.URL,
	})
	require.NoError(t, err)
	return session, site
}

func withoutWA(t *testing.T) {
	previous := skipWA
	skipWA = true
	t.Cleanup(func() { skipWA = previous })
}

func TestPrepNationStopsOnInterrupt(t *testing.T) {
	interrupted := userinput.Func(func(ctx context.Context) (userinput.Event, error) {
		return userinput.Event{}, userinput.ErrInterrupted
	})
	session, site := newPrepSession(t, interrupted)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := prepNation(ctx, session, actions.NewClient(session), Config{JumpPoint: "the_north_pacific"}, "testlandia", "hunter2")
	require.ErrorIs(t, err, userinput.ErrInterrupted)
	require.True(t, shouldStop(err))
	require.Equal(t, "error", result.login)
	require.Equal(t, "-", result.move)
	require.Zero(t, site.requests.Load())
}

func TestPrepNationLogsOut(t *testing.T) {
	withoutWA(t)
	pressed := userinput.Func(func(ctx context.Context) (userinput.Event, error) {
		return userinput.Event{At: time.Now(), Key: "space"}, nil
	})
	session, site := newPrepSession(t, pressed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := prepNation(ctx, session, actions.NewClient(session), Config{JumpPoint: "the_north_pacific"}, "Testlandia", "hunter2")
	require.NoError(t, err)
	require.Equal(t, prepResult{
		nation:   "Testlandia",
		login:    "ok",
		flag:     "-",
		settings: "-",
		apply:    "-",
		move:     "ok",
	}, result)
	require.EqualValues(t, 2, site.requests.Load())

	// the deferred logout leaves the session ready for the next nation
	require.Equal(t, core.State{}, session.State())
}
