package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"nsdotgo/lib/scrapers/nationstates/core"

	"github.com/antchfx/xmlquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	pins    map[string]bool
	replies []string
	err     error

	queries []core.APIQuery
}

func (f *fakeRequester) APIRequest(ctx context.Context, q core.APIQuery) (*core.APIResponse, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	body := "<NATION></NATION>"
	if len(f.replies) > 0 {
		body = f.replies[0]
		f.replies = f.replies[1:]
	}
	if q.Password != "" {
		f.pins[q.Params.Get("nation")] = true
	}
	doc, err := xmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &core.APIResponse{
		Response: &core.Response{StatusCode: http.StatusOK, Body: []byte(body)},
		Doc:      doc,
	}, nil
}

func (f *fakeRequester) HasAPIAuth(nation string) bool {
	return f.pins[nation]
}

func newFakeRequester(replies ...string) *fakeRequester {
	return &fakeRequester{pins: map[string]bool{}, replies: replies}
}

func TestQuery(t *testing.T) {
	cases := []struct {
		name   string
		query  Query
		expect url.Values
	}{
		{
			name:   "nation",
			query:  Query{Kind: Nation, Target: "Testlandia One", Shards: []string{"name", "population"}},
			expect: url.Values{"nation": {"testlandia_one"}, "q": {"name population"}},
		},
		{
			name:   "nation without shards",
			query:  Query{Kind: Nation, Target: "testlandia"},
			expect: url.Values{"nation": {"testlandia"}},
		},
		{
			name:   "region",
			query:  Query{Kind: Region, Target: "The North Pacific", Shards: []string{"delegate"}},
			expect: url.Values{"region": {"the_north_pacific"}, "q": {"delegate"}},
		},
		{
			name:   "world",
			query:  Query{Kind: World, Target: "ignored", Shards: []string{"numnations"}},
			expect: url.Values{"q": {"numnations"}},
		},
		{
			name:   "wa",
			query:  Query{Kind: WA, Target: "1", Shards: []string{"resolution", "voters"}},
			expect: url.Values{"wa": {"1"}, "q": {"resolution voters"}},
		},
		{
			name: "census scale",
			query: Query{
				Kind:   Nation,
				Target: "testlandia",
				Shards: []string{"census"},
				Params: url.Values{"scale": {"all"}},
			},
			expect: url.Values{"nation": {"testlandia"}, "q": {"census"}, "scale": {"all"}},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			requester := newFakeRequester()
			_, err := NewClient(requester).Query(context.Background(), test.query)
			require.NoError(t, err)
			require.Len(t, requester.queries, 1)
			if diff := cmp.Diff(test.expect, requester.queries[0].Params); diff != "" {
				t.Fatal("params mismatch (-want +got):\n", diff)
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	cases := []struct {
		name    string
		query   Query
		message string
	}{
		{name: "unknown api", query: Query{Kind: Kind("cards"), Target: "x"}},
		{name: "missing target", query: Query{Kind: Region, Shards: []string{"name"}}},
		{name: "world without shards", query: Query{Kind: World}},
		{name: "wa without shards", query: Query{Kind: WA, Target: "1"}},
		{
			name:    "typo",
			query:   Query{Kind: Nation, Target: "testlandia", Shards: []string{"populaton"}},
			message: `did you mean "population"?`,
		},
		{
			name:  "shard of another api",
			query: Query{Kind: World, Shards: []string{"delegatevotes"}},
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			requester := newFakeRequester()
			_, err := NewClient(requester).Query(context.Background(), test.query)
			require.ErrorIs(t, err, ErrInvalidQuery)
			if test.message != "" {
				require.Contains(t, err.Error(), test.message)
			}
			require.Empty(t, requester.queries)
		})
	}
}

func TestQueryReturnsDocument(t *testing.T) {
	requester := newFakeRequester(`<REGION id="the_north_pacific"><DELEGATE>maxtopia</DELEGATE></REGION>`)
	res, err := NewClient(requester).Query(context.Background(), Query{
		Kind:   Region,
		Target: "the_north_pacific",
		Shards: []string{"delegate"},
	})
	require.NoError(t, err)
	require.Equal(t, "maxtopia", res.Find("/REGION/DELEGATE"))
}

func TestPrivateQueryPassword(t *testing.T) {
	requester := newFakeRequester()
	_, err := NewClient(requester).Query(context.Background(), Query{
		Kind:     Nation,
		Target:   "testlandia",
		Shards:   []string{"notices", "unread"},
		Password: "hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, "hunter2", requester.queries[0].Password)
	require.True(t, IsPrivateShard("notices"))
	require.False(t, IsPrivateShard("name"))
}

func TestIssue(t *testing.T) {
	requester := newFakeRequester()
	c := NewClient(requester)

	_, err := c.Issue(context.Background(), "Testlandia", 12, 1, "")
	require.ErrorIs(t, err, ErrMissingAuth)
	require.Empty(t, requester.queries)

	_, err = c.Issue(context.Background(), "Testlandia", 12, 1, "hunter2")
	require.NoError(t, err)
	require.Equal(t, url.Values{
		"c":      {"issue"},
		"nation": {"testlandia"},
		"issue":  {"12"},
		"option": {"1"},
	}, requester.queries[0].Params)

	// the pin from the first call is enough
	_, err = c.Issue(context.Background(), "testlandia", 13, 0, "")
	require.NoError(t, err)
	require.Len(t, requester.queries, 2)
}

func TestCommandPrepareAndExecute(t *testing.T) {
	requester := newFakeRequester(
		`<NATION id="testlandia"><SUCCESS>token123</SUCCESS></NATION>`,
		`<NATION id="testlandia"><SUCCESS>Your card has been gifted.</SUCCESS></NATION>`,
	)
	res, err := NewClient(requester).GiftCard(context.Background(), "Testlandia", 42, 3, "Maxtopia", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "Your card has been gifted.", res.Find("/NATION/SUCCESS"))

	require.Len(t, requester.queries, 2)
	prepare := requester.queries[0]
	require.Equal(t, url.Values{
		"nation": {"testlandia"},
		"c":      {"giftcard"},
		"mode":   {"prepare"},
		"cardid": {"42"},
		"season": {"3"},
		"to":     {"maxtopia"},
	}, prepare.Params)
	require.Equal(t, "hunter2", prepare.Password)

	execute := requester.queries[1]
	require.Equal(t, "execute", execute.Params.Get("mode"))
	require.Equal(t, "token123", execute.Params.Get("token"))
	require.Equal(t, "42", execute.Params.Get("cardid"))
	require.Empty(t, execute.Password)
}

func TestCommandPrepareFails(t *testing.T) {
	requester := newFakeRequester(`<NATION id="testlandia"><ERROR>No such card.</ERROR></NATION>`)
	_, err := NewClient(requester).GiftCard(context.Background(), "testlandia", 42, 3, "maxtopia", "hunter2")
	require.ErrorContains(t, err, "No such card.")
	require.Len(t, requester.queries, 1)
}

func TestCommandModes(t *testing.T) {
	requester := newFakeRequester()
	requester.pins["testlandia"] = true
	c := NewClient(requester)

	_, err := c.Command(context.Background(), Command{
		Nation: "testlandia",
		Name:   RMBPostCommand,
		Params: url.Values{"region": {"tnp"}, "text": {"hi"}},
		Mode:   Prepare,
	})
	require.NoError(t, err)
	require.Equal(t, "prepare", requester.queries[0].Params.Get("mode"))

	_, err = c.Command(context.Background(), Command{
		Nation: "testlandia",
		Name:   RMBPostCommand,
		Mode:   Execute,
	})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = c.Command(context.Background(), Command{
		Nation: "testlandia",
		Name:   RMBPostCommand,
		Mode:   Execute,
		Token:  "abc",
	})
	require.NoError(t, err)
	require.Equal(t, "abc", requester.queries[1].Params.Get("token"))

	_, err = c.Command(context.Background(), Command{Nation: "testlandia", Name: CommandName("telegram")})
	require.ErrorIs(t, err, ErrInvalidQuery)
	_, err = c.Command(context.Background(), Command{Nation: "testlandia", Name: RMBPostCommand, Mode: Mode("later")})
	require.ErrorIs(t, err, ErrInvalidQuery)
	_, err = c.Command(context.Background(), Command{Nation: "maxtopia", Name: RMBPostCommand})
	require.ErrorIs(t, err, ErrMissingAuth)
	require.Len(t, requester.queries, 2)
}

func TestDispatch(t *testing.T) {
	cases := []struct {
		name     string
		dispatch Dispatch
		expect   url.Values
	}{
		{
			name:     "add",
			dispatch: Dispatch{Action: AddDispatch, Title: "Hello", Text: "World", Category: 1, Subcategory: 100},
			expect:   url.Values{"dispatch": {"add"}, "title": {"Hello"}, "text": {"World"}, "category": {"1"}, "subcategory": {"100"}},
		},
		{
			name:     "edit",
			dispatch: Dispatch{Action: EditDispatch, Title: "Hello", Text: "Again", Category: 1, Subcategory: 100, Id: 77},
			expect:   url.Values{"dispatch": {"edit"}, "title": {"Hello"}, "text": {"Again"}, "category": {"1"}, "subcategory": {"100"}, "dispatchid": {"77"}},
		},
		{
			name:     "remove",
			dispatch: Dispatch{Action: RemoveDispatch, Id: 77},
			expect:   url.Values{"dispatch": {"remove"}, "dispatchid": {"77"}},
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			params, err := test.dispatch.params()
			require.NoError(t, err)
			if diff := cmp.Diff(test.expect, params); diff != "" {
				t.Fatal("params mismatch (-want +got):\n", diff)
			}
		})
	}

	invalid := []Dispatch{
		{Action: DispatchAction("publish")},
		{Action: AddDispatch, Title: "no text", Category: 1, Subcategory: 100},
		{Action: EditDispatch, Title: "Hello", Text: "World", Category: 1, Subcategory: 100},
		{Action: RemoveDispatch},
	}
	requester := newFakeRequester()
	for _, d := range invalid {
		_, err := NewClient(requester).Dispatch(context.Background(), "testlandia", d, "hunter2")
		require.ErrorIs(t, err, ErrInvalidQuery, "%+v", d)
	}
	require.Empty(t, requester.queries)
}

func TestRMBPost(t *testing.T) {
	requester := newFakeRequester(
		`<NATION><SUCCESS>tok</SUCCESS></NATION>`,
		`<NATION><SUCCESS>posted</SUCCESS></NATION>`,
	)
	_, err := NewClient(requester).RMBPost(context.Background(), "testlandia", "the_north_pacific", "hello", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "hello", requester.queries[0].Params.Get("text"))
	require.Equal(t, "the_north_pacific", requester.queries[1].Params.Get("region"))

	_, err = NewClient(requester).RMBPost(context.Background(), "testlandia", "", "hello", "hunter2")
	require.ErrorIs(t, err, ErrInvalidQuery)
}
