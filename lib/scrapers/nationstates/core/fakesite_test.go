package core

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"nsdotgo/lib/userinput"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method    string
	Path      string
	UserClick int64
	Form      url.Values
	Header    http.Header
}

// fakeSite imitates just enough of the site for a session to log in, post
// forms and query the api.
type fakeSite struct {
	server    *httptest.Server
	passwords map[string]string
	routes    map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []recordedRequest
	chkCount int
}

func newFakeSite(t *testing.T) *fakeSite {
	f := &fakeSite{
		passwords: map[string]string{"testlandia": "hunter2"},
		routes:    map[string]http.HandlerFunc{},
	}
	f.server = httptest.NewServer(f)
	t.Cleanup(f.server.Close)
	return f
}

func splitUserClick(path string) (string, int64) {
	idx := strings.LastIndex(path, "/userclick=")
	if idx < 0 {
		return path, 0
	}
	click, _ := strconv.ParseInt(path[idx+len("/userclick="):], 10, 64)
	return path[:idx], click
}

func (f *fakeSite) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = h
}

func (f *fakeSite) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeSite) nextChk() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chkCount++
	return fmt.Sprintf("chk%d", f.chkCount)
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(1 << 20)
	path, click := splitUserClick(r.URL.Path)

	form := r.PostForm
	if r.Method == http.MethodGet {
		form = r.URL.Query()
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:    r.Method,
		Path:      path,
		UserClick: click,
		Form:      form,
		Header:    r.Header.Clone(),
	})
	route, ok := f.routes[path]
	f.mu.Unlock()

	if ok {
		route(w, r)
		return
	}
	if path == apiPath {
		f.api(w, r)
		return
	}
	if r.PostForm.Get(loggingInName) == "1" {
		f.login(w, r)
		return
	}
	f.page(w, r)
}

func (f *fakeSite) login(w http.ResponseWriter, r *http.Request) {
	nation := r.PostForm.Get("nation")
	if expected, ok := f.passwords[nation]; !ok || expected != r.PostForm.Get("password") {
		writeLoggedOut(w)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: pinCookie, Value: "pin-" + nation, Path: "/"})
	writeLoggedIn(w, nation, "the_north_pacific", f.nextChk(), "")
}

func (f *fakeSite) loggedInNation(r *http.Request) string {
	cookie, err := r.Cookie(pinCookie)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(cookie.Value, "pin-")
}

func (f *fakeSite) page(w http.ResponseWriter, r *http.Request) {
	nation := f.loggedInNation(r)
	if nation == "" {
		writeLoggedOut(w)
		return
	}
	writeLoggedIn(w, nation, "the_north_pacific", f.nextChk(), "")
}

func (f *fakeSite) api(w http.ResponseWriter, r *http.Request) {
	nation := r.URL.Query().Get("nation")
	if _, ok := f.passwords[nation]; !ok && nation != "" {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<h1>Unknown nation</h1>"))
		return
	}
	if r.Header.Get(passwordHeader) != "" {
		w.Header().Set(pinHeader, "api-pin-"+nation)
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("RateLimit-Remaining", "49")
	fmt.Fprintf(w, `<NATION id="%s"><NAME>%s</NAME><POPULATION>1234</POPULATION></NATION>`, nation, strings.ToUpper(nation))
}

func writeLoggedIn(w http.ResponseWriter, nation, region, chk, extra string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body data-nname="%s">
<div id="banner"><a class="STANDOUT" href="nation=%s">You</a><a class="STANDOUT" href="region=%s">Region</a></div>
<form method="post"><input type="hidden" name="chk" value="%s"><input type="hidden" name="localid" value="local-%s"></form>
%s
</body></html>`, nation, nation, region, chk, chk, extra)
}

func writeLoggedOut(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<html><body>
<form id="loginbox" method="post"><input type="hidden" name="logging_in" value="1">
<input name="nation"><input type="password" name="password"></form>
</body></html>`))
}

var testIdentity = ScriptIdentity{
	Name:    "Prepper",
	Version: "1.2",
	Author:  "Testlandia",
	User:    "Maxtopia",
}

func newTestSession(t *testing.T, site *fakeSite, opts Options) (*Session, userinput.Events) {
	events := make(userinput.Events, 16)
	if opts.Input == nil {
		opts.Input = events
	}
	if opts.Identity == (ScriptIdentity{}) {
		opts.Identity = testIdentity
	}
	opts.BaseUrl = site.server.URL
	s, err := New(opts)
	require.NoError(t, err)
	return s, events
}

func press(events userinput.Events, at time.Time) {
	events <- userinput.Event{At: at, Key: "space"}
}

func loggedInSession(t *testing.T, site *fakeSite) (*Session, userinput.Events) {
	s, events := newTestSession(t, site, Options{})
	press(events, time.Now())
	ok, err := s.Login(testContext(t), "Testlandia", "hunter2")
	require.NoError(t, err)
	require.True(t, ok)
	return s, events
}
