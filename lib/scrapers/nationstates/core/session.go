package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nsdotgo/lib/htmlutil"
	"nsdotgo/lib/ratelimit"
	"nsdotgo/lib/restyutil"
	"nsdotgo/lib/textutil"
	"nsdotgo/lib/userinput"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/nationstates/core")

type Status int

const (
	Anonymous Status = iota
	Authenticating
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type State struct {
	Status  Status
	Nation  string
	Region  string
	Chk     string
	LocalID string
	// Pin is the site's session pin, it also authenticates the nation on
	// the private data api.
	Pin string
}

type Options struct {
	Identity ScriptIdentity
	// Input supplies the key presses every html request waits for.
	Input userinput.Signal

	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout bounds a single exchange, defaults to 30 seconds.
	Timeout time.Duration

	ClickPolicy ratelimit.Policy
	APIPolicy   ratelimit.Policy
	BlockAPI    bool
	PaceAPI     bool

	// InstrumentOutput receives redacted dumps of every exchange while debug
	// logging is enabled.
	InstrumentOutput restyutil.InstrumentOutput
	// ErrorPages receives the body of every response with status >= 400.
	ErrorPages restyutil.InstrumentOutput
}

// Session is one logged in browsing session. It serializes html requests:
// a second one started while another is in flight fails with
// ErrSimultaneous.
type Session struct {
	identity  ScriptIdentity
	transport *transport
	limiter   *ratelimit.Limiter

	inFlight atomic.Bool

	mu      sync.Mutex
	state   State
	apiPins map[string]string
}

func New(opts Options) (*Session, error) {
	if err := opts.Identity.Validate(); err != nil {
		return nil, err
	}
	if opts.Input == nil {
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, ratelimit.ErrNoInput)
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Options{
		Input:    opts.Input,
		Click:    opts.ClickPolicy,
		API:      opts.APIPolicy,
		BlockAPI: opts.BlockAPI,
		PaceAPI:  opts.PaceAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, err)
	}

	t, err := newTransport(transportOptions{
		baseUrl:          opts.BaseUrl,
		userAgent:        opts.Identity.UserAgent(),
		timeout:          opts.Timeout,
		instrumentOutput: opts.InstrumentOutput,
		errorPages:       opts.ErrorPages,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		identity:  opts.Identity,
		transport: t,
		limiter:   limiter,
		apiPins:   map[string]string{},
	}, nil
}

func (s *Session) Identity() ScriptIdentity {
	return s.identity
}

// State returns a copy of the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Granted reports how many permits a channel has issued.
func (s *Session) Granted(ch ratelimit.Channel) int64 {
	return s.limiter.Granted(ch)
}

func (s *Session) acquire() (func(), error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSimultaneous
	}
	return func() { s.inFlight.Store(false) }, nil
}

func (s *Session) checkPage(page string) (*url.URL, error) {
	lowered := textutil.Canonicalize(page)
	for _, forbidden := range forbiddenPages {
		if strings.Contains(lowered, forbidden) {
			return nil, fmt.Errorf("%w: %s", ErrForbiddenPage, forbidden)
		}
	}
	if strings.Contains(lowered, "api.cgi") {
		return nil, ErrUseAPIRequest
	}
	return s.transport.resolve(page)
}

// click waits for the operator and sends one html request.
func (s *Session) click(ctx context.Context, method string, target *url.URL, form url.Values, files []File) (*Response, error) {
	grant, err := s.limiter.Permit(ctx, ratelimit.ChannelClick)
	if err != nil {
		return nil, err
	}
	res, err := s.transport.do(ctx, exchange{
		channel: ratelimit.ChannelClick,
		method:  method,
		url:     withUserClick(target, grant.At),
		form:    form,
		files:   files,
	})
	if limitErr, ok := err.(*ratelimit.LimitError); ok {
		s.limiter.Backoff(ratelimit.ChannelClick, limitErr.RetryAfter)
	}
	return res, err
}

// Login authenticates as `nation`. It returns false with a nil error when
// the site rejects the credentials, the session is then anonymous.
func (s *Session) Login(ctx context.Context, nation, password string) (bool, error) {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	canon := textutil.Canonicalize(nation)
	if canon == "" || password == "" {
		return false, ErrEmptyCredentials
	}
	span.SetAttributes(attribute.String("nation", canon))

	target, err := s.transport.resolve(loginPage)
	if err != nil {
		return false, err
	}
	release, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer release()

	s.mu.Lock()
	s.state = State{Status: Authenticating, Nation: canon}
	s.mu.Unlock()

	slog.InfoContext(ctx, "logging in", "nation", canon)
	res, err := s.click(ctx, http.MethodPost, target, url.Values{
		"nation":      {canon},
		"password":    {password},
		"theme":       {"century"},
		loggingInName: {"1"},
		"submit":      {"Login"},
	}, nil)
	if err != nil {
		s.resetState()
		span.RecordError(err)
		span.SetStatus(codes.Error, "login request failed")
		return false, err
	}

	tokens, ok := ExtractTokens(res.Body)
	if !ok || tokens.Nation != canon {
		s.resetState()
		slog.WarnContext(ctx, "login rejected", "nation", canon)
		span.SetStatus(codes.Error, "login rejected")
		return false, nil
	}

	s.mu.Lock()
	s.state = State{
		Status:  Authenticated,
		Nation:  canon,
		Region:  tokens.Region,
		Chk:     tokens.Chk,
		LocalID: tokens.LocalID,
		Pin:     s.transport.cookie(pinCookie),
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "logged in", "nation", canon, "region", tokens.Region)
	return true, nil
}

func (s *Session) resetState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

// Logout forgets the session's credentials and cookies. It sends nothing.
func (s *Session) Logout() error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.transport.resetCookies(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.apiPins = map[string]string{}
	return nil
}

// Request posts `form` to `page` as the logged in nation, once the operator
// has pressed the keybind. chk and localid are added unless `form` already
// has them. The response is returned as is, redirects included.
func (s *Session) Request(ctx context.Context, page string, form url.Values, files ...File) (*Response, error) {
	ctx, span := tracer.Start(ctx, "session:Request")
	defer span.End()
	span.SetAttributes(attribute.String("page", page))

	target, err := s.checkPage(page)
	if err != nil {
		return nil, err
	}
	state := s.State()
	if state.Status != Authenticated {
		return nil, ErrNotAuthenticated
	}
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	payload := url.Values{}
	for k, v := range form {
		payload[k] = v
	}
	if !payload.Has(chkField) {
		payload.Set(chkField, state.Chk)
	}
	if !payload.Has(localIdField) {
		payload.Set(localIdField, state.LocalID)
	}

	res, err := s.click(ctx, http.MethodPost, target, payload, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	s.observe(ctx, res)
	return res, nil
}

// Get loads a page without submitting anything. It still waits for the
// operator but works while logged out.
func (s *Session) Get(ctx context.Context, page string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "session:Get")
	defer span.End()
	span.SetAttributes(attribute.String("page", page))

	target, err := s.checkPage(page)
	if err != nil {
		return nil, err
	}
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.click(ctx, http.MethodGet, target, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	s.observe(ctx, res)
	return res, nil
}

// observe refreshes the session from a response: tokens and region from
// pages carrying the logged in marker, a logout from pages offering the
// login form. Fragments without either only refresh tokens.
func (s *Session) observe(ctx context.Context, res *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != Authenticated {
		return
	}
	if pin := s.transport.cookie(pinCookie); pin != "" {
		s.state.Pin = pin
	}
	if res.StatusCode != http.StatusOK || !res.IsHTML() {
		return
	}
	doc, err := res.Document()
	if err != nil {
		return
	}

	tokens, ok := tokensFromDocument(doc)
	if ok {
		if tokens.Nation != s.state.Nation {
			slog.InfoContext(ctx, "logged in nation changed", "from", s.state.Nation, "to", tokens.Nation)
			s.state.Nation = tokens.Nation
		}
		if tokens.Region != "" && tokens.Region != s.state.Region {
			slog.DebugContext(ctx, "region changed", "from", s.state.Region, "to", tokens.Region)
			s.state.Region = tokens.Region
		}
		s.refreshTokensLocked(tokens.Chk, tokens.LocalID)
		return
	}
	if isLoginDocument(doc) {
		slog.WarnContext(ctx, "session was logged out", "nation", s.state.Nation)
		s.state = State{}
		return
	}
	s.refreshFromFragmentLocked(doc)
}

func (s *Session) refreshFromFragmentLocked(doc *goquery.Document) {
	chk, _ := htmlutil.InputValue(doc, chkField)
	localId, _ := htmlutil.InputValue(doc, localIdField)
	s.refreshTokensLocked(chk, localId)
}

func (s *Session) refreshTokensLocked(chk, localId string) {
	if chk != "" {
		s.state.Chk = chk
	}
	if localId != "" {
		s.state.LocalID = localId
	}
}

// RecordRegion notes a region move confirmed by a page that does not show
// the banner.
func (s *Session) RecordRegion(region string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == Authenticated {
		s.state.Region = textutil.Canonicalize(region)
	}
}

// RefreshAuthValues loads a small page to pick up fresh chk and localid
// values, needed after flows that answer with a bare redirect.
func (s *Session) RefreshAuthValues(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:RefreshAuthValues")
	defer span.End()

	slog.InfoContext(ctx, "refreshing authentication values")
	res, err := s.Request(ctx, loginPage, url.Values{"theme": {"century"}})
	if err != nil {
		return err
	}
	if _, ok := ExtractTokens(res.Body); !ok {
		s.resetState()
		span.SetStatus(codes.Error, "not logged in")
		return ErrNotAuthenticated
	}
	return nil
}

// Refound restores a dead nation with its password, which also logs the
// session in as it. It returns false with a nil error when the site does
// not answer with the redirect a successful restore produces.
func (s *Session) Refound(ctx context.Context, nation, password string) (bool, error) {
	ctx, span := tracer.Start(ctx, "session:Refound")
	defer span.End()

	ok, err := s.refound(ctx, nation, password)
	if err != nil || !ok {
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, "refound failed")
		return false, err
	}
	return true, s.RefreshAuthValues(ctx)
}

func (s *Session) refound(ctx context.Context, nation, password string) (bool, error) {
	canon := textutil.Canonicalize(nation)
	if canon == "" || password == "" {
		return false, ErrEmptyCredentials
	}
	target, err := s.checkPage(refoundPage)
	if err != nil {
		return false, err
	}
	release, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer release()

	s.mu.Lock()
	previous := s.state
	s.state = State{Status: Authenticating, Nation: canon}
	s.mu.Unlock()

	slog.InfoContext(ctx, "refounding nation", "nation", canon)
	res, err := s.click(ctx, http.MethodPost, target, url.Values{
		loggingInName:      {"1"},
		"restore_password": {password},
		"restore_nation":   {"1"},
		"nation":           {canon},
	}, nil)
	if err != nil || res.StatusCode != http.StatusFound {
		s.mu.Lock()
		s.state = previous
		s.mu.Unlock()
		return false, err
	}

	s.mu.Lock()
	s.state = State{
		Status: Authenticated,
		Nation: canon,
		Pin:    s.transport.cookie(pinCookie),
	}
	s.mu.Unlock()
	return true, nil
}
