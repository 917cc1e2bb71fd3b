package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nsdotgo/lib/ratelimit"
	"nsdotgo/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/publicsuffix"
)

type transportOptions struct {
	baseUrl          string
	userAgent        string
	timeout          time.Duration
	instrumentOutput restyutil.InstrumentOutput
	errorPages       restyutil.InstrumentOutput
}

type transport struct {
	http       *resty.Client
	base       *url.URL
	jar        *cookiejar.Jar
	errorPages restyutil.InstrumentOutput
}

func newTransport(opts transportOptions) (*transport, error) {
	base, err := url.Parse(opts.baseUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %s", ErrConfiguration, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q is not absolute", ErrConfiguration, opts.baseUrl)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.baseUrl, "/"))
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", opts.userAgent)
	// redirects are handed back to the caller, never followed
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	client.SetTimeout(opts.timeout)
	restyutil.InstrumentClient(client, otel.Tracer("scrapers/nationstates/http"), opts.instrumentOutput)

	return &transport{
		http:       client,
		base:       base,
		jar:        jar,
		errorPages: opts.errorPages,
	}, nil
}

// resolve turns a page path into an absolute url on the session's host.
func (t *transport) resolve(page string) (*url.URL, error) {
	ref, err := url.Parse(page)
	if err != nil {
		return nil, err
	}
	if ref.Host != "" && !strings.EqualFold(ref.Hostname(), t.base.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrForeignHost, ref.Host)
	}
	return t.base.ResolveReference(ref), nil
}

func (t *transport) resetCookies() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	t.http.SetCookieJar(jar)
	t.jar = jar
	return nil
}

func (t *transport) cookie(name string) string {
	for _, c := range t.jar.Cookies(t.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type exchange struct {
	channel ratelimit.Channel
	method  string
	url     string
	form    url.Values
	files   []File
	query   url.Values
	header  map[string]string
}

func (t *transport) do(ctx context.Context, ex exchange) (*Response, error) {
	req := t.http.R().SetContext(ctx)
	if len(ex.header) > 0 {
		req.SetHeaders(ex.header)
	}
	if len(ex.query) > 0 {
		req.SetQueryParamsFromValues(ex.query)
	}
	if ex.form != nil {
		req.SetFormDataFromValues(ex.form)
	}
	for _, f := range ex.files {
		req.SetMultipartField(f.Field, f.Name, f.contentType(), f.Content)
	}

	res, err := req.Execute(ex.method, ex.url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Method: ex.method, URL: ex.url, Err: err}
	}

	out := &Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       res.Body(),
		URL:        ex.url,
	}
	if out.StatusCode == http.StatusTooManyRequests {
		return nil, &ratelimit.LimitError{
			Channel:    ex.channel,
			RetryAfter: parseRetryAfter(out.Header.Get("Retry-After"), time.Now()),
			Remote:     true,
		}
	}
	if out.StatusCode >= 400 {
		statusErr := &StatusError{StatusCode: out.StatusCode, URL: ex.url}
		if t.errorPages != nil {
			statusErr.ErrorPage = "error-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + ".html"
			t.errorPages.Write(statusErr.ErrorPage, out.Text())
		}
		return nil, statusErr
	}
	return out, nil
}

// withUserClick appends the key press instant as a userclick path segment.
func withUserClick(u *url.URL, at time.Time) string {
	clicked := *u
	clicked.Path = strings.TrimSuffix(clicked.Path, "/") + "/userclick=" + strconv.FormatInt(at.UnixMilli(), 10)
	clicked.RawPath = ""
	return clicked.String()
}
