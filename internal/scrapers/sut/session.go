package sut

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"bonchassist-backend/internal/components/assert"
	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	report_session_login = "session.login"
	report_session_fetch = "session.fetch"
	report_session_post  = "session.post"
)

// Session is a cookie-carrying HTTP client for the portal. A fresh session is
// anonymous, Login makes it authenticated. Session does not interpret the
// pages it fetches.
type Session struct {
	http    *resty.Client
	options Options
	tel     telemetry.API
}

func NewSession(options Options, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(options.CabinetURL)

	tel = telemetry.NewScopedAPI("sut", tel)

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if options.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	if options.UserAgent != "" {
		httpClient.SetHeader("user-agent", options.UserAgent)
	}
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(options.hostnames()...))
	if options.Timeout > 0 {
		httpClient.SetTimeout(options.Timeout)
	}

	if options.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(
			rate.Limit(options.RequestsPerSecond),
			max(1, int(options.RequestsPerSecond)),
		)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "bonchassist.sut")
	if options.DumpDir != "" {
		output, err := restyutil.NewDirectoryOutput(options.DumpDir)
		if err != nil {
			return nil, err
		}
		restyutil.Dump(httpClient, output)
	}

	return &Session{
		http:    httpClient,
		options: options,
		tel:     tel,
	}, nil
}

func (s *Session) Options() Options {
	return s.options
}

// Login authenticates the session with the portal's credentials endpoint.
// It never returns an error, network failures and rejected credentials alike
// leave the session unauthenticated and return false.
func (s *Session) Login(ctx context.Context, login, password string) bool {
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("login", "no").
		Get(s.options.CabinetURL)
	if err != nil {
		s.tel.ReportWarning(report_session_login, fmt.Errorf("open cabinet: %w", err))
		return false
	}
	if res.IsError() {
		s.tel.ReportWarning(report_session_login, fmt.Errorf("open cabinet: status %s", res.Status()))
		return false
	}

	res, err = s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"users":  login,
			"parole": password,
		}).
		Post(s.options.AuthURL)
	if err != nil {
		s.tel.ReportWarning(report_session_login, fmt.Errorf("authenticate: %w", err))
		return false
	}
	if res.IsError() {
		s.tel.ReportWarning(report_session_login, fmt.Errorf("authenticate: status %s", res.Status()))
		return false
	}
	if res.String() != "1" {
		s.tel.ReportWarning(report_session_login, "credentials rejected", login)
		return false
	}

	res, err = s.http.R().
		SetContext(ctx).
		SetQueryParam("login", "yes").
		Get(s.options.CabinetURL)
	if err != nil {
		s.tel.ReportWarning(report_session_login, fmt.Errorf("enter cabinet: %w", err))
		return false
	}
	if res.IsError() {
		s.tel.ReportWarning(report_session_login, fmt.Errorf("enter cabinet: status %s", res.Status()))
		return false
	}

	s.tel.ReportDebug(report_session_login, "logged in", login)
	return true
}

// Fetch performs a GET with the session's cookies and returns the body
// decoded to UTF-8. Non-2xx responses are errors.
func (s *Session) Fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	if res.IsError() {
		s.tel.ReportDebug(report_session_fetch, endpoint, res.Status())
		return nil, fmt.Errorf("fetch %s: status %s", endpoint, res.Status())
	}
	return decodeBody(res)
}

// Post performs a POST with the session's cookies, parameters are sent in the
// query string.
func (s *Session) Post(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	if res.IsError() {
		s.tel.ReportDebug(report_session_post, endpoint, res.Status())
		return nil, fmt.Errorf("post %s: status %s", endpoint, res.Status())
	}
	return decodeBody(res)
}

func decodeBody(res *resty.Response) ([]byte, error) {
	reader, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("content-type"))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return io.ReadAll(reader)
}

// IsExpiredMarker reports whether a page is the portal's answer to an
// expired session: the body contains a relogin marker or equals a denied
// literal (surrounding whitespace ignored).
func IsExpiredMarker(body string, markers Markers) bool {
	trimmed := strings.TrimSpace(body)
	for _, literal := range markers.Denied {
		if literal != "" && trimmed == literal {
			return true
		}
	}
	for _, marker := range markers.Relogin {
		if marker != "" && strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
