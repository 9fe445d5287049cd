// Package session holds the authenticated HTTP session used to reach
// member-only pages of the catalog site, such as the rankings dump page.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"bggetl/internal/errs"
	"bggetl/internal/logging"
)

// DefaultBaseURL is the catalog site root.
const DefaultBaseURL = "https://boardgamegeek.com"

// LoginPath is the JSON login endpoint, relative to the base URL.
const LoginPath = "/login/api/v1"

// Credentials are the site account used for login.
type Credentials struct {
	Username string
	Password string
}

// Options configure the session client. A zero BaseURL means DefaultBaseURL
// and a zero Timeout means 30s.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Log       *logging.Logger
}

// Session is a logged-in HTTP client. Its cookie jar carries the session
// cookies set by the login response.
type Session struct {
	http *resty.Client
	jar  http.CookieJar
}

type loginBody struct {
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"credentials"`
}

// Authenticate logs in and returns the session. Only 204 No Content counts
// as success; any other status yields *errs.AuthenticationError. Transport
// failures are returned wrapped and are not retried.
func Authenticate(ctx context.Context, opts Options, creds Credentials) (*Session, error) {
	log := logging.Or(opts.Log)
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, &errs.ConfigurationError{Field: "base_url", Message: err.Error()}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}

	var body loginBody
	body.Credentials.Username = creds.Username
	body.Credentials.Password = creds.Password

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(LoginPath)
	if err != nil {
		return nil, fmt.Errorf("session: login request: %w", err)
	}
	if res.StatusCode() != http.StatusNoContent {
		log.Warn("login rejected", "status", res.StatusCode(), "username", creds.Username)
		return nil, &errs.AuthenticationError{StatusCode: res.StatusCode()}
	}
	log.Info("logged in", "username", creds.Username)

	return &Session{http: client, jar: jar}, nil
}

// R starts a request bound to ctx. Relative URLs resolve against BaseURL.
func (s *Session) R(ctx context.Context) *resty.Request {
	return s.http.R().SetContext(ctx)
}

// Jar exposes the session cookies so other clients can reuse them.
func (s *Session) Jar() http.CookieJar { return s.jar }
