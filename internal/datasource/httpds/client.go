// Package httpds is the plain HTTP side of the pipeline: a small client with
// optional retry and exponential backoff, used for the catalog API. It can
// share a cookie jar with a logged-in session.
//
// Retries are opt-in. With MaxRetries == 0 every request is made exactly once
// and whatever status comes back is returned to the caller.
package httpds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "bggetl/1.0"

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the real SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config configures a Client. Zero values get defaults:
// Timeout 30s, InitialBackoff 200ms, MaxBackoff 5s.
type Config struct {
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after the first one on a
	// transport error, 429 or 5xx.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	UserAgent string

	// Jar, when set, lets the client share cookies with an authenticated
	// session.
	Jar http.CookieJar

	// Transport overrides the default proxy-aware transport.
	Transport http.RoundTripper
}

// Client wraps http.Client with retry and backoff.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string

	sleep SleepFunc
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			Jar:       cfg.Jar,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		userAgent:      cfg.UserAgent,
		sleep:          SleepContext,
	}
}

// WithSleep replaces the backoff sleeper. Tests use it to avoid real waits.
func (c *Client) WithSleep(fn SleepFunc) *Client {
	c.sleep = fn
	return c
}

// Do sends one request, retrying transport errors and retryable statuses up
// to MaxRetries times. The body is a byte slice so it can be re-sent.
// The caller must close the returned response body.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	if method == "" {
		return nil, fmt.Errorf("httpds: method must not be empty")
	}
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	attempts := c.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case attempt+1 < attempts && isRetryableStatus(resp.StatusCode):
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpds: retryable status %d from %s %s", resp.StatusCode, method, url)
		default:
			return resp, nil
		}

		if attempt+1 >= attempts {
			break
		}
		if err := c.sleep(ctx, backoffDuration(c.initialBackoff, attempt, c.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

// Fetch GETs url and reads the whole body. Any status is returned as-is;
// deciding what counts as success is up to the caller.
func (c *Client) Fetch(ctx context.Context, url string) (status int, body []byte, err error) {
	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("httpds: read body from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// isRetryableStatus treats 429 and 5xx as transient.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration is initial * 2^attempt, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}
