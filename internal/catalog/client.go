package catalog

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"bggetl/internal/datasource/file"
	"bggetl/internal/datasource/httpds"
	"bggetl/internal/errs"
	"bggetl/internal/logging"
)

const (
	DefaultBaseURL   = "https://boardgamegeek.com/xmlapi2"
	DefaultBatchSize = 20
	DefaultDelay     = 5 * time.Second

	thingResource = "thing"
)

// Getter performs one GET and returns the status and full body.
// *httpds.Client implements it.
type Getter interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// Config holds the client settings. Zero fields take the defaults above;
// negative values are rejected.
type Config struct {
	BaseURL   string
	BatchSize int
	Delay     time.Duration
}

// Client queries the catalog XML API in fixed-size batches with a fixed
// pause after each one. A Client is used by one goroutine at a time.
type Client struct {
	http  Getter
	cfg   Config
	log   *logging.Logger
	sleep httpds.SleepFunc
}

// NewClient validates cfg and returns a Client.
func NewClient(getter Getter, cfg Config, log *logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 {
		return nil, &errs.ConfigurationError{Field: "batch_size", Message: fmt.Sprintf("must be at least 1, got %d", cfg.BatchSize)}
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Delay < 0 {
		return nil, &errs.ConfigurationError{Field: "delay", Message: fmt.Sprintf("must not be negative, got %s", cfg.Delay)}
	}
	return &Client{http: getter, cfg: cfg, log: logging.Or(log), sleep: httpds.SleepContext}, nil
}

// WithSleep replaces the inter-batch sleeper. Tests use it to count delays.
func (c *Client) WithSleep(fn httpds.SleepFunc) *Client {
	c.sleep = fn
	return c
}

// Config returns the settings after defaults were applied.
func (c *Client) Config() Config { return c.cfg }

// QueryBatch fetches one batch of items with statistics. Any status other
// than 200 is a *errs.RemoteError; the body is returned verbatim otherwise.
func (c *Client) QueryBatch(ctx context.Context, ids []string) (string, error) {
	url := BuildQueryURL(c.cfg.BaseURL, thingResource,
		Param{"stats", "1"},
		Param{"id", strings.Join(ids, ",")},
	)
	status, body, err := c.http.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("catalog: query batch: %w", err)
	}
	if status != http.StatusOK {
		return "", &errs.RemoteError{StatusCode: status, URL: url}
	}
	return string(body), nil
}

// BulkQuery lazily yields one payload per batch of ids. After each yielded
// batch it waits the configured delay before continuing, so two requests
// are never closer than Delay apart. The first error is yielded once and
// ends the sequence. Breaking out of the loop stops further requests.
func (c *Client) BulkQuery(ctx context.Context, ids []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		batches, err := SegmentList(ids, c.cfg.BatchSize)
		if err != nil {
			yield("", err)
			return
		}
		c.log.Info("bulk query", "ids", len(ids), "batches", len(batches), "batch_size", c.cfg.BatchSize)

		for i, batch := range batches {
			payload, err := c.QueryBatch(ctx, batch)
			if err != nil {
				yield("", err)
				return
			}
			c.log.Debug("fetched batch", "batch", i, "ids", len(batch), "bytes", len(payload))
			if !yield(payload, nil) {
				return
			}
			if err := c.sleep(ctx, c.cfg.Delay); err != nil {
				yield("", err)
				return
			}
		}
	}
}

// ExtractToDir runs BulkQuery and writes each payload to dir as 0000.xml,
// 0001.xml, and so on. It returns the number of files written.
func (c *Client) ExtractToDir(ctx context.Context, ids []string, dir string) (int, error) {
	n := 0
	for payload, err := range c.BulkQuery(ctx, ids) {
		if err != nil {
			return n, err
		}
		if _, err := file.WriteBatch(ctx, dir, n, payload); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
