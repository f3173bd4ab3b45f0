// Package fetch is the HTTP layer shared by the scrape jobs.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// StatusError reports a response other than 200 OK.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP status code %d", e.URL, e.Code)
}

// Is makes errors.Is(err, pgscrape.ErrFetchFailed) hold for status errors.
func (e *StatusError) Is(target error) bool {
	return target == pgscrape.ErrFetchFailed
}

// Client issues GET requests with a fixed User-Agent and timeout.
// It does not retry.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  pgscrape.Logger
}

type Option func(*Client)

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.http.SetHeader("User-Agent", ua) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithMinInterval spaces consecutive requests at least d apart. The first
// request goes out immediately.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func WithLogger(l pgscrape.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	c := &Client{http: resty.New()}
	c.http.SetHeader("User-Agent", pgscrape.DefaultUserAgent)
	c.http.SetTimeout(pgscrape.DefaultHTTPTimeout)
	for _, opt := range opts {
		opt(c)
	}

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(req.Context()); err != nil {
				return err
			}
		}
		if c.logger != nil {
			c.logger.Verbose("GET %s", req.URL)
		}
		return nil
	})
	return c
}

// NewFromSources builds a Client from the user agent and timeout in src.
func NewFromSources(src pgscrape.SourceConfig, opts ...Option) *Client {
	base := []Option{WithUserAgent(src.UserAgent), WithTimeout(src.HTTPTimeout)}
	return New(append(base, opts...)...)
}

// Get fetches rawURL with query appended and returns the body.
// Only 200 OK counts as success. Transport failures and any other status
// wrap pgscrape.ErrFetchFailed; the latter as *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w: %w", rawURL, pgscrape.ErrFetchFailed, err)
	}
	if code := res.StatusCode(); code != http.StatusOK {
		return nil, &StatusError{URL: requestURL(res, rawURL), Code: code}
	}
	return res.Body(), nil
}

func requestURL(res *resty.Response, fallback string) string {
	if res.Request != nil && res.Request.RawRequest != nil {
		return res.Request.RawRequest.URL.String()
	}
	return fallback
}
