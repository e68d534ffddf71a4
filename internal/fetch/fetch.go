// Package fetch implements the HTTP page fetcher.
//
// One call is one request: the client never retries on its own, because the
// scroll controller owns the retry counter and the backoff timers. Responses
// are decoded by gjson paths so the fetcher adapts to different envelopes
// without a schema per backend.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/roach88/feedsync/internal/ir"
	"github.com/roach88/feedsync/internal/retry"
)

const (
	DefaultPageSize = 20
	DefaultTimeout  = 15 * time.Second

	// maxErrorBody bounds the body kept on a StatusError.
	maxErrorBody = 512
)

// Paths locates the parts of the response envelope.
type Paths struct {
	Items    string `json:"items" yaml:"items"`
	HasMore  string `json:"has_more" yaml:"has_more"`
	NextLink string `json:"next_link" yaml:"next_link"`
}

// DefaultPaths matches `{"data": [...], "meta": {"has_more": bool}, "links": {"next": "..."}}`.
var DefaultPaths = Paths{
	Items:    "data",
	HasMore:  "meta.has_more",
	NextLink: "links.next",
}

// Client fetches pages of a feed endpoint.
type Client struct {
	endpoint string
	pageSize int
	paths    Paths
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the page_size query parameter.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPaths overrides the envelope paths. Empty fields keep their defaults.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		if p.Items != "" {
			c.paths.Items = p.Items
		}
		if p.HasMore != "" {
			c.paths.HasMore = p.HasMore
		}
		if p.NextLink != "" {
			c.paths.NextLink = p.NextLink
		}
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *retryablehttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a fetcher for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}

	c := &Client{
		endpoint: endpoint,
		pageSize: DefaultPageSize,
		paths:    DefaultPaths,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = retry.NewSingleShotClient(nil, DefaultTimeout)
	}
	return c, nil
}

// PageURL renders the request URL for one page of filter.
func (c *Client) PageURL(filter ir.Filter, page int) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	for k, vs := range filter.Values() {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPage performs one GET for one page.
func (c *Client) FetchPage(ctx context.Context, filter ir.Filter, page int) (ir.Page, error) {
	target, err := c.PageURL(filter, page)
	if err != nil {
		return ir.Page{}, &retry.RequestError{Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ir.Page{}, ctxErr
			}
			return ir.Page{}, &retry.TransportError{Err: err}
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ir.Page{}, &retry.RequestError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ir.Page{}, ctxErr
		}
		return ir.Page{}, &retry.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ir.Page{}, &retry.TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("page fetched",
		"page", page,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ir.Page{}, &retry.StatusError{
			StatusCode: resp.StatusCode,
			URL:        target,
			Body:       truncate(string(body), maxErrorBody),
		}
	}

	p, err := Decode(body, c.paths)
	if err != nil {
		return ir.Page{}, fmt.Errorf("page %d: %w", page, err)
	}
	p.Number = page
	return p, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
