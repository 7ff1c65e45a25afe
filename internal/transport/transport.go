// Package transport executes outbound calls to the target platform with
// bounded retries. Only rate limiting (HTTP 429) and read timeouts are
// retried; every other transport failure abandons the call immediately so a
// misbehaving endpoint cannot stall a bulk run.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"exodus/pkg/platform/sentinel"
)

const (
	// DefaultMaxAttempts bounds how often a single call is tried.
	DefaultMaxAttempts = 4
	// backoffBase grows the wait exponentially: 5s, 25s, 125s. Aggressive on
	// purpose; a long-running bulk job must yield to strict provider rate
	// limits rather than hammer them.
	backoffBase = 5 * time.Second
)

// Sleeper suspends between retry attempts. Injected so tests can count
// backoffs without waiting.
type Sleeper func(time.Duration)

// Response is the subset of an HTTP response callers consume. The body is
// fully read before the response is returned.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client is the retrying HTTP invoker shared by all target-platform calls.
type Client struct {
	http        *http.Client
	maxAttempts int
	sleep       Sleeper
	logger      *slog.Logger
	retries     prometheus.Counter
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithRetryCounter increments the given counter once per retried attempt.
func WithRetryCounter(counter prometheus.Counter) Option {
	return func(c *Client) { c.retries = counter }
}

// New builds a Client with a bounded per-request timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: timeout},
		maxAttempts: DefaultMaxAttempts,
		sleep:       time.Sleep,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke performs one logical call, retrying on 429 and read timeouts with
// exponential backoff. Exhausting all attempts returns an error wrapping
// sentinel.ErrUnavailable; callers must treat that as "request not
// completed" and record a per-user failure rather than aborting the run.
func (c *Client) Invoke(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var cause error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.do(ctx, method, url, headers, body)
		switch {
		case err == nil && resp.StatusCode != http.StatusTooManyRequests:
			return resp, nil

		case err == nil:
			cause = sentinel.ErrRateLimited
			c.logger.Info("rate limit reached",
				"url", url, "attempt", attempt, "max_attempts", c.maxAttempts)

		case isTimeout(err):
			cause = fmt.Errorf("%w: %v", sentinel.ErrTimeout, err)
			c.logger.Warn("request timed out",
				"url", url, "attempt", attempt, "max_attempts", c.maxAttempts)

		default:
			// Anything else is not worth retrying: abandon the call.
			c.logger.Error("request failed", "url", url, "error", err)
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}

		if attempt < c.maxAttempts {
			wait := backoff(attempt)
			c.logger.Info("retrying", "url", url, "wait", wait)
			if c.retries != nil {
				c.retries.Inc()
			}
			c.sleep(wait)
		}
	}

	c.logger.Error("max retries reached, giving up", "url", url)
	return nil, fmt.Errorf("%s %s: max retries reached: %w: %w", method, url, sentinel.ErrUnavailable, cause)
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: payload}, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func backoff(attempt int) time.Duration {
	wait := backoffBase
	for i := 1; i < attempt; i++ {
		wait *= 5
	}
	return wait
}
