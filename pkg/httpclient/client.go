package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"govreporter/pkg/circuitbreaker"
	"govreporter/pkg/logger"
)

// StatusError reports a non-2xx response. 429 and 5xx are retriable.
type StatusError struct {
	StatusCode int
	URL        string
	Snippet    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Temporary reports whether the request may succeed on retry.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Config tunes one upstream client.
type Config struct {
	// Timeout bounds a single request attempt. Default 30s.
	Timeout time.Duration
	// RequestInterval is the minimum spacing between requests to the
	// upstream. Zero disables pacing.
	RequestInterval time.Duration
	// MaxRetries is the number of additional attempts after the first.
	// Default 3.
	MaxRetries int
	// RetryBaseDelay is the first backoff step, doubled per retry.
	// Default 1s.
	RetryBaseDelay time.Duration
	// UserAgent identifies this service to the upstream.
	UserAgent string
	// Headers are set on every request (auth tokens and the like).
	Headers map[string]string
}

// Client wraps the standard http.Client with request pacing, retry with
// exponential backoff and a circuit breaker. Server errors (>=500) count
// against the breaker; throttling (429) only backs off.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	userAgent  string
	headers    map[string]string
}

// New creates a Client for one upstream host.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}

	breaker := circuitbreaker.New(5, 2, 30*time.Second, circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
		if log != nil {
			log.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("upstream circuit breaker state changed")
		}
	}))

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		userAgent:  cfg.UserAgent,
		headers:    cfg.Headers,
	}
}

// Get issues a paced, retried GET and returns the open response body on 2xx.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if len(params) > 0 {
		sep := "?"
		if u, err := url.Parse(rawURL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		rawURL = rawURL + sep + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt, lastErr)); err != nil {
				return nil, err
			}
		}
		// Retries respect the minimum request interval too, not just backoff.
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.attempt(ctx, rawURL)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || ctx.Err() != nil {
			return nil, err
		}
		if !retriable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("GET %s: giving up after %d attempts: %w", rawURL, c.maxRetries+1, lastErr)
}

// GetJSON decodes a JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	resp, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

// GetBytes returns the raw body and the Content-Type header.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response from %s: %w", rawURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) attempt(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	res, breakerErr := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		// Server-side errors count against the breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, newStatusError(resp)
		}
		return resp, nil
	})
	if breakerErr != nil {
		return nil, breakerErr
	}

	resp := res.(*http.Response)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	return nil, newStatusError(resp)
}

// backoff doubles the base delay per retry, deferring to Retry-After when the
// upstream sent one.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	var se *StatusError
	if errors.As(lastErr, &se) && se.RetryAfter > delay {
		delay = se.RetryAfter
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retriable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// Network-level failures are worth retrying.
	return true
}

// newStatusError drains and closes the response body.
func newStatusError(resp *http.Response) *StatusError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	var retryAfter time.Duration
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Snippet:    string(snippet),
		RetryAfter: retryAfter,
	}
}
