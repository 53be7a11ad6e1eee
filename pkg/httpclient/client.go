package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// maxBody caps how much of a provider response is read.
const maxBody = 8 << 20

// secretParams are query parameters carrying provider credentials.
var secretParams = []string{"key", "appid", "api_key", "apikey", "access_token"}

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Provider, e.Code)
}

// Options tunes a provider client.
type Options struct {
	Name      string
	Timeout   time.Duration
	UserAgent string
	// Limiter throttles outgoing calls when set (Nominatim/Overpass usage policies).
	Limiter *rate.Limiter
	// HTTPClient overrides the underlying client, mostly for tests.
	HTTPClient *http.Client
}

// Client is a JSON HTTP client guarded by a circuit breaker.
type Client struct {
	name      string
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// New builds a provider client with its own breaker.
func New(opts Options, logger *slog.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	l := logger.With(slog.String("provider", opts.Name))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     45 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("Circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Client{
		name:      opts.Name,
		http:      hc,
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
		breaker:   cb,
		logger:    l,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// GetJSON issues a GET to base with query params and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, base string, query url.Values, out any) error {
	target := base
	if len(query) > 0 {
		target = base + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	return c.do(ctx, req, out)
}

// PostFormJSON posts form-encoded data and decodes the JSON body into out.
func (c *Client) PostFormJSON(ctx context.Context, target string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, req, out)
}

// GetRaw issues a GET and returns the body as-is after checking it is valid JSON.
func (c *Client) GetRaw(ctx context.Context, base string, query url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.GetJSON(ctx, base, query, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limiter: %w", c.name, err)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	body, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				urlErr.URL = RedactURL(req.URL)
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{Provider: c.name, Code: resp.StatusCode}
		}
		return data, nil
	})
	if err != nil {
		c.logger.Debug("Provider call failed", slog.String("url", RedactURL(req.URL)), slog.Any("error", err))
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}

// RedactURL renders u with credential query parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	query := clean.Query()
	masked := false
	for _, name := range secretParams {
		if query.Has(name) {
			query.Set(name, "xxxxx")
			masked = true
		}
	}
	if masked {
		clean.RawQuery = query.Encode()
	}
	return clean.Redacted()
}
