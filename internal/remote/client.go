// Package remote implements the wire boundary to the Cragbook backend:
// a REST interface over the remote relational store (PostgREST-style
// row endpoints), one stateless table adapter per entity kind, and the
// transport layer that owns per-call retries.
//
// Retry responsibilities are split deliberately: this package retries
// individual HTTP calls (backoff with jitter on 5xx/429, bounded
// attempts, circuit breaker), while the sync outbox retries whole
// operations at the semantic level.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	apperrors "github.com/stevoh213/cragbook/internal/errors"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Config holds remote client configuration.
type Config struct {
	BaseURL    string
	APIKey     string // project api key, sent on every request
	Token      string // per-user bearer token (JWT)
	Timeout    time.Duration
	MaxRetries uint64
	Logger     zerolog.Logger
}

// Client is the shared HTTP transport under every table adapter.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        zerolog.Logger
	maxRetries uint64

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client. The circuit breaker opens after repeated
// transport failures so an unreachable backend fails fast instead of
// burning the retry budget of every record in a pass.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: timeout},
		log:        cfg.Logger,
		maxRetries: maxRetries,
		token:      cfg.Token,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cragbook-remote",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only connectivity-class failures count against the
			// breaker; a 4xx rejection means the backend is healthy.
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return c
}

// SetToken replaces the bearer token after a re-authentication flow.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do executes one logical call: local credential check, then the
// request with bounded exponential backoff and jitter around transient
// failures. Returns the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) ([]byte, error) {
	token := c.currentToken()
	if expired, err := tokenExpired(token, time.Now()); err == nil && expired {
		// Fail fast: an expired credential needs a re-authentication
		// flow upstream, retrying the request cannot fix it.
		return nil, apperrors.New(apperrors.ErrAuthExpired, "bearer token expired")
	}

	var out []byte
	attempt := func() error {
		res, err := c.breaker.Execute(func() ([]byte, error) {
			return c.doOnce(ctx, method, path, query, body, headers, token)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(apperrors.Wrap(apperrors.ErrTransport, "remote unavailable", err))
			}
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string, token string) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}

	req.Header.Set("apikey", c.apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransport, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransport, "failed to read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, classifyStatus(resp.StatusCode, method, path, data)
}

func classifyStatus(status int, method, path string, body []byte) error {
	msg := fmt.Sprintf("%s %s returned %d: %s", method, path, status, truncate(body, 200))

	switch {
	case status == http.StatusUnauthorized:
		return apperrors.New(apperrors.ErrAuthExpired, msg)
	case status == http.StatusForbidden:
		return apperrors.New(apperrors.ErrAuthDenied, msg)
	case status == http.StatusNotFound:
		return apperrors.New(apperrors.ErrNotFound, msg)
	case status == http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrRateLimited, msg)
	case status >= 500:
		return apperrors.New(apperrors.ErrServer, msg)
	default:
		// Remaining 4xx: the payload is the problem, retrying cannot
		// help. The record stays dirty until fixed.
		return apperrors.New(apperrors.ErrValidation, msg)
	}
}

func isRetryable(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrTransport, apperrors.ErrServer, apperrors.ErrRateLimited:
		return true
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
