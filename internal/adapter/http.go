package adapter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/logger"
)

// maxResponseBytes bounds how much of a response body is read into memory
const maxResponseBytes = 16 << 20

// StatusError is returned when a server answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt (429 and 5xx)
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// RetryPolicy configures the exponential backoff applied to retryable failures
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy is used when a zero RetryPolicy is given
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 2 * time.Second,
	MaxInterval:     30 * time.Second,
	MaxElapsedTime:  1 * time.Minute,
}

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// Post performs a POST request and returns the response body.
	// The body is resent on every retry.
	Post(ctx context.Context, url string, contentType string, body []byte, headers map[string]string) ([]byte, error)

	// Get performs a GET request and returns the response body
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
	io     IO
	policy RetryPolicy
}

// NewHTTPClient creates a new real HTTP client
func NewHTTPClient(timeout time.Duration, policy RetryPolicy) HTTPClient {
	if policy.InitialInterval == 0 {
		policy.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if policy.MaxInterval == 0 {
		policy.MaxInterval = DefaultRetryPolicy.MaxInterval
	}
	if policy.MaxElapsedTime == 0 {
		policy.MaxElapsedTime = DefaultRetryPolicy.MaxElapsedTime
	}

	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		io:     NewIO(),
		policy: policy,
	}
}

// doRequestWithRetry executes a request built by newReq with exponential backoff.
// Network errors, 429 and 5xx are retried. Other non-2xx statuses fail immediately.
func (c *RealHTTPClient) doRequestWithRetry(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var respBody []byte

	operation := func() error {
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			logger.WarnCtx(ctx, "request failed, retrying with backoff", zap.Error(err), zap.String("url", req.URL.String()))
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("url", req.URL.String()))
			}
		}()

		body, err := c.io.ReadAllLimited(resp.Body, maxResponseBytes)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
			if statusErr.Retryable() {
				logger.WarnCtx(ctx, "retryable status, retrying with backoff",
					zap.Int("status", resp.StatusCode),
					zap.String("url", req.URL.String()))
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		respBody = body
		return nil
	}

	// Configure exponential backoff
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.InitialInterval
	b.MaxInterval = c.policy.MaxInterval
	b.MaxElapsedTime = c.policy.MaxElapsedTime // Total retry duration
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Add jitter to prevent thundering herd

	// Execute with retry and context support
	// Permanent errors are returned unwrapped by backoff.Retry
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return respBody, nil
}

// Post performs a POST request and returns the response body
func (c *RealHTTPClient) Post(ctx context.Context, url string, contentType string, body []byte, headers map[string]string) ([]byte, error) {
	return c.doRequestWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

// Get performs a GET request and returns the response body
func (c *RealHTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.doRequestWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
