package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"promptboard/internal/errors"
)

// DefaultTimeout is the standard timeout for HTTP requests. Completion
// calls can be slow for long prompts, so this is deliberately generous.
const DefaultTimeout = 120 * time.Second

// RetryableClient provides HTTP operations with consistent timeout and retry behavior
type RetryableClient struct {
	client  *http.Client
	timeout time.Duration
	retries int
}

// NewRetryableClient creates a new HTTP client with timeout and retry configuration
func NewRetryableClient(timeout time.Duration, retries int) *RetryableClient {
	return &RetryableClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		retries: retries,
	}
}

// NewDefaultClient creates a client with standard timeout and retry settings
func NewDefaultClient() *RetryableClient {
	return NewRetryableClient(DefaultTimeout, 2)
}

// NewJSONRequest builds a request with a JSON-encoded body and the
// matching content-type header. payload may be nil for bodyless requests.
func NewJSONRequest(method, url string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// DoWithRetry executes an HTTP request with retry logic for transient errors.
// Requests with a body must carry a GetBody (http.NewRequest sets it for
// byte readers), since a retry re-clones the request.
func (c *RetryableClient) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Set context with timeout if not already set
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		// Clone request with context
		reqWithCtx := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			reqWithCtx.Body = body
		}

		resp, err := c.client.Do(reqWithCtx)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed (attempt %d/%d): %w", attempt+1, c.retries+1, err)
			if attempt < c.retries {
				// Wait before retry with exponential backoff
				waitTime := time.Duration(attempt+1) * 500 * time.Millisecond
				select {
				case <-time.After(waitTime):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}

		// Check if we should retry based on status code
		if shouldRetry(resp.StatusCode) && attempt < c.retries {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP request returned retryable status %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.retries+1)

			// Wait before retry
			waitTime := time.Duration(attempt+1) * 500 * time.Millisecond
			select {
			case <-time.After(waitTime):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return resp, nil
	}

	return nil, lastErr
}

// DoJSONRequest executes a request with retry logic and decodes a
// successful JSON response into result.
func (c *RetryableClient) DoJSONRequest(ctx context.Context, req *http.Request, result interface{}) error {
	resp, err := c.DoWithRetry(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read error body for debugging
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewHttpError(resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// shouldRetry determines if a status code indicates a retryable error
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}
