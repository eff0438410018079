package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"promptboard/internal/errors"
	"promptboard/internal/httputil"
	"promptboard/internal/logger"
)

const defaultBaseURL = "https://api.openai.com"

// Client is a thin adapter over the OpenAI chat-completions endpoint. It
// performs exactly one attempt per call: run failures surface to the run
// controller, which moves the card back to To Do rather than retrying.
type Client struct {
	http    *httputil.RetryableClient
	baseURL string
}

// NewClient builds a client against the public API, honoring
// PROMPTBOARD_OPENAI_BASE_URL for proxies and tests.
func NewClient() *Client {
	base := os.Getenv("PROMPTBOARD_OPENAI_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return NewClientWithBaseURL(base)
}

// NewClientWithBaseURL builds a client against a specific endpoint.
func NewClientWithBaseURL(base string) *Client {
	return &Client{
		http:    httputil.NewRetryableClient(httputil.DefaultTimeout, 0),
		baseURL: base,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends the prompt as a single user message to the given model and
// returns the first choice's content. Implements board.Completer.
func (c *Client) Complete(ctx context.Context, model, prompt, credential string) (string, error) {
	req, err := httputil.NewJSONRequest("POST", fmt.Sprintf("%s/v1/chat/completions", c.baseURL), chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	logger.HTTP("POST", req.URL.String())
	start := time.Now()

	resp, err := c.http.DoWithRetry(ctx, req)
	if err != nil {
		return "", errors.NewCompletionError(model, err)
	}
	defer resp.Body.Close()
	logger.HTTPResponse(resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", errors.NewCompletionError(model, err)
	}

	var parsed chatResponse
	if resp.StatusCode != http.StatusOK {
		// The API wraps failures in an error object; surface its message
		// when present, the raw body otherwise.
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return "", errors.NewCompletionError(model, fmt.Errorf("%d %s", resp.StatusCode, parsed.Error.Message))
		}
		return "", errors.NewHttpError(resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.NewCompletionError(model, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", errors.NewCompletionError(model, fmt.Errorf("response contained no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}
