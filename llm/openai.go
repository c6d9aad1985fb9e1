// Package llm is a minimal client for the OpenAI Chat Completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/example/todo-chat-demo/domain/apperror"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4.1-mini"
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.3
)

// Failure kinds. Every error returned by Client.Complete matches exactly one
// of them with errors.Is, and also matches apperror.ErrUpstream.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrTimeout           = errors.New("timeout")
	ErrTransport         = errors.New("transport error")
	ErrUpstream          = errors.New("upstream error")
	ErrEmptyResponse     = errors.New("empty response")
)

// Error is a failed completion call.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind, apperror.ErrUpstream}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Category names the failure kind of err for user-facing replies.
func Category(err error) string {
	for _, kind := range []error{ErrMissingCredential, ErrTimeout, ErrTransport, ErrEmptyResponse, ErrUpstream} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrUpstream.Error()
}

// Message is one chat message sent as context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures a Client. Zero values fall back to the defaults; a nil
// Temperature means DefaultTemperature, so 0 stays configurable.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature *float64
}

// Client calls the Chat Completions endpoint once per request, without retries.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	timeout     time.Duration
	temperature float64
	client      *http.Client
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     cfg.Timeout,
		temperature: DefaultTemperature,
		client:      &http.Client{},
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if cfg.Temperature != nil {
		c.temperature = *cfg.Temperature
	}
	return c
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends messages and returns the first choice's text. The call is
// bounded by the client timeout regardless of ctx.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.HasCredential() {
		return "", &Error{Kind: ErrMissingCredential}
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: ErrTransport, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", &Error{Kind: ErrUpstream, Err: fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message)}
		}
		return "", &Error{Kind: ErrUpstream, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", &Error{Kind: ErrUpstream, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return "", &Error{Kind: ErrEmptyResponse}
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", &Error{Kind: ErrEmptyResponse}
	}
	return text, nil
}

func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: ErrTimeout, Err: err}
	}
	return &Error{Kind: ErrTransport, Err: err}
}
