// Package openai provides an OpenAI-compatible completion client.
//
// The same client serves the hosted OpenAI API and any local server speaking
// the chat-completions dialect (LM Studio, Ollama, vLLM) via WithBaseURL.
//
// Example usage:
//
//	// Hosted OpenAI
//	client, _ := openai.NewClient("sk-...", openai.WithModel("gpt-4o"))
//
//	// Local OpenAI-compatible endpoint, no real key required
//	client, _ := openai.NewClient("local",
//	    openai.WithBaseURL("http://localhost:11434/v1"),
//	    openai.WithModel("llama3"))
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	defaultTimeout = 120 * time.Second
)

// Client implements llm.Completer against OpenAI-compatible APIs.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	name       string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModel sets the model to use for completions.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithName overrides the backend identifier reported by Name.
// Useful when the same client shape serves several configured backends
// (e.g. "local" for an Ollama endpoint).
func WithName(name string) ClientOption {
	return func(c *Client) {
		c.name = name
	}
}

// WithTimeout sets the HTTP client timeout for completion calls.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new OpenAI-compatible client with the given API key.
//
// If apiKey is empty, it falls back to the OPENAI_API_KEY environment
// variable; if that is also empty, construction fails. If WithBaseURL is not
// given, OPENAI_BASE_URL is consulted before the default.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	c := &Client{
		model:      DefaultModel,
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		name:       "openai",
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			c.baseURL = envBaseURL
		}
	}

	return c, nil
}

// Name returns the backend identifier.
func (c *Client) Name() string {
	return c.name
}

// Model returns the model name being used.
func (c *Client) Model() string {
	return c.model
}

// CloneWithModel returns a shallow copy of c configured to use the given
// model. The clone shares the HTTP client, API key, and base URL, making it
// cheap to create a per-purpose variant (e.g. a vision model alongside the
// planning model).
func (c *Client) CloneWithModel(model string) *Client {
	clone := *c // shares httpClient (connection pool), apiKey, baseURL
	clone.model = model
	return &clone
}

// chatResponse is the subset of the chat-completions response we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt pair as a single-turn chat completion and
// returns the assistant message content.
func (c *Client) Complete(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
		c.userMessage(req),
	}

	reqBody := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.3, // keep JSON output consistent
		"max_tokens":  1024,
		"stream":      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API request failed with status %d: %s", c.name, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.name, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s API returned no choices", c.name)
	}

	return parsed.Choices[0].Message.Content, nil
}

// userMessage builds the user turn, attaching the image as a content part
// when present.
func (c *Client) userMessage(req *llm.CompletionRequest) openai.ChatCompletionMessageParamUnion {
	if req.ImageDataURL == "" {
		return openai.UserMessage(req.User)
	}

	return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.User),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: req.ImageDataURL,
		}),
	})
}
