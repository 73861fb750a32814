// Package llm is the generation-client boundary: a thin client for an
// OpenRouter/OpenAI-compatible chat completions endpoint, offering a
// single-shot Complete call and a streaming Stream call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

var ErrNotConfigured = errors.New("llm: API key not configured")

type Client struct {
	httpClient         *http.Client // streaming — no timeout, the caller's ctx bounds the call
	nonStreamingClient *http.Client // non-streaming — 30s timeout
	baseURL            string
	model              string
	apiKey             string
	hasKey             bool
	mu                 sync.RWMutex
}

func NewClient(apiKey, model string) *Client {
	c := &Client{
		httpClient:         &http.Client{},
		nonStreamingClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:            "https://openrouter.ai/api/v1",
		model:              model,
	}
	if apiKey != "" {
		c.apiKey = apiKey
		c.hasKey = true
	}
	return c
}

func (c *Client) UpdateAPIKey(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
	c.hasKey = apiKey != ""
}

func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasKey
}

func (c *Client) getAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) prepareRequest(ctx context.Context, reqBody chatCompletionRequest) (*http.Request, error) {
	key := c.getAPIKey()
	if key == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("X-Title", "Parley")

	return req, nil
}

func messages(systemPrompt, userText string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userText},
	}
}

// Complete performs a non-streaming generation and returns the full text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	req, err := c.prepareRequest(ctx, chatCompletionRequest{
		Model:       c.model,
		Messages:    messages(systemPrompt, userText),
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.nonStreamingClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(errBody))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("API returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Stream performs a streaming generation, invoking emit once per text
// delta in arrival order. The stream is finite and non-restartable;
// emit is called from a single goroutine. A mid-stream failure returns
// an error after whatever deltas were already emitted.
func (c *Client) Stream(ctx context.Context, systemPrompt, userText string, emit func(delta string)) error {
	req, err := c.prepareRequest(ctx, chatCompletionRequest{
		Model:       c.model,
		Messages:    messages(systemPrompt, userText),
		Temperature: 0.7,
		Stream:      true,
	})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(errBody))
	}

	return processSSEStream(resp.Body, emit)
}
