package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one chat message in an OpenAI-compatible completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel generates one completion for a conversation.
type ChatModel interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// RateLimitError reports an HTTP 429 from the completion endpoint. Callers
// treat it as transient and may retry.
type RateLimitError struct {
	Body string
}

func (e *RateLimitError) Error() string {
	return "llmservice: rate limited by completion endpoint"
}

// Client calls an OpenAI-compatible chat completions endpoint. Temperature is
// pinned to 0 for deterministic sampling.
type Client struct {
	baseURL    string
	key        string
	model      string
	httpClient *http.Client
}

func NewClient(key, baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		key:        strings.TrimPrefix(key, "Bearer "),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	payload := struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
	}{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{Body: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llmservice: request failed: %d, %s", resp.StatusCode, string(body))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("llmservice: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llmservice: completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
