package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// anthropicClient implements the Client interface for Anthropic API.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-sonnet-20240229"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// ParseExpense sends an expense extraction request to Anthropic.
func (c *anthropicClient) ParseExpense(ctx context.Context, prompt string) (ParseResponse, error) {
	systemPrompt := "You are an expense extraction assistant. Respond ONLY with a valid JSON object in the exact format requested, no prose."

	content, err := c.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return ParseResponse{}, err
	}

	var parsed ParseResponse
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &parsed); err != nil {
		return ParseResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed, nil
}

// ClassifyCategory sends a category classification request to Anthropic.
func (c *anthropicClient) ClassifyCategory(ctx context.Context, prompt string) (ClassifyResponse, error) {
	systemPrompt := "You are an expense category classifier. Respond ONLY with a valid JSON object in the exact format requested, no prose."

	content, err := c.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return ClassifyResponse{}, err
	}

	var classified ClassifyResponse
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &classified); err != nil {
		return ClassifyResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if classified.Category == "" {
		return ClassifyResponse{}, fmt.Errorf("no category found in response")
	}
	return classified, nil
}

func (c *anthropicClient) complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return response.Content[0].Text, nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}
