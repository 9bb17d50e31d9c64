package llm

import (
	"context"
	"strings"
	"time"
)

// Client defines the interface for LLM providers. Both capabilities must be
// treated as unreliable by callers: timeouts, malformed responses, and
// out-of-list answers are normal operating conditions.
type Client interface {
	ParseExpense(ctx context.Context, prompt string) (ParseResponse, error)
	ClassifyCategory(ctx context.Context, prompt string) (ClassifyResponse, error)
}

// ParseResponse contains the LLM's expense extraction result.
type ParseResponse struct {
	Intent      string  `json:"intent"`
	Merchant    string  `json:"merchant"`
	Description string  `json:"description"`
	DateHint    string  `json:"dateHint"`
	Amount      float64 `json:"amount"`
}

// ClassifyResponse contains the LLM's category classification result.
type ClassifyResponse struct {
	Category string `json:"category"`
}

// Config holds configuration for the LLM oracle.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// cleanMarkdownWrapper strips a markdown code fence the model may have
// wrapped around its JSON output.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
