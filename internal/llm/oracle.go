// Package llm provides the remote classification oracle used by the parser
// and the category resolution waterfall. Every call is best-effort: callers
// must treat failure as a miss, never as a fatal condition.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/service"
)

// Oracle wraps a provider client with rate limiting and retry, and owns the
// prompts for the two consumed capabilities: expense intent extraction and
// category classification.
type Oracle struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewOracle creates a new LLM oracle from configuration.
func NewOracle(cfg Config, logger *slog.Logger) (*Oracle, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Oracle{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// ParseExpense asks the oracle to extract structured expense data from raw
// text. The returned intent is one of add, suggest, or none.
func (o *Oracle) ParseExpense(ctx context.Context, text string) (ParseResponse, error) {
	if err := o.rateLimiter.wait(ctx); err != nil {
		return ParseResponse{}, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildParsePrompt(text)

	var parsed ParseResponse
	err := common.WithRetry(ctx, func() error {
		response, err := o.client.ParseExpense(ctx, prompt)
		if err != nil {
			o.logger.Warn("expense parse attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		switch response.Intent {
		case "add", "suggest", "none":
			// Valid
		default:
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: invalid intent %q", common.ErrOracleMalformed, response.Intent),
				Retryable: true,
			}
		}

		parsed = response
		return nil
	}, o.retryOpts)

	if err != nil {
		return ParseResponse{}, fmt.Errorf("expense parse failed: %w", err)
	}

	o.logger.Debug("oracle parsed expense",
		"intent", parsed.Intent,
		"merchant", parsed.Merchant,
		"amount", parsed.Amount)

	return parsed, nil
}

// ClassifyCategory asks the oracle for one category name given merchant,
// description, full message, and the allowed category list. The caller is
// responsible for rejecting answers outside the allowed list.
func (o *Oracle) ClassifyCategory(ctx context.Context, merchant, description, message string, categories []string) (string, error) {
	if err := o.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildClassifyPrompt(merchant, description, message, categories)

	var category string
	err := common.WithRetry(ctx, func() error {
		response, err := o.client.ClassifyCategory(ctx, prompt)
		if err != nil {
			o.logger.Warn("category classification attempt failed",
				"error", err,
				"merchant", merchant)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		category = response.Category
		return nil
	}, o.retryOpts)

	if err != nil {
		return "", fmt.Errorf("category classification failed: %w", err)
	}

	o.logger.Debug("oracle classified category",
		"merchant", merchant,
		"category", category)

	return category, nil
}

// Close stops background goroutines and cleans up resources.
func (o *Oracle) Close() error {
	if o.rateLimiter != nil {
		o.rateLimiter.Close()
	}
	return nil
}

// buildParsePrompt creates the prompt for expense intent extraction.
func buildParsePrompt(text string) string {
	return fmt.Sprintf(`Extract structured expense data from this message.

Message: %q

Rules:
- intent is "add" when the message explicitly names a merchant and commands or states a spend ("add $6 coffee starbucks", "i paid $40 at Shell")
- intent is "suggest" when spending is described conversationally without a specific merchant name ("spent 2500 fixing my home AC")
- intent is "none" when no expense information is present
- amount is the spent amount as a number, 0 when absent
- merchant is the business name, title-cased
- description is what was bought, empty when unclear
- dateHint is "today", "yesterday", or "<N> days ago" / "<N> weeks ago" / "<N> months ago"

Respond with ONLY this JSON object:
{"intent": "add|suggest|none", "amount": 0.00, "merchant": "", "description": "", "dateHint": "today"}`, text)
}

// buildClassifyPrompt creates the prompt for category classification.
func buildClassifyPrompt(merchant, description, message string, categories []string) string {
	details := fmt.Sprintf("Merchant: %s", merchant)
	if description != "" {
		details += fmt.Sprintf("\nDescription: %s", description)
	}
	if message != "" {
		details += fmt.Sprintf("\nOriginal message: %s", message)
	}

	categoryList := ""
	for _, cat := range categories {
		categoryList += fmt.Sprintf("- %s\n", cat)
	}

	return fmt.Sprintf(`Classify this expense into exactly one of the allowed categories.

Expense Details:
%s

Allowed Categories:
%s
Instructions:
- You MUST pick a category name from the allowed list, copied verbatim
- Classify by what the merchant IS, not assumptions about intent

Respond with ONLY this JSON object:
{"category": "<name from the allowed list>"}`, details, categoryList)
}
