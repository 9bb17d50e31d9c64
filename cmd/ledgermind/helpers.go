package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mtowers/ledgermind/internal/config"
	"github.com/mtowers/ledgermind/internal/keyword"
	"github.com/mtowers/ledgermind/internal/llm"
	"github.com/mtowers/ledgermind/internal/parser"
	"github.com/mtowers/ledgermind/internal/resolver"
	"github.com/mtowers/ledgermind/internal/service"
	"github.com/mtowers/ledgermind/internal/storage"
)

// initStorage opens the expense database and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = filepath.Join(config.DefaultDataDir(), "ledgermind.db")
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// currentUserID resolves the identity expense records are written under.
func currentUserID() string {
	if id := viper.GetString("user.id"); id != "" {
		return id
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}

// createOracle builds the remote classification oracle from configuration.
// A missing API key is not fatal: the pipeline runs fine on heuristics and
// keywords alone, so the caller gets a nil oracle and a warning.
func createOracle() (*llm.Oracle, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "anthropic"
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60
	}

	switch provider {
	case "anthropic":
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, nil
		}
		cfg.APIKey = apiKey
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}

	case "openai":
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, nil
		}
		cfg.APIKey = apiKey
		if cfg.Model == "" {
			cfg.Model = "gpt-4o"
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return llm.NewOracle(cfg, slog.Default())
}

// buildPipeline wires the keyword classifier, parser, and resolver around
// the given storage. The returned oracle may be nil.
func buildPipeline(store service.Storage) (*parser.Parser, *resolver.Resolver, *llm.Oracle, error) {
	extra := viper.GetStringMapStringSlice("keywords")
	keywords, err := keyword.New(extra)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build keyword classifier: %w", err)
	}

	oracle, err := createOracle()
	if err != nil {
		return nil, nil, nil, err
	}
	if oracle == nil {
		slog.Warn("no LLM API key configured, running with keyword matching only")
	}

	logger := slog.Default()
	p := parser.New(keywords, oracleOrNilParser(oracle), logger)
	r := resolver.New(store, keywords, oracleOrNilClassifier(oracle), logger)

	return p, r, oracle, nil
}

// oracleOrNilParser avoids storing a typed-nil *llm.Oracle in the parser's
// interface field.
func oracleOrNilParser(oracle *llm.Oracle) parser.IntentOracle {
	if oracle == nil {
		return nil
	}
	return oracle
}

func oracleOrNilClassifier(oracle *llm.Oracle) resolver.CategoryOracle {
	if oracle == nil {
		return nil
	}
	return oracle
}
