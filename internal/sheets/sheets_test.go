package sheets

import (
	"testing"
	"time"

	"github.com/mtowers/ledgermind/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oauthConfig() Config {
	cfg := DefaultConfig()
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.RefreshToken = "token"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		errMsg  string
		wantErr bool
	}{
		{
			name:   "oauth credentials",
			mutate: func(_ *Config) {},
		},
		{
			name: "service account",
			mutate: func(c *Config) {
				c.ClientID = ""
				c.ClientSecret = ""
				c.RefreshToken = ""
				c.ServiceAccountPath = "/etc/ledgermind/sa.json"
			},
		},
		{
			name: "no credentials",
			mutate: func(c *Config) {
				c.ClientID = ""
				c.ClientSecret = ""
				c.RefreshToken = ""
			},
			wantErr: true,
			errMsg:  "no authentication method",
		},
		{
			name: "both credential kinds",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/etc/ledgermind/sa.json"
			},
			wantErr: true,
			errMsg:  "multiple authentication methods",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: true,
			errMsg:  "batch size",
		},
		{
			name:    "negative retry attempts",
			mutate:  func(c *Config) { c.RetryAttempts = -1 },
			wantErr: true,
			errMsg:  "retry attempts",
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *Config) { c.RetryDelay = -time.Second },
			wantErr: true,
			errMsg:  "retry delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := oauthConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPrepareExportData(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	expenses := []model.Expense{
		{
			Merchant: "Starbucks", Amount: 6, CategoryName: "Coffee",
			SpentAt:    time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
			ResolvedBy: model.SourceKeyword, Confidence: 0.7,
		},
		{
			Merchant: "Whole Foods", Amount: 120, CategoryName: "Groceries",
			SpentAt:    time.Date(2026, 8, 20, 17, 0, 0, 0, time.UTC),
			ResolvedBy: model.SourceAI, Confidence: 0.8,
		},
		{
			Merchant: "Blue Bottle", Amount: 8, CategoryName: "Coffee",
			SpentAt:    time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC),
			ResolvedBy: model.SourceUserOverride, Confidence: 1.0,
		},
	}

	values := prepareExportData(expenses, start, end)

	// Title row carries the period.
	require.NotEmpty(t, values)
	assert.Equal(t, "Expense Export", values[0][0])
	assert.Equal(t, "Aug 1, 2026 - Aug 31, 2026", values[0][1])

	// Summary totals.
	assert.Equal(t, []any{"Total Amount", 134.0}, values[3])
	assert.Equal(t, []any{"Total Expenses", 3}, values[4])

	// Category breakdown sorted by amount, largest first.
	assert.Equal(t, []any{"Groceries", 1, 120.0}, values[8])
	assert.Equal(t, []any{"Coffee", 2, 14.0}, values[9])

	// Detail rows newest first, after the details header.
	var headerRow int
	for i, row := range values {
		if len(row) > 0 && row[0] == "Date" {
			headerRow = i
			break
		}
	}
	require.Positive(t, headerRow)

	details := values[headerRow+1:]
	require.Len(t, details, 3)
	assert.Equal(t, "Blue Bottle", details[0][1])
	assert.Equal(t, "Whole Foods", details[1][1])
	assert.Equal(t, "Starbucks", details[2][1])
	assert.Equal(t, "2026-08-25", details[0][0])
	assert.Equal(t, "user_override", details[0][4])
	assert.Equal(t, "1.00", details[0][5])
}

func TestPrepareExportDataEmpty(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	values := prepareExportData(nil, start, end)

	assert.Equal(t, []any{"Total Amount", 0.0}, values[3])
	assert.Equal(t, []any{"Total Expenses", 0}, values[4])
}
