package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMerchantKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases",
			input:    "Starbucks",
			expected: "starbucks",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  Whole Foods  ",
			expected: "whole foods",
		},
		{
			name:     "interior whitespace preserved",
			input:    "Trader Joe's",
			expected: "trader joe's",
		},
		{
			name:     "already canonical",
			input:    "shell",
			expected: "shell",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MerchantKey(tt.input))
		})
	}
}

func TestMerchantKeyStable(t *testing.T) {
	// The same raw merchant string must always map to the same key.
	variants := []string{"AC Repair", "ac repair", " AC REPAIR "}
	for _, v := range variants {
		assert.Equal(t, "ac repair", MerchantKey(v), "variant %q", v)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single lowercase word",
			input:    "shell",
			expected: "Shell",
		},
		{
			name:     "multiple words",
			input:    "whole foods market",
			expected: "Whole Foods Market",
		},
		{
			name:     "short acronym preserved",
			input:    "home AC repair",
			expected: "Home AC Repair",
		},
		{
			name:     "longer all caps word is normalized",
			input:    "COMCAST",
			expected: "Comcast",
		},
		{
			name:     "mixed case word is normalized",
			input:    "mcDONALD",
			expected: "Mcdonald",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleCase(tt.input))
		})
	}
}

func TestMerchantResolutionBlend(t *testing.T) {
	now := time.Now()

	t.Run("first signal becomes the confidence", func(t *testing.T) {
		r := MerchantResolution{MerchantKey: "starbucks"}
		r.Blend("Coffee", ConfidenceKeyword, now)

		assert.Equal(t, "Coffee", r.Category)
		assert.InDelta(t, 0.7, r.Confidence, 1e-9)
		assert.Equal(t, 1, r.ResolutionCount)
		assert.Equal(t, now, r.LastResolvedAt)
	})

	t.Run("weighted mean over prior count", func(t *testing.T) {
		r := MerchantResolution{MerchantKey: "starbucks"}
		r.Blend("Coffee", 0.7, now)
		r.Blend("Coffee", 0.9, now)

		// (0.7*1 + 0.9) / 2
		assert.InDelta(t, 0.8, r.Confidence, 1e-9)
		assert.Equal(t, 2, r.ResolutionCount)
	})

	t.Run("category replaced by latest signal", func(t *testing.T) {
		r := MerchantResolution{MerchantKey: "target"}
		r.Blend("Shopping", 0.7, now)
		r.Blend("Groceries", 0.8, now)

		assert.Equal(t, "Groceries", r.Category)
	})

	t.Run("converges monotonically under consistent signal", func(t *testing.T) {
		r := MerchantResolution{MerchantKey: "starbucks"}
		r.Blend("Coffee", 0.5, now)

		prev := r.Confidence
		for i := 0; i < 50; i++ {
			r.Blend("Coffee", 0.9, now)
			assert.GreaterOrEqual(t, r.Confidence, prev)
			prev = r.Confidence
		}
		assert.InDelta(t, 0.9, r.Confidence, 0.02)
	})

	t.Run("settled confidence never dips under identical signal", func(t *testing.T) {
		// After settling at the signal value, the incremental mean can
		// round a hair low; the stored value must hold.
		r := MerchantResolution{MerchantKey: "starbucks", Category: "Coffee", Confidence: 0.9, ResolutionCount: 13}
		prev := r.Confidence
		for i := 0; i < 500; i++ {
			r.Blend("Coffee", 0.9, now)
			assert.GreaterOrEqual(t, r.Confidence, prev)
			prev = r.Confidence
		}
	})

	t.Run("category change may lower confidence", func(t *testing.T) {
		r := MerchantResolution{MerchantKey: "target", Category: "Shopping", Confidence: 0.9, ResolutionCount: 5}
		r.Blend("Groceries", 0.7, now)

		assert.Equal(t, "Groceries", r.Category)
		assert.Less(t, r.Confidence, 0.9)
	})

	t.Run("never exceeds the cap", func(t *testing.T) {
		r := MerchantResolution{MerchantKey: "starbucks"}
		for i := 0; i < 200; i++ {
			r.Blend("Coffee", 1.0, now)
			assert.LessOrEqual(t, r.Confidence, CacheConfidenceCap)
		}
		assert.InDelta(t, CacheConfidenceCap, r.Confidence, 1e-9)
	})
}
