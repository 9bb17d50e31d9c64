package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	classifier, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		text     string
		expected string
		wantHit  bool
	}{
		{
			name:     "merchant name",
			text:     "grabbed a drink at starbucks",
			expected: "Coffee",
			wantHit:  true,
		},
		{
			name:     "generic term",
			text:     "weekly groceries run",
			expected: "Groceries",
			wantHit:  true,
		},
		{
			name:     "case insensitive",
			text:     "STARBUCKS",
			expected: "Coffee",
			wantHit:  true,
		},
		{
			name:     "standalone gas matches",
			text:     "filled up on gas",
			expected: "Transportation",
			wantHit:  true,
		},
		{
			name:    "keyword inside a longer word does not match",
			text:    "bought gasoline",
			wantHit: false,
		},
		{
			name:    "no keyword",
			text:    "mystery payment 9921",
			wantHit: false,
		},
		{
			name:    "empty",
			text:    "",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ok := classifier.Classify(tt.text)
			if !tt.wantHit {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.expected, category)
		})
	}
}

func TestClassifyWordBoundary(t *testing.T) {
	classifier, err := New(nil)
	require.NoError(t, err)

	// "gas" inside "gasworks-ticket" with no standalone keyword present.
	_, ok := classifier.Classify("gasworks9")
	assert.False(t, ok)
}

func TestClassifyLongestKeywordWins(t *testing.T) {
	classifier, err := New(map[string][]string{
		"Bikes":      {"zyxcycle"},
		"BikeRepair": {"zyxcycle tune up"},
	})
	require.NoError(t, err)

	category, ok := classifier.Classify("booked a zyxcycle tune up")
	require.True(t, ok)
	assert.Equal(t, "BikeRepair", category, "longer keyword must win")
}

func TestClassifyMultipleTexts(t *testing.T) {
	classifier, err := New(nil)
	require.NoError(t, err)

	// Keyword appears only in the second text.
	category, ok := classifier.Classify("something opaque", "morning latte")
	require.True(t, ok)
	assert.Equal(t, "Coffee", category)
}

func TestClassifyExtensions(t *testing.T) {
	classifier, err := New(map[string][]string{
		"Pets": {"veterinarian", "kibble"},
	})
	require.NoError(t, err)

	category, ok := classifier.Classify("big bag of kibble")
	require.True(t, ok)
	assert.Equal(t, "Pets", category)
}

func TestSpotMerchant(t *testing.T) {
	classifier, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		text     string
		expected string
		wantHit  bool
	}{
		{
			name:     "known merchant",
			text:     "coffee at Starbucks this morning",
			expected: "starbucks",
			wantHit:  true,
		},
		{
			name:     "multiword merchant",
			text:     "stopped by whole foods",
			expected: "whole foods",
			wantHit:  true,
		},
		{
			name:    "generic term is not a merchant",
			text:    "bought coffee",
			wantHit: false,
		},
		{
			name:    "nothing recognizable",
			text:    "paid the contractor",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw, ok := classifier.SpotMerchant(tt.text)
			if !tt.wantHit {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.expected, kw)
		})
	}
}
