// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// Expense represents a persisted spending record.
type Expense struct {
	SpentAt      time.Time
	CreatedAt    time.Time
	UserID       string
	Merchant     string
	Description  string
	CategoryName string
	ResolvedBy   ResolutionSource
	ID           int64
	CategoryID   int
	Amount       float64
	Confidence   float64
}

// MerchantKey canonicalizes a merchant name into the lookup key shared by
// overrides, the resolution cache, and the categorization log. The same raw
// string must always produce the same key.
func MerchantKey(merchant string) string {
	return strings.ToLower(strings.TrimSpace(merchant))
}

// TitleCase normalizes a merchant label for display ("shell" -> "Shell",
// "home AC repair" -> "Home AC Repair"). Short all-caps words are treated
// as acronyms and left alone.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) <= 4 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			continue
		}
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
