package model

import "time"

// Intent classifies what a parsed utterance is asking for.
type Intent string

const (
	// IntentAdd is an explicit, named-merchant statement that can be
	// persisted without confirmation.
	IntentAdd Intent = "add"
	// IntentSuggest is a vague spending statement that needs a yes/no
	// confirmation before persisting.
	IntentSuggest Intent = "suggest"
	// IntentNone means no expense information was present.
	IntentNone Intent = "none"
)

// ParsedCommand is the transient result of extracting structured expense
// data from one utterance. It is consumed immediately and never persisted.
type ParsedCommand struct {
	Date        time.Time
	Intent      Intent
	Merchant    string
	Description string
	Amount      float64
}

// PendingSuggestion holds the single unconfirmed expense candidate a
// conversation may carry. It gets exactly one turn to be confirmed.
type PendingSuggestion struct {
	Date        time.Time
	Merchant    string
	Description string
	Amount      float64
}
