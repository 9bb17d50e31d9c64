package dispatcher

import (
	"regexp"
	"strings"
)

// Confirmation lexicons. Replies are normalized with normalizeReply before
// matching, so "Yes!" and "yes" are the same token.
var affirmations = map[string]bool{
	"yes":     true,
	"y":       true,
	"yeah":    true,
	"yep":     true,
	"yup":     true,
	"sure":    true,
	"ok":      true,
	"okay":    true,
	"confirm": true,
	"correct": true,
	"right":   true,
	"do it":   true,
	"add it":  true,
	"please":  true,
}

var negations = map[string]bool{
	"no":         true,
	"n":          true,
	"nope":       true,
	"nah":        true,
	"cancel":     true,
	"skip":       true,
	"wrong":      true,
	"dont":       true,
	"don't":      true,
	"never mind": true,
	"nevermind":  true,
}

var (
	exportRe = regexp.MustCompile(`(?i)\bexport\b`)
	searchRe = regexp.MustCompile(`(?i)^\s*(find|search|show|list|look up|lookup)\b`)

	searchVerbRe   = regexp.MustCompile(`(?i)\b(find|search|show|list|look up|lookup)\b`)
	searchFillerRe = regexp.MustCompile(`(?i)\b(me|my|all|the|for|expenses?|purchases?|transactions?|spending|please)\b`)
)

// matchesLexicon reports whether a normalized reply is in the lexicon.
func matchesLexicon(text string, lexicon map[string]bool) bool {
	return lexicon[normalizeReply(text)]
}

// normalizeReply lowercases, trims, and strips trailing punctuation so a
// one-word confirmation survives enthusiasm.
func normalizeReply(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimRight(s, ".!?, ")
	return s
}

// searchQuery strips the command verb and filler words, leaving the
// residual terms as the query.
func searchQuery(text string) string {
	s := searchVerbRe.ReplaceAllString(text, " ")
	s = searchFillerRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " \t?.!,")
	return strings.Join(strings.Fields(s), " ")
}
