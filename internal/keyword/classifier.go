// Package keyword provides the static category gazetteer and deterministic
// keyword classification used as the free, offline resolution tier.
package keyword

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// entry is one compiled keyword with the category it maps to. Merchant
// entries are proper names usable for merchant discovery; generic entries
// only contribute to category classification.
type entry struct {
	re         *regexp.Regexp
	Keyword    string
	Category   string
	IsMerchant bool
}

// Classifier matches text against an immutable category->keyword table.
// Ties are broken by keyword length, never by table order.
type Classifier struct {
	entries []entry
}

// New builds a classifier from the default gazetteer plus any extra
// category->keywords extensions (typically from config).
func New(extra map[string][]string) (*Classifier, error) {
	var entries []entry

	add := func(table map[string][]string, isMerchant bool) error {
		for category, keywords := range table {
			for _, kw := range keywords {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw == "" {
					continue
				}
				re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
				if err != nil {
					return fmt.Errorf("failed to compile keyword %q: %w", kw, err)
				}
				entries = append(entries, entry{
					Keyword:    kw,
					Category:   category,
					IsMerchant: isMerchant,
					re:         re,
				})
			}
		}
		return nil
	}

	if err := add(DefaultMerchants(), true); err != nil {
		return nil, err
	}
	if err := add(DefaultKeywords(), false); err != nil {
		return nil, err
	}
	if err := add(extra, false); err != nil {
		return nil, err
	}

	// Longest keyword first so the first hit is the most specific one.
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].Keyword) != len(entries[j].Keyword) {
			return len(entries[i].Keyword) > len(entries[j].Keyword)
		}
		return entries[i].Keyword < entries[j].Keyword
	})

	return &Classifier{entries: entries}, nil
}

// Classify returns the category of the longest keyword found in any of the
// given texts. ok is false when nothing matches.
func (c *Classifier) Classify(texts ...string) (category string, ok bool) {
	for _, e := range c.entries {
		for _, text := range texts {
			if text == "" {
				continue
			}
			if e.re.MatchString(text) {
				return e.Category, true
			}
		}
	}
	return "", false
}

// SpotMerchant returns the longest merchant-name keyword appearing in the
// text, used by the parser as a merchant discovery heuristic. Generic
// category terms never match here.
func (c *Classifier) SpotMerchant(text string) (keyword string, ok bool) {
	for _, e := range c.entries {
		if e.IsMerchant && e.re.MatchString(text) {
			return e.Keyword, true
		}
	}
	return "", false
}
