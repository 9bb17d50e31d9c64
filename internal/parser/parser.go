// Package parser extracts structured expense candidates from free-text
// utterances. Extraction is delegated to the remote oracle when one is
// configured and falls back to deterministic heuristics when the oracle
// fails or is absent.
package parser

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mtowers/ledgermind/internal/keyword"
	"github.com/mtowers/ledgermind/internal/llm"
	"github.com/mtowers/ledgermind/internal/model"
)

// IntentOracle is the remote extraction capability the parser consumes.
// Failure is a normal operating condition.
type IntentOracle interface {
	ParseExpense(ctx context.Context, text string) (llm.ParseResponse, error)
}

// Parser converts raw utterances into ParsedCommands.
type Parser struct {
	keywords *keyword.Classifier
	oracle   IntentOracle
	logger   *slog.Logger
}

// New creates a parser. oracle may be nil, in which case only the
// deterministic heuristics run.
func New(keywords *keyword.Classifier, oracle IntentOracle, logger *slog.Logger) *Parser {
	return &Parser{
		keywords: keywords,
		oracle:   oracle,
		logger:   logger,
	}
}

var (
	digitRe = regexp.MustCompile(`\d`)

	// Tokens that indicate the user is stating a spend action.
	actionRe = regexp.MustCompile(`(?i)\b(add|log|spent|spend|paid|pay|bought|buy|purchased|purchase|got|grabbed|ordered|picked up)\b`)

	// Explicit command or first-person past-tense spend statement.
	commandRe = regexp.MustCompile(`(?i)(\b(add|log)\b|\bi\s+(spent|paid|bought|purchased|got|grabbed|ordered|picked up)\b)`)

	dollarAmountRe = regexp.MustCompile(`\$\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)`)
	bareAmountRe   = regexp.MustCompile(`\b(\d+(?:,\d{3})*(?:\.\d{1,2})?)\b`)

	atFromRe = regexp.MustCompile(`(?i)\b(?:at|from)\s+([a-z0-9&'][a-z0-9&'\s.-]*?)(?:\s+(?:for|on|yesterday|today|last)\b|[.,!?]|$)`)

	serviceVerbRe = regexp.MustCompile(`(?i)\b(repairing|repair|fixing|fix|installing|install|cleaning|clean|servicing|service|maintaining|maintenance|painting|paint)\b`)

	dateUnitRe = regexp.MustCompile(`(?i)^(day|days|week|weeks|month|months)\s+ago\b`)
	agoRe      = regexp.MustCompile(`(?i)\b(\d+)\s+(day|days|week|weeks|month|months)\s+ago\b`)
)

// stopwords stripped from residual text before merchant synthesis.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "i": {}, "my": {}, "me": {}, "we": {},
	"our": {}, "it": {}, "its": {}, "this": {}, "that": {}, "some": {},
	"on": {}, "in": {}, "at": {}, "to": {}, "of": {}, "for": {}, "with": {},
	"and": {}, "just": {}, "today": {}, "yesterday": {}, "ago": {},
}

// serviceVerbLabels maps a matched service verb to its normalized label.
var serviceVerbLabels = map[string]string{
	"repair": "Repair", "repairing": "Repair",
	"fix": "Repair", "fixing": "Repair",
	"install": "Installation", "installing": "Installation",
	"clean": "Cleaning", "cleaning": "Cleaning",
	"service": "Service", "servicing": "Service",
	"maintaining": "Maintenance", "maintenance": "Maintenance",
	"paint": "Painting", "painting": "Painting",
}

// Parse extracts a structured expense candidate from one utterance.
// Returns nil when no expense is detected.
func (p *Parser) Parse(ctx context.Context, text string, now time.Time) *model.ParsedCommand {
	// Only attempt extraction when the text carries both a number and an
	// action token. Informational questions short-circuit here.
	if !digitRe.MatchString(text) || !actionRe.MatchString(text) {
		return nil
	}

	if p.oracle != nil {
		if cmd, decided := p.parseWithOracle(ctx, text, now); decided {
			return cmd
		}
	}

	return p.parseHeuristic(text, now)
}

// parseWithOracle delegates extraction to the remote oracle. decided is
// false on any failure or unusable answer, letting the heuristic path take
// over; a decided nil means the oracle saw no expense in the text.
func (p *Parser) parseWithOracle(ctx context.Context, text string, now time.Time) (cmd *model.ParsedCommand, decided bool) {
	response, err := p.oracle.ParseExpense(ctx, text)
	if err != nil {
		p.logger.Debug("oracle parse failed, falling back to heuristics", "error", err)
		return nil, false
	}

	switch model.Intent(response.Intent) {
	case model.IntentNone:
		return nil, true
	case model.IntentAdd, model.IntentSuggest:
		if response.Amount <= 0 || response.Merchant == "" {
			p.logger.Debug("oracle parse incomplete, falling back to heuristics",
				"amount", response.Amount,
				"merchant", response.Merchant)
			return nil, false
		}
		return &model.ParsedCommand{
			Intent:      model.Intent(response.Intent),
			Amount:      response.Amount,
			Merchant:    model.TitleCase(response.Merchant),
			Description: response.Description,
			Date:        resolveDateHint(response.DateHint, now),
		}, true
	default:
		return nil, false
	}
}

// parseHeuristic runs the deterministic extraction pipeline.
func (p *Parser) parseHeuristic(text string, now time.Time) *model.ParsedCommand {
	amount, amountToken := extractAmount(text)
	if amount <= 0 {
		return nil
	}

	date := extractDate(text, now)

	merchant, named := p.extractMerchant(text, amountToken)
	if merchant == "" {
		return nil
	}

	intent := model.IntentSuggest
	if named && commandRe.MatchString(text) {
		intent = model.IntentAdd
	} else if named && actionRe.MatchString(text) {
		// Named merchant with any spend verb is still auto-actionable.
		intent = model.IntentAdd
	}

	return &model.ParsedCommand{
		Intent:      intent,
		Amount:      amount,
		Merchant:    model.TitleCase(merchant),
		Description: p.extractDescription(text, amountToken, merchant),
		Date:        date,
	}
}

// extractAmount finds the first currency-shaped numeric token. A second
// number in the same sentence is ignored. Dollar-prefixed tokens are
// preferred; bare numbers that belong to date phrases are skipped.
func extractAmount(text string) (float64, string) {
	if m := dollarAmountRe.FindStringSubmatch(text); m != nil {
		return parseAmount(m[1]), m[0]
	}

	for _, loc := range bareAmountRe.FindAllStringSubmatchIndex(text, -1) {
		token := text[loc[2]:loc[3]]
		rest := strings.TrimLeft(text[loc[3]:], " ")
		if dateUnitRe.MatchString(rest) {
			continue
		}
		return parseAmount(token), token
	}

	return 0, ""
}

func parseAmount(token string) float64 {
	token = strings.ReplaceAll(token, ",", "")
	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return amount
}

// extractMerchant derives a merchant label. named reports whether a
// specific merchant was actually named (explicit clause or gazetteer hit)
// as opposed to synthesized from residual text.
func (p *Parser) extractMerchant(text, amountToken string) (merchant string, named bool) {
	// Priority 1: explicit "at/from <name>" clause, trusted verbatim.
	if m := atFromRe.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		candidate = strings.TrimSpace(strings.TrimSuffix(candidate, amountToken))
		if candidate != "" && !digitRe.MatchString(candidate) {
			return candidate, true
		}
	}

	// Priority 2: longest gazetteer merchant keyword in the utterance.
	if kw, ok := p.keywords.SpotMerchant(text); ok {
		return kw, true
	}

	// Priority 3: residual-text heuristic.
	residual := p.residualText(text, amountToken)
	if residual == "" {
		return "", false
	}

	if verb := serviceVerbRe.FindString(residual); verb != "" {
		object := strings.TrimSpace(serviceVerbRe.ReplaceAllString(residual, ""))
		label := serviceVerbLabels[strings.ToLower(verb)]
		if object != "" {
			return object + " " + label, false
		}
		return label, false
	}

	return residual, false
}

// residualText strips the amount token, date phrases, action verbs, and
// stopwords, leaving the nouns that describe what the money went to.
func (p *Parser) residualText(text, amountToken string) string {
	cleaned := strings.ReplaceAll(text, amountToken, " ")
	cleaned = strings.ReplaceAll(cleaned, "$", " ")
	cleaned = agoRe.ReplaceAllString(cleaned, " ")
	cleaned = actionRe.ReplaceAllString(cleaned, " ")

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, ".,!?")
		if word == "" {
			continue
		}
		if _, skip := stopwords[strings.ToLower(word)]; skip {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// extractDescription returns the residual text with the merchant words
// removed, used as the what-was-bought note.
func (p *Parser) extractDescription(text, amountToken, merchant string) string {
	residual := p.residualText(text, amountToken)
	for _, word := range strings.Fields(merchant) {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		residual = re.ReplaceAllString(residual, " ")
	}
	// Drop connective leftovers like "at" / "from" once the merchant is gone
	var kept []string
	for _, word := range strings.Fields(residual) {
		if _, skip := stopwords[strings.ToLower(word)]; skip {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// extractDate resolves explicit date phrases to a concrete date. Absence
// of any phrase defaults to now.
func extractDate(text string, now time.Time) time.Time {
	return resolveDateHint(findDatePhrase(text), now)
}

func findDatePhrase(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "yesterday") {
		return "yesterday"
	}
	if m := agoRe.FindStringSubmatch(text); m != nil {
		return m[1] + " " + strings.ToLower(m[2]) + " ago"
	}
	return "today"
}

// resolveDateHint converts a hint ("today", "yesterday", "3 days ago")
// into a concrete date offset from now. Unrecognized hints mean today.
func resolveDateHint(hint string, now time.Time) time.Time {
	hint = strings.ToLower(strings.TrimSpace(hint))
	switch hint {
	case "", "today":
		return now
	case "yesterday":
		return now.AddDate(0, 0, -1)
	}

	if m := agoRe.FindStringSubmatch(hint); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return now
		}
		switch strings.TrimSuffix(strings.ToLower(m[2]), "s") {
		case "day":
			return now.AddDate(0, 0, -n)
		case "week":
			return now.AddDate(0, 0, -7*n)
		case "month":
			return now.AddDate(0, -n, 0)
		}
	}

	return now
}
