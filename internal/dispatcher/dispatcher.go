// Package dispatcher routes incoming chat messages to pipeline actions.
// Each instance is a per-conversation state machine with two states, Idle
// and AwaitingConfirmation, holding at most one pending suggestion. A
// single instance must not be shared across concurrent conversations.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/parser"
	"github.com/mtowers/ledgermind/internal/resolver"
	"github.com/mtowers/ledgermind/internal/service"
)

// Insights is the read-only spending insight query the dispatcher consults
// after an insert. An empty note means nothing worth mentioning.
type Insights interface {
	SpendSpikeNote(ctx context.Context, userID, categoryName string) (string, error)
}

// Callbacks are the actions the dispatcher delegates to the surrounding
// application. Nil members disable the corresponding intent.
type Callbacks struct {
	ReloadExpenses func()
	Search         func(ctx context.Context, query string) (string, error)
	Export         func(ctx context.Context) (string, error)
}

// pendingCandidate is the one unconfirmed expense a conversation may hold,
// together with the category the waterfall already resolved for it. The
// candidate is inserted as-is on confirmation, never re-resolved.
type pendingCandidate struct {
	suggestion model.PendingSuggestion
	resolution resolver.Resolution
}

// Dispatcher orchestrates one conversation.
type Dispatcher struct {
	parser    *parser.Parser
	resolver  *resolver.Resolver
	store     service.Storage
	insights  Insights
	logger    *slog.Logger
	pending   *pendingCandidate
	now       func() time.Time
	callbacks Callbacks
	userID    string
	enabled   bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the dispatcher's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Disabled puts the dispatcher in reduced-capability mode: no intent
// detection is performed and every message gets a deferral reply.
func Disabled() Option {
	return func(d *Dispatcher) { d.enabled = false }
}

// New creates a dispatcher for one conversation. insights may be nil.
func New(p *parser.Parser, r *resolver.Resolver, store service.Storage, insights Insights, callbacks Callbacks, userID string, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		parser:    p,
		resolver:  r,
		store:     store,
		insights:  insights,
		callbacks: callbacks,
		userID:    userID,
		logger:    logger,
		enabled:   true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AwaitingConfirmation reports whether a pending suggestion is held.
func (d *Dispatcher) AwaitingConfirmation() bool {
	return d.pending != nil
}

// HandleMessage processes one user turn and returns the reply. Persistence
// failures come back as errors carrying a user-facing message; everything
// else, including "could not find" outcomes, is an ordinary reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, text string) (string, error) {
	if !d.enabled {
		return "Expense tracking is turned off right now, so I can only chat.", nil
	}

	if d.pending != nil {
		// The slot gets exactly one turn. Take it before anything else so
		// an unrelated reply cannot leave a stale candidate behind.
		candidate := d.pending
		d.pending = nil

		switch {
		case matchesLexicon(text, affirmations):
			return d.insertCandidate(ctx, candidate)
		case matchesLexicon(text, negations):
			return fmt.Sprintf("Okay, I won't add the $%.2f at %s.",
				candidate.suggestion.Amount, candidate.suggestion.Merchant), nil
		}
		// Neither yes nor no: process the message as a fresh turn.
	}

	if reply, handled, err := d.handleBudget(ctx, text); handled {
		return reply, err
	}
	if reply, handled, err := d.handleExport(ctx, text); handled {
		return reply, err
	}
	if reply, handled, err := d.handleSearch(ctx, text); handled {
		return reply, err
	}
	if reply, handled, err := d.handleUpdate(ctx, text); handled {
		return reply, err
	}

	cmd := d.parser.Parse(ctx, text, d.now())
	if cmd == nil {
		return "I didn't catch an expense in that. Try something like \"add $6 coffee at Starbucks\".", nil
	}

	switch cmd.Intent {
	case model.IntentAdd:
		return d.handleAdd(ctx, cmd, text)
	case model.IntentSuggest:
		return d.handleSuggest(ctx, cmd, text)
	default:
		return "I didn't catch an expense in that. Try something like \"add $6 coffee at Starbucks\".", nil
	}
}

// handleAdd resolves a category and persists the expense immediately.
func (d *Dispatcher) handleAdd(ctx context.Context, cmd *model.ParsedCommand, text string) (string, error) {
	resolution, err := d.resolveCategory(ctx, cmd.Merchant, cmd.Description, text)
	if err != nil {
		return "", err
	}

	expense := &model.Expense{
		UserID:       d.userID,
		Merchant:     cmd.Merchant,
		Description:  cmd.Description,
		Amount:       cmd.Amount,
		SpentAt:      cmd.Date,
		CategoryID:   resolution.CategoryID,
		CategoryName: resolution.CategoryName,
		ResolvedBy:   resolution.Source,
		Confidence:   resolution.Confidence,
	}
	if err := d.store.SaveExpense(ctx, expense); err != nil {
		d.logger.Error("expense insert failed", "merchant", cmd.Merchant, "error", err)
		return "", common.NewUserError(
			fmt.Sprintf("I couldn't save the $%.2f expense at %s.", cmd.Amount, cmd.Merchant), err)
	}

	if d.callbacks.ReloadExpenses != nil {
		d.callbacks.ReloadExpenses()
	}

	reply := fmt.Sprintf("Added $%.2f at %s under %s.",
		expense.Amount, expense.Merchant, expense.CategoryName)
	if note := d.spendSpikeNote(ctx, expense.CategoryName); note != "" {
		reply += " " + note
	}
	return reply, nil
}

// handleSuggest resolves read-only, parks the candidate, and asks.
func (d *Dispatcher) handleSuggest(ctx context.Context, cmd *model.ParsedCommand, text string) (string, error) {
	resolution, err := d.resolveCategory(ctx, cmd.Merchant, cmd.Description, text)
	if err != nil {
		return "", err
	}

	d.pending = &pendingCandidate{
		suggestion: model.PendingSuggestion{
			Merchant:    cmd.Merchant,
			Description: cmd.Description,
			Amount:      cmd.Amount,
			Date:        cmd.Date,
		},
		resolution: resolution,
	}

	return fmt.Sprintf("Sounds like you spent $%.2f at %s. Want me to add it under %s? (yes/no)",
		cmd.Amount, cmd.Merchant, resolution.CategoryName), nil
}

// insertCandidate persists a confirmed suggestion with the category that
// was resolved when it was proposed.
func (d *Dispatcher) insertCandidate(ctx context.Context, candidate *pendingCandidate) (string, error) {
	expense := &model.Expense{
		UserID:       d.userID,
		Merchant:     candidate.suggestion.Merchant,
		Description:  candidate.suggestion.Description,
		Amount:       candidate.suggestion.Amount,
		SpentAt:      candidate.suggestion.Date,
		CategoryID:   candidate.resolution.CategoryID,
		CategoryName: candidate.resolution.CategoryName,
		ResolvedBy:   candidate.resolution.Source,
		Confidence:   candidate.resolution.Confidence,
	}
	if err := d.store.SaveExpense(ctx, expense); err != nil {
		d.logger.Error("confirmed insert failed", "merchant", expense.Merchant, "error", err)
		return "", common.NewUserError(
			fmt.Sprintf("I couldn't save the $%.2f expense at %s.", expense.Amount, expense.Merchant), err)
	}

	if d.callbacks.ReloadExpenses != nil {
		d.callbacks.ReloadExpenses()
	}

	return fmt.Sprintf("Added $%.2f at %s under %s.",
		expense.Amount, expense.Merchant, expense.CategoryName), nil
}

// resolveCategory runs the waterfall against the active category list.
func (d *Dispatcher) resolveCategory(ctx context.Context, merchant, description, message string) (resolver.Resolution, error) {
	categories, err := d.store.GetCategories(ctx)
	if err != nil {
		d.logger.Error("category list load failed", "error", err)
		return resolver.Resolution{}, common.NewUserError("I couldn't load your categories.", err)
	}
	if len(categories) == 0 {
		return resolver.Resolution{}, common.NewUserError(
			"No categories are configured yet. Run \"ledgermind categories seed\" first.",
			common.ErrNoCategories)
	}

	return d.resolver.Resolve(ctx, resolver.Request{
		Merchant:    merchant,
		Description: description,
		FullMessage: message,
		UserID:      d.userID,
		Categories:  categories,
	})
}

// spendSpikeNote asks the insights collaborator for a proactive note.
// Failures are never surfaced.
func (d *Dispatcher) spendSpikeNote(ctx context.Context, categoryName string) string {
	if d.insights == nil {
		return ""
	}
	note, err := d.insights.SpendSpikeNote(ctx, d.userID, categoryName)
	if err != nil {
		d.logger.Debug("spend spike lookup failed", "category", categoryName, "error", err)
		return ""
	}
	return note
}

// handleExport delegates to the export callback.
func (d *Dispatcher) handleExport(ctx context.Context, text string) (string, bool, error) {
	if !exportRe.MatchString(text) {
		return "", false, nil
	}
	if d.callbacks.Export == nil {
		return "Export isn't set up for this session.", true, nil
	}
	result, err := d.callbacks.Export(ctx)
	if err != nil {
		d.logger.Error("export failed", "error", err)
		return "", true, common.NewUserError("The export failed.", err)
	}
	return result, true, nil
}

// handleSearch extracts the residual query and delegates to the search
// callback.
func (d *Dispatcher) handleSearch(ctx context.Context, text string) (string, bool, error) {
	if !searchRe.MatchString(text) {
		return "", false, nil
	}
	query := searchQuery(text)
	if query == "" {
		return "What should I search for?", true, nil
	}
	if d.callbacks.Search == nil {
		return "Search isn't set up for this session.", true, nil
	}
	result, err := d.callbacks.Search(ctx, query)
	if err != nil {
		d.logger.Error("search failed", "query", query, "error", err)
		return "", true, common.NewUserError(
			fmt.Sprintf("I couldn't search for %q.", query), err)
	}
	return result, true, nil
}
