// Package resolver implements the category resolution waterfall: five
// ordered signal sources evaluated first-success-wins, with a termination
// guarantee for any non-empty category list. No individual tier failure is
// ever visible to the caller.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/keyword"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/service"
)

// CategoryOracle is the remote classification capability the waterfall
// consumes. Failure is a normal operating condition.
type CategoryOracle interface {
	ClassifyCategory(ctx context.Context, merchant, description, message string, categories []string) (string, error)
}

// Request carries everything one resolution needs.
type Request struct {
	Merchant    string
	Description string
	FullMessage string
	UserID      string
	Categories  []model.Category
}

// Resolution is the waterfall's answer: a category with provenance and
// confidence.
type Resolution struct {
	CategoryName string
	Source       model.ResolutionSource
	CategoryID   int
	Confidence   float64
}

// Resolver runs the waterfall against storage, the keyword classifier, and
// an optional remote oracle.
type Resolver struct {
	store      service.Storage
	keywords   *keyword.Classifier
	oracle     CategoryOracle
	logger     *slog.Logger
	background func(task func(context.Context))
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSynchronousWrites makes the normally fire-and-forget cache and log
// writes run inline. Intended for tests.
func WithSynchronousWrites() Option {
	return func(r *Resolver) {
		r.background = func(task func(context.Context)) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			task(ctx)
		}
	}
}

// New creates a resolver. oracle may be nil, which simply turns tier 4
// into a guaranteed miss.
func New(store service.Storage, keywords *keyword.Classifier, oracle CategoryOracle, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		keywords: keywords,
		oracle:   oracle,
		logger:   logger,
		background: func(task func(context.Context)) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				task(ctx)
			}()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// tier is one waterfall signal source. ok is false on a miss, including
// any internal failure.
type tier struct {
	resolve func(ctx context.Context, req Request, merchantKey string) (Resolution, bool)
	name    string
}

// Resolve assigns a category. It never fails as long as req.Categories is
// non-empty: the fallback tier is the termination guarantee.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if len(req.Categories) == 0 {
		return Resolution{}, common.ErrNoCategories
	}

	merchantKey := model.MerchantKey(req.Merchant)

	tiers := []tier{
		{name: "user_override", resolve: r.overrideTier},
		{name: "global_cache", resolve: r.cacheTier},
		{name: "keyword", resolve: r.keywordTier},
		{name: "ai", resolve: r.oracleTier},
		{name: "fallback", resolve: r.fallbackTier},
	}

	for _, t := range tiers {
		resolution, ok := t.resolve(ctx, req, merchantKey)
		if !ok {
			continue
		}

		r.logger.Debug("category resolved",
			"merchant", req.Merchant,
			"category", resolution.CategoryName,
			"tier", t.name,
			"confidence", resolution.Confidence)

		r.appendLog(req.UserID, merchantKey, resolution)
		return resolution, nil
	}

	// Unreachable: the fallback tier cannot miss for a non-empty list.
	return Resolution{}, common.ErrNoCategories
}

// overrideTier consults the user's permanent corrections. An override
// present for this merchant always wins.
func (r *Resolver) overrideTier(ctx context.Context, req Request, merchantKey string) (Resolution, bool) {
	if req.UserID == "" {
		return Resolution{}, false
	}

	override, err := r.store.GetOverride(ctx, req.UserID, merchantKey)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			r.logger.Warn("override lookup failed", "merchant_key", merchantKey, "error", err)
		}
		return Resolution{}, false
	}

	category, ok := findCategory(req.Categories, override.Category)
	if !ok {
		r.logger.Warn("override names a category outside the allowed list",
			"merchant_key", merchantKey,
			"category", override.Category)
		return Resolution{}, false
	}

	return Resolution{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Source:       model.SourceUserOverride,
		Confidence:   model.ConfidenceOverride,
	}, true
}

// cacheTier consults the cross-user shared cache, accepting only entries
// at or above the confidence threshold.
func (r *Resolver) cacheTier(ctx context.Context, req Request, merchantKey string) (Resolution, bool) {
	cached, err := r.store.GetResolution(ctx, merchantKey)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			r.logger.Warn("cache lookup failed", "merchant_key", merchantKey, "error", err)
		}
		return Resolution{}, false
	}

	if cached.Confidence < model.CacheAcceptThreshold {
		return Resolution{}, false
	}

	category, ok := findCategory(req.Categories, cached.Category)
	if !ok {
		return Resolution{}, false
	}

	return Resolution{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Source:       model.SourceGlobalCache,
		Confidence:   cached.Confidence,
	}, true
}

// keywordTier runs the deterministic gazetteer match. A hit warms the
// shared cache without blocking the caller.
func (r *Resolver) keywordTier(_ context.Context, req Request, merchantKey string) (Resolution, bool) {
	matched, ok := r.keywords.Classify(req.Merchant, req.Description, req.FullMessage)
	if !ok {
		return Resolution{}, false
	}

	category, ok := findCategory(req.Categories, matched)
	if !ok {
		return Resolution{}, false
	}

	r.recordResolution(merchantKey, category.Name, model.ConfidenceKeyword)

	return Resolution{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Source:       model.SourceKeyword,
		Confidence:   model.ConfidenceKeyword,
	}, true
}

// oracleTier asks the remote oracle, rejecting any answer outside the
// caller's allowed list.
func (r *Resolver) oracleTier(ctx context.Context, req Request, merchantKey string) (Resolution, bool) {
	if r.oracle == nil {
		return Resolution{}, false
	}

	names := make([]string, len(req.Categories))
	for i, cat := range req.Categories {
		names[i] = cat.Name
	}

	answer, err := r.oracle.ClassifyCategory(ctx, req.Merchant, req.Description, req.FullMessage, names)
	if err != nil {
		r.logger.Warn("oracle classification failed", "merchant_key", merchantKey, "error", err)
		return Resolution{}, false
	}

	category, ok := findCategory(req.Categories, answer)
	if !ok {
		r.logger.Warn("oracle answer rejected",
			"merchant_key", merchantKey,
			"answer", answer,
			"error", common.ErrOracleRejected)
		return Resolution{}, false
	}

	r.recordResolution(merchantKey, category.Name, model.ConfidenceAI)

	return Resolution{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Source:       model.SourceAI,
		Confidence:   model.ConfidenceAI,
	}, true
}

// fallbackTier assigns Miscellaneous when present, else the first
// available category. It cannot miss for a non-empty list.
func (r *Resolver) fallbackTier(_ context.Context, req Request, _ string) (Resolution, bool) {
	category, ok := findCategory(req.Categories, model.FallbackCategoryName)
	if !ok {
		category = req.Categories[0]
	}

	return Resolution{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Source:       model.SourceFallback,
		Confidence:   model.ConfidenceFallback,
	}, true
}

// RecordCorrection runs the learning loop after a user manually edits an
// expense's category: override upsert, high-confidence cache update, and
// an audit record. The three writes are independently useful, so partial
// completion is logged rather than rolled back.
func (r *Resolver) RecordCorrection(ctx context.Context, userID string, expenseID int64, merchant, categoryName string) {
	merchantKey := model.MerchantKey(merchant)

	if err := r.store.SaveOverride(ctx, &model.UserOverride{
		UserID:      userID,
		MerchantKey: merchantKey,
		Category:    categoryName,
	}); err != nil {
		r.logger.Error("correction override write failed",
			"merchant_key", merchantKey, "error", err)
	}

	if err := r.store.RecordResolution(ctx, merchantKey, categoryName, model.ConfidenceCorrection); err != nil {
		r.logger.Error("correction cache update failed",
			"merchant_key", merchantKey, "error", err)
	}

	if err := r.store.AppendResolutionLog(ctx, &model.ResolutionLog{
		UserID:      userID,
		ExpenseID:   expenseID,
		MerchantKey: merchantKey,
		Category:    categoryName,
		ResolvedBy:  model.SourceUserCorrection,
		Confidence:  model.ConfidenceOverride,
	}); err != nil {
		r.logger.Warn("correction log append failed",
			"merchant_key", merchantKey, "error", err)
	}

	r.logger.Info("user correction recorded",
		"merchant_key", merchantKey,
		"category", categoryName)
}

// recordResolution schedules a fire-and-forget cache write. The resolution
// returns to its caller before this write is durable; a lost update under
// concurrent resolutions of the same key is accepted.
func (r *Resolver) recordResolution(merchantKey, categoryName string, confidence float64) {
	r.background(func(ctx context.Context) {
		if err := r.store.RecordResolution(ctx, merchantKey, categoryName, confidence); err != nil {
			r.logger.Warn("cache write failed",
				"merchant_key", merchantKey, "error", err)
		}
	})
}

// appendLog schedules a fire-and-forget audit record for a resolution.
func (r *Resolver) appendLog(userID, merchantKey string, resolution Resolution) {
	r.background(func(ctx context.Context) {
		if err := r.store.AppendResolutionLog(ctx, &model.ResolutionLog{
			UserID:      userID,
			MerchantKey: merchantKey,
			Category:    resolution.CategoryName,
			ResolvedBy:  resolution.Source,
			Confidence:  resolution.Confidence,
		}); err != nil {
			r.logger.Warn("resolution log append failed",
				"merchant_key", merchantKey, "error", err)
		}
	})
}

// findCategory locates name in the allowed list, case-insensitively.
func findCategory(categories []model.Category, name string) (model.Category, bool) {
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return model.Category{}, false
}
