package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/keyword"
	"github.com/mtowers/ledgermind/internal/model"
	"github.com/mtowers/ledgermind/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCategoryOracle answers with a fixed category or error.
type fakeCategoryOracle struct {
	err      error
	category string
	calls    int
}

func (f *fakeCategoryOracle) ClassifyCategory(_ context.Context, _, _, _ string, _ []string) (string, error) {
	f.calls++
	return f.category, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(t *testing.T, db *testutil.TestDB, oracle CategoryOracle) *Resolver {
	t.Helper()
	keywords, err := keyword.New(nil)
	require.NoError(t, err)
	return New(db.Storage, keywords, oracle, testLogger(), WithSynchronousWrites())
}

func TestResolveEmptyCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db, nil)

	_, err := r.Resolve(context.Background(), Request{Merchant: "Starbucks"})
	assert.ErrorIs(t, err, common.ErrNoCategories)
}

func TestResolveOverrideSupremacy(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	// Stack every lower tier against the override: a confident cache
	// entry, a keyword hit, and an eager oracle all point at Coffee.
	require.NoError(t, db.Storage.SaveOverride(ctx, &model.UserOverride{
		UserID:      "alice",
		MerchantKey: "starbucks",
		Category:    "Dining",
	}))
	require.NoError(t, db.Storage.RecordResolution(ctx, "starbucks", "Coffee", 0.95))

	oracle := &fakeCategoryOracle{category: "Coffee"}
	r := newTestResolver(t, db, oracle)

	resolution, err := r.Resolve(ctx, Request{
		Merchant:   "Starbucks",
		UserID:     "alice",
		Categories: db.Categories,
	})
	require.NoError(t, err)

	assert.Equal(t, "Dining", resolution.CategoryName)
	assert.Equal(t, model.SourceUserOverride, resolution.Source)
	assert.Equal(t, model.ConfidenceOverride, resolution.Confidence)
	assert.Equal(t, 0, oracle.calls)
}

func TestResolveOverrideIsPerUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Storage.SaveOverride(ctx, &model.UserOverride{
		UserID:      "alice",
		MerchantKey: "starbucks",
		Category:    "Dining",
	}))

	r := newTestResolver(t, db, nil)

	resolution, err := r.Resolve(ctx, Request{
		Merchant:   "Starbucks",
		UserID:     "bob",
		Categories: db.Categories,
	})
	require.NoError(t, err)

	// Bob has no override; the keyword tier answers instead.
	assert.Equal(t, "Coffee", resolution.CategoryName)
	assert.Equal(t, model.SourceKeyword, resolution.Source)
}

func TestResolveCacheTier(t *testing.T) {
	ctx := context.Background()

	t.Run("confident entry wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		require.NoError(t, db.Storage.RecordResolution(ctx, "corner deli", "Dining", 0.85))

		r := newTestResolver(t, db, nil)
		resolution, err := r.Resolve(ctx, Request{
			Merchant:   "Corner Deli",
			UserID:     "alice",
			Categories: db.Categories,
		})
		require.NoError(t, err)

		assert.Equal(t, "Dining", resolution.CategoryName)
		assert.Equal(t, model.SourceGlobalCache, resolution.Source)
		assert.InDelta(t, 0.85, resolution.Confidence, 1e-9)
	})

	t.Run("entry below threshold is skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		require.NoError(t, db.Storage.RecordResolution(ctx, "corner deli", "Dining", 0.4))

		r := newTestResolver(t, db, nil)
		resolution, err := r.Resolve(ctx, Request{
			Merchant:   "Corner Deli",
			UserID:     "alice",
			Categories: db.Categories,
		})
		require.NoError(t, err)

		// Nothing else knows "Corner Deli" either, so the waterfall lands
		// on the fallback.
		assert.Equal(t, model.SourceFallback, resolution.Source)
	})

	t.Run("entry for a retired category is skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		require.NoError(t, db.Storage.RecordResolution(ctx, "corner deli", "Entertainment", 0.9))

		r := newTestResolver(t, db, nil)
		resolution, err := r.Resolve(ctx, Request{
			Merchant:   "Corner Deli",
			UserID:     "alice",
			Categories: db.Categories, // no Entertainment seeded
		})
		require.NoError(t, err)

		assert.Equal(t, model.SourceFallback, resolution.Source)
	})
}

func TestResolveKeywordTier(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db, nil)

	resolution, err := r.Resolve(ctx, Request{
		Merchant:    "Joe's Cafe",
		Description: "morning latte",
		UserID:      "alice",
		Categories:  db.Categories,
	})
	require.NoError(t, err)

	assert.Equal(t, "Coffee", resolution.CategoryName)
	assert.Equal(t, model.SourceKeyword, resolution.Source)
	assert.Equal(t, model.ConfidenceKeyword, resolution.Confidence)

	// The hit warmed the shared cache.
	cached, err := db.Storage.GetResolution(ctx, "joe's cafe")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", cached.Category)
	assert.InDelta(t, model.ConfidenceKeyword, cached.Confidence, 1e-9)
	assert.Equal(t, 1, cached.ResolutionCount)
}

func TestResolveOracleTier(t *testing.T) {
	ctx := context.Background()

	request := func(db *testutil.TestDB) Request {
		return Request{
			Merchant:    "Zenith Widgets",
			Description: "replacement widget",
			UserID:      "alice",
			Categories:  db.Categories,
		}
	}

	t.Run("accepted answer", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		oracle := &fakeCategoryOracle{category: "Home"}
		r := newTestResolver(t, db, oracle)

		resolution, err := r.Resolve(ctx, request(db))
		require.NoError(t, err)

		assert.Equal(t, "Home", resolution.CategoryName)
		assert.Equal(t, model.SourceAI, resolution.Source)
		assert.Equal(t, model.ConfidenceAI, resolution.Confidence)
		assert.Equal(t, 1, oracle.calls)

		// The answer warmed the shared cache.
		cached, err := db.Storage.GetResolution(ctx, "zenith widgets")
		require.NoError(t, err)
		assert.Equal(t, "Home", cached.Category)
	})

	t.Run("case differences are tolerated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		oracle := &fakeCategoryOracle{category: "home"}
		r := newTestResolver(t, db, oracle)

		resolution, err := r.Resolve(ctx, request(db))
		require.NoError(t, err)

		// Canonical casing comes from the category list, not the oracle.
		assert.Equal(t, "Home", resolution.CategoryName)
	})

	t.Run("answer outside the list is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		oracle := &fakeCategoryOracle{category: "Cryptocurrency"}
		r := newTestResolver(t, db, oracle)

		resolution, err := r.Resolve(ctx, request(db))
		require.NoError(t, err)

		assert.Equal(t, model.SourceFallback, resolution.Source)

		// A rejected answer must not pollute the cache.
		_, err = db.Storage.GetResolution(ctx, "zenith widgets")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("oracle failure degrades to fallback", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		oracle := &fakeCategoryOracle{err: errors.New("upstream timeout")}
		r := newTestResolver(t, db, oracle)

		resolution, err := r.Resolve(ctx, request(db))
		require.NoError(t, err)

		assert.Equal(t, model.SourceFallback, resolution.Source)
	})

	t.Run("nil oracle is a guaranteed miss", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db, nil)

		resolution, err := r.Resolve(ctx, request(db))
		require.NoError(t, err)

		assert.Equal(t, model.SourceFallback, resolution.Source)
	})
}

func TestResolveFallbackTier(t *testing.T) {
	ctx := context.Background()

	t.Run("miscellaneous when present", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		r := newTestResolver(t, db, nil)

		resolution, err := r.Resolve(ctx, Request{
			Merchant:   "Completely Unknown LLC",
			UserID:     "alice",
			Categories: db.Categories,
		})
		require.NoError(t, err)

		assert.Equal(t, "Miscellaneous", resolution.CategoryName)
		assert.Equal(t, model.SourceFallback, resolution.Source)
		assert.Equal(t, model.ConfidenceFallback, resolution.Confidence)
	})

	t.Run("first category without miscellaneous", func(t *testing.T) {
		db := testutil.SetupTestDB(t, "Groceries", "Dining")
		r := newTestResolver(t, db, nil)

		resolution, err := r.Resolve(ctx, Request{
			Merchant:   "Completely Unknown LLC",
			UserID:     "alice",
			Categories: db.Categories,
		})
		require.NoError(t, err)

		assert.Equal(t, db.Categories[0].Name, resolution.CategoryName)
		assert.Equal(t, model.SourceFallback, resolution.Source)
	})
}

func TestResolveConfidenceDomain(t *testing.T) {
	// Every resolution's confidence must come from the fixed tier values
	// or the cache's accepted range.
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Storage.SaveOverride(ctx, &model.UserOverride{
		UserID: "alice", MerchantKey: "starbucks", Category: "Coffee",
	}))
	require.NoError(t, db.Storage.RecordResolution(ctx, "corner deli", "Dining", 0.75))

	r := newTestResolver(t, db, &fakeCategoryOracle{category: "Home"})

	merchants := []string{"Starbucks", "Corner Deli", "morning latte", "Zenith Widgets", "Unknown LLC"}
	for _, merchant := range merchants {
		resolution, err := r.Resolve(ctx, Request{
			Merchant:   merchant,
			UserID:     "alice",
			Categories: db.Categories,
		})
		require.NoError(t, err, "merchant %q", merchant)

		c := resolution.Confidence
		inCacheRange := resolution.Source == model.SourceGlobalCache &&
			c >= model.CacheAcceptThreshold && c <= model.CacheConfidenceCap
		fixed := c == model.ConfidenceOverride || c == model.ConfidenceKeyword ||
			c == model.ConfidenceAI || c == model.ConfidenceFallback
		assert.True(t, fixed || inCacheRange,
			"merchant %q resolved with confidence %v from %s", merchant, c, resolution.Source)
	}
}

func TestResolveAppendsLog(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db, nil)

	_, err := r.Resolve(ctx, Request{
		Merchant:   "Starbucks",
		UserID:     "alice",
		Categories: db.Categories,
	})
	require.NoError(t, err)

	logs, err := db.Storage.(interface {
		GetResolutionLog(ctx context.Context, userID string, limit int) ([]model.ResolutionLog, error)
	}).GetResolutionLog(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.Equal(t, "starbucks", logs[0].MerchantKey)
	assert.Equal(t, "Coffee", logs[0].Category)
	assert.Equal(t, model.SourceKeyword, logs[0].ResolvedBy)
}

func TestRecordCorrection(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	r := newTestResolver(t, db, nil)

	r.RecordCorrection(ctx, "alice", 42, "Starbucks", "Dining")

	// Override written with the canonical key.
	override, err := db.Storage.GetOverride(ctx, "alice", "starbucks")
	require.NoError(t, err)
	assert.Equal(t, "Dining", override.Category)

	// Shared cache updated at the correction confidence.
	cached, err := db.Storage.GetResolution(ctx, "starbucks")
	require.NoError(t, err)
	assert.Equal(t, "Dining", cached.Category)
	assert.InDelta(t, model.ConfidenceCorrection, cached.Confidence, 1e-9)

	// Future resolutions for this user now hit the override.
	resolution, err := r.Resolve(ctx, Request{
		Merchant:   "Starbucks",
		UserID:     "alice",
		Categories: db.Categories,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dining", resolution.CategoryName)
	assert.Equal(t, model.SourceUserOverride, resolution.Source)
}

func TestCacheConvergesUnderRepeatedSignal(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	prev := 0.0
	for i := 0; i < 100; i++ {
		require.NoError(t, db.Storage.RecordResolution(ctx, "starbucks", "Coffee", model.ConfidenceCorrection))

		cached, err := db.Storage.GetResolution(ctx, "starbucks")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cached.Confidence, prev)
		assert.LessOrEqual(t, cached.Confidence, model.CacheConfidenceCap)
		prev = cached.Confidence
	}

	assert.InDelta(t, model.ConfidenceCorrection, prev, 0.01)
}
