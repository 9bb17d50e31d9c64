package model

import "time"

// ResolutionSource indicates which waterfall tier produced a category.
type ResolutionSource string

// Resolution source constants, one per tier plus the correction path.
const (
	SourceUserOverride   ResolutionSource = "user_override"
	SourceGlobalCache    ResolutionSource = "global_cache"
	SourceKeyword        ResolutionSource = "keyword"
	SourceAI             ResolutionSource = "ai"
	SourceFallback       ResolutionSource = "fallback"
	SourceUserCorrection ResolutionSource = "user_correction"
)

// Tier confidence constants. 1.0 belongs exclusively to user overrides;
// the shared cache is capped just below certainty.
const (
	ConfidenceOverride   = 1.0
	ConfidenceKeyword    = 0.7
	ConfidenceAI         = 0.8
	ConfidenceCorrection = 0.9
	ConfidenceFallback   = 0.1

	CacheAcceptThreshold = 0.6
	CacheConfidenceCap   = 0.99
)

// UserOverride is a user's permanent category correction for a merchant.
// It is the highest-precedence resolution signal and never expires.
type UserOverride struct {
	UpdatedAt   time.Time
	UserID      string
	MerchantKey string
	Category    string
}

// MerchantResolution is a cross-user shared cache entry mapping a merchant
// key to its majority category signal.
type MerchantResolution struct {
	LastResolvedAt  time.Time
	MerchantKey     string
	Category        string
	Confidence      float64
	ResolutionCount int
}

// Blend folds an incoming confidence signal into the entry using an
// incremental weighted mean, capped below certainty. Repeated consistent
// signal converges upward; a single noisy classification is smoothed.
func (r *MerchantResolution) Blend(category string, incoming float64, at time.Time) {
	next := (r.Confidence*float64(r.ResolutionCount) + incoming) / float64(r.ResolutionCount+1)
	if next > CacheConfidenceCap {
		next = CacheConfidenceCap
	}
	// The mean can round a hair below the stored value once it has settled;
	// consistent signal must never lower confidence.
	if category == r.Category && next < r.Confidence {
		next = r.Confidence
	}
	r.Category = category
	r.Confidence = next
	r.ResolutionCount++
	r.LastResolvedAt = at
}

// ResolutionLog is one append-only audit record of a categorization
// decision. The decision procedure never reads these back.
type ResolutionLog struct {
	CreatedAt   time.Time
	UserID      string
	MerchantKey string
	Category    string
	ResolvedBy  ResolutionSource
	ID          int64
	ExpenseID   int64
	Confidence  float64
}
