// Package insights answers read-only spending questions over persisted
// expenses. It currently knows one thing: whether a category's spend over
// the last week jumped relative to the week before.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mtowers/ledgermind/internal/service"
)

// spikeRatio is the week-over-week multiplier that counts as a spike.
const spikeRatio = 1.5

// minPriorSpend avoids flagging a jump from near-zero baseline spend.
const minPriorSpend = 10.0

// Service computes spending insights from storage.
type Service struct {
	store  service.Storage
	logger *slog.Logger
	now    func() time.Time
}

// New creates an insights service.
func New(store service.Storage, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// SpendSpikeNote compares the category's spend over the last 7 days to the
// 7 days before that. It returns a short note when the recent week is at
// least spikeRatio times the prior week, and "" otherwise.
func (s *Service) SpendSpikeNote(ctx context.Context, userID, categoryName string) (string, error) {
	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	expenses, err := s.store.GetExpensesByPeriod(ctx, userID, twoWeeksAgo, now)
	if err != nil {
		return "", fmt.Errorf("loading expenses for spike check: %w", err)
	}

	var current, prior float64
	for _, e := range expenses {
		if !strings.EqualFold(e.CategoryName, categoryName) {
			continue
		}
		if e.SpentAt.Before(weekAgo) {
			prior += e.Amount
		} else {
			current += e.Amount
		}
	}

	if prior < minPriorSpend || current < prior*spikeRatio {
		return "", nil
	}

	s.logger.Debug("spend spike detected",
		"category", categoryName, "current", current, "prior", prior)
	return fmt.Sprintf("Heads up: %s spending is up this week ($%.2f vs $%.2f last week).",
		categoryName, current, prior), nil
}
