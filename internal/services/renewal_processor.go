package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subtrack/internal/core"
)

// RenewalProcessor advances overdue next billing dates so the dashboard
// always shows the upcoming charge rather than a stale one.
type RenewalProcessor struct {
	repo      Repository
	publisher SyncPublisher
}

func NewRenewalProcessor(repo Repository, publisher SyncPublisher) *RenewalProcessor {
	return &RenewalProcessor{repo: repo, publisher: publisher}
}

// ProcessDueRenewals rolls every active subscription whose next billing
// date has passed forward to its first future cycle boundary. Returns
// the number of subscriptions advanced.
func (p *RenewalProcessor) ProcessDueRenewals(ctx context.Context, now time.Time) (int, error) {
	if p.repo == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	due, err := p.repo.ListDueSubscriptions(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list due subscriptions: %w", err)
	}

	slog.InfoContext(ctx, "Processing due renewals",
		"total_due", len(due),
		"processing_date", today.Format("2006-01-02"))

	processed := 0
	for _, sub := range due {
		next, err := advancePastToday(sub, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to compute next billing date",
				"subscription_id", sub.ID,
				"billing_cycle", string(sub.Cycle),
				"error", err)
			continue
		}

		version, err := p.repo.AdvanceNextBilling(ctx, sub.ID, next)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to advance next billing date",
				"subscription_id", sub.ID,
				"error", err)
			continue
		}

		if p.publisher != nil {
			if err := p.publisher.PublishSubscriptionSync(ctx, sub.ID, version, false); err != nil {
				slog.ErrorContext(ctx, "Failed to publish sync message",
					"subscription_id", sub.ID,
					"error", err)
				// Continue anyway, the date was advanced locally.
			}
		}

		processed++
		slog.InfoContext(ctx, "Advanced subscription renewal",
			"subscription_id", sub.ID,
			"billing_cycle", string(sub.Cycle),
			"next_billing_date", next.Format("2006-01-02"))
	}

	slog.InfoContext(ctx, "Renewal processing complete",
		"processed", processed,
		"total_due", len(due))
	return processed, nil
}

// advancePastToday applies cycle offsets until the date lands strictly
// after today. A subscription paused for months catches up in one run.
func advancePastToday(sub core.Subscription, today core.Date) (core.Date, error) {
	next := sub.NextBillingDate
	if next.IsEmpty() {
		return core.Date{}, fmt.Errorf("subscription %s has no next billing date", sub.ID)
	}
	for !next.After(today.Time) {
		advanced, err := core.NextBillingDate(next, sub.Cycle)
		if err != nil {
			return core.Date{}, err
		}
		if advanced.IsEmpty() {
			return core.Date{}, fmt.Errorf("subscription %s cycle %s yields no next date", sub.ID, sub.Cycle)
		}
		next = advanced
	}
	return next, nil
}
