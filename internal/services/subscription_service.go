// Package services orchestrates subscription operations across SQLite
// and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

// Repository is the storage surface the services need. Implemented by
// storage.SQLiteRepository.
type Repository interface {
	CreateSubscription(ctx context.Context, s core.Subscription) error
	GetSubscription(ctx context.Context, userID, id string) (*core.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string, filter storage.ListFilter) ([]core.Subscription, error)
	UpdateSubscription(ctx context.Context, s core.Subscription) (int64, error)
	SoftDeleteSubscription(ctx context.Context, userID, id string) (int64, error)
	ListCategories(ctx context.Context, userID string) ([]string, error)
	ListDueSubscriptions(ctx context.Context, asOf core.Date) ([]core.Subscription, error)
	AdvanceNextBilling(ctx context.Context, id string, next core.Date) (int64, error)
}

// SyncPublisher enqueues backup sync messages. Implemented by
// amqp.Client; a nil publisher disables syncing.
type SyncPublisher interface {
	PublishSubscriptionSync(ctx context.Context, id string, version int64, deleted bool) error
}

// SubscriptionInput carries the user-editable fields of a subscription.
type SubscriptionInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Cycle       core.BillingCycle
	StartDate   core.Date
	Category    string
	Website     string
	Logo        string
	Status      core.Status
}

type SubscriptionService struct {
	repo            Repository
	publisher       SyncPublisher
	defaultCurrency string
}

func NewSubscriptionService(repo Repository, publisher SyncPublisher, defaultCurrency string) *SubscriptionService {
	return &SubscriptionService{
		repo:            repo,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
	}
}

// Create validates the input, derives the next billing date from the
// start date, saves the record, and enqueues a backup sync message.
func (s *SubscriptionService) Create(ctx context.Context, userID string, in SubscriptionInput) (*core.Subscription, error) {
	sub, err := s.build(uuid.NewString(), userID, in, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateSubscription(ctx, *sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	s.publishSync(ctx, sub.ID, 1, false)

	slog.InfoContext(ctx, "Subscription created",
		"subscription_id", sub.ID,
		"user_id", userID,
		"billing_cycle", string(sub.Cycle))
	return sub, nil
}

// Update replaces the user-editable fields of an owned subscription and
// recomputes its next billing date.
func (s *SubscriptionService) Update(ctx context.Context, userID, id string, in SubscriptionInput) (*core.Subscription, error) {
	if _, err := s.repo.GetSubscription(ctx, userID, id); err != nil {
		return nil, err
	}

	sub, err := s.build(id, userID, in, time.Now())
	if err != nil {
		return nil, err
	}

	version, err := s.repo.UpdateSubscription(ctx, *sub)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	s.publishSync(ctx, id, version, false)

	slog.InfoContext(ctx, "Subscription updated",
		"subscription_id", id,
		"user_id", userID,
		"version", version)
	return sub, nil
}

// Delete soft deletes an owned subscription and enqueues a deletion for
// the backup mirror.
func (s *SubscriptionService) Delete(ctx context.Context, userID, id string) error {
	version, err := s.repo.SoftDeleteSubscription(ctx, userID, id)
	if err != nil {
		return err
	}

	s.publishSync(ctx, id, version, true)

	slog.InfoContext(ctx, "Subscription deleted",
		"subscription_id", id,
		"user_id", userID)
	return nil
}

func (s *SubscriptionService) Get(ctx context.Context, userID, id string) (*core.Subscription, error) {
	return s.repo.GetSubscription(ctx, userID, id)
}

func (s *SubscriptionService) List(ctx context.Context, userID string, filter storage.ListFilter) ([]core.Subscription, error) {
	return s.repo.ListSubscriptions(ctx, userID, filter)
}

func (s *SubscriptionService) Categories(ctx context.Context, userID string) ([]string, error) {
	return s.repo.ListCategories(ctx, userID)
}

// Metrics computes the dashboard aggregates over all of a user's
// subscriptions as of now.
func (s *SubscriptionService) Metrics(ctx context.Context, userID string, now time.Time) (core.Metrics, error) {
	subs, err := s.repo.ListSubscriptions(ctx, userID, storage.ListFilter{})
	if err != nil {
		return core.Metrics{}, fmt.Errorf("list subscriptions: %w", err)
	}
	return core.ComputeMetrics(subs, now), nil
}

func (s *SubscriptionService) build(id, userID string, in SubscriptionInput, now time.Time) (*core.Subscription, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	status := in.Status
	if status == "" {
		status = core.StatusActive
	}

	next, err := NextBillingFrom(in.StartDate, in.Cycle, core.DateOf(now))
	if err != nil {
		return nil, err
	}

	sub := &core.Subscription{
		ID:              id,
		UserID:          userID,
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Price:           in.Price,
		Currency:        currency,
		Cycle:           in.Cycle,
		StartDate:       in.StartDate,
		NextBillingDate: next,
		Category:        core.CategoryLabel(in.Category),
		Website:         strings.TrimSpace(in.Website),
		Logo:            strings.TrimSpace(in.Logo),
		Status:          status,
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return sub, nil
}

// NextBillingFrom derives the upcoming billing date for a subscription
// started at start: the start date itself if still in the future,
// otherwise the first cycle boundary after today. One-time purchases
// have no upcoming date.
func NextBillingFrom(start core.Date, cycle core.BillingCycle, today core.Date) (core.Date, error) {
	if cycle == core.Lifetime {
		return core.Date{}, nil
	}
	next := start
	for !next.After(today.Time) {
		advanced, err := core.NextBillingDate(next, cycle)
		if err != nil {
			return core.Date{}, err
		}
		next = advanced
	}
	return next, nil
}

func (s *SubscriptionService) publishSync(ctx context.Context, id string, version int64, deleted bool) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.publisher.PublishSubscriptionSync(ctx, id, version, deleted); err != nil {
		// The record is saved locally; the periodic pending-sync sweep
		// will pick it up.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"subscription_id", id, "error", err)
	}
}
