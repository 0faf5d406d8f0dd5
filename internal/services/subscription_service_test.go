package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

type fakeRepo struct {
	subs map[string]core.Subscription
	// version per subscription ID, bumped on update
	versions map[string]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subs:     make(map[string]core.Subscription),
		versions: make(map[string]int64),
	}
}

func (r *fakeRepo) CreateSubscription(_ context.Context, s core.Subscription) error {
	r.subs[s.ID] = s
	r.versions[s.ID] = 1
	return nil
}

func (r *fakeRepo) GetSubscription(_ context.Context, userID, id string) (*core.Subscription, error) {
	s, ok := r.subs[id]
	if !ok || s.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return &s, nil
}

func (r *fakeRepo) ListSubscriptions(_ context.Context, userID string, _ storage.ListFilter) ([]core.Subscription, error) {
	var out []core.Subscription
	for _, s := range r.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateSubscription(_ context.Context, s core.Subscription) (int64, error) {
	if _, ok := r.subs[s.ID]; !ok {
		return 0, storage.ErrNotFound
	}
	r.subs[s.ID] = s
	r.versions[s.ID]++
	return r.versions[s.ID], nil
}

func (r *fakeRepo) SoftDeleteSubscription(_ context.Context, userID, id string) (int64, error) {
	s, ok := r.subs[id]
	if !ok || s.UserID != userID {
		return 0, storage.ErrNotFound
	}
	delete(r.subs, id)
	r.versions[id]++
	return r.versions[id], nil
}

func (r *fakeRepo) ListCategories(_ context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (r *fakeRepo) ListDueSubscriptions(_ context.Context, asOf core.Date) ([]core.Subscription, error) {
	var due []core.Subscription
	for _, s := range r.subs {
		if s.Status != core.StatusActive || s.NextBillingDate.IsEmpty() {
			continue
		}
		if !s.NextBillingDate.After(asOf.Time) {
			due = append(due, s)
		}
	}
	return due, nil
}

func (r *fakeRepo) AdvanceNextBilling(_ context.Context, id string, next core.Date) (int64, error) {
	s, ok := r.subs[id]
	if !ok {
		return 0, storage.ErrNotFound
	}
	s.NextBillingDate = next
	r.subs[id] = s
	r.versions[id]++
	return r.versions[id], nil
}

type publishedMsg struct {
	id      string
	version int64
	deleted bool
}

type fakePublisher struct {
	published []publishedMsg
	fail      bool
}

func (p *fakePublisher) PublishSubscriptionSync(_ context.Context, id string, version int64, deleted bool) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.published = append(p.published, publishedMsg{id, version, deleted})
	return nil
}

func validInput() SubscriptionInput {
	return SubscriptionInput{
		Name:      "Netflix",
		Price:     decimal.RequireFromString("15.99"),
		Cycle:     core.Monthly,
		StartDate: core.NewDate(2024, time.January, 15),
	}
}

func TestCreateDerivesNextBillingDate(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewSubscriptionService(repo, pub, "MYR")

	sub, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if sub.NextBillingDate.IsEmpty() {
		t.Fatal("next billing date not derived")
	}
	if !sub.NextBillingDate.After(time.Now()) {
		t.Errorf("next billing date %s not in the future", sub.NextBillingDate.Format("2006-01-02"))
	}
	if sub.NextBillingDate.Day() != 15 {
		t.Errorf("next billing day = %d, want 15 (anchored to start date)", sub.NextBillingDate.Day())
	}
	if sub.Currency != "MYR" {
		t.Errorf("Currency = %q, want default MYR", sub.Currency)
	}
	if sub.Category != core.DefaultCategory {
		t.Errorf("Category = %q, want %q", sub.Category, core.DefaultCategory)
	}
	if sub.Status != core.StatusActive {
		t.Errorf("Status = %q, want ACTIVE", sub.Status)
	}
	if len(pub.published) != 1 || pub.published[0].version != 1 || pub.published[0].deleted {
		t.Errorf("published = %+v, want one non-delete message with version 1", pub.published)
	}
}

func TestCreateLifetimeHasNoNextBillingDate(t *testing.T) {
	svc := NewSubscriptionService(newFakeRepo(), nil, "MYR")

	in := validInput()
	in.Cycle = core.Lifetime
	sub, err := svc.Create(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !sub.NextBillingDate.IsEmpty() {
		t.Errorf("lifetime subscription has next billing date %s", sub.NextBillingDate.Format("2006-01-02"))
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSubscriptionService(repo, nil, "MYR")

	in := validInput()
	in.Name = "  "
	if _, err := svc.Create(context.Background(), "user-1", in); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("error = %v, want ErrEmptyName", err)
	}
	if len(repo.subs) != 0 {
		t.Error("invalid subscription was saved")
	}

	in = validInput()
	in.Price = decimal.RequireFromString("-1")
	if _, err := svc.Create(context.Background(), "user-1", in); !errors.Is(err, core.ErrNegativePrice) {
		t.Errorf("error = %v, want ErrNegativePrice", err)
	}
}

func TestCreateSurvivesBrokerOutage(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSubscriptionService(repo, &fakePublisher{fail: true}, "MYR")

	if _, err := svc.Create(context.Background(), "user-1", validInput()); err != nil {
		t.Fatalf("Create failed on publish error: %v", err)
	}
	if len(repo.subs) != 1 {
		t.Error("subscription not saved despite broker outage")
	}
}

func TestUpdateUnknownSubscription(t *testing.T) {
	svc := NewSubscriptionService(newFakeRepo(), nil, "MYR")

	_, err := svc.Update(context.Background(), "user-1", "ghost", validInput())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdatePublishesBumpedVersion(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewSubscriptionService(repo, pub, "MYR")
	ctx := context.Background()

	sub, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := validInput()
	in.Name = "Netflix Premium"
	if _, err := svc.Update(ctx, "user-1", sub.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}

	last := pub.published[len(pub.published)-1]
	if last.version != 2 {
		t.Errorf("published version = %d, want 2", last.version)
	}
	if repo.subs[sub.ID].Name != "Netflix Premium" {
		t.Errorf("Name = %q, want updated", repo.subs[sub.ID].Name)
	}
}

func TestUpdateRejectsForeignSubscription(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSubscriptionService(repo, nil, "MYR")
	ctx := context.Background()

	sub, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(ctx, "user-2", sub.ID, validInput()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for foreign user", err)
	}
}

func TestDeletePublishesDeletion(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewSubscriptionService(repo, pub, "MYR")
	ctx := context.Background()

	sub, err := svc.Create(ctx, "user-1", validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, "user-1", sub.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	last := pub.published[len(pub.published)-1]
	if !last.deleted {
		t.Error("delete message not flagged as deletion")
	}
	if len(repo.subs) != 0 {
		t.Error("subscription still present after delete")
	}
}

func TestNextBillingFrom(t *testing.T) {
	today := core.NewDate(2024, time.June, 10)

	tests := []struct {
		name  string
		start core.Date
		cycle core.BillingCycle
		want  string
	}{
		{"future start kept as-is", core.NewDate(2024, time.July, 1), core.Monthly, "2024-07-01"},
		{"past start rolls forward monthly", core.NewDate(2024, time.January, 15), core.Monthly, "2024-06-15"},
		{"start today advances one cycle", core.NewDate(2024, time.June, 10), core.Monthly, "2024-07-10"},
		{"past start rolls forward annually", core.NewDate(2022, time.March, 1), core.Annual, "2025-03-01"},
		{"quarterly catch-up", core.NewDate(2024, time.January, 1), core.Quarterly, "2024-07-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBillingFrom(tt.start, tt.cycle, today)
			if err != nil {
				t.Fatalf("NextBillingFrom: %v", err)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("got %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}

	t.Run("lifetime has no next date", func(t *testing.T) {
		got, err := NextBillingFrom(core.NewDate(2020, time.January, 1), core.Lifetime, today)
		if err != nil {
			t.Fatalf("NextBillingFrom: %v", err)
		}
		if !got.IsEmpty() {
			t.Errorf("got %s, want empty", got.Format("2006-01-02"))
		}
	})

	t.Run("unknown cycle errors", func(t *testing.T) {
		if _, err := NextBillingFrom(core.NewDate(2020, time.January, 1), "WEEKLY", today); !errors.Is(err, core.ErrInvalidCycle) {
			t.Errorf("error = %v, want ErrInvalidCycle", err)
		}
	})
}
