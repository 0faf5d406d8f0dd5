package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func activeSub(name, price string, cycle BillingCycle, category string) Subscription {
	s := Subscription{
		ID:        name,
		UserID:    "u1",
		Name:      name,
		Price:     dec(price),
		Currency:  "MYR",
		Cycle:     cycle,
		StartDate: NewDate(2024, 1, 1),
		Category:  category,
		Status:    StatusActive,
	}
	if cycle != Lifetime {
		s.NextBillingDate = NewDate(2024, 7, 1)
	}
	return s
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name  string
		price string
		cycle BillingCycle
		want  string
	}{
		{"monthly is the price itself", "15.99", Monthly, "15.99"},
		{"quarterly divides by three", "30", Quarterly, "10"},
		{"biannual divides by six", "60", Biannual, "10"},
		{"annual divides by twelve", "120", Annual, "10"},
		{"custom treated as monthly", "9.99", Custom, "9.99"},
		{"lifetime contributes nothing", "199", Lifetime, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyEquivalent(activeSub("s", tt.price, tt.cycle, ""))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("MonthlyEquivalent() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMonthlyEquivalent_LinearInPrice(t *testing.T) {
	for _, cycle := range []BillingCycle{Monthly, Quarterly, Biannual, Annual, Custom} {
		single := MonthlyEquivalent(activeSub("s", "7.77", cycle, ""))
		double := MonthlyEquivalent(activeSub("s", "15.54", cycle, ""))
		if !double.Equal(single.Mul(decimal.NewFromInt(2))) {
			t.Errorf("%s: doubling the price did not double the equivalent: %s vs %s",
				cycle, single, double)
		}
	}
}

func TestComputeMetrics_SingleMonthly(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{activeSub("Netflix", "15.99", Monthly, "Entertainment")}, now)

	if !m.MonthlyTotal.Equal(dec("15.99")) {
		t.Errorf("MonthlyTotal = %s, want 15.99", m.MonthlyTotal)
	}
	if !m.AnnualTotal.Equal(dec("191.88")) {
		t.Errorf("AnnualTotal = %s, want 191.88", m.AnnualTotal)
	}
	if m.ActiveCount != 1 {
		t.Errorf("ActiveCount = %d, want 1", m.ActiveCount)
	}
}

func TestComputeMetrics_SingleAnnual(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{activeSub("Domain", "120", Annual, "Software")}, now)

	if !m.MonthlyTotal.Equal(dec("10")) {
		t.Errorf("MonthlyTotal = %s, want 10", m.MonthlyTotal)
	}
	if !m.AnnualTotal.Equal(dec("120")) {
		t.Errorf("AnnualTotal = %s, want 120", m.AnnualTotal)
	}
}

func TestComputeMetrics_LifetimeTrackedSeparately(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{
		activeSub("Spotify", "9.99", Monthly, "Entertainment"),
		activeSub("Affinity", "199", Lifetime, "Software"),
	}, now)

	if !m.MonthlyTotal.Equal(dec("9.99")) {
		t.Errorf("MonthlyTotal = %s, want 9.99 (lifetime must not contribute)", m.MonthlyTotal)
	}
	if !m.AnnualTotal.Equal(dec("119.88")) {
		t.Errorf("AnnualTotal = %s, want 119.88", m.AnnualTotal)
	}
	if !m.LifetimeTotal.Equal(dec("199")) {
		t.Errorf("LifetimeTotal = %s, want 199", m.LifetimeTotal)
	}
}

func TestComputeMetrics_ExcludesNonActive(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	base := []Subscription{activeSub("Netflix", "15.99", Monthly, "Entertainment")}
	before := ComputeMetrics(base, now)

	for _, status := range []Status{StatusPaused, StatusCanceled, StatusTrial} {
		extra := activeSub("Gym", "500", Monthly, "Fitness")
		extra.Status = status
		after := ComputeMetrics(append(base, extra), now)
		if !after.MonthlyTotal.Equal(before.MonthlyTotal) {
			t.Errorf("%s record changed MonthlyTotal: %s vs %s",
				status, after.MonthlyTotal, before.MonthlyTotal)
		}
		if len(after.Upcoming) != len(before.Upcoming) {
			t.Errorf("%s record appeared in upcoming window", status)
		}
	}
}

func TestComputeMetrics_UpcomingWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC)

	within := func(name, price string, next Date) Subscription {
		s := activeSub(name, price, Monthly, "")
		s.NextBillingDate = next
		return s
	}

	subs := []Subscription{
		within("due today", "5", NewDate(2024, 6, 15)),
		within("due on window edge", "7", NewDate(2024, 7, 15)),
		within("due past window", "11", NewDate(2024, 7, 16)),
		within("due soon", "3", NewDate(2024, 6, 20)),
	}

	m := ComputeMetrics(subs, now)

	if len(m.Upcoming) != 3 {
		t.Fatalf("got %d upcoming, want 3", len(m.Upcoming))
	}
	wantOrder := []string{"due today", "due soon", "due on window edge"}
	for i, name := range wantOrder {
		if m.Upcoming[i].Name != name {
			t.Errorf("upcoming[%d] = %q, want %q", i, m.Upcoming[i].Name, name)
		}
	}
	// Raw charge amounts, not monthly equivalents.
	if !m.UpcomingTotal.Equal(dec("15")) {
		t.Errorf("UpcomingTotal = %s, want 15", m.UpcomingTotal)
	}
}

func TestComputeMetrics_CategoryBreakdown(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{
		activeSub("Netflix", "20", Monthly, "Entertainment"),
		activeSub("Notion", "120", Annual, "Productivity"),
	}, now)

	if len(m.ByCategory) != 2 {
		t.Fatalf("got %d categories, want 2", len(m.ByCategory))
	}
	if m.ByCategory[0].Category != "Entertainment" || !m.ByCategory[0].Amount.Equal(dec("20")) {
		t.Errorf("first bucket = %s/%s, want Entertainment/20",
			m.ByCategory[0].Category, m.ByCategory[0].Amount)
	}
	if m.ByCategory[1].Category != "Productivity" || !m.ByCategory[1].Amount.Equal(dec("10")) {
		t.Errorf("second bucket = %s/%s, want Productivity/10",
			m.ByCategory[1].Category, m.ByCategory[1].Amount)
	}

	// 20/30 and 10/30 of the total.
	if m.ByCategory[0].Percentage.Sub(dec("66.7")).Abs().GreaterThan(dec("0.05")) {
		t.Errorf("Entertainment percentage = %s, want ~66.7", m.ByCategory[0].Percentage)
	}
	if m.ByCategory[1].Percentage.Sub(dec("33.3")).Abs().GreaterThan(dec("0.05")) {
		t.Errorf("Productivity percentage = %s, want ~33.3", m.ByCategory[1].Percentage)
	}
}

func TestComputeMetrics_PercentagesSumToHundred(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{
		activeSub("a", "7.77", Monthly, "A"),
		activeSub("b", "13.50", Quarterly, "B"),
		activeSub("c", "99.99", Annual, "C"),
		activeSub("d", "4.20", Monthly, ""),
	}, now)

	sum := decimal.Zero
	for _, b := range m.ByCategory {
		sum = sum.Add(b.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(dec("0.0001")) {
		t.Errorf("percentages sum to %s, want 100", sum)
	}
}

func TestComputeMetrics_ZeroTotalZeroPercentages(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{
		activeSub("free tier", "0", Monthly, "Software"),
	}, now)

	if !m.MonthlyTotal.IsZero() {
		t.Fatalf("MonthlyTotal = %s, want 0", m.MonthlyTotal)
	}
	for _, b := range m.ByCategory {
		if !b.Percentage.IsZero() {
			t.Errorf("category %s percentage = %s, want 0", b.Category, b.Percentage)
		}
	}
}

func TestComputeMetrics_UncategorizedGroupedAsOther(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m := ComputeMetrics([]Subscription{
		activeSub("a", "5", Monthly, ""),
		activeSub("b", "5", Monthly, "  "),
	}, now)

	if len(m.ByCategory) != 1 {
		t.Fatalf("got %d categories, want 1", len(m.ByCategory))
	}
	if m.ByCategory[0].Category != DefaultCategory {
		t.Errorf("category = %q, want %q", m.ByCategory[0].Category, DefaultCategory)
	}
	if !m.ByCategory[0].Amount.Equal(dec("10")) {
		t.Errorf("Other amount = %s, want 10", m.ByCategory[0].Amount)
	}
}

func TestComputeMetrics_SkipsMalformedRecords(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	negative := activeSub("broken price", "1", Monthly, "")
	negative.Price = dec("-10")

	missingNext := activeSub("broken date", "10", Monthly, "")
	missingNext.NextBillingDate = Date{}

	lifetimeWithNext := activeSub("broken lifetime", "10", Lifetime, "")
	lifetimeWithNext.NextBillingDate = NewDate(2024, 7, 1)

	m := ComputeMetrics([]Subscription{
		activeSub("ok", "5", Monthly, ""),
		negative, missingNext, lifetimeWithNext,
	}, now)

	if !m.MonthlyTotal.Equal(dec("5")) {
		t.Errorf("MonthlyTotal = %s, want 5 (malformed records must be skipped)", m.MonthlyTotal)
	}
	if !m.LifetimeTotal.IsZero() {
		t.Errorf("LifetimeTotal = %s, want 0", m.LifetimeTotal)
	}
	if m.ActiveCount != 1 {
		t.Errorf("ActiveCount = %d, want 1", m.ActiveCount)
	}
}

func TestComputeMetrics_Idempotent(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	subs := []Subscription{
		activeSub("Netflix", "15.99", Monthly, "Entertainment"),
		activeSub("Notion", "120", Annual, "Productivity"),
		activeSub("Affinity", "199", Lifetime, "Software"),
	}

	first := ComputeMetrics(subs, now)
	second := ComputeMetrics(subs, now)

	if !first.MonthlyTotal.Equal(second.MonthlyTotal) ||
		!first.AnnualTotal.Equal(second.AnnualTotal) ||
		!first.LifetimeTotal.Equal(second.LifetimeTotal) ||
		!first.UpcomingTotal.Equal(second.UpcomingTotal) {
		t.Error("repeated aggregation produced different totals")
	}
	if len(first.ByCategory) != len(second.ByCategory) {
		t.Fatal("repeated aggregation produced different breakdowns")
	}
	for i := range first.ByCategory {
		a, b := first.ByCategory[i], second.ByCategory[i]
		if a.Category != b.Category || !a.Amount.Equal(b.Amount) || !a.Percentage.Equal(b.Percentage) {
			t.Errorf("breakdown[%d] differs between runs", i)
		}
	}
}
