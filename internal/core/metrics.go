package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// UpcomingWindowDays is the look-ahead period used to flag imminent charges.
const UpcomingWindowDays = 30

type (
	// CategorySpend is one bucket of the category breakdown: the
	// monthly-equivalent spend carrying that category label and its share
	// of the recurring monthly total.
	CategorySpend struct {
		Category   string
		Amount     decimal.Decimal
		Percentage decimal.Decimal
	}

	// Metrics is the dashboard-ready reduction of a user's subscriptions.
	Metrics struct {
		ActiveCount   int
		MonthlyTotal  decimal.Decimal
		AnnualTotal   decimal.Decimal
		LifetimeTotal decimal.Decimal

		// Upcoming holds active recurring subscriptions charging within
		// the next UpcomingWindowDays days, ascending by next billing date.
		Upcoming      []Subscription
		UpcomingTotal decimal.Decimal

		// ByCategory is sorted descending by amount.
		ByCategory []CategorySpend
	}
)

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// monthlyDivisors normalizes each recurring cycle's price to a per-month
// rate. Custom is treated as already monthly, matching its fallback offset.
var monthlyDivisors = map[BillingCycle]decimal.Decimal{
	Monthly:   decimal.NewFromInt(1),
	Quarterly: decimal.NewFromInt(3),
	Biannual:  decimal.NewFromInt(6),
	Annual:    twelve,
	Custom:    decimal.NewFromInt(1),
}

// MonthlyEquivalent normalizes a subscription's price to a per-month rate
// for cross-cycle comparison. Lifetime purchases contribute zero to
// recurring totals; they are tracked separately by ComputeMetrics.
func MonthlyEquivalent(s Subscription) decimal.Decimal {
	div, ok := monthlyDivisors[s.Cycle]
	if !ok {
		return decimal.Zero
	}
	return s.Price.Div(div)
}

// ComputeMetrics reduces a snapshot of subscriptions into dashboard
// metrics. It is pure: now is passed explicitly and the input is never
// mutated, so two calls on the same snapshot yield identical output.
//
// Only Active records participate. Records violating the price or
// Lifetime/next-date invariants should have been rejected upstream; if one
// reaches here it is skipped deterministically so a data-integrity fault
// can never corrupt the totals.
func ComputeMetrics(subs []Subscription, now time.Time) Metrics {
	m := Metrics{
		MonthlyTotal:  decimal.Zero,
		AnnualTotal:   decimal.Zero,
		LifetimeTotal: decimal.Zero,
		UpcomingTotal: decimal.Zero,
	}

	windowStart := DateOf(now)
	windowEnd := Date{Time: windowStart.AddDate(0, 0, UpcomingWindowDays)}

	byCategory := make(map[string]decimal.Decimal)

	for _, s := range subs {
		if s.Status != StatusActive {
			continue
		}
		if !s.wellFormed() {
			continue
		}
		m.ActiveCount++

		if s.Cycle == Lifetime {
			m.LifetimeTotal = m.LifetimeTotal.Add(s.Price)
			continue
		}

		equiv := MonthlyEquivalent(s)
		m.MonthlyTotal = m.MonthlyTotal.Add(equiv)

		label := s.CategoryLabel()
		byCategory[label] = byCategory[label].Add(equiv)

		next := s.NextBillingDate
		if !next.Before(windowStart.Time) && !next.After(windowEnd.Time) {
			m.Upcoming = append(m.Upcoming, s)
			// The raw charge amount, not the monthly equivalent: this is
			// what will actually leave the account.
			m.UpcomingTotal = m.UpcomingTotal.Add(s.Price)
		}
	}

	m.AnnualTotal = m.MonthlyTotal.Mul(twelve)

	sort.SliceStable(m.Upcoming, func(i, j int) bool {
		return m.Upcoming[i].NextBillingDate.Before(m.Upcoming[j].NextBillingDate.Time)
	})

	m.ByCategory = make([]CategorySpend, 0, len(byCategory))
	for label, amount := range byCategory {
		pct := decimal.Zero
		if m.MonthlyTotal.IsPositive() {
			pct = amount.Div(m.MonthlyTotal).Mul(hundred)
		}
		m.ByCategory = append(m.ByCategory, CategorySpend{
			Category:   label,
			Amount:     amount,
			Percentage: pct,
		})
	}
	sort.SliceStable(m.ByCategory, func(i, j int) bool {
		if !m.ByCategory[i].Amount.Equal(m.ByCategory[j].Amount) {
			return m.ByCategory[i].Amount.GreaterThan(m.ByCategory[j].Amount)
		}
		return m.ByCategory[i].Category < m.ByCategory[j].Category
	})

	return m
}
