// Package core holds the subscription domain model together with the two
// pure pieces of business logic the product is built around: billing-cycle
// date arithmetic and spend aggregation. Nothing in here performs I/O.
package core

import "fmt"

// cycleMonths maps each recurring cycle to its offset in calendar months.
// Annual is handled as twelve months; Custom falls back to monthly until
// user-defined intervals exist.
var cycleMonths = map[BillingCycle]int{
	Monthly:   1,
	Quarterly: 3,
	Biannual:  6,
	Annual:    12,
	Custom:    1,
}

// NextBillingDate advances ref by one cycle offset. For Lifetime the
// returned date is empty: a one-time purchase never produces a next charge.
// An unrecognized cycle is a configuration fault and returns an error
// rather than a silently wrong date.
//
// Month arithmetic follows time.AddDate overflow normalization, so
// 2024-01-31 advanced by one month yields 2024-03-02.
func NextBillingDate(ref Date, cycle BillingCycle) (Date, error) {
	if cycle == Lifetime {
		return Date{}, nil
	}
	months, ok := cycleMonths[cycle]
	if !ok {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
	}
	return Date{Time: ref.AddDate(0, months, 0)}, nil
}

// ProjectFutureDates returns count successive billing dates strictly after
// start; the i-th date is start advanced by i+1 cycle offsets. Lifetime
// cycles and count == 0 yield an empty sequence.
func ProjectFutureDates(start Date, cycle BillingCycle, count int) ([]Date, error) {
	if count < 0 {
		return nil, fmt.Errorf("count must be non-negative, got %d", count)
	}
	if cycle == Lifetime || count == 0 {
		if !cycle.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
		}
		return nil, nil
	}
	months, ok := cycleMonths[cycle]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
	}

	dates := make([]Date, count)
	for i := 0; i < count; i++ {
		// Each date is computed from the original start so a short month
		// does not shift every following occurrence.
		dates[i] = Date{Time: start.AddDate(0, months*(i+1), 0)}
	}
	return dates, nil
}
