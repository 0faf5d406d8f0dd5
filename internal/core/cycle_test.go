package core

import (
	"errors"
	"testing"
)

func TestNextBillingDate(t *testing.T) {
	tests := []struct {
		name  string
		ref   Date
		cycle BillingCycle
		want  Date
	}{
		{
			name:  "monthly advances one month",
			ref:   NewDate(2024, 3, 15),
			cycle: Monthly,
			want:  NewDate(2024, 4, 15),
		},
		{
			name:  "quarterly advances three months",
			ref:   NewDate(2024, 3, 15),
			cycle: Quarterly,
			want:  NewDate(2024, 6, 15),
		},
		{
			name:  "biannual advances six months",
			ref:   NewDate(2024, 3, 15),
			cycle: Biannual,
			want:  NewDate(2024, 9, 15),
		},
		{
			name:  "annual advances one year",
			ref:   NewDate(2024, 3, 15),
			cycle: Annual,
			want:  NewDate(2025, 3, 15),
		},
		{
			name:  "annual on leap day normalizes to march 1",
			ref:   NewDate(2024, 2, 29),
			cycle: Annual,
			want:  NewDate(2025, 3, 1),
		},
		{
			name:  "custom falls back to one month",
			ref:   NewDate(2024, 3, 15),
			cycle: Custom,
			want:  NewDate(2024, 4, 15),
		},
		{
			// time.AddDate month-overflow rule: Jan 31 + 1 month is the
			// normalized Feb 31, i.e. Mar 2 in a leap year.
			name:  "monthly from jan 31 overflows into march",
			ref:   NewDate(2024, 1, 31),
			cycle: Monthly,
			want:  NewDate(2024, 3, 2),
		},
		{
			name:  "monthly from jan 31 non-leap year",
			ref:   NewDate(2023, 1, 31),
			cycle: Monthly,
			want:  NewDate(2023, 3, 3),
		},
		{
			name:  "quarterly from nov 30 crosses year boundary",
			ref:   NewDate(2024, 11, 30),
			cycle: Quarterly,
			want:  NewDate(2025, 3, 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBillingDate(tt.ref, tt.cycle)
			if err != nil {
				t.Fatalf("NextBillingDate() error = %v", err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("NextBillingDate() = %s, want %s",
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextBillingDate_Lifetime(t *testing.T) {
	got, err := NextBillingDate(NewDate(2024, 1, 31), Lifetime)
	if err != nil {
		t.Fatalf("NextBillingDate() error = %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("lifetime purchase produced a next billing date: %s", got.Format("2006-01-02"))
	}
}

func TestNextBillingDate_UnknownCycle(t *testing.T) {
	_, err := NextBillingDate(NewDate(2024, 1, 1), BillingCycle("WEEKLY"))
	if err == nil {
		t.Fatal("expected error for unknown cycle")
	}
	if !errors.Is(err, ErrInvalidCycle) {
		t.Errorf("error = %v, want ErrInvalidCycle", err)
	}
}

func TestNextBillingDate_Deterministic(t *testing.T) {
	ref := NewDate(2024, 5, 17)
	first, err := NextBillingDate(ref, Quarterly)
	if err != nil {
		t.Fatalf("NextBillingDate() error = %v", err)
	}
	second, err := NextBillingDate(ref, Quarterly)
	if err != nil {
		t.Fatalf("NextBillingDate() error = %v", err)
	}
	if !first.Equal(second.Time) {
		t.Errorf("same inputs produced different dates: %s vs %s",
			first.Format("2006-01-02"), second.Format("2006-01-02"))
	}
}

func TestProjectFutureDates(t *testing.T) {
	tests := []struct {
		name  string
		start Date
		cycle BillingCycle
		count int
		want  []Date
	}{
		{
			name:  "three monthly dates",
			start: NewDate(2024, 1, 15),
			cycle: Monthly,
			count: 3,
			want:  []Date{NewDate(2024, 2, 15), NewDate(2024, 3, 15), NewDate(2024, 4, 15)},
		},
		{
			name:  "two annual dates",
			start: NewDate(2024, 6, 1),
			cycle: Annual,
			count: 2,
			want:  []Date{NewDate(2025, 6, 1), NewDate(2026, 6, 1)},
		},
		{
			// Each date is offset from the original start, so only the
			// overflowing occurrence shifts; the next lands back on the 31st.
			name:  "monthly from jan 31 keeps anchor day",
			start: NewDate(2024, 1, 31),
			cycle: Monthly,
			count: 2,
			want:  []Date{NewDate(2024, 3, 2), NewDate(2024, 3, 31)},
		},
		{
			name:  "zero count yields empty sequence",
			start: NewDate(2024, 1, 15),
			cycle: Monthly,
			count: 0,
			want:  nil,
		},
		{
			name:  "lifetime yields empty sequence regardless of count",
			start: NewDate(2024, 1, 15),
			cycle: Lifetime,
			count: 5,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProjectFutureDates(tt.start, tt.cycle, tt.count)
			if err != nil {
				t.Fatalf("ProjectFutureDates() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d dates, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i].Time) {
					t.Errorf("date[%d] = %s, want %s",
						i, got[i].Format("2006-01-02"), tt.want[i].Format("2006-01-02"))
				}
			}
		})
	}
}

func TestProjectFutureDates_StrictlyIncreasing(t *testing.T) {
	for _, cycle := range []BillingCycle{Monthly, Quarterly, Biannual, Annual, Custom} {
		t.Run(string(cycle), func(t *testing.T) {
			start := NewDate(2024, 1, 31)
			dates, err := ProjectFutureDates(start, cycle, 12)
			if err != nil {
				t.Fatalf("ProjectFutureDates() error = %v", err)
			}
			if len(dates) != 12 {
				t.Fatalf("got %d dates, want 12", len(dates))
			}
			prev := start
			for i, d := range dates {
				if !d.After(prev.Time) {
					t.Errorf("date[%d] = %s not after %s",
						i, d.Format("2006-01-02"), prev.Format("2006-01-02"))
				}
				prev = d
			}
		})
	}
}

func TestProjectFutureDates_NegativeCount(t *testing.T) {
	if _, err := ProjectFutureDates(NewDate(2024, 1, 1), Monthly, -1); err == nil {
		t.Fatal("expected error for negative count")
	}
}
