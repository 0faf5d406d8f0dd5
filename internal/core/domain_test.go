package core

import (
	"errors"
	"testing"
)

func validSub() Subscription {
	return Subscription{
		ID:              "sub-1",
		UserID:          "u1",
		Name:            "Netflix",
		Price:           dec("15.99"),
		Currency:        "MYR",
		Cycle:           Monthly,
		StartDate:       NewDate(2024, 1, 15),
		NextBillingDate: NewDate(2024, 2, 15),
		Category:        "Entertainment",
		Status:          StatusActive,
	}
}

func TestSubscription_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Subscription)
		wantErr error
	}{
		{
			name:    "valid subscription",
			mutate:  func(s *Subscription) {},
			wantErr: nil,
		},
		{
			name:    "empty name",
			mutate:  func(s *Subscription) { s.Name = "  " },
			wantErr: ErrEmptyName,
		},
		{
			name:    "negative price",
			mutate:  func(s *Subscription) { s.Price = dec("-1") },
			wantErr: ErrNegativePrice,
		},
		{
			name:    "zero price is allowed",
			mutate:  func(s *Subscription) { s.Price = dec("0") },
			wantErr: nil,
		},
		{
			name:    "bad currency code",
			mutate:  func(s *Subscription) { s.Currency = "EURO" },
			wantErr: ErrInvalidCurrency,
		},
		{
			name:    "unknown cycle",
			mutate:  func(s *Subscription) { s.Cycle = "WEEKLY" },
			wantErr: ErrInvalidCycle,
		},
		{
			name:    "unknown status",
			mutate:  func(s *Subscription) { s.Status = "EXPIRED" },
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "recurring cycle without next billing date",
			mutate:  func(s *Subscription) { s.NextBillingDate = Date{} },
			wantErr: ErrMissingNextDate,
		},
		{
			name: "lifetime with next billing date",
			mutate: func(s *Subscription) {
				s.Cycle = Lifetime
			},
			wantErr: ErrLifetimeHasNext,
		},
		{
			name: "lifetime without next billing date is valid",
			mutate: func(s *Subscription) {
				s.Cycle = Lifetime
				s.NextBillingDate = Date{}
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSub()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	s := validSub()
	if got := s.CategoryLabel(); got != "Entertainment" {
		t.Errorf("CategoryLabel() = %q, want Entertainment", got)
	}
	s.Category = ""
	if got := s.CategoryLabel(); got != DefaultCategory {
		t.Errorf("CategoryLabel() = %q, want %q", got, DefaultCategory)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"15.99", "15.99", true},
		{"15,99", "15.99", true},
		{" 120 ", "120", true},
		{"0", "0", true},
		{"9.995", "10", true}, // half-up on the third decimal
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(dec(tc.out)) {
				t.Errorf("%q: got %s (err=%v), want %s", tc.in, got, err, tc.out)
			}
		} else if err == nil {
			t.Errorf("%q: expected error", tc.in)
		}
	}
}
