package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly   BillingCycle = "MONTHLY"
	Quarterly BillingCycle = "QUARTERLY"
	Biannual  BillingCycle = "BIANNUAL"
	Annual    BillingCycle = "ANNUAL"
	Lifetime  BillingCycle = "LIFETIME"
	Custom    BillingCycle = "CUSTOM"
)

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusCanceled Status = "CANCELED"
	StatusTrial    Status = "TRIAL"
)

// DefaultCategory is used when a subscription carries no category label.
const DefaultCategory = "Other"

type (
	// BillingCycle is the recurrence interval of a subscription charge.
	// Lifetime marks a one-time purchase with no recurrence.
	BillingCycle string

	// Status is the lifecycle state of a subscription. Only Active
	// records participate in spend aggregation.
	Status string

	Date struct {
		time.Time
	}

	Subscription struct {
		ID          string
		UserID      string
		Name        string
		Description string
		Price       decimal.Decimal
		Currency    string // ISO-like 3-letter code
		Cycle       BillingCycle
		StartDate   Date
		// NextBillingDate is empty if and only if Cycle == Lifetime.
		NextBillingDate Date
		Category        string
		Website         string
		Logo            string
		Status          Status
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
	ErrInvalidCycle    = errors.New("invalid billing cycle")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrMissingNextDate = errors.New("next billing date required for recurring cycles")
	ErrLifetimeHasNext = errors.New("one-time purchase must not carry a next billing date")
)

// Valid reports whether bc is one of the closed set of billing cycles.
func (bc BillingCycle) Valid() bool {
	switch bc {
	case Monthly, Quarterly, Biannual, Annual, Lifetime, Custom:
		return true
	}
	return false
}

// Recurring reports whether the cycle produces future charges.
func (bc BillingCycle) Recurring() bool {
	return bc.Valid() && bc != Lifetime
}

// BillingCycles returns the closed set of cycles in display order.
func BillingCycles() []BillingCycle {
	return []BillingCycle{Monthly, Quarterly, Biannual, Annual, Lifetime, Custom}
}

// Statuses returns the closed set of statuses in display order.
func Statuses() []Status {
	return []Status{StatusActive, StatusTrial, StatusPaused, StatusCanceled}
}

// Valid reports whether st is one of the closed set of statuses.
func (st Status) Valid() bool {
	switch st {
	case StatusActive, StatusPaused, StatusCanceled, StatusTrial:
		return true
	}
	return false
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// IsEmpty returns true for the zero date, used to represent an absent
// next billing date on one-time purchases.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// CategoryLabel normalizes a category label, substituting
// DefaultCategory when none is set.
func CategoryLabel(label string) string {
	if strings.TrimSpace(label) == "" {
		return DefaultCategory
	}
	return label
}

// CategoryLabel returns the subscription's category, or DefaultCategory
// when none is set.
func (s Subscription) CategoryLabel() string {
	return CategoryLabel(s.Category)
}

// Validate checks the record-level invariants. Aggregation assumes
// records have passed through here; it does not re-check them.
func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if s.Price.IsNegative() {
		return ErrNegativePrice
	}
	if len(s.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if !s.Cycle.Valid() {
		return ErrInvalidCycle
	}
	if !s.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	// A next billing date is present exactly when the cycle recurs.
	if s.Cycle == Lifetime {
		if !s.NextBillingDate.IsEmpty() {
			return ErrLifetimeHasNext
		}
	} else if s.NextBillingDate.IsEmpty() {
		return ErrMissingNextDate
	}
	return nil
}

// wellFormed is the aggregation-time variant of the Lifetime/next-date
// and price invariants. Records failing it are skipped deterministically
// rather than summed; see ComputeMetrics.
func (s Subscription) wellFormed() bool {
	if s.Price.IsNegative() || !s.Cycle.Valid() {
		return false
	}
	if s.Cycle == Lifetime {
		return s.NextBillingDate.IsEmpty()
	}
	return !s.NextBillingDate.IsEmpty()
}
