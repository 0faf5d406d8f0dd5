package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

// ParseSubscriptionForm builds a service input from a submitted form.
// Field-level problems come back as a 422 response builder; nil response
// means the input parsed cleanly (service-level validation still runs).
func ParseSubscriptionForm(form url.Values) (services.SubscriptionInput, *HTMXResponseBuilder) {
	var in services.SubscriptionInput

	in.Name = sanitizeInput(form.Get("name"))
	in.Description = sanitizeInput(form.Get("description"))
	in.Currency = sanitizeInput(form.Get("currency"))
	in.Category = sanitizeInput(form.Get("category"))
	in.Website = sanitizeInput(form.Get("website"))
	in.Logo = sanitizeInput(form.Get("logo"))

	price, err := core.ParsePrice(form.Get("price"))
	if err != nil {
		return in, UnprocessableEntityError("Price must be a non-negative amount")
	}
	in.Price = price

	in.Cycle = core.BillingCycle(strings.ToUpper(sanitizeInput(form.Get("billing_cycle"))))
	if !in.Cycle.Valid() {
		return in, UnprocessableEntityError("Unknown billing cycle")
	}

	start, err := parsePageDate(sanitizeInput(form.Get("start_date")))
	if err != nil {
		return in, UnprocessableEntityError("Start date must be in YYYY-MM-DD format")
	}
	in.StartDate = start

	if v := sanitizeInput(form.Get("status")); v != "" {
		in.Status = core.Status(strings.ToUpper(v))
		if !in.Status.Valid() {
			return in, UnprocessableEntityError("Unknown status")
		}
	}

	return in, nil
}

// subscriptionErrorResponse maps validation errors from the service to
// user-facing messages.
func subscriptionErrorResponse(err error) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return UnprocessableEntityError("Name is required")
	case errors.Is(err, core.ErrNegativePrice):
		return UnprocessableEntityError("Price cannot be negative")
	case errors.Is(err, core.ErrInvalidCurrency):
		return UnprocessableEntityError("Currency must be a 3-letter code")
	case errors.Is(err, core.ErrInvalidCycle):
		return UnprocessableEntityError("Unknown billing cycle")
	case errors.Is(err, core.ErrInvalidStatus):
		return UnprocessableEntityError("Unknown status")
	default:
		return InternalServerError("Could not save the subscription")
	}
}

// RequireMethod checks if the request method matches one of the
// expected methods; returns an error response builder otherwise.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return NewHTMXResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", strings.Join(methods, ", "))
}
