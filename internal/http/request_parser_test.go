package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"subtrack/internal/core"
)

func validForm() url.Values {
	return url.Values{
		"name":          {"Netflix"},
		"price":         {"15.99"},
		"currency":      {"myr"},
		"billing_cycle": {"monthly"},
		"start_date":    {"2024-01-15"},
		"category":      {"Entertainment"},
	}
}

func TestParseSubscriptionForm(t *testing.T) {
	in, resp := ParseSubscriptionForm(validForm())
	if resp != nil {
		t.Fatal("valid form rejected")
	}

	if in.Name != "Netflix" {
		t.Errorf("Name = %q", in.Name)
	}
	if in.Price.String() != "15.99" {
		t.Errorf("Price = %s", in.Price)
	}
	if in.Cycle != core.Monthly {
		t.Errorf("Cycle = %q", in.Cycle)
	}
	if got := in.StartDate.Format("2006-01-02"); got != "2024-01-15" {
		t.Errorf("StartDate = %s", got)
	}
}

func TestParseSubscriptionFormRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"negative price", func(f url.Values) { f.Set("price", "-5") }},
		{"garbage price", func(f url.Values) { f.Set("price", "abc") }},
		{"unknown cycle", func(f url.Values) { f.Set("billing_cycle", "WEEKLY") }},
		{"bad date", func(f url.Values) { f.Set("start_date", "15/01/2024") }},
		{"unknown status", func(f url.Values) { f.Set("status", "DORMANT") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			_, resp := ParseSubscriptionForm(form)
			if resp == nil {
				t.Fatal("invalid form accepted")
			}
			rec := httptest.NewRecorder()
			resp.Write(rec)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestParseSubscriptionFormOptionalStatus(t *testing.T) {
	form := validForm()
	form.Set("status", "paused")

	in, resp := ParseSubscriptionForm(form)
	if resp != nil {
		t.Fatal("form with lowercase status rejected")
	}
	if in.Status != core.StatusPaused {
		t.Errorf("Status = %q, want %q", in.Status, core.StatusPaused)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Netflix  ", "Netflix"},
		{"Net\x00flix", "Netflix"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoneyAndDate(t *testing.T) {
	in, _ := ParseSubscriptionForm(validForm())
	if got := formatMoney(in.Price, "MYR"); got != "MYR 15.99" {
		t.Errorf("formatMoney = %q", got)
	}

	if got := formatDate(core.Date{}); got != "—" {
		t.Errorf("empty date = %q", got)
	}
	if got := formatDate(core.NewDate(2024, 1, 15)); got != "15 Jan 2024" {
		t.Errorf("formatDate = %q", got)
	}
}
