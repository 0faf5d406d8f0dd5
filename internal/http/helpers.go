package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
)

var hundred = decimal.NewFromInt(100)

// templateFuncs are available inside all templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":     formatMoney,
		"date":      formatDate,
		"cycleName": cycleName,
	}
}

// formatMoney renders an amount with its currency code, e.g. "MYR 15.99".
func formatMoney(amount decimal.Decimal, currency string) string {
	return currency + " " + amount.StringFixed(2)
}

func formatDate(d core.Date) string {
	if d.IsEmpty() {
		return "—"
	}
	return d.Format("2 Jan 2006")
}

var cycleLabels = map[core.BillingCycle]string{
	core.Monthly:   "Monthly",
	core.Quarterly: "Quarterly",
	core.Biannual:  "Every 6 months",
	core.Annual:    "Annual",
	core.Lifetime:  "One-time",
	core.Custom:    "Custom",
}

func cycleName(c core.BillingCycle) string {
	if label, ok := cycleLabels[c]; ok {
		return label
	}
	return string(c)
}

// parsePageDate parses a form date in YYYY-MM-DD format.
func parsePageDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: parsedTime}, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// renderPage executes a full-page template with a 200 status.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, name, data)
}

// render executes a template without touching the status code, so
// callers can set an error status first.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed",
			"error", err, "template", name)
	}
}
