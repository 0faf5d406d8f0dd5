package http

import (
	"log/slog"
	"net/http"

	"subtrack/internal/core"
)

type dashboardPageData struct {
	Email string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	claims := sessionClaims(r.Context())
	s.renderPage(w, r, "dashboard.html", dashboardPageData{Email: claims.Email})
}

type upcomingRow struct {
	Name   string
	Due    string
	Amount string
}

type categoryRow struct {
	Name    string
	Amount  string
	Percent string
	// Width scales the category bar relative to the largest category.
	Width int
}

type metricsView struct {
	ActiveCount   int
	MonthlyTotal  string
	AnnualTotal   string
	LifetimeTotal string
	UpcomingTotal string
	Upcoming      []upcomingRow
	Categories    []categoryRow
}

func (s *Server) handleMetricsPartial(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	m, err := s.userMetrics(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard metrics error", "error", err, "user_id", userID)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<section id="dashboard-metrics"><div class="placeholder">Could not load your dashboard</div></section>`))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "metrics_overview.html", s.buildMetricsView(m))
}

func (s *Server) buildMetricsView(m core.Metrics) metricsView {
	view := metricsView{
		ActiveCount:   m.ActiveCount,
		MonthlyTotal:  formatMoney(m.MonthlyTotal, s.currency),
		AnnualTotal:   formatMoney(m.AnnualTotal, s.currency),
		LifetimeTotal: formatMoney(m.LifetimeTotal, s.currency),
		UpcomingTotal: formatMoney(m.UpcomingTotal, s.currency),
	}

	for _, sub := range m.Upcoming {
		view.Upcoming = append(view.Upcoming, upcomingRow{
			Name:   sub.Name,
			Due:    formatDate(sub.NextBillingDate),
			Amount: formatMoney(sub.Price, sub.Currency),
		})
	}

	// Bars scale against the biggest category; percentages are shares of
	// the monthly total.
	maxAmount := m.MonthlyTotal
	if len(m.ByCategory) > 0 {
		maxAmount = m.ByCategory[0].Amount
	}
	for _, cat := range m.ByCategory {
		width := 0
		if maxAmount.IsPositive() && cat.Amount.IsPositive() {
			width = int(cat.Amount.Div(maxAmount).Mul(hundred).Round(0).IntPart())
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		view.Categories = append(view.Categories, categoryRow{
			Name:    cat.Category,
			Amount:  formatMoney(cat.Amount, s.currency),
			Percent: cat.Percentage.StringFixed(1) + "%",
			Width:   width,
		})
	}
	return view
}
