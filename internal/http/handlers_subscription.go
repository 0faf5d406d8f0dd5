package http

import (
	"errors"
	"log/slog"
	"net/http"

	"subtrack/internal/core"
	"subtrack/internal/storage"
)

type subscriptionsPageData struct {
	Email               string
	Categories          []string
	SuggestedCategories []string
	Cycles              []core.BillingCycle
	Statuses            []core.Status
	Currency            string
}

func (s *Server) handleSubscriptionsPage(w http.ResponseWriter, r *http.Request) {
	claims := sessionClaims(r.Context())

	categories, err := s.subs.Categories(r.Context(), claims.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load categories", "error", err, "user_id", claims.UserID)
	}

	s.renderPage(w, r, "subscriptions.html", subscriptionsPageData{
		Email:               claims.Email,
		Categories:          formCategories(categories),
		SuggestedCategories: core.SuggestedCategories(),
		Cycles:              core.BillingCycles(),
		Statuses:            core.Statuses(),
		Currency:            s.currency,
	})
}

// formCategories merges the fixed category catalog with the labels the
// user has already applied, catalog entries first.
func formCategories(userCategories []string) []string {
	fixed := core.SuggestedCategories()
	seen := make(map[string]bool, len(fixed))
	for _, c := range fixed {
		seen[c] = true
	}
	for _, c := range userCategories {
		if !seen[c] {
			seen[c] = true
			fixed = append(fixed, c)
		}
	}
	return fixed
}

type subscriptionRow struct {
	ID       string
	Name     string
	Price    string
	Cycle    string
	NextDue  string
	Category string
	Website  string
	Status   string
	Inactive bool
}

type subscriptionListData struct {
	Rows  []subscriptionRow
	Empty bool
}

func (s *Server) handleSubscriptionListPartial(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	filter := storage.ListFilter{
		Category: sanitizeInput(r.URL.Query().Get("category")),
	}
	if v := sanitizeInput(r.URL.Query().Get("status")); v != "" {
		status := core.Status(v)
		if status.Valid() {
			filter.Status = status
		}
	}

	subs, err := s.subs.List(r.Context(), userID, filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list subscriptions", "error", err, "user_id", userID)
		InternalServerError("Could not load subscriptions").Write(w)
		return
	}

	data := subscriptionListData{Empty: len(subs) == 0}
	for _, sub := range subs {
		data.Rows = append(data.Rows, subscriptionRow{
			ID:       sub.ID,
			Name:     sub.Name,
			Price:    formatMoney(sub.Price, sub.Currency),
			Cycle:    cycleName(sub.Cycle),
			NextDue:  formatDate(sub.NextBillingDate),
			Category: sub.CategoryLabel(),
			Website:  sub.Website,
			Status:   string(sub.Status),
			Inactive: sub.Status != core.StatusActive,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "subscription_list.html", data)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	userID := currentUserID(r.Context())

	in, resp := ParseSubscriptionForm(r.Form)
	if resp != nil {
		resp.Write(w)
		return
	}

	sub, err := s.subs.Create(r.Context(), userID, in)
	if err != nil {
		subscriptionErrorResponse(err).Write(w)
		return
	}

	s.invalidateMetrics(userID)
	NewHTMXResponse().
		TriggerSubscriptionChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Added " + sub.Name).
		Write(w)
}

type subscriptionFormData struct {
	Sub        *core.Subscription
	Cycles     []core.BillingCycle
	Statuses   []core.Status
	Categories []string
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	id := r.PathValue("id")

	sub, err := s.subs.Get(r.Context(), userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("Subscription not found").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load subscription", "error", err, "subscription_id", id)
		InternalServerError("Could not load the subscription").Write(w)
		return
	}

	categories, _ := s.subs.Categories(r.Context(), userID)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "subscription_form.html", subscriptionFormData{
		Sub:        sub,
		Cycles:     core.BillingCycles(),
		Statuses:   core.Statuses(),
		Categories: formCategories(categories),
	})
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	userID := currentUserID(r.Context())
	id := r.PathValue("id")

	in, resp := ParseSubscriptionForm(r.Form)
	if resp != nil {
		resp.Write(w)
		return
	}

	sub, err := s.subs.Update(r.Context(), userID, id, in)
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("Subscription not found").Write(w)
		return
	}
	if err != nil {
		subscriptionErrorResponse(err).Write(w)
		return
	}

	s.invalidateMetrics(userID)
	NewHTMXResponse().
		TriggerSubscriptionChanged().
		TriggerSuccessNotification("Updated " + sub.Name).
		Write(w)
}

type suggestionView struct {
	ID          string
	Name        string
	Description string
	Display     string
	Price       string
	Currency    string
	Cycle       string
	Category    string
	Website     string
}

type suggestionsData struct {
	Suggestions []suggestionView
	Empty       bool
}

// handleSuggestionsPartial serves the popular-services grid. Each card
// carries the preset values as data attributes; picking one fills the
// add form client-side.
func (s *Server) handleSuggestionsPartial(w http.ResponseWriter, r *http.Request) {
	query := sanitizeInput(r.URL.Query().Get("q"))
	category := sanitizeInput(r.URL.Query().Get("suggestion_category"))

	matches := core.FilterSuggestions(query, category)
	data := suggestionsData{Empty: len(matches) == 0}
	for _, sg := range matches {
		data.Suggestions = append(data.Suggestions, suggestionView{
			ID:          sg.ID,
			Name:        sg.Name,
			Description: sg.Description,
			Display:     formatMoney(sg.Price, sg.Currency) + " / " + cycleName(sg.Cycle),
			Price:       sg.Price.StringFixed(2),
			Currency:    sg.Currency,
			Cycle:       string(sg.Cycle),
			Category:    sg.Category,
			Website:     sg.Website,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, "suggestions.html", data)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	id := r.PathValue("id")

	err := s.subs.Delete(r.Context(), userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("Subscription not found").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete subscription", "error", err, "subscription_id", id)
		InternalServerError("Could not delete the subscription").Write(w)
		return
	}

	s.invalidateMetrics(userID)
	NewHTMXResponse().
		TriggerSubscriptionChanged().
		TriggerSuccessNotification("Subscription removed").
		Write(w)
}
