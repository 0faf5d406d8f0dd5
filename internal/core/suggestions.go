package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Suggestion is a preset for a popular subscription service. Picking
// one pre-fills the add form; the user can still edit every field
// before saving.
type Suggestion struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Cycle       BillingCycle
	Category    string
	Website     string
}

// SuggestedCategories is the fixed catalog of category labels offered
// in forms, merged with whatever labels the user has already applied.
func SuggestedCategories() []string {
	return []string{
		"Entertainment",
		"Productivity",
		"Utilities",
		"Shopping",
		"Gaming",
		"Fitness",
		"Food & Drink",
		"Health",
		"News & Media",
		"Finance",
		"Education",
		"Software",
		DefaultCategory,
	}
}

var suggestionCatalog = []Suggestion{
	{
		ID:          "netflix",
		Name:        "Netflix",
		Description: "Streaming service for movies and TV shows",
		Price:       decimal.RequireFromString("54.90"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Entertainment",
		Website:     "https://netflix.com",
	},
	{
		ID:          "spotify",
		Name:        "Spotify Premium",
		Description: "Music and podcast streaming",
		Price:       decimal.RequireFromString("23.90"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Entertainment",
		Website:     "https://spotify.com",
	},
	{
		ID:          "youtube-premium",
		Name:        "YouTube Premium",
		Description: "Ad-free videos with background play",
		Price:       decimal.RequireFromString("20.90"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Entertainment",
		Website:     "https://youtube.com/premium",
	},
	{
		ID:          "disney-plus",
		Name:        "Disney+ Hotstar",
		Description: "Movies and series streaming",
		Price:       decimal.RequireFromString("74.90"),
		Currency:    "MYR",
		Cycle:       Quarterly,
		Category:    "Entertainment",
		Website:     "https://hotstar.com",
	},
	{
		ID:          "icloud",
		Name:        "iCloud+",
		Description: "Extra storage for Apple devices",
		Price:       decimal.RequireFromString("3.90"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Utilities",
		Website:     "https://icloud.com",
	},
	{
		ID:          "google-one",
		Name:        "Google One",
		Description: "Expanded cloud storage for Google accounts",
		Price:       decimal.RequireFromString("8.49"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Utilities",
		Website:     "https://one.google.com",
	},
	{
		ID:          "microsoft-365",
		Name:        "Microsoft 365 Personal",
		Description: "Office apps with OneDrive storage",
		Price:       decimal.RequireFromString("289.00"),
		Currency:    "MYR",
		Cycle:       Annual,
		Category:    "Productivity",
		Website:     "https://microsoft.com/microsoft-365",
	},
	{
		ID:          "notion",
		Name:        "Notion Plus",
		Description: "Connected workspace for notes and projects",
		Price:       decimal.RequireFromString("38.00"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Productivity",
		Website:     "https://notion.so",
	},
	{
		ID:          "adobe-cc",
		Name:        "Adobe Creative Cloud",
		Description: "Design, photo and video tools",
		Price:       decimal.RequireFromString("250.00"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Software",
		Website:     "https://adobe.com",
	},
	{
		ID:          "playstation-plus",
		Name:        "PlayStation Plus",
		Description: "Online multiplayer and monthly games",
		Price:       decimal.RequireFromString("35.90"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Gaming",
		Website:     "https://playstation.com",
	},
	{
		ID:          "xbox-game-pass",
		Name:        "Xbox Game Pass Ultimate",
		Description: "Rotating game library subscription",
		Price:       decimal.RequireFromString("64.90"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Gaming",
		Website:     "https://xbox.com/game-pass",
	},
	{
		ID:          "strava",
		Name:        "Strava",
		Description: "Activity tracking and training plans",
		Price:       decimal.RequireFromString("159.99"),
		Currency:    "MYR",
		Cycle:       Annual,
		Category:    "Fitness",
		Website:     "https://strava.com",
	},
	{
		ID:          "grab-unlimited",
		Name:        "GrabUnlimited",
		Description: "Delivery savings on Grab orders",
		Price:       decimal.RequireFromString("5.99"),
		Currency:    "MYR",
		Cycle:       Monthly,
		Category:    "Food & Drink",
		Website:     "https://grab.com",
	},
}

// Suggestions returns the full preset catalog in display order.
func Suggestions() []Suggestion {
	return append([]Suggestion(nil), suggestionCatalog...)
}

// SuggestionByID looks up a preset by its catalog ID.
func SuggestionByID(id string) (Suggestion, bool) {
	for _, sg := range suggestionCatalog {
		if sg.ID == id {
			return sg, true
		}
	}
	return Suggestion{}, false
}

// FilterSuggestions narrows the catalog by a case-insensitive match on
// name or description and an exact category. Empty arguments do not
// filter.
func FilterSuggestions(query, category string) []Suggestion {
	query = strings.ToLower(strings.TrimSpace(query))

	var out []Suggestion
	for _, sg := range suggestionCatalog {
		if category != "" && sg.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(sg.Name), query) &&
			!strings.Contains(strings.ToLower(sg.Description), query) {
			continue
		}
		out = append(out, sg)
	}
	return out
}
