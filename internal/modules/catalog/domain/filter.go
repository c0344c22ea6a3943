package domain

import (
	"strings"

	"github.com/samber/lo"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
)

// All is the sentinel filter value meaning "impose no constraint"
const All = "all"

// ViewMode selects the rendering strategy over the filtered ads
type ViewMode string

const (
	ModeList ViewMode = "list"
	ModeGrid ViewMode = "grid"
)

// ParseViewMode falls back to the list view for unknown values
func ParseViewMode(s string) ViewMode {
	if ViewMode(strings.ToLower(s)) == ModeGrid {
		return ModeGrid
	}
	return ModeList
}

// Toggle flips between the two view modes
func (m ViewMode) Toggle() ViewMode {
	if m == ModeGrid {
		return ModeList
	}
	return ModeGrid
}

// FilterState is the ephemeral combination of search text, category
// choice, type choice and view mode driving the visible ad subset
type FilterState struct {
	Query    string   `json:"query"`
	Category string   `json:"category"` // an ad category or "all"
	Type     string   `json:"type"`     // an ad type or "all"
	Mode     ViewMode `json:"mode"`
}

// Constrained reports whether any filter dimension is narrowed. It
// drives the two distinct empty-state messages.
func (f FilterState) Constrained() bool {
	return strings.TrimSpace(f.Query) != "" ||
		(f.Category != "" && f.Category != All) ||
		(f.Type != "" && f.Type != All)
}

// EmptyState distinguishes "no listings yet" from "nothing matches"
type EmptyState string

const (
	EmptyNone      EmptyState = ""
	EmptyNoAds     EmptyState = "no_ads"
	EmptyNoMatches EmptyState = "no_matches"
)

// Result is the filtered projection plus its empty-state discriminator
type Result struct {
	Ads   []*addomain.Ad `json:"ads"`
	Empty EmptyState     `json:"empty,omitempty"`
}

// Apply projects the ad set through the filter state. Pure and
// synchronous: order is preserved, the same inputs always yield the
// same output.
func Apply(ads []*addomain.Ad, f FilterState) Result {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	matched := lo.Filter(ads, func(ad *addomain.Ad, _ int) bool {
		return matchesQuery(ad, query) && matchesCategory(ad, f.Category) && matchesType(ad, f.Type)
	})

	res := Result{Ads: matched}
	if len(matched) == 0 {
		if len(ads) == 0 {
			res.Empty = EmptyNoAds
		} else {
			res.Empty = EmptyNoMatches
		}
	}
	return res
}

func matchesQuery(ad *addomain.Ad, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ad.Title), query) ||
		strings.Contains(strings.ToLower(ad.Description), query)
}

func matchesCategory(ad *addomain.Ad, category string) bool {
	if category == "" || category == All {
		return true
	}
	return ad.Category == addomain.Category(category)
}

func matchesType(ad *addomain.Ad, adType string) bool {
	if adType == "" || adType == All {
		return true
	}
	return ad.HasType(addomain.AdType(adType))
}
