package location

import (
	"strings"

	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Other is the sentinel choice that switches to free-text entry
const Other = "other"

// Cities is the fixed list offered by the selector
var Cities = []string{
	"Москва",
	"Санкт-Петербург",
	"Новосибирск",
	"Екатеринбург",
	"Казань",
	"Нижний Новгород",
	"Челябинск",
	"Самара",
	"Омск",
	"Ростов-на-Дону",
	"Уфа",
	"Красноярск",
	"Воронеж",
	"Пермь",
	"Волгоград",
	"Краснодар",
	"Саратов",
	"Тюмень",
	"Тольятти",
	"Ижевск",
	"Барнаул",
}

// Mode is the selector's entry mode
type Mode string

const (
	ModeChoice   Mode = "choice" // pick from the enumerated list
	ModeFreeText Mode = "free_text"
)

// Known reports whether a value is a member of the enumerated list
func Known(city string) bool {
	return lo.Contains(Cities, city)
}

// Selector models the location field of the ad form
type Selector struct {
	mode  Mode
	value string
}

// NewSelector derives the initial mode from the incoming value:
// a non-empty value outside the list starts in free-text mode
func NewSelector(initial string) *Selector {
	initial = strings.TrimSpace(initial)
	mode := ModeChoice
	if initial != "" && !Known(initial) {
		mode = ModeFreeText
	}
	return &Selector{mode: mode, value: initial}
}

// Select picks a city from the list. The Other sentinel switches to
// free-text mode and clears the value until the user types.
func (s *Selector) Select(city string) error {
	if city == Other {
		s.mode = ModeFreeText
		s.value = ""
		return nil
	}
	if !Known(city) {
		return oops.With("city", city).Errorf("unknown city")
	}
	s.mode = ModeChoice
	s.value = city
	return nil
}

// Type sets the value while in free-text mode
func (s *Selector) Type(text string) {
	if s.mode != ModeFreeText {
		return
	}
	s.value = strings.TrimSpace(text)
}

// UseList returns from free-text mode to the enumerated list,
// clearing the value again
func (s *Selector) UseList() {
	s.mode = ModeChoice
	s.value = ""
}

// Mode returns the current entry mode
func (s *Selector) CurrentMode() Mode { return s.mode }

// Value returns the selected or typed location
func (s *Selector) Value() string { return s.value }
