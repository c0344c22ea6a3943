package domain

import (
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

// Category is the fixed set of ad categories
type Category string

const (
	CategoryFigures Category = "figures"
	CategoryMerch   Category = "merch"
	CategoryPlush   Category = "plush"
)

// AdType marks an ad as for sale, for exchange, or both
type AdType string

const (
	TypeSale     AdType = "sale"
	TypeExchange AdType = "exchange"
)

// Status is the ad lifecycle flag. Sold and exchanged ads can be
// reactivated, the lifecycle is not one-way.
type Status string

const (
	StatusActive    Status = "active"
	StatusSold      Status = "sold"
	StatusExchanged Status = "exchanged"
)

// Content limits enforced at the payload boundary
const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 1000
	MaxImages         = 3
	MaxRawImageSize   = 10 << 20 // bytes, per raw upload
)

// Single label table consumed by every transport, so views cannot drift
var (
	categoryLabels = map[Category]string{
		CategoryFigures: "Фигурки",
		CategoryMerch:   "Мерч",
		CategoryPlush:   "Плюши",
	}
	typeLabels = map[AdType]string{
		TypeSale:     "Продажа",
		TypeExchange: "Обмен",
	}
	statusLabels = map[Status]string{
		StatusActive:    "Активно",
		StatusSold:      "Продано",
		StatusExchanged: "Обменяно",
	}
)

func (c Category) Valid() bool { return lo.HasKey(categoryLabels, c) }
func (c Category) Label() string {
	return categoryLabels[c]
}

func (t AdType) Valid() bool { return lo.HasKey(typeLabels, t) }
func (t AdType) Label() string {
	return typeLabels[t]
}

func (s Status) Valid() bool { return lo.HasKey(statusLabels, s) }
func (s Status) Label() string {
	return statusLabels[s]
}

// ParseCategory parses a wire value into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", oops.With("value", s).Errorf("unknown category: %s", s)
	}
	return c, nil
}

// ParseAdType parses a wire value into an AdType
func ParseAdType(s string) (AdType, error) {
	t := AdType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", oops.With("value", s).Errorf("unknown ad type: %s", s)
	}
	return t, nil
}

// ParseStatus parses a wire value into a Status
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", oops.With("value", s).Errorf("unknown status: %s", s)
	}
	return st, nil
}

// Ad is a single marketplace listing
type Ad struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Price       float64   `json:"price" bson:"price"`
	Category    Category  `json:"category" bson:"category"`
	Types       []AdType  `json:"ad_type" bson:"ad_type"`
	Images      []string  `json:"images" bson:"images"`
	Location    string    `json:"location" bson:"location"`
	ContactInfo string    `json:"contact_info,omitempty" bson:"contact_info,omitempty"`
	Status      Status    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
	AuthorID    int64     `json:"author_id" bson:"author_id"`
	AuthorName  string    `json:"author_name" bson:"author_name"`
}

// HasType reports whether the ad carries the given type
func (a *Ad) HasType(t AdType) bool {
	return lo.Contains(a.Types, t)
}

// CanTransition checks the status invariant: marking sold requires the
// 'sale' type, marking exchanged requires 'exchange'. Reactivation is
// always allowed.
func (a *Ad) CanTransition(next Status) error {
	switch next {
	case StatusActive:
		return nil
	case StatusSold:
		if !a.HasType(TypeSale) {
			return oops.With("ad_id", a.ID).Errorf("ad is not for sale")
		}
	case StatusExchanged:
		if !a.HasType(TypeExchange) {
			return oops.With("ad_id", a.ID).Errorf("ad is not for exchange")
		}
	default:
		return oops.Errorf("unknown status: %s", next)
	}
	return nil
}

// TelegramUser is the ambient identity supplied by the host runtime.
// It is passed explicitly to everything that needs author data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// DisplayName builds the denormalized author name stored on an ad
func (u TelegramUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// NewAd is the normalized create/edit payload, validated once at the
// form boundary
type NewAd struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    Category `json:"category"`
	Types       []AdType `json:"ad_type"`
	Location    string   `json:"location"`
	ContactInfo string   `json:"contact_info,omitempty"`
}

// Validate checks every required field and returns a single aggregated
// error listing all violations, or nil
func (p NewAd) Validate() error {
	var violations []string

	title := strings.TrimSpace(p.Title)
	if title == "" {
		violations = append(violations, "title is required")
	} else if len([]rune(title)) > MaxTitleLen {
		violations = append(violations, "title is longer than 100 characters")
	}

	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		violations = append(violations, "description is required")
	} else if len([]rune(desc)) > MaxDescriptionLen {
		violations = append(violations, "description is longer than 1000 characters")
	}

	if !(p.Price > 0) || math.IsInf(p.Price, 1) {
		violations = append(violations, "price must be a positive number")
	}

	if !p.Category.Valid() {
		violations = append(violations, "category is required")
	}

	if len(p.Types) == 0 {
		violations = append(violations, "at least one ad type is required")
	} else {
		for _, t := range p.Types {
			if !t.Valid() {
				violations = append(violations, "unknown ad type: "+string(t))
			}
		}
	}

	if strings.TrimSpace(p.Location) == "" {
		violations = append(violations, "location is required")
	}

	if len(violations) > 0 {
		return oops.
			With("violations", violations).
			Wrapf(apperrors.ErrInvalidPayload, "%s", strings.Join(violations, "; "))
	}
	return nil
}

// Normalize trims free-text fields and deduplicates types in place
func (p *NewAd) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Location = strings.TrimSpace(p.Location)
	p.ContactInfo = strings.TrimSpace(p.ContactInfo)
	p.Types = lo.Uniq(p.Types)
}
