package queries

import (
	"errors"
	"time"
)

// GetCardQuery represents a query to get one card
type GetCardQuery struct {
	UserID string
	CardID string
}

// Validate validates the GetCardQuery
func (q GetCardQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.CardID == "" {
		return errors.New("card ID is required")
	}
	return nil
}

// ListCardsQuery represents a query for a user's card binder.
// PurifiedOnly narrows the result to unsealed cards.
type ListCardsQuery struct {
	UserID       string
	PurifiedOnly bool
	Attribute    string
}

// Validate validates the ListCardsQuery
func (q ListCardsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	switch q.Attribute {
	case "", "E", "S", "G":
		return nil
	default:
		return errors.New("attribute must be E, S or G")
	}
}

// GetProfileQuery represents a query for a user's progression
type GetProfileQuery struct {
	UserID string
}

// Validate validates the GetProfileQuery
func (q GetProfileQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// CardView is the client-facing shape of a card
type CardView struct {
	ID          string     `json:"id"`
	Term        string     `json:"term"`
	Definition  string     `json:"definition"`
	Attribute   string     `json:"attribute"`
	Category    string     `json:"category,omitempty"`
	Defense     int        `json:"defense"`
	Offense     int        `json:"offense"`
	Mastery     string     `json:"mastery"`
	Purified    bool       `json:"purified"`
	AcquiredAt  time.Time  `json:"acquiredAt"`
	PurifiedAt  *time.Time `json:"purifiedAt,omitempty"`
	ReviewCount int        `json:"reviewCount"`
}

// ListCardsResult wraps the binder listing
type ListCardsResult struct {
	Cards []CardView `json:"cards"`
	Total int        `json:"total"`
}
