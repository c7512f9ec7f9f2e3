package entities

import (
	"strings"
	"time"

	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/domain/events"
	"esgss-backend/pkg/errors"
)

// CardAttribute pins a card to one of the three ESG pillars
type CardAttribute string

const (
	AttributeEnvironment CardAttribute = "E"
	AttributeSocial      CardAttribute = "S"
	AttributeGovernance  CardAttribute = "G"
)

// IsValid checks the attribute is a known pillar
func (a CardAttribute) IsValid() bool {
	switch a {
	case AttributeEnvironment, AttributeSocial, AttributeGovernance:
		return true
	default:
		return false
	}
}

// MasteryTier tracks how well the holder retains a card's knowledge
type MasteryTier string

const (
	MasteryNovice MasteryTier = "novice"
	MasteryAdept  MasteryTier = "adept"
	MasteryMaster MasteryTier = "master"
)

// Next returns the tier above, or the same tier at the top
func (m MasteryTier) Next() MasteryTier {
	switch m {
	case MasteryNovice:
		return MasteryAdept
	case MasteryAdept:
		return MasteryMaster
	default:
		return m
	}
}

// IsValid checks the tier is one of the three known values
func (m MasteryTier) IsValid() bool {
	switch m {
	case MasteryNovice, MasteryAdept, MasteryMaster:
		return true
	default:
		return false
	}
}

// Card is a collectible ESG glossary card. Cards start sealed and must
// pass a purification quiz before their knowledge counts.
type Card struct {
	id          valueobjects.EntityID
	userID      string
	term        string
	definition  string
	attribute   CardAttribute
	category    string
	defense     int
	offense     int
	mastery     MasteryTier
	purified    bool
	acquiredAt  time.Time
	purifiedAt  *time.Time
	reviewCount int

	domainEvents []events.DomainEvent
}

// NewCard mints a sealed card for a user
func NewCard(id valueobjects.EntityID, userID, term, definition string, attribute CardAttribute, category string, defense, offense int) (*Card, error) {
	if id.IsZero() {
		return nil, errors.NewValidationError("card ID cannot be empty")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("user ID cannot be empty")
	}
	if strings.TrimSpace(term) == "" {
		return nil, errors.NewValidationError("card term cannot be empty")
	}
	if strings.TrimSpace(definition) == "" {
		return nil, errors.NewValidationError("card definition cannot be empty")
	}
	if !attribute.IsValid() {
		return nil, errors.NewValidationError("card attribute must be E, S or G")
	}
	if defense < 0 || offense < 0 {
		return nil, errors.NewValidationError("card stats cannot be negative")
	}

	return &Card{
		id:         id,
		userID:     userID,
		term:       strings.TrimSpace(term),
		definition: strings.TrimSpace(definition),
		attribute:  attribute,
		category:   strings.TrimSpace(category),
		defense:    defense,
		offense:    offense,
		mastery:    MasteryNovice,
		acquiredAt: time.Now(),
	}, nil
}

// Purify marks a sealed card as purified and resets its mastery to the
// bottom tier so review scheduling starts from scratch
func (c *Card) Purify() error {
	if c.purified {
		return errors.NewConflictError("card is already purified")
	}
	now := time.Now()
	c.purified = true
	c.purifiedAt = &now
	if c.mastery != MasteryNovice {
		old := c.mastery
		c.mastery = MasteryNovice
		c.addDomainEvent(events.NewCardMasteryChanged(c.id, c.userID, string(old), string(MasteryNovice), now))
	}
	c.addDomainEvent(events.NewCardPurified(c.id, c.userID, c.term, now))
	return nil
}

// RecordReview bumps the review counter and promotes mastery on every
// third successful review
func (c *Card) RecordReview(success bool) {
	if !c.purified {
		return
	}
	if !success {
		if c.mastery != MasteryNovice {
			old := c.mastery
			c.mastery = MasteryNovice
			c.addDomainEvent(events.NewCardMasteryChanged(c.id, c.userID, string(old), string(MasteryNovice), time.Now()))
		}
		c.reviewCount = 0
		return
	}
	c.reviewCount++
	if c.reviewCount%3 == 0 && c.mastery != MasteryMaster {
		old := c.mastery
		c.mastery = c.mastery.Next()
		c.addDomainEvent(events.NewCardMasteryChanged(c.id, c.userID, string(old), string(c.mastery), time.Now()))
	}
}

// Getters

func (c *Card) ID() valueobjects.EntityID { return c.id }
func (c *Card) UserID() string            { return c.userID }
func (c *Card) Term() string              { return c.term }
func (c *Card) Definition() string        { return c.definition }
func (c *Card) Attribute() CardAttribute  { return c.attribute }
func (c *Card) Category() string          { return c.category }
func (c *Card) Defense() int              { return c.defense }
func (c *Card) Offense() int              { return c.offense }
func (c *Card) Mastery() MasteryTier      { return c.mastery }
func (c *Card) IsPurified() bool          { return c.purified }
func (c *Card) AcquiredAt() time.Time     { return c.acquiredAt }
func (c *Card) PurifiedAt() *time.Time    { return c.purifiedAt }
func (c *Card) ReviewCount() int          { return c.reviewCount }

// Domain event management

func (c *Card) addDomainEvent(event events.DomainEvent) {
	c.domainEvents = append(c.domainEvents, event)
}

// GetUncommittedEvents returns events raised since the last commit
func (c *Card) GetUncommittedEvents() []events.DomainEvent {
	return c.domainEvents
}

// MarkEventsAsCommitted clears the uncommitted event list
func (c *Card) MarkEventsAsCommitted() {
	c.domainEvents = nil
}

// CardSnapshot is the persisted form of a card
type CardSnapshot struct {
	ID          valueobjects.EntityID `json:"id"`
	UserID      string                `json:"userId"`
	Term        string                `json:"term"`
	Definition  string                `json:"definition"`
	Attribute   CardAttribute         `json:"attribute"`
	Category    string                `json:"category,omitempty"`
	Defense     int                   `json:"defense"`
	Offense     int                   `json:"offense"`
	Mastery     MasteryTier           `json:"mastery"`
	Purified    bool                  `json:"purified"`
	AcquiredAt  time.Time             `json:"acquiredAt"`
	PurifiedAt  *time.Time            `json:"purifiedAt,omitempty"`
	ReviewCount int                   `json:"reviewCount"`
}

// Snapshot captures the card state for persistence
func (c *Card) Snapshot() CardSnapshot {
	return CardSnapshot{
		ID:          c.id,
		UserID:      c.userID,
		Term:        c.term,
		Definition:  c.definition,
		Attribute:   c.attribute,
		Category:    c.category,
		Defense:     c.defense,
		Offense:     c.offense,
		Mastery:     c.mastery,
		Purified:    c.purified,
		AcquiredAt:  c.acquiredAt,
		PurifiedAt:  c.purifiedAt,
		ReviewCount: c.reviewCount,
	}
}

// ReconstructCard rebuilds a card from its snapshot without raising
// domain events
func ReconstructCard(s CardSnapshot) (*Card, error) {
	if s.ID.IsZero() {
		return nil, errors.NewValidationError("snapshot missing card ID")
	}
	if !s.Attribute.IsValid() {
		return nil, errors.NewValidationError("snapshot has invalid card attribute")
	}
	mastery := s.Mastery
	if !mastery.IsValid() {
		mastery = MasteryNovice
	}
	return &Card{
		id:          s.ID,
		userID:      s.UserID,
		term:        s.Term,
		definition:  s.Definition,
		attribute:   s.Attribute,
		category:    s.Category,
		defense:     s.Defense,
		offense:     s.Offense,
		mastery:     mastery,
		purified:    s.Purified,
		acquiredAt:  s.AcquiredAt,
		purifiedAt:  s.PurifiedAt,
		reviewCount: s.ReviewCount,
	}, nil
}
