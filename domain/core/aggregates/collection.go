package aggregates

import (
	"sort"
	"strings"
	"time"

	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/domain/events"
	"esgss-backend/pkg/errors"
)

// XPPerLevel is the flat amount of experience needed per level
const XPPerLevel = 1000

// Collection is the aggregate root for one user's card binder and
// progression. All card membership and XP changes go through it so the
// level math and the cards stay consistent.
type Collection struct {
	userID string
	xp     int
	level  int
	cards  map[string]*entities.Card

	domainEvents []events.DomainEvent
}

// NewCollection creates an empty collection for a user
func NewCollection(userID string) (*Collection, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("user ID cannot be empty")
	}
	return &Collection{
		userID: userID,
		level:  1,
		cards:  make(map[string]*entities.Card),
	}, nil
}

// AddCard places a card in the binder. Duplicate card IDs are rejected.
func (c *Collection) AddCard(card *entities.Card) error {
	if card == nil {
		return errors.NewValidationError("card cannot be nil")
	}
	if card.UserID() != c.userID {
		return errors.NewValidationError("card belongs to another user")
	}
	key := card.ID().String()
	if _, exists := c.cards[key]; exists {
		return errors.NewConflictError("card already in collection: " + key)
	}
	c.cards[key] = card
	return nil
}

// Card looks up a card by ID
func (c *Collection) Card(id valueobjects.EntityID) (*entities.Card, bool) {
	card, ok := c.cards[id.String()]
	return card, ok
}

// Cards returns all cards ordered by acquisition time, newest last
func (c *Collection) Cards() []*entities.Card {
	out := make([]*entities.Card, 0, len(c.cards))
	for _, card := range c.cards {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AcquiredAt().Equal(out[j].AcquiredAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].AcquiredAt().Before(out[j].AcquiredAt())
	})
	return out
}

// PurifiedCount returns how many cards have passed purification
func (c *Collection) PurifiedCount() int {
	n := 0
	for _, card := range c.cards {
		if card.IsPurified() {
			n++
		}
	}
	return n
}

// AwardXP grants experience and recomputes the level. Raises LevelUp
// when a boundary is crossed.
func (c *Collection) AwardXP(amount int, reason string) error {
	if amount <= 0 {
		return errors.NewValidationError("XP amount must be positive")
	}
	now := time.Now()
	c.xp += amount
	c.addDomainEvent(events.NewXPAwarded(c.userID, amount, reason, c.xp, now))

	newLevel := c.xp/XPPerLevel + 1
	if newLevel > c.level {
		old := c.level
		c.level = newLevel
		c.addDomainEvent(events.NewLevelUp(c.userID, old, newLevel, now))
	}
	return nil
}

// PurifyCard purifies the card and collects the events it raised
func (c *Collection) PurifyCard(id valueobjects.EntityID) error {
	card, ok := c.Card(id)
	if !ok {
		return errors.NewNotFoundError("card not found: " + id.String())
	}
	if err := card.Purify(); err != nil {
		return err
	}
	c.domainEvents = append(c.domainEvents, card.GetUncommittedEvents()...)
	card.MarkEventsAsCommitted()
	return nil
}

// Getters

func (c *Collection) UserID() string { return c.userID }
func (c *Collection) XP() int        { return c.xp }
func (c *Collection) Level() int     { return c.level }
func (c *Collection) Size() int      { return len(c.cards) }

// XPToNextLevel returns the remaining XP before the next level
func (c *Collection) XPToNextLevel() int {
	return c.level*XPPerLevel - c.xp
}

// Domain event management

func (c *Collection) addDomainEvent(event events.DomainEvent) {
	c.domainEvents = append(c.domainEvents, event)
}

// GetUncommittedEvents returns events raised since the last commit
func (c *Collection) GetUncommittedEvents() []events.DomainEvent {
	return c.domainEvents
}

// MarkEventsAsCommitted clears the uncommitted event list
func (c *Collection) MarkEventsAsCommitted() {
	c.domainEvents = nil
}

// CollectionSnapshot is the persisted form of a collection's profile
// fields. Cards are persisted individually by the card repository.
type CollectionSnapshot struct {
	UserID string `json:"userId"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
}

// Snapshot captures the profile state for persistence
func (c *Collection) Snapshot() CollectionSnapshot {
	return CollectionSnapshot{UserID: c.userID, XP: c.xp, Level: c.level}
}

// ReconstructCollection rebuilds a collection from its snapshot and
// previously persisted cards
func ReconstructCollection(s CollectionSnapshot, cards []*entities.Card) (*Collection, error) {
	if strings.TrimSpace(s.UserID) == "" {
		return nil, errors.NewValidationError("snapshot missing user ID")
	}
	level := s.Level
	if level < 1 {
		level = 1
	}
	c := &Collection{
		userID: s.UserID,
		xp:     s.XP,
		level:  level,
		cards:  make(map[string]*entities.Card, len(cards)),
	}
	for _, card := range cards {
		if card == nil || card.UserID() != s.UserID {
			continue
		}
		c.cards[card.ID().String()] = card
	}
	return c, nil
}
