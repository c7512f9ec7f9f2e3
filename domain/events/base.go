package events

import (
	"time"

	"esgss-backend/domain/core/valueobjects"
)

// EventSource identifies this service as the origin of published events
const EventSource = "esgss.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Knowledge node events

// NodeRegistered is raised when an entity announces itself to the engine
type NodeRegistered struct {
	BaseEvent
	EntityID valueobjects.EntityID       `json:"entity_id"`
	Label    valueobjects.UniversalLabel `json:"label"`
}

// NewNodeRegistered creates a NodeRegistered event
func NewNodeRegistered(entityID valueobjects.EntityID, label valueobjects.UniversalLabel, timestamp time.Time) NodeRegistered {
	return NodeRegistered{
		BaseEvent: BaseEvent{
			AggregateID: entityID.String(),
			EventType:   "node.registered",
			Timestamp:   timestamp,
			Version:     1,
		},
		EntityID: entityID,
		Label:    label,
	}
}

// NodeEvolved is raised when a recorded interaction changes a node's state.
// TraitsChanged is true only when the interaction altered the trait set.
type NodeEvolved struct {
	BaseEvent
	EntityID         valueobjects.EntityID        `json:"entity_id"`
	EventKind        valueobjects.InteractionType `json:"event_kind"`
	InteractionCount int                          `json:"interaction_count"`
	Traits           []valueobjects.Trait         `json:"traits"`
	TraitsChanged    bool                         `json:"traits_changed"`
}

// NewNodeEvolved creates a NodeEvolved event
func NewNodeEvolved(entityID valueobjects.EntityID, kind valueobjects.InteractionType, count int, traits []valueobjects.Trait, changed bool, timestamp time.Time) NodeEvolved {
	return NodeEvolved{
		BaseEvent: BaseEvent{
			AggregateID: entityID.String(),
			EventType:   "node.evolved",
			Timestamp:   timestamp,
			Version:     1,
		},
		EntityID:         entityID,
		EventKind:        kind,
		InteractionCount: count,
		Traits:           traits,
		TraitsChanged:    changed,
	}
}

// NodeAgentUpdated is raised when an external automated process overwrites
// node fields directly
type NodeAgentUpdated struct {
	BaseEvent
	EntityID      valueobjects.EntityID `json:"entity_id"`
	UpdatedFields []string              `json:"updated_fields"`
}

// NewNodeAgentUpdated creates a NodeAgentUpdated event
func NewNodeAgentUpdated(entityID valueobjects.EntityID, fields []string, timestamp time.Time) NodeAgentUpdated {
	return NodeAgentUpdated{
		BaseEvent: BaseEvent{
			AggregateID: entityID.String(),
			EventType:   "node.agent_updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		EntityID:      entityID,
		UpdatedFields: fields,
	}
}

// RegistryReset is raised when the whole evolution registry is wiped
type RegistryReset struct {
	BaseEvent
	UserID    string `json:"user_id"`
	NodeCount int    `json:"node_count"`
}

// NewRegistryReset creates a RegistryReset event
func NewRegistryReset(userID string, nodeCount int, timestamp time.Time) RegistryReset {
	return RegistryReset{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "registry.reset",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:    userID,
		NodeCount: nodeCount,
	}
}

// Card events

// CardPurified is raised when a sealed card passes its purification quiz
type CardPurified struct {
	BaseEvent
	CardID valueobjects.EntityID `json:"card_id"`
	UserID string                `json:"user_id"`
	Term   string                `json:"term"`
}

// NewCardPurified creates a CardPurified event
func NewCardPurified(cardID valueobjects.EntityID, userID, term string, timestamp time.Time) CardPurified {
	return CardPurified{
		BaseEvent: BaseEvent{
			AggregateID: cardID.String(),
			EventType:   "card.purified",
			Timestamp:   timestamp,
			Version:     1,
		},
		CardID: cardID,
		UserID: userID,
		Term:   term,
	}
}

// PurificationFailed is raised when a quiz answer is rejected
type PurificationFailed struct {
	BaseEvent
	CardID valueobjects.EntityID `json:"card_id"`
	UserID string                `json:"user_id"`
}

// NewPurificationFailed creates a PurificationFailed event
func NewPurificationFailed(cardID valueobjects.EntityID, userID string, timestamp time.Time) PurificationFailed {
	return PurificationFailed{
		BaseEvent: BaseEvent{
			AggregateID: cardID.String(),
			EventType:   "card.purification_failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		CardID: cardID,
		UserID: userID,
	}
}

// CardMasteryChanged is raised when a card's mastery tier moves
type CardMasteryChanged struct {
	BaseEvent
	CardID  valueobjects.EntityID `json:"card_id"`
	UserID  string                `json:"user_id"`
	OldTier string                `json:"old_tier"`
	NewTier string                `json:"new_tier"`
}

// NewCardMasteryChanged creates a CardMasteryChanged event
func NewCardMasteryChanged(cardID valueobjects.EntityID, userID, oldTier, newTier string, timestamp time.Time) CardMasteryChanged {
	return CardMasteryChanged{
		BaseEvent: BaseEvent{
			AggregateID: cardID.String(),
			EventType:   "card.mastery_changed",
			Timestamp:   timestamp,
			Version:     1,
		},
		CardID:  cardID,
		UserID:  userID,
		OldTier: oldTier,
		NewTier: newTier,
	}
}

// Profile events

// XPAwarded is raised when experience points are granted to a profile
type XPAwarded struct {
	BaseEvent
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Total  int    `json:"total"`
}

// NewXPAwarded creates an XPAwarded event
func NewXPAwarded(userID string, amount int, reason string, total int, timestamp time.Time) XPAwarded {
	return XPAwarded{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "profile.xp_awarded",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID: userID,
		Amount: amount,
		Reason: reason,
		Total:  total,
	}
}

// LevelUp is raised when accumulated XP crosses a level boundary
type LevelUp struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// NewLevelUp creates a LevelUp event
func NewLevelUp(userID string, oldLevel, newLevel int, timestamp time.Time) LevelUp {
	return LevelUp{
		BaseEvent: BaseEvent{
			AggregateID: userID,
			EventType:   "profile.level_up",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID:   userID,
		OldLevel: oldLevel,
		NewLevel: newLevel,
	}
}
