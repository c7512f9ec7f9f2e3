package ports

import (
	"context"
	"time"

	"esgss-backend/domain/core/aggregates"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/domain/events"
)

// RegistryStore persists the whole evolution registry as one versioned
// blob, matching how the dashboard snapshots its node state.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type RegistryStore interface {
	// Load retrieves the full registry snapshot for a user. A missing
	// registry returns an empty map, not an error.
	Load(ctx context.Context, userID string) (map[string]entities.NodeSnapshot, error)

	// Save overwrites the full registry snapshot for a user
	Save(ctx context.Context, userID string, nodes map[string]entities.NodeSnapshot) error

	// Delete wipes the registry for a user
	Delete(ctx context.Context, userID string) error
}

// CardRepository defines the interface for card persistence
type CardRepository interface {
	// Save persists a card (create or update)
	Save(ctx context.Context, card *entities.Card) error

	// GetByID retrieves a card by its ID
	GetByID(ctx context.Context, userID string, id valueobjects.EntityID) (*entities.Card, error)

	// GetByUserID retrieves all cards for a user
	GetByUserID(ctx context.Context, userID string) ([]*entities.Card, error)

	// Delete removes a card
	Delete(ctx context.Context, userID string, id valueobjects.EntityID) error

	// BulkSave saves multiple cards in a batch
	BulkSave(ctx context.Context, cards []*entities.Card) error
}

// ProfileRepository persists the progression side of a collection
type ProfileRepository interface {
	// Save persists the profile snapshot
	Save(ctx context.Context, snapshot aggregates.CollectionSnapshot) error

	// GetByUserID retrieves a profile. A missing profile returns a
	// zero snapshot with the user ID set.
	GetByUserID(ctx context.Context, userID string) (aggregates.CollectionSnapshot, error)
}

// EventStore defines the interface for the audit trail of domain events
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]StoredEvent, error)

	// GetEventsByType retrieves recent events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]StoredEvent, error)

	// DeleteEvents removes all events for an aggregate
	DeleteEvents(ctx context.Context, aggregateID string) error
}

// StoredEvent is an audit record read back from the event store
type StoredEvent struct {
	AggregateID string
	EventType   string
	Timestamp   time.Time
	Version     int
	Payload     []byte
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// QuizGenerator produces a purification quiz for a card. Distractors
// come from the rest of the user's collection.
type QuizGenerator interface {
	Generate(ctx context.Context, card *entities.Card, pool []*entities.Card) (valueobjects.Quiz, error)
}

// Notifier delivers user-facing toast notifications
type Notifier interface {
	// Success shows a positive toast
	Success(ctx context.Context, userID, title, message string) error

	// Error shows a failure toast
	Error(ctx context.Context, userID, title, message string) error
}

// PushGateway pushes live updates to connected dashboard clients
type PushGateway interface {
	// Push sends a payload to every open connection of a user
	Push(ctx context.Context, userID string, payload []byte) error
}

// DistributedLock serializes registry writes across instances
type DistributedLock interface {
	// Acquire takes the lock, blocking up to the given duration
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
