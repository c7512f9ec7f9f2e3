package valueobjects

import (
	"time"

	pkgerrors "esgss-backend/pkg/errors"
)

// InteractionType classifies a recorded UI interaction
type InteractionType string

const (
	InteractionClick     InteractionType = "click"
	InteractionHover     InteractionType = "hover"
	InteractionEdit      InteractionType = "edit"
	InteractionAITrigger InteractionType = "ai-trigger"
)

// IsValid checks the interaction type is one of the four known kinds
func (t InteractionType) IsValid() bool {
	switch t {
	case InteractionClick, InteractionHover, InteractionEdit, InteractionAITrigger:
		return true
	default:
		return false
	}
}

// Weight returns the heat weight of this interaction kind. The weight is
// accumulated into the node's memory for heat analysis; trait evolution is
// driven by the raw interaction count, not by this value.
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionClick:
		return 2
	case InteractionEdit:
		return 5
	case InteractionAITrigger:
		return 8
	case InteractionHover:
		return 0.1
	default:
		return 0
	}
}

// InteractionEvent is one recorded user interaction against an entity
type InteractionEvent struct {
	EntityID  EntityID        `json:"entityId"`
	EventType InteractionType `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	// Payload optionally carries the new value for edit interactions
	Payload any `json:"payload,omitempty"`
}

// NewInteractionEvent creates a validated interaction event. A zero timestamp
// is replaced with the current time.
func NewInteractionEvent(entityID EntityID, eventType InteractionType, ts time.Time, payload any) (InteractionEvent, error) {
	if entityID.IsZero() {
		return InteractionEvent{}, pkgerrors.NewValidationError("entity ID cannot be empty")
	}
	if !eventType.IsValid() {
		return InteractionEvent{}, pkgerrors.NewValidationError("unknown interaction type: " + string(eventType))
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return InteractionEvent{
		EntityID:  entityID,
		EventType: eventType,
		Timestamp: ts,
		Payload:   payload,
	}, nil
}
