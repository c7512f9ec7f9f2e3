package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"esgss-backend/application/services"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/utils"
)

// RecordInteractionCommand feeds one user interaction into the
// evolution engine. Unknown entity IDs are dropped silently.
type RecordInteractionCommand struct {
	UserID    string    `json:"user_id" validate:"required"`
	EntityID  string    `json:"entity_id" validate:"required,min=1,max=120"`
	EventType string    `json:"event_type" validate:"required,oneof=click hover edit ai-trigger"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Validate checks the command fields
func (c RecordInteractionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RecordInteractionHandler handles the RecordInteractionCommand
type RecordInteractionHandler struct {
	engine *services.EvolutionEngine
	logger *zap.Logger
}

// NewRecordInteractionHandler creates a new handler instance
func NewRecordInteractionHandler(engine *services.EvolutionEngine, logger *zap.Logger) *RecordInteractionHandler {
	return &RecordInteractionHandler{engine: engine, logger: logger}
}

// Handle executes the record interaction command
func (h *RecordInteractionHandler) Handle(ctx context.Context, cmd RecordInteractionCommand) error {
	entityID, err := valueobjects.NewEntityID(cmd.EntityID)
	if err != nil {
		return err
	}

	event, err := valueobjects.NewInteractionEvent(
		entityID,
		valueobjects.InteractionType(cmd.EventType),
		cmd.Timestamp,
		cmd.Payload,
	)
	if err != nil {
		return err
	}

	return h.engine.RecordInteraction(ctx, cmd.UserID, event)
}
