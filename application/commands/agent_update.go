package commands

import (
	"context"

	"go.uber.org/zap"

	"esgss-backend/application/services"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/utils"
)

// AgentUpdateCommand lets an automated pipeline overwrite node fields
// directly. Nil fields are left untouched.
type AgentUpdateCommand struct {
	UserID     string   `json:"user_id" validate:"required"`
	EntityID   string   `json:"entity_id" validate:"required,min=1,max=120"`
	Value      any      `json:"value"`
	HasValue   bool     `json:"has_value"`
	Confidence *string  `json:"confidence" validate:"omitempty,oneof=high medium low"`
	Traits     []string `json:"traits" validate:"omitempty,max=8,dive,min=1,max=30"`
	AIInsight  *string  `json:"ai_insight" validate:"omitempty,max=2000"`
}

// Validate checks the command fields
func (c AgentUpdateCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AgentUpdateHandler handles the AgentUpdateCommand
type AgentUpdateHandler struct {
	engine *services.EvolutionEngine
	logger *zap.Logger
}

// NewAgentUpdateHandler creates a new handler instance
func NewAgentUpdateHandler(engine *services.EvolutionEngine, logger *zap.Logger) *AgentUpdateHandler {
	return &AgentUpdateHandler{engine: engine, logger: logger}
}

// Handle executes the agent update command
func (h *AgentUpdateHandler) Handle(ctx context.Context, cmd AgentUpdateCommand) error {
	entityID, err := valueobjects.NewEntityID(cmd.EntityID)
	if err != nil {
		return err
	}

	update := entities.AgentUpdateFields{
		Value:     cmd.Value,
		HasValue:  cmd.HasValue,
		AIInsight: cmd.AIInsight,
	}
	if cmd.Confidence != nil {
		confidence := valueobjects.Confidence(*cmd.Confidence)
		update.Confidence = &confidence
	}
	if cmd.Traits != nil {
		traits := make([]valueobjects.Trait, 0, len(cmd.Traits))
		for _, t := range cmd.Traits {
			traits = append(traits, valueobjects.Trait(t))
		}
		update.Traits = traits
	}

	return h.engine.AgentUpdate(ctx, cmd.UserID, entityID, update)
}
