package commands

import (
	"context"

	"go.uber.org/zap"

	"esgss-backend/application/services"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/utils"
)

// RegisterNodeCommand announces a dashboard entity to the evolution
// engine. Registering the same ID twice is a no-op.
type RegisterNodeCommand struct {
	UserID       string `json:"user_id" validate:"required"`
	EntityID     string `json:"entity_id" validate:"required,min=1,max=120"`
	LabelID      string `json:"label_id" validate:"required,min=1,max=120"`
	LabelText    string `json:"label_text" validate:"required,min=1,max=200"`
	DataType     string `json:"data_type" validate:"max=60"`
	Importance   string `json:"importance" validate:"omitempty,oneof=critical high medium low"`
	Description  string `json:"description" validate:"max=2000"`
	Definition   string `json:"definition" validate:"max=2000"`
	Formula      string `json:"formula" validate:"max=500"`
	InitialValue any    `json:"initial_value"`
}

// Validate checks the command fields
func (c RegisterNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RegisterNodeHandler handles the RegisterNodeCommand
type RegisterNodeHandler struct {
	engine *services.EvolutionEngine
	logger *zap.Logger
}

// NewRegisterNodeHandler creates a new handler instance
func NewRegisterNodeHandler(engine *services.EvolutionEngine, logger *zap.Logger) *RegisterNodeHandler {
	return &RegisterNodeHandler{engine: engine, logger: logger}
}

// Handle executes the register node command
func (h *RegisterNodeHandler) Handle(ctx context.Context, cmd RegisterNodeCommand) error {
	entityID, err := valueobjects.NewEntityID(cmd.EntityID)
	if err != nil {
		return err
	}

	label, err := valueobjects.NewUniversalLabel(cmd.LabelID, cmd.LabelText)
	if err != nil {
		return err
	}
	label.DataType = cmd.DataType
	label.Importance = valueobjects.Importance(cmd.Importance)
	label.Description = cmd.Description
	label.Definition = cmd.Definition
	label.Formula = cmd.Formula

	if err := h.engine.RegisterNode(ctx, cmd.UserID, entityID, label, cmd.InitialValue); err != nil {
		return err
	}

	h.logger.Debug("node registered",
		zap.String("user_id", cmd.UserID),
		zap.String("entity_id", cmd.EntityID))
	return nil
}
