package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/application/services"
	"esgss-backend/domain/events"
	"esgss-backend/pkg/utils"
)

// ResetRegistryCommand wipes a user's evolution registry. Used by the
// dashboard's "start fresh" admin action.
type ResetRegistryCommand struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate checks the command fields
func (c ResetRegistryCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ResetRegistryHandler handles the ResetRegistryCommand
type ResetRegistryHandler struct {
	engine    *services.EvolutionEngine
	cache     ports.Cache
	publisher ports.EventPublisher
	audit     ports.EventStore
	logger    *zap.Logger
}

// NewResetRegistryHandler creates a new handler instance
func NewResetRegistryHandler(
	engine *services.EvolutionEngine,
	cache ports.Cache,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	logger *zap.Logger,
) *ResetRegistryHandler {
	return &ResetRegistryHandler{
		engine:    engine,
		cache:     cache,
		publisher: publisher,
		audit:     audit,
		logger:    logger,
	}
}

// Handle executes the reset registry command
func (h *ResetRegistryHandler) Handle(ctx context.Context, cmd ResetRegistryCommand) error {
	count, err := h.engine.Reset(ctx, cmd.UserID)
	if err != nil {
		return err
	}

	if h.cache != nil {
		if err := h.cache.Delete(ctx, "registry:"+cmd.UserID); err != nil {
			h.logger.Warn("failed to invalidate registry cache",
				zap.String("user_id", cmd.UserID), zap.Error(err))
		}
	}

	event := events.NewRegistryReset(cmd.UserID, count, time.Now())
	if h.audit != nil {
		if err := h.audit.SaveEvents(ctx, []events.DomainEvent{event}); err != nil {
			h.logger.Error("failed to audit registry reset", zap.Error(err))
		}
	}
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.Error("failed to publish registry reset", zap.Error(err))
		}
	}

	h.logger.Info("registry reset",
		zap.String("user_id", cmd.UserID), zap.Int("nodes_removed", count))
	return nil
}
