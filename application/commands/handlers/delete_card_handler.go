package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/ports"
	"esgss-backend/domain/core/valueobjects"
)

// DeleteCardHandler handles card deletion commands
type DeleteCardHandler struct {
	cards  ports.CardRepository
	cache  ports.Cache
	logger *zap.Logger
}

// NewDeleteCardHandler creates a new delete card handler
func NewDeleteCardHandler(cards ports.CardRepository, cache ports.Cache, logger *zap.Logger) *DeleteCardHandler {
	return &DeleteCardHandler{cards: cards, cache: cache, logger: logger}
}

// Handle executes the delete card command
func (h *DeleteCardHandler) Handle(ctx context.Context, cmd commands.DeleteCardCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	cardID, err := valueobjects.NewEntityID(cmd.CardID)
	if err != nil {
		return fmt.Errorf("invalid card ID: %w", err)
	}

	// Ownership check happens through the user-scoped lookup.
	if _, err := h.cards.GetByID(ctx, cmd.UserID, cardID); err != nil {
		return err
	}

	if err := h.cards.Delete(ctx, cmd.UserID, cardID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Delete(ctx, "cards:"+cmd.UserID); err != nil {
			h.logger.Warn("failed to invalidate card cache", zap.Error(err))
		}
	}

	h.logger.Info("card deleted",
		zap.String("user_id", cmd.UserID), zap.String("card_id", cmd.CardID))
	return nil
}
