package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/ports"
	"esgss-backend/domain/core/valueobjects"
)

// ReviewCardHandler handles card review commands
type ReviewCardHandler struct {
	cards     ports.CardRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewReviewCardHandler creates a new review card handler
func NewReviewCardHandler(cards ports.CardRepository, publisher ports.EventPublisher, logger *zap.Logger) *ReviewCardHandler {
	return &ReviewCardHandler{cards: cards, publisher: publisher, logger: logger}
}

// Handle executes the review card command
func (h *ReviewCardHandler) Handle(ctx context.Context, cmd commands.ReviewCardCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	cardID, err := valueobjects.NewEntityID(cmd.CardID)
	if err != nil {
		return fmt.Errorf("invalid card ID: %w", err)
	}

	card, err := h.cards.GetByID(ctx, cmd.UserID, cardID)
	if err != nil {
		return fmt.Errorf("failed to get card: %w", err)
	}

	before := card.Mastery()
	card.RecordReview(cmd.Success)

	if err := h.cards.Save(ctx, card); err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}

	pending := card.GetUncommittedEvents()
	if h.publisher != nil && len(pending) > 0 {
		if err := h.publisher.PublishBatch(ctx, pending); err != nil {
			h.logger.Error("failed to publish review events", zap.Error(err))
		}
	}
	card.MarkEventsAsCommitted()

	if card.Mastery() != before {
		h.logger.Info("card mastery changed",
			zap.String("card_id", cmd.CardID),
			zap.String("from", string(before)),
			zap.String("to", string(card.Mastery())))
	}
	return nil
}
