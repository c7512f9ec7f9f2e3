package commands

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/utils"
)

// AcquireCardCommand mints a sealed glossary card for a user
type AcquireCardCommand struct {
	UserID     string `json:"user_id" validate:"required"`
	Term       string `json:"term" validate:"required,min=1,max=200"`
	Definition string `json:"definition" validate:"required,min=1,max=2000"`
	Attribute  string `json:"attribute" validate:"required,oneof=E S G"`
	Category   string `json:"category" validate:"max=100"`
	Defense    int    `json:"defense" validate:"min=0,max=9999"`
	Offense    int    `json:"offense" validate:"min=0,max=9999"`
}

// Validate checks the command fields
func (c AcquireCardCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AcquireCardHandler handles the AcquireCardCommand
type AcquireCardHandler struct {
	cards     ports.CardRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewAcquireCardHandler creates a new handler instance
func NewAcquireCardHandler(cards ports.CardRepository, publisher ports.EventPublisher, logger *zap.Logger) *AcquireCardHandler {
	return &AcquireCardHandler{cards: cards, publisher: publisher, logger: logger}
}

// Handle executes the acquire card command and returns the new card
func (h *AcquireCardHandler) Handle(ctx context.Context, cmd AcquireCardCommand) (*entities.Card, error) {
	cardID, err := valueobjects.NewEntityID(uuid.New().String())
	if err != nil {
		return nil, err
	}

	card, err := entities.NewCard(
		cardID,
		cmd.UserID,
		cmd.Term,
		cmd.Definition,
		entities.CardAttribute(cmd.Attribute),
		cmd.Category,
		cmd.Defense,
		cmd.Offense,
	)
	if err != nil {
		return nil, err
	}

	if err := h.cards.Save(ctx, card); err != nil {
		return nil, err
	}

	h.logger.Info("card acquired",
		zap.String("user_id", cmd.UserID),
		zap.String("card_id", cardID.String()),
		zap.String("term", cmd.Term))
	return card, nil
}
