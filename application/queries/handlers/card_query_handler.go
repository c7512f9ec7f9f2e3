package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/application/queries"
	"esgss-backend/application/services"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

// CardQueryHandler answers read queries against the card binder and
// the progression profile
type CardQueryHandler struct {
	cards   ports.CardRepository
	rewards *services.RewardService
	cache   ports.Cache
	logger  *zap.Logger
}

// NewCardQueryHandler creates a new card query handler
func NewCardQueryHandler(cards ports.CardRepository, rewards *services.RewardService, cache ports.Cache, logger *zap.Logger) *CardQueryHandler {
	return &CardQueryHandler{cards: cards, rewards: rewards, cache: cache, logger: logger}
}

// HandleGetCard executes the get card query
func (h *CardQueryHandler) HandleGetCard(ctx context.Context, query queries.GetCardQuery) (*queries.CardView, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	cardID, err := valueobjects.NewEntityID(query.CardID)
	if err != nil {
		return nil, err
	}

	card, err := h.cards.GetByID(ctx, query.UserID, cardID)
	if err != nil {
		return nil, err
	}
	view := toCardView(card)
	return &view, nil
}

// HandleListCards executes the list cards query
func (h *CardQueryHandler) HandleListCards(ctx context.Context, query queries.ListCardsQuery) (*queries.ListCardsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	cards, err := h.cards.GetByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]queries.CardView, 0, len(cards))
	for _, card := range cards {
		if query.PurifiedOnly && !card.IsPurified() {
			continue
		}
		if query.Attribute != "" && string(card.Attribute()) != query.Attribute {
			continue
		}
		views = append(views, toCardView(card))
	}
	return &queries.ListCardsResult{Cards: views, Total: len(views)}, nil
}

// HandleGetProfile executes the profile query
func (h *CardQueryHandler) HandleGetProfile(ctx context.Context, query queries.GetProfileQuery) (*services.ProfileSummary, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	summary, err := h.rewards.Profile(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func toCardView(card *entities.Card) queries.CardView {
	return queries.CardView{
		ID:          card.ID().String(),
		Term:        card.Term(),
		Definition:  card.Definition(),
		Attribute:   string(card.Attribute()),
		Category:    card.Category(),
		Defense:     card.Defense(),
		Offense:     card.Offense(),
		Mastery:     string(card.Mastery()),
		Purified:    card.IsPurified(),
		AcquiredAt:  card.AcquiredAt(),
		PurifiedAt:  card.PurifiedAt(),
		ReviewCount: card.ReviewCount(),
	}
}
