package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/commands/bus"
	"esgss-backend/application/queries"
	querybus "esgss-backend/application/queries/bus"
	"esgss-backend/pkg/auth"
	"esgss-backend/pkg/utils"
)

// CardHandler handles glossary card HTTP requests
type CardHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	acquire    *commands.AcquireCardHandler
	logger     *zap.Logger
}

// NewCardHandler creates a new card handler. The acquire handler is
// taken directly because callers need the minted card back.
func NewCardHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	acquire *commands.AcquireCardHandler,
	logger *zap.Logger,
) *CardHandler {
	return &CardHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		acquire:    acquire,
		logger:     logger,
	}
}

// AcquireCardRequest represents the request body for acquiring a card
type AcquireCardRequest struct {
	Term       string `json:"term" validate:"required,min=1,max=200"`
	Definition string `json:"definition" validate:"required,min=1,max=2000"`
	Attribute  string `json:"attribute" validate:"required,oneof=E S G"`
	Category   string `json:"category,omitempty" validate:"max=100"`
	Defense    int    `json:"defense" validate:"min=0,max=9999"`
	Offense    int    `json:"offense" validate:"min=0,max=9999"`
}

// ReviewCardRequest represents the outcome of a review round
type ReviewCardRequest struct {
	Success bool `json:"success"`
}

// AcquireCard handles POST /cards
func (h *CardHandler) AcquireCard(w http.ResponseWriter, r *http.Request) {
	var req AcquireCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.AcquireCardCommand{
		UserID:     userCtx.UserID,
		Term:       req.Term,
		Definition: req.Definition,
		Attribute:  req.Attribute,
		Category:   req.Category,
		Defense:    req.Defense,
		Offense:    req.Offense,
	}

	card, err := h.acquire.Handle(r.Context(), cmd)
	if err != nil {
		h.logger.Error("Failed to acquire card",
			zap.String("userID", userCtx.UserID),
			zap.String("term", req.Term),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "validation") || strings.Contains(err.Error(), "required") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to acquire card")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, queries.CardView{
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
		ReviewCount: card.ReviewCount(),
	})
}

// GetCard handles GET /cards/{cardID}
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		h.respondError(w, http.StatusBadRequest, "Card ID is required")
		return
	}
	if _, err := uuid.Parse(cardID); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid card ID format")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetCardQuery{
		UserID: userCtx.UserID,
		CardID: cardID,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Card not found")
		} else {
			h.logger.Error("Failed to get card",
				zap.String("cardID", cardID),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to retrieve card")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ListCards handles GET /cards
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	query := queries.ListCardsQuery{
		UserID:       userCtx.UserID,
		PurifiedOnly: r.URL.Query().Get("purified") == "true",
		Attribute:    r.URL.Query().Get("attribute"),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		if strings.Contains(err.Error(), "validation") || strings.Contains(err.Error(), "must be") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.logger.Error("Failed to list cards",
				zap.String("userID", userCtx.UserID),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to list cards")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ReviewCard handles POST /cards/{cardID}/reviews
func (h *CardHandler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		h.respondError(w, http.StatusBadRequest, "Card ID is required")
		return
	}

	var req ReviewCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.ReviewCardCommand{
		UserID:  userCtx.UserID,
		CardID:  cardID,
		Success: req.Success,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Card not found")
		} else {
			h.logger.Error("Failed to review card",
				zap.String("cardID", cardID),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to review card")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"cardId":  cardID,
		"message": "Review recorded",
	})
}

// DeleteCard handles DELETE /cards/{cardID}
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		h.respondError(w, http.StatusBadRequest, "Card ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.DeleteCardCommand{
		UserID: userCtx.UserID,
		CardID: cardID,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Card not found")
		} else {
			h.logger.Error("Failed to delete card",
				zap.String("cardID", cardID),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to delete card")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /profile
func (h *CardHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetProfileQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("Failed to get profile",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Helper methods

func (h *CardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *CardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
