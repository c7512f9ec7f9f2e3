package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"esgss-backend/application/services"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/auth"
	apperrors "esgss-backend/pkg/errors"
)

// PurificationHandler drives the card purification session over HTTP.
// The session itself lives in the purification service; these routes
// only move it between states.
type PurificationHandler struct {
	purification *services.PurificationService
	logger       *zap.Logger
}

// NewPurificationHandler creates a new purification handler
func NewPurificationHandler(purification *services.PurificationService, logger *zap.Logger) *PurificationHandler {
	return &PurificationHandler{
		purification: purification,
		logger:       logger,
	}
}

// SubmitAnswerRequest carries the chosen quiz option
type SubmitAnswerRequest struct {
	AnswerIndex int `json:"answerIndex"`
}

// Start handles POST /purification/{cardID}
func (h *PurificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cardID, err := valueobjects.NewEntityID(chi.URLParam(r, "cardID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Card ID is required")
		return
	}

	view, err := h.purification.Start(r.Context(), userCtx.UserID, cardID)
	if err != nil {
		h.respondAppError(w, err, "Failed to start purification")
		return
	}

	h.respondJSON(w, http.StatusCreated, view)
}

// BeginQuiz handles POST /purification/quiz
func (h *PurificationHandler) BeginQuiz(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	view, err := h.purification.BeginQuiz(r.Context(), userCtx.UserID)
	if err != nil {
		h.respondAppError(w, err, "Failed to generate quiz")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// SubmitAnswer handles POST /purification/answer
func (h *PurificationHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.purification.SubmitAnswer(r.Context(), userCtx.UserID, req.AnswerIndex)
	if err != nil {
		h.respondAppError(w, err, "Failed to submit answer")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// Retry handles POST /purification/retry
func (h *PurificationHandler) Retry(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	view, err := h.purification.Retry(r.Context(), userCtx.UserID)
	if err != nil {
		h.respondAppError(w, err, "Failed to retry purification")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// GetSession handles GET /purification
func (h *PurificationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	view, err := h.purification.Session(r.Context(), userCtx.UserID)
	if err != nil {
		h.respondAppError(w, err, "No purification session")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// Close handles DELETE /purification
func (h *PurificationHandler) Close(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.purification.Close(r.Context(), userCtx.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// respondAppError maps application error types to HTTP status codes
func (h *PurificationHandler) respondAppError(w http.ResponseWriter, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			h.respondError(w, http.StatusNotFound, appErr.Message)
			return
		case apperrors.ErrorTypeConflict:
			h.respondError(w, http.StatusConflict, appErr.Message)
			return
		case apperrors.ErrorTypeValidation:
			h.respondError(w, http.StatusBadRequest, appErr.Message)
			return
		case apperrors.ErrorTypeExternal, apperrors.ErrorTypeTimeout:
			h.respondError(w, http.StatusServiceUnavailable, appErr.Message)
			return
		}
	}
	h.logger.Error(fallback, zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, fallback)
}

func (h *PurificationHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *PurificationHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
