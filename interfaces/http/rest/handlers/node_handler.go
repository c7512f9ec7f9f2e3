package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/commands/bus"
	"esgss-backend/application/queries"
	querybus "esgss-backend/application/queries/bus"
	"esgss-backend/pkg/auth"
	"esgss-backend/pkg/utils"
)

// NodeHandler handles registry and evolution HTTP requests
type NodeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// RegisterNodeRequest represents the request body for registering a node
type RegisterNodeRequest struct {
	EntityID     string `json:"entityId" validate:"required,min=1,max=120"`
	LabelID      string `json:"labelId" validate:"required,min=1,max=120"`
	LabelText    string `json:"labelText" validate:"required,min=1,max=200"`
	DataType     string `json:"dataType,omitempty" validate:"max=60"`
	Importance   string `json:"importance,omitempty" validate:"omitempty,oneof=critical high medium low"`
	Description  string `json:"description,omitempty" validate:"max=2000"`
	Definition   string `json:"definition,omitempty" validate:"max=2000"`
	Formula      string `json:"formula,omitempty" validate:"max=500"`
	InitialValue any    `json:"initialValue,omitempty"`
}

// RecordInteractionRequest represents an interaction event on a node
type RecordInteractionRequest struct {
	EventType string     `json:"eventType" validate:"required,oneof=click hover edit ai-trigger"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Payload   any        `json:"payload,omitempty"`
}

// AgentUpdateRequest represents a pipeline-driven node update
type AgentUpdateRequest struct {
	Value      any      `json:"value,omitempty"`
	HasValue   bool     `json:"hasValue,omitempty"`
	Confidence *string  `json:"confidence,omitempty" validate:"omitempty,oneof=high medium low"`
	Traits     []string `json:"traits,omitempty" validate:"omitempty,max=8,dive,min=1,max=30"`
	AIInsight  *string  `json:"aiInsight,omitempty" validate:"omitempty,max=2000"`
}

// RegisterNode handles POST /nodes
func (h *NodeHandler) RegisterNode(w http.ResponseWriter, r *http.Request) {
	var req RegisterNodeRequest
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

	cmd := commands.RegisterNodeCommand{
		UserID:       userCtx.UserID,
		EntityID:     req.EntityID,
		LabelID:      req.LabelID,
		LabelText:    req.LabelText,
		DataType:     req.DataType,
		Importance:   req.Importance,
		Description:  req.Description,
		Definition:   req.Definition,
		Formula:      req.Formula,
		InitialValue: req.InitialValue,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to register node",
			zap.String("userID", userCtx.UserID),
			zap.String("entityID", req.EntityID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "validation") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to register node")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{
		"entityId": req.EntityID,
		"message":  "Node registered",
	})
}

// RecordInteraction handles POST /nodes/{entityID}/interactions.
// Unknown entity IDs are accepted and dropped so dashboards never see
// errors from stale widget wiring.
func (h *NodeHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		h.respondError(w, http.StatusBadRequest, "Entity ID is required")
		return
	}

	var req RecordInteractionRequest
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

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	cmd := commands.RecordInteractionCommand{
		UserID:    userCtx.UserID,
		EntityID:  entityID,
		EventType: req.EventType,
		Timestamp: ts,
		Payload:   req.Payload,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to record interaction",
			zap.String("userID", userCtx.UserID),
			zap.String("entityID", entityID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "validation") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to record interaction")
		}
		return
	}

	h.respondJSON(w, http.StatusAccepted, map[string]string{
		"entityId": entityID,
		"message":  "Interaction recorded",
	})
}

// AgentUpdate handles POST /nodes/{entityID}/agent-update
func (h *NodeHandler) AgentUpdate(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		h.respondError(w, http.StatusBadRequest, "Entity ID is required")
		return
	}

	var req AgentUpdateRequest
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

	cmd := commands.AgentUpdateCommand{
		UserID:     userCtx.UserID,
		EntityID:   entityID,
		Value:      req.Value,
		HasValue:   req.HasValue,
		Confidence: req.Confidence,
		Traits:     req.Traits,
		AIInsight:  req.AIInsight,
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to apply agent update",
			zap.String("userID", userCtx.UserID),
			zap.String("entityID", entityID),
			zap.Error(err),
		)
		if strings.Contains(err.Error(), "empty") || strings.Contains(err.Error(), "validation") {
			h.respondError(w, http.StatusBadRequest, err.Error())
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to apply agent update")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"entityId": entityID,
		"message":  "Agent update applied",
	})
}

// GetNode handles GET /nodes/{entityID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		h.respondError(w, http.StatusBadRequest, "Entity ID is required")
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{
		UserID:   userCtx.UserID,
		EntityID: entityID,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Node not found")
		} else {
			h.logger.Error("Failed to get node",
				zap.String("entityID", entityID),
				zap.Error(err),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to retrieve node")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ListNodes handles GET /nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListNodesQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("Failed to list nodes",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to list nodes")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetHeatMap handles GET /nodes/heatmap
func (h *NodeHandler) GetHeatMap(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetHeatMapQuery{UserID: userCtx.UserID})
	if err != nil {
		h.logger.Error("Failed to build heat map",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to build heat map")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ResetRegistry handles POST /registry/reset
func (h *NodeHandler) ResetRegistry(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cmd := commands.ResetRegistryCommand{UserID: userCtx.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to reset registry",
			zap.String("userID", userCtx.UserID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to reset registry")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Registry reset",
	})
}

// Helper methods

func (h *NodeHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *NodeHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
