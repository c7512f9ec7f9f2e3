package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esgss-backend/application/queries"
	"esgss-backend/application/services"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

// RegistryQueryHandler answers read queries against the evolution
// registry
type RegistryQueryHandler struct {
	engine *services.EvolutionEngine
	logger *zap.Logger
}

// NewRegistryQueryHandler creates a new registry query handler
func NewRegistryQueryHandler(engine *services.EvolutionEngine, logger *zap.Logger) *RegistryQueryHandler {
	return &RegistryQueryHandler{engine: engine, logger: logger}
}

// HandleGetNode executes the get node query
func (h *RegistryQueryHandler) HandleGetNode(ctx context.Context, query queries.GetNodeQuery) (*queries.NodeView, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	entityID, err := valueobjects.NewEntityID(query.EntityID)
	if err != nil {
		return nil, err
	}

	snapshot, err := h.engine.GetNode(ctx, query.UserID, entityID)
	if err != nil {
		return nil, err
	}
	view := toNodeView(snapshot)
	return &view, nil
}

// HandleListNodes executes the list nodes query
func (h *RegistryQueryHandler) HandleListNodes(ctx context.Context, query queries.ListNodesQuery) (*queries.ListNodesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	snapshots, err := h.engine.ListNodes(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]queries.NodeView, 0, len(snapshots))
	for _, snap := range snapshots {
		views = append(views, toNodeView(snap))
	}
	return &queries.ListNodesResult{Nodes: views, Total: len(views)}, nil
}

// HandleGetHeatMap executes the heat map query
func (h *RegistryQueryHandler) HandleGetHeatMap(ctx context.Context, query queries.GetHeatMapQuery) (*queries.HeatMapResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	scores, err := h.engine.HeatScores(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	return &queries.HeatMapResult{Scores: scores}, nil
}

func toNodeView(snap entities.NodeSnapshot) queries.NodeView {
	traits := make([]string, 0, len(snap.Traits))
	for _, t := range snap.Traits {
		traits = append(traits, string(t))
	}
	history := make([]queries.MemoryEntryView, 0, len(snap.History))
	var heat float64
	for _, entry := range snap.History {
		heat += entry.Weight
		history = append(history, queries.MemoryEntryView{
			Event:     string(entry.EventType),
			Weight:    entry.Weight,
			Timestamp: entry.Timestamp,
		})
	}
	return queries.NodeView{
		ID:               snap.ID.String(),
		Label:            snap.Label,
		CurrentValue:     snap.CurrentValue,
		Traits:           traits,
		Confidence:       string(snap.Confidence),
		InteractionCount: snap.InteractionCount,
		LastInteraction:  snap.LastInteraction,
		HeatScore:        heat,
		History:          history,
		AIInsights:       snap.AIInsights,
	}
}
