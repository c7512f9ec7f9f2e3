package queries

import (
	"errors"
	"time"

	"esgss-backend/domain/core/valueobjects"
)

// GetNodeQuery represents a query to get a single knowledge node
type GetNodeQuery struct {
	UserID   string
	EntityID string
}

// Validate validates the GetNodeQuery
func (q GetNodeQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.EntityID == "" {
		return errors.New("entity ID is required")
	}
	return nil
}

// ListNodesQuery represents a query for every node in a user's registry
type ListNodesQuery struct {
	UserID string
}

// Validate validates the ListNodesQuery
func (q ListNodesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetHeatMapQuery asks for the accumulated interaction weight of each
// node, used to size and color dashboard tiles
type GetHeatMapQuery struct {
	UserID string
}

// Validate validates the GetHeatMapQuery
func (q GetHeatMapQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// MemoryEntryView is one remembered interaction
type MemoryEntryView struct {
	Event     string    `json:"event"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// NodeView is the client-facing shape of a knowledge node
type NodeView struct {
	ID               string                      `json:"id"`
	Label            valueobjects.UniversalLabel `json:"label"`
	CurrentValue     any                         `json:"currentValue"`
	Traits           []string                    `json:"traits"`
	Confidence       string                      `json:"confidence"`
	InteractionCount int                         `json:"interactionCount"`
	LastInteraction  time.Time                   `json:"lastInteraction"`
	HeatScore        float64                     `json:"heatScore"`
	History          []MemoryEntryView           `json:"history"`
	AIInsights       []string                    `json:"aiInsights"`
}

// ListNodesResult wraps the registry listing
type ListNodesResult struct {
	Nodes []NodeView `json:"nodes"`
	Total int        `json:"total"`
}

// HeatMapResult maps entity IDs to heat scores
type HeatMapResult struct {
	Scores map[string]float64 `json:"scores"`
}
