package entities

import (
	"fmt"
	"time"

	"esgss-backend/domain/config"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/domain/events"
	"esgss-backend/pkg/errors"
)

// MemoryEntry is one recorded interaction in a node's history
type MemoryEntry struct {
	EventType valueobjects.InteractionType `json:"event"`
	Weight    float64                      `json:"weight"`
	Timestamp time.Time                    `json:"timestamp"`
}

// KnowledgeNode is a living data point on the sustainability dashboard.
// Every interaction it receives is remembered and can reshape its traits.
type KnowledgeNode struct {
	id               valueobjects.EntityID
	label            valueobjects.UniversalLabel
	currentValue     any
	traits           valueobjects.TraitSet
	confidence       valueobjects.Confidence
	interactionCount int
	lastInteraction  time.Time
	history          []MemoryEntry
	aiInsights       []string

	domainEvents []events.DomainEvent
}

// NewKnowledgeNode registers a fresh node with no interaction history
func NewKnowledgeNode(id valueobjects.EntityID, label valueobjects.UniversalLabel, initialValue any) (*KnowledgeNode, error) {
	if id.IsZero() {
		return nil, errors.NewValidationError("entity ID cannot be empty")
	}
	if label.IsZero() {
		return nil, errors.NewValidationError("label cannot be empty")
	}

	now := time.Now()
	node := &KnowledgeNode{
		id:              id,
		label:           label,
		currentValue:    initialValue,
		traits:          valueobjects.TraitSet{},
		confidence:      valueobjects.ConfidenceHigh,
		lastInteraction: now,
		history:         []MemoryEntry{},
		aiInsights:      []string{},
	}
	node.addDomainEvent(events.NewNodeRegistered(id, label, now))
	return node, nil
}

// RecordInteraction applies one user interaction to the node.
// It appends to memory, bumps counters and evolves traits by the
// configured rules. Returns true when the trait set changed.
func (n *KnowledgeNode) RecordInteraction(event valueobjects.InteractionEvent, cfg config.EvolutionConfig, maxHistory int) bool {
	n.interactionCount++
	n.lastInteraction = event.Timestamp

	weight := event.EventType.Weight()
	if w, ok := cfg.InteractionWeights[event.EventType]; ok {
		weight = w
	}
	n.history = append(n.history, MemoryEntry{
		EventType: event.EventType,
		Weight:    weight,
		Timestamp: event.Timestamp,
	})
	if maxHistory > 0 && len(n.history) > maxHistory {
		n.history = n.history[len(n.history)-maxHistory:]
	}

	changed := false
	// Thresholds compare the raw interaction count, never the weights.
	if n.interactionCount > cfg.OptimizationThreshold {
		changed = n.traits.Add(valueobjects.TraitOptimization) || changed
	}
	if n.interactionCount > cfg.PerformanceThreshold {
		changed = n.traits.Add(valueobjects.TraitPerformance) || changed
	}
	if n.interactionCount > cfg.EvolutionThreshold {
		changed = n.traits.Add(valueobjects.TraitEvolution) || changed
	}

	switch event.EventType {
	case valueobjects.InteractionAITrigger:
		changed = n.traits.Add(valueobjects.TraitLearning) || changed
	case valueobjects.InteractionEdit:
		// A human correction supersedes any AI estimate.
		changed = n.traits.Remove(valueobjects.TraitGapFilling) || changed
		n.confidence = valueobjects.ConfidenceHigh
		if event.Payload != nil {
			n.currentValue = event.Payload
		}
	}

	n.addDomainEvent(events.NewNodeEvolved(
		n.id, event.EventType, n.interactionCount, n.traits.Slice(), changed, event.Timestamp,
	))
	return changed
}

// AgentUpdateFields carries the optional overwrites an automated agent
// may apply to a node. Nil pointers mean "leave unchanged".
type AgentUpdateFields struct {
	Value      any
	HasValue   bool
	Confidence *valueobjects.Confidence
	Traits     []valueobjects.Trait
	AIInsight  *string
}

// ApplyAgentUpdate overwrites node fields from an automated process.
// Unlike RecordInteraction it does not touch counters or thresholds.
func (n *KnowledgeNode) ApplyAgentUpdate(update AgentUpdateFields, maxInsights int) ([]string, error) {
	var updated []string

	if update.HasValue {
		n.currentValue = update.Value
		updated = append(updated, "currentValue")
	}
	if update.Confidence != nil {
		if !update.Confidence.IsValid() {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid confidence level: %s", *update.Confidence))
		}
		n.confidence = *update.Confidence
		updated = append(updated, "confidence")
	}
	if update.Traits != nil {
		traits, err := valueobjects.NewTraitSet(update.Traits...)
		if err != nil {
			return nil, err
		}
		n.traits = traits
		updated = append(updated, "traits")
	}
	if update.AIInsight != nil && *update.AIInsight != "" {
		n.aiInsights = append(n.aiInsights, *update.AIInsight)
		if maxInsights > 0 && len(n.aiInsights) > maxInsights {
			n.aiInsights = n.aiInsights[len(n.aiInsights)-maxInsights:]
		}
		updated = append(updated, "aiInsights")
	}

	if len(updated) == 0 {
		return nil, errors.NewValidationError("agent update carries no fields")
	}

	n.lastInteraction = time.Now()
	n.addDomainEvent(events.NewNodeAgentUpdated(n.id, updated, n.lastInteraction))
	return updated, nil
}

// HeatScore sums the interaction weights in memory. The dashboard uses
// it to size and color nodes.
func (n *KnowledgeNode) HeatScore() float64 {
	var total float64
	for _, entry := range n.history {
		total += entry.Weight
	}
	return total
}

// Getters

func (n *KnowledgeNode) ID() valueobjects.EntityID           { return n.id }
func (n *KnowledgeNode) Label() valueobjects.UniversalLabel  { return n.label }
func (n *KnowledgeNode) CurrentValue() any                   { return n.currentValue }
func (n *KnowledgeNode) Confidence() valueobjects.Confidence { return n.confidence }
func (n *KnowledgeNode) InteractionCount() int               { return n.interactionCount }
func (n *KnowledgeNode) LastInteraction() time.Time          { return n.lastInteraction }
func (n *KnowledgeNode) Traits() valueobjects.TraitSet       { return n.traits.Clone() }
func (n *KnowledgeNode) HasTrait(t valueobjects.Trait) bool  { return n.traits.Contains(t) }

// History returns a copy of the interaction memory
func (n *KnowledgeNode) History() []MemoryEntry {
	out := make([]MemoryEntry, len(n.history))
	copy(out, n.history)
	return out
}

// AIInsights returns a copy of accumulated agent insights
func (n *KnowledgeNode) AIInsights() []string {
	out := make([]string, len(n.aiInsights))
	copy(out, n.aiInsights)
	return out
}

// Domain event management

func (n *KnowledgeNode) addDomainEvent(event events.DomainEvent) {
	n.domainEvents = append(n.domainEvents, event)
}

// GetUncommittedEvents returns events raised since the last commit
func (n *KnowledgeNode) GetUncommittedEvents() []events.DomainEvent {
	return n.domainEvents
}

// MarkEventsAsCommitted clears the uncommitted event list
func (n *KnowledgeNode) MarkEventsAsCommitted() {
	n.domainEvents = nil
}

// Persistence

// NodeSnapshot is the serialized form of a node inside the registry blob
type NodeSnapshot struct {
	ID               valueobjects.EntityID        `json:"id"`
	Label            valueobjects.UniversalLabel  `json:"label"`
	CurrentValue     any                          `json:"currentValue"`
	Traits           []valueobjects.Trait         `json:"traits"`
	Confidence       valueobjects.Confidence      `json:"confidence"`
	InteractionCount int                          `json:"interactionCount"`
	LastInteraction  time.Time                    `json:"lastInteraction"`
	History          []MemoryEntry                `json:"history"`
	AIInsights       []string                     `json:"aiInsights"`
}

// Snapshot captures the node state for persistence
func (n *KnowledgeNode) Snapshot() NodeSnapshot {
	return NodeSnapshot{
		ID:               n.id,
		Label:            n.label,
		CurrentValue:     n.currentValue,
		Traits:           n.traits.Slice(),
		Confidence:       n.confidence,
		InteractionCount: n.interactionCount,
		LastInteraction:  n.lastInteraction,
		History:          n.History(),
		AIInsights:       n.AIInsights(),
	}
}

// ReconstructNode rebuilds a node from its persisted snapshot without
// raising domain events
func ReconstructNode(s NodeSnapshot) (*KnowledgeNode, error) {
	if s.ID.IsZero() {
		return nil, errors.NewValidationError("snapshot missing entity ID")
	}
	traits, err := valueobjects.NewTraitSet(s.Traits...)
	if err != nil {
		return nil, err
	}
	confidence := s.Confidence
	if !confidence.IsValid() {
		confidence = valueobjects.ConfidenceHigh
	}
	history := s.History
	if history == nil {
		history = []MemoryEntry{}
	}
	insights := s.AIInsights
	if insights == nil {
		insights = []string{}
	}
	return &KnowledgeNode{
		id:               s.ID,
		label:            s.Label,
		currentValue:     s.CurrentValue,
		traits:           traits,
		confidence:       confidence,
		interactionCount: s.InteractionCount,
		lastInteraction:  s.LastInteraction,
		history:          history,
		aiInsights:       insights,
	}, nil
}
