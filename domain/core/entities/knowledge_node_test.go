package entities_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/domain/config"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

func newTestNode(t *testing.T) *entities.KnowledgeNode {
	t.Helper()
	id, err := valueobjects.NewEntityID("kpi-carbon-intensity")
	require.NoError(t, err)
	label, err := valueobjects.NewUniversalLabel("carbon-intensity", "Carbon Intensity")
	require.NoError(t, err)

	node, err := entities.NewKnowledgeNode(id, label, 42.5)
	require.NoError(t, err)
	node.MarkEventsAsCommitted()
	return node
}

func interact(t *testing.T, node *entities.KnowledgeNode, kind valueobjects.InteractionType, payload any) bool {
	t.Helper()
	event, err := valueobjects.NewInteractionEvent(node.ID(), kind, time.Now(), payload)
	require.NoError(t, err)
	cfg := config.DefaultDomainConfig()
	return node.RecordInteraction(event, cfg.Evolution, cfg.Limits.MaxMemoryEntries)
}

func TestKnowledgeNode_Creation(t *testing.T) {
	// Arrange
	id, err := valueobjects.NewEntityID("kpi-water-usage")
	require.NoError(t, err)
	label, err := valueobjects.NewUniversalLabel("water-usage", "Water Usage")
	require.NoError(t, err)

	// Act
	node, err := entities.NewKnowledgeNode(id, label, 100)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, id, node.ID())
	assert.Equal(t, 100, node.CurrentValue())
	assert.Equal(t, valueobjects.ConfidenceHigh, node.Confidence())
	assert.Equal(t, 0, node.InteractionCount())
	assert.Equal(t, 0, node.Traits().Len())
	assert.Len(t, node.GetUncommittedEvents(), 1)
}

func TestKnowledgeNode_CreationRejectsEmptyIdentity(t *testing.T) {
	label, err := valueobjects.NewUniversalLabel("x", "X")
	require.NoError(t, err)

	_, err = entities.NewKnowledgeNode(valueobjects.EntityID{}, label, nil)
	assert.Error(t, err)

	id, err := valueobjects.NewEntityID("kpi-x")
	require.NoError(t, err)
	_, err = entities.NewKnowledgeNode(id, valueobjects.UniversalLabel{}, nil)
	assert.Error(t, err)
}

func TestKnowledgeNode_TraitThresholds(t *testing.T) {
	node := newTestNode(t)

	// Five clicks stay below the first threshold
	for i := 0; i < 5; i++ {
		interact(t, node, valueobjects.InteractionClick, nil)
	}
	assert.False(t, node.HasTrait(valueobjects.TraitOptimization))

	// The sixth crosses it
	changed := interact(t, node, valueobjects.InteractionClick, nil)
	assert.True(t, changed)
	assert.True(t, node.HasTrait(valueobjects.TraitOptimization))
	assert.False(t, node.HasTrait(valueobjects.TraitPerformance))

	for node.InteractionCount() < 21 {
		interact(t, node, valueobjects.InteractionClick, nil)
	}
	assert.True(t, node.HasTrait(valueobjects.TraitPerformance))
	assert.False(t, node.HasTrait(valueobjects.TraitEvolution))

	for node.InteractionCount() < 51 {
		interact(t, node, valueobjects.InteractionClick, nil)
	}
	assert.True(t, node.HasTrait(valueobjects.TraitEvolution))
}

func TestKnowledgeNode_HoverCountsTowardThresholds(t *testing.T) {
	node := newTestNode(t)

	// Thresholds look at the raw count, so weightless-feeling hovers
	// evolve traits just like clicks do.
	for i := 0; i < 6; i++ {
		interact(t, node, valueobjects.InteractionHover, nil)
	}
	assert.True(t, node.HasTrait(valueobjects.TraitOptimization))
	assert.InDelta(t, 0.6, node.HeatScore(), 1e-9)
}

func TestKnowledgeNode_AITriggerAddsLearning(t *testing.T) {
	node := newTestNode(t)

	changed := interact(t, node, valueobjects.InteractionAITrigger, nil)

	assert.True(t, changed)
	assert.True(t, node.HasTrait(valueobjects.TraitLearning))
	assert.InDelta(t, 8, node.HeatScore(), 1e-9)
}

func TestKnowledgeNode_EditSupersedesEstimate(t *testing.T) {
	node := newTestNode(t)
	estimate := "estimated from sector averages"
	low := valueobjects.ConfidenceLow
	_, err := node.ApplyAgentUpdate(entities.AgentUpdateFields{
		Value:      99.0,
		HasValue:   true,
		Traits:     []valueobjects.Trait{valueobjects.TraitGapFilling},
		Confidence: &low,
		AIInsight:  &estimate,
	}, 10)
	require.NoError(t, err)
	require.True(t, node.HasTrait(valueobjects.TraitGapFilling))

	changed := interact(t, node, valueobjects.InteractionEdit, 42.0)

	assert.True(t, changed)
	assert.False(t, node.HasTrait(valueobjects.TraitGapFilling))
	assert.Equal(t, valueobjects.ConfidenceHigh, node.Confidence())
	assert.Equal(t, 42.0, node.CurrentValue())
}

func TestKnowledgeNode_EditWithoutPayloadKeepsValue(t *testing.T) {
	node := newTestNode(t)

	interact(t, node, valueobjects.InteractionEdit, nil)

	assert.Equal(t, 42.5, node.CurrentValue())
	assert.Equal(t, valueobjects.ConfidenceHigh, node.Confidence())
}

func TestKnowledgeNode_MemoryIsBounded(t *testing.T) {
	node := newTestNode(t)
	cfg := config.DefaultDomainConfig()
	event, err := valueobjects.NewInteractionEvent(node.ID(), valueobjects.InteractionClick, time.Now(), nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		node.RecordInteraction(event, cfg.Evolution, 3)
	}

	assert.Len(t, node.History(), 3)
	assert.Equal(t, 10, node.InteractionCount())
}

func TestKnowledgeNode_AgentUpdate(t *testing.T) {
	node := newTestNode(t)
	high := valueobjects.ConfidenceHigh
	insight := "value trending down quarter over quarter"

	updated, err := node.ApplyAgentUpdate(entities.AgentUpdateFields{
		Value:      7.7,
		HasValue:   true,
		Confidence: &high,
		AIInsight:  &insight,
	}, 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"currentValue", "confidence", "aiInsights"}, updated)
	assert.Equal(t, 7.7, node.CurrentValue())
	assert.Equal(t, valueobjects.ConfidenceHigh, node.Confidence())
	assert.Equal(t, []string{insight}, node.AIInsights())
	// Counters are for human interactions only
	assert.Equal(t, 0, node.InteractionCount())
}

func TestKnowledgeNode_AgentUpdateRejectsEmpty(t *testing.T) {
	node := newTestNode(t)

	_, err := node.ApplyAgentUpdate(entities.AgentUpdateFields{}, 10)

	assert.Error(t, err)
}

func TestKnowledgeNode_AgentUpdateBoundsInsights(t *testing.T) {
	node := newTestNode(t)

	for _, s := range []string{"first", "second", "third"} {
		insight := s
		_, err := node.ApplyAgentUpdate(entities.AgentUpdateFields{AIInsight: &insight}, 2)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"second", "third"}, node.AIInsights())
}

func TestKnowledgeNode_SnapshotRoundTrip(t *testing.T) {
	node := newTestNode(t)
	interact(t, node, valueobjects.InteractionClick, nil)
	interact(t, node, valueobjects.InteractionAITrigger, nil)

	restored, err := entities.ReconstructNode(node.Snapshot())

	require.NoError(t, err)
	assert.Equal(t, node.ID(), restored.ID())
	assert.Equal(t, node.InteractionCount(), restored.InteractionCount())
	assert.Equal(t, node.Traits().Slice(), restored.Traits().Slice())
	assert.InDelta(t, node.HeatScore(), restored.HeatScore(), 1e-9)
	// Reconstruction raises no events
	assert.Empty(t, restored.GetUncommittedEvents())
}

func TestKnowledgeNode_ReconstructDefaultsConfidenceHigh(t *testing.T) {
	node := newTestNode(t)
	snapshot := node.Snapshot()
	snapshot.Confidence = "uncertain"

	restored, err := entities.ReconstructNode(snapshot)

	require.NoError(t, err)
	assert.Equal(t, valueobjects.ConfidenceHigh, restored.Confidence())
}
