package dynamodb

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/infrastructure/persistence/schema"
)

func TestRegistryItem_RoundTripsThroughAttributeValue(t *testing.T) {
	// Arrange
	id, err := valueobjects.NewEntityID("kpi-scope-2-emissions")
	require.NoError(t, err)
	label, err := valueobjects.TextLabel("Scope 2 Emissions")
	require.NoError(t, err)

	snapshots := map[string]entities.NodeSnapshot{
		id.String(): {
			ID:               id,
			Label:            label,
			CurrentValue:     42.5,
			Traits:           []valueobjects.Trait{valueobjects.TraitOptimization},
			Confidence:       valueobjects.ConfidenceHigh,
			InteractionCount: 6,
			LastInteraction:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			History: []entities.MemoryEntry{
				{EventType: valueobjects.InteractionClick, Weight: 2, Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
			},
		},
	}
	payload, err := json.Marshal(snapshots)
	require.NoError(t, err)

	item := registryItem{
		PK:         "USER#user-1",
		SK:         registrySK(),
		EntityType: "REGISTRY",
		UserID:     "user-1",
		SchemaKey:  schema.RegistryKey,
		Payload:    string(payload),
		NodeCount:  len(snapshots),
		UpdatedAt:  time.Now().Format(time.RFC3339),
	}

	// Act
	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	var decoded registryItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &decoded))

	var restored map[string]entities.NodeSnapshot
	require.NoError(t, json.Unmarshal([]byte(decoded.Payload), &restored))

	// Assert
	assert.Equal(t, item.PK, decoded.PK)
	assert.Equal(t, schema.RegistryKey, decoded.SchemaKey)
	require.Contains(t, restored, id.String())
	got := restored[id.String()]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Scope 2 Emissions", got.Label.Text)
	assert.Equal(t, 6, got.InteractionCount)
	assert.Equal(t, []valueobjects.Trait{valueobjects.TraitOptimization}, got.Traits)
	require.Len(t, got.History, 1)
	assert.Equal(t, valueobjects.InteractionClick, got.History[0].EventType)
	assert.InDelta(t, 2, got.History[0].Weight, 0.001)
}
