package aggregates_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/domain/core/aggregates"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

func makeCard(t *testing.T, id, userID string) *entities.Card {
	t.Helper()
	entityID, err := valueobjects.NewEntityID(id)
	require.NoError(t, err)
	card, err := entities.NewCard(entityID, userID, "Term "+id, "Definition for "+id,
		entities.AttributeGovernance, "", 1, 1)
	require.NoError(t, err)
	return card
}

func TestCollection_StartsAtLevelOne(t *testing.T) {
	collection, err := aggregates.NewCollection("user-1")

	require.NoError(t, err)
	assert.Equal(t, 1, collection.Level())
	assert.Equal(t, 0, collection.XP())
	assert.Equal(t, aggregates.XPPerLevel, collection.XPToNextLevel())
}

func TestCollection_AwardXPLevelsUp(t *testing.T) {
	collection, err := aggregates.NewCollection("user-1")
	require.NoError(t, err)

	require.NoError(t, collection.AwardXP(800, "quiz"))
	assert.Equal(t, 1, collection.Level())
	assert.Equal(t, 200, collection.XPToNextLevel())

	require.NoError(t, collection.AwardXP(200, "quiz"))
	assert.Equal(t, 2, collection.Level())

	// One XPAwarded per grant plus one LevelUp
	assert.Len(t, collection.GetUncommittedEvents(), 3)
}

func TestCollection_AwardXPRejectsNonPositive(t *testing.T) {
	collection, err := aggregates.NewCollection("user-1")
	require.NoError(t, err)

	assert.Error(t, collection.AwardXP(0, "nothing"))
	assert.Error(t, collection.AwardXP(-5, "nothing"))
}

func TestCollection_AddCard(t *testing.T) {
	collection, err := aggregates.NewCollection("user-1")
	require.NoError(t, err)
	card := makeCard(t, "card-1", "user-1")

	require.NoError(t, collection.AddCard(card))

	assert.Equal(t, 1, collection.Size())
	assert.Error(t, collection.AddCard(card), "duplicates are rejected")
	assert.Error(t, collection.AddCard(makeCard(t, "card-2", "someone-else")))
}

func TestCollection_PurifyCard(t *testing.T) {
	collection, err := aggregates.NewCollection("user-1")
	require.NoError(t, err)
	card := makeCard(t, "card-1", "user-1")
	require.NoError(t, collection.AddCard(card))

	require.NoError(t, collection.PurifyCard(card.ID()))

	assert.Equal(t, 1, collection.PurifiedCount())
	assert.NotEmpty(t, collection.GetUncommittedEvents())
	assert.Empty(t, card.GetUncommittedEvents(), "card events move to the aggregate")

	missing, err := valueobjects.NewEntityID("card-missing")
	require.NoError(t, err)
	assert.Error(t, collection.PurifyCard(missing))
}

func TestCollection_SnapshotRoundTrip(t *testing.T) {
	collection, err := aggregates.NewCollection("user-1")
	require.NoError(t, err)
	require.NoError(t, collection.AddCard(makeCard(t, "card-1", "user-1")))
	require.NoError(t, collection.AwardXP(1500, "backfill"))

	restored, err := aggregates.ReconstructCollection(collection.Snapshot(), collection.Cards())

	require.NoError(t, err)
	assert.Equal(t, 1500, restored.XP())
	assert.Equal(t, 2, restored.Level())
	assert.Equal(t, 1, restored.Size())
}
