package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

func newTestCard(t *testing.T) *entities.Card {
	t.Helper()
	id, err := valueobjects.NewEntityID("card-ghg-scope-1")
	require.NoError(t, err)
	card, err := entities.NewCard(id, "user-1", "Scope 1 Emissions",
		"Direct greenhouse gas emissions from sources owned or controlled by the company.",
		entities.AttributeEnvironment, "emissions", 3, 2)
	require.NoError(t, err)
	return card
}

func TestCard_Creation(t *testing.T) {
	card := newTestCard(t)

	assert.Equal(t, "Scope 1 Emissions", card.Term())
	assert.Equal(t, entities.AttributeEnvironment, card.Attribute())
	assert.Equal(t, entities.MasteryNovice, card.Mastery())
	assert.False(t, card.IsPurified())
	assert.Nil(t, card.PurifiedAt())
}

func TestCard_CreationRejectsBadAttribute(t *testing.T) {
	id, err := valueobjects.NewEntityID("card-x")
	require.NoError(t, err)

	_, err = entities.NewCard(id, "user-1", "Term", "Definition",
		entities.CardAttribute("X"), "", 0, 0)

	assert.Error(t, err)
}

func TestCard_Purify(t *testing.T) {
	card := newTestCard(t)

	err := card.Purify()

	require.NoError(t, err)
	assert.True(t, card.IsPurified())
	assert.NotNil(t, card.PurifiedAt())
	assert.Equal(t, entities.MasteryNovice, card.Mastery())
	assert.NotEmpty(t, card.GetUncommittedEvents())
}

func TestCard_PurifyTwiceConflicts(t *testing.T) {
	card := newTestCard(t)
	require.NoError(t, card.Purify())

	err := card.Purify()

	assert.Error(t, err)
}

func TestCard_ReviewPromotesEveryThirdSuccess(t *testing.T) {
	card := newTestCard(t)
	require.NoError(t, card.Purify())

	for i := 0; i < 3; i++ {
		card.RecordReview(true)
	}
	assert.Equal(t, entities.MasteryAdept, card.Mastery())

	for i := 0; i < 3; i++ {
		card.RecordReview(true)
	}
	assert.Equal(t, entities.MasteryMaster, card.Mastery())

	// Master is the ceiling
	for i := 0; i < 3; i++ {
		card.RecordReview(true)
	}
	assert.Equal(t, entities.MasteryMaster, card.Mastery())
}

func TestCard_FailedReviewResetsMastery(t *testing.T) {
	card := newTestCard(t)
	require.NoError(t, card.Purify())
	for i := 0; i < 3; i++ {
		card.RecordReview(true)
	}
	require.Equal(t, entities.MasteryAdept, card.Mastery())

	card.RecordReview(false)

	assert.Equal(t, entities.MasteryNovice, card.Mastery())
	assert.Equal(t, 0, card.ReviewCount())
}

func TestCard_ReviewIgnoredWhileSealed(t *testing.T) {
	card := newTestCard(t)

	card.RecordReview(true)

	assert.Equal(t, 0, card.ReviewCount())
	assert.Equal(t, entities.MasteryNovice, card.Mastery())
}

func TestCard_SnapshotRoundTrip(t *testing.T) {
	card := newTestCard(t)
	require.NoError(t, card.Purify())
	card.RecordReview(true)

	restored, err := entities.ReconstructCard(card.Snapshot())

	require.NoError(t, err)
	assert.Equal(t, card.ID(), restored.ID())
	assert.True(t, restored.IsPurified())
	assert.Equal(t, 1, restored.ReviewCount())
	assert.Empty(t, restored.GetUncommittedEvents())
}
