package quiz_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/infrastructure/quiz"
)

func buildCard(t *testing.T, id string, attribute entities.CardAttribute) *entities.Card {
	t.Helper()
	entityID, err := valueobjects.NewEntityID(id)
	require.NoError(t, err)
	card, err := entities.NewCard(entityID, "user-1", "Term "+id, "Definition for "+id,
		attribute, "", 1, 1)
	require.NoError(t, err)
	return card
}

func TestTemplateGenerator_DefinitionIsTheCorrectOption(t *testing.T) {
	generator := quiz.NewTemplateGenerator(4, 7)
	card := buildCard(t, "card-1", entities.AttributeEnvironment)
	pool := []*entities.Card{card}
	for i := 2; i <= 6; i++ {
		pool = append(pool, buildCard(t, fmt.Sprintf("card-%d", i), entities.AttributeEnvironment))
	}

	q, err := generator.Generate(context.Background(), card, pool)

	require.NoError(t, err)
	assert.Equal(t, card.ID(), q.CardID)
	assert.Len(t, q.Options, 4)
	assert.Equal(t, card.Definition(), q.Options[q.CorrectIndex])
	assert.True(t, q.IsCorrect(q.CorrectIndex))
	assert.False(t, q.IsCorrect((q.CorrectIndex+1)%4))
}

func TestTemplateGenerator_DistractorsComeFromThePool(t *testing.T) {
	generator := quiz.NewTemplateGenerator(4, 7)
	card := buildCard(t, "card-1", entities.AttributeSocial)
	pool := []*entities.Card{card}
	definitions := map[string]bool{}
	for i := 2; i <= 8; i++ {
		other := buildCard(t, fmt.Sprintf("card-%d", i), entities.AttributeSocial)
		pool = append(pool, other)
		definitions[other.Definition()] = true
	}

	q, err := generator.Generate(context.Background(), card, pool)

	require.NoError(t, err)
	for i, option := range q.Options {
		if i == q.CorrectIndex {
			continue
		}
		assert.True(t, definitions[option], "distractor %q should come from the pool", option)
		assert.NotEqual(t, card.Definition(), option)
	}
}

func TestTemplateGenerator_PadsSmallPools(t *testing.T) {
	generator := quiz.NewTemplateGenerator(4, 7)
	card := buildCard(t, "card-1", entities.AttributeGovernance)

	q, err := generator.Generate(context.Background(), card, nil)

	require.NoError(t, err)
	assert.Len(t, q.Options, 4)
	seen := map[string]int{}
	for _, option := range q.Options {
		seen[option]++
	}
	assert.Equal(t, 1, seen[card.Definition()])
}

func TestTemplateGenerator_IsSafeForConcurrentSessions(t *testing.T) {
	generator := quiz.NewTemplateGenerator(4, 7)
	card := buildCard(t, "card-1", entities.AttributeEnvironment)
	pool := []*entities.Card{card}
	for i := 2; i <= 8; i++ {
		pool = append(pool, buildCard(t, fmt.Sprintf("card-%d", i), entities.AttributeEnvironment))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := generator.Generate(context.Background(), card, pool)
			assert.NoError(t, err)
			assert.Equal(t, card.Definition(), q.Options[q.CorrectIndex])
		}()
	}
	wg.Wait()
}

func TestTemplateGenerator_SeedMakesItDeterministic(t *testing.T) {
	card := buildCard(t, "card-1", entities.AttributeEnvironment)
	pool := []*entities.Card{card}
	for i := 2; i <= 6; i++ {
		pool = append(pool, buildCard(t, fmt.Sprintf("card-%d", i), entities.AttributeEnvironment))
	}

	first, err := quiz.NewTemplateGenerator(4, 42).Generate(context.Background(), card, pool)
	require.NoError(t, err)
	second, err := quiz.NewTemplateGenerator(4, 42).Generate(context.Background(), card, pool)
	require.NoError(t, err)

	assert.Equal(t, first.Options, second.Options)
	assert.Equal(t, first.CorrectIndex, second.CorrectIndex)
}
