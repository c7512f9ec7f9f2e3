package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/services"
	"esgss-backend/domain/config"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/infrastructure/persistence/memory"
	"esgss-backend/infrastructure/quiz"
)

// harness wires the full application layer over in-memory storage,
// the same shape the development container produces
type harness struct {
	engine       *services.EvolutionEngine
	purification *services.PurificationService
	rewards      *services.RewardService
	acquire      *commands.AcquireCardHandler
	cards        *memory.CardRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	domainCfg := config.DefaultDomainConfig()

	registry := memory.NewRegistryStore()
	cards := memory.NewCardRepository()
	profiles := memory.NewProfileRepository()

	engine := services.NewEvolutionEngine(registry, nil, nil, nil, domainCfg, logger)
	rewards := services.NewRewardService(profiles, cards, nil, nil, nil, logger)
	generator := quiz.NewTemplateGenerator(domainCfg.Purification.QuizOptionCount, 0)
	purification := services.NewPurificationService(
		cards, generator, rewards, nil, nil, nil, domainCfg.Purification, logger)
	acquire := commands.NewAcquireCardHandler(cards, nil, logger)

	return &harness{
		engine:       engine,
		purification: purification,
		rewards:      rewards,
		acquire:      acquire,
		cards:        cards,
	}
}

func TestDashboardSessionEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := "integration-user"

	// A dashboard mounts and registers its tracked metrics
	entityID, err := valueobjects.NewEntityID("kpi-scope-2-emissions")
	require.NoError(t, err)
	label, err := valueobjects.NewUniversalLabel("scope-2", "Scope 2 Emissions")
	require.NoError(t, err)
	require.NoError(t, h.engine.RegisterNode(ctx, userID, entityID, label, 1840.0))

	// The engine streams evolution to a live subscriber
	var notifications int
	unsubscribe := h.engine.Subscribe(func(services.ChangeNotification) { notifications++ })
	defer unsubscribe()

	// Six clicks push the node over the first evolution threshold
	for i := 0; i < 6; i++ {
		event, err := valueobjects.NewInteractionEvent(entityID, valueobjects.InteractionClick, time.Now(), nil)
		require.NoError(t, err)
		require.NoError(t, h.engine.RecordInteraction(ctx, userID, event))
	}

	snap, err := h.engine.GetNode(ctx, userID, entityID)
	require.NoError(t, err)
	assert.Contains(t, snap.Traits, valueobjects.TraitOptimization)
	assert.Equal(t, 6, notifications)

	// The user acquires a glossary card along the way
	card, err := h.acquire.Handle(ctx, commands.AcquireCardCommand{
		UserID:     userID,
		Term:       "Scope 2 Emissions",
		Definition: "Indirect emissions from purchased electricity, steam, heat and cooling.",
		Attribute:  "E",
	})
	require.NoError(t, err)

	// ... and purifies it through the quiz flow
	_, err = h.purification.Start(ctx, userID, card.ID())
	require.NoError(t, err)
	view, err := h.purification.BeginQuiz(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, view.Quiz)

	view, err = h.purification.SubmitAnswer(ctx, userID, view.Quiz.CorrectIndex)
	require.NoError(t, err)
	assert.Equal(t, services.StateSuccess, view.State)

	// Everything landed: purified card, XP, heat map
	profile, err := h.rewards.Profile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 200, profile.XP)
	assert.Equal(t, 1, profile.CardCount)
	assert.Equal(t, 1, profile.PurifiedCount)

	scores, err := h.engine.HeatScores(ctx, userID)
	require.NoError(t, err)
	assert.InDelta(t, 12, scores[entityID.String()], 1e-9)
}

func TestRegistryResetLeavesCollectionIntact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := "integration-user"

	entityID, err := valueobjects.NewEntityID("kpi-board-diversity")
	require.NoError(t, err)
	label, err := valueobjects.TextLabel("Board Diversity")
	require.NoError(t, err)
	require.NoError(t, h.engine.RegisterNode(ctx, userID, entityID, label, nil))

	_, err = h.acquire.Handle(ctx, commands.AcquireCardCommand{
		UserID:     userID,
		Term:       "Board Diversity",
		Definition: "The mix of gender, background and expertise on a company's board.",
		Attribute:  "G",
	})
	require.NoError(t, err)

	removed, err := h.engine.Reset(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	nodes, err := h.engine.ListNodes(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	// The card binder is a separate bounded context
	remaining, err := h.cards.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
