package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"esgss-backend/application/services"
	"esgss-backend/domain/config"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/infrastructure/persistence/memory"
)

const testUser = "user-1"

func newEngine(t *testing.T) (*services.EvolutionEngine, *memory.RegistryStore) {
	t.Helper()
	store := memory.NewRegistryStore()
	engine := services.NewEvolutionEngine(store, nil, nil, nil, config.DefaultDomainConfig(), zap.NewNop())
	return engine, store
}

func registerTestNode(t *testing.T, engine *services.EvolutionEngine, id string) valueobjects.EntityID {
	t.Helper()
	entityID, err := valueobjects.NewEntityID(id)
	require.NoError(t, err)
	label, err := valueobjects.TextLabel("Label for " + id)
	require.NoError(t, err)
	require.NoError(t, engine.RegisterNode(context.Background(), testUser, entityID, label, nil))
	return entityID
}

func clickEvent(t *testing.T, id valueobjects.EntityID) valueobjects.InteractionEvent {
	t.Helper()
	event, err := valueobjects.NewInteractionEvent(id, valueobjects.InteractionClick, time.Now(), nil)
	require.NoError(t, err)
	return event
}

func TestEvolutionEngine_RegistrationIsIdempotentAndSilent(t *testing.T) {
	engine, _ := newEngine(t)
	var notifications []services.ChangeNotification
	engine.Subscribe(func(n services.ChangeNotification) { notifications = append(notifications, n) })

	id := registerTestNode(t, engine, "kpi-energy")
	registerTestNode(t, engine, "kpi-energy")

	nodes, err := engine.ListNodes(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Empty(t, notifications, "registration never notifies")

	snap, err := engine.GetNode(context.Background(), testUser, id)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.InteractionCount)
}

func TestEvolutionEngine_InteractionNotifiesSynchronously(t *testing.T) {
	engine, _ := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")

	var got []services.ChangeNotification
	engine.Subscribe(func(n services.ChangeNotification) { got = append(got, n) })

	require.NoError(t, engine.RecordInteraction(context.Background(), testUser, clickEvent(t, id)))

	// Delivery happens before RecordInteraction returns and carries the
	// post-mutation snapshot.
	require.Len(t, got, 1)
	assert.Equal(t, services.ChangeInteraction, got[0].Kind)
	assert.Equal(t, testUser, got[0].UserID)
	assert.Equal(t, 1, got[0].Node.InteractionCount)
}

func TestEvolutionEngine_UnknownEntityDroppedSilently(t *testing.T) {
	engine, _ := newEngine(t)
	registerTestNode(t, engine, "kpi-energy")
	var notified bool
	engine.Subscribe(func(services.ChangeNotification) { notified = true })

	ghost, err := valueobjects.NewEntityID("never-registered")
	require.NoError(t, err)
	err = engine.RecordInteraction(context.Background(), testUser, clickEvent(t, ghost))

	assert.NoError(t, err)
	assert.False(t, notified)
}

func TestEvolutionEngine_SubscriberPanicIsContained(t *testing.T) {
	engine, _ := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")

	engine.Subscribe(func(services.ChangeNotification) { panic("bad subscriber") })
	var survived bool
	engine.Subscribe(func(services.ChangeNotification) { survived = true })

	err := engine.RecordInteraction(context.Background(), testUser, clickEvent(t, id))

	assert.NoError(t, err)
	assert.True(t, survived, "other subscribers still run")
}

func TestEvolutionEngine_Unsubscribe(t *testing.T) {
	engine, _ := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")

	var count int
	unsubscribe := engine.Subscribe(func(services.ChangeNotification) { count++ })
	require.NoError(t, engine.RecordInteraction(context.Background(), testUser, clickEvent(t, id)))
	unsubscribe()
	require.NoError(t, engine.RecordInteraction(context.Background(), testUser, clickEvent(t, id)))

	assert.Equal(t, 1, count)
}

// failingStore loads fine but refuses every write
type failingStore struct{}

func (failingStore) Load(context.Context, string) (map[string]entities.NodeSnapshot, error) {
	return map[string]entities.NodeSnapshot{}, nil
}
func (failingStore) Save(context.Context, string, map[string]entities.NodeSnapshot) error {
	return errors.New("storage unavailable")
}
func (failingStore) Delete(context.Context, string) error {
	return errors.New("storage unavailable")
}

func TestEvolutionEngine_StorageFailuresAreSwallowed(t *testing.T) {
	engine := services.NewEvolutionEngine(failingStore{}, nil, nil, nil, config.DefaultDomainConfig(), zap.NewNop())
	id := registerTestNode(t, engine, "kpi-energy")

	err := engine.RecordInteraction(context.Background(), testUser, clickEvent(t, id))

	// The write failed but the in-memory state is authoritative.
	assert.NoError(t, err)
	snap, err := engine.GetNode(context.Background(), testUser, id)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.InteractionCount)
}

// unreadableStore fails every read
type unreadableStore struct {
	failingStore
}

func (unreadableStore) Load(context.Context, string) (map[string]entities.NodeSnapshot, error) {
	return nil, errors.New("storage unavailable")
}

func TestEvolutionEngine_LoadFailureStartsEmpty(t *testing.T) {
	engine := services.NewEvolutionEngine(unreadableStore{}, nil, nil, nil, config.DefaultDomainConfig(), zap.NewNop())
	var got []services.ChangeNotification
	engine.Subscribe(func(n services.ChangeNotification) { got = append(got, n) })

	// The unreadable registry never surfaces as an error; the user
	// starts empty and keeps working in memory.
	id := registerTestNode(t, engine, "kpi-energy")
	err := engine.RecordInteraction(context.Background(), testUser, clickEvent(t, id))

	assert.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Node.InteractionCount)
}

func TestEvolutionEngine_TraitEvolutionThroughInteractions(t *testing.T) {
	engine, _ := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, engine.RecordInteraction(ctx, testUser, clickEvent(t, id)))
	}

	snap, err := engine.GetNode(ctx, testUser, id)
	require.NoError(t, err)
	assert.Contains(t, snap.Traits, valueobjects.TraitOptimization)

	scores, err := engine.HeatScores(ctx, testUser)
	require.NoError(t, err)
	assert.InDelta(t, 12, scores[id.String()], 1e-9)
}

func TestEvolutionEngine_AgentUpdate(t *testing.T) {
	engine, _ := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")
	var got []services.ChangeNotification
	engine.Subscribe(func(n services.ChangeNotification) { got = append(got, n) })

	err := engine.AgentUpdate(context.Background(), testUser, id, entities.AgentUpdateFields{
		Value:    123.4,
		HasValue: true,
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, services.ChangeAgentUpdate, got[0].Kind)
	assert.Equal(t, 123.4, got[0].Node.CurrentValue)
}

func TestEvolutionEngine_Reset(t *testing.T) {
	engine, _ := newEngine(t)
	registerTestNode(t, engine, "kpi-energy")
	registerTestNode(t, engine, "kpi-water")

	count, err := engine.Reset(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	nodes, err := engine.ListNodes(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestEvolutionEngine_UsersAreIsolated(t *testing.T) {
	engine, _ := newEngine(t)
	registerTestNode(t, engine, "kpi-energy")

	nodes, err := engine.ListNodes(context.Background(), "someone-else")

	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestEvolutionEngine_StateSurvivesRestart(t *testing.T) {
	engine, store := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, engine.RecordInteraction(ctx, testUser, clickEvent(t, id)))
	}

	// A fresh engine over the same store reloads the registry.
	reborn := services.NewEvolutionEngine(store, nil, nil, nil, config.DefaultDomainConfig(), zap.NewNop())
	snap, err := reborn.GetNode(ctx, testUser, id)

	require.NoError(t, err)
	assert.Equal(t, 3, snap.InteractionCount)
	assert.InDelta(t, 6, snap.History[0].Weight+snap.History[1].Weight+snap.History[2].Weight, 1e-9)
}

func TestEvolutionEngine_UpdateConfigTakesEffect(t *testing.T) {
	engine, _ := newEngine(t)
	id := registerTestNode(t, engine, "kpi-energy")
	ctx := context.Background()

	cfg := config.DefaultDomainConfig()
	cfg.Evolution.OptimizationThreshold = 1
	engine.UpdateConfig(cfg)

	require.NoError(t, engine.RecordInteraction(ctx, testUser, clickEvent(t, id)))
	require.NoError(t, engine.RecordInteraction(ctx, testUser, clickEvent(t, id)))

	snap, err := engine.GetNode(ctx, testUser, id)
	require.NoError(t, err)
	assert.Contains(t, snap.Traits, valueobjects.TraitOptimization)
}
