package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/config"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/errors"
)

const registryLockTTL = 5 * time.Second

// ChangeKind tells subscribers what moved a node
type ChangeKind string

const (
	ChangeInteraction ChangeKind = "interaction"
	ChangeAgentUpdate ChangeKind = "agent-update"
	ChangeReset       ChangeKind = "reset"
)

// ChangeNotification is delivered synchronously to every subscriber
// after a node mutation has been persisted
type ChangeNotification struct {
	UserID string
	Kind   ChangeKind
	Node   entities.NodeSnapshot
}

// Subscriber receives change notifications. A panicking subscriber
// never disturbs the others.
type Subscriber func(ChangeNotification)

// EvolutionEngine is the trait evolution core. It owns the in-memory
// node registries, applies interaction rules through the entities and
// fans every committed change out to subscribers.
type EvolutionEngine struct {
	mu          sync.Mutex
	registries  map[string]map[string]*entities.KnowledgeNode
	subscribers map[int]Subscriber
	nextSubID   int

	store     ports.RegistryStore
	publisher ports.EventPublisher
	audit     ports.EventStore
	lock      ports.DistributedLock
	cfg       config.DomainConfig
	logger    *zap.Logger
}

// NewEvolutionEngine wires the engine. The publisher, audit store and
// lock are optional; pass nil to run without them.
func NewEvolutionEngine(
	store ports.RegistryStore,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	lock ports.DistributedLock,
	cfg config.DomainConfig,
	logger *zap.Logger,
) *EvolutionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvolutionEngine{
		registries:  make(map[string]map[string]*entities.KnowledgeNode),
		subscribers: make(map[int]Subscriber),
		store:       store,
		publisher:   publisher,
		audit:       audit,
		lock:        lock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Subscribe registers a change listener and returns its unsubscribe
// function
func (e *EvolutionEngine) Subscribe(fn Subscriber) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// UpdateConfig swaps the tuning parameters at runtime. Existing nodes
// pick the new thresholds up on their next interaction.
func (e *EvolutionEngine) UpdateConfig(cfg config.DomainConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// RegisterNode makes an entity known to the engine. Registration is
// idempotent and never notifies subscribers.
func (e *EvolutionEngine) RegisterNode(ctx context.Context, userID string, id valueobjects.EntityID, label valueobjects.UniversalLabel, initialValue any) error {
	release, err := e.acquireLock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	if _, exists := registry[id.String()]; exists {
		return nil
	}

	node, err := entities.NewKnowledgeNode(id, label, initialValue)
	if err != nil {
		return err
	}
	registry[id.String()] = node

	e.persistLocked(ctx, userID, registry)
	e.commitEventsLocked(ctx, node)
	return nil
}

// RecordInteraction applies one interaction to a node, persists the
// registry and notifies every subscriber. Interactions against unknown
// entity IDs are dropped silently so decorative dashboard elements can
// emit events without registering first.
func (e *EvolutionEngine) RecordInteraction(ctx context.Context, userID string, event valueobjects.InteractionEvent) error {
	release, err := e.acquireLock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	node, exists := registry[event.EntityID.String()]
	if !exists {
		e.logger.Debug("interaction for unregistered entity dropped",
			zap.String("entity_id", event.EntityID.String()))
		return nil
	}

	node.RecordInteraction(event, e.cfg.Evolution, e.cfg.Limits.MaxMemoryEntries)

	e.persistLocked(ctx, userID, registry)
	e.commitEventsLocked(ctx, node)
	e.notifyLocked(ChangeNotification{
		UserID: userID,
		Kind:   ChangeInteraction,
		Node:   node.Snapshot(),
	})
	return nil
}

// AgentUpdate lets an automated process overwrite node fields, then
// persists and notifies like an interaction does
func (e *EvolutionEngine) AgentUpdate(ctx context.Context, userID string, id valueobjects.EntityID, update entities.AgentUpdateFields) error {
	release, err := e.acquireLock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	node, exists := registry[id.String()]
	if !exists {
		e.logger.Debug("agent update for unregistered entity dropped",
			zap.String("entity_id", id.String()))
		return nil
	}

	if _, err := node.ApplyAgentUpdate(update, e.cfg.Limits.MaxAIInsights); err != nil {
		return err
	}

	e.persistLocked(ctx, userID, registry)
	e.commitEventsLocked(ctx, node)
	e.notifyLocked(ChangeNotification{
		UserID: userID,
		Kind:   ChangeAgentUpdate,
		Node:   node.Snapshot(),
	})
	return nil
}

// GetNode returns the snapshot of one node
func (e *EvolutionEngine) GetNode(ctx context.Context, userID string, id valueobjects.EntityID) (entities.NodeSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	node, exists := registry[id.String()]
	if !exists {
		return entities.NodeSnapshot{}, errors.NewNotFoundError("node not found: " + id.String())
	}
	return node.Snapshot(), nil
}

// ListNodes returns snapshots of every registered node for a user
func (e *EvolutionEngine) ListNodes(ctx context.Context, userID string) ([]entities.NodeSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	out := make([]entities.NodeSnapshot, 0, len(registry))
	for _, node := range registry {
		out = append(out, node.Snapshot())
	}
	return out, nil
}

// HeatScores returns the accumulated interaction weight per entity
func (e *EvolutionEngine) HeatScores(ctx context.Context, userID string) (map[string]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	scores := make(map[string]float64, len(registry))
	for id, node := range registry {
		scores[id] = node.HeatScore()
	}
	return scores, nil
}

// Reset wipes a user's registry in memory and in storage. Returns the
// number of nodes removed.
func (e *EvolutionEngine) Reset(ctx context.Context, userID string) (int, error) {
	release, err := e.acquireLock(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer release()

	e.mu.Lock()
	defer e.mu.Unlock()

	registry := e.registryLocked(ctx, userID)
	count := len(registry)
	e.registries[userID] = make(map[string]*entities.KnowledgeNode)

	if e.store != nil {
		if err := e.store.Delete(ctx, userID); err != nil {
			e.logger.Error("failed to delete persisted registry",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

// registryLocked returns the in-memory registry for a user, loading it
// from storage on first access. Storage read failures are logged and
// the user starts with an empty registry; from then on the in-memory
// state is authoritative for this process. Caller holds e.mu.
func (e *EvolutionEngine) registryLocked(ctx context.Context, userID string) map[string]*entities.KnowledgeNode {
	if registry, ok := e.registries[userID]; ok {
		return registry
	}

	registry := make(map[string]*entities.KnowledgeNode)
	if e.store != nil {
		snapshots, err := e.store.Load(ctx, userID)
		if err != nil {
			e.logger.Error("failed to load registry, starting empty",
				zap.String("user_id", userID), zap.Error(err))
			snapshots = nil
		}
		for id, snap := range snapshots {
			node, err := entities.ReconstructNode(snap)
			if err != nil {
				e.logger.Warn("skipping corrupt node snapshot",
					zap.String("entity_id", id), zap.Error(err))
				continue
			}
			registry[id] = node
		}
	}
	e.registries[userID] = registry
	return registry
}

// persistLocked writes the whole registry back to storage. Storage
// failures are logged and swallowed; the in-memory state stays
// authoritative for this process.
func (e *EvolutionEngine) persistLocked(ctx context.Context, userID string, registry map[string]*entities.KnowledgeNode) {
	if e.store == nil {
		return
	}
	snapshots := make(map[string]entities.NodeSnapshot, len(registry))
	for id, node := range registry {
		snapshots[id] = node.Snapshot()
	}
	if err := e.store.Save(ctx, userID, snapshots); err != nil {
		e.logger.Error("failed to persist registry",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// commitEventsLocked drains the node's uncommitted events into the
// audit store and the event publisher, best effort
func (e *EvolutionEngine) commitEventsLocked(ctx context.Context, node *entities.KnowledgeNode) {
	pending := node.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	if e.audit != nil {
		if err := e.audit.SaveEvents(ctx, pending); err != nil {
			e.logger.Error("failed to audit domain events", zap.Error(err))
		}
	}
	if e.publisher != nil {
		if err := e.publisher.PublishBatch(ctx, pending); err != nil {
			e.logger.Error("failed to publish domain events", zap.Error(err))
		}
	}
	node.MarkEventsAsCommitted()
}

// notifyLocked delivers a notification to every subscriber in turn.
// Delivery is synchronous so subscribers observe the post-mutation
// state before the mutating call returns. A panic in one subscriber is
// contained and logged.
func (e *EvolutionEngine) notifyLocked(n ChangeNotification) {
	for id, fn := range e.subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("subscriber panicked",
						zap.Int("subscriber_id", id), zap.Any("panic", r))
				}
			}()
			fn(n)
		}()
	}
}

func (e *EvolutionEngine) acquireLock(ctx context.Context, userID string) (func(), error) {
	if e.lock == nil {
		return func() {}, nil
	}
	release, err := e.lock.Acquire(ctx, "registry:"+userID, registryLockTTL)
	if err != nil {
		return nil, errors.NewTimeoutError("acquire registry lock")
	}
	return release, nil
}
