package memory

import (
	"context"
	"sync"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/aggregates"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/errors"
)

// RegistryStore is the in-memory RegistryStore used in development
// mode and tests
type RegistryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]entities.NodeSnapshot
}

// NewRegistryStore creates an empty in-memory registry store
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{data: make(map[string]map[string]entities.NodeSnapshot)}
}

// Load retrieves the registry snapshot for a user
func (s *RegistryStore) Load(ctx context.Context, userID string) (map[string]entities.NodeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.data[userID]
	if !ok {
		return map[string]entities.NodeSnapshot{}, nil
	}
	out := make(map[string]entities.NodeSnapshot, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// Save overwrites the registry snapshot for a user
func (s *RegistryStore) Save(ctx context.Context, userID string, nodes map[string]entities.NodeSnapshot) error {
	copied := make(map[string]entities.NodeSnapshot, len(nodes))
	for k, v := range nodes {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = copied
	return nil
}

// Delete wipes the registry for a user
func (s *RegistryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// CardRepository is the in-memory CardRepository
type CardRepository struct {
	mu    sync.RWMutex
	cards map[string]map[string]entities.CardSnapshot
}

// NewCardRepository creates an empty in-memory card repository
func NewCardRepository() *CardRepository {
	return &CardRepository{cards: make(map[string]map[string]entities.CardSnapshot)}
}

// Save persists a card
func (r *CardRepository) Save(ctx context.Context, card *entities.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.cards[card.UserID()]
	if user == nil {
		user = make(map[string]entities.CardSnapshot)
		r.cards[card.UserID()] = user
	}
	user[card.ID().String()] = card.Snapshot()
	return nil
}

// GetByID retrieves a card by its ID
func (r *CardRepository) GetByID(ctx context.Context, userID string, id valueobjects.EntityID) (*entities.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.cards[userID][id.String()]
	if !ok {
		return nil, errors.NewNotFoundError("card not found: " + id.String())
	}
	return entities.ReconstructCard(snap)
}

// GetByUserID retrieves all cards for a user
func (r *CardRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Card, 0, len(r.cards[userID]))
	for _, snap := range r.cards[userID] {
		card, err := entities.ReconstructCard(snap)
		if err != nil {
			continue
		}
		out = append(out, card)
	}
	return out, nil
}

// Delete removes a card
func (r *CardRepository) Delete(ctx context.Context, userID string, id valueobjects.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards[userID], id.String())
	return nil
}

// BulkSave saves multiple cards
func (r *CardRepository) BulkSave(ctx context.Context, cards []*entities.Card) error {
	for _, card := range cards {
		if err := r.Save(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// ProfileRepository is the in-memory ProfileRepository
type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]aggregates.CollectionSnapshot
}

// NewProfileRepository creates an empty in-memory profile repository
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[string]aggregates.CollectionSnapshot)}
}

// Save persists the profile snapshot
func (r *ProfileRepository) Save(ctx context.Context, snapshot aggregates.CollectionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[snapshot.UserID] = snapshot
	return nil
}

// GetByUserID retrieves a profile, defaulting to a fresh level-one
// snapshot
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (aggregates.CollectionSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if snap, ok := r.profiles[userID]; ok {
		return snap, nil
	}
	return aggregates.CollectionSnapshot{UserID: userID, Level: 1}, nil
}

var (
	_ ports.RegistryStore     = (*RegistryStore)(nil)
	_ ports.CardRepository    = (*CardRepository)(nil)
	_ ports.ProfileRepository = (*ProfileRepository)(nil)
)
