package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/aggregates"
	"esgss-backend/pkg/errors"
)

// RewardService owns a user's progression. It reloads the collection,
// applies XP changes through the aggregate and persists the result.
type RewardService struct {
	profiles  ports.ProfileRepository
	cards     ports.CardRepository
	publisher ports.EventPublisher
	audit     ports.EventStore
	notifier  ports.Notifier
	logger    *zap.Logger
}

// NewRewardService wires the service. Publisher, audit store and
// notifier are optional.
func NewRewardService(
	profiles ports.ProfileRepository,
	cards ports.CardRepository,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	notifier ports.Notifier,
	logger *zap.Logger,
) *RewardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardService{
		profiles:  profiles,
		cards:     cards,
		publisher: publisher,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
	}
}

// AwardXP grants experience to a user and persists the new total.
// Level-up crossings raise a toast on top of the domain event.
func (r *RewardService) AwardXP(ctx context.Context, userID string, amount int, reason string) error {
	collection, err := r.loadCollection(ctx, userID)
	if err != nil {
		return err
	}

	before := collection.Level()
	if err := collection.AwardXP(amount, reason); err != nil {
		return err
	}
	if err := r.profiles.Save(ctx, collection.Snapshot()); err != nil {
		return errors.NewDatabaseError("save profile", err)
	}

	pending := collection.GetUncommittedEvents()
	if r.audit != nil && len(pending) > 0 {
		if err := r.audit.SaveEvents(ctx, pending); err != nil {
			r.logger.Error("failed to audit XP events", zap.Error(err))
		}
	}
	if r.publisher != nil && len(pending) > 0 {
		if err := r.publisher.PublishBatch(ctx, pending); err != nil {
			r.logger.Error("failed to publish XP events", zap.Error(err))
		}
	}
	collection.MarkEventsAsCommitted()

	if r.notifier != nil && collection.Level() > before {
		msg := fmt.Sprintf("You reached level %d", collection.Level())
		if err := r.notifier.Success(ctx, userID, "Level up", msg); err != nil {
			r.logger.Warn("level-up notification failed", zap.Error(err))
		}
	}
	return nil
}

// Profile returns the current progression snapshot with card counts
func (r *RewardService) Profile(ctx context.Context, userID string) (ProfileSummary, error) {
	collection, err := r.loadCollection(ctx, userID)
	if err != nil {
		return ProfileSummary{}, err
	}
	return ProfileSummary{
		UserID:        collection.UserID(),
		XP:            collection.XP(),
		Level:         collection.Level(),
		XPToNextLevel: collection.XPToNextLevel(),
		CardCount:     collection.Size(),
		PurifiedCount: collection.PurifiedCount(),
	}, nil
}

// ProfileSummary is the query-side view of a user's progression
type ProfileSummary struct {
	UserID        string `json:"userId"`
	XP            int    `json:"xp"`
	Level         int    `json:"level"`
	XPToNextLevel int    `json:"xpToNextLevel"`
	CardCount     int    `json:"cardCount"`
	PurifiedCount int    `json:"purifiedCount"`
}

func (r *RewardService) loadCollection(ctx context.Context, userID string) (*aggregates.Collection, error) {
	snapshot, err := r.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("load profile", err)
	}
	if snapshot.UserID == "" {
		snapshot.UserID = userID
	}
	cards, err := r.cards.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("load cards", err)
	}
	return aggregates.ReconstructCollection(snapshot, cards)
}
