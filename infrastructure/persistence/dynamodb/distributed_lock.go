package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
)

// DistributedLock serializes registry writes across Lambda instances
// using DynamoDB conditional writes. Each lock item carries a TTL so a
// crashed holder cannot wedge the registry.
type DistributedLock struct {
	client    *dynamodb.Client
	tableName string
	ownerID   string
	logger    *zap.Logger
}

// NewDistributedLock creates a new distributed lock instance
func NewDistributedLock(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		ownerID:   uuid.New().String(),
		logger:    logger,
	}
}

var errLockHeld = errors.New("lock already held")

// Acquire takes the lock, retrying with backoff until the context or
// the TTL window runs out. The returned function releases the lock.
func (dl *DistributedLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	deadline := time.Now().Add(ttl)
	retryInterval := 100 * time.Millisecond

	for {
		lockID, err := dl.tryAcquire(ctx, key, ttl)
		if err == nil {
			return dl.releaseFunc(key, lockID), nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout acquiring lock for %s", key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (dl *DistributedLock) tryAcquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	lockID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", key)},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: dl.ownerID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(dl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := dl.client.PutItem(ctx, input); err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return "", errLockHeld
		}
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}

	dl.logger.Debug("lock acquired",
		zap.String("key", key),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl))
	return lockID, nil
}

func (dl *DistributedLock) releaseFunc(key, lockID string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		input := &dynamodb.DeleteItemInput{
			TableName: aws.String(dl.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", key)},
				"SK": &types.AttributeValueMemberS{Value: "LOCK"},
			},
			ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
			ExpressionAttributeNames: map[string]string{
				"#owner": "Owner",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":lockId": &types.AttributeValueMemberS{Value: lockID},
				":owner":  &types.AttributeValueMemberS{Value: dl.ownerID},
			},
		}

		if _, err := dl.client.DeleteItem(ctx, input); err != nil {
			var conditionalCheckFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionalCheckFailed) {
				// Expired and taken over; nothing to release.
				return
			}
			dl.logger.Warn("failed to release lock",
				zap.String("key", key), zap.Error(err))
		}
	}
}
