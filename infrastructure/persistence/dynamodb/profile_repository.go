package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/aggregates"
)

// ProfileRepository implements the ProfileRepository interface using
// DynamoDB
type ProfileRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ProfileRepository {
	return &ProfileRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// profileItem represents the DynamoDB item structure for a profile
type profileItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	XP         int    `dynamodbav:"XP"`
	Level      int    `dynamodbav:"Level"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

// Save persists the profile snapshot
func (r *ProfileRepository) Save(ctx context.Context, snapshot aggregates.CollectionSnapshot) error {
	item := profileItem{
		PK:         fmt.Sprintf("USER#%s", snapshot.UserID),
		SK:         "PROFILE",
		EntityType: "PROFILE",
		UserID:     snapshot.UserID,
		XP:         snapshot.XP,
		Level:      snapshot.Level,
		UpdatedAt:  time.Now().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("failed to save profile",
			zap.String("userID", snapshot.UserID), zap.Error(err))
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetByUserID retrieves a profile. A missing profile yields a fresh
// level-one snapshot.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (aggregates.CollectionSnapshot, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return aggregates.CollectionSnapshot{}, fmt.Errorf("failed to get profile: %w", err)
	}
	if result.Item == nil {
		return aggregates.CollectionSnapshot{UserID: userID, Level: 1}, nil
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return aggregates.CollectionSnapshot{}, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return aggregates.CollectionSnapshot{
		UserID: item.UserID,
		XP:     item.XP,
		Level:  item.Level,
	}, nil
}
