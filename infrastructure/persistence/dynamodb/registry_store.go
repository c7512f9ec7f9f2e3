package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/entities"
	"esgss-backend/infrastructure/persistence/schema"
)

// RegistryStore persists each user's evolution registry as one item
// holding the full JSON snapshot. The dashboard reads and writes the
// registry whole, so a blob keeps reads single-digit-millisecond and
// writes atomic.
type RegistryStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewRegistryStore creates a new RegistryStore
func NewRegistryStore(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.RegistryStore {
	return &RegistryStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// registryItem represents the DynamoDB item structure for a registry
type registryItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	SchemaKey  string `dynamodbav:"SchemaKey"`
	Payload    string `dynamodbav:"Payload"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

// Load retrieves the full registry snapshot for a user. A missing or
// outdated-schema registry yields an empty map after migration.
func (r *RegistryStore) Load(ctx context.Context, userID string) (map[string]entities.NodeSnapshot, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: registrySK()},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	if result.Item == nil {
		return map[string]entities.NodeSnapshot{}, nil
	}

	var item registryItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry item: %w", err)
	}

	payload, migrated, err := schema.MigrateRegistryPayload(item.SchemaKey, []byte(item.Payload))
	if err != nil {
		r.logger.Warn("registry payload unreadable, starting empty",
			zap.String("userID", userID),
			zap.String("schemaKey", item.SchemaKey),
			zap.Error(err))
		return map[string]entities.NodeSnapshot{}, nil
	}
	if migrated {
		if err := schema.ValidatePayload(payload); err != nil {
			r.logger.Warn("migrated registry payload invalid, starting empty",
				zap.String("userID", userID),
				zap.Error(err))
			return map[string]entities.NodeSnapshot{}, nil
		}
		r.logger.Info("registry payload migrated",
			zap.String("userID", userID),
			zap.String("from", item.SchemaKey),
			zap.String("to", schema.RegistryKey))
	}

	var snapshots map[string]entities.NodeSnapshot
	if err := json.Unmarshal(payload, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode registry payload: %w", err)
	}
	if snapshots == nil {
		snapshots = map[string]entities.NodeSnapshot{}
	}
	return snapshots, nil
}

// Save overwrites the full registry snapshot for a user
func (r *RegistryStore) Save(ctx context.Context, userID string, nodes map[string]entities.NodeSnapshot) error {
	payload, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("failed to encode registry payload: %w", err)
	}

	item := registryItem{
		PK:         fmt.Sprintf("USER#%s", userID),
		SK:         registrySK(),
		EntityType: "REGISTRY",
		UserID:     userID,
		SchemaKey:  schema.RegistryKey,
		Payload:    string(payload),
		NodeCount:  len(nodes),
		UpdatedAt:  time.Now().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal registry item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("failed to save registry",
			zap.String("userID", userID),
			zap.Error(err))
		return fmt.Errorf("failed to save registry: %w", err)
	}

	r.logger.Debug("registry saved",
		zap.String("userID", userID),
		zap.Int("nodeCount", len(nodes)))
	return nil
}

// Delete wipes the registry for a user
func (r *RegistryStore) Delete(ctx context.Context, userID string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: registrySK()},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete registry: %w", err)
	}
	return nil
}

func registrySK() string {
	return fmt.Sprintf("REGISTRY#%s", schema.RegistryKey)
}
