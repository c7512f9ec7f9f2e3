package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/pkg/errors"
)

// CardRepository implements the CardRepository interface using DynamoDB
type CardRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.CardRepository {
	return &CardRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// cardItem represents the DynamoDB item structure for a card
type cardItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	CardID      string `dynamodbav:"CardID"`
	UserID      string `dynamodbav:"UserID"`
	Term        string `dynamodbav:"Term"`
	Definition  string `dynamodbav:"Definition"`
	Attribute   string `dynamodbav:"Attribute"`
	Category    string `dynamodbav:"Category,omitempty"`
	Defense     int    `dynamodbav:"Defense"`
	Offense     int    `dynamodbav:"Offense"`
	Mastery     string `dynamodbav:"Mastery"`
	Purified    bool   `dynamodbav:"Purified"`
	AcquiredAt  string `dynamodbav:"AcquiredAt"`
	PurifiedAt  string `dynamodbav:"PurifiedAt,omitempty"`
	ReviewCount int    `dynamodbav:"ReviewCount"`
}

// Save persists a card to DynamoDB
func (r *CardRepository) Save(ctx context.Context, card *entities.Card) error {
	item := toCardItem(card.Snapshot())

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal card: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("failed to save card",
			zap.String("cardID", card.ID().String()),
			zap.Error(err))
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

// GetByID retrieves a card by its ID, scoped to the owning user
func (r *CardRepository) GetByID(ctx context.Context, userID string, id valueobjects.EntityID) (*entities.Card, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CARD#%s", id.String())},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if result.Item == nil {
		return nil, errors.NewNotFoundError("card not found: " + id.String())
	}

	var item cardItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card: %w", err)
	}
	return fromCardItem(item)
}

// GetByUserID retrieves all cards for a user
func (r *CardRepository) GetByUserID(ctx context.Context, userID string) ([]*entities.Card, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("USER#%s", userID))).
		And(expression.Key("SK").BeginsWith("CARD#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build card query: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	cards := make([]*entities.Card, 0)
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query cards: %w", err)
		}
		for _, raw := range page.Items {
			var item cardItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("failed to unmarshal card item", zap.Error(err))
				continue
			}
			card, err := fromCardItem(item)
			if err != nil {
				r.logger.Warn("skipping corrupt card item",
					zap.String("cardID", item.CardID), zap.Error(err))
				continue
			}
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// Delete removes a card
func (r *CardRepository) Delete(ctx context.Context, userID string, id valueobjects.EntityID) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CARD#%s", id.String())},
		},
	}
	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// BulkSave saves multiple cards in batches of 25, the BatchWriteItem
// limit
func (r *CardRepository) BulkSave(ctx context.Context, cards []*entities.Card) error {
	const batchSize = 25
	for start := 0; start < len(cards); start += batchSize {
		end := start + batchSize
		if end > len(cards) {
			end = len(cards)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, card := range cards[start:end] {
			av, err := attributevalue.MarshalMap(toCardItem(card.Snapshot()))
			if err != nil {
				return fmt.Errorf("failed to marshal card %s: %w", card.ID().String(), err)
			}
			writes = append(writes, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: av},
			})
		}

		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: writes},
		}
		if _, err := r.client.BatchWriteItem(ctx, input); err != nil {
			return fmt.Errorf("failed to batch save cards: %w", err)
		}
	}
	return nil
}

func toCardItem(s entities.CardSnapshot) cardItem {
	item := cardItem{
		PK:          fmt.Sprintf("USER#%s", s.UserID),
		SK:          fmt.Sprintf("CARD#%s", s.ID.String()),
		EntityType:  "CARD",
		CardID:      s.ID.String(),
		UserID:      s.UserID,
		Term:        s.Term,
		Definition:  s.Definition,
		Attribute:   string(s.Attribute),
		Category:    s.Category,
		Defense:     s.Defense,
		Offense:     s.Offense,
		Mastery:     string(s.Mastery),
		Purified:    s.Purified,
		AcquiredAt:  s.AcquiredAt.Format(time.RFC3339),
		ReviewCount: s.ReviewCount,
	}
	if s.PurifiedAt != nil {
		item.PurifiedAt = s.PurifiedAt.Format(time.RFC3339)
	}
	return item
}

func fromCardItem(item cardItem) (*entities.Card, error) {
	cardID, err := valueobjects.NewEntityID(item.CardID)
	if err != nil {
		return nil, err
	}
	acquiredAt, err := time.Parse(time.RFC3339, item.AcquiredAt)
	if err != nil {
		acquiredAt = time.Time{}
	}
	var purifiedAt *time.Time
	if item.PurifiedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.PurifiedAt); err == nil {
			purifiedAt = &t
		}
	}
	return entities.ReconstructCard(entities.CardSnapshot{
		ID:          cardID,
		UserID:      item.UserID,
		Term:        item.Term,
		Definition:  item.Definition,
		Attribute:   entities.CardAttribute(item.Attribute),
		Category:    item.Category,
		Defense:     item.Defense,
		Offense:     item.Offense,
		Mastery:     entities.MasteryTier(item.Mastery),
		Purified:    item.Purified,
		AcquiredAt:  acquiredAt,
		PurifiedAt:  purifiedAt,
		ReviewCount: item.ReviewCount,
	})
}
