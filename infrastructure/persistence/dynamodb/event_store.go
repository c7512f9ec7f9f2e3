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
	"github.com/google/uuid"

	"esgss-backend/application/ports"
	"esgss-backend/domain/events"
)

// EventStore implements the audit trail of domain events on DynamoDB.
// Records carry a TTL so the trail cleans itself up after 90 days.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
}

const eventTTL = 90 * 24 * time.Hour

// NewEventStore creates a new DynamoDB event store
func NewEventStore(client *dynamodb.Client, tableName string) ports.EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
	}
}

// eventRecord represents how events are stored in DynamoDB
type eventRecord struct {
	PK          string `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK          string `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID     string `dynamodbav:"EventID"`
	EventType   string `dynamodbav:"EventType"`
	AggregateID string `dynamodbav:"AggregateID"`
	EventData   string `dynamodbav:"EventData"`
	Timestamp   string `dynamodbav:"Timestamp"`
	Version     int    `dynamodbav:"Version"`

	// GSI attributes for querying by type
	GSI2PK string `dynamodbav:"GSI2PK"` // EVENTTYPE#<type>
	GSI2SK string `dynamodbav:"GSI2SK"` // EVENT#<timestamp>

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// SaveEvents persists domain events to the audit trail
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writes := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := es.toRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	// Batch write events (DynamoDB limit is 25 items per batch)
	for i := 0; i < len(writes); i += 25 {
		end := i + 25
		if end > len(writes) {
			end = len(writes)
		}
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{es.tableName: writes[i:end]},
		}
		result, err := es.client.BatchWriteItem(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return fmt.Errorf("failed to write %d events", len(result.UnprocessedItems[es.tableName]))
		}
	}
	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]ports.StoredEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTS#%s", aggregateID)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var stored []ports.StoredEvent
	paginator := dynamodb.NewQueryPaginator(es.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}
		for _, raw := range page.Items {
			var record eventRecord
			if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}
			stored = append(stored, toStoredEvent(record))
		}
	}
	return stored, nil
}

// GetEventsByType retrieves the most recent events of one type
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]ports.StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("GSI2"),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTTYPE#%s", eventType)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by type: %w", err)
	}

	stored := make([]ports.StoredEvent, 0, len(result.Items))
	for _, raw := range result.Items {
		var record eventRecord
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}
		stored = append(stored, toStoredEvent(record))
	}
	return stored, nil
}

// DeleteEvents removes all events for an aggregate
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	stored, err := es.GetEvents(ctx, aggregateID)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}

	// Re-query raw keys; SKs carry the event ID so they cannot be
	// derived from StoredEvent alone.
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTS#%s", aggregateID)},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	var writes []types.WriteRequest
	paginator := dynamodb.NewQueryPaginator(es.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to query event keys: %w", err)
		}
		for _, raw := range page.Items {
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"PK": raw["PK"],
					"SK": raw["SK"],
				}},
			})
		}
	}

	for i := 0; i < len(writes); i += 25 {
		end := i + 25
		if end > len(writes) {
			end = len(writes)
		}
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{es.tableName: writes[i:end]},
		}
		if _, err := es.client.BatchWriteItem(ctx, input); err != nil {
			return fmt.Errorf("failed to delete events batch: %w", err)
		}
	}
	return nil
}

func (es *EventStore) toRecord(event events.DomainEvent) (eventRecord, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return eventRecord{}, err
	}

	eventID := uuid.New().String()
	ts := event.GetTimestamp().UTC().Format(time.RFC3339Nano)
	return eventRecord{
		PK:          fmt.Sprintf("EVENTS#%s", event.GetAggregateID()),
		SK:          fmt.Sprintf("EVENT#%s#%s", ts, eventID),
		EventID:     eventID,
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		EventData:   string(data),
		Timestamp:   ts,
		Version:     event.GetVersion(),
		GSI2PK:      fmt.Sprintf("EVENTTYPE#%s", event.GetEventType()),
		GSI2SK:      fmt.Sprintf("EVENT#%s", ts),
		TTL:         time.Now().Add(eventTTL).Unix(),
	}, nil
}

func toStoredEvent(record eventRecord) ports.StoredEvent {
	ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		ts = time.Time{}
	}
	return ports.StoredEvent{
		AggregateID: record.AggregateID,
		EventType:   record.EventType,
		Timestamp:   ts,
		Version:     record.Version,
		Payload:     []byte(record.EventData),
	}
}
