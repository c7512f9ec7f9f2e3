// Package main implements the WebSocket fan-out Lambda. It receives
// domain events from EventBridge and forwards them as frames to the
// connected dashboards of the affected user.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	awsCfg       aws.Config
	dynamoClient *dynamodb.Client
)

// PushMessage is a fan-out request, either built from an EventBridge
// domain event or invoked directly.
type PushMessage struct {
	EventType    string                 `json:"event_type"`
	TargetUserID string                 `json:"target_user_id,omitempty"`
	Payload      map[string]interface{} `json:"payload"`
}

// Frame is the message format the dashboards receive
type Frame struct {
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func init() {
	var err error
	awsCfg, err = awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoClient = dynamodb.NewFromConfig(awsCfg)
}

func connectionsTable() string {
	if t := os.Getenv("CONNECTIONS_TABLE"); t != "" {
		return t
	}
	return "esgss-connections"
}

func gatewayClient(endpoint string) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String("https://" + endpoint)
	})
}

type connection struct {
	id       string
	endpoint string
}

// connectionsForUser queries the user GSI for active connections
func connectionsForUser(ctx context.Context, userID string) ([]connection, error) {
	result, err := dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable()),
		IndexName:              aws.String("connection-id-index"),
		KeyConditionExpression: aws.String("GSI1PK = :userpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userpk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}

	var conns []connection
	for _, item := range result.Items {
		id, ok := item["ConnectionID"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		endpoint := os.Getenv("WEBSOCKET_ENDPOINT")
		if ep, ok := item["Endpoint"].(*types.AttributeValueMemberS); ok {
			endpoint = ep.Value
		}
		conns = append(conns, connection{id: id.Value, endpoint: endpoint})
	}
	return conns, nil
}

func removeStaleConnection(ctx context.Context, connectionID string) {
	_, err := dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(connectionsTable()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "CONNECTION"},
		},
	})
	if err != nil {
		log.Printf("Failed to remove stale connection %s: %v", connectionID, err)
	}
}

// push sends the frame to every connection of the target user. Gone
// connections are pruned, other failures are counted but do not stop
// the remaining sends.
func push(ctx context.Context, msg PushMessage) error {
	if msg.TargetUserID == "" {
		log.Printf("Dropping event %s without a target user", msg.EventType)
		return nil
	}

	frame, err := json.Marshal(Frame{
		Type:      msg.EventType,
		Timestamp: time.Now().Unix(),
		Data:      msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	conns, err := connectionsForUser(ctx, msg.TargetUserID)
	if err != nil {
		return err
	}

	failed := 0
	for _, conn := range conns {
		_, err := gatewayClient(conn.endpoint).PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(conn.id),
			Data:         frame,
		})
		if err != nil {
			var gone *apigwtypes.GoneException
			if errors.As(err, &gone) {
				removeStaleConnection(ctx, conn.id)
				continue
			}
			log.Printf("Failed to send to connection %s: %v", conn.id, err)
			failed++
		}
	}

	if failed > 0 && failed == len(conns) {
		return fmt.Errorf("all %d sends failed for user %s", failed, msg.TargetUserID)
	}
	return nil
}

// handler accepts EventBridge domain events or direct push requests
func handler(ctx context.Context, event json.RawMessage) error {
	var bridged events.CloudWatchEvent
	if err := json.Unmarshal(event, &bridged); err == nil && bridged.DetailType != "" {
		var payload map[string]interface{}
		if err := json.Unmarshal(bridged.Detail, &payload); err != nil {
			return fmt.Errorf("failed to parse event detail: %w", err)
		}

		msg := PushMessage{
			EventType: bridged.DetailType,
			Payload:   payload,
		}
		if userID, ok := payload["user_id"].(string); ok {
			msg.TargetUserID = userID
		} else if userID, ok := payload["aggregate_id"].(string); ok {
			msg.TargetUserID = userID
		}
		return push(ctx, msg)
	}

	var msg PushMessage
	if err := json.Unmarshal(event, &msg); err == nil && msg.EventType != "" {
		return push(ctx, msg)
	}

	return fmt.Errorf("unable to parse event")
}

func main() {
	lambda.Start(handler)
}
