package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
)

// Gateway implements PushGateway over the API Gateway Management API.
// Connection IDs live in a DynamoDB table written by the ws-connect
// handler.
type Gateway struct {
	dynamo           *dynamodb.Client
	apigw            *apigatewaymanagementapi.Client
	connectionsTable string
	logger           *zap.Logger
}

// NewGateway creates a push gateway for one WebSocket endpoint
func NewGateway(dynamo *dynamodb.Client, apigw *apigatewaymanagementapi.Client, connectionsTable string, logger *zap.Logger) ports.PushGateway {
	return &Gateway{
		dynamo:           dynamo,
		apigw:            apigw,
		connectionsTable: connectionsTable,
		logger:           logger,
	}
}

// Push sends a payload to every open connection of a user. Gone
// connections are pruned from the table as they are discovered.
func (g *Gateway) Push(ctx context.Context, userID string, payload []byte) error {
	connectionIDs, err := g.connectionsForUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	var failed int
	for _, connID := range connectionIDs {
		_, err := g.apigw.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(connID),
			Data:         payload,
		})
		if err != nil {
			var gone *apigwTypes.GoneException
			if errors.As(err, &gone) {
				g.pruneConnection(ctx, connID)
				continue
			}
			failed++
			g.logger.Warn("failed to post to connection",
				zap.String("connectionID", connID), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to deliver to %d of %d connections", failed, len(connectionIDs))
	}
	return nil
}

func (g *Gateway) connectionsForUser(ctx context.Context, userID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(g.connectionsTable),
		IndexName:              aws.String("connection-id-index"),
		KeyConditionExpression: aws.String("GSI1PK = :userpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userpk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		},
	}

	result, err := g.dynamo.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}

	var connectionIDs []string
	for _, item := range result.Items {
		if connID, ok := item["ConnectionID"].(*types.AttributeValueMemberS); ok {
			connectionIDs = append(connectionIDs, connID.Value)
		}
	}
	return connectionIDs, nil
}

func (g *Gateway) pruneConnection(ctx context.Context, connectionID string) {
	_, err := g.dynamo.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(g.connectionsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "CONNECTION"},
		},
	})
	if err != nil {
		g.logger.Warn("failed to prune stale connection",
			zap.String("connectionID", connectionID), zap.Error(err))
		return
	}
	g.logger.Debug("stale connection pruned", zap.String("connectionID", connectionID))
}
