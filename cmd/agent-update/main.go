// Package main implements the agent update Lambda. AI pipelines invoke
// it (directly or through EventBridge) to write computed values,
// confidence revisions and insights back onto registry nodes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"esgss-backend/application/commands"
	commandbus "esgss-backend/application/commands/bus"
	"esgss-backend/infrastructure/config"
	"esgss-backend/infrastructure/di"
)

var commandBus *commandbus.CommandBus

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	commandBus = container.CommandBus
}

// AgentUpdateRequest is the pipeline-facing input shape
type AgentUpdateRequest struct {
	UserID     string   `json:"user_id"`
	EntityID   string   `json:"entity_id"`
	Value      any      `json:"value,omitempty"`
	HasValue   bool     `json:"has_value,omitempty"`
	Confidence *string  `json:"confidence,omitempty"`
	Traits     []string `json:"traits,omitempty"`
	AIInsight  *string  `json:"ai_insight,omitempty"`
}

func apply(ctx context.Context, req AgentUpdateRequest) error {
	cmd := commands.AgentUpdateCommand{
		UserID:     req.UserID,
		EntityID:   req.EntityID,
		Value:      req.Value,
		HasValue:   req.HasValue,
		Confidence: req.Confidence,
		Traits:     req.Traits,
		AIInsight:  req.AIInsight,
	}
	if err := commandBus.Send(ctx, cmd); err != nil {
		return fmt.Errorf("agent update for %s failed: %w", req.EntityID, err)
	}
	return nil
}

// handler accepts a direct invocation payload or an EventBridge event
// whose detail carries the same shape
func handler(ctx context.Context, event json.RawMessage) error {
	var bridged awsevents.CloudWatchEvent
	if err := json.Unmarshal(event, &bridged); err == nil && bridged.DetailType != "" {
		var req AgentUpdateRequest
		if err := json.Unmarshal(bridged.Detail, &req); err != nil {
			return fmt.Errorf("failed to parse event detail: %w", err)
		}
		return apply(ctx, req)
	}

	var req AgentUpdateRequest
	if err := json.Unmarshal(event, &req); err != nil {
		return fmt.Errorf("unable to parse event: %w", err)
	}
	return apply(ctx, req)
}

func main() {
	lambda.Start(handler)
}
