package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/commands/bus"
	cmdhandlers "esgss-backend/application/commands/handlers"
	appevents "esgss-backend/application/events"
	"esgss-backend/application/ports"
	"esgss-backend/application/queries"
	querybus "esgss-backend/application/queries/bus"
	queryhandlers "esgss-backend/application/queries/handlers"
	"esgss-backend/application/services"
	domaincfg "esgss-backend/domain/config"
	"esgss-backend/infrastructure/config"
	dynamopersist "esgss-backend/infrastructure/persistence/dynamodb"
	"esgss-backend/infrastructure/persistence/memory"
	messaging "esgss-backend/infrastructure/messaging/eventbridge"
	"esgss-backend/infrastructure/notifications"
	"esgss-backend/infrastructure/quiz"
	"esgss-backend/infrastructure/websocket"
	"esgss-backend/pkg/auth"
	"esgss-backend/pkg/observability"
)

// ProvideLogger creates the application logger based on environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads AWS configuration for the configured region
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *eventbridge.Client {
	return eventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideAPIGatewayManagementClient creates the client used to push
// frames to WebSocket connections. The endpoint comes from the deployed
// API Gateway stage.
func ProvideAPIGatewayManagementClient(awsCfg aws.Config, cfg *config.Config) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		if cfg.WebSocketEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.WebSocketEndpoint)
		}
	})
}

// ProvideDomainConfig builds the evolution and purification tuning from
// compiled defaults plus environment overrides.
func ProvideDomainConfig(cfg *config.Config) domaincfg.DomainConfig {
	dc := domaincfg.DefaultDomainConfig()
	if cfg.QuizTimeoutSec > 0 {
		dc.Purification.QuizTimeoutSecs = cfg.QuizTimeoutSec
	}
	return dc
}

// ProvideRegistryStore creates the registry store. Development runs on
// the in-memory store so the service starts without AWS credentials.
func ProvideRegistryStore(client *dynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RegistryStore {
	if cfg.IsDevelopment() {
		return memory.NewRegistryStore()
	}
	return dynamopersist.NewRegistryStore(client, cfg.DynamoDBTable, logger)
}

// ProvideCardRepository creates the card repository
func ProvideCardRepository(client *dynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.CardRepository {
	if cfg.IsDevelopment() {
		return memory.NewCardRepository()
	}
	return dynamopersist.NewCardRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideProfileRepository creates the profile repository
func ProvideProfileRepository(client *dynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ProfileRepository {
	if cfg.IsDevelopment() {
		return memory.NewProfileRepository()
	}
	return dynamopersist.NewProfileRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventStore creates the audit trail store. Development skips it;
// the engine treats a nil store as no auditing.
func ProvideEventStore(client *dynamodb.Client, cfg *config.Config) ports.EventStore {
	if cfg.IsDevelopment() {
		return nil
	}
	return dynamopersist.NewEventStore(client, cfg.DynamoDBTable)
}

// ProvideDistributedLock creates the registry write lock. A single
// development process does not need cross-instance coordination.
func ProvideDistributedLock(client *dynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DistributedLock {
	if cfg.IsDevelopment() {
		return nil
	}
	return dynamopersist.NewDistributedLock(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher wires the local dispatcher in front of
// EventBridge. Development publishes locally only.
func ProvideEventPublisher(client *eventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	var downstream ports.EventPublisher
	if !cfg.IsDevelopment() && cfg.EventBusName != "" {
		downstream = messaging.NewPublisher(client, cfg.EventBusName, logger)
	}
	return appevents.NewDispatcher(downstream, logger)
}

// ProvidePushGateway creates the WebSocket push gateway
func ProvidePushGateway(dynamo *dynamodb.Client, apigw *apigatewaymanagementapi.Client, cfg *config.Config, logger *zap.Logger) ports.PushGateway {
	return websocket.NewGateway(dynamo, apigw, cfg.ConnectionsTable, logger)
}

// ProvideNotifier creates the toast notifier. Without live push the
// notifier degrades to structured log lines.
func ProvideNotifier(gateway ports.PushGateway, cfg *config.Config, logger *zap.Logger) ports.Notifier {
	if cfg.EnableLivePush && cfg.WebSocketEndpoint != "" {
		return notifications.NewPushNotifier(gateway, logger)
	}
	return notifications.NewLogNotifier(logger)
}

// ProvideQuizGenerator builds the quiz generation chain. The template
// generator always exists as the fallback; Gemini sits in front of it
// behind a circuit breaker when configured.
func ProvideQuizGenerator(ctx context.Context, cfg *config.Config, dc domaincfg.DomainConfig, logger *zap.Logger) ports.QuizGenerator {
	fallback := quiz.NewTemplateGenerator(dc.Purification.QuizOptionCount, 0)
	if cfg.QuizProvider != "gemini" {
		return fallback
	}

	gemini, err := quiz.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Warn("gemini generator unavailable, using template quizzes", zap.Error(err))
		return fallback
	}
	return quiz.NewBreakerGenerator(gemini, fallback, logger)
}

// ProvideEvolutionEngine creates the node evolution engine
func ProvideEvolutionEngine(
	store ports.RegistryStore,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	lock ports.DistributedLock,
	dc domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.EvolutionEngine {
	return services.NewEvolutionEngine(store, publisher, audit, lock, dc, logger)
}

// ProvideRewardService creates the XP and level service
func ProvideRewardService(
	profiles ports.ProfileRepository,
	cards ports.CardRepository,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	notifier ports.Notifier,
	logger *zap.Logger,
) *services.RewardService {
	return services.NewRewardService(profiles, cards, publisher, audit, notifier, logger)
}

// ProvidePurificationService creates the purification session service
func ProvidePurificationService(
	cards ports.CardRepository,
	generator ports.QuizGenerator,
	rewards *services.RewardService,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	dc domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.PurificationService {
	return services.NewPurificationService(cards, generator, rewards, notifier, publisher, audit, dc.Purification, logger)
}

// ProvideLivePushService creates the registry-to-WebSocket bridge
func ProvideLivePushService(gateway ports.PushGateway, logger *zap.Logger) *services.LivePushService {
	return services.NewLivePushService(gateway, logger)
}

// ProvideAcquireCardHandler creates the card acquisition handler. It is
// exposed directly because callers need the minted card back.
func ProvideAcquireCardHandler(cards ports.CardRepository, publisher ports.EventPublisher, logger *zap.Logger) *commands.AcquireCardHandler {
	return commands.NewAcquireCardHandler(cards, publisher, logger)
}

// ProvideMetrics creates the CloudWatch metrics sink
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics("ESGSS", nil)
	}
	return observability.NewMetrics("ESGSS/"+cfg.Environment, client)
}

// ProvideDistributedRateLimiter creates the shared IP rate limiter
func ProvideDistributedRateLimiter(client *dynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	return auth.NewDistributedIPRateLimiter(client, cfg.DynamoDBTable, 120)
}

// ProvideInMemoryCache creates the query cache
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}

// CommandHandlerAdapter adapts typed command handlers to the bus interface
type CommandHandlerAdapter struct {
	handler func(ctx context.Context, cmd bus.Command) error
}

// Handle implements bus.CommandHandler
func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates and configures the command bus with all handlers
func ProvideCommandBus(
	engine *services.EvolutionEngine,
	cards ports.CardRepository,
	cache ports.Cache,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	acquireHandler *commands.AcquireCardHandler,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	busLogger := &zapLoggerAdapter{logger: logger}
	pipeline := bus.NewPipeline(
		bus.RecoveryMiddleware(busLogger),
		bus.LoggingMiddleware(busLogger),
	)

	registerNode := commands.NewRegisterNodeHandler(engine, logger)
	recordInteraction := commands.NewRecordInteractionHandler(engine, logger)
	agentUpdate := commands.NewAgentUpdateHandler(engine, logger)
	resetRegistry := commands.NewResetRegistryHandler(engine, cache, publisher, audit, logger)
	reviewCard := cmdhandlers.NewReviewCardHandler(cards, publisher, logger)
	deleteCard := cmdhandlers.NewDeleteCardHandler(cards, cache, logger)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.RegisterNodeCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.RegisterNodeCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				return registerNode.Handle(ctx, c)
			},
		})},
		{commands.RecordInteractionCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.RecordInteractionCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				return recordInteraction.Handle(ctx, c)
			},
		})},
		{commands.AgentUpdateCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.AgentUpdateCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				return agentUpdate.Handle(ctx, c)
			},
		})},
		{commands.ResetRegistryCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.ResetRegistryCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				return resetRegistry.Handle(ctx, c)
			},
		})},
		{commands.AcquireCardCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.AcquireCardCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				_, err := acquireHandler.Handle(ctx, c)
				return err
			},
		})},
		{commands.ReviewCardCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.ReviewCardCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				return reviewCard.Handle(ctx, c)
			},
		})},
		{commands.DeleteCardCommand{}, pipeline.Execute(&CommandHandlerAdapter{
			handler: func(ctx context.Context, cmd bus.Command) error {
				c, ok := cmd.(commands.DeleteCardCommand)
				if !ok {
					return fmt.Errorf("invalid command type: %T", cmd)
				}
				return deleteCard.Handle(ctx, c)
			},
		})},
	}

	for _, r := range registrations {
		if err := commandBus.Register(r.cmd, r.handler); err != nil {
			return nil, fmt.Errorf("failed to register %T: %w", r.cmd, err)
		}
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts typed query handlers to the bus interface
type QueryHandlerAdapter struct {
	handler func(ctx context.Context, query querybus.Query) (interface{}, error)
}

// Handle implements querybus.QueryHandler
func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// metricsRecorder bridges the CloudWatch sink to the query bus metrics
// surface. The two packages declare their own Timer interface, so the
// sink cannot satisfy the bus interface directly.
type metricsRecorder struct {
	metrics *observability.Metrics
}

func (r metricsRecorder) StartTimer(metric, label string) querybus.Timer {
	return r.metrics.StartTimer(metric, label)
}

func (r metricsRecorder) Increment(metric, label string) {
	r.metrics.Increment(metric, label)
}

// ProvideQueryBus creates and configures the query bus with all handlers
func ProvideQueryBus(
	engine *services.EvolutionEngine,
	cards ports.CardRepository,
	rewards *services.RewardService,
	cache ports.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	instrument := querybus.NewMetricsMiddleware(metricsRecorder{metrics: metrics})

	registryHandler := queryhandlers.NewRegistryQueryHandler(engine, logger)
	cardHandler := queryhandlers.NewCardQueryHandler(cards, rewards, cache, logger)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetNodeQuery{}, &QueryHandlerAdapter{
			handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
				q, ok := query.(queries.GetNodeQuery)
				if !ok {
					return nil, fmt.Errorf("invalid query type: %T", query)
				}
				return registryHandler.HandleGetNode(ctx, q)
			},
		}},
		{queries.ListNodesQuery{}, &QueryHandlerAdapter{
			handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
				q, ok := query.(queries.ListNodesQuery)
				if !ok {
					return nil, fmt.Errorf("invalid query type: %T", query)
				}
				return registryHandler.HandleListNodes(ctx, q)
			},
		}},
		{queries.GetHeatMapQuery{}, &QueryHandlerAdapter{
			handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
				q, ok := query.(queries.GetHeatMapQuery)
				if !ok {
					return nil, fmt.Errorf("invalid query type: %T", query)
				}
				return registryHandler.HandleGetHeatMap(ctx, q)
			},
		}},
		{queries.GetCardQuery{}, &QueryHandlerAdapter{
			handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
				q, ok := query.(queries.GetCardQuery)
				if !ok {
					return nil, fmt.Errorf("invalid query type: %T", query)
				}
				return cardHandler.HandleGetCard(ctx, q)
			},
		}},
		{queries.ListCardsQuery{}, &QueryHandlerAdapter{
			handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
				q, ok := query.(queries.ListCardsQuery)
				if !ok {
					return nil, fmt.Errorf("invalid query type: %T", query)
				}
				return cardHandler.HandleListCards(ctx, q)
			},
		}},
		{queries.GetProfileQuery{}, &QueryHandlerAdapter{
			handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
				q, ok := query.(queries.GetProfileQuery)
				if !ok {
					return nil, fmt.Errorf("invalid query type: %T", query)
				}
				return cardHandler.HandleGetProfile(ctx, q)
			},
		}},
	}

	for _, r := range registrations {
		if err := queryBus.Register(r.query, instrument.Wrap(r.handler)); err != nil {
			return nil, fmt.Errorf("failed to register %T: %w", r.query, err)
		}
	}

	return queryBus, nil
}

// zapLoggerAdapter adapts zap to the command bus Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (z *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	z.logger.Info(msg, toZapFields(keysAndValues)...)
}

func (z *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	z.logger.Error(msg, toZapFields(keysAndValues)...)
}

func toZapFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
