//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"esgss-backend/application/commands"
	"esgss-backend/application/commands/bus"
	"esgss-backend/application/ports"
	querybus "esgss-backend/application/queries/bus"
	"esgss-backend/application/services"
	"esgss-backend/infrastructure/config"
	"esgss-backend/pkg/auth"
	"esgss-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Engine       *services.EvolutionEngine
	Purification *services.PurificationService
	Rewards      *services.RewardService
	LivePush     *services.LivePushService
	AcquireCards *commands.AcquireCardHandler
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Cache        ports.Cache
	Notifier     ports.Notifier
	Metrics      *observability.Metrics
	RateLimiter  *auth.DistributedRateLimiter
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideAPIGatewayManagementClient,
	ProvideDomainConfig,
	ProvideRegistryStore,
	ProvideCardRepository,
	ProvideProfileRepository,
	ProvideEventStore,
	ProvideDistributedLock,
	ProvideEventPublisher,
	ProvidePushGateway,
	ProvideNotifier,
	ProvideQuizGenerator,
	ProvideEvolutionEngine,
	ProvideRewardService,
	ProvidePurificationService,
	ProvideLivePushService,
	ProvideAcquireCardHandler,
	ProvideMetrics,
	ProvideDistributedRateLimiter,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideInMemoryCache,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
