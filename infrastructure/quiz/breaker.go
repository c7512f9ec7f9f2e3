package quiz

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
)

// BreakerGenerator wraps an AI quiz generator with a circuit breaker
// and falls back to the template generator while the breaker is open.
// A flaky model API must never block purification.
type BreakerGenerator struct {
	primary  ports.QuizGenerator
	fallback ports.QuizGenerator
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewBreakerGenerator wires the breaker around primary with fallback
func NewBreakerGenerator(primary, fallback ports.QuizGenerator, logger *zap.Logger) *BreakerGenerator {
	settings := gobreaker.Settings{
		Name:        "quiz-generator",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("quiz generator breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerGenerator{
		primary:  primary,
		fallback: fallback,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   logger,
	}
}

// Generate tries the primary generator through the breaker, then the
// fallback
func (b *BreakerGenerator) Generate(ctx context.Context, card *entities.Card, pool []*entities.Card) (valueobjects.Quiz, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.primary.Generate(ctx, card, pool)
	})
	if err == nil {
		return result.(valueobjects.Quiz), nil
	}

	b.logger.Warn("primary quiz generator unavailable, using template fallback",
		zap.String("card_id", card.ID().String()),
		zap.Error(err))
	return b.fallback.Generate(ctx, card, pool)
}

var _ ports.QuizGenerator = (*BreakerGenerator)(nil)
