package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
)

const pushTimeout = 5 * time.Second

// LivePushService mirrors registry changes to connected dashboard
// clients over the push gateway. It subscribes to the evolution engine
// and forwards each notification as a JSON frame.
type LivePushService struct {
	gateway ports.PushGateway
	logger  *zap.Logger
	cancel  func()
}

// NewLivePushService creates the service without attaching it
func NewLivePushService(gateway ports.PushGateway, logger *zap.Logger) *LivePushService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LivePushService{gateway: gateway, logger: logger}
}

// pushFrame is the wire shape sent to dashboard clients
type pushFrame struct {
	Type             string    `json:"type"`
	EntityID         string    `json:"entityId"`
	Traits           []string  `json:"traits"`
	Confidence       string    `json:"confidence"`
	InteractionCount int       `json:"interactionCount"`
	Timestamp        time.Time `json:"timestamp"`
}

// Attach subscribes to the engine. Call Detach to stop forwarding.
func (s *LivePushService) Attach(engine *EvolutionEngine) {
	s.cancel = engine.Subscribe(s.forward)
}

// Detach removes the engine subscription
func (s *LivePushService) Detach() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *LivePushService) forward(n ChangeNotification) {
	traits := make([]string, 0, len(n.Node.Traits))
	for _, t := range n.Node.Traits {
		traits = append(traits, string(t))
	}
	frame := pushFrame{
		Type:             "node." + string(n.Kind),
		EntityID:         n.Node.ID.String(),
		Traits:           traits,
		Confidence:       string(n.Node.Confidence),
		InteractionCount: n.Node.InteractionCount,
		Timestamp:        time.Now(),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("failed to encode push frame", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := s.gateway.Push(ctx, n.UserID, payload); err != nil {
		s.logger.Warn("push delivery failed",
			zap.String("user_id", n.UserID), zap.Error(err))
	}
}
