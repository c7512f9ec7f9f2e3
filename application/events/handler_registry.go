package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
	domainevents "esgss-backend/domain/events"
)

// Dispatcher fans domain events out to in-process handlers and then to
// the downstream publisher. It implements ports.EventPublisher so
// services can stay unaware of the split.
type Dispatcher struct {
	mu         sync.RWMutex
	handlers   []ports.EventHandler
	downstream ports.EventPublisher
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. The downstream publisher is
// optional; without it events only reach local handlers.
func NewDispatcher(downstream ports.EventPublisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{downstream: downstream, logger: logger}
}

// RegisterHandler adds a local handler
func (d *Dispatcher) RegisterHandler(handler ports.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// Publish delivers one event locally and downstream
func (d *Dispatcher) Publish(ctx context.Context, event domainevents.DomainEvent) error {
	d.dispatchLocal(ctx, event)
	if d.downstream != nil {
		return d.downstream.Publish(ctx, event)
	}
	return nil
}

// PublishBatch delivers events locally and downstream
func (d *Dispatcher) PublishBatch(ctx context.Context, events []domainevents.DomainEvent) error {
	for _, event := range events {
		d.dispatchLocal(ctx, event)
	}
	if d.downstream != nil {
		return d.downstream.PublishBatch(ctx, events)
	}
	return nil
}

// dispatchLocal runs every matching handler. Handler failures are
// logged, never propagated; local projections must not block the
// write path.
func (d *Dispatcher) dispatchLocal(ctx context.Context, event domainevents.DomainEvent) {
	d.mu.RLock()
	handlers := make([]ports.EventHandler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			d.logger.Error("event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err))
		}
	}
}
