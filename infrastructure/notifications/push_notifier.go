package notifications

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
)

// toastFrame is the wire shape the dashboard renders as a toast
type toastFrame struct {
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PushNotifier delivers toasts to dashboard clients over the push
// gateway
type PushNotifier struct {
	gateway ports.PushGateway
	logger  *zap.Logger
}

// NewPushNotifier creates a gateway-backed notifier
func NewPushNotifier(gateway ports.PushGateway, logger *zap.Logger) ports.Notifier {
	return &PushNotifier{gateway: gateway, logger: logger}
}

// Success shows a positive toast
func (n *PushNotifier) Success(ctx context.Context, userID, title, message string) error {
	return n.send(ctx, userID, "success", title, message)
}

// Error shows a failure toast
func (n *PushNotifier) Error(ctx context.Context, userID, title, message string) error {
	return n.send(ctx, userID, "error", title, message)
}

func (n *PushNotifier) send(ctx context.Context, userID, level, title, message string) error {
	payload, err := json.Marshal(toastFrame{
		Type:      "toast",
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}
	return n.gateway.Push(ctx, userID, payload)
}

// LogNotifier is the development-mode notifier; it only logs
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier
func NewLogNotifier(logger *zap.Logger) ports.Notifier {
	return &LogNotifier{logger: logger}
}

// Success logs a positive toast
func (n *LogNotifier) Success(ctx context.Context, userID, title, message string) error {
	n.logger.Info("toast",
		zap.String("level", "success"),
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// Error logs a failure toast
func (n *LogNotifier) Error(ctx context.Context, userID, title, message string) error {
	n.logger.Info("toast",
		zap.String("level", "error"),
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("message", message))
	return nil
}
