package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/tournevent/reconciler/internal/store"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// notificationChannel is the Redis pub/sub channel transition events are
// published on.
const notificationChannel = "reconciler:notifications"

// TransitionEvent describes a customer-visible order status transition.
type TransitionEvent struct {
	TenantID    uint              `json:"tenantId"`
	OrderID     uint              `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	Status      store.OrderStatus `json:"status"`
}

// Notifier emits customer-visible transition events. Emission is best
// effort: implementations must never return an error to the caller.
type Notifier interface {
	Notify(ctx context.Context, event TransitionEvent)
}

// Emitter persists a notification row and publishes the event on Redis when
// a client is configured. Failures are logged and swallowed so a broken
// notification pipeline can never fail a reconciliation.
type Emitter struct {
	store  NotificationStore
	redis  *redis.Client
	logger *otelzap.Logger
}

// NotificationStore is the slice of the store the emitter writes through.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *store.Notification) error
}

// NewEmitter creates a notification emitter. redisClient may be nil, in
// which case events are only persisted.
func NewEmitter(st NotificationStore, redisClient *redis.Client, logger *otelzap.Logger) *Emitter {
	return &Emitter{store: st, redis: redisClient, logger: logger}
}

// Notify records the transition and publishes it. Best effort on both legs.
func (e *Emitter) Notify(ctx context.Context, event TransitionEvent) {
	category := categoryFor(event.Status)
	if category == "" {
		return
	}

	notification := &store.Notification{
		ID:        uuid.NewString(),
		TenantID:  event.TenantID,
		OrderID:   event.OrderID,
		Category:  category,
		Title:     titleFor(event.Status),
		Body:      messageFor(event),
		CreatedAt: time.Now(),
	}
	if err := e.store.CreateNotification(ctx, notification); err != nil {
		e.logger.Warn("Failed to persist notification",
			zap.Uint("order_id", event.OrderID),
			zap.String("category", category),
			zap.Error(err),
		)
	}

	if e.redis == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("Failed to encode notification event", zap.Error(err))
		return
	}
	if err := e.redis.Publish(ctx, notificationChannel, payload).Err(); err != nil {
		e.logger.Warn("Failed to publish notification event",
			zap.Uint("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func categoryFor(status store.OrderStatus) string {
	switch status {
	case store.StatusDelivered:
		return "order_delivered"
	case store.StatusReturned:
		return "order_returned"
	case store.StatusRescheduled:
		return "order_rescheduled"
	default:
		return ""
	}
}

func titleFor(status store.OrderStatus) string {
	switch status {
	case store.StatusDelivered:
		return "Order delivered"
	case store.StatusReturned:
		return "Order returned"
	case store.StatusRescheduled:
		return "Delivery rescheduled"
	default:
		return "Order updated"
	}
}

func messageFor(event TransitionEvent) string {
	switch event.Status {
	case store.StatusDelivered:
		return fmt.Sprintf("Order %s has been delivered", event.OrderNumber)
	case store.StatusReturned:
		return fmt.Sprintf("Order %s was returned to sender", event.OrderNumber)
	case store.StatusRescheduled:
		return fmt.Sprintf("Delivery of order %s has been rescheduled", event.OrderNumber)
	default:
		return fmt.Sprintf("Order %s status changed to %s", event.OrderNumber, event.Status)
	}
}
