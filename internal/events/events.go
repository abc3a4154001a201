// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"storefront/internal/model"
)

// Event types published for orders.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the JSON payload of an order notification.
type Event struct {
	Type           string            `json:"type"`
	OrderID        string            `json:"orderId"`
	Status         model.OrderStatus `json:"status"`
	PreviousStatus model.OrderStatus `json:"previousStatus,omitempty"`
	TotalAmount    float64           `json:"totalAmount"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// OrderCreated builds the event emitted after an order is stored.
func OrderCreated(order *model.Order, at time.Time) Event {
	return Event{
		Type:        TypeOrderCreated,
		OrderID:     order.OrderID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  at.UTC(),
	}
}

// OrderStatusChanged builds the event emitted after a status overwrite.
func OrderStatusChanged(order *model.Order, previous model.OrderStatus, at time.Time) Event {
	return Event{
		Type:           TypeOrderStatusChanged,
		OrderID:        order.OrderID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount,
		OccurredAt:     at.UTC(),
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	// Publish blocks until the event is acknowledged or ctx is done.
	Publish(ctx context.Context, event Event) error

	// Close flushes and releases the underlying connection.
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that discards every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func (noopPublisher) Close() error { return nil }
