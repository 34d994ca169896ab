package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	natsclient "github.com/supplylane/be-fulfillment/internal/platform/nats"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// OrderEventPublisher publishes order lifecycle events to NATS.
//
// Subject convention: orders.<event_type>
// Event types: created, approved, rejected
//
// All publish operations are non-fatal; errors are logged but never
// propagated, so broker failures never interrupt fulfillment operations.
type OrderEventPublisher struct {
	nats *natsclient.Client
	log  zerolog.Logger
}

// OrderEvent is the JSON schema published to NATS.
type OrderEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	SellerID    string    `json:"seller_id"`
	BuyerID     string    `json:"buyer_id"`
	Status      string    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewOrderEventPublisher creates a publisher backed by the given NATS client.
// A nil client disables publishing.
func NewOrderEventPublisher(nats *natsclient.Client, log zerolog.Logger) *OrderEventPublisher {
	return &OrderEventPublisher{nats: nats, log: log}
}

// PublishOrderEvent publishes an order event. Subject: orders.<eventType>
func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, eventType string, order *repository.PurchaseOrder) {
	if p.nats == nil {
		return
	}

	event := &OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		SellerID:    order.SellerID,
		BuyerID:     order.BuyerID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("order events: failed to marshal event")
		return
	}

	subject := "orders." + eventType
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("order_id", order.ID).
			Msg("order events: failed to publish (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("order_id", order.ID).
		Msg("order events: event published")
}

// SubscribeOrderCreated wires a handler to new-order events. The handler is
// a refresh signal for the seller's order list, not an incremental diff.
func SubscribeOrderCreated(nats *natsclient.Client, log zerolog.Logger, handler func(evt OrderEvent)) error {
	if nats == nil {
		return nil
	}

	_, err := nats.Subscribe("orders.created", func(data []byte) {
		var evt OrderEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Warn().Err(err).Msg("order events: failed to decode event")
			return
		}
		handler(evt)
	})
	return err
}
