// Package analytics emits purchase conversion events for completed orders.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
)

// Currency of every storefront order.
const Currency = "BDT"

const eventPurchase = "purchase"

// Purchase is the conversion event payload.
type Purchase struct {
	OrderID     string         `json:"orderId"`
	SessionID   string         `json:"sessionId"`
	Value       float64        `json:"value"`
	Shipping    float64        `json:"shipping"`
	Currency    string         `json:"currency"`
	Items       []PurchaseItem `json:"items"`
	CompletedAt time.Time      `json:"completedAt"`
}

type PurchaseItem struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// NewPurchase builds the event for an order created from draft.
func NewPurchase(orderID string, draft domain.OrderDraft, at time.Time) Purchase {
	items := make([]PurchaseItem, 0, len(draft.Items))
	for _, it := range draft.Items {
		items = append(items, PurchaseItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     pricing.Round2(it.UnitPrice),
		})
	}
	return Purchase{
		OrderID:     orderID,
		SessionID:   draft.SessionID,
		Value:       pricing.Round2(draft.Total),
		Shipping:    pricing.Round2(draft.ShippingCharge),
		Currency:    Currency,
		Items:       items,
		CompletedAt: at.UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes purchase events to a topic, keyed by order id.
type KafkaPublisher struct {
	writer messageWriter
	logger *log.Logger
	now    func() time.Time
}

func NewKafkaPublisher(topic string, logger *log.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, logger: logger, now: time.Now}
}

// TrackPurchase publishes the conversion event for an order.
func (p *KafkaPublisher) TrackPurchase(ctx context.Context, orderID string, draft domain.OrderDraft) error {
	payload, err := json.Marshal(NewPurchase(orderID, draft, p.now()))
	if err != nil {
		return fmt.Errorf("marshal purchase %s: %w", orderID, err)
	}
	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventPurchase)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish purchase %s: %w", orderID, err)
	}
	p.logger.Printf("published purchase event for order %s", orderID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

func (Nop) TrackPurchase(context.Context, string, domain.OrderDraft) error { return nil }

func (Nop) Close() error { return nil }
