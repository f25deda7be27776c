package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-checkout/internal/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleDraft() domain.OrderDraft {
	return domain.OrderDraft{
		SessionID:      "sess-9",
		ShippingCharge: 80,
		Total:          290.004,
		Items: []domain.OrderItem{
			{ProductID: "p1", VariantID: "v1", Quantity: 2, UnitPrice: 100},
			{ProductID: "p2", VariantID: "v2", Quantity: 1, UnitPrice: 50},
		},
	}
}

func TestTrackPurchaseWritesKeyedEvent(t *testing.T) {
	w := &recordingWriter{}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &KafkaPublisher{writer: w, logger: log.New(io.Discard, "", 0), now: func() time.Time { return at }}

	require.NoError(t, p.TrackPurchase(context.Background(), "ord-1", sampleDraft()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ord-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "purchase", string(msg.Headers[0].Value))

	var got Purchase
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "ord-1", got.OrderID)
	assert.Equal(t, "sess-9", got.SessionID)
	assert.Equal(t, "BDT", got.Currency)
	assert.Equal(t, 290.0, got.Value)
	assert.Equal(t, 80.0, got.Shipping)
	assert.Len(t, got.Items, 2)
	assert.True(t, got.CompletedAt.Equal(at))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestTrackPurchaseWrapsWriterError(t *testing.T) {
	broker := errors.New("leader not available")
	p := &KafkaPublisher{writer: &recordingWriter{err: broker}, logger: log.New(io.Discard, "", 0), now: time.Now}

	err := p.TrackPurchase(context.Background(), "ord-2", sampleDraft())
	require.Error(t, err)
	assert.ErrorIs(t, err, broker)
}

func TestNopDiscards(t *testing.T) {
	assert.NoError(t, Nop{}.TrackPurchase(context.Background(), "ord-3", sampleDraft()))
}
