package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifierPublishesToTopicsKeyedByID(t *testing.T) {
	w := &recordingWriter{}
	n := NewKafkaNotifier(w, "storefront", zerolog.Nop())

	productID := uuid.New()
	orderID := uuid.New()
	n.LowStock(context.Background(), LowStockEvent{ProductID: productID, SKU: "SKU-1", Previous: 6, Stock: 4, Threshold: 5, At: time.Now()})
	n.OrderFailed(context.Background(), OrderFailedEvent{OrderID: orderID, Reason: "cart is empty", At: time.Now()})

	if err := n.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !w.closed {
		t.Fatalf("expected writer to be closed")
	}
	if len(w.msgs) != 2 {
		t.Fatalf("unexpected message count: %d", len(w.msgs))
	}

	byTopic := map[string]kafka.Message{}
	for _, m := range w.msgs {
		byTopic[m.Topic] = m
	}
	low, ok := byTopic["storefront.low-stock"]
	if !ok || string(low.Key) != productID.String() {
		t.Fatalf("unexpected low stock message: %+v", low)
	}
	var decoded LowStockEvent
	if err := json.Unmarshal(low.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Stock != 4 || decoded.Threshold != 5 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
	failed, ok := byTopic["storefront.order-failed"]
	if !ok || string(failed.Key) != orderID.String() {
		t.Fatalf("unexpected order failed message: %+v", failed)
	}
}

type countingNotifier struct{ low, failed int }

func (c *countingNotifier) LowStock(context.Context, LowStockEvent)       { c.low++ }
func (c *countingNotifier) OrderFailed(context.Context, OrderFailedEvent) { c.failed++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	m := Multi{a, b, NewLogNotifier(zerolog.Nop())}
	m.LowStock(context.Background(), LowStockEvent{})
	m.OrderFailed(context.Background(), OrderFailedEvent{})
	if a.low != 1 || b.low != 1 || a.failed != 1 || b.failed != 1 {
		t.Fatalf("unexpected counts: a=%+v b=%+v", a, b)
	}
}
