package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// MessageWriter is the part of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes events as JSON to <prefix>.low-stock and
// <prefix>.order-failed. Publishing happens on a background goroutine.
type KafkaNotifier struct {
	writer        MessageWriter
	lowStockTopic string
	failedTopic   string
	log           zerolog.Logger
	wg            sync.WaitGroup
}

// NewKafkaWriter builds a writer whose topic is taken from each message.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func NewKafkaNotifier(writer MessageWriter, topicPrefix string, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer:        writer,
		lowStockTopic: topicPrefix + ".low-stock",
		failedTopic:   topicPrefix + ".order-failed",
		log:           logger.With().Str("component", "notify.kafka").Logger(),
	}
}

func (n *KafkaNotifier) LowStock(_ context.Context, e LowStockEvent) {
	n.publish(n.lowStockTopic, e.ProductID.String(), e)
}

func (n *KafkaNotifier) OrderFailed(_ context.Context, e OrderFailedEvent) {
	n.publish(n.failedTopic, e.OrderID.String(), e)
}

func (n *KafkaNotifier) publish(topic, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Str("topic", topic).Msg("encode event")
		return
	}
	msg := kafka.Message{Topic: topic, Key: []byte(key), Value: data, Time: time.Now().UTC()}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := n.writer.WriteMessages(ctx, msg); err != nil {
			n.log.Error().Err(err).Str("topic", topic).Str("key", key).Msg("publish event")
		}
	}()
}

// Close waits for in-flight publishes and closes the writer.
func (n *KafkaNotifier) Close() error {
	n.wg.Wait()
	return n.writer.Close()
}
