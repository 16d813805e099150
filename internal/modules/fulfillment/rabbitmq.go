package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RabbitQueue keeps tasks in a durable RabbitMQ queue so they survive restarts
// of both the API and the worker.
type RabbitQueue struct {
	conn *amqp.Connection
	name string
	log  zerolog.Logger

	mu  sync.Mutex // guards pub
	pub *amqp.Channel
}

// DialRabbit connects to url, retrying while the broker starts, and declares
// the durable task queue.
func DialRabbit(ctx context.Context, url, queue string, logger zerolog.Logger) (*RabbitQueue, error) {
	log := logger.With().Str("component", "rabbitmq").Str("queue", queue).Logger()

	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("connect to rabbitmq failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}
	if err := declare(ch, queue); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitQueue{conn: conn, name: queue, log: log, pub: ch}, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue: %w", err)
	}
	return nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.pub.PublishWithContext(ctx,
		"",     // default exchange
		q.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.OrderID.String(),
			Timestamp:    task.EnqueuedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTaskDelivery, err)
	}
	return nil
}

// Consume acknowledges each delivery after the handler returns. Malformed
// bodies are rejected without requeue.
func (q *RabbitQueue) Consume(ctx context.Context, concurrency int, handler TaskHandler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("could not open channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, q.name); err != nil {
		return err
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("could not set qos: %w", err)
	}

	const tag = "storefront-fulfillment"
	msgs, err := ch.Consume(
		q.name, // queue
		tag,    // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}

	detached := context.WithoutCancel(ctx)
	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-msgs:
					if !ok {
						return ErrQueueClosed
					}
					var task Task
					if err := json.Unmarshal(d.Body, &task); err != nil {
						q.log.Error().Err(err).Str("message_id", d.MessageId).Msg("malformed task rejected")
						d.Nack(false, false)
						continue
					}
					handler(detached, task)
					if err := d.Ack(false); err != nil {
						q.log.Error().Err(err).Str("order_id", task.OrderID.String()).Msg("ack failed")
					}
				}
			}
		})
	}
	err = g.Wait()
	ch.Cancel(tag, false)
	return err
}

func (q *RabbitQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pub.Close()
	return q.conn.Close()
}
