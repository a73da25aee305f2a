package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront-api/internal/model"
)

const (
	orderQueueName = "orders.placed"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.placed.dlq"
	idempotencyTTL = 24 * time.Hour
)

// SetupRabbitMQ declares the order queue with its dead-letter exchange and queue.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	return nil
}

// OrderPublisher sends order.placed events. An amqp.Channel is not safe for
// concurrent publishing, so calls are serialized.
type OrderPublisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
}

func NewOrderPublisher(ch *amqp.Channel) *OrderPublisher {
	return &OrderPublisher{channel: ch}
}

func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, msg model.OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    msg.PlacedAt,
		Type:         "order.placed",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish order %d: %w", msg.OrderID, err)
	}
	return nil
}

// CacheInvalidator drops cached product reads.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, ids ...int)
}

// ProcessedStore remembers which orders were already handled. *redis.Client satisfies it.
type ProcessedStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// OrderWorker consumes order.placed events and evicts the cached entries of
// every product whose stock the order changed.
type OrderWorker struct {
	channel   *amqp.Channel
	products  CacheInvalidator
	processed ProcessedStore
	log       *slog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewOrderWorker(ch *amqp.Channel, products CacheInvalidator, processed ProcessedStore, log *slog.Logger) *OrderWorker {
	return &OrderWorker{
		channel:   ch,
		products:  products,
		processed: processed,
		log:       log,
		done:      make(chan struct{}),
	}
}

func (w *OrderWorker) Start(ctx context.Context) error {
	if err := w.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

// Stop ends consumption and waits for the in-flight message to finish.
func (w *OrderWorker) Stop() {
	close(w.done)
	w.wg.Wait()
}

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var orderMsg model.OrderMessage
	if err := json.Unmarshal(msg.Body, &orderMsg); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", orderMsg.OrderID, "user_id", orderMsg.UserID)

	key := idempotencyKey(orderMsg.OrderID)
	exists, err := w.processed.Exists(ctx, key).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	if exists > 0 {
		log.Info("order already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	w.products.InvalidateCache(ctx, orderMsg.ProductIDs...)

	if err := w.processed.Set(ctx, key, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order processed", "products", len(orderMsg.ProductIDs))
}

func idempotencyKey(orderID int) string {
	return "order_processed:" + strconv.Itoa(orderID)
}
