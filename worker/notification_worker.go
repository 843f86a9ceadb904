package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/repository"
)

const idempotencyTTL = 24 * time.Hour

// Deduper claims a key at most once. *cache.Idempotency implements it.
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Consumer is the subset of *amqp.Channel used to consume.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// errPermanent marks failures that a redelivery cannot fix.
var errPermanent = errors.New("permanent failure")

type outcome int

const (
	ack outcome = iota
	requeue
	reject
)

// NotificationWorker consumes OrderPlacedMessage and sends the store
// notification and the customer confirmation for each order.
type NotificationWorker struct {
	consumer Consumer
	orders   repository.OrderRepository
	users    repository.UserRepository
	mailer   OrderMailer
	dedupe   Deduper
	log      *slog.Logger

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewNotificationWorker builds a worker. dedupe may be nil, in which case a
// redelivered message can send its emails twice.
func NewNotificationWorker(
	consumer Consumer,
	orders repository.OrderRepository,
	users repository.UserRepository,
	mailer OrderMailer,
	dedupe Deduper,
	log *slog.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		orders:   orders,
		users:    users,
		mailer:   mailer,
		dedupe:   dedupe,
		log:      log,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.consumer.Consume(OrderPlacedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		defer close(w.stopped)
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

	w.log.Info("notification worker started", "queue", OrderPlacedQueue)
	return nil
}

// Stop ends consumption and waits for the in-flight message to finish.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	<-w.stopped
}

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var err error
	switch w.handle(ctx, msg.Body, msg.Redelivered) {
	case ack:
		err = msg.Ack(false)
	case requeue:
		err = msg.Nack(false, true)
	case reject:
		err = msg.Nack(false, false) // dead-lettered
	}
	if err != nil {
		w.log.Error("acknowledge message", "message_id", msg.MessageId, "error", err)
	}
}

func (w *NotificationWorker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	var m OrderPlacedMessage
	if err := json.Unmarshal(body, &m); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		return reject
	}
	log := w.log.With("order_id", m.OrderID, "user_id", m.UserID)

	err := w.notify(ctx, m)
	switch {
	case err == nil:
		log.Info("order emails sent")
		return ack
	case errors.Is(err, errPermanent):
		log.Error("drop order message", "error", err)
		return reject
	case redelivered:
		log.Error("order emails failed after retry", "error", err)
		return reject
	default:
		log.Warn("order emails failed, requeueing", "error", err)
		return requeue
	}
}

func (w *NotificationWorker) notify(ctx context.Context, m OrderPlacedMessage) error {
	orderID, err := primitive.ObjectIDFromHex(m.OrderID)
	if err != nil {
		return fmt.Errorf("%w: order id %q", errPermanent, m.OrderID)
	}
	userID, err := primitive.ObjectIDFromHex(m.UserID)
	if err != nil {
		return fmt.Errorf("%w: user id %q", errPermanent, m.UserID)
	}

	order, err := w.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("%w: order %s not found", errPermanent, m.OrderID)
	}
	user, err := w.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %s not found", errPermanent, m.UserID)
	}

	if err := w.sendOnce(ctx, "order-notification:"+m.OrderID, func(ctx context.Context) error {
		return w.mailer.SendOrderNotification(ctx, user, order)
	}); err != nil {
		return fmt.Errorf("send order notification: %w", err)
	}
	if err := w.sendOnce(ctx, "order-confirmation:"+m.OrderID, func(ctx context.Context) error {
		return w.mailer.SendOrderConfirmation(ctx, user, order)
	}); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	return nil
}

// sendOnce runs send unless key was already claimed. A failed send releases
// the key so the retry can claim it.
func (w *NotificationWorker) sendOnce(ctx context.Context, key string, send func(context.Context) error) error {
	if w.dedupe != nil {
		claimed, err := w.dedupe.MarkOnce(ctx, key, idempotencyTTL)
		if err != nil {
			return err
		}
		if !claimed {
			w.log.Info("email already sent, skipping", "key", key)
			return nil
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()
	if err := send(sendCtx); err != nil {
		if w.dedupe != nil {
			if rerr := w.dedupe.Release(ctx, key); rerr != nil {
				w.log.Error("release idempotency key", "key", key, "error", rerr)
			}
		}
		return err
	}
	return nil
}
