package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"go-storefront/models"
)

// OrderPlacedMessage is the body published for every persisted order.
type OrderPlacedMessage struct {
	OrderID  string    `json:"order_id"`
	UserID   string    `json:"user_id"`
	PlacedAt time.Time `json:"placed_at"`
}

// AMQPPublisher is the subset of *amqp.Channel used to publish.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher hands order emails to NotificationWorker through RabbitMQ.
type Publisher struct {
	ch  AMQPPublisher
	log *slog.Logger
}

func NewPublisher(ch AMQPPublisher, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, log: log}
}

// NotifyOrderPlaced publishes the order for NotificationWorker.
func (p *Publisher) NotifyOrderPlaced(ctx context.Context, user *models.User, order *models.Order) error {
	return p.PublishOrderPlaced(ctx, OrderPlacedMessage{
		OrderID:  order.ID.Hex(),
		UserID:   user.ID.Hex(),
		PlacedAt: order.CreatedAt,
	})
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, m OrderPlacedMessage) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal order message: %w", err)
	}

	msgID := uuid.NewString()
	if err := p.ch.PublishWithContext(ctx, "", OrderPlacedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msgID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish order message: %w", err)
	}
	p.log.Debug("order message published", "order_id", m.OrderID, "message_id", msgID)
	return nil
}
