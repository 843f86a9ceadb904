package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-storefront/models"
)

const emailTimeout = 30 * time.Second

// OrderMailer sends the two emails that follow an order.
type OrderMailer interface {
	SendOrderNotification(ctx context.Context, user *models.User, order *models.Order) error
	SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error
}

// InlineNotifier sends order emails from a background goroutine in the API
// process. It is used when RabbitMQ is not configured.
type InlineNotifier struct {
	mailer OrderMailer
	log    *slog.Logger
	wg     sync.WaitGroup
}

func NewInlineNotifier(mailer OrderMailer, log *slog.Logger) *InlineNotifier {
	return &InlineNotifier{mailer: mailer, log: log}
}

func (n *InlineNotifier) NotifyOrderPlaced(ctx context.Context, user *models.User, order *models.Order) error {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, emailTimeout)
		defer cancel()

		log := n.log.With("order_id", order.ID.Hex(), "user_id", user.ID.Hex())
		if err := n.mailer.SendOrderNotification(ctx, user, order); err != nil {
			log.Error("send order notification", "error", err)
		}
		if err := n.mailer.SendOrderConfirmation(ctx, user, order); err != nil {
			log.Error("send order confirmation", "error", err)
		}
	}()
	return nil
}

// Wait blocks until every pending email goroutine has finished.
func (n *InlineNotifier) Wait() { n.wg.Wait() }
