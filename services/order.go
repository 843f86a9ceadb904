package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"go-storefront/dto"
	"go-storefront/models"
	"go-storefront/repository"
)

// OrderNotifier is told about every persisted order. Implementations must
// not block on email delivery.
type OrderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, user *models.User, order *models.Order) error
}

type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	users    repository.UserRepository
	notifier OrderNotifier
	log      *slog.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	notifier OrderNotifier,
	log *slog.Logger,
) *OrderService {
	return &OrderService{orders: orders, products: products, users: users, notifier: notifier, log: log}
}

// PlaceOrder snapshots every requested product into a Pending order.
// Products are looked up concurrently; the first missing product fails the
// whole order and nothing is persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, req dto.PlaceOrderRequest) (*models.Order, error) {
	ids, err := parseOrderLines(req.Products)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	lines := make([]models.OrderLine, len(req.Products))
	g, gctx := errgroup.WithContext(ctx)
	for i, line := range req.Products {
		i, line := i, line
		g.Go(func() error {
			product, err := s.products.GetByID(gctx, ids[i])
			if err != nil {
				return fmt.Errorf("get product %s: %w", line.ProductID, err)
			}
			if product == nil {
				return &ProductMissingError{ID: line.ProductID}
			}
			lines[i] = models.OrderLine{
				Product:  product.ID,
				Quantity: line.Quantity,
				ItemCode: product.ItemCode,
				Name:     product.Name,
				Picture:  product.Picture,
				Price:    product.Price,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := &models.Order{
		User:      user.ID,
		Products:  lines,
		Status:    models.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	order.TotalItems, order.TotalPrice = Totals(lines)

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.notifier.NotifyOrderPlaced(ctx, user, order); err != nil {
		s.log.Error("notify order placed", "order_id", order.ID.Hex(), "error", err)
	}
	return order, nil
}

// GetOrderConfirmation lists the user's orders, newest first.
func (s *OrderService) GetOrderConfirmation(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	orders, err := s.orders.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Totals returns the item count and the sum of price*quantity over lines.
func Totals(lines []models.OrderLine) (int, decimal.Decimal) {
	items := 0
	total := decimal.Zero
	for _, line := range lines {
		items += line.Quantity
		total = total.Add(line.Subtotal())
	}
	return items, total
}

// MaxLineQuantity bounds a single order line so item totals cannot overflow.
const MaxLineQuantity = 10000

func parseOrderLines(lines []dto.OrderLineRequest) ([]primitive.ObjectID, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]primitive.ObjectID, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: product %s has quantity %d", ErrInvalidQuantity, line.ProductID, line.Quantity)
		}
		id, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{
				fmt.Sprintf("products[%d].productId", i): "must be a valid id",
			}}
		}
		ids[i] = id
	}
	return ids, nil
}
