package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/dto"
	"go-storefront/models"
)

type orderFixture struct {
	users    *mockUserRepo
	products *mockProductRepo
	orders   *mockOrderRepo
	notifier *fakeNotifier
	svc      *OrderService
	user     *models.User
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		users:    newMockUserRepo(),
		products: newMockProductRepo(),
		orders:   newMockOrderRepo(),
		notifier: &fakeNotifier{},
	}
	f.user = f.users.add(&models.User{Email: "thabo@example.com", Username: "thabo"})
	f.svc = NewOrderService(f.orders, f.products, f.users, f.notifier, discardLog)
	return f
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newOrderFixture()
	kettle := f.products.add(&models.Product{ItemCode: "K1", Name: "Kettle", Price: decimal.RequireFromString("349.99")})
	mug := f.products.add(&models.Product{ItemCode: "M1", Name: "Mug", Price: decimal.RequireFromString("45.50")})

	order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 1},
		{ProductID: mug.ID.Hex(), Quantity: 4},
	}})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, f.user.ID, order.User)
	assert.Equal(t, 5, order.TotalItems)
	assert.Equal(t, "531.99", order.TotalPrice.StringFixed(2))
	require.Len(t, order.Products, 2)
	assert.Equal(t, "Kettle", order.Products[0].Name)
	assert.Equal(t, "Mug", order.Products[1].Name)
	assert.Equal(t, "M1", order.Products[1].ItemCode)

	assert.Len(t, f.orders.orders, 1)
	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, order.ID, f.notifier.orders[0].ID)
}

func TestOrderService_PlaceOrder_SnapshotsPrice(t *testing.T) {
	f := newOrderFixture()
	kettle := f.products.add(&models.Product{Name: "Kettle", Price: decimal.NewFromInt(100)})

	order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 2},
	}})
	require.NoError(t, err)

	kettle.Price = decimal.NewFromInt(999)
	stored := f.orders.orders[order.ID]
	assert.True(t, stored.Products[0].Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, stored.TotalPrice.Equal(decimal.NewFromInt(200)))
}

func TestOrderService_PlaceOrder_MissingProduct(t *testing.T) {
	f := newOrderFixture()
	kettle := f.products.add(&models.Product{Name: "Kettle", Price: decimal.NewFromInt(100)})
	missing := primitive.NewObjectID().Hex()

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 1},
		{ProductID: missing, Quantity: 1},
	}})
	require.ErrorIs(t, err, ErrProductNotFound)
	var perr *ProductMissingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, missing, perr.ID)

	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.notifier.orders)
}

func TestOrderService_PlaceOrder_Empty(t *testing.T) {
	f := newOrderFixture()

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestOrderService_PlaceOrder_InvalidQuantity(t *testing.T) {
	f := newOrderFixture()
	kettle := f.products.add(&models.Product{Name: "Kettle"})

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 0},
	}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Zero(t, f.products.lookups)
}

func TestOrderService_PlaceOrder_QuantityTooLarge(t *testing.T) {
	f := newOrderFixture()
	kettle := f.products.add(&models.Product{Name: "Kettle"})

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 1},
		{ProductID: kettle.ID.Hex(), Quantity: math.MaxInt},
	}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Zero(t, f.products.lookups)
	assert.Empty(t, f.orders.orders, "nothing is persisted")

	_, err = f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: MaxLineQuantity},
	}})
	assert.NoError(t, err)
}

func TestOrderService_PlaceOrder_BadProductID(t *testing.T) {
	f := newOrderFixture()

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: "abc", Quantity: 1},
	}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "products[0].productId")
}

func TestOrderService_PlaceOrder_UnknownUser(t *testing.T) {
	f := newOrderFixture()
	kettle := f.products.add(&models.Product{Name: "Kettle"})

	_, err := f.svc.PlaceOrder(context.Background(), primitive.NewObjectID(), dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 1},
	}})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestOrderService_PlaceOrder_NotifierErrorIgnored(t *testing.T) {
	f := newOrderFixture()
	f.notifier.err = errors.New("broker unavailable")
	kettle := f.products.add(&models.Product{Name: "Kettle", Price: decimal.NewFromInt(10)})

	order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, dto.PlaceOrderRequest{Products: []dto.OrderLineRequest{
		{ProductID: kettle.ID.Hex(), Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Contains(t, f.orders.orders, order.ID)
}

func TestOrderService_GetOrderConfirmation(t *testing.T) {
	f := newOrderFixture()
	other := f.users.add(&models.User{Email: "other@example.com"})
	f.orders.orders[primitive.NewObjectID()] = &models.Order{User: f.user.ID}
	f.orders.orders[primitive.NewObjectID()] = &models.Order{User: f.user.ID}
	f.orders.orders[primitive.NewObjectID()] = &models.Order{User: other.ID}

	orders, err := f.svc.GetOrderConfirmation(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = f.svc.GetOrderConfirmation(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTotals(t *testing.T) {
	items, total := Totals([]models.OrderLine{
		{Quantity: 3, Price: decimal.RequireFromString("0.10")},
		{Quantity: 1, Price: decimal.RequireFromString("0.20")},
	})
	assert.Equal(t, 4, items)
	assert.Equal(t, "0.50", total.StringFixed(2))

	items, total = Totals(nil)
	assert.Zero(t, items)
	assert.True(t, total.IsZero())
}
