package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/repository"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockUserRepo struct {
	users map[string]*models.User
	byID  map[primitive.ObjectID]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User), byID: make(map[primitive.ObjectID]*models.User)}
}

func (m *mockUserRepo) add(user *models.User) *models.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.Email] = user
	m.byID[user.ID] = user
	return user
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range m.byID {
		if u.Agent == user.Agent {
			return repository.ErrDuplicate
		}
	}
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

type mockProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
	lookups  int
	err      error
	// afterList and afterGet run once the read has its snapshot, before it returns.
	afterList func()
	afterGet  func()
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[primitive.ObjectID]*models.Product)}
}

func (m *mockProductRepo) add(p *models.Product) *models.Product {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, p *models.Product) error {
	p.CreatedAt = time.Now()
	m.add(p)
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	m.lookups++
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	var found *models.Product
	if p, ok := m.products[id]; ok {
		copied := *p
		found = &copied
	}
	hook := m.afterGet
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return found, nil
}

func (m *mockProductRepo) List(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	m.lookups++
	out := []models.Product{}
	for _, p := range m.products {
		out = append(out, *p)
	}
	hook := m.afterList
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *mockProductRepo) SearchByName(_ context.Context, name string) ([]models.Product, error) {
	return nil, errors.New("not used")
}

func (m *mockProductRepo) Update(_ context.Context, id primitive.ObjectID, f repository.ProductFields) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	p.ItemCode, p.Name, p.Description, p.Picture, p.Price = f.ItemCode, f.Name, f.Description, f.Picture, f.Price
	copied := *p
	return &copied, nil
}

func (m *mockProductRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}

type mockOrderRepo struct {
	orders map[primitive.ObjectID]*models.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) error {
	order.ID = primitive.NewObjectID()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	orders := []models.Order{}
	for _, o := range m.orders {
		if o.User == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

type fakeWelcomeMailer struct {
	sent []string
	err  error
}

func (f *fakeWelcomeMailer) SendWelcomeEmail(_ context.Context, user *models.User) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, user.Email)
	return nil
}

type fakeNotifier struct {
	orders []*models.Order
	err    error
}

func (f *fakeNotifier) NotifyOrderPlaced(_ context.Context, _ *models.User, order *models.Order) error {
	f.orders = append(f.orders, order)
	return f.err
}
